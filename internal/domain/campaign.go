// Package domain contains core domain types for the Arc Wardens application.
package domain

import (
	"time"
)

// Role identifies the author of a message in a campaign conversation.
type Role string

const (
	// RoleUser marks a message written by the user.
	RoleUser Role = "user"
	// RoleAssistant marks a message produced by the reasoning backend
	// or synthesized locally (error and payment narration).
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a campaign conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Campaign represents an outreach campaign with its conversation history
// and payment status.
type Campaign struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Messages []Message `json:"messages"`
	// Paid is true once at least one charge has been settled.
	Paid bool `json:"paid"`
	// Executed is true once at least one paid action has completed.
	Executed bool `json:"executed"`
	// PendingCost is the outstanding charge quoted by the reasoning
	// backend. Zero means no payment is owed.
	PendingCost float64 `json:"pending_cost"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PaymentPending reports whether the campaign has an outstanding charge.
func (c *Campaign) PaymentPending() bool {
	return c.PendingCost > 0
}

// Append adds a message to the conversation log.
func (c *Campaign) Append(role Role, content string) {
	c.Messages = append(c.Messages, Message{Role: role, Content: content})
}

// History returns a copy of the message log. The full history is resent
// to the reasoning backend on every turn, so callers must not be able to
// mutate the campaign's own slice.
func (c *Campaign) History() []Message {
	out := make([]Message, len(c.Messages))
	copy(out, c.Messages)
	return out
}
