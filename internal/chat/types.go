// Package chat implements the HTTP client for the campaign reasoning backend.
package chat

import (
	"github.com/arcwardens/outreach/internal/domain"
)

// Request is a chat request for one campaign turn. The full conversation
// history is resent on every turn; the backend holds no session state.
type Request struct {
	Message             string           `json:"message"`
	CampaignID          string           `json:"campaignId"`
	ConversationHistory []domain.Message `json:"conversationHistory"`
}

// Response is a reply from the reasoning backend. Older backend revisions
// used different field names for the reply body and the quoted cost, so
// all variants are decoded and ReplyText/Cost pick the effective value.
type Response struct {
	Message  string `json:"message,omitempty"`
	Response string `json:"response,omitempty"`
	Content  string `json:"content,omitempty"`
	// CampaignCost and Cost carry an optional charge quote for the
	// requested action. CampaignCost wins when both are present.
	CampaignCost float64 `json:"campaignCost,omitempty"`
	Cost         float64 `json:"cost,omitempty"`
}

// PayRequest asks the backend to execute the paid campaign action after
// funds have been transferred.
type PayRequest struct {
	CampaignID string  `json:"campaignId"`
	Amount     float64 `json:"amount"`
}

// PayResponse is the result of a paid-action execution. A positive Cost
// (usually flagged by RequiresPayment) means the completed step revealed
// a further charge.
type PayResponse struct {
	Success          bool    `json:"success"`
	Message          string  `json:"message,omitempty"`
	Cost             float64 `json:"cost,omitempty"`
	RequiresPayment  bool    `json:"requires_payment,omitempty"`
	TransactionID    string  `json:"transactionId,omitempty"`
	Error            string  `json:"error,omitempty"`
}
