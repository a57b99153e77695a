// Package session implements the campaign session controller: the
// per-campaign conversation state, the payment gate, and the two-step
// pay-then-execute transaction flow.
package session

import (
	"github.com/arcwardens/outreach/internal/domain"
)

// GateState describes whether free-form input is currently accepted.
type GateState int

const (
	// GateIdle means no cost is owed and input flows to the backend.
	GateIdle GateState = iota
	// GateAwaitingPayment means an outstanding charge blocks free-form
	// input until an explicit pay action settles it.
	GateAwaitingPayment
)

// Gate is the payment gate state machine for the active campaign. It is
// derived state: it is recomputed from the campaign's stored fields on
// every campaign switch and mutated directly while a payment round is
// in flight. Invariant at quiescent points: pending == (cost > 0).
type Gate struct {
	cost float64
}

// Pending reports whether a payment is outstanding.
func (g *Gate) Pending() bool {
	return g.cost > 0
}

// State returns the current gate state.
func (g *Gate) State() GateState {
	if g.Pending() {
		return GateAwaitingPayment
	}
	return GateIdle
}

// PendingCost returns the outstanding charge, 0 when idle.
func (g *Gate) PendingCost() float64 {
	return g.cost
}

// ApplyQuote transitions the gate from a cost quote: a positive cost
// opens the gate as awaiting payment, anything else clears it.
func (g *Gate) ApplyQuote(cost float64) {
	if cost > 0 {
		g.cost = cost
		return
	}
	g.cost = 0
}

// Clear resets the gate to idle.
func (g *Gate) Clear() {
	g.cost = 0
}

// Recompute derives the gate from a campaign's persisted fields. Used
// when the active campaign changes; in-memory gate state never carries
// over from another campaign.
func (g *Gate) Recompute(campaign *domain.Campaign) {
	if campaign == nil {
		g.cost = 0
		return
	}
	g.ApplyQuote(campaign.PendingCost)
}
