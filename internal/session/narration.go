package session

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/arcwardens/outreach/internal/chat"
)

// Narration messages are synthesized assistant turns appended to the
// campaign log so that reloading a campaign reconstructs the full
// payment history from stored messages alone.

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func paymentReminder(cost float64) string {
	return fmt.Sprintf("A payment of $%s is outstanding for this campaign. Please complete the payment before we continue.", formatAmount(cost))
}

func transferFailed(reason string) string {
	if reason == "" {
		reason = "the transfer was not accepted"
	}
	return fmt.Sprintf("Payment failed: %s. Your balance was not charged, please try again.", reason)
}

func paymentCompleted(cost float64) string {
	return fmt.Sprintf("Payment of $%s processed. Your campaign has been executed.", formatAmount(cost))
}

func paymentChained(newCost float64) string {
	return fmt.Sprintf("Payment received. A follow-up action requires an additional $%s.", formatAmount(newCost))
}

func actionFailedAfterTransfer(cost float64, reason string) string {
	if reason == "" {
		reason = "the action did not complete"
	}
	return fmt.Sprintf("Your payment of $%s was transferred, but executing the campaign action failed: %s. The charge will not be retried automatically; please contact support.", formatAmount(cost), reason)
}

// chatErrorNarration converts a chat backend failure into user-facing
// text: structured rejections are surfaced verbatim, transport errors
// get the generic connectivity message.
func chatErrorNarration(err error) string {
	var backendErr *chat.BackendError
	if errors.As(err, &backendErr) {
		return backendErr.Message
	}
	return "Unable to reach the server. Please check your connection."
}
