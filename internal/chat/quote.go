package chat

// fallbackReply is shown when the backend returns an empty reply body.
const fallbackReply = "No response received"

// ReplyText returns the reply body of a chat response, trying the field
// variants in order of preference.
func ReplyText(resp *Response) string {
	if resp == nil {
		return fallbackReply
	}
	switch {
	case resp.Message != "":
		return resp.Message
	case resp.Response != "":
		return resp.Response
	case resp.Content != "":
		return resp.Content
	}
	return fallbackReply
}

// Cost extracts the charge quote from a chat response. It returns 0 when
// no cost is present or the quoted value is not positive. Quotes are
// honored per turn regardless of prior campaign completion: a campaign
// may require several sequential paid actions.
func Cost(resp *Response) float64 {
	if resp == nil {
		return 0
	}
	cost := resp.Cost
	if resp.CampaignCost > 0 {
		cost = resp.CampaignCost
	}
	if cost <= 0 {
		return 0
	}
	return cost
}

// PayCost extracts the follow-up charge from a paid-action response,
// applying the same non-positive clamping as Cost.
func PayCost(resp *PayResponse) float64 {
	if resp == nil || resp.Cost <= 0 {
		return 0
	}
	return resp.Cost
}
