package domain

// Analytics holds delivery metrics for an executed campaign.
type Analytics struct {
	EmailsSent   int     `json:"emailsSent"`
	EmailsOpened int     `json:"emailsOpened"`
	Replies      int     `json:"replies"`
	BounceRate   float64 `json:"bounceRate"`
}
