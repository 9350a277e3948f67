package fraud

const (
	ActionAllow  = "ALLOW"
	ActionReview = "REVIEW"
	ActionDeny   = "DENY"
)

type ScreenRequest struct {
	UserID   int64   `json:"user_id"`
	EventID  string  `json:"event_id"`
	Amount   float64 `json:"amount"`
	Quantity int64   `json:"quantity"`
}

type Verdict struct {
	Approved  bool    `json:"approved"`
	RiskScore float64 `json:"risk_score"`
	Action    string  `json:"action"`
}
