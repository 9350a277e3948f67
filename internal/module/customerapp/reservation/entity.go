package reservation

import "time"

const (
	StatusActive   = "ACTIVE"
	StatusConsumed = "CONSUMED"
	StatusReleased = "RELEASED"
	StatusExpired  = "EXPIRED"
)

// Release reasons, recorded for operational forensics.
const (
	ReasonGatewayFailure = "GATEWAY_FAILURE"
	ReasonUserCancelled  = "USER_CANCELLED"
	ReasonPaymentDenied  = "PAYMENT_DENIED"
	ReasonHoldExpired    = "HOLD_EXPIRED"
)

// StockReservation is a TTL-bounded hold on access tier inventory tied to one
// in-flight booking attempt.
type StockReservation struct {
	ID              string
	AccessTierID    string
	UserID          int64
	Quantity        int64
	PaymentIntentID string
	Status          string
	Reason          *string
	ExpiresAt       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r StockReservation) Expired(now time.Time) bool {
	return r.Status == StatusActive && now.After(r.ExpiresAt)
}
