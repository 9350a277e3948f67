package booking

import "time"

const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusConfirmed  = "CONFIRMED"
	StatusCancelled  = "CANCELLED"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusSuccess   = "SUCCESS"
	PaymentStatusFailed    = "FAILED"
	PaymentStatusExpired   = "EXPIRED"
	PaymentStatusCancelled = "CANCELLED"
)

// Booking is one user's in-progress or completed purchase of access tier
// units. BookingCode doubles as the payment gateway's order id.
type Booking struct {
	ID                 string
	BookingCode        string
	UserID             int64
	UserName           string
	UserEmail          string
	EventID            string
	AccessTierID       string
	Quantity           int64
	UnitPrice          float64
	SubtotalAmount     float64
	PlatformFee        float64
	TaxAmount          float64
	TotalAmount        float64
	Status             string
	PaymentStatus      string
	PaymentIntentID    string
	StockReservationID string
	IdempotencyKey     string
	PaymentRedirectURL *string
	ExpiresAt          time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// allowedTransitions is the booking state machine. CONFIRMED and CANCELLED
// are terminal.
var allowedTransitions = map[string][]string{
	StatusPending:    {StatusProcessing, StatusConfirmed, StatusCancelled},
	StatusProcessing: {StatusConfirmed, StatusCancelled},
}

func CanTransit(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

func (b Booking) Terminal() bool {
	return b.Status == StatusConfirmed || b.Status == StatusCancelled
}

func (b Booking) HoldElapsed(now time.Time) bool {
	return now.After(b.ExpiresAt)
}

// GuestlistApproval is the external precondition for a zero-price booking.
type GuestlistApproval struct {
	EventID   string
	UserID    int64
	Status    string
	CreatedAt time.Time
}

const GuestlistApproved = "APPROVED"
