package payment

import "time"

const (
	StatusCreated    = "CREATED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// PaymentIntent is the idempotency-tracked record of one logical payment
// attempt. ExternalRef is the reference handed to the payment gateway as its
// order id; the reconciliation engine resolves incoming gateway statuses
// through it.
type PaymentIntent struct {
	ID               string
	IdempotencyKey   string
	UserID           int64
	Amount           float64
	Status           string
	ExternalRef      string
	GatewayPaymentID *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// allowedTransitions encodes the monotonic lifecycle
// CREATED -> PROCESSING -> {COMPLETED | FAILED}.
var allowedTransitions = map[string][]string{
	StatusCreated:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

func CanTransit(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}

	return false
}
