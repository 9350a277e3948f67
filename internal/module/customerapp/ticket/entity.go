package ticket

import "time"

const (
	StatusValid   = "VALID"
	StatusUsed    = "USED"
	StatusRevoked = "REVOKED"
)

// AccessTicket is one admission unit, issued exactly once per unit of a
// confirmed booking's quantity. BookingID is nil for guestlist tickets,
// which have no booking row behind them.
type AccessTicket struct {
	ID           string
	TicketCode   string
	QRCode       string
	UserID       int64
	EventID      string
	AccessTierID *string
	BookingID    *string
	Status       string
	ValidUntil   time.Time
	CreatedAt    time.Time
}
