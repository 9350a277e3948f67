package event

import "time"

const (
	EventStatusPublished = "PUBLISHED"
	EventStatusArchived  = "ARCHIVED"
)

type Event struct {
	ID            string
	Name          string
	Venue         string
	Status        string
	TaxPercentage float64
	TicketQuota   int64
	Time          time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AccessTier is a priced ticket category with fixed capacity. SoldQuantity is
// mutated only through the conditional updates in AccessTierRepository, never
// by read-modify-write in application code.
type AccessTier struct {
	ID            string
	EventID       string
	Name          string
	Price         float64
	MaxQuantity   int64
	SoldQuantity  int64
	SaleStartDate time.Time
	SaleEndDate   time.Time
	IsActive      bool
}

func (t AccessTier) WithinSaleWindow(now time.Time) bool {
	return !now.Before(t.SaleStartDate) && now.Before(t.SaleEndDate)
}
