package booking

import "time"

type BookingResponse struct {
	BookingCode        string    `json:"booking_code"`
	EventID            string    `json:"event_id"`
	AccessTierID       string    `json:"access_tier_id"`
	Quantity           int64     `json:"quantity"`
	UnitPrice          float64   `json:"unit_price"`
	SubtotalAmount     float64   `json:"subtotal_amount"`
	PlatformFee        float64   `json:"platform_fee"`
	TaxAmount          float64   `json:"tax_amount"`
	TotalAmount        float64   `json:"total_amount"`
	Status             string    `json:"status"`
	PaymentStatus      string    `json:"payment_status"`
	PaymentRedirectURL *string   `json:"payment_redirect_url"`
	ExpiresAt          time.Time `json:"expires_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (r *BookingResponse) PopulateFromEntity(b Booking) {
	r.BookingCode = b.BookingCode
	r.EventID = b.EventID
	r.AccessTierID = b.AccessTierID
	r.Quantity = b.Quantity
	r.UnitPrice = b.UnitPrice
	r.SubtotalAmount = b.SubtotalAmount
	r.PlatformFee = b.PlatformFee
	r.TaxAmount = b.TaxAmount
	r.TotalAmount = b.TotalAmount
	r.Status = b.Status
	r.PaymentStatus = b.PaymentStatus
	r.PaymentRedirectURL = b.PaymentRedirectURL
	r.ExpiresAt = b.ExpiresAt
	r.CreatedAt = b.CreatedAt
	r.UpdatedAt = b.UpdatedAt
}

type CreateBookingResponse struct {
	BookingResponse
	// Replayed reports that the idempotency key matched an earlier
	// submission and the prior result is being returned.
	Replayed bool `json:"replayed,omitempty"`
}

type GetManyBookingResponse []BookingResponse

type GetManyBookingMeta struct {
	Page  int64 `json:"page"`
	Size  int64 `json:"size"`
	Total int64 `json:"total"`
}
