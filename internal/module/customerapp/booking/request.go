package booking

type CreateBookingRequest struct {
	IdempotencyKey string `json:"-" validate:"required,min=8,max=64"`
	EventID        string `json:"event_id" validate:"required"`
	AccessTierID   string `json:"access_tier_id" validate:"required"`
	Quantity       int64  `json:"quantity" validate:"required,min=1,max=4"`
}

type GetManyBookingRequest struct {
	Page int64 `validate:"required,min=1"`
	Size int64 `validate:"required,min=1,max=50"`
}

type GetBookingStatusRequest struct {
	BookingCode string `validate:"required"`
}

type CancelBookingRequest struct {
	BookingCode string `validate:"required"`
}
