package booking

// ExpireBookingEvent is the payload of the deferred expiry callback scheduled
// when a booking is placed.
type ExpireBookingEvent struct {
	BookingCode string `json:"booking_code"`
}

// Notification payloads published to the notification topics. Delivery is
// fire-and-forget; consumers own formatting and channels.
type BookingNotification struct {
	BookingCode string  `json:"booking_code"`
	UserID      int64   `json:"user_id"`
	UserEmail   string  `json:"user_email"`
	EventID     string  `json:"event_id"`
	Quantity    int64   `json:"quantity"`
	TotalAmount float64 `json:"total_amount"`
	Status      string  `json:"status"`
}

const (
	TopicBookingCreated   = "booking-created"
	TopicBookingConfirmed = "booking-confirmed"
	TopicBookingCancelled = "booking-cancelled"
)
