package booking

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/event"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/fraud"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/midtrans"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/payment"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/reservation"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/ticket"
	"github.com/tsel-ticketmaster/tm-booking/internal/pkg/session"
	"github.com/tsel-ticketmaster/tm-booking/pkg/errors"
	"github.com/tsel-ticketmaster/tm-booking/pkg/gctasks"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

type stubEventRepository struct {
	event event.Event
	err   error
}

func (s *stubEventRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (event.Event, error) {
	return s.event, s.err
}

type stubTierRepository struct {
	tier event.AccessTier
	err  error
}

func (s *stubTierRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (event.AccessTier, error) {
	return s.tier, s.err
}

func (s *stubTierRepository) TryAcquireStock(ctx context.Context, ID string, qty int64, tx *sql.Tx) error {
	return nil
}

func (s *stubTierRepository) ReleaseStock(ctx context.Context, ID string, qty int64, tx *sql.Tx) error {
	return nil
}

type stubReservationEngine struct {
	reserveErr error
	reserved   []reservation.ReserveRequest
	released   []string
	reasons    []string
	consumed   []string
}

func (s *stubReservationEngine) Reserve(ctx context.Context, req reservation.ReserveRequest, tx *sql.Tx) (reservation.StockReservation, error) {
	if s.reserveErr != nil {
		return reservation.StockReservation{}, s.reserveErr
	}
	s.reserved = append(s.reserved, req)
	return reservation.StockReservation{ID: "res-1", AccessTierID: req.AccessTierID, Quantity: req.Quantity, Status: reservation.StatusActive}, nil
}

func (s *stubReservationEngine) Release(ctx context.Context, reservationID string, reason string, tx *sql.Tx) error {
	s.released = append(s.released, reservationID)
	s.reasons = append(s.reasons, reason)
	return nil
}

func (s *stubReservationEngine) Consume(ctx context.Context, reservationID string, tx *sql.Tx) error {
	s.consumed = append(s.consumed, reservationID)
	return nil
}

func (s *stubReservationEngine) ReleaseExpired(ctx context.Context, limit int64) (int64, error) {
	return 0, nil
}

type stubIntentLedger struct {
	intent      payment.PaymentIntent
	replayed    bool
	createErr   error
	transitions []string
}

func (s *stubIntentLedger) CreateIntent(ctx context.Context, req payment.CreateIntentRequest, tx *sql.Tx) (payment.PaymentIntent, bool, error) {
	if s.createErr != nil {
		return payment.PaymentIntent{}, false, s.createErr
	}
	if s.replayed {
		return s.intent, true, nil
	}
	return payment.PaymentIntent{
		ID:             "intent-1",
		IdempotencyKey: req.IdempotencyKey,
		UserID:         req.UserID,
		Amount:         req.Amount,
		Status:         payment.StatusCreated,
		ExternalRef:    req.ExternalRef,
	}, false, nil
}

func (s *stubIntentLedger) ApplyTransition(ctx context.Context, intentID string, to string, gatewayPaymentID *string, tx *sql.Tx) error {
	s.transitions = append(s.transitions, to)
	return nil
}

type stubBookingRepository struct {
	byIdemKey    Booking
	byIdemKeyErr error
	byCode       map[string]Booking
	saveErr      error
	saved        []Booking
	updates      []Booking
	sumActive    int64
	list         []Booking
	total        int64
}

func (s *stubBookingRepository) BeginTx(ctx context.Context) (*sql.Tx, error) { return nil, nil }

func (s *stubBookingRepository) CommitTx(ctx context.Context, tx *sql.Tx) error { return nil }

func (s *stubBookingRepository) Rollback(ctx context.Context, tx *sql.Tx) error { return nil }

func (s *stubBookingRepository) Save(ctx context.Context, b Booking, tx *sql.Tx) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, b)
	if s.byCode == nil {
		s.byCode = map[string]Booking{}
	}
	s.byCode[b.BookingCode] = b
	return nil
}

func (s *stubBookingRepository) findByCode(bookingCode string) (Booking, error) {
	if b, ok := s.byCode[bookingCode]; ok {
		return b, nil
	}
	return Booking{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "booking's properties is not found")
}

func (s *stubBookingRepository) FindByBookingCode(ctx context.Context, bookingCode string, tx *sql.Tx) (Booking, error) {
	return s.findByCode(bookingCode)
}

func (s *stubBookingRepository) FindByBookingCodeForUpdate(ctx context.Context, bookingCode string, tx *sql.Tx) (Booking, error) {
	return s.findByCode(bookingCode)
}

func (s *stubBookingRepository) FindByIdempotencyKey(ctx context.Context, key string, tx *sql.Tx) (Booking, error) {
	if s.byIdemKeyErr != nil {
		return Booking{}, s.byIdemKeyErr
	}
	return s.byIdemKey, nil
}

func (s *stubBookingRepository) FindMany(ctx context.Context, userID int64, offset, limit int64, tx *sql.Tx) ([]Booking, error) {
	return s.list, nil
}

func (s *stubBookingRepository) Count(ctx context.Context, userID int64, tx *sql.Tx) (int64, error) {
	return s.total, nil
}

func (s *stubBookingRepository) SumActiveQuantityByEventIDAndUserID(ctx context.Context, eventID string, userID int64, tx *sql.Tx) (int64, error) {
	return s.sumActive, nil
}

func (s *stubBookingRepository) Update(ctx context.Context, ID string, b Booking, tx *sql.Tx) error {
	s.updates = append(s.updates, b)
	if s.byCode == nil {
		s.byCode = map[string]Booking{}
	}
	s.byCode[b.BookingCode] = b
	return nil
}

type stubGuestlistApprovalRepository struct {
	err      error
	approval GuestlistApproval
}

func (s *stubGuestlistApprovalRepository) FindApproved(ctx context.Context, eventID string, userID int64, tx *sql.Tx) (GuestlistApproval, error) {
	return s.approval, s.err
}

func (s *stubGuestlistApprovalRepository) FindLatestApprovedByUserID(ctx context.Context, userID int64, tx *sql.Tx) (GuestlistApproval, error) {
	return s.approval, s.err
}

type stubPlatformConfigRepository struct {
	fee float64
}

func (s *stubPlatformConfigRepository) GetPlatformFeePercentage(ctx context.Context) (float64, error) {
	return s.fee, nil
}

func (s *stubPlatformConfigRepository) Invalidate(ctx context.Context) error { return nil }

type stubTicketRepository struct {
	issuedToUser int64
}

func (s *stubTicketRepository) Save(ctx context.Context, t ticket.AccessTicket, tx *sql.Tx) error {
	return nil
}

func (s *stubTicketRepository) CountByBookingID(ctx context.Context, bookingID string, tx *sql.Tx) (int64, error) {
	return 0, nil
}

func (s *stubTicketRepository) CountByEventIDAndUserID(ctx context.Context, eventID string, userID int64, tx *sql.Tx) (int64, error) {
	return s.issuedToUser, nil
}

func (s *stubTicketRepository) FindManyByBookingID(ctx context.Context, bookingID string, tx *sql.Tx) ([]ticket.AccessTicket, error) {
	return nil, nil
}

type stubFraudRepository struct {
	verdict fraud.Verdict
	err     error
}

func (s *stubFraudRepository) Screen(ctx context.Context, req fraud.ScreenRequest) (fraud.Verdict, error) {
	return s.verdict, s.err
}

type stubMidtransRepository struct {
	createErr  error
	statusResp midtrans.TransactionStatus
	created    []midtrans.CreateTransactionRequest
}

func (s *stubMidtransRepository) CreateTransaction(ctx context.Context, req midtrans.CreateTransactionRequest) (midtrans.CreateTransactionResponse, error) {
	if s.createErr != nil {
		return midtrans.CreateTransactionResponse{}, s.createErr
	}
	s.created = append(s.created, req)
	return midtrans.CreateTransactionResponse{Token: "snap-token", RedirectURL: "https://pay.example/snap-token"}, nil
}

func (s *stubMidtransRepository) GetTransactionStatus(ctx context.Context, orderID string) (midtrans.TransactionStatus, error) {
	return s.statusResp, nil
}

type stubLimiter struct {
	allowed bool
}

func (s *stubLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return s.allowed, nil
}

type stubPublisher struct {
	topics []string
}

func (s *stubPublisher) Publish(ctx context.Context, topic string, key string, headers map[string]string, message []byte) {
	s.topics = append(s.topics, topic)
}

func (s *stubPublisher) Close() {}

type stubCloudTask struct {
	scheduled []time.Time
}

func (s *stubCloudTask) CreateTask(ctx context.Context, queueID string, request gctasks.Request) error {
	return nil
}

func (s *stubCloudTask) DeferCreateTaskInTime(ctx context.Context, queueID string, request gctasks.Request, schedule time.Time) error {
	s.scheduled = append(s.scheduled, schedule)
	return nil
}

func (s *stubCloudTask) Close() error { return nil }

type stubReconciler struct {
	calls []string
}

func (s *stubReconciler) Reconcile(ctx context.Context, paymentRef string, force bool) error {
	s.calls = append(s.calls, paymentRef)
	return nil
}

type bookingFixture struct {
	events     *stubEventRepository
	tiers      *stubTierRepository
	engine     *stubReservationEngine
	ledger     *stubIntentLedger
	bookings   *stubBookingRepository
	guestlist  *stubGuestlistApprovalRepository
	platform   *stubPlatformConfigRepository
	tickets    *stubTicketRepository
	fraudRepo  *stubFraudRepository
	gateway    *stubMidtransRepository
	limiter    *stubLimiter
	publisher  *stubPublisher
	cloudTask  *stubCloudTask
	reconciler *stubReconciler
	useCase    BookingUseCase
}

func bookingNotFound() error {
	return errors.New(http.StatusNotFound, status.NOT_FOUND, "booking's properties is not found")
}

func newBookingFixture() *bookingFixture {
	f := &bookingFixture{
		events: &stubEventRepository{event: event.Event{
			ID:            "event-1",
			Status:        event.EventStatusPublished,
			TaxPercentage: 10,
			TicketQuota:   4,
			Time:          time.Now().Add(72 * time.Hour),
		}},
		tiers: &stubTierRepository{tier: event.AccessTier{
			ID:       "tier-1",
			EventID:  "event-1",
			Price:    100000,
			IsActive: true,
		}},
		engine:     &stubReservationEngine{},
		ledger:     &stubIntentLedger{},
		bookings:   &stubBookingRepository{byIdemKeyErr: bookingNotFound()},
		guestlist:  &stubGuestlistApprovalRepository{},
		platform:   &stubPlatformConfigRepository{fee: 5},
		tickets:    &stubTicketRepository{},
		fraudRepo:  &stubFraudRepository{verdict: fraud.Verdict{Approved: true, Action: fraud.ActionAllow}},
		gateway:    &stubMidtransRepository{},
		limiter:    &stubLimiter{allowed: true},
		publisher:  &stubPublisher{},
		cloudTask:  &stubCloudTask{},
		reconciler: &stubReconciler{},
	}

	f.useCase = NewBookingUseCase(BookingUseCaseProperty{
		Logger:                      logrus.New(),
		Timeout:                     5 * time.Second,
		BaseURL:                     "https://booking.example",
		ExpireDuration:              30 * time.Minute,
		PendingRecheckGrace:         5 * time.Minute,
		MinTotalAmount:              1000,
		MaxTotalAmount:              100000000,
		GuestlistPlatformFee:        10000,
		MaxTicketPerEvent:           4,
		EventRepository:             f.events,
		AccessTierRepository:        f.tiers,
		ReservationEngine:           f.engine,
		IntentLedger:                f.ledger,
		BookingRepository:           f.bookings,
		GuestlistApprovalRepository: f.guestlist,
		PlatformConfigRepository:    f.platform,
		AccessTicketRepository:      f.tickets,
		FraudRepository:             f.fraudRepo,
		MidtransRepository:          f.gateway,
		RateLimiter:                 f.limiter,
		Publisher:                   f.publisher,
		CloudTask:                   f.cloudTask,
		Reconciler:                  f.reconciler,
	})

	return f
}

func customerCtx() context.Context {
	return session.SetAccountToCtx(context.Background(), session.Account{
		ID:    7,
		Email: "customer@example.com",
		Name:  "Customer",
		Role:  "CUSTOMER",
	})
}

func TestCreateBooking(t *testing.T) {
	t.Run("places a booking, charges the gateway and schedules expiry", func(t *testing.T) {
		f := newBookingFixture()

		resp, err := f.useCase.CreateBooking(customerCtx(), CreateBookingRequest{
			IdempotencyKey: "idem-0001",
			EventID:        "event-1",
			AccessTierID:   "tier-1",
			Quantity:       2,
		})

		require.NoError(t, err)
		assert.False(t, resp.Replayed)
		assert.Equal(t, StatusPending, resp.Status)

		// subtotal 200000, 5% fee 10000, 10% tax 20000
		assert.Equal(t, float64(200000), resp.SubtotalAmount)
		assert.Equal(t, float64(10000), resp.PlatformFee)
		assert.Equal(t, float64(20000), resp.TaxAmount)
		assert.Equal(t, float64(230000), resp.TotalAmount)

		require.Len(t, f.engine.reserved, 1)
		assert.Equal(t, int64(2), f.engine.reserved[0].Quantity)
		require.Len(t, f.gateway.created, 1)
		assert.Equal(t, int64(230000), f.gateway.created[0].TransactionDetails.GrossAmount)
		assert.Equal(t, []string{payment.StatusProcessing}, f.ledger.transitions)
		assert.Len(t, f.cloudTask.scheduled, 1)
		assert.Equal(t, []string{TopicBookingCreated}, f.publisher.topics)
	})

	t.Run("replays the prior booking for a known idempotency key", func(t *testing.T) {
		f := newBookingFixture()
		f.bookings.byIdemKeyErr = nil
		f.bookings.byIdemKey = Booking{
			ID:          "booking-1",
			BookingCode: "BK-EXISTING",
			UserID:      7,
			Status:      StatusPending,
		}

		resp, err := f.useCase.CreateBooking(customerCtx(), CreateBookingRequest{
			IdempotencyKey: "idem-0001",
			EventID:        "event-1",
			AccessTierID:   "tier-1",
			Quantity:       2,
		})

		require.NoError(t, err)
		assert.True(t, resp.Replayed)
		assert.Equal(t, "BK-EXISTING", resp.BookingCode)
		assert.Empty(t, f.engine.reserved)
		assert.Empty(t, f.gateway.created)
	})

	t.Run("compensates every step when the gateway fails", func(t *testing.T) {
		f := newBookingFixture()
		f.gateway.createErr = errors.New(http.StatusBadGateway, status.GATEWAY_ERROR, "the payment gateway cannot be reached")

		_, err := f.useCase.CreateBooking(customerCtx(), CreateBookingRequest{
			IdempotencyKey: "idem-0001",
			EventID:        "event-1",
			AccessTierID:   "tier-1",
			Quantity:       2,
		})

		assert.True(t, errors.Is(err, status.GATEWAY_ERROR))

		require.Len(t, f.engine.released, 1)
		assert.Equal(t, []string{reservation.ReasonGatewayFailure}, f.engine.reasons)
		assert.Equal(t, []string{payment.StatusFailed}, f.ledger.transitions)

		require.Len(t, f.bookings.updates, 1)
		assert.Equal(t, StatusCancelled, f.bookings.updates[0].Status)
		assert.Equal(t, PaymentStatusFailed, f.bookings.updates[0].PaymentStatus)
		assert.Empty(t, f.cloudTask.scheduled)
	})

	t.Run("rejects a quantity beyond the remaining quota, reporting the remainder", func(t *testing.T) {
		f := newBookingFixture()
		f.tickets.issuedToUser = 2
		f.bookings.sumActive = 1

		_, err := f.useCase.CreateBooking(customerCtx(), CreateBookingRequest{
			IdempotencyKey: "idem-0001",
			EventID:        "event-1",
			AccessTierID:   "tier-1",
			Quantity:       2,
		})

		require.Error(t, err)
		assert.True(t, errors.Is(err, status.QUOTA_EXCEEDED))
		assert.Contains(t, errors.Destruct(err).Message, "remaining quota is 1")
		assert.Empty(t, f.engine.reserved)
	})

	t.Run("denies a booking the risk screen rejected before any stock moves", func(t *testing.T) {
		f := newBookingFixture()
		f.fraudRepo.verdict = fraud.Verdict{Approved: false, RiskScore: 0.97, Action: fraud.ActionDeny}

		_, err := f.useCase.CreateBooking(customerCtx(), CreateBookingRequest{
			IdempotencyKey: "idem-0001",
			EventID:        "event-1",
			AccessTierID:   "tier-1",
			Quantity:       1,
		})

		assert.True(t, errors.Is(err, status.FORBIDDEN))
		assert.Empty(t, f.engine.reserved)
		assert.Empty(t, f.bookings.saved)
	})

	t.Run("enforces the total amount ceiling", func(t *testing.T) {
		f := newBookingFixture()
		f.tiers.tier.Price = 90000000

		_, err := f.useCase.CreateBooking(customerCtx(), CreateBookingRequest{
			IdempotencyKey: "idem-0001",
			EventID:        "event-1",
			AccessTierID:   "tier-1",
			Quantity:       2,
		})

		assert.True(t, errors.Is(err, status.BAD_REQUEST))
		assert.Empty(t, f.bookings.saved)
	})

	t.Run("requires a guestlist approval for a zero-price tier", func(t *testing.T) {
		f := newBookingFixture()
		f.tiers.tier.Price = 0
		f.guestlist.err = errors.New(http.StatusForbidden, status.FORBIDDEN, "a guestlist booking requires a prior approval")

		_, err := f.useCase.CreateBooking(customerCtx(), CreateBookingRequest{
			IdempotencyKey: "idem-0001",
			EventID:        "event-1",
			AccessTierID:   "tier-1",
			Quantity:       1,
		})

		assert.True(t, errors.Is(err, status.FORBIDDEN))
		assert.Empty(t, f.bookings.saved)
	})

	t.Run("charges a flat platform fee and skips capacity for an approved guestlist booking", func(t *testing.T) {
		f := newBookingFixture()
		f.tiers.tier.Price = 0
		f.guestlist.approval = GuestlistApproval{EventID: "event-1", UserID: 7, Status: GuestlistApproved}

		resp, err := f.useCase.CreateBooking(customerCtx(), CreateBookingRequest{
			IdempotencyKey: "idem-0001",
			EventID:        "event-1",
			AccessTierID:   "tier-1",
			Quantity:       1,
		})

		require.NoError(t, err)
		assert.Equal(t, float64(0), resp.SubtotalAmount)
		assert.Equal(t, float64(10000), resp.PlatformFee)
		assert.Equal(t, float64(10000), resp.TotalAmount)
		assert.Empty(t, f.engine.reserved)
		require.Len(t, f.bookings.saved, 1)
		assert.Empty(t, f.bookings.saved[0].StockReservationID)
	})

	t.Run("throttles a user beyond the attempt budget", func(t *testing.T) {
		f := newBookingFixture()
		f.limiter.allowed = false

		_, err := f.useCase.CreateBooking(customerCtx(), CreateBookingRequest{
			IdempotencyKey: "idem-0001",
			EventID:        "event-1",
			AccessTierID:   "tier-1",
			Quantity:       1,
		})

		assert.True(t, errors.Is(err, status.TOO_MANY_REQUESTS))
	})
}

func TestCancelBooking(t *testing.T) {
	t.Run("cancels a pending booking and releases its hold", func(t *testing.T) {
		f := newBookingFixture()
		f.bookings.byCode = map[string]Booking{
			"BK-CANCELME": {
				ID:                 "booking-1",
				BookingCode:        "BK-CANCELME",
				UserID:             7,
				Status:             StatusPending,
				PaymentStatus:      PaymentStatusPending,
				PaymentIntentID:    "intent-1",
				StockReservationID: "res-1",
			},
		}

		resp, err := f.useCase.CancelBooking(customerCtx(), CancelBookingRequest{BookingCode: "BK-CANCELME"})

		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, resp.Status)
		assert.Equal(t, []string{"res-1"}, f.engine.released)
		assert.Equal(t, []string{reservation.ReasonUserCancelled}, f.engine.reasons)
		assert.Equal(t, []string{payment.StatusFailed}, f.ledger.transitions)
		assert.Equal(t, []string{TopicBookingCancelled}, f.publisher.topics)
	})

	t.Run("refuses to cancel a confirmed booking", func(t *testing.T) {
		f := newBookingFixture()
		f.bookings.byCode = map[string]Booking{
			"BK-PAID": {ID: "booking-1", BookingCode: "BK-PAID", UserID: 7, Status: StatusConfirmed},
		}

		_, err := f.useCase.CancelBooking(customerCtx(), CancelBookingRequest{BookingCode: "BK-PAID"})

		assert.True(t, errors.Is(err, status.CONFLICT))
		assert.Empty(t, f.engine.released)
	})

	t.Run("hides another user's booking", func(t *testing.T) {
		f := newBookingFixture()
		f.bookings.byCode = map[string]Booking{
			"BK-OTHER": {ID: "booking-1", BookingCode: "BK-OTHER", UserID: 99, Status: StatusPending},
		}

		_, err := f.useCase.CancelBooking(customerCtx(), CancelBookingRequest{BookingCode: "BK-OTHER"})

		assert.True(t, errors.Is(err, status.NOT_FOUND))
	})
}

func TestGetBookingStatus(t *testing.T) {
	t.Run("expires a pending booking found past its hold window", func(t *testing.T) {
		f := newBookingFixture()
		f.bookings.byCode = map[string]Booking{
			"BK-STALE": {
				ID:                 "booking-1",
				BookingCode:        "BK-STALE",
				UserID:             7,
				Status:             StatusPending,
				PaymentStatus:      PaymentStatusPending,
				PaymentIntentID:    "intent-1",
				StockReservationID: "res-1",
				ExpiresAt:          time.Now().Add(-time.Minute),
				CreatedAt:          time.Now().Add(-time.Hour),
			},
		}

		resp, err := f.useCase.GetBookingStatus(customerCtx(), GetBookingStatusRequest{BookingCode: "BK-STALE"})

		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, resp.Status)
		assert.Equal(t, PaymentStatusExpired, resp.PaymentStatus)
		assert.Equal(t, []string{"res-1"}, f.engine.released)
		// the gateway is consulted before the hold is abandoned
		assert.Equal(t, []string{"BK-STALE"}, f.reconciler.calls)
	})

	t.Run("triggers an on-demand re-check for a booking pending past the grace period", func(t *testing.T) {
		f := newBookingFixture()
		f.bookings.byCode = map[string]Booking{
			"BK-WAITING": {
				ID:          "booking-1",
				BookingCode: "BK-WAITING",
				UserID:      7,
				Status:      StatusPending,
				ExpiresAt:   time.Now().Add(20 * time.Minute),
				CreatedAt:   time.Now().Add(-10 * time.Minute),
			},
		}

		_, err := f.useCase.GetBookingStatus(customerCtx(), GetBookingStatusRequest{BookingCode: "BK-WAITING"})

		require.NoError(t, err)
		assert.Equal(t, []string{"BK-WAITING"}, f.reconciler.calls)
		assert.Empty(t, f.engine.released)
	})

	t.Run("returns a terminal booking untouched", func(t *testing.T) {
		f := newBookingFixture()
		f.bookings.byCode = map[string]Booking{
			"BK-DONE": {ID: "booking-1", BookingCode: "BK-DONE", UserID: 7, Status: StatusConfirmed},
		}

		resp, err := f.useCase.GetBookingStatus(customerCtx(), GetBookingStatusRequest{BookingCode: "BK-DONE"})

		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, resp.Status)
		assert.Empty(t, f.reconciler.calls)
	})
}

func TestOnExpireBooking(t *testing.T) {
	t.Run("leaves a booking confirmed by the pre-expiry re-check alone", func(t *testing.T) {
		f := newBookingFixture()
		f.bookings.byCode = map[string]Booking{
			"BK-RACE": {ID: "booking-1", BookingCode: "BK-RACE", UserID: 7, Status: StatusConfirmed},
		}

		err := f.useCase.OnExpireBooking(context.Background(), ExpireBookingEvent{BookingCode: "BK-RACE"})

		require.NoError(t, err)
		assert.Empty(t, f.engine.released)
		assert.Empty(t, f.bookings.updates)
	})

	t.Run("cancels an elapsed pending booking with payment status EXPIRED", func(t *testing.T) {
		f := newBookingFixture()
		f.bookings.byCode = map[string]Booking{
			"BK-LAPSED": {
				ID:                 "booking-1",
				BookingCode:        "BK-LAPSED",
				UserID:             7,
				Status:             StatusPending,
				PaymentIntentID:    "intent-1",
				StockReservationID: "res-1",
				ExpiresAt:          time.Now().Add(-time.Minute),
			},
		}

		err := f.useCase.OnExpireBooking(context.Background(), ExpireBookingEvent{BookingCode: "BK-LAPSED"})

		require.NoError(t, err)
		require.Len(t, f.bookings.updates, 1)
		assert.Equal(t, StatusCancelled, f.bookings.updates[0].Status)
		assert.Equal(t, PaymentStatusExpired, f.bookings.updates[0].PaymentStatus)
		assert.Equal(t, []string{reservation.ReasonHoldExpired}, f.engine.reasons)
	})
}
