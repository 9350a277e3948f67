package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/event"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/fraud"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/midtrans"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/payment"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/reservation"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/ticket"
	"github.com/tsel-ticketmaster/tm-booking/internal/pkg/session"
	"github.com/tsel-ticketmaster/tm-booking/internal/pkg/util"
	"github.com/tsel-ticketmaster/tm-booking/pkg/errors"
	"github.com/tsel-ticketmaster/tm-booking/pkg/gctasks"
	"github.com/tsel-ticketmaster/tm-booking/pkg/pubsub"
	"github.com/tsel-ticketmaster/tm-booking/pkg/ratelimit"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

// PaymentReconciler is the pull-based verification primitive, implemented by
// the reconciliation module and injected here to avoid an import cycle.
type PaymentReconciler interface {
	Reconcile(ctx context.Context, paymentRef string, force bool) error
}

type BookingUseCase interface {
	CreateBooking(ctx context.Context, req CreateBookingRequest) (CreateBookingResponse, error)
	GetManyBooking(ctx context.Context, req GetManyBookingRequest) (GetManyBookingResponse, GetManyBookingMeta, error)
	GetBookingStatus(ctx context.Context, req GetBookingStatusRequest) (BookingResponse, error)
	CancelBooking(ctx context.Context, req CancelBookingRequest) (BookingResponse, error)
	OnExpireBooking(ctx context.Context, e ExpireBookingEvent) error
}

type bookingUseCase struct {
	logger                      *logrus.Logger
	timeout                     time.Duration
	baseURL                     string
	expireDuration              time.Duration
	pendingRecheckGrace         time.Duration
	minTotalAmount              float64
	maxTotalAmount              float64
	guestlistPlatformFee        float64
	maxTicketPerEvent           int64
	eventRepository             event.EventRepository
	accessTierRepository        event.AccessTierRepository
	reservationEngine           reservation.ReservationEngine
	intentLedger                payment.IntentLedger
	bookingRepository           BookingRepository
	guestlistApprovalRepository GuestlistApprovalRepository
	platformConfigRepository    PlatformConfigRepository
	accessTicketRepository      ticket.AccessTicketRepository
	fraudRepository             fraud.FraudRepository
	midtransRepository          midtrans.MidtransRepository
	rateLimiter                 ratelimit.Limiter
	publisher                   pubsub.Publisher
	cloudTask                   gctasks.Client
	reconciler                  PaymentReconciler
}

type BookingUseCaseProperty struct {
	Logger                      *logrus.Logger
	Timeout                     time.Duration
	BaseURL                     string
	ExpireDuration              time.Duration
	PendingRecheckGrace         time.Duration
	MinTotalAmount              float64
	MaxTotalAmount              float64
	GuestlistPlatformFee        float64
	MaxTicketPerEvent           int64
	EventRepository             event.EventRepository
	AccessTierRepository        event.AccessTierRepository
	ReservationEngine           reservation.ReservationEngine
	IntentLedger                payment.IntentLedger
	BookingRepository           BookingRepository
	GuestlistApprovalRepository GuestlistApprovalRepository
	PlatformConfigRepository    PlatformConfigRepository
	AccessTicketRepository      ticket.AccessTicketRepository
	FraudRepository             fraud.FraudRepository
	MidtransRepository          midtrans.MidtransRepository
	RateLimiter                 ratelimit.Limiter
	Publisher                   pubsub.Publisher
	CloudTask                   gctasks.Client
	Reconciler                  PaymentReconciler
}

func NewBookingUseCase(props BookingUseCaseProperty) BookingUseCase {
	return &bookingUseCase{
		logger:                      props.Logger,
		timeout:                     props.Timeout,
		baseURL:                     props.BaseURL,
		expireDuration:              props.ExpireDuration,
		pendingRecheckGrace:         props.PendingRecheckGrace,
		minTotalAmount:              props.MinTotalAmount,
		maxTotalAmount:              props.MaxTotalAmount,
		guestlistPlatformFee:        props.GuestlistPlatformFee,
		maxTicketPerEvent:           props.MaxTicketPerEvent,
		eventRepository:             props.EventRepository,
		accessTierRepository:        props.AccessTierRepository,
		reservationEngine:           props.ReservationEngine,
		intentLedger:                props.IntentLedger,
		bookingRepository:           props.BookingRepository,
		guestlistApprovalRepository: props.GuestlistApprovalRepository,
		platformConfigRepository:    props.PlatformConfigRepository,
		accessTicketRepository:      props.AccessTicketRepository,
		fraudRepository:             props.FraudRepository,
		midtransRepository:          props.MidtransRepository,
		rateLimiter:                 props.RateLimiter,
		publisher:                   props.Publisher,
		cloudTask:                   props.CloudTask,
		reconciler:                  props.Reconciler,
	}
}

// CreateBooking implements BookingUseCase. It runs the booking saga:
// screening, reservation, intent, persisted PENDING booking, then the
// gateway transaction; a gateway failure compensates every prior step before
// any error is surfaced.
func (u *bookingUseCase) CreateBooking(ctx context.Context, req CreateBookingRequest) (CreateBookingResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	acc, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return CreateBookingResponse{}, err
	}

	// Idempotent replay returns the prior result without touching stock or
	// the gateway.
	if prior, err := u.bookingRepository.FindByIdempotencyKey(ctx, req.IdempotencyKey, nil); err == nil {
		if prior.UserID != acc.ID {
			return CreateBookingResponse{}, errors.New(http.StatusConflict, status.CONFLICT, "the idempotency key belongs to another account")
		}

		resp := CreateBookingResponse{Replayed: true}
		resp.PopulateFromEntity(prior)
		return resp, nil
	} else if !errors.Is(err, status.NOT_FOUND) {
		return CreateBookingResponse{}, err
	}

	allowed, err := u.rateLimiter.Allow(ctx, fmt.Sprintf("booking:%d", acc.ID))
	if err != nil {
		return CreateBookingResponse{}, err
	}
	if !allowed {
		return CreateBookingResponse{}, errors.New(http.StatusTooManyRequests, status.TOO_MANY_REQUESTS, "too many booking attempts, please slow down")
	}

	ev, err := u.eventRepository.FindByID(ctx, req.EventID, nil)
	if err != nil {
		return CreateBookingResponse{}, err
	}

	if ev.Status != event.EventStatusPublished {
		return CreateBookingResponse{}, errors.New(http.StatusForbidden, status.SALE_WINDOW_CLOSED, "the event is not open for booking")
	}

	tier, err := u.accessTierRepository.FindByID(ctx, req.AccessTierID, nil)
	if err != nil {
		return CreateBookingResponse{}, err
	}

	if tier.EventID != ev.ID {
		return CreateBookingResponse{}, errors.New(http.StatusBadRequest, status.BAD_REQUEST, "invalid access tier id")
	}

	// A deny verdict short-circuits before any stock is held.
	verdict, err := u.fraudRepository.Screen(ctx, fraud.ScreenRequest{
		UserID:   acc.ID,
		EventID:  ev.ID,
		Amount:   tier.Price * float64(req.Quantity),
		Quantity: req.Quantity,
	})
	if err != nil {
		return CreateBookingResponse{}, err
	}
	if !verdict.Approved || verdict.Action == fraud.ActionDeny {
		u.logger.WithContext(ctx).WithFields(logrus.Fields{
			"userId":    acc.ID,
			"eventId":   ev.ID,
			"riskScore": verdict.RiskScore,
		}).Warn("booking denied by risk screening")
		return CreateBookingResponse{}, errors.New(http.StatusForbidden, status.FORBIDDEN, "the booking cannot be processed")
	}

	b, err := u.placeBooking(ctx, acc, ev, tier, req)
	if err != nil {
		return CreateBookingResponse{}, err
	}

	redirectURL, err := u.createGatewayTransaction(ctx, acc, b)
	if err != nil {
		// Compensate before surfacing anything: nothing may be left
		// silently holding stock.
		if cerr := u.cancel(ctx, b.BookingCode, reservation.ReasonGatewayFailure, PaymentStatusFailed); cerr != nil {
			u.logger.WithContext(ctx).WithField("bookingCode", b.BookingCode).WithError(cerr).Error("compensation after gateway failure did not complete")
		}
		return CreateBookingResponse{}, err
	}

	b.PaymentRedirectURL = &redirectURL

	u.scheduleExpiry(ctx, b)
	u.notify(ctx, TopicBookingCreated, b)

	resp := CreateBookingResponse{}
	resp.PopulateFromEntity(b)

	return resp, nil
}

// placeBooking runs the serializable transaction that holds stock, records
// the payment intent and persists the PENDING booking. The external booking
// code is probe-and-retried against its unique constraint.
func (u *bookingUseCase) placeBooking(ctx context.Context, acc session.Account, ev event.Event, tier event.AccessTier, req CreateBookingRequest) (Booking, error) {
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		b, err := u.tryPlaceBooking(ctx, acc, ev, tier, req)
		if err == ErrBookingCodeTaken {
			lastErr = err
			continue
		}
		if err != nil {
			return Booking{}, err
		}

		return b, nil
	}

	u.logger.WithContext(ctx).WithError(lastErr).Error("booking code generation kept colliding")
	return Booking{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while placing the booking")
}

func (u *bookingUseCase) tryPlaceBooking(ctx context.Context, acc session.Account, ev event.Event, tier event.AccessTier, req CreateBookingRequest) (Booking, error) {
	tx, err := u.bookingRepository.BeginTx(ctx)
	if err != nil {
		return Booking{}, err
	}

	now := time.Now()
	guestlist := tier.Price == 0

	// The quota is checked against persisted state inside the serializable
	// transaction, so concurrent submissions cannot jointly exceed it.
	issued, err := u.accessTicketRepository.CountByEventIDAndUserID(ctx, ev.ID, acc.ID, tx)
	if err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return Booking{}, err
	}

	pending, err := u.bookingRepository.SumActiveQuantityByEventIDAndUserID(ctx, ev.ID, acc.ID, tx)
	if err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return Booking{}, err
	}

	quota := ev.TicketQuota
	if quota <= 0 {
		quota = u.maxTicketPerEvent
	}

	remaining := quota - issued - pending
	if remaining < 0 {
		remaining = 0
	}
	if req.Quantity > remaining {
		u.bookingRepository.Rollback(ctx, tx)
		return Booking{}, errors.New(http.StatusForbidden, status.QUOTA_EXCEEDED, fmt.Sprintf("the ticket quota for this event would be exceeded, remaining quota is %d", remaining))
	}

	if guestlist {
		if _, err := u.guestlistApprovalRepository.FindApproved(ctx, ev.ID, acc.ID, tx); err != nil {
			u.bookingRepository.Rollback(ctx, tx)
			return Booking{}, err
		}
	}

	feePercentage, err := u.platformConfigRepository.GetPlatformFeePercentage(ctx)
	if err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return Booking{}, err
	}

	subtotal := tier.Price * float64(req.Quantity)
	platformFee := subtotal * feePercentage / 100
	if guestlist {
		platformFee = u.guestlistPlatformFee
	}
	tax := subtotal * ev.TaxPercentage / 100
	total := math.Round(subtotal + platformFee + tax)

	// Hard bounds on the charged amount hold regardless of unit price.
	if total < u.minTotalAmount || total > u.maxTotalAmount {
		u.bookingRepository.Rollback(ctx, tx)
		return Booking{}, errors.New(http.StatusBadRequest, status.BAD_REQUEST, "the booking's total amount is outside the allowed bounds")
	}

	bookingCode := util.GenerateCode("BK", 10)

	intent, replayed, err := u.intentLedger.CreateIntent(ctx, payment.CreateIntentRequest{
		IdempotencyKey: req.IdempotencyKey,
		UserID:         acc.ID,
		Amount:         total,
		ExternalRef:    bookingCode,
	}, tx)
	if err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return Booking{}, err
	}

	if replayed {
		// An earlier attempt created the intent but died before the
		// booking row existed. Resume under the intent's reference so the
		// retry converges on one booking.
		bookingCode = intent.ExternalRef
	}

	var reservationID string
	if !guestlist {
		sr, err := u.reservationEngine.Reserve(ctx, reservation.ReserveRequest{
			AccessTierID:    tier.ID,
			UserID:          acc.ID,
			Quantity:        req.Quantity,
			PaymentIntentID: intent.ID,
		}, tx)
		if err != nil {
			u.bookingRepository.Rollback(ctx, tx)
			return Booking{}, err
		}
		reservationID = sr.ID
	}

	b := Booking{
		ID:                 uuid.NewString(),
		BookingCode:        bookingCode,
		UserID:             acc.ID,
		UserName:           acc.Name,
		UserEmail:          acc.Email,
		EventID:            ev.ID,
		AccessTierID:       tier.ID,
		Quantity:           req.Quantity,
		UnitPrice:          tier.Price,
		SubtotalAmount:     subtotal,
		PlatformFee:        platformFee,
		TaxAmount:          tax,
		TotalAmount:        total,
		Status:             StatusPending,
		PaymentStatus:      PaymentStatusPending,
		PaymentIntentID:    intent.ID,
		StockReservationID: reservationID,
		IdempotencyKey:     req.IdempotencyKey,
		ExpiresAt:          now.Add(u.expireDuration),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := u.bookingRepository.Save(ctx, b, tx); err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return Booking{}, err
	}

	if err := u.bookingRepository.CommitTx(ctx, tx); err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return Booking{}, err
	}

	return b, nil
}

// createGatewayTransaction creates the remote transaction tied to the
// payment intent and moves the intent to PROCESSING.
func (u *bookingUseCase) createGatewayTransaction(ctx context.Context, acc session.Account, b Booking) (string, error) {
	resp, err := u.midtransRepository.CreateTransaction(ctx, midtrans.CreateTransactionRequest{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:     b.BookingCode,
			GrossAmount: int64(b.TotalAmount),
		},
		CustomerDetails: midtrans.CustomerDetails{
			FirstName: acc.Name,
			Email:     acc.Email,
		},
		Expiry: &midtrans.Expiry{
			Unit:     "minutes",
			Duration: int64(u.expireDuration.Minutes()),
		},
	})
	if err != nil {
		return "", err
	}

	tx, err := u.bookingRepository.BeginTx(ctx)
	if err != nil {
		return "", err
	}

	token := resp.Token
	if err := u.intentLedger.ApplyTransition(ctx, b.PaymentIntentID, payment.StatusProcessing, &token, tx); err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return "", err
	}

	b.PaymentRedirectURL = &resp.RedirectURL
	if err := u.bookingRepository.Update(ctx, b.ID, b, tx); err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return "", err
	}

	if err := u.bookingRepository.CommitTx(ctx, tx); err != nil {
		return "", err
	}

	return resp.RedirectURL, nil
}

// GetManyBooking implements BookingUseCase.
func (u *bookingUseCase) GetManyBooking(ctx context.Context, req GetManyBookingRequest) (GetManyBookingResponse, GetManyBookingMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	acc, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return nil, GetManyBookingMeta{}, err
	}

	offset := (req.Page - 1) * req.Size

	bookings, err := u.bookingRepository.FindMany(ctx, acc.ID, offset, req.Size, nil)
	if err != nil {
		return nil, GetManyBookingMeta{}, err
	}

	total, err := u.bookingRepository.Count(ctx, acc.ID, nil)
	if err != nil {
		return nil, GetManyBookingMeta{}, err
	}

	resp := make(GetManyBookingResponse, len(bookings))
	for k, b := range bookings {
		resp[k].PopulateFromEntity(b)
	}

	meta := GetManyBookingMeta{
		Page:  req.Page,
		Size:  req.Size,
		Total: total,
	}

	return resp, meta, nil
}

// GetBookingStatus implements BookingUseCase. A booking found pending past
// its hold window is expired lazily; one found pending past the grace period
// triggers an on-demand gateway re-check to cover missed webhooks.
func (u *bookingUseCase) GetBookingStatus(ctx context.Context, req GetBookingStatusRequest) (BookingResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	acc, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return BookingResponse{}, err
	}

	b, err := u.bookingRepository.FindByBookingCode(ctx, req.BookingCode, nil)
	if err != nil {
		return BookingResponse{}, err
	}

	if b.UserID != acc.ID {
		return BookingResponse{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("booking's properties with booking_code '%s' is not found", req.BookingCode))
	}

	now := time.Now()
	if !b.Terminal() {
		switch {
		case b.HoldElapsed(now):
			if err := u.OnExpireBooking(ctx, ExpireBookingEvent{BookingCode: b.BookingCode}); err != nil {
				u.logger.WithContext(ctx).WithField("bookingCode", b.BookingCode).WithError(err).Error("lazy expiry failed")
			}
		case now.After(b.CreatedAt.Add(u.pendingRecheckGrace)):
			if err := u.reconciler.Reconcile(ctx, b.BookingCode, false); err != nil {
				u.logger.WithContext(ctx).WithField("bookingCode", b.BookingCode).WithError(err).Warn("on-demand reconciliation failed")
			}
		}

		if refreshed, err := u.bookingRepository.FindByBookingCode(ctx, req.BookingCode, nil); err == nil {
			b = refreshed
		}
	}

	resp := BookingResponse{}
	resp.PopulateFromEntity(b)

	return resp, nil
}

// CancelBooking implements BookingUseCase. Only a still-unpaid booking can
// be cancelled; the current status is re-validated under lock immediately
// before mutation so a concurrent webhook confirmation wins deterministically.
func (u *bookingUseCase) CancelBooking(ctx context.Context, req CancelBookingRequest) (BookingResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	acc, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return BookingResponse{}, err
	}

	b, err := u.bookingRepository.FindByBookingCode(ctx, req.BookingCode, nil)
	if err != nil {
		return BookingResponse{}, err
	}

	if b.UserID != acc.ID {
		return BookingResponse{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("booking's properties with booking_code '%s' is not found", req.BookingCode))
	}

	if b.Status != StatusPending {
		return BookingResponse{}, errors.New(http.StatusConflict, status.CONFLICT, "only a pending booking can be cancelled")
	}

	if err := u.cancel(ctx, req.BookingCode, reservation.ReasonUserCancelled, PaymentStatusCancelled); err != nil {
		return BookingResponse{}, err
	}

	b, err = u.bookingRepository.FindByBookingCode(ctx, req.BookingCode, nil)
	if err != nil {
		return BookingResponse{}, err
	}

	u.notify(ctx, TopicBookingCancelled, b)

	resp := BookingResponse{}
	resp.PopulateFromEntity(b)

	return resp, nil
}

// OnExpireBooking implements BookingUseCase. Before expiring, the gateway is
// consulted once more so a payment settled during a webhook outage is not
// thrown away.
func (u *bookingUseCase) OnExpireBooking(ctx context.Context, e ExpireBookingEvent) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	b, err := u.bookingRepository.FindByBookingCode(ctx, e.BookingCode, nil)
	if err != nil {
		return err
	}

	if b.Terminal() {
		return nil
	}

	if err := u.reconciler.Reconcile(ctx, b.BookingCode, false); err != nil {
		u.logger.WithContext(ctx).WithField("bookingCode", b.BookingCode).WithError(err).Warn("pre-expiry reconciliation failed")
	}

	b, err = u.bookingRepository.FindByBookingCode(ctx, e.BookingCode, nil)
	if err != nil {
		return err
	}

	if b.Terminal() || !b.HoldElapsed(time.Now()) {
		return nil
	}

	if err := u.cancel(ctx, b.BookingCode, reservation.ReasonHoldExpired, PaymentStatusExpired); err != nil {
		return err
	}

	if refreshed, err := u.bookingRepository.FindByBookingCode(ctx, e.BookingCode, nil); err == nil {
		u.notify(ctx, TopicBookingCancelled, refreshed)
	}

	return nil
}

// cancel moves a booking to CANCELLED with its stock released and its intent
// failed, in one serializable transaction. It refuses to race a settlement:
// a booking that reached a terminal state under lock is left untouched.
func (u *bookingUseCase) cancel(ctx context.Context, bookingCode string, reason string, paymentStatus string) error {
	tx, err := u.bookingRepository.BeginTx(ctx)
	if err != nil {
		return err
	}

	b, err := u.bookingRepository.FindByBookingCodeForUpdate(ctx, bookingCode, tx)
	if err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	if b.Status == StatusCancelled {
		u.bookingRepository.Rollback(ctx, tx)
		return nil
	}

	if !CanTransit(b.Status, StatusCancelled) {
		u.bookingRepository.Rollback(ctx, tx)
		return errors.New(http.StatusConflict, status.CONFLICT, "the booking has already reached a terminal state")
	}

	if b.StockReservationID != "" {
		if err := u.reservationEngine.Release(ctx, b.StockReservationID, reason, tx); err != nil {
			u.bookingRepository.Rollback(ctx, tx)
			return err
		}
	}

	if err := u.intentLedger.ApplyTransition(ctx, b.PaymentIntentID, payment.StatusFailed, nil, tx); err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	b.Status = StatusCancelled
	b.PaymentStatus = paymentStatus

	if err := u.bookingRepository.Update(ctx, b.ID, b, tx); err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	return u.bookingRepository.CommitTx(ctx, tx)
}

func (u *bookingUseCase) scheduleExpiry(ctx context.Context, b Booking) {
	buff, _ := json.Marshal(ExpireBookingEvent{BookingCode: b.BookingCode})

	taskRequest := gctasks.Request{
		URL:    fmt.Sprintf("%s/tm-booking/v1/customerapp/bookings/on-expire", u.baseURL),
		Method: cloudtaskspb.HttpMethod_POST,
		Body:   buff,
	}

	if err := u.cloudTask.DeferCreateTaskInTime(ctx, "expire-booking", taskRequest, b.ExpiresAt); err != nil {
		u.logger.WithContext(ctx).WithField("bookingCode", b.BookingCode).WithError(err).Error("scheduling expiry callback failed")
	}
}

func (u *bookingUseCase) notify(ctx context.Context, topic string, b Booking) {
	buff, _ := json.Marshal(BookingNotification{
		BookingCode: b.BookingCode,
		UserID:      b.UserID,
		UserEmail:   b.UserEmail,
		EventID:     b.EventID,
		Quantity:    b.Quantity,
		TotalAmount: b.TotalAmount,
		Status:      b.Status,
	})

	u.publisher.Publish(ctx, topic, b.BookingCode, nil, buff)
}
