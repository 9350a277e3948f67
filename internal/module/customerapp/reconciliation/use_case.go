package reconciliation

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/booking"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/event"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/midtrans"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/payment"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/reservation"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/ticket"
	"github.com/tsel-ticketmaster/tm-booking/internal/pkg/util"
	"github.com/tsel-ticketmaster/tm-booking/pkg/errors"
	"github.com/tsel-ticketmaster/tm-booking/pkg/pubsub"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

type ReconciliationUseCase interface {
	// HandleNotification applies a signed gateway webhook. An invalid
	// signature is rejected with zero state change.
	HandleNotification(ctx context.Context, n midtrans.TransactionStatus) error
	// Reconcile pulls the authoritative transaction status from the gateway
	// and applies it. It backs the explicit confirm endpoint, the pending
	// re-check on status reads and the expiry callback.
	Reconcile(ctx context.Context, paymentRef string, force bool) error
}

type reconciliationUseCase struct {
	logger                      *logrus.Logger
	timeout                     time.Duration
	serverKey                   string
	bookingRepository           booking.BookingRepository
	guestlistApprovalRepository booking.GuestlistApprovalRepository
	eventRepository             event.EventRepository
	reservationEngine           reservation.ReservationEngine
	intentLedger                payment.IntentLedger
	paymentIntentRepository     payment.PaymentIntentRepository
	accessTicketRepository      ticket.AccessTicketRepository
	midtransRepository          midtrans.MidtransRepository
	publisher                   pubsub.Publisher
}

type ReconciliationUseCaseProperty struct {
	Logger                      *logrus.Logger
	Timeout                     time.Duration
	ServerKey                   string
	BookingRepository           booking.BookingRepository
	GuestlistApprovalRepository booking.GuestlistApprovalRepository
	EventRepository             event.EventRepository
	ReservationEngine           reservation.ReservationEngine
	IntentLedger                payment.IntentLedger
	PaymentIntentRepository     payment.PaymentIntentRepository
	AccessTicketRepository      ticket.AccessTicketRepository
	MidtransRepository          midtrans.MidtransRepository
	Publisher                   pubsub.Publisher
}

func NewReconciliationUseCase(props ReconciliationUseCaseProperty) ReconciliationUseCase {
	return &reconciliationUseCase{
		logger:                      props.Logger,
		timeout:                     props.Timeout,
		serverKey:                   props.ServerKey,
		bookingRepository:           props.BookingRepository,
		guestlistApprovalRepository: props.GuestlistApprovalRepository,
		eventRepository:             props.EventRepository,
		reservationEngine:           props.ReservationEngine,
		intentLedger:                props.IntentLedger,
		paymentIntentRepository:     props.PaymentIntentRepository,
		accessTicketRepository:      props.AccessTicketRepository,
		midtransRepository:          props.MidtransRepository,
		publisher:                   props.Publisher,
	}
}

// HandleNotification implements ReconciliationUseCase.
func (u *reconciliationUseCase) HandleNotification(ctx context.Context, n midtrans.TransactionStatus) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	if !midtrans.VerifySignature(n, u.serverKey) {
		u.logger.WithContext(ctx).WithField("orderId", n.OrderID).Warn("payment notification carries an invalid signature")
		return errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "invalid notification signature")
	}

	ref, err := ParsePaymentRef(n.OrderID)
	if err != nil {
		return err
	}

	return u.applyGatewayStatus(ctx, ref, n)
}

// Reconcile implements ReconciliationUseCase.
func (u *reconciliationUseCase) Reconcile(ctx context.Context, paymentRef string, force bool) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	ref, err := ParsePaymentRef(paymentRef)
	if err != nil {
		return err
	}

	if !force && ref.Kind == RefKindBooking {
		b, err := u.bookingRepository.FindByBookingCode(ctx, ref.Value, nil)
		if err != nil {
			return err
		}
		if b.Terminal() {
			return nil
		}
	}

	st, err := u.midtransRepository.GetTransactionStatus(ctx, ref.Value)
	if err != nil {
		return err
	}

	return u.applyGatewayStatus(ctx, ref, st)
}

// applyGatewayStatus is the single idempotent routine both the push and pull
// paths converge on.
func (u *reconciliationUseCase) applyGatewayStatus(ctx context.Context, ref PaymentRef, st midtrans.TransactionStatus) error {
	switch ref.Kind {
	case RefKindGuestlist:
		return u.applyGuestlist(ctx, ref.Value, st)
	default:
		return u.applyBooking(ctx, ref.Value, st)
	}
}

func (u *reconciliationUseCase) applyBooking(ctx context.Context, bookingCode string, st midtrans.TransactionStatus) error {
	settled := st.Settled()
	failed := st.Failed()
	if !settled && !failed {
		return nil
	}

	tx, err := u.bookingRepository.BeginTx(ctx)
	if err != nil {
		return err
	}

	b, err := u.bookingRepository.FindByBookingCodeForUpdate(ctx, bookingCode, tx)
	if err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	if settled {
		return u.confirmBooking(ctx, tx, b, st)
	}

	return u.failBooking(ctx, tx, b)
}

func (u *reconciliationUseCase) confirmBooking(ctx context.Context, tx *sql.Tx, b booking.Booking, st midtrans.TransactionStatus) error {
	if b.Status == booking.StatusConfirmed {
		u.bookingRepository.Rollback(ctx, tx)
		return nil
	}

	if !booking.CanTransit(b.Status, booking.StatusConfirmed) {
		u.bookingRepository.Rollback(ctx, tx)
		return u.conflict(ctx, b.BookingCode, b.Status, booking.StatusConfirmed)
	}

	gatewayPaymentID := st.TransactionID
	if err := u.intentLedger.ApplyTransition(ctx, b.PaymentIntentID, payment.StatusCompleted, &gatewayPaymentID, tx); err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	if b.StockReservationID != "" {
		if err := u.reservationEngine.Consume(ctx, b.StockReservationID, tx); err != nil {
			u.bookingRepository.Rollback(ctx, tx)
			return err
		}
	}

	if err := u.issueBookingTickets(ctx, tx, b); err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	b.Status = booking.StatusConfirmed
	b.PaymentStatus = booking.PaymentStatusSuccess

	if err := u.bookingRepository.Update(ctx, b.ID, b, tx); err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	if err := u.bookingRepository.CommitTx(ctx, tx); err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	u.notify(ctx, booking.TopicBookingConfirmed, b)

	return nil
}

func (u *reconciliationUseCase) failBooking(ctx context.Context, tx *sql.Tx, b booking.Booking) error {
	if b.Status == booking.StatusCancelled {
		u.bookingRepository.Rollback(ctx, tx)
		return nil
	}

	if !booking.CanTransit(b.Status, booking.StatusCancelled) {
		u.bookingRepository.Rollback(ctx, tx)
		return u.conflict(ctx, b.BookingCode, b.Status, booking.StatusCancelled)
	}

	if b.StockReservationID != "" {
		if err := u.reservationEngine.Release(ctx, b.StockReservationID, reservation.ReasonPaymentDenied, tx); err != nil {
			u.bookingRepository.Rollback(ctx, tx)
			return err
		}
	}

	if err := u.intentLedger.ApplyTransition(ctx, b.PaymentIntentID, payment.StatusFailed, nil, tx); err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	b.Status = booking.StatusCancelled
	b.PaymentStatus = booking.PaymentStatusFailed

	if err := u.bookingRepository.Update(ctx, b.ID, b, tx); err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	if err := u.bookingRepository.CommitTx(ctx, tx); err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	u.notify(ctx, booking.TopicBookingCancelled, b)

	return nil
}

// issueBookingTickets tops the booking's tickets up to its quantity, so a
// replayed confirmation that died mid-issuance converges instead of doubling
// the tickets.
func (u *reconciliationUseCase) issueBookingTickets(ctx context.Context, tx *sql.Tx, b booking.Booking) error {
	existing, err := u.accessTicketRepository.CountByBookingID(ctx, b.ID, tx)
	if err != nil {
		return err
	}

	if existing >= b.Quantity {
		return nil
	}

	ev, err := u.eventRepository.FindByID(ctx, b.EventID, tx)
	if err != nil {
		return err
	}

	for i := existing; i < b.Quantity; i++ {
		accessTierID := b.AccessTierID
		bookingID := b.ID

		t := ticket.AccessTicket{
			UserID:       b.UserID,
			EventID:      b.EventID,
			AccessTierID: &accessTierID,
			BookingID:    &bookingID,
			Status:       ticket.StatusValid,
			ValidUntil:   ev.Time,
			CreatedAt:    time.Now(),
		}

		if err := u.saveTicket(ctx, tx, t); err != nil {
			return err
		}
	}

	return nil
}

// saveTicket probes the external ticket code against its unique constraint
// and regenerates on collision.
func (u *reconciliationUseCase) saveTicket(ctx context.Context, tx *sql.Tx, t ticket.AccessTicket) error {
	for attempt := 0; attempt < 3; attempt++ {
		t.ID = uuid.NewString()
		t.TicketCode = util.GenerateCode("TKT", 12)
		t.QRCode = uuid.NewString()

		err := u.accessTicketRepository.Save(ctx, t, tx)
		if err == ticket.ErrTicketCodeTaken {
			continue
		}

		return err
	}

	u.logger.WithContext(ctx).Error("ticket code generation kept colliding")
	return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while issuing the access tickets")
}

// applyGuestlist settles a guestlist reference that has no booking row. The
// payment intent's status is the idempotency marker: the ticket is issued
// exactly once, on the transition to COMPLETED.
func (u *reconciliationUseCase) applyGuestlist(ctx context.Context, ref string, st midtrans.TransactionStatus) error {
	settled := st.Settled()
	failed := st.Failed()
	if !settled && !failed {
		return nil
	}

	tx, err := u.bookingRepository.BeginTx(ctx)
	if err != nil {
		return err
	}

	intent, err := u.paymentIntentRepository.FindByExternalRef(ctx, ref, tx)
	if err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	if settled {
		return u.completeGuestlist(ctx, tx, intent, st)
	}

	return u.failGuestlist(ctx, tx, intent)
}

func (u *reconciliationUseCase) completeGuestlist(ctx context.Context, tx *sql.Tx, intent payment.PaymentIntent, st midtrans.TransactionStatus) error {
	if intent.Status == payment.StatusCompleted {
		u.bookingRepository.Rollback(ctx, tx)
		return nil
	}

	if intent.Status == payment.StatusFailed {
		u.bookingRepository.Rollback(ctx, tx)
		return u.conflict(ctx, intent.ExternalRef, intent.Status, payment.StatusCompleted)
	}

	gatewayPaymentID := st.TransactionID

	// An externally created intent may still sit in CREATED when the
	// settlement arrives; walk it through PROCESSING to keep the lifecycle
	// monotonic.
	if intent.Status == payment.StatusCreated {
		if err := u.intentLedger.ApplyTransition(ctx, intent.ID, payment.StatusProcessing, &gatewayPaymentID, tx); err != nil {
			u.bookingRepository.Rollback(ctx, tx)
			return err
		}
	}

	if err := u.intentLedger.ApplyTransition(ctx, intent.ID, payment.StatusCompleted, &gatewayPaymentID, tx); err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	approval, err := u.guestlistApprovalRepository.FindLatestApprovedByUserID(ctx, intent.UserID, tx)
	if err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	ev, err := u.eventRepository.FindByID(ctx, approval.EventID, tx)
	if err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	t := ticket.AccessTicket{
		UserID:     intent.UserID,
		EventID:    approval.EventID,
		Status:     ticket.StatusValid,
		ValidUntil: ev.Time,
		CreatedAt:  time.Now(),
	}

	if err := u.saveTicket(ctx, tx, t); err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	if err := u.bookingRepository.CommitTx(ctx, tx); err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	buff, _ := json.Marshal(booking.BookingNotification{
		BookingCode: intent.ExternalRef,
		UserID:      intent.UserID,
		EventID:     approval.EventID,
		Quantity:    1,
		TotalAmount: intent.Amount,
		Status:      booking.StatusConfirmed,
	})
	u.publisher.Publish(ctx, booking.TopicBookingConfirmed, intent.ExternalRef, nil, buff)

	return nil
}

func (u *reconciliationUseCase) failGuestlist(ctx context.Context, tx *sql.Tx, intent payment.PaymentIntent) error {
	if intent.Status == payment.StatusFailed {
		u.bookingRepository.Rollback(ctx, tx)
		return nil
	}

	if intent.Status == payment.StatusCompleted {
		u.bookingRepository.Rollback(ctx, tx)
		return u.conflict(ctx, intent.ExternalRef, intent.Status, payment.StatusFailed)
	}

	if err := u.intentLedger.ApplyTransition(ctx, intent.ID, payment.StatusFailed, nil, tx); err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	if err := u.bookingRepository.CommitTx(ctx, tx); err != nil {
		u.bookingRepository.Rollback(ctx, tx)
		return err
	}

	return nil
}

// conflict records an irreconcilable pair of terminal states for operator
// follow-up. The local state is never mutated.
func (u *reconciliationUseCase) conflict(ctx context.Context, ref string, current string, incoming string) error {
	u.logger.WithContext(ctx).WithFields(logrus.Fields{
		"paymentRef": ref,
		"current":    current,
		"incoming":   incoming,
		"flagged":    true,
	}).Error("gateway status conflicts with a terminal local state")

	return errors.New(http.StatusConflict, status.RECONCILIATION_CONFLICT, "the payment's status conflicts with the current state")
}

func (u *reconciliationUseCase) notify(ctx context.Context, topic string, b booking.Booking) {
	buff, _ := json.Marshal(booking.BookingNotification{
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
