package reservation

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/event"
	"github.com/tsel-ticketmaster/tm-booking/pkg/errors"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

// ReservationEngine owns the only mutations of access tier stock. Reserve and
// Release run inside the caller's transaction so a booking, its reservation
// and the stock counter always move together.
type ReservationEngine interface {
	Reserve(ctx context.Context, req ReserveRequest, tx *sql.Tx) (StockReservation, error)
	Release(ctx context.Context, reservationID string, reason string, tx *sql.Tx) error
	Consume(ctx context.Context, reservationID string, tx *sql.Tx) error
	ReleaseExpired(ctx context.Context, limit int64) (int64, error)
}

type ReserveRequest struct {
	AccessTierID    string
	UserID          int64
	Quantity        int64
	PaymentIntentID string
}

type reservationEngine struct {
	logger                     *logrus.Logger
	ttl                        time.Duration
	duplicateWindow            time.Duration
	accessTierRepository       event.AccessTierRepository
	stockReservationRepository StockReservationRepository
}

type ReservationEngineProperty struct {
	Logger                     *logrus.Logger
	TTL                        time.Duration
	DuplicateWindow            time.Duration
	AccessTierRepository       event.AccessTierRepository
	StockReservationRepository StockReservationRepository
}

func NewReservationEngine(props ReservationEngineProperty) ReservationEngine {
	return &reservationEngine{
		logger:                     props.Logger,
		ttl:                        props.TTL,
		duplicateWindow:            props.DuplicateWindow,
		accessTierRepository:       props.AccessTierRepository,
		stockReservationRepository: props.StockReservationRepository,
	}
}

// Reserve implements ReservationEngine.
func (e *reservationEngine) Reserve(ctx context.Context, req ReserveRequest, tx *sql.Tx) (StockReservation, error) {
	now := time.Now()

	tier, err := e.accessTierRepository.FindByID(ctx, req.AccessTierID, tx)
	if err != nil {
		return StockReservation{}, err
	}

	if !tier.IsActive || !tier.WithinSaleWindow(now) {
		return StockReservation{}, errors.New(http.StatusForbidden, status.SALE_WINDOW_CLOSED, "the access tier is not on sale")
	}

	existing, err := e.stockReservationRepository.FindActiveByTierAndUser(ctx, req.AccessTierID, req.UserID, now.Add(-e.duplicateWindow), tx)
	if err != nil && !errors.Is(err, status.NOT_FOUND) {
		return StockReservation{}, err
	}
	if err == nil && !existing.Expired(now) {
		return StockReservation{}, errors.New(http.StatusConflict, status.DUPLICATE_SUBMISSION, "an identical reservation was submitted moments ago")
	}

	if err := e.accessTierRepository.TryAcquireStock(ctx, req.AccessTierID, req.Quantity, tx); err != nil {
		return StockReservation{}, err
	}

	sr := StockReservation{
		ID:              uuid.NewString(),
		AccessTierID:    req.AccessTierID,
		UserID:          req.UserID,
		Quantity:        req.Quantity,
		PaymentIntentID: req.PaymentIntentID,
		Status:          StatusActive,
		ExpiresAt:       now.Add(e.ttl),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := e.stockReservationRepository.Save(ctx, sr, tx); err != nil {
		return StockReservation{}, err
	}

	return sr, nil
}

// Release implements ReservationEngine. Releasing a reservation that is no
// longer active is a no-op, which makes compensation and expiry sweeps safe
// to repeat.
func (e *reservationEngine) Release(ctx context.Context, reservationID string, reason string, tx *sql.Tx) error {
	sr, err := e.stockReservationRepository.FindByIDForUpdate(ctx, reservationID, tx)
	if err != nil {
		return err
	}

	switch sr.Status {
	case StatusReleased, StatusExpired, StatusConsumed:
		return nil
	}

	if err := e.accessTierRepository.ReleaseStock(ctx, sr.AccessTierID, sr.Quantity, tx); err != nil {
		return err
	}

	next := StatusReleased
	if reason == ReasonHoldExpired {
		next = StatusExpired
	}

	return e.stockReservationRepository.UpdateStatus(ctx, sr.ID, next, &reason, tx)
}

// Consume implements ReservationEngine. A consumed reservation keeps its
// stock sold for good; repeated consumption is a no-op.
func (e *reservationEngine) Consume(ctx context.Context, reservationID string, tx *sql.Tx) error {
	sr, err := e.stockReservationRepository.FindByIDForUpdate(ctx, reservationID, tx)
	if err != nil {
		return err
	}

	switch sr.Status {
	case StatusConsumed:
		return nil
	case StatusReleased, StatusExpired:
		// The hold was already returned to the pool before settlement
		// arrived. Re-acquire so a paid booking never consumes stock it no
		// longer holds; if the stock is gone the conflict surfaces to the
		// caller instead of overselling.
		if err := e.accessTierRepository.TryAcquireStock(ctx, sr.AccessTierID, sr.Quantity, tx); err != nil {
			return err
		}
	}

	return e.stockReservationRepository.UpdateStatus(ctx, sr.ID, StatusConsumed, nil, tx)
}

// ReleaseExpired implements ReservationEngine. It is driven by a periodic
// sweep and complements the lazy expiry done on booking status reads.
func (e *reservationEngine) ReleaseExpired(ctx context.Context, limit int64) (int64, error) {
	tx, err := e.stockReservationRepository.BeginTx(ctx)
	if err != nil {
		return 0, err
	}

	expired, err := e.stockReservationRepository.FindExpiredForUpdate(ctx, time.Now(), limit, tx)
	if err != nil {
		e.stockReservationRepository.Rollback(ctx, tx)
		return 0, err
	}

	var released int64
	for _, sr := range expired {
		if err := e.accessTierRepository.ReleaseStock(ctx, sr.AccessTierID, sr.Quantity, tx); err != nil {
			e.stockReservationRepository.Rollback(ctx, tx)
			return 0, err
		}

		reason := ReasonHoldExpired
		if err := e.stockReservationRepository.UpdateStatus(ctx, sr.ID, StatusExpired, &reason, tx); err != nil {
			e.stockReservationRepository.Rollback(ctx, tx)
			return 0, err
		}

		released++
	}

	if err := e.stockReservationRepository.CommitTx(ctx, tx); err != nil {
		return 0, err
	}

	if released > 0 {
		e.logger.WithContext(ctx).WithField("released", released).Info("expired stock reservations returned to the pool")
	}

	return released, nil
}
