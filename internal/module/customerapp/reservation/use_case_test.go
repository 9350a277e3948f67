package reservation

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
	"github.com/tsel-ticketmaster/tm-booking/pkg/errors"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

type stubAccessTierRepository struct {
	tier        event.AccessTier
	findErr     error
	acquireErr  error
	releaseErr  error
	acquired    []int64
	released    []int64
	acquireTier []string
}

func (s *stubAccessTierRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (event.AccessTier, error) {
	if s.findErr != nil {
		return event.AccessTier{}, s.findErr
	}
	return s.tier, nil
}

func (s *stubAccessTierRepository) TryAcquireStock(ctx context.Context, ID string, qty int64, tx *sql.Tx) error {
	if s.acquireErr != nil {
		return s.acquireErr
	}
	s.acquired = append(s.acquired, qty)
	s.acquireTier = append(s.acquireTier, ID)
	return nil
}

func (s *stubAccessTierRepository) ReleaseStock(ctx context.Context, ID string, qty int64, tx *sql.Tx) error {
	if s.releaseErr != nil {
		return s.releaseErr
	}
	s.released = append(s.released, qty)
	return nil
}

type stubStockReservationRepository struct {
	active        StockReservation
	activeErr     error
	byID          StockReservation
	byIDErr       error
	expired       []StockReservation
	saved         []StockReservation
	statusUpdates []string
	reasons       []*string
}

func (s *stubStockReservationRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return nil, nil
}

func (s *stubStockReservationRepository) CommitTx(ctx context.Context, tx *sql.Tx) error {
	return nil
}

func (s *stubStockReservationRepository) Rollback(ctx context.Context, tx *sql.Tx) error {
	return nil
}

func (s *stubStockReservationRepository) Save(ctx context.Context, sr StockReservation, tx *sql.Tx) error {
	s.saved = append(s.saved, sr)
	return nil
}

func (s *stubStockReservationRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (StockReservation, error) {
	return s.byID, s.byIDErr
}

func (s *stubStockReservationRepository) FindByIDForUpdate(ctx context.Context, ID string, tx *sql.Tx) (StockReservation, error) {
	return s.byID, s.byIDErr
}

func (s *stubStockReservationRepository) FindActiveByTierAndUser(ctx context.Context, accessTierID string, userID int64, createdAfter time.Time, tx *sql.Tx) (StockReservation, error) {
	return s.active, s.activeErr
}

func (s *stubStockReservationRepository) FindExpiredForUpdate(ctx context.Context, now time.Time, limit int64, tx *sql.Tx) ([]StockReservation, error) {
	return s.expired, nil
}

func (s *stubStockReservationRepository) UpdateStatus(ctx context.Context, ID string, st string, reason *string, tx *sql.Tx) error {
	s.statusUpdates = append(s.statusUpdates, st)
	s.reasons = append(s.reasons, reason)
	return nil
}

func notFound() error {
	return errors.New(http.StatusNotFound, status.NOT_FOUND, "stock reservation's properties is not found")
}

func onSaleTier() event.AccessTier {
	return event.AccessTier{
		ID:            "tier-1",
		EventID:       "event-1",
		Price:         250000,
		MaxQuantity:   100,
		SaleStartDate: time.Now().Add(-time.Hour),
		SaleEndDate:   time.Now().Add(time.Hour),
		IsActive:      true,
	}
}

func newEngine(tiers *stubAccessTierRepository, reservations *stubStockReservationRepository) ReservationEngine {
	return NewReservationEngine(ReservationEngineProperty{
		Logger:                     logrus.New(),
		TTL:                        30 * time.Minute,
		DuplicateWindow:            time.Minute,
		AccessTierRepository:       tiers,
		StockReservationRepository: reservations,
	})
}

func TestReserve(t *testing.T) {
	t.Run("holds stock and saves an active reservation with a TTL", func(t *testing.T) {
		tiers := &stubAccessTierRepository{tier: onSaleTier()}
		reservations := &stubStockReservationRepository{activeErr: notFound()}
		engine := newEngine(tiers, reservations)

		sr, err := engine.Reserve(context.Background(), ReserveRequest{
			AccessTierID:    "tier-1",
			UserID:          7,
			Quantity:        2,
			PaymentIntentID: "intent-1",
		}, nil)

		require.NoError(t, err)
		assert.Equal(t, []int64{2}, tiers.acquired)
		require.Len(t, reservations.saved, 1)
		assert.Equal(t, StatusActive, sr.Status)
		assert.Equal(t, "intent-1", sr.PaymentIntentID)
		assert.WithinDuration(t, time.Now().Add(30*time.Minute), sr.ExpiresAt, 5*time.Second)
	})

	t.Run("rejects a tier outside its sale window without touching stock", func(t *testing.T) {
		tier := onSaleTier()
		tier.SaleEndDate = time.Now().Add(-time.Minute)
		tiers := &stubAccessTierRepository{tier: tier}
		reservations := &stubStockReservationRepository{activeErr: notFound()}
		engine := newEngine(tiers, reservations)

		_, err := engine.Reserve(context.Background(), ReserveRequest{AccessTierID: "tier-1", UserID: 7, Quantity: 1}, nil)

		assert.True(t, errors.Is(err, status.SALE_WINDOW_CLOSED))
		assert.Empty(t, tiers.acquired)
		assert.Empty(t, reservations.saved)
	})

	t.Run("rejects a duplicate submission within the window", func(t *testing.T) {
		tiers := &stubAccessTierRepository{tier: onSaleTier()}
		reservations := &stubStockReservationRepository{
			active: StockReservation{
				ID:        "res-1",
				Status:    StatusActive,
				ExpiresAt: time.Now().Add(10 * time.Minute),
			},
		}
		engine := newEngine(tiers, reservations)

		_, err := engine.Reserve(context.Background(), ReserveRequest{AccessTierID: "tier-1", UserID: 7, Quantity: 1}, nil)

		assert.True(t, errors.Is(err, status.DUPLICATE_SUBMISSION))
		assert.Empty(t, tiers.acquired)
	})

	t.Run("surfaces an exhausted tier as out of stock", func(t *testing.T) {
		tiers := &stubAccessTierRepository{
			tier:       onSaleTier(),
			acquireErr: errors.New(http.StatusConflict, status.OUT_OF_STOCK, "the access tier is out of stock"),
		}
		reservations := &stubStockReservationRepository{activeErr: notFound()}
		engine := newEngine(tiers, reservations)

		_, err := engine.Reserve(context.Background(), ReserveRequest{AccessTierID: "tier-1", UserID: 7, Quantity: 4}, nil)

		assert.True(t, errors.Is(err, status.OUT_OF_STOCK))
		assert.Empty(t, reservations.saved)
	})
}

func TestRelease(t *testing.T) {
	t.Run("returns stock and marks the reservation released", func(t *testing.T) {
		tiers := &stubAccessTierRepository{}
		reservations := &stubStockReservationRepository{
			byID: StockReservation{ID: "res-1", AccessTierID: "tier-1", Quantity: 3, Status: StatusActive},
		}
		engine := newEngine(tiers, reservations)

		err := engine.Release(context.Background(), "res-1", ReasonUserCancelled, nil)

		require.NoError(t, err)
		assert.Equal(t, []int64{3}, tiers.released)
		assert.Equal(t, []string{StatusReleased}, reservations.statusUpdates)
	})

	t.Run("marks an expired hold EXPIRED rather than RELEASED", func(t *testing.T) {
		tiers := &stubAccessTierRepository{}
		reservations := &stubStockReservationRepository{
			byID: StockReservation{ID: "res-1", AccessTierID: "tier-1", Quantity: 1, Status: StatusActive},
		}
		engine := newEngine(tiers, reservations)

		err := engine.Release(context.Background(), "res-1", ReasonHoldExpired, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{StatusExpired}, reservations.statusUpdates)
	})

	t.Run("is a no-op when the reservation is no longer active", func(t *testing.T) {
		tiers := &stubAccessTierRepository{}
		reservations := &stubStockReservationRepository{
			byID: StockReservation{ID: "res-1", AccessTierID: "tier-1", Quantity: 2, Status: StatusReleased},
		}
		engine := newEngine(tiers, reservations)

		err := engine.Release(context.Background(), "res-1", ReasonUserCancelled, nil)

		require.NoError(t, err)
		assert.Empty(t, tiers.released)
		assert.Empty(t, reservations.statusUpdates)
	})
}

func TestConsume(t *testing.T) {
	t.Run("consumes an active reservation without touching stock", func(t *testing.T) {
		tiers := &stubAccessTierRepository{}
		reservations := &stubStockReservationRepository{
			byID: StockReservation{ID: "res-1", AccessTierID: "tier-1", Quantity: 2, Status: StatusActive},
		}
		engine := newEngine(tiers, reservations)

		err := engine.Consume(context.Background(), "res-1", nil)

		require.NoError(t, err)
		assert.Empty(t, tiers.acquired)
		assert.Equal(t, []string{StatusConsumed}, reservations.statusUpdates)
	})

	t.Run("re-acquires stock when settling after the hold was returned", func(t *testing.T) {
		tiers := &stubAccessTierRepository{}
		reservations := &stubStockReservationRepository{
			byID: StockReservation{ID: "res-1", AccessTierID: "tier-1", Quantity: 2, Status: StatusExpired},
		}
		engine := newEngine(tiers, reservations)

		err := engine.Consume(context.Background(), "res-1", nil)

		require.NoError(t, err)
		assert.Equal(t, []int64{2}, tiers.acquired)
		assert.Equal(t, []string{StatusConsumed}, reservations.statusUpdates)
	})

	t.Run("refuses to oversell when the returned stock is gone", func(t *testing.T) {
		tiers := &stubAccessTierRepository{
			acquireErr: errors.New(http.StatusConflict, status.OUT_OF_STOCK, "the access tier is out of stock"),
		}
		reservations := &stubStockReservationRepository{
			byID: StockReservation{ID: "res-1", AccessTierID: "tier-1", Quantity: 2, Status: StatusReleased},
		}
		engine := newEngine(tiers, reservations)

		err := engine.Consume(context.Background(), "res-1", nil)

		assert.True(t, errors.Is(err, status.OUT_OF_STOCK))
		assert.Empty(t, reservations.statusUpdates)
	})

	t.Run("is a no-op for an already consumed reservation", func(t *testing.T) {
		tiers := &stubAccessTierRepository{}
		reservations := &stubStockReservationRepository{
			byID: StockReservation{ID: "res-1", Status: StatusConsumed},
		}
		engine := newEngine(tiers, reservations)

		err := engine.Consume(context.Background(), "res-1", nil)

		require.NoError(t, err)
		assert.Empty(t, reservations.statusUpdates)
	})
}

func TestReleaseExpired(t *testing.T) {
	tiers := &stubAccessTierRepository{}
	reservations := &stubStockReservationRepository{
		expired: []StockReservation{
			{ID: "res-1", AccessTierID: "tier-1", Quantity: 2, Status: StatusActive},
			{ID: "res-2", AccessTierID: "tier-2", Quantity: 1, Status: StatusActive},
		},
	}
	engine := newEngine(tiers, reservations)

	released, err := engine.ReleaseExpired(context.Background(), 100)

	require.NoError(t, err)
	assert.Equal(t, int64(2), released)
	assert.Equal(t, []int64{2, 1}, tiers.released)
	assert.Equal(t, []string{StatusExpired, StatusExpired}, reservations.statusUpdates)
}
