package payment

import (
	"context"
	"database/sql"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsel-ticketmaster/tm-booking/pkg/errors"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

type stubPaymentIntentRepository struct {
	saveErr       error
	byKey         PaymentIntent
	byID          PaymentIntent
	byIDErr       error
	updated       bool
	updateErr     error
	saved         []PaymentIntent
	updateCalls   int
	afterUpdateID PaymentIntent
}

func (s *stubPaymentIntentRepository) Save(ctx context.Context, intent PaymentIntent, tx *sql.Tx) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, intent)
	return nil
}

func (s *stubPaymentIntentRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (PaymentIntent, error) {
	if s.updateCalls > 0 {
		return s.afterUpdateID, s.byIDErr
	}
	return s.byID, s.byIDErr
}

func (s *stubPaymentIntentRepository) FindByIdempotencyKey(ctx context.Context, key string, tx *sql.Tx) (PaymentIntent, error) {
	return s.byKey, nil
}

func (s *stubPaymentIntentRepository) FindByExternalRef(ctx context.Context, externalRef string, tx *sql.Tx) (PaymentIntent, error) {
	return s.byKey, nil
}

func (s *stubPaymentIntentRepository) UpdateStatus(ctx context.Context, ID string, from string, to string, gatewayPaymentID *string, tx *sql.Tx) (bool, error) {
	s.updateCalls++
	return s.updated, s.updateErr
}

func TestCanTransit(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{StatusCreated, StatusProcessing, true},
		{StatusCreated, StatusFailed, true},
		{StatusCreated, StatusCompleted, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusCreated, false},
		{StatusCompleted, StatusFailed, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusFailed, StatusCompleted, false},
	}

	for _, c := range cases {
		assert.Equalf(t, c.allowed, CanTransit(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestCreateIntent(t *testing.T) {
	t.Run("creates a fresh intent in CREATED", func(t *testing.T) {
		repo := &stubPaymentIntentRepository{}
		ledger := NewIntentLedger(logrus.New(), repo)

		intent, replayed, err := ledger.CreateIntent(context.Background(), CreateIntentRequest{
			IdempotencyKey: "idem-1",
			UserID:         7,
			Amount:         550000,
			ExternalRef:    "BK-XYZ",
		}, nil)

		require.NoError(t, err)
		assert.False(t, replayed)
		assert.Equal(t, StatusCreated, intent.Status)
		assert.Equal(t, "BK-XYZ", intent.ExternalRef)
		require.Len(t, repo.saved, 1)
	})

	t.Run("replays the existing intent on a duplicate idempotency key", func(t *testing.T) {
		repo := &stubPaymentIntentRepository{
			saveErr: ErrIdempotencyKeyTaken,
			byKey:   PaymentIntent{ID: "intent-1", IdempotencyKey: "idem-1", Status: StatusProcessing, ExternalRef: "BK-OLD"},
		}
		ledger := NewIntentLedger(logrus.New(), repo)

		intent, replayed, err := ledger.CreateIntent(context.Background(), CreateIntentRequest{
			IdempotencyKey: "idem-1",
			UserID:         7,
			Amount:         550000,
			ExternalRef:    "BK-NEW",
		}, nil)

		require.NoError(t, err)
		assert.True(t, replayed)
		assert.Equal(t, "intent-1", intent.ID)
		assert.Equal(t, "BK-OLD", intent.ExternalRef)
	})
}

func TestApplyTransition(t *testing.T) {
	t.Run("applies a legal transition", func(t *testing.T) {
		repo := &stubPaymentIntentRepository{
			byID:    PaymentIntent{ID: "intent-1", Status: StatusCreated},
			updated: true,
		}
		ledger := NewIntentLedger(logrus.New(), repo)

		err := ledger.ApplyTransition(context.Background(), "intent-1", StatusProcessing, nil, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, repo.updateCalls)
	})

	t.Run("treats a same-status transition as a no-op", func(t *testing.T) {
		repo := &stubPaymentIntentRepository{
			byID: PaymentIntent{ID: "intent-1", Status: StatusCompleted},
		}
		ledger := NewIntentLedger(logrus.New(), repo)

		err := ledger.ApplyTransition(context.Background(), "intent-1", StatusCompleted, nil, nil)

		require.NoError(t, err)
		assert.Zero(t, repo.updateCalls)
	})

	t.Run("rejects a backwards transition", func(t *testing.T) {
		repo := &stubPaymentIntentRepository{
			byID: PaymentIntent{ID: "intent-1", Status: StatusCompleted},
		}
		ledger := NewIntentLedger(logrus.New(), repo)

		err := ledger.ApplyTransition(context.Background(), "intent-1", StatusProcessing, nil, nil)

		assert.True(t, errors.Is(err, status.CONFLICT))
		assert.Zero(t, repo.updateCalls)
	})

	t.Run("tolerates losing the race to an identical transition", func(t *testing.T) {
		repo := &stubPaymentIntentRepository{
			byID:          PaymentIntent{ID: "intent-1", Status: StatusProcessing},
			updated:       false,
			afterUpdateID: PaymentIntent{ID: "intent-1", Status: StatusCompleted},
		}
		ledger := NewIntentLedger(logrus.New(), repo)

		err := ledger.ApplyTransition(context.Background(), "intent-1", StatusCompleted, nil, nil)

		require.NoError(t, err)
	})

	t.Run("surfaces a real conflict after losing the race", func(t *testing.T) {
		repo := &stubPaymentIntentRepository{
			byID:          PaymentIntent{ID: "intent-1", Status: StatusProcessing},
			updated:       false,
			afterUpdateID: PaymentIntent{ID: "intent-1", Status: StatusFailed},
		}
		ledger := NewIntentLedger(logrus.New(), repo)

		err := ledger.ApplyTransition(context.Background(), "intent-1", StatusCompleted, nil, nil)

		assert.True(t, errors.Is(err, status.CONFLICT))
	})
}
