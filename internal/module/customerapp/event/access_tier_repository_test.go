package event

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsel-ticketmaster/tm-booking/pkg/errors"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

func TestTryAcquireStock(t *testing.T) {
	t.Run("acquires when capacity allows", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPrepare("UPDATE access_tier").
			ExpectExec().
			WithArgs("tier-1", int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewAccessTierRepository(logrus.New(), db)

		err = repo.TryAcquireStock(context.Background(), "tier-1", 2, nil)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports OUT_OF_STOCK when the conditional update matches no row", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPrepare("UPDATE access_tier").
			ExpectExec().
			WithArgs("tier-1", int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewAccessTierRepository(logrus.New(), db)

		err = repo.TryAcquireStock(context.Background(), "tier-1", 4, nil)

		assert.True(t, errors.Is(err, status.OUT_OF_STOCK))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReleaseStock(t *testing.T) {
	t.Run("returns units to the pool", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPrepare("UPDATE access_tier").
			ExpectExec().
			WithArgs("tier-1", int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewAccessTierRepository(logrus.New(), db)

		err = repo.ReleaseStock(context.Background(), "tier-1", 2, nil)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports an integrity violation instead of going negative", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPrepare("UPDATE access_tier").
			ExpectExec().
			WithArgs("tier-1", int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewAccessTierRepository(logrus.New(), db)

		err = repo.ReleaseStock(context.Background(), "tier-1", 5, nil)

		assert.True(t, errors.Is(err, status.INTEGRITY_VIOLATION))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "event_id", "name", "price", "max_quantity", "sold_quantity", "sale_start_date", "sale_end_date", "is_active",
	}).AddRow("tier-1", "event-1", "VIP", 250000.0, int64(100), int64(40), now.Add(-time.Hour), now.Add(time.Hour), true)

	mock.ExpectPrepare("SELECT").
		ExpectQuery().
		WithArgs("tier-1").
		WillReturnRows(rows)

	repo := NewAccessTierRepository(logrus.New(), db)

	tier, err := repo.FindByID(context.Background(), "tier-1", nil)

	require.NoError(t, err)
	assert.Equal(t, "event-1", tier.EventID)
	assert.Equal(t, int64(100), tier.MaxQuantity)
	assert.True(t, tier.WithinSaleWindow(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}
