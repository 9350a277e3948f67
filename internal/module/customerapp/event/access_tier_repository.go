package event

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-booking/pkg/errors"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

type AccessTierRepository interface {
	FindByID(ctx context.Context, ID string, tx *sql.Tx) (AccessTier, error)
	// TryAcquireStock atomically raises sold_quantity by qty, failing with
	// OUT_OF_STOCK when the tier's capacity would be exceeded. The capacity
	// invariant lives entirely in this statement's WHERE clause.
	TryAcquireStock(ctx context.Context, ID string, qty int64, tx *sql.Tx) error
	// ReleaseStock returns qty units to the pool. Driving sold_quantity
	// negative is structurally impossible and reported as an integrity
	// violation, never repaired.
	ReleaseStock(ctx context.Context, ID string, qty int64, tx *sql.Tx) error
}

type accessTierRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewAccessTierRepository(logger *logrus.Logger, db *sql.DB) AccessTierRepository {
	return &accessTierRepository{
		logger: logger,
		db:     db,
	}
}

// FindByID implements AccessTierRepository.
func (r *accessTierRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (AccessTier, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, event_id, name, price, max_quantity, sold_quantity, sale_start_date, sale_end_date, is_active
		FROM access_tier
		WHERE
			id = $1
		LIMIT 1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return AccessTier{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting access tier's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, ID)

	var data AccessTier
	err = row.Scan(
		&data.ID, &data.EventID, &data.Name, &data.Price, &data.MaxQuantity, &data.SoldQuantity, &data.SaleStartDate, &data.SaleEndDate, &data.IsActive,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return AccessTier{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("access tier's properties with id '%s' is not found", ID))
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return AccessTier{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting access tier's properties")
	}

	return data, nil
}

// TryAcquireStock implements AccessTierRepository.
func (r *accessTierRepository) TryAcquireStock(ctx context.Context, ID string, qty int64, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE access_tier
		SET
			sold_quantity = sold_quantity + $2
		WHERE
			id = $1
		AND
			is_active
		AND
			sold_quantity + $2 <= max_quantity
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while acquiring access tier's stock")
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, ID, qty)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while acquiring access tier's stock")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while acquiring access tier's stock")
	}

	if affected == 0 {
		return errors.New(http.StatusConflict, status.OUT_OF_STOCK, "the requested quantity exceeds the remaining stock")
	}

	return nil
}

// ReleaseStock implements AccessTierRepository.
func (r *accessTierRepository) ReleaseStock(ctx context.Context, ID string, qty int64, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE access_tier
		SET
			sold_quantity = sold_quantity - $2
		WHERE
			id = $1
		AND
			sold_quantity - $2 >= 0
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while releasing access tier's stock")
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, ID, qty)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while releasing access tier's stock")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while releasing access tier's stock")
	}

	if affected == 0 {
		r.logger.WithContext(ctx).WithFields(logrus.Fields{
			"accessTierId": ID,
			"quantity":     qty,
		}).Error("stock release would drive sold quantity negative")
		return errors.New(http.StatusInternalServerError, status.INTEGRITY_VIOLATION, "stock release would drive sold quantity negative")
	}

	return nil
}
