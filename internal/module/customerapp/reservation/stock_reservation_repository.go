package reservation

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-booking/pkg/errors"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

type StockReservationRepository interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(ctx context.Context, tx *sql.Tx) error
	Rollback(ctx context.Context, tx *sql.Tx) error

	Save(ctx context.Context, sr StockReservation, tx *sql.Tx) error
	FindByID(ctx context.Context, ID string, tx *sql.Tx) (StockReservation, error)
	FindByIDForUpdate(ctx context.Context, ID string, tx *sql.Tx) (StockReservation, error)
	FindActiveByTierAndUser(ctx context.Context, accessTierID string, userID int64, createdAfter time.Time, tx *sql.Tx) (StockReservation, error)
	FindExpiredForUpdate(ctx context.Context, now time.Time, limit int64, tx *sql.Tx) ([]StockReservation, error)
	UpdateStatus(ctx context.Context, ID string, st string, reason *string, tx *sql.Tx) error
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type stockReservationRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewStockReservationRepository(logger *logrus.Logger, db *sql.DB) StockReservationRepository {
	return &stockReservationRepository{
		logger: logger,
		db:     db,
	}
}

// BeginTx implements StockReservationRepository.
func (r *stockReservationRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred trying to begin transaction")
	}

	return tx, nil
}

// CommitTx implements StockReservationRepository.
func (r *stockReservationRepository) CommitTx(ctx context.Context, tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred trying to commit transaction")
	}

	return nil
}

// Rollback implements StockReservationRepository.
func (r *stockReservationRepository) Rollback(ctx context.Context, tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred trying to rollback transaction")
	}

	return nil
}

// Save implements StockReservationRepository.
func (r *stockReservationRepository) Save(ctx context.Context, sr StockReservation, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		INSERT INTO stock_reservation
		(
			id, access_tier_id, user_id, quantity, payment_intent_id, status, reason, expires_at, created_at, updated_at
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving stock reservation's properties")
	}
	defer stmt.Close()

	var reason sql.NullString
	if sr.Reason != nil {
		reason.Valid = true
		reason.String = *sr.Reason
	}

	_, err = stmt.ExecContext(ctx, sr.ID, sr.AccessTierID, sr.UserID, sr.Quantity, sr.PaymentIntentID, sr.Status, reason, sr.ExpiresAt, sr.CreatedAt, sr.UpdatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving stock reservation's properties")
	}

	return nil
}

const reservationColumns = `id, access_tier_id, user_id, quantity, payment_intent_id, status, reason, expires_at, created_at, updated_at`

func (r *stockReservationRepository) scanRow(row *sql.Row) (StockReservation, error) {
	var data StockReservation
	var reason sql.NullString

	err := row.Scan(
		&data.ID, &data.AccessTierID, &data.UserID, &data.Quantity, &data.PaymentIntentID, &data.Status, &reason, &data.ExpiresAt, &data.CreatedAt, &data.UpdatedAt,
	)
	if err != nil {
		return StockReservation{}, err
	}

	if reason.Valid {
		data.Reason = &reason.String
	}

	return data, nil
}

// FindByID implements StockReservationRepository.
func (r *stockReservationRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (StockReservation, error) {
	return r.findByID(ctx, ID, false, tx)
}

// FindByIDForUpdate implements StockReservationRepository.
func (r *stockReservationRepository) FindByIDForUpdate(ctx context.Context, ID string, tx *sql.Tx) (StockReservation, error) {
	return r.findByID(ctx, ID, true, tx)
}

func (r *stockReservationRepository) findByID(ctx context.Context, ID string, forUpdate bool, tx *sql.Tx) (StockReservation, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := fmt.Sprintf(`
		SELECT
			%s
		FROM stock_reservation
		WHERE
			id = $1
	`, reservationColumns)

	if forUpdate {
		query += " FOR UPDATE"
	} else {
		query += " LIMIT 1"
	}

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return StockReservation{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting stock reservation's properties")
	}
	defer stmt.Close()

	data, err := r.scanRow(stmt.QueryRowContext(ctx, ID))
	if err != nil {
		if err == sql.ErrNoRows {
			return StockReservation{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("stock reservation's properties with id '%s' is not found", ID))
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return StockReservation{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting stock reservation's properties")
	}

	return data, nil
}

// FindActiveByTierAndUser implements StockReservationRepository.
func (r *stockReservationRepository) FindActiveByTierAndUser(ctx context.Context, accessTierID string, userID int64, createdAfter time.Time, tx *sql.Tx) (StockReservation, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := fmt.Sprintf(`
		SELECT
			%s
		FROM stock_reservation
		WHERE
			access_tier_id = $1
		AND
			user_id = $2
		AND
			status = $3
		AND
			created_at > $4
		ORDER BY created_at DESC
		LIMIT 1
	`, reservationColumns)

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return StockReservation{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting stock reservation's properties")
	}
	defer stmt.Close()

	data, err := r.scanRow(stmt.QueryRowContext(ctx, accessTierID, userID, StatusActive, createdAfter))
	if err != nil {
		if err == sql.ErrNoRows {
			return StockReservation{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "active stock reservation is not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return StockReservation{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting stock reservation's properties")
	}

	return data, nil
}

// FindExpiredForUpdate implements StockReservationRepository.
func (r *stockReservationRepository) FindExpiredForUpdate(ctx context.Context, now time.Time, limit int64, tx *sql.Tx) ([]StockReservation, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := fmt.Sprintf(`
		SELECT
			%s
		FROM stock_reservation
		WHERE
			status = $1
		AND
			expires_at < $2
		ORDER BY expires_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	`, reservationColumns)

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of stock reservation's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, StatusActive, now, limit)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of stock reservation's properties")
	}

	defer rows.Close()

	var data = make([]StockReservation, 0)
	for rows.Next() {
		var sr StockReservation
		var reason sql.NullString

		if err := rows.Scan(
			&sr.ID, &sr.AccessTierID, &sr.UserID, &sr.Quantity, &sr.PaymentIntentID, &sr.Status, &reason, &sr.ExpiresAt, &sr.CreatedAt, &sr.UpdatedAt,
		); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error()
			return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of stock reservation's properties")
		}

		if reason.Valid {
			sr.Reason = &reason.String
		}

		data = append(data, sr)
	}

	return data, nil
}

// UpdateStatus implements StockReservationRepository.
func (r *stockReservationRepository) UpdateStatus(ctx context.Context, ID string, st string, reason *string, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE stock_reservation
		SET
			status = $1,
			reason = $2,
			updated_at = $3
		WHERE id = $4
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating stock reservation's properties")
	}
	defer stmt.Close()

	var nullReason sql.NullString
	if reason != nil {
		nullReason.Valid = true
		nullReason.String = *reason
	}

	_, err = stmt.ExecContext(ctx, st, nullReason, time.Now(), ID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating stock reservation's properties")
	}

	return nil
}
