package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	apperrors "github.com/tsel-ticketmaster/tm-booking/pkg/errors"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

// ErrBookingCodeTaken reports a collision on the external booking code; the
// caller regenerates and retries.
var ErrBookingCodeTaken = errors.New("booking code already exists")

const (
	uniqueViolation          = "23505"
	bookingCodeConstraint    = "booking_booking_code_key"
	idempotencyKeyConstraint = "booking_idempotency_key_key"
)

type BookingRepository interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(ctx context.Context, tx *sql.Tx) error
	Rollback(ctx context.Context, tx *sql.Tx) error

	Save(ctx context.Context, b Booking, tx *sql.Tx) error
	FindByBookingCode(ctx context.Context, bookingCode string, tx *sql.Tx) (Booking, error)
	FindByBookingCodeForUpdate(ctx context.Context, bookingCode string, tx *sql.Tx) (Booking, error)
	FindByIdempotencyKey(ctx context.Context, key string, tx *sql.Tx) (Booking, error)
	FindMany(ctx context.Context, userID int64, offset, limit int64, tx *sql.Tx) ([]Booking, error)
	Count(ctx context.Context, userID int64, tx *sql.Tx) (int64, error)
	SumActiveQuantityByEventIDAndUserID(ctx context.Context, eventID string, userID int64, tx *sql.Tx) (int64, error)
	Update(ctx context.Context, ID string, b Booking, tx *sql.Tx) error
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type bookingRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewBookingRepository(logger *logrus.Logger, db *sql.DB) BookingRepository {
	return &bookingRepository{
		logger: logger,
		db:     db,
	}
}

// BeginTx implements BookingRepository. Bookings race on shared tier
// counters, so the saga runs serializable and lets the datastore's conflict
// detection guard the capacity invariant.
func (r *bookingRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred trying to begin transaction")
	}

	return tx, nil
}

// CommitTx implements BookingRepository.
func (r *bookingRepository) CommitTx(ctx context.Context, tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred trying to commit transaction")
	}

	return nil
}

// Rollback implements BookingRepository.
func (r *bookingRepository) Rollback(ctx context.Context, tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		r.logger.WithContext(ctx).WithError(err).Error()
		return apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred trying to rollback transaction")
	}

	return nil
}

const bookingColumns = `
	id, booking_code, user_id, user_name, user_email, event_id, access_tier_id, quantity,
	unit_price, subtotal_amount, platform_fee, tax_amount, total_amount,
	status, payment_status, payment_intent_id, stock_reservation_id, idempotency_key,
	payment_redirect_url, expires_at, created_at, updated_at`

// Save implements BookingRepository. Uniqueness of booking_code and
// idempotency_key is enforced by the datastore's constraints, never by a
// check-then-create read.
func (r *bookingRepository) Save(ctx context.Context, b Booking, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := fmt.Sprintf(`
		INSERT INTO booking
		(
			%s
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
		)
	`, bookingColumns)

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving booking's properties")
	}
	defer stmt.Close()

	var paymentRedirectURL sql.NullString
	if b.PaymentRedirectURL != nil {
		paymentRedirectURL.Valid = true
		paymentRedirectURL.String = *b.PaymentRedirectURL
	}

	_, err = stmt.ExecContext(ctx,
		b.ID, b.BookingCode, b.UserID, b.UserName, b.UserEmail, b.EventID, b.AccessTierID, b.Quantity,
		b.UnitPrice, b.SubtotalAmount, b.PlatformFee, b.TaxAmount, b.TotalAmount,
		b.Status, b.PaymentStatus, b.PaymentIntentID, b.StockReservationID, b.IdempotencyKey,
		paymentRedirectURL, b.ExpiresAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			switch pqErr.Constraint {
			case bookingCodeConstraint:
				return ErrBookingCodeTaken
			case idempotencyKeyConstraint:
				return apperrors.New(http.StatusConflict, status.DUPLICATE_SUBMISSION, "a booking with this idempotency key already exists")
			}
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving booking's properties")
	}

	return nil
}

func (r *bookingRepository) scanRow(row *sql.Row) (Booking, error) {
	var b Booking
	var paymentRedirectURL sql.NullString

	err := row.Scan(
		&b.ID, &b.BookingCode, &b.UserID, &b.UserName, &b.UserEmail, &b.EventID, &b.AccessTierID, &b.Quantity,
		&b.UnitPrice, &b.SubtotalAmount, &b.PlatformFee, &b.TaxAmount, &b.TotalAmount,
		&b.Status, &b.PaymentStatus, &b.PaymentIntentID, &b.StockReservationID, &b.IdempotencyKey,
		&paymentRedirectURL, &b.ExpiresAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return Booking{}, err
	}

	if paymentRedirectURL.Valid {
		b.PaymentRedirectURL = &paymentRedirectURL.String
	}

	return b, nil
}

func (r *bookingRepository) findOne(ctx context.Context, cmd sqlCommand, where string, arg interface{}, forUpdate bool) (Booking, error) {
	query := fmt.Sprintf(`
		SELECT
			%s
		FROM booking
		WHERE
			%s = $1
	`, bookingColumns, where)

	if forUpdate {
		query += " FOR UPDATE"
	} else {
		query += " LIMIT 1"
	}

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return Booking{}, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting booking's properties")
	}
	defer stmt.Close()

	b, err := r.scanRow(stmt.QueryRowContext(ctx, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return Booking{}, apperrors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("booking's properties with %s '%v' is not found", where, arg))
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return Booking{}, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting booking's properties")
	}

	return b, nil
}

// FindByBookingCode implements BookingRepository.
func (r *bookingRepository) FindByBookingCode(ctx context.Context, bookingCode string, tx *sql.Tx) (Booking, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	return r.findOne(ctx, cmd, "booking_code", bookingCode, false)
}

// FindByBookingCodeForUpdate implements BookingRepository.
func (r *bookingRepository) FindByBookingCodeForUpdate(ctx context.Context, bookingCode string, tx *sql.Tx) (Booking, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	return r.findOne(ctx, cmd, "booking_code", bookingCode, true)
}

// FindByIdempotencyKey implements BookingRepository.
func (r *bookingRepository) FindByIdempotencyKey(ctx context.Context, key string, tx *sql.Tx) (Booking, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	return r.findOne(ctx, cmd, "idempotency_key", key, false)
}

// FindMany implements BookingRepository.
func (r *bookingRepository) FindMany(ctx context.Context, userID int64, offset, limit int64, tx *sql.Tx) ([]Booking, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := fmt.Sprintf(`
		SELECT
			%s
		FROM booking
		WHERE
			user_id = $1
		ORDER BY created_at DESC
		OFFSET $2
		LIMIT $3
	`, bookingColumns)

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of booking's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, userID, offset, limit)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of booking's properties")
	}

	defer rows.Close()

	var data = make([]Booking, 0)
	for rows.Next() {
		var b Booking
		var paymentRedirectURL sql.NullString

		if err := rows.Scan(
			&b.ID, &b.BookingCode, &b.UserID, &b.UserName, &b.UserEmail, &b.EventID, &b.AccessTierID, &b.Quantity,
			&b.UnitPrice, &b.SubtotalAmount, &b.PlatformFee, &b.TaxAmount, &b.TotalAmount,
			&b.Status, &b.PaymentStatus, &b.PaymentIntentID, &b.StockReservationID, &b.IdempotencyKey,
			&paymentRedirectURL, &b.ExpiresAt, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error()
			return nil, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of booking's properties")
		}

		if paymentRedirectURL.Valid {
			b.PaymentRedirectURL = &paymentRedirectURL.String
		}

		data = append(data, b)
	}

	return data, nil
}

// Count implements BookingRepository.
func (r *bookingRepository) Count(ctx context.Context, userID int64, tx *sql.Tx) (int64, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `SELECT count(id) FROM booking WHERE user_id = $1`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting booking's properties")
	}
	defer stmt.Close()

	var count int64
	if err := stmt.QueryRowContext(ctx, userID).Scan(&count); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting booking's properties")
	}

	return count, nil
}

// SumActiveQuantityByEventIDAndUserID implements BookingRepository. It backs
// the per-event quota check with persisted, not in-flight, state.
func (r *bookingRepository) SumActiveQuantityByEventIDAndUserID(ctx context.Context, eventID string, userID int64, tx *sql.Tx) (int64, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT coalesce(sum(quantity), 0)
		FROM booking
		WHERE
			event_id = $1
		AND
			user_id = $2
		AND
			status IN ($3, $4)
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting booking's properties")
	}
	defer stmt.Close()

	var sum int64
	if err := stmt.QueryRowContext(ctx, eventID, userID, StatusPending, StatusProcessing).Scan(&sum); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting booking's properties")
	}

	return sum, nil
}

// Update implements BookingRepository.
func (r *bookingRepository) Update(ctx context.Context, ID string, b Booking, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE booking
		SET
			status = $1,
			payment_status = $2,
			payment_redirect_url = $3,
			updated_at = $4
		WHERE id = $5
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating booking's properties")
	}
	defer stmt.Close()

	var paymentRedirectURL sql.NullString
	if b.PaymentRedirectURL != nil {
		paymentRedirectURL.Valid = true
		paymentRedirectURL.String = *b.PaymentRedirectURL
	}

	_, err = stmt.ExecContext(ctx, b.Status, b.PaymentStatus, paymentRedirectURL, time.Now(), ID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating booking's properties")
	}

	return nil
}
