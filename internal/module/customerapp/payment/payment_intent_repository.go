package payment

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

// ErrIdempotencyKeyTaken reports that an intent already exists for the
// idempotency key; the caller resolves the replay by re-reading.
var ErrIdempotencyKeyTaken = errors.New("payment intent idempotency key already exists")

const uniqueViolation = "23505"

type PaymentIntentRepository interface {
	Save(ctx context.Context, intent PaymentIntent, tx *sql.Tx) error
	FindByID(ctx context.Context, ID string, tx *sql.Tx) (PaymentIntent, error)
	FindByIdempotencyKey(ctx context.Context, key string, tx *sql.Tx) (PaymentIntent, error)
	FindByExternalRef(ctx context.Context, externalRef string, tx *sql.Tx) (PaymentIntent, error)
	UpdateStatus(ctx context.Context, ID string, from string, to string, gatewayPaymentID *string, tx *sql.Tx) (bool, error)
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type paymentIntentRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewPaymentIntentRepository(logger *logrus.Logger, db *sql.DB) PaymentIntentRepository {
	return &paymentIntentRepository{
		logger: logger,
		db:     db,
	}
}

// Save implements PaymentIntentRepository. The unique constraint on
// idempotency_key, not a prior read, is what makes concurrent retries safe.
func (r *paymentIntentRepository) Save(ctx context.Context, intent PaymentIntent, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		INSERT INTO payment_intent
		(
			id, idempotency_key, user_id, amount, status, external_ref, gateway_payment_id, created_at, updated_at
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving payment intent's properties")
	}
	defer stmt.Close()

	var gatewayPaymentID sql.NullString
	if intent.GatewayPaymentID != nil {
		gatewayPaymentID.Valid = true
		gatewayPaymentID.String = *intent.GatewayPaymentID
	}

	_, err = stmt.ExecContext(ctx, intent.ID, intent.IdempotencyKey, intent.UserID, intent.Amount, intent.Status, intent.ExternalRef, gatewayPaymentID, intent.CreatedAt, intent.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrIdempotencyKeyTaken
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving payment intent's properties")
	}

	return nil
}

func (r *paymentIntentRepository) findOne(ctx context.Context, cmd sqlCommand, where string, arg interface{}) (PaymentIntent, error) {
	query := fmt.Sprintf(`
		SELECT
			id, idempotency_key, user_id, amount, status, external_ref, gateway_payment_id, created_at, updated_at
		FROM payment_intent
		WHERE
			%s = $1
		LIMIT 1
	`, where)

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return PaymentIntent{}, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting payment intent's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, arg)

	var data PaymentIntent
	var gatewayPaymentID sql.NullString

	err = row.Scan(
		&data.ID, &data.IdempotencyKey, &data.UserID, &data.Amount, &data.Status, &data.ExternalRef, &gatewayPaymentID, &data.CreatedAt, &data.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return PaymentIntent{}, apperrors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("payment intent's properties with %s '%v' is not found", where, arg))
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return PaymentIntent{}, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting payment intent's properties")
	}

	if gatewayPaymentID.Valid {
		data.GatewayPaymentID = &gatewayPaymentID.String
	}

	return data, nil
}

// FindByID implements PaymentIntentRepository.
func (r *paymentIntentRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (PaymentIntent, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	return r.findOne(ctx, cmd, "id", ID)
}

// FindByIdempotencyKey implements PaymentIntentRepository.
func (r *paymentIntentRepository) FindByIdempotencyKey(ctx context.Context, key string, tx *sql.Tx) (PaymentIntent, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	return r.findOne(ctx, cmd, "idempotency_key", key)
}

// FindByExternalRef implements PaymentIntentRepository.
func (r *paymentIntentRepository) FindByExternalRef(ctx context.Context, externalRef string, tx *sql.Tx) (PaymentIntent, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	return r.findOne(ctx, cmd, "external_ref", externalRef)
}

// UpdateStatus implements PaymentIntentRepository. The prior status in the
// WHERE clause guards against lost updates racing through separate
// transactions; false means no row matched.
func (r *paymentIntentRepository) UpdateStatus(ctx context.Context, ID string, from string, to string, gatewayPaymentID *string, tx *sql.Tx) (bool, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE payment_intent
		SET
			status = $1,
			gateway_payment_id = COALESCE($2, gateway_payment_id),
			updated_at = $3
		WHERE
			id = $4
		AND
			status = $5
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return false, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating payment intent's properties")
	}
	defer stmt.Close()

	var nullGatewayPaymentID sql.NullString
	if gatewayPaymentID != nil {
		nullGatewayPaymentID.Valid = true
		nullGatewayPaymentID.String = *gatewayPaymentID
	}

	result, err := stmt.ExecContext(ctx, to, nullGatewayPaymentID, time.Now(), ID, from)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return false, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating payment intent's properties")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return false, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while updating payment intent's properties")
	}

	return affected > 0, nil
}
