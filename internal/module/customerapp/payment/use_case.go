package payment

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-booking/pkg/errors"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

// IntentLedger tracks one logical payment attempt per idempotency key and
// enforces the monotonic intent lifecycle.
type IntentLedger interface {
	// CreateIntent returns the intent for the key, creating it on first use.
	// The second return value reports whether this call was an idempotent
	// replay of an earlier submission.
	CreateIntent(ctx context.Context, req CreateIntentRequest, tx *sql.Tx) (PaymentIntent, bool, error)
	// ApplyTransition moves the intent along CREATED -> PROCESSING ->
	// {COMPLETED | FAILED}. Replaying the transition the intent already took
	// is a no-op; any other illegal transition fails.
	ApplyTransition(ctx context.Context, intentID string, to string, gatewayPaymentID *string, tx *sql.Tx) error
}

type CreateIntentRequest struct {
	IdempotencyKey string
	UserID         int64
	Amount         float64
	ExternalRef    string
}

type intentLedger struct {
	logger                  *logrus.Logger
	paymentIntentRepository PaymentIntentRepository
}

func NewIntentLedger(logger *logrus.Logger, paymentIntentRepository PaymentIntentRepository) IntentLedger {
	return &intentLedger{
		logger:                  logger,
		paymentIntentRepository: paymentIntentRepository,
	}
}

// CreateIntent implements IntentLedger.
func (l *intentLedger) CreateIntent(ctx context.Context, req CreateIntentRequest, tx *sql.Tx) (PaymentIntent, bool, error) {
	now := time.Now()
	intent := PaymentIntent{
		ID:             uuid.NewString(),
		IdempotencyKey: req.IdempotencyKey,
		UserID:         req.UserID,
		Amount:         req.Amount,
		Status:         StatusCreated,
		ExternalRef:    req.ExternalRef,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := l.paymentIntentRepository.Save(ctx, intent, tx)
	if err == nil {
		return intent, false, nil
	}

	if err != ErrIdempotencyKeyTaken {
		return PaymentIntent{}, false, err
	}

	existing, err := l.paymentIntentRepository.FindByIdempotencyKey(ctx, req.IdempotencyKey, tx)
	if err != nil {
		return PaymentIntent{}, false, err
	}

	return existing, true, nil
}

// ApplyTransition implements IntentLedger.
func (l *intentLedger) ApplyTransition(ctx context.Context, intentID string, to string, gatewayPaymentID *string, tx *sql.Tx) error {
	intent, err := l.paymentIntentRepository.FindByID(ctx, intentID, tx)
	if err != nil {
		return err
	}

	if intent.Status == to {
		return nil
	}

	if !CanTransit(intent.Status, to) {
		l.logger.WithContext(ctx).WithFields(logrus.Fields{
			"paymentIntentId": intentID,
			"from":            intent.Status,
			"to":              to,
		}).Warn("illegal payment intent transition")
		return errors.New(http.StatusConflict, status.CONFLICT, "the payment intent cannot take this transition")
	}

	updated, err := l.paymentIntentRepository.UpdateStatus(ctx, intentID, intent.Status, to, gatewayPaymentID, tx)
	if err != nil {
		return err
	}

	if !updated {
		// A concurrent transition won the race between our read and write.
		// Re-read once to tell the benign replay apart from a real conflict.
		current, err := l.paymentIntentRepository.FindByID(ctx, intentID, tx)
		if err != nil {
			return err
		}
		if current.Status == to {
			return nil
		}
		return errors.New(http.StatusConflict, status.CONFLICT, "the payment intent cannot take this transition")
	}

	return nil
}
