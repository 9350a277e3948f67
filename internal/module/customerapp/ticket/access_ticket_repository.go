package ticket

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	apperrors "github.com/tsel-ticketmaster/tm-booking/pkg/errors"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

// ErrTicketCodeTaken reports a collision on the external ticket code; the
// caller regenerates and retries.
var ErrTicketCodeTaken = errors.New("ticket code already exists")

const uniqueViolation = "23505"

type AccessTicketRepository interface {
	Save(ctx context.Context, t AccessTicket, tx *sql.Tx) error
	CountByBookingID(ctx context.Context, bookingID string, tx *sql.Tx) (int64, error)
	CountByEventIDAndUserID(ctx context.Context, eventID string, userID int64, tx *sql.Tx) (int64, error)
	FindManyByBookingID(ctx context.Context, bookingID string, tx *sql.Tx) ([]AccessTicket, error)
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type accessTicketRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewAccessTicketRepository(logger *logrus.Logger, db *sql.DB) AccessTicketRepository {
	return &accessTicketRepository{
		logger: logger,
		db:     db,
	}
}

// Save implements AccessTicketRepository.
func (r *accessTicketRepository) Save(ctx context.Context, t AccessTicket, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		INSERT INTO access_ticket
		(
			id, ticket_code, qr_code, user_id, event_id, access_tier_id, booking_id, status, valid_until, created_at
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving access ticket's properties")
	}
	defer stmt.Close()

	var accessTierID, bookingID sql.NullString
	if t.AccessTierID != nil {
		accessTierID.Valid = true
		accessTierID.String = *t.AccessTierID
	}
	if t.BookingID != nil {
		bookingID.Valid = true
		bookingID.String = *t.BookingID
	}

	_, err = stmt.ExecContext(ctx, t.ID, t.TicketCode, t.QRCode, t.UserID, t.EventID, accessTierID, bookingID, t.Status, t.ValidUntil, t.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrTicketCodeTaken
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while saving access ticket's properties")
	}

	return nil
}

func (r *accessTicketRepository) count(ctx context.Context, cmd sqlCommand, query string, args ...interface{}) (int64, error) {
	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting access ticket's properties")
	}
	defer stmt.Close()

	var count int64
	if err := stmt.QueryRowContext(ctx, args...).Scan(&count); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while counting access ticket's properties")
	}

	return count, nil
}

// CountByBookingID implements AccessTicketRepository.
func (r *accessTicketRepository) CountByBookingID(ctx context.Context, bookingID string, tx *sql.Tx) (int64, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `SELECT count(id) FROM access_ticket WHERE booking_id = $1`

	return r.count(ctx, cmd, query, bookingID)
}

// CountByEventIDAndUserID implements AccessTicketRepository.
func (r *accessTicketRepository) CountByEventIDAndUserID(ctx context.Context, eventID string, userID int64, tx *sql.Tx) (int64, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `SELECT count(id) FROM access_ticket WHERE event_id = $1 AND user_id = $2 AND status != $3`

	return r.count(ctx, cmd, query, eventID, userID, StatusRevoked)
}

// FindManyByBookingID implements AccessTicketRepository.
func (r *accessTicketRepository) FindManyByBookingID(ctx context.Context, bookingID string, tx *sql.Tx) ([]AccessTicket, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, ticket_code, qr_code, user_id, event_id, access_tier_id, booking_id, status, valid_until, created_at
		FROM access_ticket
		WHERE
			booking_id = $1
		ORDER BY ticket_code
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of access ticket's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, bookingID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of access ticket's properties")
	}

	defer rows.Close()

	var data = make([]AccessTicket, 0)
	for rows.Next() {
		var t AccessTicket
		var accessTierID, bookingIDCol sql.NullString

		if err := rows.Scan(
			&t.ID, &t.TicketCode, &t.QRCode, &t.UserID, &t.EventID, &accessTierID, &bookingIDCol, &t.Status, &t.ValidUntil, &t.CreatedAt,
		); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error()
			return nil, apperrors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting bunch of access ticket's properties")
		}

		if accessTierID.Valid {
			t.AccessTierID = &accessTierID.String
		}
		if bookingIDCol.Valid {
			t.BookingID = &bookingIDCol.String
		}

		data = append(data, t)
	}

	return data, nil
}
