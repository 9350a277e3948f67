package booking

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-booking/pkg/errors"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

type GuestlistApprovalRepository interface {
	FindApproved(ctx context.Context, eventID string, userID int64, tx *sql.Tx) (GuestlistApproval, error)
	FindLatestApprovedByUserID(ctx context.Context, userID int64, tx *sql.Tx) (GuestlistApproval, error)
}

type guestlistApprovalRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewGuestlistApprovalRepository(logger *logrus.Logger, db *sql.DB) GuestlistApprovalRepository {
	return &guestlistApprovalRepository{
		logger: logger,
		db:     db,
	}
}

// FindApproved implements GuestlistApprovalRepository.
func (r *guestlistApprovalRepository) FindApproved(ctx context.Context, eventID string, userID int64, tx *sql.Tx) (GuestlistApproval, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			event_id, user_id, status, created_at
		FROM guestlist_approval
		WHERE
			event_id = $1
		AND
			user_id = $2
		AND
			status = $3
		LIMIT 1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return GuestlistApproval{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting guestlist approval's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, eventID, userID, GuestlistApproved)

	var data GuestlistApproval
	err = row.Scan(&data.EventID, &data.UserID, &data.Status, &data.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return GuestlistApproval{}, errors.New(http.StatusForbidden, status.FORBIDDEN, "a guestlist booking requires a prior approval")
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return GuestlistApproval{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting guestlist approval's properties")
	}

	return data, nil
}

// FindLatestApprovedByUserID implements GuestlistApprovalRepository. It
// resolves a guestlist settlement that carries no event reference of its own
// to the user's most recent approval.
func (r *guestlistApprovalRepository) FindLatestApprovedByUserID(ctx context.Context, userID int64, tx *sql.Tx) (GuestlistApproval, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			event_id, user_id, status, created_at
		FROM guestlist_approval
		WHERE
			user_id = $1
		AND
			status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return GuestlistApproval{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting guestlist approval's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, userID, GuestlistApproved)

	var data GuestlistApproval
	err = row.Scan(&data.EventID, &data.UserID, &data.Status, &data.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return GuestlistApproval{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "no approved guestlist entry is found for the user")
		}
		r.logger.WithContext(ctx).WithError(err).Error()
		return GuestlistApproval{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting guestlist approval's properties")
	}

	return data, nil
}
