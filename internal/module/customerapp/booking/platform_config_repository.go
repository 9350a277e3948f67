package booking

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-booking/pkg/errors"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

const (
	platformFeeConfigKey   = "platform_fee_percentage"
	platformFeeCacheKey    = "tm-booking:config:platform_fee_percentage"
	platformConfigCacheTTL = time.Minute
)

// PlatformConfigRepository reads operator-tunable pricing knobs. Values are
// cached briefly in Redis; Invalidate drops the cache after an operator
// change so there is no hidden process-wide state to chase.
type PlatformConfigRepository interface {
	GetPlatformFeePercentage(ctx context.Context) (float64, error)
	Invalidate(ctx context.Context) error
}

type platformConfigRepository struct {
	logger   *logrus.Logger
	db       *sql.DB
	rc       *goredis.Client
	fallback float64
}

func NewPlatformConfigRepository(logger *logrus.Logger, db *sql.DB, rc *goredis.Client, fallback float64) PlatformConfigRepository {
	return &platformConfigRepository{
		logger:   logger,
		db:       db,
		rc:       rc,
		fallback: fallback,
	}
}

// GetPlatformFeePercentage implements PlatformConfigRepository.
func (r *platformConfigRepository) GetPlatformFeePercentage(ctx context.Context) (float64, error) {
	if cached, err := r.rc.Get(ctx, platformFeeCacheKey).Result(); err == nil {
		if v, err := strconv.ParseFloat(cached, 64); err == nil {
			return v, nil
		}
	}

	query := `SELECT value FROM platform_config WHERE key = $1 LIMIT 1`

	var raw string
	err := r.db.QueryRowContext(ctx, query, platformFeeConfigKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return r.fallback, nil
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while getting platform config's properties")
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return r.fallback, nil
	}

	if err := r.rc.Set(ctx, platformFeeCacheKey, raw, platformConfigCacheTTL).Err(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("platform config cache write failed")
	}

	return v, nil
}

// Invalidate implements PlatformConfigRepository.
func (r *platformConfigRepository) Invalidate(ctx context.Context) error {
	if err := r.rc.Del(ctx, platformFeeCacheKey).Err(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while invalidating platform config's cache")
	}

	return nil
}
