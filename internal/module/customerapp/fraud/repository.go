package fraud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-booking/pkg/errors"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

// FraudRepository is the synchronous risk pre-screen. A deny verdict
// short-circuits the booking before any stock is held.
type FraudRepository interface {
	Screen(ctx context.Context, req ScreenRequest) (Verdict, error)
}

type fraudRepository struct {
	baseURL string
	apiKey  string
	logger  *logrus.Logger
	hc      *http.Client
}

func NewFraudRepository(baseURL string, apiKey string, logger *logrus.Logger, hc *http.Client) FraudRepository {
	return &fraudRepository{
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  logger,
		hc:      hc,
	}
}

// Screen implements FraudRepository.
func (r *fraudRepository) Screen(ctx context.Context, req ScreenRequest) (Verdict, error) {
	reqBuff, _ := json.Marshal(req)
	url := fmt.Sprintf("%s/v1/screen", r.baseURL)

	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBuff))
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return Verdict{}, errors.New(http.StatusBadGateway, status.GATEWAY_ERROR, "an error occurred while screening the booking")
	}

	hr.Header.Add("Content-Type", "application/json")
	hr.Header.Add("Accept", "application/json")
	hr.Header.Add("X-Api-Key", r.apiKey)

	hresp, err := r.hc.Do(hr)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return Verdict{}, errors.New(http.StatusBadGateway, status.GATEWAY_ERROR, "an error occurred while screening the booking")
	}

	defer hresp.Body.Close()

	respBody, err := io.ReadAll(hresp.Body)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return Verdict{}, errors.New(http.StatusBadGateway, status.GATEWAY_ERROR, "an error occurred while screening the booking")
	}

	if hresp.StatusCode < 200 || hresp.StatusCode > 299 {
		r.logger.WithContext(ctx).WithFields(logrus.Fields{
			"statusCode": hresp.StatusCode,
			"body":       string(respBody),
		}).Error("fraud screening returned a non-success status")
		return Verdict{}, errors.New(http.StatusBadGateway, status.GATEWAY_ERROR, "an error occurred while screening the booking")
	}

	var verdict Verdict
	if err := json.Unmarshal(respBody, &verdict); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return Verdict{}, errors.New(http.StatusBadGateway, status.GATEWAY_ERROR, "an error occurred while screening the booking")
	}

	return verdict, nil
}
