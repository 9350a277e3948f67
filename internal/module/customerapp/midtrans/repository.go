package midtrans

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

type MidtransRepository interface {
	CreateTransaction(ctx context.Context, req CreateTransactionRequest) (CreateTransactionResponse, error)
	GetTransactionStatus(ctx context.Context, orderID string) (TransactionStatus, error)
}

type midtransRepository struct {
	baseURL      string
	basicAuthKey string
	logger       *logrus.Logger
	hc           *http.Client
}

func NewMidtransRepository(baseURL string, basicAuthKey string, logger *logrus.Logger, hc *http.Client) MidtransRepository {
	return &midtransRepository{
		baseURL:      baseURL,
		basicAuthKey: basicAuthKey,
		logger:       logger,
		hc:           hc,
	}
}

func (r *midtransRepository) do(ctx context.Context, method, url string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewBuffer(body)
	}

	hr, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusBadGateway, status.GATEWAY_ERROR, "an error occurred while calling the payment gateway")
	}

	hr.Header.Add("Content-Type", "application/json")
	hr.Header.Add("Accept", "application/json")
	hr.Header.Add("Authorization", fmt.Sprintf("Basic %s", r.basicAuthKey))

	hresp, err := r.hc.Do(hr)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusBadGateway, status.GATEWAY_ERROR, "an error occurred while calling the payment gateway")
	}

	defer hresp.Body.Close()

	respBody, err := io.ReadAll(hresp.Body)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusBadGateway, status.GATEWAY_ERROR, "an error occurred while calling the payment gateway")
	}

	if hresp.StatusCode < 200 || hresp.StatusCode > 299 {
		r.logger.WithContext(ctx).WithFields(logrus.Fields{
			"statusCode": hresp.StatusCode,
			"body":       string(respBody),
		}).Error("payment gateway returned a non-success status")
		return errors.New(http.StatusBadGateway, status.GATEWAY_ERROR, "an error occurred while calling the payment gateway")
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusBadGateway, status.GATEWAY_ERROR, "an error occurred while calling the payment gateway")
	}

	return nil
}

// CreateTransaction implements MidtransRepository.
func (r *midtransRepository) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (CreateTransactionResponse, error) {
	reqBuff, _ := json.Marshal(req)
	url := fmt.Sprintf("%s/snap/v1/transactions", r.baseURL)

	var resp CreateTransactionResponse
	if err := r.do(ctx, http.MethodPost, url, reqBuff, &resp); err != nil {
		return CreateTransactionResponse{}, err
	}

	return resp, nil
}

// GetTransactionStatus implements MidtransRepository.
func (r *midtransRepository) GetTransactionStatus(ctx context.Context, orderID string) (TransactionStatus, error) {
	url := fmt.Sprintf("%s/v2/%s/status", r.baseURL, orderID)

	var resp TransactionStatus
	if err := r.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return TransactionStatus{}, err
	}

	return resp, nil
}
