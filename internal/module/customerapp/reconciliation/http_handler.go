package reconciliation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/midtrans"
	"github.com/tsel-ticketmaster/tm-booking/internal/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-booking/pkg/errors"
	publicMiddleware "github.com/tsel-ticketmaster/tm-booking/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-booking/pkg/response"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

type ConfirmPaymentRequest struct {
	PaymentRef string `json:"payment_ref" validate:"required"`
}

type HTTPHandler struct {
	Validate              *validator.Validate
	ReconciliationUseCase ReconciliationUseCase
}

func InitHTTPHandler(router *mux.Router, customerSession *middleware.CustomerSession, validate *validator.Validate, reconciliationUseCase ReconciliationUseCase) {
	handler := &HTTPHandler{
		Validate:              validate,
		ReconciliationUseCase: reconciliationUseCase,
	}

	router.HandleFunc("/tm-booking/v1/customerapp/payments/confirm", publicMiddleware.SetRouteChain(handler.ConfirmPayment, customerSession.Verify)).Methods(http.MethodPost)
	router.HandleFunc("/tm-booking/v1/customerapp/payments/notification", publicMiddleware.SetRouteChain(handler.OnPaymentNotification)).Methods(http.MethodPost)
}

func (handler HTTPHandler) validate(ctx context.Context, payload interface{}) error {
	err := handler.Validate.StructCtx(ctx, payload)
	if err == nil {
		return nil
	}

	errorFields := err.(validator.ValidationErrors)

	errMessages := make([]string, len(errorFields))

	for k, errorField := range errorFields {
		errMessages[k] = fmt.Sprintf("invalid '%s' with value '%v'", errorField.Field(), errorField.Value())
	}

	errorMessage := strings.Join(errMessages, ", ")

	return fmt.Errorf(errorMessage)

}

func (handler HTTPHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := ConfirmPaymentRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
		})

		return
	}

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	err := handler.ReconciliationUseCase.Reconcile(ctx, req.PaymentRef, true)
	if err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}
	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "payment has been successfully reconciled",
		Data:    nil,
		Meta:    nil,
	})

}

func (handler HTTPHandler) OnPaymentNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n := midtrans.TransactionStatus{}
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
		})

		return
	}

	err := handler.ReconciliationUseCase.HandleNotification(ctx, n)
	if err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}
	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "payment notification has been processed",
		Data:    nil,
		Meta:    nil,
	})

}
