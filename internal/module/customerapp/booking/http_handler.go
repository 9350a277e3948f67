package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/tsel-ticketmaster/tm-booking/internal/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-booking/pkg/errors"
	publicMiddleware "github.com/tsel-ticketmaster/tm-booking/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-booking/pkg/response"
	"github.com/tsel-ticketmaster/tm-booking/pkg/status"
)

type HTTPHandler struct {
	SessionMiddleware *middleware.CustomerSession
	Validate          *validator.Validate
	BookingUseCase    BookingUseCase
}

func InitHTTPHandler(router *mux.Router, customerSession *middleware.CustomerSession, validate *validator.Validate, bookingUseCase BookingUseCase) {
	handler := &HTTPHandler{
		Validate:       validate,
		BookingUseCase: bookingUseCase,
	}

	router.HandleFunc("/tm-booking/v1/customerapp/bookings", publicMiddleware.SetRouteChain(handler.CreateBooking, customerSession.Verify)).Methods(http.MethodPost)
	router.HandleFunc("/tm-booking/v1/customerapp/bookings", publicMiddleware.SetRouteChain(handler.GetManyBooking, customerSession.Verify)).Methods(http.MethodGet)
	router.HandleFunc("/tm-booking/v1/customerapp/bookings/on-expire", publicMiddleware.SetRouteChain(handler.OnExpireBooking)).Methods(http.MethodPost)
	router.HandleFunc("/tm-booking/v1/customerapp/bookings/{booking_code}", publicMiddleware.SetRouteChain(handler.GetBookingStatus, customerSession.Verify)).Methods(http.MethodGet)
	router.HandleFunc("/tm-booking/v1/customerapp/bookings/{booking_code}", publicMiddleware.SetRouteChain(handler.CancelBooking, customerSession.Verify)).Methods(http.MethodDelete)
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

func (handler HTTPHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := CreateBookingRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
		})

		return
	}

	req.IdempotencyKey = r.Header.Get("Idempotency-Key")

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	resp, err := handler.BookingUseCase.CreateBooking(ctx, req)
	if err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}

	statusCode := http.StatusCreated
	statusWord := status.CREATED
	if resp.Replayed {
		statusCode = http.StatusOK
		statusWord = status.OK
	}

	response.JSON(w, statusCode, response.RESTEnvelope{
		Status:  statusWord,
		Message: "booking has been successfully placed",
		Data:    resp,
		Meta:    nil,
	})

}

func (handler HTTPHandler) GetManyBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	qs := r.URL.Query()

	req := GetManyBookingRequest{}
	req.Page, _ = strconv.ParseInt(qs.Get("page"), 10, 64)
	req.Size, _ = strconv.ParseInt(qs.Get("size"), 10, 64)

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	resp, meta, err := handler.BookingUseCase.GetManyBooking(ctx, req)
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
		Message: "list of bookings",
		Data:    resp,
		Meta:    meta,
	})

}

func (handler HTTPHandler) GetBookingStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := GetBookingStatusRequest{
		BookingCode: mux.Vars(r)["booking_code"],
	}

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	resp, err := handler.BookingUseCase.GetBookingStatus(ctx, req)
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
		Message: "booking's status",
		Data:    resp,
		Meta:    nil,
	})

}

func (handler HTTPHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := CancelBookingRequest{
		BookingCode: mux.Vars(r)["booking_code"],
	}

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	resp, err := handler.BookingUseCase.CancelBooking(ctx, req)
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
		Message: "booking has been successfully cancelled",
		Data:    resp,
		Meta:    nil,
	})

}

func (handler HTTPHandler) OnExpireBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	e := ExpireBookingEvent{}
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
		})

		return
	}

	err := handler.BookingUseCase.OnExpireBooking(ctx, e)
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
		Message: "booking has been successfully expired",
		Data:    nil,
		Meta:    nil,
	})

}
