package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/tsel-ticketmaster/tm-booking/config"
	customerapp_booking "github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/booking"
	customerapp_event "github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/event"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/fraud"
	"github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/midtrans"
	customerapp_payment "github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/payment"
	customerapp_reconciliation "github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/reconciliation"
	customerapp_reservation "github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/reservation"
	customerapp_ticket "github.com/tsel-ticketmaster/tm-booking/internal/module/customerapp/ticket"
	"github.com/tsel-ticketmaster/tm-booking/internal/pkg/jwt"
	internalMiddleare "github.com/tsel-ticketmaster/tm-booking/internal/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-booking/internal/pkg/session"
	"github.com/tsel-ticketmaster/tm-booking/pkg/applogger"
	"github.com/tsel-ticketmaster/tm-booking/pkg/gctasks"
	"github.com/tsel-ticketmaster/tm-booking/pkg/kafka"
	"github.com/tsel-ticketmaster/tm-booking/pkg/middleware"
	"github.com/tsel-ticketmaster/tm-booking/pkg/monitoring"
	"github.com/tsel-ticketmaster/tm-booking/pkg/postgresql"
	"github.com/tsel-ticketmaster/tm-booking/pkg/pubsub"
	"github.com/tsel-ticketmaster/tm-booking/pkg/ratelimit"
	"github.com/tsel-ticketmaster/tm-booking/pkg/redis"
	"github.com/tsel-ticketmaster/tm-booking/pkg/server"
	"github.com/tsel-ticketmaster/tm-booking/pkg/validator"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

const reservationSweepBatch = 100

var (
	c           *config.Config
	CustomerApp string
)

func init() {
	c = config.Get()
	CustomerApp = fmt.Sprintf("%s/%s", c.Application.Name, "customerapp")
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := applogger.GetLogrus()

	mon := monitoring.NewOpenTelemetry(
		c.Application.Name,
		c.Application.Environment,
		c.GCP.ProjectID,
	)

	mon.Start(ctx)

	validate := validator.Get()

	hc := http.DefaultClient

	jsonWebToken := jwt.NewJSONWebToken(c.JWT.PrivateKey, c.JWT.PublicKey)

	psqldb := postgresql.GetDatabase()
	if err := psqldb.Ping(); err != nil {
		logger.WithContext(ctx).WithError(err).Error()
	}

	publisher := pubsub.PublisherFromConfluentKafkaProducer(logger, kafka.NewProducer())

	rc := redis.GetClient()
	if err := rc.Ping(context.Background()).Err(); err != nil {
		logger.WithContext(ctx).WithError(err).Error()
	}

	cloudTask := gctasks.NewGCTasks(logger, c.GCP.ProjectID, c.GCP.ServiceAccount)

	session := session.NewRedisSessionStore(logger, rc)

	customerSessionMiddleware := internalMiddleare.NewCustomerSessionMiddleware(jsonWebToken, session)

	router := mux.NewRouter()
	router.Use(
		otelmux.Middleware(c.Application.Name),
		middleware.HTTPResponseTraceInjection,
		middleware.NewHTTPRequestLogger(logger, c.Application.Debug, http.StatusInternalServerError).Middleware,
	)

	// customer's app
	customerappEventRepo := customerapp_event.NewEventRepository(logger, psqldb)
	customerappAccessTierRepo := customerapp_event.NewAccessTierRepository(logger, psqldb)
	customerappStockReservationRepo := customerapp_reservation.NewStockReservationRepository(logger, psqldb)
	customerappPaymentIntentRepo := customerapp_payment.NewPaymentIntentRepository(logger, psqldb)
	customerappAccessTicketRepo := customerapp_ticket.NewAccessTicketRepository(logger, psqldb)
	customerappBookingRepo := customerapp_booking.NewBookingRepository(logger, psqldb)
	customerappGuestlistApprovalRepo := customerapp_booking.NewGuestlistApprovalRepository(logger, psqldb)
	customerappPlatformConfigRepo := customerapp_booking.NewPlatformConfigRepository(logger, psqldb, rc, c.Booking.PlatformFeePercentage)
	midtransRepo := midtrans.NewMidtransRepository(c.Midtrans.BaseURL, c.Midtrans.BasicAuthKey, logger, hc)
	fraudRepo := fraud.NewFraudRepository(c.Fraud.BaseURL, c.Fraud.APIKey, logger, hc)

	bookingRateLimiter := ratelimit.NewRedisLimiter(logger, rc, "ratelimit", c.Booking.RateLimitWindow, c.Booking.RateLimitMaxAttempts)

	customerappReservationEngine := customerapp_reservation.NewReservationEngine(customerapp_reservation.ReservationEngineProperty{
		Logger:                     logger,
		TTL:                        c.Booking.Expiration,
		DuplicateWindow:            c.Booking.DuplicateWindow,
		AccessTierRepository:       customerappAccessTierRepo,
		StockReservationRepository: customerappStockReservationRepo,
	})

	customerappIntentLedger := customerapp_payment.NewIntentLedger(logger, customerappPaymentIntentRepo)

	customerappReconciliationUseCase := customerapp_reconciliation.NewReconciliationUseCase(customerapp_reconciliation.ReconciliationUseCaseProperty{
		Logger:                      logger,
		Timeout:                     c.Application.Timeout,
		ServerKey:                   c.Midtrans.ServerKey,
		BookingRepository:           customerappBookingRepo,
		GuestlistApprovalRepository: customerappGuestlistApprovalRepo,
		EventRepository:             customerappEventRepo,
		ReservationEngine:           customerappReservationEngine,
		IntentLedger:                customerappIntentLedger,
		PaymentIntentRepository:     customerappPaymentIntentRepo,
		AccessTicketRepository:      customerappAccessTicketRepo,
		MidtransRepository:          midtransRepo,
		Publisher:                   publisher,
	})

	customerappBookingUseCase := customerapp_booking.NewBookingUseCase(customerapp_booking.BookingUseCaseProperty{
		Logger:                      logger,
		Timeout:                     c.Application.Timeout,
		BaseURL:                     c.Application.TMBooking.BaseURL,
		ExpireDuration:              c.Booking.Expiration,
		PendingRecheckGrace:         c.Booking.PendingRecheckGrace,
		MinTotalAmount:              c.Booking.MinimumTotalAmount,
		MaxTotalAmount:              c.Booking.MaximumTotalAmount,
		GuestlistPlatformFee:        c.Booking.GuestlistPlatformFee,
		MaxTicketPerEvent:           c.Booking.MaxTicketPerEvent,
		EventRepository:             customerappEventRepo,
		AccessTierRepository:        customerappAccessTierRepo,
		ReservationEngine:           customerappReservationEngine,
		IntentLedger:                customerappIntentLedger,
		BookingRepository:           customerappBookingRepo,
		GuestlistApprovalRepository: customerappGuestlistApprovalRepo,
		PlatformConfigRepository:    customerappPlatformConfigRepo,
		AccessTicketRepository:      customerappAccessTicketRepo,
		FraudRepository:             fraudRepo,
		MidtransRepository:          midtransRepo,
		RateLimiter:                 bookingRateLimiter,
		Publisher:                   publisher,
		CloudTask:                   cloudTask,
		Reconciler:                  customerappReconciliationUseCase,
	})

	customerapp_booking.InitHTTPHandler(router, customerSessionMiddleware, validate, customerappBookingUseCase)
	customerapp_reconciliation.InitHTTPHandler(router, customerSessionMiddleware, validate, customerappReconciliationUseCase)

	go sweepExpiredReservations(ctx, logger, customerappReservationEngine)

	handler := middleware.SetChain(
		router,
		cors.New(cors.Options{
			AllowedOrigins:   c.CORS.AllowedOrigins,
			AllowedMethods:   c.CORS.AllowedMethods,
			AllowedHeaders:   c.CORS.AllowedHeaders,
			ExposedHeaders:   c.CORS.ExposedHeaders,
			MaxAge:           c.CORS.MaxAge,
			AllowCredentials: c.CORS.AllowCredentials,
		}).Handler,
	)

	srv := &server.Server{
		Server: http.Server{
			Addr:    fmt.Sprintf(":%d", c.Application.Port),
			Handler: handler,
		},
		Logger: logger,
	}

	go func() {
		srv.ListenAndServe()
	}()

	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, syscall.SIGINT, syscall.SIGTERM)
	<-sigterm

	srv.Shutdown(ctx)
	publisher.Close()
	psqldb.Close()
	rc.Close()
	mon.Stop(ctx)
}

// sweepExpiredReservations periodically releases holds whose TTL lapsed
// without a matching booking outcome.
func sweepExpiredReservations(ctx context.Context, logger *logrus.Logger, engine customerapp_reservation.ReservationEngine) {
	ticker := time.NewTicker(c.Booking.ReservationSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			released, err := engine.ReleaseExpired(ctx, reservationSweepBatch)
			if err != nil {
				logger.WithContext(ctx).WithError(err).Error("reservation sweep failed")
				continue
			}
			if released > 0 {
				logger.WithContext(ctx).WithField("released", released).Info("expired stock reservations released")
			}
		}
	}
}
