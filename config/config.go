package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Application struct {
		Name        string        `envconfig:"APPLICATION_NAME" default:"tm-booking"`
		Environment string        `envconfig:"APPLICATION_ENVIRONMENT" default:"development"`
		Port        int           `envconfig:"APPLICATION_PORT" default:"9000"`
		Timeout     time.Duration `envconfig:"APPLICATION_TIMEOUT" default:"30s"`
		Debug       bool          `envconfig:"APPLICATION_DEBUG" default:"false"`
		TMBooking   struct {
			BaseURL string `envconfig:"APPLICATION_TM_BOOKING_BASE_URL"`
		}
	}

	JWT struct {
		PrivateKey string `envconfig:"JWT_PRIVATE_KEY"`
		PublicKey  string `envconfig:"JWT_PUBLIC_KEY"`
	}

	PostgreSQL struct {
		DSN             string        `envconfig:"POSTGRESQL_DSN"`
		MaxOpenConns    int           `envconfig:"POSTGRESQL_MAX_OPEN_CONNS" default:"25"`
		MaxIdleConns    int           `envconfig:"POSTGRESQL_MAX_IDLE_CONNS" default:"5"`
		ConnMaxLifetime time.Duration `envconfig:"POSTGRESQL_CONN_MAX_LIFETIME" default:"30m"`
	}

	Redis struct {
		Address  string `envconfig:"REDIS_ADDRESS" default:"localhost:6379"`
		Password string `envconfig:"REDIS_PASSWORD"`
		DB       int    `envconfig:"REDIS_DB" default:"0"`
	}

	Kafka struct {
		BootstrapServers string `envconfig:"KAFKA_BOOTSTRAP_SERVERS" default:"localhost:9092"`
		SASLUsername     string `envconfig:"KAFKA_SASL_USERNAME"`
		SASLPassword     string `envconfig:"KAFKA_SASL_PASSWORD"`
	}

	GCP struct {
		ProjectID      string `envconfig:"GCP_PROJECT_ID"`
		ServiceAccount []byte `envconfig:"GCP_SERVICE_ACCOUNT"`
	}

	Midtrans struct {
		BaseURL      string `envconfig:"MIDTRANS_BASE_URL"`
		BasicAuthKey string `envconfig:"MIDTRANS_BASIC_AUTH_KEY"`
		ServerKey    string `envconfig:"MIDTRANS_SERVER_KEY"`
	}

	Fraud struct {
		BaseURL string `envconfig:"FRAUD_BASE_URL"`
		APIKey  string `envconfig:"FRAUD_API_KEY"`
	}

	Booking struct {
		Expiration               time.Duration `envconfig:"BOOKING_EXPIRATION" default:"30m"`
		PlatformFeePercentage    float64       `envconfig:"BOOKING_PLATFORM_FEE_PERCENTAGE" default:"5"`
		TaxPercentage            float64       `envconfig:"BOOKING_TAX_PERCENTAGE" default:"11"`
		MinimumTotalAmount       float64       `envconfig:"BOOKING_MINIMUM_TOTAL_AMOUNT" default:"0"`
		MaximumTotalAmount       float64       `envconfig:"BOOKING_MAXIMUM_TOTAL_AMOUNT" default:"100000000"`
		MaxTicketPerEvent        int64         `envconfig:"BOOKING_MAX_TICKET_PER_EVENT" default:"4"`
		GuestlistPlatformFee     float64       `envconfig:"BOOKING_GUESTLIST_PLATFORM_FEE" default:"10000"`
		DuplicateWindow          time.Duration `envconfig:"BOOKING_DUPLICATE_WINDOW" default:"60s"`
		PendingRecheckGrace      time.Duration `envconfig:"BOOKING_PENDING_RECHECK_GRACE" default:"5m"`
		RateLimitWindow          time.Duration `envconfig:"BOOKING_RATE_LIMIT_WINDOW" default:"1m"`
		RateLimitMaxAttempts     int64         `envconfig:"BOOKING_RATE_LIMIT_MAX_ATTEMPTS" default:"10"`
		ReservationSweepInterval time.Duration `envconfig:"BOOKING_RESERVATION_SWEEP_INTERVAL" default:"1m"`
	}

	CORS struct {
		AllowedOrigins   []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
		AllowedMethods   []string `envconfig:"CORS_ALLOWED_METHODS" default:"GET,POST,PUT,DELETE,OPTIONS"`
		AllowedHeaders   []string `envconfig:"CORS_ALLOWED_HEADERS" default:"*"`
		ExposedHeaders   []string `envconfig:"CORS_EXPOSED_HEADERS"`
		MaxAge           int      `envconfig:"CORS_MAX_AGE" default:"3600"`
		AllowCredentials bool     `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	}
}

var (
	once sync.Once
	c    *Config
)

func Get() *Config {
	once.Do(func() {
		_ = godotenv.Load()

		c = &Config{}
		if err := envconfig.Process("", c); err != nil {
			panic(err)
		}
	})

	return c
}
