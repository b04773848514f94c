package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses durations for background job intervals
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs, time.Duration for job intervals.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	DBMaxConns     int    // connection pool ceiling
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	BackendURL     string // public base URL used in activation/reset links

	// Payment provider settings.  The API key authenticates server-side
	// calls; the webhook secret verifies inbound callback signatures.
	PaymentAPIURL        string // base URL of the hosted payment API
	PaymentAPIKey        string // secret API key for session creation
	PaymentWebhookSecret string // shared secret for webhook signatures
	CheckoutSuccessURL   string // redirect target after successful payment
	CheckoutCancelURL    string // redirect target after aborted payment

	// Email settings.  Messages are sent through AWS SES by the worker.
	EmailFrom          string // sender address for outbound mail
	AWSRegion          string // SES region
	AWSAccessKeyID     string // optional static credentials; falls back to the
	AWSSecretAccessKey string // default AWS credential chain when empty

	// Background job settings consumed by cmd/worker.
	OrderExpireAfter   time.Duration // pending orders older than this are expired
	OrderSweepInterval time.Duration // how often the expiration sweep runs
	TokenCleanupEvery  time.Duration // how often expired auth tokens are removed
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		DBMaxConns:     atoi(getenv("DB_MAX_CONNS", "25")),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		BackendURL:     getenv("BACKEND_URL", "http://localhost:8080"),

		PaymentAPIURL:        getenv("PAYMENT_API_URL", "https://api.payments.example.com/v1"),
		PaymentAPIKey:        must("PAYMENT_API_KEY"),
		PaymentWebhookSecret: must("PAYMENT_WEBHOOK_SECRET"),
		CheckoutSuccessURL:   getenv("CHECKOUT_SUCCESS_URL", "http://localhost:8080/v1/orders"),
		CheckoutCancelURL:    getenv("CHECKOUT_CANCEL_URL", "http://localhost:8080/v1/cart"),

		EmailFrom:          must("EMAIL_FROM"),
		AWSRegion:          getenv("AWS_REGION", "eu-central-1"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),

		// The expiration window must exceed the provider's typical webhook
		// latency, otherwise paid orders could be expired before the
		// callback lands.
		OrderExpireAfter:   parseDur(getenv("ORDER_EXPIRE_AFTER", "60m")),
		OrderSweepInterval: parseDur(getenv("ORDER_SWEEP_INTERVAL", "5m")),
		TokenCleanupEvery:  parseDur(getenv("TOKEN_CLEANUP_EVERY", "3m")),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
