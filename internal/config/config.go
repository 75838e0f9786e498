package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	AuthJWTSecret string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string

	// WebhookSecret signs push-style payment webhooks (hex HMAC-SHA256 over the
	// raw body). Empty secret is refused in production.
	WebhookSecret string

	// PendingPaymentTTLMinutes bounds how long a payment may sit in pending
	// before the sweeper marks it failed.
	PendingPaymentTTLMinutes int

	Bkash      BkashConfig
	SSLCommerz SSLCommerzConfig
}

// BkashConfig carries the tokenized-checkout credentials for bKash.
type BkashConfig struct {
	BaseURL     string
	Username    string
	Password    string
	AppKey      string
	AppSecret   string
	CallbackURL string
}

// SSLCommerzConfig carries the per-merchant credentials for SSLCommerz.
type SSLCommerzConfig struct {
	StoreID       string
	StorePassword string
	Sandbox       bool
	SuccessURL    string
	FailURL       string
	CancelURL     string
	IPNURL        string
}

var Module = fx.Provide(Load)

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "pathshala"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "pathshala"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		WebhookSecret: strings.TrimSpace(getenv("PAYMENT_WEBHOOK_SECRET", "")),

		PendingPaymentTTLMinutes: getenvInt("PENDING_PAYMENT_TTL_MINUTES", 60),

		Bkash: BkashConfig{
			BaseURL:     getenv("BKASH_BASE_URL", "https://tokenized.sandbox.bka.sh"),
			Username:    strings.TrimSpace(getenv("BKASH_USERNAME", "")),
			Password:    strings.TrimSpace(getenv("BKASH_PASSWORD", "")),
			AppKey:      strings.TrimSpace(getenv("BKASH_APP_KEY", "")),
			AppSecret:   strings.TrimSpace(getenv("BKASH_APP_SECRET", "")),
			CallbackURL: getenv("BKASH_CALLBACK_URL", ""),
		},
		SSLCommerz: SSLCommerzConfig{
			StoreID:       strings.TrimSpace(getenv("SSLCOMMERZ_STORE_ID", "")),
			StorePassword: strings.TrimSpace(getenv("SSLCOMMERZ_STORE_PASSWORD", "")),
			Sandbox:       getenvBool("SSLCOMMERZ_SANDBOX", true),
			SuccessURL:    getenv("SSLCOMMERZ_SUCCESS_URL", ""),
			FailURL:       getenv("SSLCOMMERZ_FAIL_URL", ""),
			CancelURL:     getenv("SSLCOMMERZ_CANCEL_URL", ""),
			IPNURL:        getenv("SSLCOMMERZ_IPN_URL", ""),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
