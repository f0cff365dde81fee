package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  string
	Environment string

	FirebaseProject            string
	FirebaseServiceAccountJSON string
	FirebaseServiceAccountPath string

	// StoreDriver selects the entity store: "firestore" or "memory".
	StoreDriver string

	RedisAddr     string
	RedisPassword string

	MidtransServerKey   string
	MidtransEnvironment string

	PaymentCurrency    string
	ListingFee         float64
	ContactFee         float64
	CommissionRate     float64
	PaymentCallbackURL string
	PaymentReturnURL   string

	StaleListingTTL           time.Duration
	PaymentRateLimitPerMinute int

	// AllowedOrigins applies to CORS and websocket handshakes; empty allows any origin.
	AllowedOrigins []string

	// DevUsers seeds the memory store, as "uid:role" pairs.
	DevUsers []string
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:                 getEnv("SERVER_PORT", "8080"),
		Environment:                getEnv("ENVIRONMENT", "development"),
		FirebaseProject:            getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		FirebaseServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", "./firebase-adminsdk.json"),
		StoreDriver:                getEnv("STORE_DRIVER", "firestore"),
		RedisAddr:                  getEnv("REDIS_ADDR", ""),
		RedisPassword:              getEnv("REDIS_PASSWORD", ""),
		MidtransServerKey:          getEnv("MIDTRANS_SERVER_KEY", ""),
		MidtransEnvironment:        getEnv("MIDTRANS_ENVIRONMENT", "sandbox"),
		PaymentCurrency:            getEnv("PAYMENT_CURRENCY", "ETB"),
		ListingFee:                 getEnvAsFloat("LISTING_FEE", 100),
		ContactFee:                 getEnvAsFloat("CONTACT_FEE", 50),
		CommissionRate:             getEnvAsFloat("COMMISSION_RATE", 0.01),
		PaymentCallbackURL:         getEnv("PAYMENT_CALLBACK_URL", "http://localhost:8080/v1/payments/webhook"),
		PaymentReturnURL:           getEnv("PAYMENT_RETURN_URL", "http://localhost:3000/payment/complete"),
		StaleListingTTL:            getEnvAsDuration("STALE_LISTING_TTL", 72*time.Hour),
		PaymentRateLimitPerMinute:  int(getEnvAsInt64("PAYMENT_RATE_LIMIT_PER_MINUTE", 10)),
		AllowedOrigins:             getEnvAsList("ALLOWED_ORIGINS"),
		DevUsers:                   getEnvAsList("DEV_USERS"),
	}

	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		floatValue, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
