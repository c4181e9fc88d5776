package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPPort       string
	PostgresDSN    string
	JWTSecret      string
	AccessTokenTTL time.Duration
	RedisAddr      string
	KafkaBrokers   string

	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnMaxIdle  time.Duration
	DBConnMaxLife  time.Duration
	RequestTimeout time.Duration

	// M-Pesa daraja credentials and endpoints.
	MpesaBaseURL        string
	MpesaConsumerKey    string
	MpesaConsumerSecret string
	MpesaShortCode      string
	MpesaPasskey        string
	MpesaCallbackURL    string

	// Flat fee charged per application, in KES.
	ApplicationFee float64

	// Stuck-pending payment reconciliation.
	ReconcileInterval time.Duration
	ReconcileAfter    time.Duration

	// External job feed credentials.
	AdzunaAppID  string
	AdzunaAppKey string
	JoobleAPIKey string
}

func Load() *Config {
	cfg := &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		PostgresDSN:    getEnv("DATABASE_URL", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		AccessTokenTTL: getDuration("ACCESS_TOKEN_TTL", 7*24*time.Hour),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		KafkaBrokers:   getEnv("KAFKA_BROKERS", ""),

		DBMaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getInt("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxIdle:  getDuration("DB_CONN_MAX_IDLE", 5*time.Minute),
		DBConnMaxLife:  getDuration("DB_CONN_MAX_LIFE", 30*time.Minute),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 10*time.Second),

		MpesaBaseURL:        getEnv("MPESA_API_URL", "https://sandbox.safaricom.co.ke"),
		MpesaConsumerKey:    getEnv("MPESA_CONSUMER_KEY", ""),
		MpesaConsumerSecret: getEnv("MPESA_CONSUMER_SECRET", ""),
		MpesaShortCode:      getEnv("MPESA_SHORTCODE", ""),
		MpesaPasskey:        getEnv("MPESA_PASSKEY", ""),
		MpesaCallbackURL:    getEnv("MPESA_CALLBACK_URL", ""),

		ApplicationFee: getFloat("APPLICATION_FEE", 350),

		ReconcileInterval: getDuration("PAYMENT_RECONCILE_INTERVAL", 30*time.Second),
		ReconcileAfter:    getDuration("PAYMENT_RECONCILE_AFTER", 90*time.Second),

		AdzunaAppID:  getEnv("ADZUNA_APP_ID", ""),
		AdzunaAppKey: getEnv("ADZUNA_APP_KEY", ""),
		JoobleAPIKey: getEnv("JOOBLE_API_KEY", ""),
	}

	if cfg.PostgresDSN == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	if cfg.MpesaConsumerKey == "" || cfg.MpesaConsumerSecret == "" {
		log.Fatal("MPESA_CONSUMER_KEY and MPESA_CONSUMER_SECRET are required")
	}
	if cfg.MpesaShortCode == "" || cfg.MpesaPasskey == "" {
		log.Fatal("MPESA_SHORTCODE and MPESA_PASSKEY are required")
	}
	if cfg.MpesaCallbackURL == "" {
		log.Fatal("MPESA_CALLBACK_URL is required")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
