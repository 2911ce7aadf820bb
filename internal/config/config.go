package config

import (
	"os"
	"strconv"
	"time"

	"shopify-insights-core/internal/domain"
)

// Config holds every setting the service reads from the environment.
// Load validates the required ones up front so a misconfigured process fails
// at startup instead of on the first request.
type Config struct {
	Port       string
	AppURL     string
	CORSOrigin string

	MongoURI      string
	MongoDatabase string
	RedisAddr     string

	ShopifyAPIKey    string
	ShopifyAPISecret string
	ShopifyScopes    string

	// SkipWebhookVerify disables HMAC verification. Development only;
	// defaults to off.
	SkipWebhookVerify bool

	AutoSyncEnabled            bool
	AutoSyncInterval           time.Duration
	AutoRegisterWebhooksOnBoot bool
}

// Load reads and validates the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getenv("PORT", "4000"),
		CORSOrigin:       getenv("CORS_ORIGIN", "http://localhost:3000"),
		MongoURI:         getenv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:    getenv("MONGODB_DATABASE", "shopify_insights"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		ShopifyAPIKey:    os.Getenv("SHOPIFY_API_KEY"),
		ShopifyAPISecret: os.Getenv("SHOPIFY_API_SECRET"),
		ShopifyScopes:    getenv("SHOPIFY_SCOPES", "read_products,read_orders,read_customers"),

		SkipWebhookVerify:          boolenv("SHOPIFY_SKIP_WEBHOOK_VERIFY"),
		AutoSyncEnabled:            boolenv("AUTO_SYNC_ENABLED"),
		AutoRegisterWebhooksOnBoot: boolenv("AUTO_REGISTER_WEBHOOKS_ON_BOOT"),
	}
	cfg.AppURL = getenv("SHOPIFY_APP_URL", "http://localhost:"+cfg.Port)

	cfg.AutoSyncInterval = syncInterval()

	if cfg.ShopifyAPIKey == "" {
		return nil, &domain.ConfigError{Setting: "SHOPIFY_API_KEY", Reason: "must be set"}
	}
	if cfg.ShopifyAPISecret == "" {
		return nil, &domain.ConfigError{Setting: "SHOPIFY_API_SECRET", Reason: "must be set"}
	}
	if cfg.AutoSyncEnabled && cfg.AutoSyncInterval <= 0 {
		return nil, &domain.ConfigError{Setting: "AUTO_SYNC_MINUTES", Reason: "must be positive when AUTO_SYNC_ENABLED is true"}
	}
	return cfg, nil
}

// syncInterval resolves the sweep interval: AUTO_SYNC_SECONDS wins when
// positive, otherwise AUTO_SYNC_MINUTES (default 5).
func syncInterval() time.Duration {
	if secs, err := strconv.Atoi(os.Getenv("AUTO_SYNC_SECONDS")); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	minutes := 5
	if m, err := strconv.Atoi(os.Getenv("AUTO_SYNC_MINUTES")); err == nil {
		minutes = m
	}
	return time.Duration(minutes) * time.Minute
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolenv(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
