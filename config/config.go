package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ventasimple/license-api/models"
)

// DefaultOfflineTTL is the validity window embedded in offline credentials
// when LICENSE_OFFLINE_TTL_SEC is not set.
const DefaultOfflineTTL = 72 * time.Hour

// Config holds the project config values
type Config struct {
	URL          string
	DatabaseName string
	BaseURL      string
	Port         string

	FrontendURL         string
	PublicReturnURLBase string
	WebhookPublicURL    string

	MPAccessToken string
	MPCurrency    string
	PriceSingle   int64
	PriceMulti    int64

	LicensePrivateKeyB64 string
	LicensePublicKeyB64  string
	OfflineTTL           time.Duration

	SendgridAPIKey string
	ReminderFrom   string
}

// New sets up all config related services
func New() *Config {

	//setup zap logger and replace default logger
	logger := zap.NewExample()
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:          os.Getenv("DB_URI"),
		DatabaseName: os.Getenv("DB_NAME"),
		BaseURL:      os.Getenv("BASE_URL"),
		Port:         os.Getenv("PORT"),

		FrontendURL:         envOr("FRONTEND_URL", "http://localhost:5173"),
		PublicReturnURLBase: os.Getenv("PUBLIC_RETURN_URL_BASE"),
		WebhookPublicURL:    os.Getenv("WEBHOOK_PUBLIC_URL"),

		MPAccessToken: os.Getenv("MP_ACCESS_TOKEN"),
		MPCurrency:    envOr("MP_CURRENCY", "ARS"),
		PriceSingle:   envInt64("PRICE_SINGLE", 2999),
		PriceMulti:    envInt64("PRICE_MULTI", 4499),

		LicensePrivateKeyB64: os.Getenv("LICENSE_PRIVATE_KEY_B64"),
		LicensePublicKeyB64:  os.Getenv("LICENSE_PUBLIC_KEY_B64"),
		OfflineTTL:           envSeconds("LICENSE_OFFLINE_TTL_SEC", DefaultOfflineTTL),

		SendgridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		ReminderFrom:   os.Getenv("REMINDER_FROM_EMAIL"),
	}

}

// Validate reports missing required configuration. The caller must treat a
// non-nil error as fatal before serving any traffic, so the service never
// runs without a signing key pair or billing credentials.
func (c *Config) Validate() error {
	missing := []string{}
	if c.URL == "" {
		missing = append(missing, "DB_URI")
	}
	if c.DatabaseName == "" {
		missing = append(missing, "DB_NAME")
	}
	if c.MPAccessToken == "" {
		missing = append(missing, "MP_ACCESS_TOKEN")
	}
	if c.LicensePrivateKeyB64 == "" {
		missing = append(missing, "LICENSE_PRIVATE_KEY_B64")
	}
	if c.LicensePublicKeyB64 == "" {
		missing = append(missing, "LICENSE_PUBLIC_KEY_B64")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v", missing)
	}
	return nil
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	w.WriteHeader(httpStatusCode)
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	b, _ := json.Marshal(models.ErrorMessageResponse{Response: models.MessageError{Message: message, Error: errMsg}})
	w.Write(b)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		zap.S().Warnw("invalid integer in env, using default", "key", key, "value", v)
		return fallback
	}
	return n
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		zap.S().Warnw("invalid seconds in env, using default", "key", key, "value", v)
		return fallback
	}
	return time.Duration(n) * time.Second
}
