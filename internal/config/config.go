package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the service reads from the environment.
// Required keys are validated once at startup; a missing key is fatal.
type Config struct {
	SecretKey string
	MongoURI  string
	Database  string

	AdminUsername string
	AdminEmail    string
	AdminPassword string
	SetupKey      string

	SMTPServer   string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	SMSAPIURL       string
	SMSAPIKey       string
	WhatsAppAPIURL  string
	WhatsAppAPIKey  string
	OutboundTimeout time.Duration

	Enable2FA      bool
	OTPEmailBypass bool

	BaseURL string
	Port    string
	Env     string
}

// Load reads configuration from the environment, preceded by a best-effort
// .env load for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		SecretKey: os.Getenv("SECRET_KEY"),
		MongoURI:  os.Getenv("MONGO_URI"),
		Database:  getEnv("MONGO_DB", "ficodb"),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "ficore@gmail.com"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SetupKey:      os.Getenv("SETUP_KEY"),

		SMTPServer:   os.Getenv("SMTP_SERVER"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),

		SMSAPIURL:       os.Getenv("SMS_API_URL"),
		SMSAPIKey:       os.Getenv("SMS_API_KEY"),
		WhatsAppAPIURL:  os.Getenv("WHATSAPP_API_URL"),
		WhatsAppAPIKey:  os.Getenv("WHATSAPP_API_KEY"),
		OutboundTimeout: 10 * time.Second,

		Enable2FA:      getEnvBool("ENABLE_2FA", true),
		OTPEmailBypass: getEnvBool("OTP_EMAIL_BYPASS", true),

		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),
		Port:    getEnv("PORT", "8080"),
		Env:     getEnv("ENV", "development"),
	}

	var missing []string
	for key, val := range map[string]string{
		"SECRET_KEY":     cfg.SecretKey,
		"MONGO_URI":      cfg.MongoURI,
		"ADMIN_PASSWORD": cfg.AdminPassword,
		"SETUP_KEY":      cfg.SetupKey,
	} {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.ToLower(os.Getenv(key))
	switch v {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
