package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port         string
	GinMode      string
	TemplateGlob string
	StaticDir    string
	DatabasePath string
	// Relay
	RelayDriver       string // "emailjs" or "smtp"
	RelayTimeout      time.Duration
	EmailJSPublicKey  string
	EmailJSPrivateKey string
	EmailJSServiceID  string
	EmailJSTemplateID string
	EmailJSEndpoint   string
	// SMTP fallback relay
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	ContactTo    string
	// Static payload fields and failure copy
	ContactToName   string
	ContactFallback string
	FormTTL         time.Duration
	// Redis (optional, rate limiting only)
	RedisURL      string
	RedisPassword string
	// Contact rate limiting
	ContactRateLimit  int
	ContactRateWindow time.Duration
	// Admin
	AdminUsername   string
	AdminPassword   string
	AdminJWTSecret  string
	AdminSessionTTL time.Duration
	VisitorTracking bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		GinMode:      getEnv("GIN_MODE", "debug"),
		TemplateGlob: getEnv("TEMPLATE_GLOB", "templates/*"),
		StaticDir:    getEnv("STATIC_DIR", "./static"),
		DatabasePath: getEnv("DATABASE_PATH", "portfolio.db"),

		RelayDriver:       strings.ToLower(getEnv("RELAY_DRIVER", "emailjs")),
		RelayTimeout:      getEnvDuration("RELAY_TIMEOUT", 0),
		EmailJSPublicKey:  getEnv("EMAILJS_PUBLIC_KEY", "YOUR_PUBLIC_KEY"),
		EmailJSPrivateKey: getEnv("EMAILJS_PRIVATE_KEY", ""),
		EmailJSServiceID:  getEnv("EMAILJS_SERVICE_ID", "YOUR_SERVICE_ID"),
		EmailJSTemplateID: getEnv("EMAILJS_TEMPLATE_ID", "YOUR_TEMPLATE_ID"),
		EmailJSEndpoint:   strings.TrimRight(getEnv("EMAILJS_ENDPOINT", "https://api.emailjs.com"), "/"),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASS", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		ContactTo:    getEnv("TO_EMAIL", "sahilbhatkande@gmail.com"),

		ContactToName:   getEnv("CONTACT_TO_NAME", "Sahil Bhatkande"),
		ContactFallback: getEnv("CONTACT_FALLBACK_EMAIL", "sahilbhatkande@gmail.com"),
		FormTTL:         getEnvDuration("FORM_TTL", 2*time.Hour),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		ContactRateLimit:  getEnvInt("CONTACT_RATE_LIMIT", 5),
		ContactRateWindow: getEnvDuration("CONTACT_RATE_WINDOW", 10*time.Minute),

		AdminUsername:   getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:   getEnv("ADMIN_PASSWORD", ""),
		AdminJWTSecret:  getEnv("ADMIN_JWT_SECRET", ""),
		AdminSessionTTL: getEnvDuration("ADMIN_SESSION_TTL", 24*time.Hour),
		VisitorTracking: getEnvBool("VISITOR_TRACKING", true),
	}

	if cfg.RelayDriver == "emailjs" && strings.HasPrefix(cfg.EmailJSPublicKey, "YOUR_") {
		log.Println("WARNING: EMAILJS_PUBLIC_KEY is a placeholder. Contact form sends will fail.")
	}
	if cfg.RelayDriver == "smtp" && (cfg.SMTPUsername == "" || cfg.SMTPPassword == "") {
		log.Println("WARNING: SMTP_USER/SMTP_PASS not set. Contact form sends will fail.")
	}
	if cfg.AdminPassword == "" {
		log.Println("WARNING: ADMIN_PASSWORD not set. Admin login is disabled.")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("15s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
