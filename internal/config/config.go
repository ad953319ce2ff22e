package config

import (
	"os"
	"strings"
	"time"
)

const devSecretKey = "dev-secret-change-me"

type Config struct {
	Environment string // ENV: production, development, etc.
	Port        string
	PublicURL   string // Base URL used in confirmation links
	AllowedHost string // Hostname only for strict host check (production only)

	MongoURI   string
	RedisURI   string
	SecretKey  string
	SessionTTL time.Duration

	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)

	SendGridAPIKey string
	MailSender     string
	MailSenderName string

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	UploadFolder        string
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	publicURL := strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8080"), "/")

	// AllowedHost is only set in production; host check is skipped in development
	var allowedHost string
	if env == "production" {
		allowedHost = hostname(publicURL)
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" && !containsOrigin(allowedOrigins, u) {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}

	return &Config{
		Environment:         env,
		Port:                getEnv("PORT", "8080"),
		PublicURL:           publicURL,
		AllowedHost:         allowedHost,
		MongoURI:            getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/visiting_card_app")),
		RedisURI:            getEnv("REDIS_URI", "redis://localhost:6379/0"),
		SecretKey:           getEnv("SECRET_KEY", devSecretKey),
		SessionTTL:          getDuration("SESSION_TTL", 7*24*time.Hour),
		AllowedOrigins:      allowedOrigins,
		SendGridAPIKey:      getEnv("SENDGRID_API_KEY", ""),
		MailSender:          getEnv("MAIL_DEFAULT_SENDER", "noreply@example.com"),
		MailSenderName:      getEnv("MAIL_SENDER_NAME", "Visiting Cards"),
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		UploadFolder:        getEnv("UPLOAD_FOLDER", "visiting_cards"),
	}
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// UsesDevSecret reports whether SECRET_KEY was left at its placeholder.
func (c *Config) UsesDevSecret() bool {
	return c.SecretKey == devSecretKey
}

// UploadsEnabled reports whether Cloudinary credentials are complete.
func (c *Config) UploadsEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func hostname(rawURL string) string {
	host := rawURL
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return strings.TrimSpace(host)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
