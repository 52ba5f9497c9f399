package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	Env         string
	Port        string
	BaseURL     string
	DatabaseURL string

	OIDCIssuer    string
	ClientID      string
	ClientSecret  string
	SessionSecret string
	SessionTTL    time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	NATSURL        string
	AdminAPIKey    string
	CORSOrigin     string
	RateLimitWrite int

	LogLevel  string
	LogFormat string

	MigrationsPath string
	AllowOverdraft bool
}

// Load reads configuration from the environment. Outside production a .env
// file in the working directory is loaded first, without overriding
// variables that are already set.
func Load() (Config, error) {
	env := strings.ToLower(get("ENV", "dev"))
	if env != "production" {
		_ = godotenv.Load()
		env = strings.ToLower(get("ENV", "dev"))
	}

	c := Config{
		Env:         env,
		Port:        get("PORT", "8080"),
		DatabaseURL: get("DATABASE_URL", ""),

		ClientID:     get("CLIENT_ID", ""),
		ClientSecret: get("CLIENT_SECRET", ""),

		SMTPHost:     get("SMTP_HOST", ""),
		SMTPPort:     getInt("SMTP_PORT", 587),
		SMTPUser:     get("SMTP_USER", ""),
		SMTPPassword: get("SMTP_PASSWORD", get("GMAIL_PASSWORD", "")),
		MailFrom:     get("MAIL_FROM", ""),

		NATSURL:        get("NATS_URL", ""),
		AdminAPIKey:    get("ADMIN_API_KEY", ""),
		CORSOrigin:     get("CORS_ORIGIN", "*"),
		RateLimitWrite: getInt("RATE_LIMIT_WRITE_MAX", 60),

		LogLevel:  get("LOG_LEVEL", "info"),
		LogFormat: get("LOG_FORMAT", ""),

		SessionTTL:     time.Duration(getInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		MigrationsPath: get("MIGRATIONS_PATH", "migrations/migrations.sql"),
		AllowOverdraft: !strings.EqualFold(get("ALLOW_OVERDRAFT", "true"), "false"),
	}

	c.BaseURL = strings.TrimRight(get("BASE_URL", "http://localhost:"+c.Port), "/")

	c.OIDCIssuer = get("OIDC_ISSUER", "")
	if c.OIDCIssuer == "" {
		if domain := get("AUTH0_DOMAIN", ""); domain != "" {
			c.OIDCIssuer = "https://" + domain + "/"
		}
	}

	c.SessionSecret = get("SESSION_SECRET", c.ClientSecret)
	if c.SessionSecret == "" {
		if c.IsProduction() {
			return Config{}, fmt.Errorf("SESSION_SECRET or CLIENT_SECRET must be set in production")
		}
		c.SessionSecret = "dev-session-secret-change-me"
	}

	if c.IsProduction() && c.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is not set")
	}
	return c, nil
}

func (c Config) IsProduction() bool { return c.Env == "production" }

// OIDCEnabled reports whether a real identity provider is configured.
func (c Config) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.ClientID != ""
}

// NewLogger builds the process logger. JSON is the default in production,
// console output elsewhere.
func (c Config) NewLogger() zerolog.Logger {
	return newLogger(os.Stdout, c.LogLevel, c.LogFormat, c.IsProduction())
}

func newLogger(w io.Writer, level, format string, production bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if format == "" {
		format = "console"
		if production {
			format = "json"
		}
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func get(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}
