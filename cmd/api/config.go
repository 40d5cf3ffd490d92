package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"qrclock/internal/mailer"
	"qrclock/internal/ratelimiter"
	"qrclock/internal/recorder"
)

type config struct {
	addr                  string
	db                    dbConfig
	env                   string
	apiURL                string
	frontendURL           string
	mail                  mailConfig
	auth                  authConfig
	owner                 ownerConfig
	qr                    qrConfig
	scan                  scanConfig
	rateLimiter           ratelimiter.Config
	cloudinaryURL         string
	allowSelfRegistration bool
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}

type tokenConfig struct {
	secret string
	exp    time.Duration
	iss    string
}

type basicConfig struct {
	user string
	pass string
}

type mailConfig struct {
	enabled bool
	smtp    mailer.SMTPConfig
}

type dbConfig struct {
	driver       string
	addr         string
	maxOpenConns int
	maxIdleTime  string
}

type ownerConfig struct {
	username string
	password string
}

type qrConfig struct {
	secret string
}

type scanConfig struct {
	cooldown time.Duration
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
		fmt.Printf("Invalid %s, defaulting to %d\n", key, fallback)
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
		fmt.Printf("Invalid %s, defaulting to %v\n", key, fallback)
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
		fmt.Printf("Invalid %s, defaulting to %s\n", key, fallback)
	}
	return fallback
}

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	return ratelimiter.Config{
		RequestsPerTimeFrame: envInt("RATELIMITER_REQUESTS_COUNT", 20),
		TimeFrame:            envDuration("RATELIMITER_TIME_FRAME", 5*time.Second),
		Enabled:              envBool("RATE_LIMITER_ENABLED", true),
	}
}

const (
	defaultTokenSecret = "change-me"
	defaultQRSecret    = "change-me-too"
	defaultBasicPass   = "admin"
)

// insecureDefaults names the secrets still set to their built-in values.
func (c config) insecureDefaults() []string {
	var out []string
	if c.auth.token.secret == defaultTokenSecret {
		out = append(out, "AUTH_TOKEN_SECRET")
	}
	if c.qr.secret == defaultQRSecret {
		out = append(out, "QR_SECRET")
	}
	if c.auth.basic.pass == defaultBasicPass {
		out = append(out, "AUTH_BASIC_PASS")
	}
	return out
}

// validate refuses built-in secrets outside development and test.
func (c config) validate() error {
	if c.env == "development" || c.env == "test" {
		return nil
	}
	if names := c.insecureDefaults(); len(names) > 0 {
		return fmt.Errorf("env %q: %s must be set", c.env, strings.Join(names, ", "))
	}
	return nil
}

func loadConfig() config {
	smtpHost := os.Getenv("SMTP_HOST")

	return config{
		addr:        envString("ADDR", ":8080"),
		env:         envString("ENV", "development"),
		apiURL:      envString("EXTERNAL_URL", "localhost:8080"),
		frontendURL: envString("FRONTEND_URL", "http://localhost:3000"),
		db: dbConfig{
			driver:       envString("STORE_DRIVER", "memory"),
			addr:         os.Getenv("DB_ADDR"),
			maxOpenConns: envInt("DB_MAX_OPEN_CONNS", 30),
			maxIdleTime:  envString("DB_MAX_IDLE_TIME", "15m"),
		},
		mail: mailConfig{
			enabled: smtpHost != "",
			smtp: mailer.SMTPConfig{
				Host:      smtpHost,
				Port:      envInt("SMTP_PORT", 587),
				Username:  os.Getenv("SMTP_USERNAME"),
				Password:  os.Getenv("SMTP_PASSWORD"),
				FromEmail: envString("MAIL_FROM_EMAIL", "noreply@qrclock.local"),
			},
		},
		auth: authConfig{
			basic: basicConfig{
				user: envString("AUTH_BASIC_USER", "admin"),
				pass: envString("AUTH_BASIC_PASS", defaultBasicPass),
			},
			token: tokenConfig{
				secret: envString("AUTH_TOKEN_SECRET", defaultTokenSecret),
				exp:    envDuration("AUTH_TOKEN_TTL", 24*time.Hour),
				iss:    "qrclock",
			},
		},
		owner: ownerConfig{
			username: envString("OWNER_USERNAME", "owner"),
			password: envString("OWNER_PASSWORD", "owner123"),
		},
		qr: qrConfig{
			secret: envString("QR_SECRET", defaultQRSecret),
		},
		scan: scanConfig{
			cooldown: envDuration("SCAN_COOLDOWN", recorder.DefaultCooldown),
		},
		rateLimiter:           LoadRateLimiterConfig(),
		cloudinaryURL:         os.Getenv("CLOUDINARY_URL"),
		allowSelfRegistration: envBool("ALLOW_SELF_REGISTRATION", false),
	}
}
