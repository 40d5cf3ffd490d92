package main

import (
	"context"
	"expvar"
	"fmt"
	"os"
	"runtime"
	"time"

	"qrclock/internal/auth"
	"qrclock/internal/badge"
	"qrclock/internal/db"
	"qrclock/internal/domain/storage"
	"qrclock/internal/domain/storage/memstore"
	"qrclock/internal/mailer"
	"qrclock/internal/ratelimiter"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
	core := zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), zapcore.InfoLevel)

	return zap.New(core).Sugar(), nil
}

var version = "0.3.0"

//	@title			qrclock API
//	@description	Multi-tenant QR attendance service.

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

//	@securityDefinitions.basic	BasicAuth

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Println("Error loading .env file:", err)
	}
	cfg := loadConfig()

	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	for _, name := range cfg.insecureDefaults() {
		logger.Warnw("using built-in default secret", "setting", name, "env", cfg.env)
	}
	if err := cfg.validate(); err != nil {
		logger.Fatal(err)
	}

	var store *storage.Container
	switch cfg.db.driver {
	case "postgres":
		pool, err := db.New(cfg.db.addr, int32(cfg.db.maxOpenConns), cfg.db.maxIdleTime)
		if err != nil {
			logger.Fatal(err)
		}
		defer pool.Close()
		logger.Info("database connection pool established")

		store = storage.NewContainer(pool)
		expvar.Publish("database", expvar.Func(func() any {
			s := pool.Stat()
			return map[string]int32{
				"total_conns":    s.TotalConns(),
				"idle_conns":     s.IdleConns(),
				"acquired_conns": s.AcquiredConns(),
			}
		}))
	case "memory":
		store = memstore.New()
		logger.Warn("using in-memory store, data is lost on restart")
	default:
		logger.Fatalf("unknown STORE_DRIVER %q", cfg.db.driver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureOwner(ctx, store, cfg.owner, logger); err != nil {
		cancel()
		logger.Fatal(err)
	}
	cancel()

	var mail mailer.Client
	if cfg.mail.enabled {
		smtp, err := mailer.NewSMTPClient(cfg.mail.smtp)
		if err != nil {
			logger.Fatal(err)
		}
		mail = smtp
	}

	var host badge.Host
	if cfg.cloudinaryURL != "" {
		cld, err := badge.NewCloudinaryHost(cfg.cloudinaryURL)
		if err != nil {
			logger.Fatal(err)
		}
		host = cld
	}

	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.exp,
		cfg.auth.token.iss,
		cfg.auth.token.iss,
	)

	app := newApplication(cfg, store, logger, jwtAuthenticator, rateLimiter, mail, host)

	//Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
