package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qrclock/docs" //this is required to generate swagger docs
	"qrclock/internal/auth"
	"qrclock/internal/badge"
	"qrclock/internal/domain/accounts"
	"qrclock/internal/domain/storage"
	"qrclock/internal/mailer"
	"qrclock/internal/qrcode"
	"qrclock/internal/ratelimiter"
	"qrclock/internal/recorder"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type application struct {
	config        config
	store         *storage.Container
	logger        *zap.SugaredLogger
	mailer        mailer.Client
	badges        badge.Host
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter
	issuer        *qrcode.Issuer
	recorder      *recorder.Recorder
}

// newApplication wires the services on top of a store. mail and host may be
// nil, which disables welcome mails and hosted badges.
func newApplication(
	cfg config,
	store *storage.Container,
	logger *zap.SugaredLogger,
	authenticator auth.Authenticator,
	limiter ratelimiter.Limiter,
	mail mailer.Client,
	host badge.Host,
) *application {
	return &application{
		config:        cfg,
		store:         store,
		logger:        logger,
		mailer:        mail,
		badges:        host,
		authenticator: authenticator,
		rateLimiter:   limiter,
		issuer:        qrcode.NewIssuer(cfg.qr.secret, store),
		recorder: recorder.New(store,
			recorder.WithCooldown(cfg.scan.cooldown),
			recorder.WithLogger(logger),
		),
	}
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		// Public routes
		r.Route("/authentication", func(r chi.Router) {
			r.With(app.RateLimiterMiddleware).Post("/token", app.createTokenHandler)
			if app.config.allowSelfRegistration {
				r.With(app.RateLimiterMiddleware).Post("/register-company", app.registerCompanyHandler)
			}
			r.With(app.AuthTokenMiddleware).Get("/me", app.meHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)

			r.Get("/dashboard", app.dashboardHandler)

			r.Route("/attendance", func(r chi.Router) {
				r.With(app.RateLimiterMiddleware).Post("/scan", app.scanHandler)

				r.Group(func(r chi.Router) {
					r.Use(app.RequireActiveCompany)
					r.Get("/events", app.listEventsHandler)
					r.With(app.RequireRole(accounts.RoleAdmin)).Get("/report", app.reportHandler)
				})
			})

			r.Route("/companies", func(r chi.Router) {
				r.Use(app.RequireRole(accounts.RoleOwner))
				r.Get("/", app.listCompaniesHandler)
				r.Post("/", app.createCompanyHandler)
				r.Get("/{companyID}", app.getCompanyHandler)
				r.Patch("/{companyID}", app.updateCompanyHandler)
			})

			r.Route("/company", func(r chi.Router) {
				r.Use(app.RequireRole(accounts.RoleAdmin))
				r.Use(app.RequireActiveCompany)
				r.Get("/", app.getOwnCompanyHandler)
				r.Get("/accounts", app.listAccountsHandler)
				r.Post("/accounts", app.createAccountHandler)
				r.Delete("/accounts/{accountID}", app.deleteAccountHandler)
			})

			r.Route("/employees", func(r chi.Router) {
				r.Use(app.RequireActiveCompany)
				r.With(app.RequireRole(accounts.RoleAdmin)).Get("/", app.listEmployeesHandler)
				r.With(app.RequireRole(accounts.RoleAdmin)).Post("/", app.createEmployeeHandler)

				r.Route("/{employeeID}", func(r chi.Router) {
					r.Get("/", app.getEmployeeHandler)
					r.Get("/status", app.employeeStatusHandler)
					r.Get("/badge.png", app.employeeBadgeHandler)

					r.Group(func(r chi.Router) {
						r.Use(app.RequireRole(accounts.RoleAdmin))
						r.Patch("/", app.updateEmployeeHandler)
						r.Delete("/", app.deleteEmployeeHandler)
						r.Post("/qr", app.regenerateCodeHandler)
					})
				})
			})
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
