package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ishantswami13-crypto/vantro-pay/internal/accounts"
	"github.com/ishantswami13-crypto/vantro-pay/internal/admin"
	"github.com/ishantswami13-crypto/vantro-pay/internal/audit"
	"github.com/ishantswami13-crypto/vantro-pay/internal/auth"
	"github.com/ishantswami13-crypto/vantro-pay/internal/config"
	"github.com/ishantswami13-crypto/vantro-pay/internal/events"
	apphttp "github.com/ishantswami13-crypto/vantro-pay/internal/http"
	"github.com/ishantswami13-crypto/vantro-pay/internal/ledger"
	"github.com/ishantswami13-crypto/vantro-pay/internal/notify"
	"github.com/ishantswami13-crypto/vantro-pay/internal/router"
	"github.com/ishantswami13-crypto/vantro-pay/internal/store"
	"github.com/ishantswami13-crypto/vantro-pay/internal/transfers"
	"github.com/ishantswami13-crypto/vantro-pay/internal/views"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("invalid configuration")
	}
	log := cfg.NewLogger()

	ctx := context.Background()

	var st store.Store
	if cfg.DatabaseURL != "" {
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("error connecting to database")
		}
		defer pool.Close()
		st = store.NewPostgres(pool)
		log.Info().Msg("using postgres store")
	} else {
		st = store.NewMemory()
		log.Warn().Msg("DATABASE_URL not set; using in-memory store, data is lost on restart")
	}

	var pub events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("error connecting to nats")
		}
		defer nc.Close()
		pub = nc
		log.Info().Str("url", cfg.NATSURL).Msg("publishing transfer events")
	}

	var sender notify.Sender = notify.LogSender{Log: log}
	if cfg.SMTPHost != "" {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	} else {
		log.Warn().Msg("SMTP_HOST not set; invites are logged instead of sent")
	}

	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	var authHandlers *auth.Handlers
	if cfg.OIDCEnabled() {
		authHandlers, err = auth.NewOIDCHandlers(ctx, auth.OIDCConfig{
			Issuer:       cfg.OIDCIssuer,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			BaseURL:      cfg.BaseURL,
		}, sessions, log)
		if err != nil {
			log.Fatal().Err(err).Str("issuer", cfg.OIDCIssuer).Msg("oidc discovery failed")
		}
	} else {
		if cfg.IsProduction() {
			log.Fatal().Msg("OIDC_ISSUER/AUTH0_DOMAIN and CLIENT_ID are required in production")
		}
		authHandlers = auth.NewDevHandlers(cfg.BaseURL, sessions, log)
		log.Warn().Msg("identity provider not configured; /login trusts ?email=")
	}

	rec := audit.NewRecorder(st, log)
	transferSvc := transfers.NewService(st, pub, rec, log)
	transferSvc.Policy.AllowOverdraft = cfg.AllowOverdraft

	web := apphttp.NewHandler(
		accounts.NewService(st, rec),
		transferSvc,
		ledger.NewService(st),
		notify.NewMailer(sender, cfg.BaseURL, log),
		log,
	)

	app := fiber.New(fiber.Config{
		Views:                 views.NewEngine(),
		ErrorHandler:          apphttp.ErrorHandler(log),
		DisableStartupMessage: cfg.IsProduction(),
	})

	app.Use(router.CorsMiddleware(cfg.CORSOrigin))
	app.Use(router.RequestLogger(log))

	r := &router.Router{
		Web:          web,
		AuthHandlers: authHandlers,
		AdminHandler: admin.NewHandler(st),
		Sessions:     sessions,
		AdminMW:      admin.RequireAdminAPIKey(cfg.AdminAPIKey),
		WriteLimit:   router.RateLimitWrite(cfg.RateLimitWrite),
	}
	r.RegisterRoutes(app)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("listening")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
