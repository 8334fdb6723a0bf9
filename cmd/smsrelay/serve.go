package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/smsrelay/smsrelay/internal/accounts"
	"github.com/smsrelay/smsrelay/internal/activity"
	"github.com/smsrelay/smsrelay/internal/carrier"
	"github.com/smsrelay/smsrelay/internal/config"
	"github.com/smsrelay/smsrelay/internal/conversation"
	"github.com/smsrelay/smsrelay/internal/db"
	"github.com/smsrelay/smsrelay/internal/gateway"
	"github.com/smsrelay/smsrelay/internal/handlers"
	"github.com/smsrelay/smsrelay/internal/logger"
	"github.com/smsrelay/smsrelay/internal/server"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideAccounts,
			provideStore,
			provideCarrier,
			provideActivityLog,
			provideRecorder,
			provideGateway,
			provideServerHandler(provideAuthHandler),
			provideServerHandler(provideMessageHandler),
			provideServerHandler(handlers.NewTwilioWebhookHandler),
			provideServerHandler(handlers.NewHealthHandler),
			provideServer,
		),
		fx.Invoke(
			startRecorder,
			startServer,
		),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	if cfg.Auth.JWTSecret == config.DefaultJWTSecret {
		logger.L.Warn("auth.jwt_secret uses the insecure development default; set it before production use")
	}
	return logger.L
}

func provideAccounts(log *slog.Logger, cfg config.Config) (*accounts.Service, error) {
	svc, err := accounts.NewService(log, []accounts.Seed{{
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	}})
	if err != nil {
		return nil, fmt.Errorf("seed agent account: %w", err)
	}
	return svc, nil
}

func provideStore(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (conversation.Store, error) {
	if !cfg.Postgres.Enabled {
		return conversation.NewMemoryStore(log), nil
	}
	if err := db.Migrate(cfg.Postgres); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	pool, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error {
		pool.Close()
		return nil
	}})
	return conversation.NewPGStore(log, pool), nil
}

func provideCarrier(log *slog.Logger, cfg config.Config) carrier.Carrier {
	if !cfg.Twilio.Configured() {
		log.Warn("twilio is not configured; outbound sends will fail until credentials are set")
		return nil
	}
	return carrier.NewTwilioClient(log, cfg.Twilio)
}

func provideActivityLog(log *slog.Logger, cfg config.Config) activity.Log {
	if !cfg.HubSpot.Configured() {
		log.Info("hubspot is not configured; CRM activity mirroring disabled")
		return nil
	}
	return activity.NewHubSpotClient(log, cfg.HubSpot)
}

func provideRecorder(log *slog.Logger, sink activity.Log, cfg config.Config) *activity.Recorder {
	return activity.NewRecorder(log, sink, cfg.Sync.QueueSize, cfg.Sync.Workers)
}

func provideGateway(log *slog.Logger, store conversation.Store, sender carrier.Carrier, recorder *activity.Recorder) *gateway.Gateway {
	return gateway.New(log, store, sender, recorder)
}

func provideAuthHandler(log *slog.Logger, accountService *accounts.Service, cfg config.Config) (*handlers.AuthHandler, error) {
	expiresIn, err := time.ParseDuration(cfg.Auth.JWTExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("parse auth.jwt_expires_in: %w", err)
	}
	return handlers.NewAuthHandler(log, accountService, cfg.Auth.JWTSecret, expiresIn), nil
}

func provideMessageHandler(log *slog.Logger, gw *gateway.Gateway, store conversation.Store) *handlers.MessageHandler {
	return handlers.NewMessageHandler(log, gw, store)
}

type serverParams struct {
	fx.In
	Logger   *slog.Logger
	Config   config.Config
	Handlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.New(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.Handlers)
}

func startRecorder(lc fx.Lifecycle, recorder *activity.Recorder) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			recorder.Start(ctx)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			return recorder.Close(stopCtx)
		},
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
