package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brightpath/accounts-api/internal/api"
	"github.com/brightpath/accounts-api/internal/api/metrics"
	"github.com/brightpath/accounts-api/internal/core/ports"
	"github.com/brightpath/accounts-api/internal/infrastructure/config"
	mongodb "github.com/brightpath/accounts-api/internal/infrastructure/db/mongo"
	redisdb "github.com/brightpath/accounts-api/internal/infrastructure/db/redis"
	"github.com/brightpath/accounts-api/internal/infrastructure/oauth"
	"github.com/brightpath/accounts-api/internal/infrastructure/queue"
	"github.com/brightpath/accounts-api/pkg/logger"
)

// @title        Accounts API
// @version      1.0
// @description  Multi-tenant account and authentication backend.
// @BasePath     /
//
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger is not up yet; there is nothing better than stderr.
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})
	log.Info().Str("env", cfg.Env).Msg("starting accounts-api")

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect failed")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	store := mongodb.NewAccountStore(db)
	if err := store.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect failed")
	}
	defer func() { _ = rdb.Close() }()

	dispatcher := queue.NewDispatcher(0, metrics.RecordAccountEvent, logger.For("dispatcher"))
	dispatcher.Start(ctx)

	var providers []ports.OAuthProvider
	if cfg.Google.Enabled() {
		providers = append(providers, oauth.NewGoogleProvider(oauth.Credentials{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		}))
	}
	if cfg.Github.Enabled() {
		providers = append(providers, oauth.NewGithubProvider(oauth.Credentials{
			ClientID:     cfg.Github.ClientID,
			ClientSecret: cfg.Github.ClientSecret,
			RedirectURL:  cfg.Github.RedirectURL,
		}))
	}

	e := api.NewRouter(api.Dependencies{
		DB:         db,
		Redis:      rdb,
		JWTSecret:  cfg.JWTSecret,
		TokenTTL:   cfg.TokenTTL,
		BcryptCost: cfg.BcryptCost,
		Providers:  providers,
		Events:     dispatcher,
		Log:        log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown failed")
	}
}
