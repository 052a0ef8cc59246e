// Command formguard runs the form guard HTTP service.
//
// @title       Form Guard API
// @version     1.0
// @description Spam and abuse detection for web form submissions.
// @BasePath    /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tbourn/go-form-guard/internal/app"
	"github.com/tbourn/go-form-guard/internal/config"
	httpapi "github.com/tbourn/go-form-guard/internal/http"
	"github.com/tbourn/go-form-guard/internal/observability"
	"github.com/tbourn/go-form-guard/internal/repo"
	"github.com/tbourn/go-form-guard/internal/sink"
	"github.com/tbourn/go-form-guard/internal/sysutil"
	"github.com/tbourn/go-form-guard/internal/tokens"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownGrace = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := sysutil.NewLogger("formguard", "info", false)
		boot.Fatal().Err(err).Msg("config")
	}
	log := sysutil.NewLogger(cfg.OTEL.ServiceName, cfg.LogLevel, cfg.LogPretty)
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)

	if err := run(cfg, ver, log); err != nil {
		log.Fatal().Err(err).Msg("formguard stopped")
	}
}

func run(cfg config.Config, ver string, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return err
	}
	defer func() {
		if err := observability.ShutdownWithin(shutdownOTel, 5*time.Second); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath, repo.WithLogger(log.With().Str("component", "sqlite").Logger()))
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	var backends app.Backends
	if cfg.Redis.Addr != "" {
		rc, err := tokens.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rc.Close()
		backends.Redis = rc
		log.Info().Str("addr", cfg.Redis.Addr).Msg("token store: redis")
	}
	if cfg.Mongo.URI != "" {
		var mc *mongo.Client
		mc, backends.Mongo, err = sink.ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return err
		}
		defer func() { _ = mc.Disconnect(context.Background()) }()
		log.Info().Str("database", cfg.Mongo.Database).Str("collection", cfg.Mongo.Collection).Msg("detection documents: mongo")
	}

	a, err := app.Build(cfg, db, backends, log)
	if err != nil {
		return err
	}

	bg, cancelBG := context.WithCancel(context.Background())
	defer cancelBG()
	shareDone := make(chan struct{})
	if a.Share != nil {
		go func() {
			defer close(shareDone)
			a.Share.Run(bg)
		}()
	} else {
		close(shareDone)
	}
	go a.RunJanitor(bg, cfg.PurgeInterval)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	if err := r.SetTrustedProxies(nil); err != nil {
		return err
	}
	httpapi.RegisterRoutes(r, a.Handlers, a.Resolver, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", ver).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	// Stop background work and let the share queue flush.
	cancelBG()
	select {
	case <-shareDone:
	case <-sctx.Done():
		log.Warn().Msg("share queue not drained before deadline")
	}
	return nil
}
