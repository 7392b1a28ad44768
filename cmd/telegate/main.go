package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/telegate/telegate/internal/api"
	"github.com/telegate/telegate/internal/config"
	"github.com/telegate/telegate/internal/service"
	"github.com/telegate/telegate/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		fmt.Fprintf(os.Stderr, "\nRequired settings (config.yaml or TELEGATE_ environment variables):\n")
		fmt.Fprintf(os.Stderr, "  telegram.api_id, telegram.api_hash, telegram.channel\n")
		fmt.Fprintf(os.Stderr, "\nGet API credentials from https://my.telegram.org\n")
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("exiting", zap.Error(err))
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg := zap.NewProductionConfig()
	logCfg.Level = zap.NewAtomicLevelAt(lvl)
	return logCfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionMgr := telegram.NewSessionManager(logger.Named("session"))
	client, err := telegram.NewClient(cfg.Telegram.APIID, cfg.Telegram.APIHash,
		cfg.Telegram.SessionDir, sessionMgr, logger.Named("telegram"))
	if err != nil {
		return err
	}

	governor := telegram.NewGovernor(sessionMgr, logger.Named("governor"))
	resolver := telegram.NewResolver(client.API(), governor, cfg.Telegram.Channel, logger.Named("resolver"))
	pager := telegram.NewPager(client.API(), governor, cfg.API.MaxLimit, cfg.API.MaxScanBatches, logger.Named("pager"))
	mediaResolver := telegram.NewMediaResolver(client.API(), governor, api.MediaURLPrefix, logger.Named("media"))
	authFlow := telegram.NewAuthFlow(client, sessionMgr, governor, logger.Named("auth"))

	messages := service.NewMessages(sessionMgr, resolver, pager, mediaResolver, logger.Named("messages"))
	mediaStore, err := service.NewMediaStore(sessionMgr, resolver, mediaResolver, cfg.Media.CacheDir, logger.Named("media_store"))
	if err != nil {
		return err
	}

	server := api.NewServer(cfg, messages, mediaStore, authFlow, logger.Named("http"))
	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	// The MTProto connection and the HTTP listener run side by side; either
	// one failing takes the process down.
	errCh := make(chan error, 2)
	go func() {
		errCh <- runClient(ctx, client, logger)
	}()
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	return runErr
}

// runClient keeps the MTProto connection alive, reconnecting with backoff
// when the transport drops.
func runClient(ctx context.Context, client *telegram.Client, logger *zap.Logger) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = time.Minute
	bo.MaxElapsedTime = 0

	for {
		logger.Info("connecting to Telegram")
		started := time.Now()
		err := client.Run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(started) > time.Minute {
			bo.Reset()
		}

		d := bo.NextBackOff()
		logger.Warn("telegram connection lost, reconnecting",
			zap.Error(err), zap.Duration("backoff", d))
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
