// Package app wires the access-code ledger service together: configuration,
// logging, the Redis-backed store, the ledger, the payment gateway client,
// and the HTTP surface. It owns the store client lifecycle.
package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/victorlau/liuren-quota/internal/config"
	relayhttp "github.com/victorlau/liuren-quota/internal/http"
	"github.com/victorlau/liuren-quota/internal/http/api/admin"
	"github.com/victorlau/liuren-quota/internal/http/api/front"
	"github.com/victorlau/liuren-quota/internal/ledger"
	"github.com/victorlau/liuren-quota/internal/paypal"
	"github.com/victorlau/liuren-quota/internal/store"
)

const (
	shutdownTimeout  = 10 * time.Second
	storePingTimeout = 5 * time.Second
)

// RunServer boots the ledger service and blocks until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.Config) error {
	setupLogging(cfg.Log)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if errClose := redisClient.Close(); errClose != nil {
			log.WithError(errClose).Warn("close redis client failed")
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, storePingTimeout)
	defer cancel()
	if errPing := redisClient.Ping(pingCtx).Err(); errPing != nil {
		log.WithError(errPing).Warnf("redis not reachable at startup (addr=%s)", cfg.Redis.Addr)
	}

	ledgerStore := store.NewRedisStore(redisClient)
	svc := ledger.New(ledgerStore, ledger.WithLogTTL(cfg.LogTTL()))
	tiers := cfg.BillingTable()

	var gateway *paypal.Client
	if cfg.PayPal.ClientID != "" && cfg.PayPal.ClientSecret != "" {
		baseURL := paypal.SandboxBaseURL
		if cfg.PayPal.Mode == "live" || cfg.PayPal.Mode == "production" {
			baseURL = paypal.LiveBaseURL
		}
		gateway = paypal.New(baseURL, cfg.PayPal.ClientID, cfg.PayPal.ClientSecret)
	} else {
		log.Warn("paypal credentials not configured; purchase endpoints disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(relayhttp.CORSMiddleware(cfg.AllowedOrigins))

	front.RegisterFrontRoutes(router, svc, gateway, tiers, cfg)
	admin.RegisterAdminRoutes(router, svc, tiers, redisClient, cfg)

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("access-code ledger listening on %s", cfg.Listen)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
		}
	}()

	select {
	case errServe := <-errCh:
		return errServe
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return server.Shutdown(shutdownCtx)
}

// setupLogging configures logrus output, level, and optional file rotation.
func setupLogging(cfg config.LogConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	}
}
