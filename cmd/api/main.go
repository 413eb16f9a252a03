package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lunarlash/leadline/cmd/mainconfig"
	"github.com/lunarlash/leadline/internal/api/router"
	appconfig "github.com/lunarlash/leadline/internal/config"
	"github.com/lunarlash/leadline/internal/http/handlers"
	httpmiddleware "github.com/lunarlash/leadline/internal/http/middleware"
	"github.com/lunarlash/leadline/internal/notify"
	"github.com/lunarlash/leadline/internal/observability/metrics"
	"github.com/lunarlash/leadline/internal/ratelimit"
	"github.com/lunarlash/leadline/internal/store"
	"github.com/lunarlash/leadline/internal/suggest"
	"github.com/lunarlash/leadline/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting leadline API server", "env", cfg.Env, "port", cfg.Port)

	ctx := context.Background()
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	kv := store.New(dynamodb.NewFromConfig(awsCfg), cfg.LeadsTable, logger)
	im := metrics.NewIntakeMetrics(nil)

	var limiter ratelimit.Limiter
	if cfg.RateBackend == "redis" && cfg.RedisAddr != "" {
		limiter = ratelimit.NewRedisLimiter(ratelimit.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			TLS:      cfg.RedisTLS,
		}, cfg.RateWindow, cfg.RateMaxRequests, logger)
		logger.Info("rate limiting via redis", "addr", cfg.RedisAddr)
	} else {
		limiter = ratelimit.NewSlidingWindow(kv, cfg.RateWindow, cfg.RateMaxRequests, logger)
	}

	var gen suggest.Generator
	switch cfg.SuggestProvider {
	case "bedrock":
		if cfg.BedrockModelID != "" {
			g, err := suggest.NewBedrockGenerator(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
			if err != nil {
				logger.Error("failed to init bedrock generator", "error", err)
				os.Exit(1)
			}
			gen = g
		} else {
			logger.Warn("BEDROCK_MODEL_ID not set, suggested DMs fall back to the template")
		}
	case "gemini":
		g, err := suggest.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to init gemini generator", "error", err)
			os.Exit(1)
		}
		defer g.Close()
		gen = g
	default:
		logger.Warn("no DM provider configured, suggested DMs fall back to the template",
			"provider", cfg.SuggestProvider)
	}
	suggestSvc := suggest.NewService(gen, cfg.SuggestProvider, cfg.BookingNote, im, logger)

	var smsSender notify.SMSSender
	if cfg.TelnyxAPIKey != "" && cfg.AlertSMSFrom != "" {
		smsSender = notify.NewTelnyxSender(cfg.TelnyxAPIKey, cfg.TelnyxMessagingProfileID, cfg.AlertSMSFrom, logger)
	}
	var emailSender notify.EmailSender
	if sg := notify.NewSendGridSender(cfg.SendGridAPIKey, cfg.SendGridFromEmail, logger); sg != nil {
		emailSender = sg
	}
	alerts := notify.NewService(smsSender, emailSender, notify.Config{
		SMSTo:         cfg.AlertSMSTo,
		EmailTo:       cfg.AlertEmailTo,
		PublicBaseURL: cfg.PublicBaseURL,
	}, im, logger)

	r := router.New(&router.Config{
		Logger:         logger,
		Intake:         handlers.NewIntakeHandler(kv, limiter, suggestSvc, alerts, cfg.BookingNote, im, logger),
		AdminLeads:     handlers.NewAdminLeadsHandler(kv, logger),
		MetricsHandler: promhttp.Handler(),

		CORSAllowedOrigins: cfg.CORSOrigins,

		Identity: httpmiddleware.IdentityConfig{
			Region:     cfg.CognitoRegion,
			UserPoolID: cfg.CognitoUserPoolID,
			ClientID:   cfg.CognitoClientID,
		},
		AdminAllowlist: cfg.AdminAllowlist,
		AdminRole:      cfg.AdminRole,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
