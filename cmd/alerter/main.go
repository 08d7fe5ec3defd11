package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/storm-alert-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-alert-service/internal/adapter/kafka"
	"github.com/couchcryptid/storm-alert-service/internal/alerting"
	"github.com/couchcryptid/storm-alert-service/internal/channel"
	"github.com/couchcryptid/storm-alert-service/internal/config"
	"github.com/couchcryptid/storm-alert-service/internal/domain"
	"github.com/couchcryptid/storm-alert-service/internal/observability"
	"github.com/couchcryptid/storm-alert-service/internal/pipeline"
	"github.com/couchcryptid/storm-alert-service/internal/store"
)

func main() {
	// Local development convenience; absent .env files are fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		logger.Error("schema bootstrap failed", "error", err)
		os.Exit(1)
	}

	territories := store.NewTerritoryStore(db)
	alerts := store.NewAlertStore(db)

	channels := buildChannels(cfg, logger)

	matcher := alerting.NewMatcher(territories, alerting.EvaluatorFunc(domain.Intersects), logger, metrics)
	dispatcher := alerting.NewDispatcher(alerts, channels, cfg.ChannelTimeout, logger, metrics)
	engine := alerting.NewEngine(matcher, dispatcher, logger, metrics)

	reader := kafkaadapter.NewReader(cfg, logger)

	p := pipeline.New(reader, engine, logger, metrics, cfg.BatchSize, cfg.DefaultEventRadiusMiles)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start alerting pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	for _, ch := range channels {
		if closer, ok := ch.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Error("channel close error", "channel", ch.Name(), "error", err)
			}
		}
	}

	logger.Info("shutdown complete")
}

// buildChannels wires the notification channels that are configured.
// Territory policy flags decide per-alert usage; an unconfigured channel is
// simply absent from the set.
func buildChannels(cfg *config.Config, logger *slog.Logger) []alerting.Channel {
	var channels []alerting.Channel

	if cfg.EmailGatewayURL != "" {
		channels = append(channels, channel.NewEmail(cfg.EmailGatewayURL, cfg.EmailGatewayToken, logger))
		logger.Info("email channel enabled")
	}
	if cfg.SMSGatewayURL != "" {
		channels = append(channels, channel.NewSMS(cfg.SMSGatewayURL, cfg.SMSGatewayToken, logger))
		logger.Info("sms channel enabled")
	}
	if cfg.PushEnabled {
		channels = append(channels, channel.NewPush(cfg, logger))
		logger.Info("push channel enabled", "topic", cfg.KafkaPushTopic)
	}

	return channels
}
