package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/rescue-triage-service/internal/adapter/blob"
	"github.com/couchcryptid/rescue-triage-service/internal/adapter/gemini"
	httpadapter "github.com/couchcryptid/rescue-triage-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/rescue-triage-service/internal/adapter/kafka"
	"github.com/couchcryptid/rescue-triage-service/internal/adapter/openai"
	"github.com/couchcryptid/rescue-triage-service/internal/adapter/scoring"
	"github.com/couchcryptid/rescue-triage-service/internal/chat"
	"github.com/couchcryptid/rescue-triage-service/internal/config"
	"github.com/couchcryptid/rescue-triage-service/internal/dashboard"
	"github.com/couchcryptid/rescue-triage-service/internal/domain"
	"github.com/couchcryptid/rescue-triage-service/internal/observability"
	"github.com/couchcryptid/rescue-triage-service/internal/pipeline"
	"github.com/couchcryptid/rescue-triage-service/internal/ranking"
	"github.com/couchcryptid/rescue-triage-service/internal/roster"
	"github.com/couchcryptid/rescue-triage-service/internal/session"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sources, err := newSources(cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to configure roster sources", "error", err)
		os.Exit(1)
	}

	// Remote scoring is optional; without it the engine ranks locally.
	var remote ranking.ScoreProvider
	if cfg.RankingAPIURL != "" {
		remote = scoring.NewRemoteScoreProvider(cfg.RankingAPIURL, cfg.RankingTimeout, logger, metrics)
		logger.Info("remote scoring enabled", "url", cfg.RankingAPIURL, "timeout", cfg.RankingTimeout)
	} else {
		logger.Info("remote scoring disabled, using local thresholds")
	}
	engine := ranking.NewEngine(remote, logger, metrics)

	var alerts pipeline.AlertPublisher
	var alertWriter *kafkaadapter.AlertWriter
	if cfg.AlertsEnabled {
		alertWriter = kafkaadapter.NewAlertWriter(cfg, logger)
		alerts = alertWriter
		logger.Info("critical alerts enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAlertTopic)
	}

	p := pipeline.New(sources, roster.NewLoader(logger, metrics), engine, alerts, cfg.SnapshotTTL, nil, logger, metrics)

	responder, err := newResponder(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to configure assistant", "error", err)
		os.Exit(1)
	}

	registry := session.NewRegistry(domain.Coordinates{Lat: cfg.DefaultLat, Lon: cfg.DefaultLon}, cfg.DefaultZoom, metrics)
	svc := dashboard.NewService(p, registry, responder, dashboard.Options{
		Rescuer:     domain.Coordinates{Lat: cfg.RescuerLat, Lon: cfg.RescuerLon},
		FocusZoom:   cfg.FocusZoom,
		ContextTopN: cfg.ContextTopN,
	}, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, p, cfg.CORSAllowedOrigins, logger)

	// Load the first snapshot before serving.
	p.Refresh(ctx)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if alertWriter != nil {
		if err := alertWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func newSources(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (pipeline.Sources, error) {
	var store *blob.Store
	if cfg.RosterBlob != "" || cfg.HazardBlob != "" {
		s, err := blob.NewStore(blob.Config{
			Endpoint:  cfg.StorageEndpoint,
			Region:    cfg.StorageRegion,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			Bucket:    cfg.StorageBucket,
			UseSSL:    cfg.StorageUseSSL,
		}, logger, metrics)
		if err != nil {
			return pipeline.Sources{}, err
		}
		store = s
	}

	var sources pipeline.Sources
	switch {
	case cfg.RosterBlob != "":
		sources.Roster = roster.NewCachedSource(roster.BlobSource{Store: store, Object: cfg.RosterBlob}, cfg.BlobCacheTTL, metrics)
	case cfg.RosterFile != "":
		sources.Roster = roster.FileSource{Path: cfg.RosterFile}
	default:
		sources.Roster = roster.SyntheticSource{
			Count:  cfg.SyntheticCount,
			Center: domain.Coordinates{Lat: cfg.DefaultLat, Lon: cfg.DefaultLon},
		}
		logger.Info("no roster source configured, generating synthetic roster", "count", cfg.SyntheticCount)
	}

	switch {
	case cfg.HazardBlob != "":
		sources.Hazards = roster.NewCachedSource(roster.BlobSource{Store: store, Object: cfg.HazardBlob}, cfg.BlobCacheTTL, metrics)
	case cfg.HazardFile != "":
		sources.Hazards = roster.FileSource{Path: cfg.HazardFile}
	}

	logger.Info("roster sources configured", "roster", sources.Roster.Name(), "hazards", sourceName(sources.Hazards))
	return sources, nil
}

func sourceName(src roster.Source) string {
	if src == nil {
		return "none"
	}
	return src.Name()
}

func newResponder(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (chat.Responder, error) {
	mode := chat.ResolveMode(cfg.AssistantMode, cfg.AssistantConfigured(), cfg.AssistantPartiallyConfigured())
	logger.Info("assistant mode resolved", "setting", cfg.AssistantMode, "mode", mode, "provider", cfg.LLMProvider)

	switch mode {
	case chat.ModeCanned:
		return chat.CannedResponder{}, nil
	case chat.ModeUnconfigured:
		logger.Warn("assistant configuration incomplete, prompts will be refused", "provider", cfg.LLMProvider)
		return chat.NewGateway(nil, cfg.LLMProvider, logger, metrics), nil
	}

	var completer chat.Completer
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		c, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		completer = c
	default:
		completer = openai.NewAzureClient(cfg.AzureOpenAIEndpoint, cfg.AzureOpenAIAPIKey, cfg.AzureOpenAIDeployment, cfg.AzureOpenAIAPIVersion)
	}
	return chat.NewGateway(completer, cfg.LLMProvider, logger, metrics), nil
}
