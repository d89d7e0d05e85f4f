package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Assistant modes.
const (
	AssistantAuto    = "auto"
	AssistantLive    = "live"
	AssistantOffline = "offline"
)

// LLM providers.
const (
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string

	// Ranking source.
	RankingAPIURL  string
	RankingTimeout time.Duration

	// Roster and hazard sources. Synthetic generation is used when neither
	// roster source is set.
	RosterFile     string
	RosterBlob     string
	HazardFile     string
	HazardBlob     string
	SyntheticCount int
	SnapshotTTL    time.Duration

	// Blob storage (S3-compatible).
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageRegion    string
	StorageUseSSL    bool
	BlobCacheTTL     time.Duration

	// Map defaults.
	DefaultLat  float64
	DefaultLon  float64
	RescuerLat  float64
	RescuerLon  float64
	DefaultZoom int
	FocusZoom   int
	ContextTopN int

	// Conversational assistant.
	AssistantMode         string
	LLMProvider           string
	AzureOpenAIEndpoint   string
	AzureOpenAIAPIKey     string
	AzureOpenAIDeployment string
	AzureOpenAIAPIVersion string
	GeminiAPIKey          string
	GeminiModel           string

	// Alert sink.
	AlertsEnabled   bool
	KafkaBrokers    []string
	KafkaAlertTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	rankingTimeout, err := parseDuration("RANKING_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	snapshotTTL, err := parseDuration("SNAPSHOT_TTL", "10m")
	if err != nil {
		return nil, err
	}
	blobCacheTTL, err := parseDuration("BLOB_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}

	syntheticCount, err := parseInt("SYNTHETIC_COUNT", 50, 0, 100000)
	if err != nil {
		return nil, err
	}
	defaultZoom, err := parseInt("DEFAULT_ZOOM", 10, 1, 20)
	if err != nil {
		return nil, err
	}
	focusZoom, err := parseInt("FOCUS_ZOOM", 16, 1, 20)
	if err != nil {
		return nil, err
	}
	topN, err := parseInt("CONTEXT_TOP_N", 5, 1, 50)
	if err != nil {
		return nil, err
	}

	defaultLat, err := parseCoordinate("DEFAULT_LAT", 40.6401, 90)
	if err != nil {
		return nil, err
	}
	defaultLon, err := parseCoordinate("DEFAULT_LON", 22.9444, 180)
	if err != nil {
		return nil, err
	}
	rescuerLat, err := parseCoordinate("RESCUER_LAT", 38.0417850, 90)
	if err != nil {
		return nil, err
	}
	rescuerLon, err := parseCoordinate("RESCUER_LON", 23.995306, 180)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),

		RankingAPIURL:  strings.TrimSpace(os.Getenv("RANKING_API_URL")),
		RankingTimeout: rankingTimeout,

		RosterFile:     os.Getenv("ROSTER_FILE"),
		RosterBlob:     os.Getenv("ROSTER_BLOB"),
		HazardFile:     os.Getenv("HAZARD_FILE"),
		HazardBlob:     os.Getenv("HAZARD_BLOB"),
		SyntheticCount: syntheticCount,
		SnapshotTTL:    snapshotTTL,

		StorageEndpoint:  os.Getenv("STORAGE_ENDPOINT"),
		StorageAccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecretKey: os.Getenv("STORAGE_SECRET_KEY"),
		StorageBucket:    sharedcfg.EnvOrDefault("STORAGE_BUCKET", "configdata"),
		StorageRegion:    sharedcfg.EnvOrDefault("STORAGE_REGION", "us-east-1"),
		StorageUseSSL:    sharedcfg.EnvOrDefault("STORAGE_USE_SSL", "true") == "true",
		BlobCacheTTL:     blobCacheTTL,

		DefaultLat:  defaultLat,
		DefaultLon:  defaultLon,
		RescuerLat:  rescuerLat,
		RescuerLon:  rescuerLon,
		DefaultZoom: defaultZoom,
		FocusZoom:   focusZoom,
		ContextTopN: topN,

		AssistantMode:         strings.ToLower(sharedcfg.EnvOrDefault("ASSISTANT_MODE", AssistantAuto)),
		LLMProvider:           strings.ToLower(sharedcfg.EnvOrDefault("LLM_PROVIDER", ProviderAzure)),
		AzureOpenAIEndpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
		AzureOpenAIAPIKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
		AzureOpenAIDeployment: sharedcfg.EnvOrDefault("AZURE_OPENAI_DEPLOYMENT_NAME", "gpt-4o"),
		AzureOpenAIAPIVersion: sharedcfg.EnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-12-01-preview"),
		GeminiAPIKey:          os.Getenv("GEMINI_API_KEY"),
		GeminiModel:           sharedcfg.EnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),

		AlertsEnabled:   os.Getenv("ALERTS_ENABLED") == "true",
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertTopic: sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "rescue-alerts"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AssistantMode {
	case AssistantAuto, AssistantLive, AssistantOffline:
	default:
		return fmt.Errorf("invalid ASSISTANT_MODE %q: want auto, live or offline", c.AssistantMode)
	}
	switch c.LLMProvider {
	case ProviderAzure, ProviderGemini:
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q: want azure or gemini", c.LLMProvider)
	}
	if (c.RosterBlob != "" || c.HazardBlob != "") && c.StorageEndpoint == "" {
		return errors.New("ROSTER_BLOB or HAZARD_BLOB is set but STORAGE_ENDPOINT is not")
	}
	if c.AlertsEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("ALERTS_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if c.AlertsEnabled && c.KafkaAlertTopic == "" {
		return errors.New("KAFKA_ALERT_TOPIC is required when ALERTS_ENABLED is true")
	}
	if len(c.CORSAllowedOrigins) == 0 {
		return errors.New("CORS_ALLOWED_ORIGINS must list at least one origin")
	}
	return nil
}

// AssistantConfigured reports whether every setting the selected LLM
// provider needs is present.
func (c *Config) AssistantConfigured() bool {
	switch c.LLMProvider {
	case ProviderGemini:
		return c.GeminiAPIKey != "" && c.GeminiModel != ""
	default:
		return c.AzureOpenAIEndpoint != "" && c.AzureOpenAIAPIKey != "" && c.AzureOpenAIDeployment != ""
	}
}

// AssistantPartiallyConfigured reports whether any credential or endpoint
// for the selected provider has been set. Defaults alone do not count.
func (c *Config) AssistantPartiallyConfigured() bool {
	switch c.LLMProvider {
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	default:
		return c.AzureOpenAIEndpoint != "" || c.AzureOpenAIAPIKey != ""
	}
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, fallback, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", key, lo, hi)
	}
	return n, nil
}

func parseCoordinate(key string, fallback, limit float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < -limit || f > limit {
		return 0, fmt.Errorf("invalid %s: must be a number between %g and %g", key, -limit, limit)
	}
	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
