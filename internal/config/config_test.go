package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker = "localhost:9092"
	testAPIKey    = "test-key"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.RankingAPIURL)
	assert.Equal(t, 10*time.Second, cfg.RankingTimeout)
	assert.Equal(t, 50, cfg.SyntheticCount)
	assert.Equal(t, 10*time.Minute, cfg.SnapshotTTL)
	assert.Equal(t, 10*time.Minute, cfg.BlobCacheTTL)
	assert.Equal(t, "configdata", cfg.StorageBucket)
	assert.True(t, cfg.StorageUseSSL)
	assert.Equal(t, 40.6401, cfg.DefaultLat)
	assert.Equal(t, 22.9444, cfg.DefaultLon)
	assert.Equal(t, 38.0417850, cfg.RescuerLat)
	assert.Equal(t, 23.995306, cfg.RescuerLon)
	assert.Equal(t, 10, cfg.DefaultZoom)
	assert.Equal(t, 16, cfg.FocusZoom)
	assert.Equal(t, 5, cfg.ContextTopN)
	assert.Equal(t, AssistantAuto, cfg.AssistantMode)
	assert.Equal(t, ProviderAzure, cfg.LLMProvider)
	assert.Equal(t, "gpt-4o", cfg.AzureOpenAIDeployment)
	assert.Equal(t, "2024-12-01-preview", cfg.AzureOpenAIAPIVersion)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.False(t, cfg.AlertsEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "rescue-alerts", cfg.KafkaAlertTopic)
	assert.False(t, cfg.AssistantConfigured())
	assert.False(t, cfg.AssistantPartiallyConfigured())
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://ops.example.org, https://map.example.org")
	t.Setenv("RANKING_API_URL", " http://ranker:8000/api/ranking ")
	t.Setenv("RANKING_TIMEOUT", "3s")
	t.Setenv("ROSTER_BLOB", "roster.json")
	t.Setenv("STORAGE_ENDPOINT", "minio:9000")
	t.Setenv("STORAGE_USE_SSL", "false")
	t.Setenv("SYNTHETIC_COUNT", "12")
	t.Setenv("FOCUS_ZOOM", "14")
	t.Setenv("CONTEXT_TOP_N", "3")
	t.Setenv("ASSISTANT_MODE", "Live")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com")
	t.Setenv("AZURE_OPENAI_API_KEY", testAPIKey)
	t.Setenv("ALERTS_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"https://ops.example.org", "https://map.example.org"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "http://ranker:8000/api/ranking", cfg.RankingAPIURL)
	assert.Equal(t, 3*time.Second, cfg.RankingTimeout)
	assert.Equal(t, "roster.json", cfg.RosterBlob)
	assert.False(t, cfg.StorageUseSSL)
	assert.Equal(t, 12, cfg.SyntheticCount)
	assert.Equal(t, 14, cfg.FocusZoom)
	assert.Equal(t, 3, cfg.ContextTopN)
	assert.Equal(t, AssistantLive, cfg.AssistantMode)
	assert.True(t, cfg.AssistantConfigured())
	assert.True(t, cfg.AlertsEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidRankingTimeout(t *testing.T) {
	t.Setenv("RANKING_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RANKING_TIMEOUT")
}

func TestLoad_InvalidSnapshotTTL(t *testing.T) {
	t.Setenv("SNAPSHOT_TTL", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SNAPSHOT_TTL")
}

func TestLoad_EmptyCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CORS_ALLOWED_ORIGINS")
}

func TestLoad_InvalidZoom(t *testing.T) {
	t.Setenv("FOCUS_ZOOM", "99")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOCUS_ZOOM")
}

func TestLoad_InvalidCoordinate(t *testing.T) {
	t.Setenv("RESCUER_LAT", "91")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESCUER_LAT")
}

func TestLoad_InvalidAssistantMode(t *testing.T) {
	t.Setenv("ASSISTANT_MODE", "maybe")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ASSISTANT_MODE")
}

func TestLoad_InvalidProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "llama")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_PROVIDER")
}

func TestLoad_BlobWithoutEndpoint(t *testing.T) {
	t.Setenv("ROSTER_BLOB", "roster.json")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_ENDPOINT")
}

func TestAssistantConfiguration(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		wantFull    bool
		wantPartial bool
	}{
		{"azure complete", Config{LLMProvider: ProviderAzure, AzureOpenAIEndpoint: "https://x", AzureOpenAIAPIKey: testAPIKey, AzureOpenAIDeployment: "gpt-4o"}, true, true},
		{"azure key only", Config{LLMProvider: ProviderAzure, AzureOpenAIAPIKey: testAPIKey, AzureOpenAIDeployment: "gpt-4o"}, false, true},
		{"azure nothing", Config{LLMProvider: ProviderAzure, AzureOpenAIDeployment: "gpt-4o"}, false, false},
		{"gemini complete", Config{LLMProvider: ProviderGemini, GeminiAPIKey: testAPIKey, GeminiModel: "gemini-2.0-flash"}, true, true},
		{"gemini nothing", Config{LLMProvider: ProviderGemini, GeminiModel: "gemini-2.0-flash"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantFull, tt.cfg.AssistantConfigured())
			assert.Equal(t, tt.wantPartial, tt.cfg.AssistantPartiallyConfigured())
		})
	}
}
