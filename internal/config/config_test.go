package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	contextutils "borneo/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_LoadsFromYAML(t *testing.T) {
	tempFile := createTempConfigFile(t, `
server:
  port: "9090"
  session_secret: "test-secret"
  debug: true
  admin_username: "pengurus"
  admin_password_hash: "$2a$10$abcdefghijklmnopqrstuv"
  session_idle_timeout: "10m"
  cors_origins:
    - "http://test:3000"
    - "http://test:3001"

translation:
  debounce: "250ms"
  history_limit: 15
  max_text_length: 100
  default_provider: "gemini"

providers:
  - name: "gemini"
    kind: "gemini"
    model: "gemini-2.5-flash"
    api_key: "secret"
  - name: "demo"
    kind: "demo"
    demo_delay: "10ms"

storage:
  backend: "leveldb"
  leveldb_path: "/tmp/borneo"
  override_cache_size: 10

open_telemetry:
  endpoint: "test:4317"
  protocol: "http"
  service_name: "test-service"
  enable_tracing: false
  sampling_rate: 0.5
`)
	t.Setenv(ConfigFileEnv, tempFile)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "pengurus", cfg.Server.AdminUsername)
	assert.Equal(t, 10*time.Minute, cfg.Server.SessionIdleTimeout)
	assert.Equal(t, []string{"http://test:3000", "http://test:3001"}, cfg.Server.CORSOrigins)

	assert.Equal(t, 250*time.Millisecond, cfg.Translation.Debounce)
	assert.Equal(t, 15, cfg.Translation.HistoryLimit)
	assert.Equal(t, 100, cfg.Translation.MaxTextLength)
	// Unset fields keep their defaults
	assert.Equal(t, DefaultStreamBuffer, cfg.Translation.StreamBuffer)

	require.Len(t, cfg.Providers, 2)
	p, ok := cfg.DefaultProviderConfig()
	require.True(t, ok)
	assert.Equal(t, "gemini", p.Name)
	assert.Equal(t, "secret", p.APIKey)

	demo, ok := cfg.Provider("demo")
	require.True(t, ok)
	assert.Equal(t, 10*time.Millisecond, demo.DemoDelay)

	assert.Equal(t, StorageBackendLevelDB, cfg.Storage.Backend)
	assert.Equal(t, 10, cfg.Storage.OverrideCacheSize)
	assert.Equal(t, "http", cfg.OpenTelemetry.Protocol)
	assert.Equal(t, 0.5, cfg.OpenTelemetry.SamplingRate)
}

func TestNewConfig_EnvironmentOverrides(t *testing.T) {
	tempFile := createTempConfigFile(t, `
server:
  port: "8080"
translation:
  debounce: "500ms"
`)
	t.Setenv(ConfigFileEnv, tempFile)
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("SERVER_CORS_ORIGINS", "http://a,http://b")
	t.Setenv("TRANSLATION_DEBOUNCE", "750ms")
	t.Setenv("TRANSLATION_HISTORY_LIMIT", "5")
	t.Setenv("OPEN_TELEMETRY_ENABLE_LOGGING", "true")
	t.Setenv("OPEN_TELEMETRY_SAMPLING_RATE", "0.25")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 750*time.Millisecond, cfg.Translation.Debounce)
	assert.Equal(t, 5, cfg.Translation.HistoryLimit)
	assert.True(t, cfg.OpenTelemetry.EnableLogging)
	assert.Equal(t, 0.25, cfg.OpenTelemetry.SamplingRate)
}

func TestNewConfig_MissingDefaultFileUsesDefaults(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, cfg.Translation.Debounce)
	assert.Equal(t, DefaultHistoryLimit, cfg.Translation.HistoryLimit)
	assert.Equal(t, StorageBackendMemory, cfg.Storage.Backend)
}

func TestNewConfig_MissingExplicitFileFails(t *testing.T) {
	t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := NewConfig()
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr contextutils.ErrorCode
	}{
		{
			name:   "defaults are valid",
			mutate: func(_ *Config) {},
		},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.Storage.Backend = StorageBackendPostgres },
			wantErr: contextutils.ErrorCodeMissingRequired,
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Storage.Backend = "redis" },
			wantErr: contextutils.ErrorCodeInvalidInput,
		},
		{
			name:    "override cache without ttl",
			mutate:  func(c *Config) { c.Storage.OverrideCacheTTL = 0 },
			wantErr: contextutils.ErrorCodeInvalidInput,
		},
		{
			name: "cache off needs no ttl",
			mutate: func(c *Config) {
				c.Storage.OverrideCacheSize = 0
				c.Storage.OverrideCacheTTL = 0
			},
		},
		{
			name:    "zero history limit",
			mutate:  func(c *Config) { c.Translation.HistoryLimit = 0 },
			wantErr: contextutils.ErrorCodeInvalidInput,
		},
		{
			name: "unknown provider kind",
			mutate: func(c *Config) {
				c.Providers = append(c.Providers, ProviderConfig{Name: "x", Kind: "deepl"})
			},
			wantErr: contextutils.ErrorCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, contextutils.GetErrorCode(err))
		})
	}
}

func TestConfig_DefaultProviderFallsBackToFirst(t *testing.T) {
	cfg := Default()
	cfg.Translation.DefaultProvider = "missing"

	p, ok := cfg.DefaultProviderConfig()
	require.True(t, ok)
	assert.Equal(t, "demo", p.Name)

	cfg.Providers = nil
	_, ok = cfg.DefaultProviderConfig()
	assert.False(t, ok)
}

func createTempConfigFile(t *testing.T, content string) string {
	tempFile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)
	defer func() {
		if err := tempFile.Close(); err != nil {
			t.Logf("Failed to close temp file: %v", err)
		}
	}()

	_, err = tempFile.WriteString(content)
	require.NoError(t, err)

	return tempFile.Name()
}
