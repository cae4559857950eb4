// Package config handles application configuration loading from a YAML file and environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "borneo/internal/utils"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable holding the config file path
const ConfigFileEnv = "BORNEO_CONFIG_FILE"

// Provider kinds understood by the provider factory
const (
	ProviderKindGemini = "gemini"
	ProviderKindOpenAI = "openai"
	ProviderKindDemo   = "demo"
)

// Storage backends understood by the store factory
const (
	StorageBackendMemory   = "memory"
	StorageBackendLevelDB  = "leveldb"
	StorageBackendPostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Translator behaviour
	Translation TranslationConfig `json:"translation" yaml:"translation"`

	// Translation providers, the one named by Translation.DefaultProvider is used
	Providers []ProviderConfig `json:"providers" yaml:"providers"`

	// Where overrides, history, uploads and credentials live
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Database configuration, used when Storage.Backend is postgres
	Database DatabaseConfig `json:"database" yaml:"database"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port               string        `json:"port" yaml:"port"`
	SessionSecret      string        `json:"session_secret" yaml:"session_secret"`
	Debug              bool          `json:"debug" yaml:"debug"`
	LogLevel           string        `json:"log_level" yaml:"log_level"`
	CORSOrigins        []string      `json:"cors_origins" yaml:"cors_origins"`
	AdminUsername      string        `json:"admin_username" yaml:"admin_username"`
	AdminPasswordHash  string        `json:"admin_password_hash" yaml:"admin_password_hash"`
	SessionIdleTimeout time.Duration `json:"session_idle_timeout" yaml:"session_idle_timeout"`
	MaxUploadBytes     int64         `json:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// TranslationConfig tunes the translate-as-you-type orchestrator
type TranslationConfig struct {
	Debounce        time.Duration `json:"debounce" yaml:"debounce"`
	HistoryLimit    int           `json:"history_limit" yaml:"history_limit"`
	MaxTextLength   int           `json:"max_text_length" yaml:"max_text_length"`
	DefaultProvider string        `json:"default_provider" yaml:"default_provider"`
	StreamBuffer    int           `json:"stream_buffer" yaml:"stream_buffer"`
}

// ProviderConfig describes one translation provider endpoint
type ProviderConfig struct {
	Name        string        `json:"name" yaml:"name"`
	Kind        string        `json:"kind" yaml:"kind"`
	BaseURL     string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model       string        `json:"model,omitempty" yaml:"model,omitempty"`
	APIKey      string        `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	SpeechModel string        `json:"speech_model,omitempty" yaml:"speech_model,omitempty"`
	Voice       string        `json:"voice,omitempty" yaml:"voice,omitempty"`
	DemoDelay   time.Duration `json:"demo_delay,omitempty" yaml:"demo_delay,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// StorageConfig selects the repository backend
type StorageConfig struct {
	Backend           string        `json:"backend" yaml:"backend"`
	LevelDBPath       string        `json:"leveldb_path" yaml:"leveldb_path"`
	OverrideCacheSize int           `json:"override_cache_size" yaml:"override_cache_size"`
	OverrideCacheTTL  time.Duration `json:"override_cache_ttl" yaml:"override_cache_ttl"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "borneo-backend"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"` // Default: 1.0 (100%)
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`       // Maximum number of open connections to the database
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`       // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"` // Maximum amount of time a connection may be reused
}

// Default returns a configuration that runs fully in memory with the demo provider
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               "8080",
			SessionSecret:      "change-me",
			LogLevel:           "info",
			CORSOrigins:        []string{"http://localhost:3000"},
			AdminUsername:      "admin",
			SessionIdleTimeout: DefaultSessionIdleTimeout,
			MaxUploadBytes:     DefaultMaxUploadBytes,
		},
		Translation: TranslationConfig{
			Debounce:        DefaultDebounce,
			HistoryLimit:    DefaultHistoryLimit,
			MaxTextLength:   DefaultMaxTextLength,
			DefaultProvider: "demo",
			StreamBuffer:    DefaultStreamBuffer,
		},
		Providers: []ProviderConfig{
			{Name: "demo", Kind: ProviderKindDemo, DemoDelay: DefaultDemoDelay},
		},
		Storage: StorageConfig{
			Backend:           StorageBackendMemory,
			LevelDBPath:       "data/borneo.ldb",
			OverrideCacheSize: DefaultOverrideCacheSize,
			OverrideCacheTTL:  DefaultOverrideCacheTTL,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: DatabaseConnMaxLifetime,
		},
		OpenTelemetry: OpenTelemetryConfig{
			Endpoint:     "localhost:4317",
			Protocol:     "grpc",
			Insecure:     true,
			ServiceName:  "borneo-backend",
			SamplingRate: 1.0,
		},
	}
}

// Provider returns the provider config with the given name
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// DefaultProviderConfig returns the configured default provider, falling back to the first one
func (c *Config) DefaultProviderConfig() (ProviderConfig, bool) {
	if p, ok := c.Provider(c.Translation.DefaultProvider); ok {
		return p, true
	}
	if len(c.Providers) > 0 {
		return c.Providers[0], true
	}
	return ProviderConfig{}, false
}

// Validate checks the values that would otherwise fail late at runtime
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageBackendMemory, StorageBackendLevelDB:
	case StorageBackendPostgres:
		if c.Database.URL == "" {
			return contextutils.WrapError(contextutils.ErrMissingRequired, "database.url is required for the postgres storage backend")
		}
	default:
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown storage backend %q", c.Storage.Backend)
	}

	if c.Storage.OverrideCacheSize > 0 && c.Storage.OverrideCacheTTL <= 0 {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "storage.override_cache_ttl must be positive when the override cache is on")
	}

	if c.Translation.HistoryLimit <= 0 {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "translation.history_limit must be positive")
	}
	if c.Translation.Debounce < 0 {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "translation.debounce must not be negative")
	}

	for _, p := range c.Providers {
		switch p.Kind {
		case ProviderKindGemini, ProviderKindOpenAI, ProviderKindDemo:
		default:
			return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "provider %q has unknown kind %q", p.Name, p.Kind)
		}
	}
	return nil
}

// NewConfig loads configuration from YAML file first, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	config.overrideFromEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnvWithPrefix(c, "")
}

var durationType = reflect.TypeOf(time.Duration(0))

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		if !field.CanSet() {
			continue
		}

		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		// Durations are int64 underneath but are written as "500ms" in the environment
		if field.Type() == durationType {
			if envVal := os.Getenv(envKey); envVal != "" {
				if d, err := time.ParseDuration(envVal); err == nil {
					field.SetInt(int64(d))
				}
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				if field.Type().Elem().Kind() == reflect.String {
					slice := strings.Split(envVal, ",")
					field.Set(reflect.ValueOf(slice))
				}
			}
		case reflect.Struct:
			if field.CanAddr() {
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), envKey)
			}
		}
	}
}

// loadConfigWithOverrides loads the config file named by BORNEO_CONFIG_FILE or config.yaml
func loadConfigWithOverrides() (result0 *Config, err error) {
	if envPath := os.Getenv(ConfigFileEnv); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	config, err := loadConfigFromFile("config.yaml")
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

// loadConfigFromFile loads configuration from a specific file on top of the defaults
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, err
	}

	return config, nil
}
