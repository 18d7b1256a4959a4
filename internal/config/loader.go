// Package config: multi-source configuration loading, adapted from the
// teacher's Strategy-pattern loader (defaults -> base file -> environment
// file -> local overrides -> environment variables).
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles loading configuration from multiple sources.
type Loader struct {
	basePath    string
	environment Environment
	sources     []string
	fileLoaders map[string]FileLoader
}

// FileLoader abstracts a single configuration file format.
type FileLoader interface {
	Load(reader io.Reader, target interface{}) error
	Extension() string
}

// NewLoader creates a new configuration loader with sensible defaults.
func NewLoader(basePath string, env Environment) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	loader := &Loader{
		basePath:    basePath,
		environment: env,
		sources:     make([]string, 0),
		fileLoaders: make(map[string]FileLoader),
	}
	loader.RegisterLoader(&YAMLLoader{})
	loader.RegisterLoader(&JSONLoader{})
	return loader
}

// RegisterLoader registers a new file loader for a specific format.
func (l *Loader) RegisterLoader(loader FileLoader) {
	l.fileLoaders[loader.Extension()] = loader
}

// Load loads configuration using a hierarchy of sources, lowest to highest
// priority: defaults, base.yaml, <environment>.yaml, local.yaml (development
// only), then environment variables.
func (l *Loader) Load() (*Config, error) {
	cfg := l.defaultConfig()
	l.sources = append(l.sources, "defaults")

	if err := l.loadFile("base", cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	envFile := strings.ToLower(string(l.environment))
	if err := l.loadFile(envFile, cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s config: %w", envFile, err)
	}

	if l.environment == Development {
		if err := l.loadFile("local", cfg); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "warning: failed to load local config: %v\n", err)
		}
	}

	l.loadEnvironmentVariables(cfg)
	l.sources = append(l.sources, "environment")

	cfg.LoadedFrom = l.sources
	cfg.Version = "1.0.0"
	cfg.applyEnvironmentDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadFile(name string, cfg *Config) error {
	for ext, loader := range l.fileLoaders {
		filename := fmt.Sprintf("%s.%s", name, ext)
		path := filepath.Join(l.basePath, filename)

		file, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		defer file.Close()

		if err := loader.Load(file, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		l.sources = append(l.sources, path)
		return nil
	}
	return os.ErrNotExist
}

func (l *Loader) loadEnvironmentVariables(cfg *Config) {
	if val := os.Getenv("SERVER_PORT"); val != "" {
		if port := parseIntEnv(val); port > 0 {
			cfg.Server.Port = port
		}
	}
	if val := os.Getenv("SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("TABLE_NAME"); val != "" {
		cfg.Database.TableName = val
	}
	if val := os.Getenv("AWS_REGION"); val != "" {
		cfg.AWS.Region = val
		cfg.Database.Region = val
	}
	if val := os.Getenv("ENABLE_METRICS"); val != "" {
		cfg.Features.EnableMetrics = parseBoolEnv(val)
	}
	if val := os.Getenv("ENABLE_TRACING"); val != "" {
		cfg.Features.EnableTracing = parseBoolEnv(val)
	}
}

func (l *Loader) defaultConfig() *Config {
	return &Config{
		Environment: l.environment,
		Server: Server{
			Port:            8080,
			GRPCPort:        9090,
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: Database{
			Provider:   "dynamodb",
			TableName:  "applicationaccess-events-" + strings.ToLower(string(l.environment)),
			Region:     "us-east-1",
			MaxRetries: 3,
			Timeout:    10 * time.Second,
		},
		AWS: AWS{
			Region:            "us-east-1",
			EventBusName:      "default",
			EnableEventBridge: false,
		},
		FlushStrategy: FlushStrategy{
			SizeThreshold:     500,
			IntervalThreshold: 2 * time.Second,
		},
		EventCache: EventCacheConf{
			Capacity: 2500,
		},
		Reader: ReaderConf{
			RefreshInterval: 1 * time.Second,
		},
		ShardRouter: ShardRouterConf{
			ConfigRefreshInterval: 30 * time.Second,
			RoutingRetryOnce:      true,
		},
		Infrastructure: Infrastructure{
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 0.5,
				MinimumRequests:  10,
				OpenDuration:     30 * time.Second,
			},
			HealthCheckInterval: 30 * time.Second,
		},
		Metrics: Metrics{
			Namespace: "applicationaccess",
			Prometheus: PrometheusConfig{
				Port: 9100,
				Path: "/metrics",
			},
			EnabledCategories: []string{"graph", "eventbuffer", "reader", "shardrouter"},
		},
		Logging: Logging{
			Level:  defaultLogLevel(l.environment),
			Format: "json",
		},
		Security: Security{
			APIKeyHeader: "X-API-Key",
		},
		Tracing: Tracing{
			Enabled:     false,
			ServiceName: "applicationaccess",
			SampleRate:  0.1,
		},
	}
}

func defaultLogLevel(env Environment) string {
	if env == Development {
		return "debug"
	}
	return "info"
}

// YAMLLoader loads configuration from YAML files.
type YAMLLoader struct{}

func (y *YAMLLoader) Load(reader io.Reader, target interface{}) error {
	return yaml.NewDecoder(reader).Decode(target)
}

func (y *YAMLLoader) Extension() string { return "yaml" }

// JSONLoader loads configuration from JSON files.
type JSONLoader struct{}

func (j *JSONLoader) Load(reader io.Reader, target interface{}) error {
	return json.NewDecoder(reader).Decode(target)
}

func (j *JSONLoader) Extension() string { return "json" }

// LoadConfig loads configuration for the current environment (APP_ENV).
func LoadConfig() Config {
	env := getEnvironment()
	loader := NewLoader("config", env)
	cfg, err := loader.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return *cfg
}

// LoadWithLoader loads configuration using the advanced loader.
func LoadWithLoader() (*Config, error) {
	env := getEnvironment()
	loader := NewLoader("config", env)
	return loader.Load()
}

// MustLoadWithLoader loads configuration and panics on error.
func MustLoadWithLoader() *Config {
	cfg, err := LoadWithLoader()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
