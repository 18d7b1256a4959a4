// Package config provides configuration management for the ApplicationAccess
// cluster: writer nodes, reader nodes, and the shard router/coordinator all
// load their settings through the same Config struct, validated with
// struct tags and hot-reloadable in development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config represents the complete process configuration. Not every field
// applies to every node kind: a writer node ignores Reader, a reader node
// ignores FlushStrategy, and only the coordinator process reads ShardRouter.
type Config struct {
	Environment Environment `yaml:"environment" json:"environment" validate:"required,oneof=development staging production"`
	Server      Server      `yaml:"server" json:"server" validate:"required,dive"`
	Database    Database    `yaml:"database" json:"database" validate:"required,dive"`
	AWS         AWS         `yaml:"aws" json:"aws" validate:"required,dive"`

	FlushStrategy  FlushStrategy  `yaml:"flush_strategy" json:"flush_strategy" validate:"dive"`
	EventCache     EventCacheConf `yaml:"event_cache" json:"event_cache" validate:"dive"`
	Reader         ReaderConf     `yaml:"reader" json:"reader" validate:"dive"`
	ShardRouter    ShardRouterConf `yaml:"shard_router" json:"shard_router" validate:"dive"`

	Infrastructure Infrastructure `yaml:"infrastructure" json:"infrastructure" validate:"required,dive"`
	Features       Features       `yaml:"features" json:"features"`
	Metrics        Metrics        `yaml:"metrics" json:"metrics" validate:"dive"`
	Logging        Logging        `yaml:"logging" json:"logging" validate:"dive"`
	Security       Security       `yaml:"security" json:"security" validate:"dive"`
	Tracing        Tracing        `yaml:"tracing" json:"tracing" validate:"dive"`

	Version    string   `yaml:"version" json:"version"`
	LoadedFrom []string `yaml:"-" json:"-"`
}

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Server contains HTTP/gRPC listener configuration shared by the REST and
// gRPC surfaces of any node kind.
type Server struct {
	Port            int           `yaml:"port" json:"port" validate:"required,min=1,max=65535"`
	GRPCPort        int           `yaml:"grpc_port" json:"grpc_port" validate:"required,min=1,max=65535"`
	Host            string        `yaml:"host" json:"host" validate:"required,hostname|ip"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" validate:"required,min=1s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" validate:"required,min=1s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" validate:"required,min=1s"`
}

// Database describes the DynamoDB table backing BulkEventPersister/
// PersistentReader when those adapters are selected.
type Database struct {
	Provider   string        `yaml:"provider" json:"provider" validate:"required,oneof=dynamodb supabase"`
	TableName  string        `yaml:"table_name" json:"table_name" validate:"required"`
	Region     string        `yaml:"region" json:"region" validate:"required"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries" validate:"min=0,max=10"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout" validate:"required,min=1s"`

	SupabaseURL string `yaml:"supabase_url" json:"supabase_url" validate:"required_if=Provider supabase"`
	SupabaseKey string `yaml:"supabase_key" json:"supabase_key" validate:"required_if=Provider supabase"`
}

// AWS contains the region/eventbridge settings for the notification
// fan-out.
type AWS struct {
	Region           string `yaml:"region" json:"region" validate:"required"`
	EventBusName     string `yaml:"event_bus_name" json:"event_bus_name"`
	EnableEventBridge bool  `yaml:"enable_eventbridge" json:"enable_eventbridge"`
}

// FlushStrategy configures the Writer Node's EventBuffer flush triggers
// (§4.D).
type FlushStrategy struct {
	SizeThreshold     int           `yaml:"size_threshold" json:"size_threshold" validate:"required,min=1"`
	IntervalThreshold time.Duration `yaml:"interval_threshold" json:"interval_threshold" validate:"required,min=1ms"`
}

// EventCacheConf configures the bounded ordered event cache (§4.F).
type EventCacheConf struct {
	Capacity int `yaml:"capacity" json:"capacity" validate:"required,min=1"`
}

// ReaderConf configures a Reader Node's refresh cadence (§4.G).
type ReaderConf struct {
	RefreshInterval time.Duration `yaml:"refresh_interval" json:"refresh_interval" validate:"required,min=1ms"`
}

// ShardRouterConf configures the coordinator process (§4.H).
type ShardRouterConf struct {
	ConfigRefreshInterval time.Duration `yaml:"config_refresh_interval" json:"config_refresh_interval" validate:"required,min=1s"`
	RoutingRetryOnce      bool          `yaml:"routing_retry_once" json:"routing_retry_once"`
}

// Infrastructure groups cross-cutting resiliency settings.
type Infrastructure struct {
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker" validate:"dive"`
	HealthCheckInterval time.Duration  `yaml:"health_check_interval" json:"health_check_interval" validate:"required,min=1s"`
}

// CircuitBreakerConfig configures the cluster-wide trip switch.
type CircuitBreakerConfig struct {
	FailureThreshold float64       `yaml:"failure_threshold" json:"failure_threshold" validate:"min=0,max=1"`
	MinimumRequests  uint32        `yaml:"minimum_requests" json:"minimum_requests" validate:"min=1"`
	OpenDuration     time.Duration `yaml:"open_duration" json:"open_duration" validate:"required,min=1s"`
}

// Features holds feature flags.
type Features struct {
	EnableMetrics          bool `yaml:"enable_metrics" json:"enable_metrics"`
	EnableTracing          bool `yaml:"enable_tracing" json:"enable_tracing"`
	EnableDependencyFreeAM bool `yaml:"enable_dependency_free_access_manager" json:"enable_dependency_free_access_manager"`
}

// Metrics configures the Prometheus sink behind the Metric Filter (§4.J).
type Metrics struct {
	Namespace  string `yaml:"namespace" json:"namespace" validate:"required"`
	Prometheus PrometheusConfig `yaml:"prometheus" json:"prometheus" validate:"dive"`
	EnabledCategories []string `yaml:"enabled_categories" json:"enabled_categories"`
}

// PrometheusConfig configures the /metrics listener.
type PrometheusConfig struct {
	Port int    `yaml:"port" json:"port" validate:"required,min=1,max=65535"`
	Path string `yaml:"path" json:"path" validate:"required"`
}

// Logging configures zap's logger construction.
type Logging struct {
	Level  string `yaml:"level" json:"level" validate:"required,oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"required,oneof=json console"`
}

// Security contains the minimal auth-adjacent settings this spec carries;
// authn/authz enforcement itself is a Non-goal (spec.md §1).
type Security struct {
	APIKeyHeader string `yaml:"api_key_header" json:"api_key_header"`
}

// Tracing configures the otlptrace exporter used for shard fan-out and
// reader refresh spans.
type Tracing struct {
	Enabled        bool    `yaml:"enabled" json:"enabled"`
	ServiceName    string  `yaml:"service_name" json:"service_name" validate:"required_if=Enabled true"`
	CollectorEndpoint string `yaml:"collector_endpoint" json:"collector_endpoint" validate:"required_if=Enabled true"`
	SampleRate     float64 `yaml:"sample_rate" json:"sample_rate" validate:"min=0,max=1"`
}

var validate = validator.New()

// Validate checks every struct tag constraint on c.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// applyEnvironmentDefaults adjusts settings that should differ by
// environment but aren't worth a full override file (teacher pattern:
// internal/config/config.go applyEnvironmentDefaults).
func (c *Config) applyEnvironmentDefaults() {
	if c.Environment == Production {
		c.Logging.Format = "json"
	}
	if c.Environment == Development && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
}

func getEnvironment() Environment {
	switch strings.ToLower(os.Getenv("APP_ENV")) {
	case "production", "prod":
		return Production
	case "staging":
		return Staging
	default:
		return Development
	}
}

func generateDefaultSecret() string {
	return "dev-only-not-for-production"
}

func parseIntEnv(s string) int {
	val, _ := strconv.Atoi(s)
	return val
}

func parseBoolEnv(s string) bool {
	val, _ := strconv.ParseBool(s)
	return val
}
