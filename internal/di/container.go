// Package di provides a centralized dependency injection container for the
// two node kinds this module's cmd/ binaries start (writer and reader),
// built by hand rather than by running `wire generate`. Grounded on the
// teacher's internal/di/container.go Container struct and
// provideLogger/provideAWSConfig/provideDynamoDBClient providers, adapted
// from the teacher's single monolithic API container to this module's
// narrower per-node-kind wiring. wire.go in this package declares the same
// dependency graph in Wire's injector-function form for anyone who later
// wants to regenerate this file with `wire`; that file carries the
// wireinject build tag and is excluded from every normal build, this one
// included.
package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	awsDynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsEventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"applicationaccess/domain/accessmanager"
	"applicationaccess/domain/events"
	dynamostore "applicationaccess/infrastructure/dynamodb"
	"applicationaccess/infrastructure/eventbridge"
	supabasestore "applicationaccess/infrastructure/supabase"
	"applicationaccess/infrastructure/tracing"
	"applicationaccess/internal/config"
	"applicationaccess/internal/eventbuffer"
	"applicationaccess/internal/eventcache"
	httpapi "applicationaccess/interfaces/http"
	"applicationaccess/internal/reader"
	"applicationaccess/internal/writer"
	"applicationaccess/pkg/accesserrors"
	"applicationaccess/pkg/metrics"
)

// Container holds every long-lived dependency one process needs, assembled
// once at startup. Not every field is populated for every node kind: a
// reader process leaves Writer/Buffer nil, a writer process leaves
// ReaderNode nil.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	AccessManager *accessmanager.AccessManager
	EventCache    *eventcache.Cache
	Metrics       *metrics.Filter
	Tracer        *tracing.TracerProvider

	Persister eventbuffer.Persister
	Reader    reader.PersistentReader

	Buffer *eventbuffer.Buffer
	Writer *writer.Node

	ReaderNode *reader.Node

	HTTPServer *httpapi.Server
}

// BuildWriterContainer assembles everything a writer node process needs:
// an Access Manager, a persistence-backed EventBuffer, an EventBridge
// fan-out when enabled, and the REST surface in front of it.
func BuildWriterContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	logger, err := provideLogger(cfg)
	if err != nil {
		return nil, err
	}
	c.Logger = logger
	c.Metrics = provideMetrics(cfg)

	tracer, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	c.Tracer = tracer

	persister, err := providePersister(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.Persister = persister

	c.EventCache = eventcache.New(cfg.EventCache.Capacity)
	c.Buffer = eventbuffer.New(cfg.FlushStrategy.SizeThreshold, cfg.FlushStrategy.IntervalThreshold, c.Persister, c.EventCache, logger)

	amOpts := []accessmanager.Option{}
	if cfg.AWS.EnableEventBridge {
		notifier, err := provideEventBridgeNotifier(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		amOpts = append(amOpts, accessmanager.WithSink(notifier))
	}
	c.AccessManager = accessmanager.New(amOpts...)
	c.Writer = writer.New(c.AccessManager, c.Buffer, logger)

	c.HTTPServer = httpapi.NewServer(c.Writer, c.AccessManager, logger)
	return c, nil
}

// BuildReaderContainer assembles a Reader Node replica polling the event
// cache, falling back to the same persistence tier a writer flushes to.
func BuildReaderContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	logger, err := provideLogger(cfg)
	if err != nil {
		return nil, err
	}
	c.Logger = logger
	c.Metrics = provideMetrics(cfg)

	tracer, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	c.Tracer = tracer

	persistentReader, err := providePersistentReader(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.Reader = tracing.TracePersistentReader(persistentReader, tracer)

	c.EventCache = eventcache.New(cfg.EventCache.Capacity)
	c.AccessManager = accessmanager.New()
	c.ReaderNode = reader.New(c.AccessManager, c.EventCache, c.Reader, logger, reader.WithMetrics(c.Metrics))

	c.HTTPServer = httpapi.NewServer(readOnlyWriter{}, c.AccessManager, logger)
	return c, nil
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	switch cfg.Environment {
	case config.Production:
		return zap.NewProduction()
	default:
		return zap.NewDevelopment()
	}
}

func provideMetrics(cfg *config.Config) *metrics.Filter {
	sink := metrics.NewPrometheusSink(cfg.Metrics.Namespace)
	categories := make([]metrics.Category, 0, len(cfg.Metrics.EnabledCategories))
	for _, name := range cfg.Metrics.EnabledCategories {
		categories = append(categories, metrics.Category(name))
	}
	return metrics.NewFilter(sink, categories...)
}

func provideAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	return awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(region))
}

func providePersister(ctx context.Context, cfg *config.Config, logger *zap.Logger) (eventbuffer.Persister, error) {
	switch cfg.Database.Provider {
	case "supabase":
		return supabasestore.NewStore(cfg.Database.SupabaseURL, cfg.Database.SupabaseKey, logger)
	default:
		awsCfg, err := provideAWSConfig(ctx, cfg.Database.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		client := awsDynamodb.NewFromConfig(awsCfg)
		return dynamostore.NewStore(client, cfg.Database.TableName, logger), nil
	}
}

func providePersistentReader(ctx context.Context, cfg *config.Config, logger *zap.Logger) (reader.PersistentReader, error) {
	persister, err := providePersister(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	pr, ok := persister.(reader.PersistentReader)
	if !ok {
		return nil, fmt.Errorf("persister for provider %q does not implement PersistentReader", cfg.Database.Provider)
	}
	return pr, nil
}

func provideEventBridgeNotifier(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*eventbridge.Notifier, error) {
	awsCfg, err := provideAWSConfig(ctx, cfg.AWS.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config for eventbridge: %w", err)
	}
	client := awsEventbridge.NewFromConfig(awsCfg)
	return eventbridge.NewNotifier(client, cfg.AWS.EventBusName, logger), nil
}

// Shutdown releases resources the container owns: the buffer's interval
// flusher and any active trace exporter connection.
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Buffer != nil {
		c.Buffer.Stop()
	}
	return c.Tracer.Shutdown(ctx)
}

// readOnlyWriter backs a reader node's HTTP surface, which serves queries
// only: writes must go to a writer node.
type readOnlyWriter struct{}

func (readOnlyWriter) Write(ctx context.Context, e events.Event) error {
	return accesserrors.InvalidArgument("node", "this node is read-only; writes must target a writer node")
}
