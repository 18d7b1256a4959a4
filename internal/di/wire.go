//go:build wireinject
// +build wireinject

// This file declares the same dependency graph container.go builds by hand,
// in google/wire's injector-function form, grounded on the teacher's
// infrastructure/di/wire.go SuperSet/InitializeContainer pattern. It carries
// the wireinject build tag, so `go build`/`go test` never compile it; running
// `wire` here would regenerate container.go's BuildWriterContainer body.
// Kept as documentation of the graph and as the wire entrypoint for anyone
// who wants to move off the hand-written container.
package di

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"applicationaccess/domain/accessmanager"
	"applicationaccess/infrastructure/tracing"
	"applicationaccess/internal/config"
	"applicationaccess/internal/eventbuffer"
	"applicationaccess/internal/eventcache"
	httpapi "applicationaccess/interfaces/http"
	"applicationaccess/internal/writer"
)

// WriterSuperSet is the provider set backing a writer node process.
var WriterSuperSet = wire.NewSet(
	provideLogger,
	provideMetrics,
	provideTracer,
	providePersister,
	provideEventCache,
	provideEventBuffer,
	provideWriterAccessManager,
	provideWriterNode,
	provideWriterHTTPServer,
	wire.Struct(new(Container), "*"),
)

// InitializeWriterContainer builds a writer node's Container. Running
// `wire` against this file would replace the wire.Build call below with the
// generated call chain; container.BuildWriterContainer is the hand-written
// equivalent actually compiled into the binary.
func InitializeWriterContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(WriterSuperSet)
	return nil, nil
}

func provideTracer(ctx context.Context, cfg *config.Config) (*tracing.TracerProvider, error) {
	return tracing.Init(ctx, cfg.Tracing)
}

func provideEventCache(cfg *config.Config) *eventcache.Cache {
	return eventcache.New(cfg.EventCache.Capacity)
}

func provideEventBuffer(cfg *config.Config, persister eventbuffer.Persister, cache *eventcache.Cache, logger *zap.Logger) *eventbuffer.Buffer {
	return eventbuffer.New(cfg.FlushStrategy.SizeThreshold, cfg.FlushStrategy.IntervalThreshold, persister, cache, logger)
}

func provideWriterAccessManager() *accessmanager.AccessManager {
	return accessmanager.New()
}

func provideWriterNode(am *accessmanager.AccessManager, buf *eventbuffer.Buffer, logger *zap.Logger) *writer.Node {
	return writer.New(am, buf, logger)
}

func provideWriterHTTPServer(w *writer.Node, am *accessmanager.AccessManager, logger *zap.Logger) *httpapi.Server {
	return httpapi.NewServer(w, am, logger)
}
