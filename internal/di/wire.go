//go:build wireinject
// +build wireinject

package di

import (
	"SectorScope/pkg/config"
	"SectorScope/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Data sources and publishers
		ProvideMarketDataProvider,
		ProvideHoldings,
		ProvideEventPublisher,

		// Use cases
		ProvideFetcher,
		ProvidePipeline,

		// Delivery
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
