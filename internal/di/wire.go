//go:build wireinject
// +build wireinject

package di

import (
	"FxCockpit/pkg/config"
	"FxCockpit/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideDatabase,
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideAlertRepository,
		ProvideNarrativeRepository,
		ProvideSnapshotCache,
		ProvideBarStore,
		ProvideEventPublisher,
		ProvideAssetSource,

		// Engines
		ProvideSessionClock,
		ProvideAlertEngine,
		ProvideEngines,
		ProvideSnapshotStore,

		// Use cases
		ProvideQuoteBook,
		ProvideKafkaBarsHandler,
		ProvideQuoteCollector,
		ProvideAnalytics,
		ProvideNarrativeService,
		ProvideAlertService,
		ProvideQueryService,
		ProvideScheduler,

		// Transport
		ProvideHealthChecks,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}
