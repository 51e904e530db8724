//go:build wireinject
// +build wireinject

package di

import (
	"FxChart/pkg/config"
	"FxChart/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideHTTPClient,
		ProvideCache,

		// Repositories
		ProvideMarketData,

		// Use cases
		ProvideCalculator,
		ProvideChartUseCase,
		ProvideHub,
		ProvidePoller,

		// Transport
		ProvideLimiter,
		ProvideChartHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
