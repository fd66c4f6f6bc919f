//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/umeboshi2/kotti-jsonapi/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogLevel,
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCollector,
	ProvideNodeStore,
	ProvidePrincipalStore,
	ProvideEventPublisher,
	ProvideWorkflow,
	ProvidePolicy,
	ProvideRegistry,
	ProvideSite,
	ProvideFlashStore,
	ProvideGatherer,
	ProvideSerializer,
	ProvideErrorHandler,
	ProvideEnv,
	ProvideTokenValidator,
	ProvideRateLimiter,
	ProvideRouter,
	ProvideWatcher,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
