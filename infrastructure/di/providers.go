package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/umeboshi2/kotti-jsonapi/application/ports"
	"github.com/umeboshi2/kotti-jsonapi/application/registry"
	"github.com/umeboshi2/kotti-jsonapi/application/serializer"
	"github.com/umeboshi2/kotti-jsonapi/application/site"
	"github.com/umeboshi2/kotti-jsonapi/domain/links"
	"github.com/umeboshi2/kotti-jsonapi/domain/security"
	"github.com/umeboshi2/kotti-jsonapi/domain/workflow"
	"github.com/umeboshi2/kotti-jsonapi/infrastructure/config"
	"github.com/umeboshi2/kotti-jsonapi/infrastructure/messaging/eventbridge"
	"github.com/umeboshi2/kotti-jsonapi/infrastructure/messaging/logpublisher"
	"github.com/umeboshi2/kotti-jsonapi/infrastructure/persistence"
	"github.com/umeboshi2/kotti-jsonapi/infrastructure/persistence/dynamodb"
	"github.com/umeboshi2/kotti-jsonapi/infrastructure/persistence/memory"
	"github.com/umeboshi2/kotti-jsonapi/infrastructure/schemafile"
	"github.com/umeboshi2/kotti-jsonapi/infrastructure/session"
	"github.com/umeboshi2/kotti-jsonapi/interfaces/http/rest"
	"github.com/umeboshi2/kotti-jsonapi/interfaces/http/rest/handlers"
	"github.com/umeboshi2/kotti-jsonapi/interfaces/http/rest/middleware"
	"github.com/umeboshi2/kotti-jsonapi/pkg/auth"
	pkgerrors "github.com/umeboshi2/kotti-jsonapi/pkg/errors"
	"github.com/umeboshi2/kotti-jsonapi/pkg/observability"
)

// ProvideLogLevel parses the configured level into a level that can be
// changed at runtime.
func ProvideLogLevel(cfg *config.Config) (zap.AtomicLevel, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return level, nil
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zcfg.Level = level

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("site", cfg.SiteID)), nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCollector creates the Prometheus collector. It is created even
// when metrics are disabled; the router and site only use it when enabled.
func ProvideCollector() *observability.Collector {
	return observability.NewCollector("kotti")
}

// ProvideNodeStore picks the storage backend and wraps it with the circuit
// breaker.
func ProvideNodeStore(
	cfg *config.Config,
	client *awsdynamodb.Client,
	collector *observability.Collector,
	logger *zap.Logger,
) ports.NodeStore {
	var inner ports.NodeStore
	switch cfg.StorageBackend {
	case config.StorageDynamoDB:
		inner = dynamodb.NewNodeStore(client, cfg.DynamoDBTable, cfg.SiteID, logger)
	default:
		inner = memory.NewNodeStore()
	}

	var metrics *observability.Collector
	if cfg.EnableMetrics {
		metrics = collector
	}
	return persistence.NewInstrumentedNodeStore(
		inner,
		persistence.DefaultBreakerConfig(cfg.StorageBackend),
		metrics,
		observability.Tracer(),
		logger,
	)
}

// ProvidePrincipalStore creates the user store and seeds it from the
// configuration when it holds no principals.
func ProvidePrincipalStore(
	ctx context.Context,
	cfg *config.Config,
	client *awsdynamodb.Client,
	logger *zap.Logger,
) (ports.PrincipalStore, error) {
	seed := cfg.Principals
	if len(seed) == 0 {
		seed = []security.Principal{{
			Name:   "admin",
			Title:  "Administrator",
			Groups: []string{security.RoleAdmin},
		}}
	}

	if cfg.StorageBackend != config.StorageDynamoDB {
		return memory.NewPrincipalStore(seed...), nil
	}

	store := dynamodb.NewPrincipalStore(client, cfg.DynamoDBTable, cfg.SiteID, logger)
	existing, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list principals: %w", err)
	}
	if len(existing) > 0 {
		return store, nil
	}
	for i := range seed {
		if err := store.Save(ctx, &seed[i]); err != nil {
			return nil, fmt.Errorf("seed principal %s: %w", seed[i].Name, err)
		}
	}
	logger.Info("Seeded principals", zap.Int("count", len(seed)))
	return store, nil
}

// ProvideEventPublisher publishes to EventBridge when events are enabled
// and to the log otherwise.
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.EnableEvents {
		return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
	}
	return logpublisher.NewPublisher(logger)
}

// ProvideWorkflow creates the workflow engine for the default definition.
func ProvideWorkflow() (*workflow.Engine, error) {
	return workflow.NewEngine(workflow.Default())
}

// ProvidePolicy creates the permission checker.
func ProvidePolicy(engine *workflow.Engine) *security.Policy {
	return security.NewPolicy(engine.PublicStates())
}

// ProvideRegistry registers the built-in schemas plus the ones found in
// SCHEMA_DIR, then seals the registry.
func ProvideRegistry(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*registry.Registry, error) {
	reg := registry.New()
	if err := registry.RegisterBuiltins(reg); err != nil {
		return nil, err
	}
	if cfg.SchemaDir != "" {
		defs, err := schemafile.NewLoader(logger).LoadDir(cfg.SchemaDir)
		if err != nil {
			return nil, err
		}
		if err := schemafile.Register(ctx, reg, defs); err != nil {
			return nil, err
		}
	}
	reg.Seal()
	return reg, nil
}

// ProvideSite loads the content tree.
func ProvideSite(
	ctx context.Context,
	cfg *config.Config,
	store ports.NodeStore,
	publisher ports.EventPublisher,
	engine *workflow.Engine,
	collector *observability.Collector,
	logger *zap.Logger,
) (*site.Site, error) {
	s, err := site.New(ctx, store, publisher, engine, logger, site.Options{
		Title: cfg.SiteTitle,
		Seed:  cfg.SeedContent,
	})
	if err != nil {
		return nil, err
	}
	if cfg.EnableMetrics {
		s.SetObserver(collector)
	}
	return s, nil
}

// ProvideFlashStore creates the session message store.
func ProvideFlashStore(ctx context.Context, cfg *config.Config) *session.FlashStore {
	return session.NewFlashStore(ctx, cfg.SessionTTL)
}

// ProvideGatherer creates the relational metadata gatherer.
func ProvideGatherer(
	reg *registry.Registry,
	policy *security.Policy,
	engine *workflow.Engine,
	s *site.Site,
	logger *zap.Logger,
) *serializer.Gatherer {
	return serializer.NewGatherer(reg, policy, engine, links.DefaultRegistry(), s, logger)
}

// ProvideSerializer creates the JSON:API serializer.
func ProvideSerializer(
	reg *registry.Registry,
	policy *security.Policy,
	flashes *session.FlashStore,
	gatherer *serializer.Gatherer,
	logger *zap.Logger,
) *serializer.Serializer {
	return serializer.New(reg, policy, flashes, gatherer, logger)
}

// ProvideErrorHandler creates the HTTP error renderer. Details are only
// exposed outside production.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, !cfg.IsProduction())
}

// ProvideEnv bundles the view dependencies.
func ProvideEnv(
	cfg *config.Config,
	s *site.Site,
	reg *registry.Registry,
	ser *serializer.Serializer,
	policy *security.Policy,
	flashes *session.FlashStore,
	principals ports.PrincipalStore,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *handlers.Env {
	return &handlers.Env{
		Site:       s,
		Registry:   reg,
		Serializer: ser,
		Checker:    policy,
		Messages:   flashes,
		Clipboard:  flashes,
		Principals: principals,
		Errors:     errs,
		BaseURL:    cfg.ApplicationURL,
		Logger:     logger,
	}
}

// ProvideTokenValidator returns nil when no secret is configured, which
// leaves every request anonymous.
func ProvideTokenValidator(cfg *config.Config, logger *zap.Logger) (middleware.TokenValidator, error) {
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, all requests are anonymous")
		return nil, nil
	}
	v, err := auth.NewJWTValidator(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(ctx context.Context, cfg *config.Config) auth.RateLimiter {
	if cfg.RateLimitPerMinute == 0 {
		return nil
	}
	return auth.NewSlidingWindowLimiter(ctx, cfg.RateLimitPerMinute, time.Minute)
}

// ProvideRouter creates the HTTP router.
func ProvideRouter(
	cfg *config.Config,
	env *handlers.Env,
	validator middleware.TokenValidator,
	limiter auth.RateLimiter,
	collector *observability.Collector,
	logger *zap.Logger,
) *rest.Router {
	var metrics *observability.Collector
	if cfg.EnableMetrics {
		metrics = collector
	}
	return rest.NewRouter(env, validator, limiter, metrics, rest.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		SessionTTL:     cfg.SessionTTL,
		SecureCookies:  cfg.IsProduction(),
		EnableTracing:  cfg.EnableTracing,
	}, logger)
}

// ProvideWatcher reloads the configuration file and applies the settings
// that can change at runtime: the log level and the site title.
func ProvideWatcher(
	ctx context.Context,
	cfg *config.Config,
	level zap.AtomicLevel,
	s *site.Site,
	logger *zap.Logger,
) (*config.Watcher, error) {
	w, err := config.NewWatcher(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	w.OnChange(func(next *config.Config) {
		if l, err := zapcore.ParseLevel(next.LogLevel); err == nil {
			level.SetLevel(l)
		} else {
			logger.Warn("Ignoring invalid log level", zap.String("log_level", next.LogLevel))
		}
		s.SetTitle(next.SiteTitle)
	})
	return w, nil
}
