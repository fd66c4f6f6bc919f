// Package persistence holds store decorators shared by every backend.
package persistence

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/umeboshi2/kotti-jsonapi/application/ports"
	"github.com/umeboshi2/kotti-jsonapi/domain/content"
	pkgerrors "github.com/umeboshi2/kotti-jsonapi/pkg/errors"
	"github.com/umeboshi2/kotti-jsonapi/pkg/observability"
)

// BreakerConfig holds configuration for the store circuit breaker
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns a default configuration for the store breaker
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// InstrumentedNodeStore wraps a NodeStore with a circuit breaker, metrics
// and tracing.
type InstrumentedNodeStore struct {
	inner   ports.NodeStore
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Collector
	tracer  trace.Tracer
	logger  *zap.Logger
}

// NewInstrumentedNodeStore decorates inner. metrics may be nil.
func NewInstrumentedNodeStore(inner ports.NodeStore, cfg BreakerConfig, metrics *observability.Collector, tracer trace.Tracer, logger *zap.Logger) *InstrumentedNodeStore {
	s := &InstrumentedNodeStore{
		inner:   inner,
		metrics: metrics,
		tracer:  tracer,
		logger:  logger,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if metrics != nil {
				metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
		IsSuccessful: func(err error) bool {
			// caller mistakes do not indicate an unhealthy store
			return err == nil || pkgerrors.IsValidation(err) || pkgerrors.IsNotFound(err)
		},
	})
	return s
}

func (s *InstrumentedNodeStore) LoadAll(ctx context.Context) ([]content.Record, error) {
	var records []content.Record
	err := s.run(ctx, "load_all", nil, func(ctx context.Context) error {
		var err error
		records, err = s.inner.LoadAll(ctx)
		return err
	})
	return records, err
}

func (s *InstrumentedNodeStore) Save(ctx context.Context, records []content.Record) error {
	return s.run(ctx, "save", []attribute.KeyValue{attribute.Int("records", len(records))}, func(ctx context.Context) error {
		return s.inner.Save(ctx, records)
	})
}

func (s *InstrumentedNodeStore) Delete(ctx context.Context, ids []int64) error {
	return s.run(ctx, "delete", []attribute.KeyValue{attribute.Int("records", len(ids))}, func(ctx context.Context) error {
		return s.inner.Delete(ctx, ids)
	})
}

func (s *InstrumentedNodeStore) run(ctx context.Context, operation string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "store."+operation, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})

	switch err {
	case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
		err = pkgerrors.NewUnavailableError("node store", err)
	}

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if s.metrics != nil {
		s.metrics.StoreOperations.WithLabelValues(operation, status).Inc()
		s.metrics.StoreDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
	return err
}
