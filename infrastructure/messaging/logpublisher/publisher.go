// Package logpublisher writes content events to the structured log. It is
// the publisher used when no event bus is configured.
package logpublisher

import (
	"context"

	"go.uber.org/zap"

	"github.com/umeboshi2/kotti-jsonapi/application/ports"
)

type Publisher struct {
	logger *zap.Logger
}

func NewPublisher(logger *zap.Logger) *Publisher {
	return &Publisher{logger: logger}
}

func (p *Publisher) Publish(_ context.Context, events []ports.ContentEvent) error {
	for _, e := range events {
		p.logger.Info("Content event",
			zap.String("eventID", e.ID),
			zap.String("type", e.Type),
			zap.Int64("nodeID", e.NodeID),
			zap.String("path", e.Path),
			zap.String("principal", e.Principal),
		)
	}
	return nil
}
