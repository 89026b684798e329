package events

import (
	"context"

	"github.com/dvloznov/statement-insights/internal/domain"
)

// NopPublisher drops events. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishAnalysisCompleted(ctx context.Context, event domain.AnalysisCompleted) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
