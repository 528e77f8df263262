package repository

import (
	"context"
	"time"

	"SectorScope/internal/domain/models"
)

// DownloadRequest describes one provider call. Either Start/End or Period
// bounds the range; Period wins when set.
type DownloadRequest struct {
	Symbols    []string
	Start      time.Time
	End        time.Time
	Period     string
	Interval   Interval
	GroupBy    GroupBy
	AutoAdjust bool
}

// MarketDataProvider downloads OHLCV frames. A single symbol yields a flat
// frame, several yield a (symbol, field) frame. Unknown symbols are absent
// from the frame; an error means the whole call failed and may be retried.
type MarketDataProvider interface {
	Name() string
	Download(ctx context.Context, req DownloadRequest) (*models.RawFrame, error)
}

// HoldingsSource lists the constituents of an ETF.
type HoldingsSource interface {
	Holdings(ctx context.Context, etf string) (models.HoldingList, error)
}

// EventPublisher emits run events to downstream consumers.
type EventPublisher interface {
	PublishRun(ctx context.Context, ev *models.RunEvent) error
	Close() error
}

type Metrics interface {
	RecordFetchAttempt(provider, outcome string)
	RecordFailedSymbols(provider string, n int)
	RecordCacheLookup(kind string, hit bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
