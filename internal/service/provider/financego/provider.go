// Package financego adapts the piquette/finance-go chart client to the
// MarketDataProvider contract.
package financego

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"

	"SectorScope/internal/domain/models"
	domrepo "SectorScope/internal/domain/repository"
	"SectorScope/internal/service/provider"
	applogger "SectorScope/pkg/logger"
	"SectorScope/pkg/util"
)

// BarSource yields the chart bars of one symbol. The default implementation
// wraps chart.Get; tests substitute a canned source.
type BarSource func(params *chart.Params) ([]*finance.ChartBar, error)

func chartBars(params *chart.Params) ([]*finance.ChartBar, error) {
	iter := chart.Get(params)
	var out []*finance.ChartBar
	for iter.Next() {
		out = append(out, iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type Provider struct {
	source BarSource
	now    func() time.Time
	logger *applogger.Logger
}

type Option func(*Provider)

func WithBarSource(src BarSource) Option {
	return func(p *Provider) { p.source = src }
}

func WithLogger(l *applogger.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

func New(opts ...Option) *Provider {
	p := &Provider{source: chartBars, now: time.Now, logger: applogger.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return "financego" }

// Download walks the symbols sequentially. A symbol whose chart call fails
// is treated as unknown; the call as a whole only fails when every symbol
// failed, which is what a network outage looks like through this client.
func (p *Provider) Download(ctx context.Context, req domrepo.DownloadRequest) (*models.RawFrame, error) {
	symbols := util.NormalizeSymbols(req.Symbols)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("financego download: no symbols")
	}

	start, end := req.Start, req.End
	if req.Period != "" {
		s, err := util.PeriodStart(req.Period, p.now())
		if err != nil {
			return nil, fmt.Errorf("financego download: %w", err)
		}
		start, end = s, time.Time{}
	}
	if end.IsZero() {
		end = p.now()
	}
	interval := req.Interval
	if interval == "" {
		interval = domrepo.DefaultInterval()
	}

	bars := make(map[string][]models.Bar, len(symbols))
	var lastErr error
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		params := &chart.Params{
			Symbol:   sym,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.Interval(interval),
		}
		raw, err := p.source(params)
		if err != nil {
			lastErr = err
			p.logger.Debug("finance-go chart failed", applogger.String("symbol", sym), applogger.Error(err))
			continue
		}
		got := convert(raw)
		if req.AutoAdjust {
			provider.AutoAdjust(got)
		}
		if len(got) > 0 {
			bars[sym] = got
		}
	}
	if len(bars) == 0 && lastErr != nil {
		return nil, errors.Join(errors.New("financego download failed"), lastErr)
	}
	return provider.BuildFrame(symbols, bars, req.GroupBy), nil
}

func convert(raw []*finance.ChartBar) []models.Bar {
	out := make([]models.Bar, 0, len(raw))
	for _, b := range raw {
		if b == nil {
			continue
		}
		out = append(out, models.Bar{
			Date:     util.Day(time.Unix(int64(b.Timestamp), 0).UTC()),
			Open:     f64(b.Open),
			High:     f64(b.High),
			Low:      f64(b.Low),
			Close:    f64(b.Close),
			AdjClose: f64(b.AdjClose),
			Volume:   float64(b.Volume),
		})
	}
	return provider.Dedupe(out)
}

func f64(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}
