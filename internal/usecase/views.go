package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"SectorScope/internal/domain"
	"SectorScope/internal/domain/models"
	"SectorScope/internal/services/analytics"
	"SectorScope/internal/services/fetcher"
	"SectorScope/internal/services/frame"
	"SectorScope/pkg/util"
)

const (
	ViewHoldings    = "holdings"
	ViewReturns     = "returns"
	ViewBreadth     = "breadth"
	ViewSeasonality = "seasonality"
)

// returnsLookbackDays covers the longest default period plus its anchor.
const returnsLookbackDays = 365

var seasonalityStart = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

// ReturnsInput selects the universe of the returns table. Symbols win over
// ETF; the benchmark defaults to the ETF. Retry, when set, overrides the
// configured retry count and backoff for this run.
type ReturnsInput struct {
	ETF       string
	Symbols   []string
	Benchmark string
	Periods   []models.Period
	Retry     *fetcher.RetryPolicy
}

type BreadthInput struct {
	ETF     string
	Symbols []string
	Start   time.Time
	Windows []int
	Retry   *fetcher.RetryPolicy
}

type SeasonalityInput struct {
	Symbol string
}

// Holdings returns the constituents of etf.
func (p *Pipeline) Holdings(ctx context.Context, etf string) (*models.Report[models.HoldingList], error) {
	etf = strings.ToUpper(strings.TrimSpace(etf))
	if etf == "" {
		etf = p.cfg.DefaultETF
	}
	return run(ctx, p, ViewHoldings, func(ctx context.Context, rep *models.Report[models.HoldingList]) (int, error) {
		rep.Data = models.HoldingList{}
		if p.holdings == nil {
			return 0, fmt.Errorf("holdings source not configured")
		}
		list, err := p.holdings.Holdings(ctx, etf)
		if err != nil {
			return 1, fmt.Errorf("holdings %s: %w", etf, err)
		}
		rep.Data = list
		if len(list) == 0 {
			markEmpty(rep, fmt.Sprintf("%s has no holdings", etf))
		}
		return 1, nil
	})
}

// Returns computes the multi-period returns table over the last year of
// strictly complete closes.
func (p *Pipeline) Returns(ctx context.Context, in ReturnsInput) (*models.Report[*models.ReturnsTable], error) {
	return run(ctx, p, ViewReturns, func(ctx context.Context, rep *models.Report[*models.ReturnsTable]) (int, error) {
		periods := in.Periods
		if len(periods) == 0 {
			periods = models.DefaultPeriods
		}
		rep.Data = &models.ReturnsTable{Periods: periods, Rows: []models.ReturnsRow{}}

		etf := strings.ToUpper(strings.TrimSpace(in.ETF))
		if etf == "" && len(in.Symbols) == 0 {
			etf = p.cfg.DefaultETF
		}
		bench := strings.ToUpper(strings.TrimSpace(in.Benchmark))
		if bench == "" {
			bench = etf
		}
		syms, err := p.universe(ctx, etf, in.Symbols)
		if err != nil {
			return 0, err
		}
		if bench != "" {
			syms = append(syms, bench)
		}

		now := util.Day(p.now())
		res, err := p.fetch(ctx, syms, Window{Start: now.AddDate(0, 0, -returnsLookbackDays)}, in.Retry, p.cfg.AutoAdjust)
		if err != nil {
			return len(syms), err
		}
		if absorb(rep, res) {
			return len(res.Requested), nil
		}
		closes, ok, err := table(rep, res, models.FieldClose, frame.DropAnyMissing)
		if err != nil || !ok {
			return len(res.Requested), err
		}
		rep.Data = analytics.ComputeReturns(closes, bench, periods)
		if _, has := closes.Column(bench); bench != "" && !has {
			rep.Warn(fmt.Sprintf("%s: %v", bench, domain.ErrBenchmarkMissing))
		}
		return len(res.Requested), nil
	})
}

// Breadth reports the share of the universe above its 20, 50 and 200 day
// averages from the breadth start onward.
func (p *Pipeline) Breadth(ctx context.Context, in BreadthInput) (*models.Report[*models.BreadthSeries], error) {
	return run(ctx, p, ViewBreadth, func(ctx context.Context, rep *models.Report[*models.BreadthSeries]) (int, error) {
		start := util.Day(in.Start)
		if in.Start.IsZero() {
			s, err := util.PeriodStart(p.cfg.BreadthStart, p.now())
			if err != nil {
				return 0, fmt.Errorf("breadth start: %w", err)
			}
			start = s
		}
		rep.Data = &models.BreadthSeries{Start: start, Windows: in.Windows, Points: []models.BreadthPoint{}}
		if len(in.Windows) == 0 {
			rep.Data.Windows = models.SMAWindows
		}

		syms, err := p.universe(ctx, in.ETF, in.Symbols)
		if err != nil {
			return 0, err
		}
		res, err := p.fetch(ctx, syms, Window{Start: start}, in.Retry, p.cfg.AutoAdjust)
		if err != nil {
			return len(syms), err
		}
		if absorb(rep, res) {
			return len(res.Requested), nil
		}
		closes, ok, err := table(rep, res, models.FieldClose, frame.DropAllMissing)
		if err != nil || !ok {
			return len(res.Requested), err
		}
		rep.Data = analytics.ComputeBreadth(closes, start, in.Windows)
		if len(rep.Data.Points) == 0 {
			markEmpty(rep, "no rows on or after "+start.Format(models.DateLayout))
		}
		return len(res.Requested), nil
	})
}

// Seasonality builds the average-year curve of one symbol from 1990 on.
func (p *Pipeline) Seasonality(ctx context.Context, in SeasonalityInput) (*models.Report[*models.SeasonalCurve], error) {
	sym := strings.ToUpper(strings.TrimSpace(in.Symbol))
	return run(ctx, p, ViewSeasonality, func(ctx context.Context, rep *models.Report[*models.SeasonalCurve]) (int, error) {
		rep.Data = &models.SeasonalCurve{Symbol: sym, Points: []models.SeasonalPoint{}}
		if sym == "" {
			return 0, &domain.ValidationError{Source: "seasonality", Reason: "symbol is required"}
		}
		res, err := p.fetch(ctx, []string{sym}, Window{Start: seasonalityStart}, nil, p.cfg.AutoAdjust)
		if err != nil {
			return 1, err
		}
		if absorb(rep, res) {
			return 1, nil
		}
		series, err := frame.Series(res.Frame, sym, models.FieldClose)
		if err != nil {
			return 1, settle(rep, err)
		}
		curve, err := analytics.ComputeSeasonality(series)
		if err != nil {
			return 1, settle(rep, err)
		}
		rep.Data = curve
		return 1, nil
	})
}
