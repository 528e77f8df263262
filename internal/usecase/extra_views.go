package usecase

import (
	"context"
	"fmt"
	"sort"
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
	ViewSimilarity  = "similarity"
	ViewFactors     = "factors"
	ViewDominance   = "dominance"
	ViewComplacency = "complacency"
	ViewRotation    = "rotation"
	ViewMoves       = "moves"
	ViewOverlay     = "overlay"
	ViewPerformance = "performance"
)

// lastDayPeriod is wide enough to hold two sessions across a long weekend.
const lastDayPeriod = "5d"

var (
	complacencyStart = time.Date(2021, 11, 9, 0, 0, 0, 0, time.UTC)
	movesStart       = time.Date(1920, 1, 1, 0, 0, 0, 0, time.UTC)
	overlayStart     = time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC)
)

type SimilarityInput struct {
	Target   string
	Market   string
	ETF      string
	Symbols  []string
	Window   int
	Lookback int
	Limit    int
}

type FactorInput struct {
	Symbol   string
	Factors  []string
	Window   int
	Lookback int
}

type DominanceInput struct {
	ETF      string
	Symbols  []string
	Lookback int
	Top      int
}

type ComplacencyInput struct {
	Start      time.Time
	Window     int
	Multiplier float64
}

type RotationInput struct {
	MomentumDays int
	StrengthDays int
	HistoryDays  int
}

type MovesInput struct {
	Symbol string
	N      int
	Losses bool
	Start  time.Time
}

// PerformanceInput selects the constituents ranked by the performance
// view. Symbols win over ETF.
type PerformanceInput struct {
	ETF     string
	Symbols []string
	Retry   *fetcher.RetryPolicy
}

type OverlayInput struct {
	Symbol    string
	Window    int
	Threshold float64
	Limit     int
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// sectorUniverse is the sorted sector ETF list.
func sectorUniverse() []string {
	out := make([]string, 0, len(analytics.SectorETFs))
	for s := range analytics.SectorETFs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Similarity ranks the universe by rolling correlation with the target. The
// default universe is the benchmark's holdings plus the sector ETFs.
func (p *Pipeline) Similarity(ctx context.Context, in SimilarityInput) (*models.Report[*models.SimilarityResult], error) {
	target := upper(in.Target)
	market := upper(in.Market)
	if market == "" {
		market = p.cfg.Benchmark
	}
	window := orDefault(in.Window, 30)
	lookback := orDefault(in.Lookback, 250)
	limit := orDefault(in.Limit, 10)

	return run(ctx, p, ViewSimilarity, func(ctx context.Context, rep *models.Report[*models.SimilarityResult]) (int, error) {
		rep.Data = &models.SimilarityResult{Target: target, Market: market, Window: window, Rows: []models.SimilarityRow{}}
		if target == "" {
			return 0, &domain.ValidationError{Source: ViewSimilarity, Reason: "target is required"}
		}
		var syms []string
		if len(in.Symbols) > 0 || in.ETF != "" {
			u, err := p.universe(ctx, in.ETF, in.Symbols)
			if err != nil {
				return 0, err
			}
			syms = u
		} else {
			u, err := p.universe(ctx, p.cfg.Benchmark, nil)
			if err != nil {
				return 0, err
			}
			syms = append(u, sectorUniverse()...)
		}
		syms = append(syms, target, market)

		now := util.Day(p.now())
		res, err := p.fetch(ctx, syms, Window{Start: now.AddDate(0, 0, -(lookback + window))}, nil, p.cfg.AutoAdjust)
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
		out, err := analytics.ComputeSimilarity(closes, analytics.SimilarityParams{Target: target, Market: market, Window: window, Limit: limit})
		if err != nil {
			return len(res.Requested), settle(rep, err)
		}
		rep.Data = out
		return len(res.Requested), nil
	})
}

// Factors measures a symbol's exposure to the factor ETFs.
func (p *Pipeline) Factors(ctx context.Context, in FactorInput) (*models.Report[*models.FactorResult], error) {
	sym := upper(in.Symbol)
	window := orDefault(in.Window, 60)
	lookback := orDefault(in.Lookback, 365)
	factors := util.NormalizeSymbols(in.Factors)
	if len(factors) == 0 {
		factors = analytics.DefaultFactors
	}

	return run(ctx, p, ViewFactors, func(ctx context.Context, rep *models.Report[*models.FactorResult]) (int, error) {
		rep.Data = &models.FactorResult{Symbol: sym, Window: window, Rows: []models.FactorExposure{}}
		if sym == "" {
			return 0, &domain.ValidationError{Source: ViewFactors, Reason: "symbol is required"}
		}
		syms := append([]string{sym}, factors...)
		now := util.Day(p.now())
		res, err := p.fetch(ctx, syms, Window{Start: now.AddDate(0, 0, -(lookback + window))}, nil, p.cfg.AutoAdjust)
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
		out, err := analytics.ComputeFactorExposure(closes, analytics.FactorParams{Symbol: sym, Factors: factors, Window: window})
		if err != nil {
			return len(res.Requested), settle(rep, err)
		}
		rep.Data = out
		return len(res.Requested), nil
	})
}

// Dominance scores the universe by volume-weighted range over the lookback.
func (p *Pipeline) Dominance(ctx context.Context, in DominanceInput) (*models.Report[*models.DominanceResult], error) {
	lookback := orDefault(in.Lookback, 90)
	top := orDefault(in.Top, 10)

	return run(ctx, p, ViewDominance, func(ctx context.Context, rep *models.Report[*models.DominanceResult]) (int, error) {
		rep.Data = &models.DominanceResult{Rows: []models.DominanceRow{}}
		syms, err := p.universe(ctx, in.ETF, in.Symbols)
		if err != nil {
			return 0, err
		}
		now := util.Day(p.now())
		res, err := p.fetch(ctx, syms, Window{Start: now.AddDate(0, 0, -lookback)}, nil, false)
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
		open, err := frame.ExtractField(res.Frame, models.FieldOpen, frame.DropAllMissing)
		if err != nil {
			return len(res.Requested), err
		}
		volume, err := frame.ExtractField(res.Frame, models.FieldVolume, frame.DropAllMissing)
		if err != nil {
			return len(res.Requested), err
		}
		rep.Data = analytics.ComputeDominance(open, closes, volume, top)
		if len(rep.Data.Rows) == 0 {
			markEmpty(rep, "no symbol has open, close and volume")
		}
		return len(res.Requested), nil
	})
}

// Complacency tracks the VVIX/VIX ratio on rows where all three indices
// traded.
func (p *Pipeline) Complacency(ctx context.Context, in ComplacencyInput) (*models.Report[*models.ComplacencyResult], error) {
	params := analytics.DefaultComplacencyParams()
	params.Window = orDefault(in.Window, params.Window)
	if in.Multiplier > 0 {
		params.Multiplier = in.Multiplier
	}
	start := in.Start
	if start.IsZero() {
		start = complacencyStart
	}

	return run(ctx, p, ViewComplacency, func(ctx context.Context, rep *models.Report[*models.ComplacencyResult]) (int, error) {
		rep.Data = &models.ComplacencyResult{Window: params.Window, Multiplier: params.Multiplier, Points: []models.ComplacencyPoint{}, Breaks: []time.Time{}}
		syms := []string{params.VVIX, params.VIX, params.SPX}
		res, err := p.fetch(ctx, syms, Window{Start: start}, nil, false)
		if err != nil {
			return len(syms), err
		}
		if absorb(rep, res) {
			return len(res.Requested), nil
		}
		closes, ok, err := table(rep, res, models.FieldClose, frame.DropRowsAnyMissing)
		if err != nil || !ok {
			return len(res.Requested), err
		}
		out, err := analytics.ComputeComplacency(closes, params)
		if err != nil {
			return len(res.Requested), settle(rep, err)
		}
		rep.Data = out
		return len(res.Requested), nil
	})
}

// Rotation places the sector ETFs on the momentum and relative-strength
// plane against the benchmark.
func (p *Pipeline) Rotation(ctx context.Context, in RotationInput) (*models.Report[*models.RotationResult], error) {
	params := analytics.RotationParams{
		Benchmark:    p.cfg.Benchmark,
		MomentumDays: orDefault(in.MomentumDays, 10),
		StrengthDays: orDefault(in.StrengthDays, 30),
		HistoryDays:  orDefault(in.HistoryDays, 30),
	}

	return run(ctx, p, ViewRotation, func(ctx context.Context, rep *models.Report[*models.RotationResult]) (int, error) {
		rep.Data = &models.RotationResult{
			Benchmark:    params.Benchmark,
			MomentumDays: params.MomentumDays,
			StrengthDays: params.StrengthDays,
			Points:       []models.RotationPoint{},
			Latest:       []models.RotationPoint{},
		}
		syms := append(sectorUniverse(), params.Benchmark)
		now := util.Day(p.now())
		res, err := p.fetch(ctx, syms, Window{Start: now.AddDate(0, 0, -(params.HistoryDays + 60))}, nil, p.cfg.AutoAdjust)
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
		out, err := analytics.ComputeRotation(closes, params)
		if err != nil {
			return len(res.Requested), settle(rep, err)
		}
		rep.Data = out
		return len(res.Requested), nil
	})
}

// Moves lists the largest daily gains or losses of one symbol. Adjusted
// closes are used when the provider has them.
func (p *Pipeline) Moves(ctx context.Context, in MovesInput) (*models.Report[*models.MovesResult], error) {
	sym := upper(in.Symbol)
	n := orDefault(in.N, 5)
	start := in.Start
	if start.IsZero() {
		start = movesStart
	}

	return run(ctx, p, ViewMoves, func(ctx context.Context, rep *models.Report[*models.MovesResult]) (int, error) {
		dir := "gains"
		if in.Losses {
			dir = "losses"
		}
		rep.Data = &models.MovesResult{Symbol: sym, Direction: dir, Moves: []models.ExtremeMove{}}
		if sym == "" {
			return 0, &domain.ValidationError{Source: ViewMoves, Reason: "symbol is required"}
		}
		res, err := p.fetch(ctx, []string{sym}, Window{Start: start}, nil, false)
		if err != nil {
			return 1, err
		}
		if absorb(rep, res) {
			return 1, nil
		}
		series, err := frame.Series(res.Frame, sym, models.FieldAdjClose)
		if domain.IsStructural(err) {
			series, err = frame.Series(res.Frame, sym, models.FieldClose)
		}
		if err != nil {
			return 1, settle(rep, err)
		}
		out, err := analytics.ComputeExtremeMoves(series, n, in.Losses)
		if err != nil {
			return 1, settle(rep, err)
		}
		rep.Data = out
		return 1, nil
	})
}

// Overlay finds historical windows of one symbol that resemble the most
// recent one.
func (p *Pipeline) Overlay(ctx context.Context, in OverlayInput) (*models.Report[*models.OverlayResult], error) {
	sym := upper(in.Symbol)
	params := analytics.DefaultOverlayParams()
	params.Window = orDefault(in.Window, params.Window)
	params.Limit = orDefault(in.Limit, params.Limit)
	if in.Threshold > 0 {
		params.Threshold = in.Threshold
	}

	return run(ctx, p, ViewOverlay, func(ctx context.Context, rep *models.Report[*models.OverlayResult]) (int, error) {
		rep.Data = &models.OverlayResult{Symbol: sym, Window: params.Window, Threshold: params.Threshold, Matches: []models.OverlayMatch{}}
		if sym == "" {
			return 0, &domain.ValidationError{Source: ViewOverlay, Reason: "symbol is required"}
		}
		res, err := p.fetch(ctx, []string{sym}, Window{Start: overlayStart}, nil, false)
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
		out, err := analytics.ComputeOverlay(series, params)
		if err != nil {
			return 1, settle(rep, err)
		}
		rep.Data = out
		return 1, nil
	})
}

// Performance ranks the constituents by their change since January 1 and
// over the last session. Each window is downloaded separately and keeps
// its own failed list; the report's failed list is their union.
func (p *Pipeline) Performance(ctx context.Context, in PerformanceInput) (*models.Report[*models.PerformanceResult], error) {
	etf := upper(in.ETF)
	if etf == "" && len(in.Symbols) == 0 {
		etf = p.cfg.DefaultETF
	}

	return run(ctx, p, ViewPerformance, func(ctx context.Context, rep *models.Report[*models.PerformanceResult]) (int, error) {
		rep.Data = &models.PerformanceResult{
			ETF:     etf,
			YTD:     models.PerformanceWindow{Label: analytics.LabelYTD, Rows: []models.Performance{}, Failed: []string{}},
			LastDay: models.PerformanceWindow{Label: analytics.LabelLastDay, Rows: []models.Performance{}, Failed: []string{}},
		}
		syms, err := p.universe(ctx, etf, in.Symbols)
		if err != nil {
			return 0, err
		}

		today := util.Day(p.now())
		ytdStart := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
		ytd, err := p.performanceWindow(ctx, syms, Window{Start: ytdStart, End: today.AddDate(0, 0, 1)}, in.Retry, analytics.LabelYTD, analytics.SinceFirst)
		if err != nil {
			return len(syms), err
		}
		last, err := p.performanceWindow(ctx, syms, Window{Period: lastDayPeriod}, in.Retry, analytics.LabelLastDay, analytics.LastDay)
		if err != nil {
			return len(syms), err
		}
		rep.Data.YTD, rep.Data.LastDay = ytd, last

		rep.Failed = util.NormalizeSymbols(append(append([]string{}, ytd.Failed...), last.Failed...))
		for _, w := range []models.PerformanceWindow{ytd, last} {
			if len(w.Failed) > 0 {
				rep.Warn(fmt.Sprintf("%s: %d of %d symbols failed to load", w.Label, len(w.Failed), len(syms)))
			}
		}
		if len(ytd.Rows) == 0 && len(last.Rows) == 0 {
			markEmpty(rep, "no symbol has two closes in either window")
		}
		return len(syms), nil
	})
}

func (p *Pipeline) performanceWindow(ctx context.Context, syms []string, w Window, retry *fetcher.RetryPolicy, label string, span analytics.PerformanceSpan) (models.PerformanceWindow, error) {
	res, err := p.fetch(ctx, syms, w, retry, p.cfg.AutoAdjust)
	if err != nil {
		return models.PerformanceWindow{}, err
	}
	closes, err := frame.ExtractField(res.Frame, models.FieldClose, frame.DropAllMissing)
	if err != nil {
		return models.PerformanceWindow{}, err
	}
	out := analytics.ComputePerformance(closes, label, span)
	out.Failed = append(out.Failed, res.Failed...)
	return out, nil
}
