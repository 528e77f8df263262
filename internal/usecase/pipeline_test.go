package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"SectorScope/internal/domain"
	"SectorScope/internal/domain/models"
	domrepo "SectorScope/internal/domain/repository"
	"SectorScope/internal/service/provider"
	"SectorScope/internal/services/fetcher"
)

var testNow = time.Date(2024, 6, 28, 15, 0, 0, 0, time.UTC)

type barProvider struct {
	mu       sync.Mutex
	bars     map[string][]models.Bar
	fail     error
	calls    int
	adjusted []bool
	// periodGaps are left out of downloads that ask for a period.
	periodGaps map[string]bool
}

func (p *barProvider) Name() string { return "bars" }

func (p *barProvider) Download(_ context.Context, req domrepo.DownloadRequest) (*models.RawFrame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.adjusted = append(p.adjusted, req.AutoAdjust)
	if p.fail != nil {
		return nil, p.fail
	}
	subset := make(map[string][]models.Bar, len(req.Symbols))
	for _, s := range req.Symbols {
		if req.Period != "" && p.periodGaps[s] {
			continue
		}
		for _, b := range p.bars[s] {
			if !req.Start.IsZero() && b.Date.Before(req.Start) {
				continue
			}
			subset[s] = append(subset[s], b)
		}
	}
	return provider.BuildFrame(req.Symbols, subset, req.GroupBy), nil
}

// linearBars produces n daily bars ending at testNow's date, starting at
// base and adding step per day.
func linearBars(n int, base, step float64) []models.Bar {
	end := time.Date(testNow.Year(), testNow.Month(), testNow.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]models.Bar, n)
	for i := 0; i < n; i++ {
		px := base + step*float64(i)
		out[i] = models.Bar{
			Date:     end.AddDate(0, 0, i-n+1),
			Open:     px,
			High:     px,
			Low:      px,
			Close:    px,
			AdjClose: px,
			Volume:   1000,
		}
	}
	return out
}

type staticHoldings map[string]models.HoldingList

func (h staticHoldings) Holdings(_ context.Context, etf string) (models.HoldingList, error) {
	list, ok := h[etf]
	if !ok {
		return nil, &domain.ValidationError{Source: etf, Reason: "unknown fund"}
	}
	return list, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []*models.RunEvent
}

func (c *capturePublisher) PublishRun(_ context.Context, ev *models.RunEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func newTestPipeline(p *barProvider, h staticHoldings, pub *capturePublisher) *Pipeline {
	return newTestPipelineWith(p, h, pub, DefaultSettings())
}

func newTestPipelineWith(p *barProvider, h staticHoldings, pub *capturePublisher, cfg Settings) *Pipeline {
	f := fetcher.New(p, fetcher.Config{BatchSize: 50, MaxRetries: 0}, fetcher.WithSleeper(func(context.Context, time.Duration) error { return nil }))
	return NewPipeline(f, h, cfg,
		WithEventPublisher(pub),
		WithClock(func() time.Time { return testNow }),
	)
}

func TestReturnsPlacesBenchmarkFirstAndReportsFailures(t *testing.T) {
	prov := &barProvider{bars: map[string][]models.Bar{
		"AAA": linearBars(400, 100, 1),
		"BBB": linearBars(400, 100, -0.1),
		"XLK": linearBars(400, 50, 0.2),
	}}
	holdings := staticHoldings{"XLK": {{Symbol: "AAA", Weight: 10}, {Symbol: "BBB", Weight: 5}, {Symbol: "NOPE", Weight: 1}}}
	pub := &capturePublisher{}

	rep, err := newTestPipeline(prov, holdings, pub).Returns(context.Background(), ReturnsInput{ETF: "xlk"})
	if err != nil {
		t.Fatalf("Returns: %v", err)
	}
	if rep.Status != models.StatusOK {
		t.Fatalf("expected ok status, got %s (%v)", rep.Status, rep.Warnings)
	}
	if len(rep.Failed) != 1 || rep.Failed[0] != "NOPE" {
		t.Fatalf("expected NOPE failed, got %v", rep.Failed)
	}
	rows := rep.Data.Rows
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Symbol != "XLK" || !rows[0].Benchmark {
		t.Fatalf("expected benchmark row first, got %+v", rows[0])
	}
	if rows[1].Symbol != "AAA" || rows[2].Symbol != "BBB" {
		t.Fatalf("expected AAA before BBB, got %s, %s", rows[1].Symbol, rows[2].Symbol)
	}
	if rep.RunID == "" || rep.View != ViewReturns {
		t.Fatalf("missing run metadata: %+v", rep)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 run event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.RunID != rep.RunID || ev.Status != models.StatusOK || ev.Requested != 4 {
		t.Fatalf("unexpected run event %+v", ev)
	}
}

func TestReturnsEmptyProviderIsNotAnError(t *testing.T) {
	prov := &barProvider{bars: map[string][]models.Bar{}}
	pub := &capturePublisher{}

	rep, err := newTestPipeline(prov, nil, pub).Returns(context.Background(), ReturnsInput{Symbols: []string{"AAA", "BBB"}})
	if err != nil {
		t.Fatalf("Returns: %v", err)
	}
	if rep.Status != models.StatusEmpty {
		t.Fatalf("expected empty status, got %s", rep.Status)
	}
	if len(rep.Warnings) == 0 {
		t.Fatalf("expected a warning for the empty result")
	}
	if rep.Data == nil || len(rep.Data.Rows) != 0 {
		t.Fatalf("expected an empty table, got %+v", rep.Data)
	}
	if len(rep.Failed) != 2 {
		t.Fatalf("expected both symbols failed, got %v", rep.Failed)
	}
}

func TestTransientProviderFailureYieldsEmptyReport(t *testing.T) {
	prov := &barProvider{fail: errors.New("connection reset")}

	rep, err := newTestPipeline(prov, nil, &capturePublisher{}).Breadth(context.Background(), BreadthInput{Symbols: []string{"AAA"}})
	if err != nil {
		t.Fatalf("Breadth: %v", err)
	}
	if rep.Status != models.StatusEmpty {
		t.Fatalf("expected empty status, got %s", rep.Status)
	}
	if prov.calls != 1 {
		t.Fatalf("expected a single attempt with no retries, got %d", prov.calls)
	}
}

func TestBreadthCountsRisingSymbols(t *testing.T) {
	prov := &barProvider{bars: map[string][]models.Bar{
		"UP":   linearBars(300, 100, 1),
		"DOWN": linearBars(300, 400, -1),
	}}
	start := testNow.AddDate(0, 0, -120)

	rep, err := newTestPipeline(prov, nil, &capturePublisher{}).Breadth(context.Background(), BreadthInput{Symbols: []string{"UP", "DOWN"}, Start: start})
	if err != nil {
		t.Fatalf("Breadth: %v", err)
	}
	if len(rep.Data.Points) == 0 {
		t.Fatalf("expected breadth points")
	}
	last := rep.Data.Points[len(rep.Data.Points)-1]
	if last.Pct[0] == nil || *last.Pct[0] != 50 {
		t.Fatalf("expected 50%% above the 20 day average, got %v", last.Pct[0])
	}
	if last.Pct[2] != nil {
		t.Fatalf("expected no 200 day reading inside a 120 day window, got %v", *last.Pct[2])
	}
}

func TestSeasonalityRequiresSymbol(t *testing.T) {
	pub := &capturePublisher{}
	_, err := newTestPipeline(&barProvider{}, nil, pub).Seasonality(context.Background(), SeasonalityInput{})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].Status != "error" || pub.events[0].Error == "" {
		t.Fatalf("expected an error run event, got %+v", pub.events)
	}
}

func TestHoldingsView(t *testing.T) {
	holdings := staticHoldings{"XLK": {{Symbol: "AAPL", Weight: 22.1}, {Symbol: "MSFT", Weight: 20.4}}}

	rep, err := newTestPipeline(&barProvider{}, holdings, &capturePublisher{}).Holdings(context.Background(), " xlk ")
	if err != nil {
		t.Fatalf("Holdings: %v", err)
	}
	if len(rep.Data) != 2 || rep.Data[0].Symbol != "AAPL" {
		t.Fatalf("unexpected holdings %+v", rep.Data)
	}

	if _, err := newTestPipeline(&barProvider{}, holdings, &capturePublisher{}).Holdings(context.Background(), "XLE"); !domain.IsValidation(err) {
		t.Fatalf("expected the source error to propagate, got %v", err)
	}
}

func TestMovesFindsLargestGain(t *testing.T) {
	bars := linearBars(60, 100, 0)
	spike := 30
	for i := spike; i < len(bars); i++ {
		bars[i].Close = 120
		bars[i].AdjClose = 120
	}
	prov := &barProvider{bars: map[string][]models.Bar{"^IXIC": bars}}

	rep, err := newTestPipeline(prov, nil, &capturePublisher{}).Moves(context.Background(), MovesInput{Symbol: "^ixic", N: 1})
	if err != nil {
		t.Fatalf("Moves: %v", err)
	}
	if len(rep.Data.Moves) != 1 {
		t.Fatalf("expected one move, got %d", len(rep.Data.Moves))
	}
	if got := rep.Data.Moves[0].Date; !got.Equal(bars[spike].Date) {
		t.Fatalf("expected move on %s, got %s", bars[spike].Date, got)
	}
	if day := rep.Data.Moves[0].Day; day < 19.9 || day > 20.1 {
		t.Fatalf("expected a 20%% move, got %v", day)
	}
}

func TestSimilarityDefaultsToBenchmarkUniverse(t *testing.T) {
	bars := map[string][]models.Bar{
		"TGT":  linearBars(300, 100, 1),
		"SAME": linearBars(300, 50, 0.5),
		"SPY":  linearBars(300, 400, 0.3),
	}
	holdings := staticHoldings{"SPY": {{Symbol: "SAME", Weight: 1}}}
	prov := &barProvider{bars: bars}

	rep, err := newTestPipeline(prov, holdings, &capturePublisher{}).Similarity(context.Background(), SimilarityInput{Target: "tgt"})
	if err != nil {
		t.Fatalf("Similarity: %v", err)
	}
	if rep.Data.Market != "SPY" || rep.Data.Window != 30 {
		t.Fatalf("unexpected defaults %+v", rep.Data)
	}
	if len(rep.Data.Rows) != 1 || rep.Data.Rows[0].Symbol != "SAME" {
		t.Fatalf("expected SAME ranked, got %+v", rep.Data.Rows)
	}
	// Sector ETFs without data are reported failed.
	if len(rep.Failed) != len(sectorUniverse()) {
		t.Fatalf("expected %d failed sector ETFs, got %v", len(sectorUniverse()), rep.Failed)
	}
}

func TestAutoAdjustFollowsSettings(t *testing.T) {
	bars := map[string][]models.Bar{"AAA": linearBars(400, 100, 1)}
	for _, adjust := range []bool{true, false} {
		cfg := DefaultSettings()
		cfg.AutoAdjust = adjust
		prov := &barProvider{bars: bars}
		p := newTestPipelineWith(prov, nil, &capturePublisher{}, cfg)

		if _, err := p.Returns(context.Background(), ReturnsInput{Symbols: []string{"AAA"}}); err != nil {
			t.Fatalf("Returns: %v", err)
		}
		if _, err := p.Breadth(context.Background(), BreadthInput{Symbols: []string{"AAA"}}); err != nil {
			t.Fatalf("Breadth: %v", err)
		}
		if len(prov.adjusted) != 2 {
			t.Fatalf("expected 2 downloads, got %d", len(prov.adjusted))
		}
		for i, got := range prov.adjusted {
			if got != adjust {
				t.Fatalf("download %d: expected AutoAdjust=%v, got %v", i, adjust, got)
			}
		}
	}
}

func TestRetryOverrideChangesAttemptCount(t *testing.T) {
	prov := &barProvider{fail: errors.New("connection reset")}
	p := newTestPipeline(prov, nil, &capturePublisher{})

	rep, err := p.Returns(context.Background(), ReturnsInput{
		Symbols: []string{"AAA"},
		Retry:   &fetcher.RetryPolicy{MaxRetries: 2, BackoffBase: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("Returns: %v", err)
	}
	if rep.Status != models.StatusEmpty {
		t.Fatalf("expected empty status, got %s", rep.Status)
	}
	if prov.calls != 3 {
		t.Fatalf("expected 3 attempts with two retries, got %d", prov.calls)
	}

	prov.calls = 0
	if _, err := p.Breadth(context.Background(), BreadthInput{Symbols: []string{"AAA"}}); err != nil {
		t.Fatalf("Breadth: %v", err)
	}
	if prov.calls != 1 {
		t.Fatalf("expected the configured single attempt without an override, got %d", prov.calls)
	}
}

func TestPerformanceKeepsFailuresPerWindow(t *testing.T) {
	prov := &barProvider{
		bars: map[string][]models.Bar{
			"AAA":   linearBars(400, 100, 1),
			"BBB":   linearBars(400, 100, -0.1),
			"GHOST": linearBars(400, 10, 0),
		},
		periodGaps: map[string]bool{"GHOST": true},
	}
	holdings := staticHoldings{"XBI": {{Symbol: "AAA"}, {Symbol: "BBB"}, {Symbol: "GHOST"}, {Symbol: "NOPE"}}}

	rep, err := newTestPipeline(prov, holdings, &capturePublisher{}).Performance(context.Background(), PerformanceInput{ETF: "xbi"})
	if err != nil {
		t.Fatalf("Performance: %v", err)
	}
	if rep.Status != models.StatusOK || rep.View != ViewPerformance {
		t.Fatalf("unexpected report %s %s (%v)", rep.View, rep.Status, rep.Warnings)
	}
	if prov.calls != 2 {
		t.Fatalf("expected one download per window, got %d", prov.calls)
	}

	ytd := rep.Data.YTD
	if len(ytd.Failed) != 1 || ytd.Failed[0] != "NOPE" {
		t.Fatalf("unexpected ytd failures %v", ytd.Failed)
	}
	if len(ytd.Rows) != 3 || ytd.Rows[0].Symbol != "AAA" || ytd.Rows[1].Symbol != "GHOST" || ytd.Rows[2].Symbol != "BBB" {
		t.Fatalf("unexpected ytd ranking %+v", ytd.Rows)
	}
	// 2024-01-01 is 179 days before the last bar, which closes at 499.
	if math.Abs(ytd.Rows[0].Change-179.0/320*100) > 1e-9 {
		t.Fatalf("unexpected ytd change %v", ytd.Rows[0].Change)
	}
	if want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); !ytd.From.Equal(want) {
		t.Fatalf("expected ytd from %s, got %s", want, ytd.From)
	}

	last := rep.Data.LastDay
	if len(last.Failed) != 2 || last.Failed[0] != "GHOST" || last.Failed[1] != "NOPE" {
		t.Fatalf("unexpected last-day failures %v", last.Failed)
	}
	if len(last.Rows) != 2 || last.Rows[0].Symbol != "AAA" || last.Rows[1].Symbol != "BBB" {
		t.Fatalf("unexpected last-day ranking %+v", last.Rows)
	}
	if len(rep.Failed) != 2 || rep.Failed[0] != "NOPE" || rep.Failed[1] != "GHOST" {
		t.Fatalf("expected union of failures, got %v", rep.Failed)
	}
}
