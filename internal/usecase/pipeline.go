package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"SectorScope/internal/domain"
	"SectorScope/internal/domain/models"
	domrepo "SectorScope/internal/domain/repository"
	viewmetrics "SectorScope/internal/service/metrics"
	"SectorScope/internal/services/fetcher"
	"SectorScope/internal/services/frame"
	applogger "SectorScope/pkg/logger"
	"SectorScope/pkg/util"
)

// Settings carries the analytics defaults from configuration.
type Settings struct {
	Benchmark    string
	DefaultETF   string
	BreadthStart string
	Interval     domrepo.Interval
	// AutoAdjust applies to the close-based views. Views that need raw
	// open, close and volume always download unadjusted bars.
	AutoAdjust bool
	Timeout    time.Duration
}

// DefaultSettings returns the values used when configuration is silent.
func DefaultSettings() Settings {
	return Settings{
		Benchmark:    "SPY",
		DefaultETF:   "XLK",
		BreadthStart: "1y",
		Interval:     domrepo.IntervalDay,
		AutoAdjust:   true,
		Timeout:      5 * time.Minute,
	}
}

// Pipeline runs every view: resolve the universe, fetch in batches,
// normalize, compute, and wrap the result in a Report.
type Pipeline struct {
	fetcher  *fetcher.Fetcher
	holdings domrepo.HoldingsSource
	events   domrepo.EventPublisher
	cfg      Settings
	l        *applogger.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Pipeline)

func WithLogger(l *applogger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.l = l
		}
	}
}

// WithEventPublisher emits a RunEvent after every run.
func WithEventPublisher(e domrepo.EventPublisher) Option {
	return func(p *Pipeline) { p.events = e }
}

// WithClock fixes "now" for reproducible date ranges.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func NewPipeline(f *fetcher.Fetcher, h domrepo.HoldingsSource, cfg Settings, opts ...Option) *Pipeline {
	def := DefaultSettings()
	if cfg.Benchmark == "" {
		cfg.Benchmark = def.Benchmark
	}
	if cfg.DefaultETF == "" {
		cfg.DefaultETF = def.DefaultETF
	}
	if cfg.BreadthStart == "" {
		cfg.BreadthStart = def.BreadthStart
	}
	if cfg.Interval == "" {
		cfg.Interval = def.Interval
	}
	p := &Pipeline{
		fetcher:  f,
		holdings: h,
		cfg:      cfg,
		l:        applogger.Nop(),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Window bounds a download. Period wins over Start/End when set.
type Window struct {
	Start  time.Time
	End    time.Time
	Period string
}

// run wraps body with the run bookkeeping shared by every view: run ID,
// timeout, metrics, summary log and the run event.
func run[T any](ctx context.Context, p *Pipeline, view string, body func(context.Context, *models.Report[T]) (int, error)) (*models.Report[T], error) {
	started := time.Now()
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	rep := &models.Report[T]{
		RunID:       p.newID(),
		View:        view,
		Status:      models.StatusOK,
		GeneratedAt: p.now().UTC(),
	}
	requested, err := body(ctx, rep)

	status := string(rep.Status)
	if err != nil {
		status = "error"
	}
	viewmetrics.ObserveRun(view, status, started)
	p.publish(ctx, rep.RunID, view, models.Status(status), requested, rep.Failed, err, started)

	if err != nil {
		p.l.Warn("view failed",
			applogger.String("view", view),
			applogger.String("run_id", rep.RunID),
			applogger.Error(err),
		)
		return nil, err
	}
	p.l.Info("view completed",
		applogger.String("view", view),
		applogger.String("run_id", rep.RunID),
		applogger.String("status", string(rep.Status)),
		applogger.Int("requested", requested),
		applogger.Int("failed", len(rep.Failed)),
		applogger.Duration("took_ms", time.Since(started)),
	)
	return rep, nil
}

func (p *Pipeline) publish(ctx context.Context, runID, view string, status models.Status, requested int, failed []string, runErr error, started time.Time) {
	if p.events == nil {
		return
	}
	ev := &models.RunEvent{
		RunID:      runID,
		View:       view,
		Status:     status,
		Requested:  requested,
		Failed:     failed,
		DurationMs: time.Since(started).Milliseconds(),
		At:         p.now().UTC(),
	}
	if runErr != nil {
		ev.Error = runErr.Error()
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.events.PublishRun(pctx, ev); err != nil {
		p.l.Warn("publish run event failed", applogger.String("run_id", runID), applogger.Error(err))
	}
}

// universe returns explicit when given, otherwise the holdings of etf.
func (p *Pipeline) universe(ctx context.Context, etf string, explicit []string) ([]string, error) {
	if syms := util.NormalizeSymbols(explicit); len(syms) > 0 {
		return syms, nil
	}
	if etf == "" {
		etf = p.cfg.DefaultETF
	}
	if p.holdings == nil {
		return nil, fmt.Errorf("no symbols given and no holdings source configured")
	}
	list, err := p.holdings.Holdings(ctx, etf)
	if err != nil {
		return nil, err
	}
	return list.Symbols(), nil
}

func (p *Pipeline) fetch(ctx context.Context, symbols []string, w Window, retry *fetcher.RetryPolicy, autoAdjust bool) (*models.BatchResult, error) {
	res, err := p.fetcher.Fetch(ctx, fetcher.Request{
		Symbols:    symbols,
		Start:      w.Start,
		End:        w.End,
		Period:     w.Period,
		Interval:   p.cfg.Interval,
		GroupBy:    domrepo.GroupByTicker,
		AutoAdjust: autoAdjust,
		Retry:      retry,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return res, nil
}

// absorb copies the failures of res onto rep and reports whether the
// download produced nothing, in which case rep is marked empty.
func absorb[T any](rep *models.Report[T], res *models.BatchResult) bool {
	rep.Failed = append(rep.Failed, res.Failed...)
	if len(res.Failed) > 0 {
		rep.Warn(fmt.Sprintf("%d of %d symbols failed to load", len(res.Failed), len(res.Requested)))
	}
	if res.Frame.Empty() {
		markEmpty(rep, "provider returned no data")
		return true
	}
	return false
}

func markEmpty[T any](rep *models.Report[T], reason string) {
	rep.Status = models.StatusEmpty
	rep.Warn(reason)
}

// table extracts field from res and marks rep empty when nothing survives
// the policy.
func table[T any](rep *models.Report[T], res *models.BatchResult, field models.Field, policy frame.Policy) (*models.PriceTable, bool, error) {
	t, err := frame.ExtractField(res.Frame, field, policy)
	if err != nil {
		return nil, false, err
	}
	if t.Empty() {
		markEmpty(rep, fmt.Sprintf("no complete %s data under %s policy", field, policy))
		return t, false, nil
	}
	return t, true, nil
}

// settle turns engine errors that mean "nothing to show" into an empty
// report. Anything else is returned unchanged.
func settle[T any](rep *models.Report[T], err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNoData) || errors.Is(err, domain.ErrInsufficientHistory) {
		markEmpty(rep, err.Error())
		return nil
	}
	return err
}
