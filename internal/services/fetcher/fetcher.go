package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"SectorScope/internal/domain/models"
	domrepo "SectorScope/internal/domain/repository"
	"SectorScope/internal/service/cache"
	applogger "SectorScope/pkg/logger"
	"SectorScope/pkg/util"
)

// Config holds batching and retry parameters.
type Config struct {
	BatchSize   int
	MaxRetries  int
	BackoffBase time.Duration
	Cooldown    time.Duration
	CacheTTL    time.Duration
}

// DefaultConfig mirrors the provider's tolerated request pattern.
func DefaultConfig() Config {
	return Config{
		BatchSize:   50,
		MaxRetries:  3,
		BackoffBase: 2 * time.Second,
		Cooldown:    time.Second,
		CacheTTL:    time.Hour,
	}
}

// RetryPolicy overrides the configured retry parameters for one call. A
// negative MaxRetries or a zero BackoffBase keeps the configured value.
type RetryPolicy struct {
	MaxRetries  int
	BackoffBase time.Duration
}

// ParseRetryPolicy builds an override from the textual retry count and
// backoff of a request. Both empty yields nil.
func ParseRetryPolicy(maxRetries, backoff string) (*RetryPolicy, error) {
	maxRetries, backoff = strings.TrimSpace(maxRetries), strings.TrimSpace(backoff)
	if maxRetries == "" && backoff == "" {
		return nil, nil
	}
	rp := &RetryPolicy{MaxRetries: -1}
	if maxRetries != "" {
		n, err := strconv.Atoi(maxRetries)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("max retries %q: must be a non-negative integer", maxRetries)
		}
		rp.MaxRetries = n
	}
	if backoff != "" {
		d, err := time.ParseDuration(backoff)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("backoff %q: must be a non-negative duration", backoff)
		}
		rp.BackoffBase = d
	}
	return rp, nil
}

// Request is one batched download.
type Request struct {
	Symbols    []string
	Start      time.Time
	End        time.Time
	Period     string
	Interval   domrepo.Interval
	GroupBy    domrepo.GroupBy
	AutoAdjust bool
	Retry      *RetryPolicy
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Fetcher splits symbol lists into provider-sized batches and downloads
// them sequentially with retry, backoff and a cooldown between batches.
type Fetcher struct {
	provider domrepo.MarketDataProvider
	cfg      Config
	cache    cache.BytesCache
	metrics  domrepo.Metrics
	l        *applogger.Logger
	sleep    Sleeper
}

type Option func(*Fetcher)

// WithLogger injects a structured logger.
func WithLogger(l *applogger.Logger) Option { return func(f *Fetcher) { f.l = l } }

// WithMetrics injects a metrics recorder.
func WithMetrics(m domrepo.Metrics) Option { return func(f *Fetcher) { f.metrics = m } }

// WithCache memoizes results in c for Config.CacheTTL.
func WithCache(c cache.BytesCache) Option { return func(f *Fetcher) { f.cache = c } }

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s Sleeper) Option { return func(f *Fetcher) { f.sleep = s } }

func New(p domrepo.MarketDataProvider, cfg Config, opts ...Option) *Fetcher {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	f := &Fetcher{provider: p, cfg: cfg, l: applogger.Nop(), sleep: SleepContext}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads every symbol of req.
//
// Symbols are de-duplicated and split into batches. A batch that keeps
// failing after the allowed retries, or that comes back empty, marks all of
// its symbols failed; a symbol that is missing from an otherwise successful
// batch is failed on its own. Failed symbols never appear in the frame.
// When ctx is cancelled the partial result is returned with ctx.Err() and
// every symbol not yet fetched is reported failed.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*models.BatchResult, error) {
	symbols := util.NormalizeSymbols(req.Symbols)
	res := &models.BatchResult{Requested: symbols, Failed: []string{}}
	if len(symbols) == 0 {
		res.Frame = models.NewFrame(nil)
		return res, nil
	}
	if req.Interval == "" {
		req.Interval = domrepo.DefaultInterval()
	}
	if req.GroupBy == "" {
		req.GroupBy = domrepo.GroupByTicker
	}
	policy := RetryPolicy{MaxRetries: f.cfg.MaxRetries, BackoffBase: f.cfg.BackoffBase}
	if r := req.Retry; r != nil {
		if r.MaxRetries >= 0 {
			policy.MaxRetries = r.MaxRetries
		}
		if r.BackoffBase > 0 {
			policy.BackoffBase = r.BackoffBase
		}
	}

	key := cache.Key{
		Op:         "download:" + f.provider.Name(),
		Symbols:    symbols,
		Start:      req.Start,
		End:        req.End,
		Period:     req.Period,
		Interval:   string(req.Interval),
		GroupBy:    string(req.GroupBy),
		AutoAdjust: req.AutoAdjust,
	}
	if f.cache != nil {
		var cached models.BatchResult
		ok, err := cache.GetJSON(ctx, f.cache, key, &cached)
		if err != nil {
			f.l.Warn("fetch cache read failed", applogger.Error(err))
		}
		f.recordCache(ok)
		if ok {
			return &cached, nil
		}
	}

	started := time.Now()
	batches := chunk(symbols, f.cfg.BatchSize)
	frames := make([]*models.RawFrame, 0, len(batches))
	exhausted := false

	for i, batch := range batches {
		if i > 0 {
			f.l.Debug("batch cooldown", applogger.Int("batch", i+1), applogger.Duration("cooldown_ms", f.cfg.Cooldown))
			if err := f.sleep(ctx, f.cfg.Cooldown); err != nil {
				return f.abort(res, frames, batches[i:]), err
			}
		}

		frame, err := f.fetchBatch(ctx, i+1, batch, req, policy)
		if err != nil {
			if ctx.Err() != nil {
				return f.abort(res, frames, batches[i:]), ctx.Err()
			}
			exhausted = true
			res.Failed = append(res.Failed, batch...)
			continue
		}
		if frame.Empty() {
			f.l.Warn("batch returned no data", applogger.Int("batch", i+1), applogger.Strings("symbols", batch))
			res.Failed = append(res.Failed, batch...)
			continue
		}

		missing := missingSymbols(frame, batch)
		if len(missing) > 0 {
			f.l.Warn("symbols missing from batch", applogger.Int("batch", i+1), applogger.Strings("symbols", missing))
			res.Failed = append(res.Failed, missing...)
			frame = dropSymbols(frame, missing)
		}
		if !frame.Empty() {
			frames = append(frames, frame)
		}
	}

	res.Frame = models.ConcatColumns(frames...)
	if f.metrics != nil {
		f.metrics.RecordFailedSymbols(f.provider.Name(), len(res.Failed))
		f.metrics.RecordLatency("fetch", time.Since(started).Seconds())
	}
	f.l.Info("fetch completed",
		applogger.String("provider", f.provider.Name()),
		applogger.Int("requested", len(symbols)),
		applogger.Int("batches", len(batches)),
		applogger.Int("failed", len(res.Failed)),
		applogger.Int("rows", res.Frame.Len()),
		applogger.Duration("took_ms", time.Since(started)),
	)

	if f.cache != nil && !exhausted && !res.Frame.Empty() {
		if err := cache.SetJSON(ctx, f.cache, key, res, f.cfg.CacheTTL); err != nil {
			f.l.Warn("fetch cache write failed", applogger.Error(err))
		}
	}
	return res, nil
}

func (f *Fetcher) fetchBatch(ctx context.Context, n int, batch []string, req Request, policy RetryPolicy) (*models.RawFrame, error) {
	dreq := domrepo.DownloadRequest{
		Symbols:    batch,
		Start:      req.Start,
		End:        req.End,
		Period:     req.Period,
		Interval:   req.Interval,
		GroupBy:    req.GroupBy,
		AutoAdjust: req.AutoAdjust,
	}
	attempts := policy.MaxRetries + 1
	for attempt := 1; ; attempt++ {
		frame, err := f.provider.Download(ctx, dreq)
		if err == nil {
			outcome := "ok"
			if frame.Empty() {
				outcome = "empty"
			}
			f.recordAttempt(outcome)
			return frame, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.recordAttempt("error")
		if attempt >= attempts {
			f.l.Error("batch failed",
				applogger.Int("batch", n),
				applogger.Int("attempts", attempt),
				applogger.Strings("symbols", batch),
				applogger.Error(err),
			)
			return nil, fmt.Errorf("batch %d after %d attempts: %w", n, attempt, err)
		}
		wait := Backoff(policy.BackoffBase, attempt)
		f.l.Warn("batch download failed, retrying",
			applogger.Int("batch", n),
			applogger.Int("attempt", attempt),
			applogger.Duration("wait_ms", wait),
			applogger.Error(err),
		)
		if err := f.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (f *Fetcher) abort(res *models.BatchResult, frames []*models.RawFrame, rest [][]string) *models.BatchResult {
	for _, b := range rest {
		res.Failed = append(res.Failed, b...)
	}
	res.Frame = models.ConcatColumns(frames...)
	f.l.Warn("fetch cancelled", applogger.Int("failed", len(res.Failed)))
	return res
}

func (f *Fetcher) recordAttempt(outcome string) {
	if f.metrics != nil {
		f.metrics.RecordFetchAttempt(f.provider.Name(), outcome)
	}
}

func (f *Fetcher) recordCache(hit bool) {
	if f.metrics != nil {
		f.metrics.RecordCacheLookup("download", hit)
	}
}

// Backoff is the wait before retry number attempt: base * 2^(attempt-1).
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
}

// SleepContext waits for d unless ctx is done first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsCancelled reports whether err comes from context cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func chunk(symbols []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(symbols); i += size {
		end := i + size
		if end > len(symbols) {
			end = len(symbols)
		}
		out = append(out, symbols[i:end])
	}
	return out
}

// missingSymbols lists batch symbols with no non-missing value in frame.
func missingSymbols(frame *models.RawFrame, batch []string) []string {
	present := make(map[string]bool)
	for i, c := range frame.Columns {
		sym := c.Symbol
		if !frame.Hierarchical {
			sym = frame.Symbol
		}
		if present[sym] {
			continue
		}
		for _, v := range frame.Data[i] {
			if !math.IsNaN(v) {
				present[sym] = true
				break
			}
		}
	}
	var out []string
	for _, s := range batch {
		if !present[s] {
			out = append(out, s)
		}
	}
	return out
}

func dropSymbols(frame *models.RawFrame, symbols []string) *models.RawFrame {
	drop := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		drop[s] = true
	}
	if !frame.Hierarchical {
		if drop[frame.Symbol] {
			return models.NewFlatFrame(frame.Symbol, nil)
		}
		return frame
	}
	out := models.NewFrame(frame.Index)
	for i, c := range frame.Columns {
		if !drop[c.Symbol] {
			out.AddColumn(c, frame.Data[i])
		}
	}
	return out
}
