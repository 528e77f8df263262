package fetcher

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"SectorScope/internal/domain/models"
	domrepo "SectorScope/internal/domain/repository"
	"SectorScope/internal/service/cache"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// fakeProvider fails the first failures[batchKey] calls of a batch and
// serves a 3-row frame for every symbol not listed in unknown.
type fakeProvider struct {
	mu       sync.Mutex
	failures map[string]int
	unknown  map[string]bool
	empty    bool
	calls    [][]string
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Download(_ context.Context, req domrepo.DownloadRequest) (*models.RawFrame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req.Symbols)
	key := req.Symbols[0]
	if p.failures[key] > 0 {
		p.failures[key]--
		return nil, errors.New("connection reset")
	}
	index := []time.Time{day0, day0.AddDate(0, 0, 1), day0.AddDate(0, 0, 2)}
	if p.empty {
		return models.NewFrame(nil), nil
	}
	if len(req.Symbols) == 1 {
		if p.unknown[key] {
			return models.NewFrame(nil), nil
		}
		f := models.NewFlatFrame(key, index)
		f.AddColumn(models.ColumnKey{Field: models.FieldClose}, []float64{1, 2, 3})
		return f, nil
	}
	f := models.NewFrame(index)
	for _, s := range req.Symbols {
		if p.unknown[s] {
			continue
		}
		f.AddColumn(models.ColumnKey{Symbol: s, Field: models.FieldClose}, []float64{1, 2, 3})
	}
	return f, nil
}

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.waits = append(s.waits, d)
	return nil
}

func symbolsN(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("S%03d", i)
	}
	return out
}

func newTestFetcher(p domrepo.MarketDataProvider, rec *sleepRecorder) *Fetcher {
	cfg := Config{BatchSize: 50, MaxRetries: 3, BackoffBase: 2 * time.Second, Cooldown: time.Second}
	return New(p, cfg, WithSleeper(rec.sleep))
}

func TestFetchBatchesAndCooldown(t *testing.T) {
	p := &fakeProvider{}
	rec := &sleepRecorder{}
	res, err := newTestFetcher(p, rec).Fetch(context.Background(), Request{Symbols: symbolsN(120)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.calls) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(p.calls))
	}
	if len(p.calls[0]) != 50 || len(p.calls[2]) != 20 {
		t.Fatalf("unexpected batch sizes %d/%d", len(p.calls[0]), len(p.calls[2]))
	}
	if !reflect.DeepEqual(rec.waits, []time.Duration{time.Second, time.Second}) {
		t.Fatalf("expected two cooldowns, got %v", rec.waits)
	}
	if len(res.Failed) != 0 || len(res.Frame.Symbols()) != 120 {
		t.Fatalf("expected all symbols, failed=%v columns=%d", res.Failed, len(res.Frame.Symbols()))
	}
}

func TestFetchDeduplicates(t *testing.T) {
	p := &fakeProvider{}
	res, err := newTestFetcher(p, &sleepRecorder{}).Fetch(context.Background(), Request{Symbols: []string{"AAA", "BBB", "AAA"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(p.calls[0], []string{"AAA", "BBB"}) {
		t.Fatalf("unexpected request %v", p.calls[0])
	}
	if !reflect.DeepEqual(res.Requested, []string{"AAA", "BBB"}) {
		t.Fatalf("unexpected requested %v", res.Requested)
	}
}

func TestFetchRetriesWithExponentialBackoff(t *testing.T) {
	syms := symbolsN(2)
	p := &fakeProvider{failures: map[string]int{syms[0]: 2}}
	rec := &sleepRecorder{}
	res, err := newTestFetcher(p, rec).Fetch(context.Background(), Request{Symbols: syms})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(p.calls))
	}
	if !reflect.DeepEqual(rec.waits, []time.Duration{2 * time.Second, 4 * time.Second}) {
		t.Fatalf("unexpected backoff %v", rec.waits)
	}
	if len(res.Failed) != 0 {
		t.Fatalf("expected recovery, failed=%v", res.Failed)
	}
}

func TestFetchExhaustedBatchFailsEverySymbol(t *testing.T) {
	syms := symbolsN(60)
	p := &fakeProvider{failures: map[string]int{syms[50]: 10}}
	rec := &sleepRecorder{}
	res, err := newTestFetcher(p, rec).Fetch(context.Background(), Request{Symbols: syms})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1 call for batch 1, 4 for batch 2 (initial + 3 retries)
	if len(p.calls) != 5 {
		t.Fatalf("expected 5 provider calls, got %d", len(p.calls))
	}
	failed := append([]string(nil), res.Failed...)
	sort.Strings(failed)
	if !reflect.DeepEqual(failed, syms[50:]) {
		t.Fatalf("unexpected failed %v", failed)
	}
	for _, s := range res.Frame.Symbols() {
		for _, f := range failed {
			if s == f {
				t.Fatalf("failed symbol %s present in frame", s)
			}
		}
	}
	if len(res.Frame.Symbols()) != 50 {
		t.Fatalf("expected partial success with 50 symbols, got %d", len(res.Frame.Symbols()))
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	if !reflect.DeepEqual(rec.waits, want) {
		t.Fatalf("unexpected waits %v", rec.waits)
	}
}

func TestFetchZeroRetriesMeansSingleAttempt(t *testing.T) {
	p := &fakeProvider{failures: map[string]int{"AAA": 1}}
	f := newTestFetcher(p, &sleepRecorder{})
	res, err := f.Fetch(context.Background(), Request{Symbols: []string{"AAA"}, Retry: &RetryPolicy{MaxRetries: 0, BackoffBase: time.Second}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.calls) != 1 || !reflect.DeepEqual(res.Failed, []string{"AAA"}) {
		t.Fatalf("expected one attempt and AAA failed, calls=%d failed=%v", len(p.calls), res.Failed)
	}
}

func TestFetchPartialRetryOverrideKeepsConfiguredCount(t *testing.T) {
	p := &fakeProvider{failures: map[string]int{"AAA": 2}}
	rec := &sleepRecorder{}
	res, err := newTestFetcher(p, rec).Fetch(context.Background(), Request{
		Symbols: []string{"AAA"},
		Retry:   &RetryPolicy{MaxRetries: -1, BackoffBase: 500 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Failed) != 0 || len(p.calls) != 3 {
		t.Fatalf("expected success on the third attempt, calls=%d failed=%v", len(p.calls), res.Failed)
	}
	want := []time.Duration{500 * time.Millisecond, time.Second}
	if !reflect.DeepEqual(rec.waits, want) {
		t.Fatalf("unexpected waits %v", rec.waits)
	}
}

func TestParseRetryPolicy(t *testing.T) {
	rp, err := ParseRetryPolicy("", "")
	if err != nil || rp != nil {
		t.Fatalf("expected no override, got %+v, %v", rp, err)
	}
	rp, err = ParseRetryPolicy("0", "")
	if err != nil || rp.MaxRetries != 0 || rp.BackoffBase != 0 {
		t.Fatalf("unexpected policy %+v, %v", rp, err)
	}
	rp, err = ParseRetryPolicy("", "250ms")
	if err != nil || rp.MaxRetries != -1 || rp.BackoffBase != 250*time.Millisecond {
		t.Fatalf("unexpected policy %+v, %v", rp, err)
	}
	for _, bad := range [][2]string{{"x", ""}, {"-2", ""}, {"", "soon"}, {"", "-1s"}} {
		if _, err := ParseRetryPolicy(bad[0], bad[1]); err == nil {
			t.Fatalf("expected an error for %q", bad)
		}
	}
}

func TestFetchEmptyBatchFailsWithoutRetry(t *testing.T) {
	p := &fakeProvider{empty: true}
	rec := &sleepRecorder{}
	res, err := newTestFetcher(p, rec).Fetch(context.Background(), Request{Symbols: []string{"AAA", "BBB"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.calls) != 1 || len(rec.waits) != 0 {
		t.Fatalf("empty result must not be retried")
	}
	if len(res.Failed) != 2 || !res.Frame.Empty() {
		t.Fatalf("expected both failed and empty frame")
	}
}

func TestFetchUnknownSymbolFailsAlone(t *testing.T) {
	p := &fakeProvider{unknown: map[string]bool{"BAD": true}}
	res, err := newTestFetcher(p, &sleepRecorder{}).Fetch(context.Background(), Request{Symbols: []string{"AAA", "BAD", "BBB"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.Failed, []string{"BAD"}) {
		t.Fatalf("unexpected failed %v", res.Failed)
	}
	if !reflect.DeepEqual(res.Succeeded(), []string{"AAA", "BBB"}) {
		t.Fatalf("unexpected succeeded %v", res.Succeeded())
	}
}

func TestFetchSingleSymbolKeepsFlatFrame(t *testing.T) {
	res, err := newTestFetcher(&fakeProvider{}, &sleepRecorder{}).Fetch(context.Background(), Request{Symbols: []string{"XBI"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Frame.Hierarchical || res.Frame.Symbol != "XBI" {
		t.Fatalf("expected flat XBI frame, got %+v", res.Frame.Columns)
	}
}

func TestFetchCancelledBeforeCooldown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &fakeProvider{}
	calls := 0
	sleeper := func(ctx context.Context, d time.Duration) error {
		calls++
		cancel()
		return ctx.Err()
	}
	f := New(p, Config{BatchSize: 50, MaxRetries: 3, BackoffBase: time.Second, Cooldown: time.Second}, WithSleeper(sleeper))
	res, err := f.Fetch(ctx, Request{Symbols: symbolsN(120)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(p.calls) != 1 || calls != 1 {
		t.Fatalf("expected to stop after first batch, calls=%d", len(p.calls))
	}
	if len(res.Failed) != 70 || len(res.Frame.Symbols()) != 50 {
		t.Fatalf("unexpected partial result failed=%d columns=%d", len(res.Failed), len(res.Frame.Symbols()))
	}
}

func TestFetchUsesCache(t *testing.T) {
	p := &fakeProvider{}
	c := cache.NewTTLCache()
	f := New(p, Config{BatchSize: 50, CacheTTL: time.Minute}, WithSleeper((&sleepRecorder{}).sleep), WithCache(c))
	req := Request{Symbols: []string{"AAA", "BBB"}, Start: day0}
	if _, err := f.Fetch(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req.Symbols = []string{"BBB", "AAA"}
	res, err := f.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.calls) != 1 {
		t.Fatalf("expected cached second call, got %d provider calls", len(p.calls))
	}
	if len(res.Frame.Symbols()) != 2 || res.Frame.Len() != 3 {
		t.Fatalf("unexpected cached frame")
	}
}

func TestBackoff(t *testing.T) {
	if Backoff(2*time.Second, 1) != 2*time.Second || Backoff(2*time.Second, 3) != 8*time.Second {
		t.Fatalf("unexpected backoff")
	}
}
