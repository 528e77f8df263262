// Package yahoo downloads daily bars from the Yahoo Finance chart endpoint.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"SectorScope/internal/domain/models"
	domrepo "SectorScope/internal/domain/repository"
	"SectorScope/internal/service/provider"
	httpclient "SectorScope/pkg/http"
	applogger "SectorScope/pkg/logger"
	"SectorScope/pkg/util"
)

const (
	DefaultBaseURL     = "https://query1.finance.yahoo.com"
	defaultConcurrency = 8
)

// Provider implements repository.MarketDataProvider against Yahoo's v8
// chart API.
type Provider struct {
	client      *httpclient.Client
	baseURL     string
	concurrency int
	logger      *applogger.Logger
}

type Option func(*Provider)

func WithBaseURL(u string) Option {
	return func(p *Provider) {
		if u != "" {
			p.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithClient(c *httpclient.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithConcurrency bounds the number of symbols fetched in parallel.
func WithConcurrency(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

func New(opts ...Option) *Provider {
	p := &Provider{
		client:      httpclient.NewClient(httpclient.WithTimeout(20 * time.Second)),
		baseURL:     DefaultBaseURL,
		concurrency: defaultConcurrency,
		logger:      applogger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return "yahoo" }

// chartResponse mirrors the subset of /v8/finance/chart we read. Quote
// arrays are nullable per bar.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// errNotFound marks a symbol the provider does not know.
var errNotFound = errors.New("symbol not found")

// Download fetches every requested symbol concurrently. Unknown symbols are
// left out of the frame; any transport failure or transient status fails
// the whole call so the caller can retry the batch.
func (p *Provider) Download(ctx context.Context, req domrepo.DownloadRequest) (*models.RawFrame, error) {
	symbols := util.NormalizeSymbols(req.Symbols)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("yahoo download: no symbols")
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		bars     = make(map[string][]models.Bar, len(symbols))
		firstErr error
		sem      = make(chan struct{}, p.concurrency)
	)

	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				mu.Lock()
				if firstErr == nil {
					firstErr = ctx.Err()
				}
				mu.Unlock()
				return
			}
			defer func() { <-sem }()

			got, err := p.fetchSymbol(ctx, sym, req)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, errNotFound):
				p.logger.Debug("yahoo symbol not found", applogger.String("symbol", sym))
			case err != nil:
				if firstErr == nil {
					firstErr = fmt.Errorf("yahoo %s: %w", sym, err)
				}
			default:
				bars[sym] = got
			}
		}(sym)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return provider.BuildFrame(symbols, bars, req.GroupBy), nil
}

func (p *Provider) fetchSymbol(ctx context.Context, sym string, req domrepo.DownloadRequest) ([]models.Bar, error) {
	interval := req.Interval
	if interval == "" {
		interval = domrepo.DefaultInterval()
	}
	params := map[string][]string{
		"interval":             {string(interval)},
		"includeAdjustedClose": {"true"},
		"events":               {"div,split"},
	}
	if req.Period != "" {
		params["range"] = []string{req.Period}
	} else {
		end := req.End
		if end.IsZero() {
			end = time.Now()
		}
		params["period1"] = []string{strconv.FormatInt(req.Start.Unix(), 10)}
		params["period2"] = []string{strconv.FormatInt(end.Unix(), 10)}
	}

	var resp chartResponse
	err := p.client.SendAndParse(ctx, &httpclient.RequestOptions{
		Method:      httpclient.MethodGet,
		URL:         p.baseURL + "/v8/finance/chart/" + url.PathEscape(sym),
		QueryParams: params,
	}, &resp)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && !se.Transient() {
			if se.Code == http.StatusNotFound {
				return nil, errNotFound
			}
			return nil, fmt.Errorf("%w: %v", errNotFound, err)
		}
		return nil, err
	}
	if resp.Chart.Error != nil || len(resp.Chart.Result) == 0 {
		return nil, errNotFound
	}

	res := resp.Chart.Result[0]
	if len(res.Indicators.Quote) == 0 {
		return nil, errNotFound
	}
	q := res.Indicators.Quote[0]
	var adj []*float64
	if len(res.Indicators.AdjClose) > 0 {
		adj = res.Indicators.AdjClose[0].AdjClose
	}

	out := make([]models.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		c := at(q.Close, i)
		if math.IsNaN(c) {
			continue
		}
		b := models.Bar{
			Date:     util.Day(time.Unix(ts+res.Meta.GMTOffset, 0).UTC()),
			Open:     at(q.Open, i),
			High:     at(q.High, i),
			Low:      at(q.Low, i),
			Close:    c,
			AdjClose: at(adj, i),
			Volume:   at(q.Volume, i),
		}
		if math.IsNaN(b.AdjClose) {
			b.AdjClose = c
		}
		out = append(out, b)
	}
	out = provider.Dedupe(out)
	if req.AutoAdjust {
		provider.AutoAdjust(out)
	}
	if len(out) == 0 {
		return nil, errNotFound
	}
	return out, nil
}

func at(xs []*float64, i int) float64 {
	if i >= len(xs) || xs[i] == nil {
		return math.NaN()
	}
	return *xs[i]
}
