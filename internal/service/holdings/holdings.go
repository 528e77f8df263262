// Package holdings downloads and parses the daily SSGA holdings workbook of
// an ETF.
package holdings

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-resty/resty/v2"
	"github.com/xuri/excelize/v2"

	"SectorScope/internal/domain"
	"SectorScope/internal/domain/models"
	"SectorScope/internal/service/cache"
	applogger "SectorScope/pkg/logger"
)

const DefaultURLPattern = "https://www.ssga.com/us/en/intermediary/library-content/products/fund-data/etfs/us/holdings-daily-us-en-%s.xlsx"

type Config struct {
	URLPattern string
	Timeout    time.Duration
	CacheTTL   time.Duration
}

// Service implements repository.HoldingsSource.
type Service struct {
	cfg    Config
	client *resty.Client
	cache  cache.BytesCache
	logger *applogger.Logger
}

type Option func(*Service)

func WithCache(c cache.BytesCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithLogger(l *applogger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRestyClient replaces the HTTP client, mainly for tests.
func WithRestyClient(c *resty.Client) Option {
	return func(s *Service) { s.client = c }
}

func New(cfg Config, opts ...Option) *Service {
	if cfg.URLPattern == "" {
		cfg.URLPattern = DefaultURLPattern
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 12 * time.Hour
	}
	s := &Service{cfg: cfg, logger: applogger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = resty.New().
			SetTimeout(cfg.Timeout).
			SetHeader("User-Agent", "Mozilla/5.0")
	}
	return s
}

// Holdings returns the constituents of etf with their portfolio weights.
func (s *Service) Holdings(ctx context.Context, etf string) (models.HoldingList, error) {
	etf = strings.ToUpper(strings.TrimSpace(etf))
	if etf == "" {
		return nil, &domain.ValidationError{Source: "holdings", Reason: "empty ETF ticker"}
	}

	key := cache.Key{Op: "holdings", Symbols: []string{etf}}
	if s.cache != nil {
		var cached models.HoldingList
		ok, err := cache.GetJSON(ctx, s.cache, key, &cached)
		if err != nil {
			s.logger.Warn("holdings cache read failed", applogger.String("etf", etf), applogger.Error(err))
		}
		if ok {
			return cached, nil
		}
	}

	url := fmt.Sprintf(s.cfg.URLPattern, strings.ToLower(etf))
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("download holdings %s: %w", etf, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("download holdings %s: HTTP %d", etf, resp.StatusCode())
	}

	list, err := ParseWorkbook(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("holdings %s: %w", etf, err)
	}
	s.logger.Info("holdings loaded", applogger.String("etf", etf), applogger.Int("count", len(list)))

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, key, list, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("cache holdings failed", applogger.String("etf", etf), applogger.Error(err))
		}
	}
	return list, nil
}

// ParseWorkbook reads the first sheet of an xlsx document.
func ParseWorkbook(data []byte) (models.HoldingList, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &domain.ValidationError{Source: "holdings", Reason: "not a spreadsheet: " + err.Error()}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &domain.ValidationError{Source: "holdings", Reason: "workbook has no sheets"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return ParseHoldings(rows)
}

// ParseHoldings locates the first row carrying both a "Ticker" and a
// "Weight" header (case-insensitive) and reads the rows below it. Tickers
// are upper-cased; rows whose ticker is not purely alphabetic or whose
// weight is not numeric are dropped.
func ParseHoldings(rows [][]string) (models.HoldingList, error) {
	header, tickerCol, weightCol := -1, -1, -1
	for i, row := range rows {
		t, w := -1, -1
		for j, cell := range row {
			switch strings.ToLower(strings.TrimSpace(cell)) {
			case "ticker":
				if t < 0 {
					t = j
				}
			case "weight":
				if w < 0 {
					w = j
				}
			}
		}
		if t >= 0 && w >= 0 {
			header, tickerCol, weightCol = i, t, w
			break
		}
	}
	if header < 0 {
		return nil, &domain.ValidationError{Source: "holdings", Reason: "could not find header row with 'Ticker' and 'Weight'"}
	}

	var out models.HoldingList
	for _, row := range rows[header+1:] {
		if tickerCol >= len(row) || weightCol >= len(row) {
			continue
		}
		ticker := strings.ToUpper(strings.TrimSpace(row[tickerCol]))
		if !isAlpha(ticker) {
			continue
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(row[weightCol]), 64)
		if err != nil {
			continue
		}
		out = append(out, models.Holding{Symbol: ticker, Weight: weight})
	}
	return out, nil
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
