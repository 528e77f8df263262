package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SectorScope/internal/domain"
	"SectorScope/internal/domain/models"
	domrepo "SectorScope/internal/domain/repository"
	"SectorScope/internal/service/provider"
	pkgch "SectorScope/pkg/clickhouse"
	applogger "SectorScope/pkg/logger"
	"SectorScope/pkg/util"
)

// ClickHouseBarProvider implements MarketDataProvider over the daily_bars
// warehouse table.
type ClickHouseBarProvider struct {
	db       *sql.DB
	database string
	now      func() time.Time
	l        *applogger.Logger
}

func NewClickHouseBarProvider(ch *pkgch.Client, l *applogger.Logger) *ClickHouseBarProvider {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseBarProvider{db: ch.DB(), database: ch.Database(), now: time.Now, l: l}
}

func (p *ClickHouseBarProvider) Name() string { return "clickhouse" }

func (p *ClickHouseBarProvider) Download(ctx context.Context, req domrepo.DownloadRequest) (*models.RawFrame, error) {
	symbols := util.NormalizeSymbols(req.Symbols)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("clickhouse download: no symbols")
	}
	if req.Interval != "" && req.Interval != domrepo.IntervalDay {
		return nil, &domain.ValidationError{Source: "clickhouse", Reason: "only daily bars are stored, got " + string(req.Interval)}
	}
	from, to, err := resolveRange(req, p.now())
	if err != nil {
		return nil, err
	}

	start := time.Now()
	q, args := barsQuery(p.database, symbols, from, to)
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		p.l.Error("clickhouse daily_bars query error",
			applogger.Int("symbols", len(symbols)),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query daily bars: %w", err)
	}
	defer rows.Close()

	bars := make(map[string][]models.Bar, len(symbols))
	n := 0
	for rows.Next() {
		var (
			sym string
			b   models.Bar
		)
		if err := rows.Scan(&sym, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan daily bar: %w", err)
		}
		b.Date = util.Day(b.Date)
		bars[sym] = append(bars[sym], b)
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if req.AutoAdjust {
		for sym := range bars {
			provider.AutoAdjust(bars[sym])
		}
	}

	p.l.Debug("clickhouse daily_bars ok",
		applogger.Int("symbols", len(symbols)),
		applogger.Int("rows", n),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return provider.BuildFrame(symbols, bars, req.GroupBy), nil
}

func resolveRange(req domrepo.DownloadRequest, now time.Time) (time.Time, time.Time, error) {
	from, to := req.Start, req.End
	if req.Period != "" {
		s, err := util.PeriodStart(req.Period, now)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("clickhouse download: %w", err)
		}
		from, to = s, time.Time{}
	}
	if to.IsZero() {
		to = now
	}
	return util.Day(from), util.Day(to), nil
}

// barsQuery builds the SELECT for symbols over [from, to].
func barsQuery(database string, symbols []string, from, to time.Time) (string, []any) {
	if database == "" {
		database = "sectorscope"
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(symbols)), ",")
	q := fmt.Sprintf(`
        SELECT symbol, date, open, high, low, close, adj_close, volume
        FROM %s.daily_bars FINAL
        WHERE symbol IN (%s) AND date >= ? AND date <= ?
        ORDER BY symbol ASC, date ASC
    `, database, placeholders)
	args := make([]any, 0, len(symbols)+2)
	for _, s := range symbols {
		args = append(args, s)
	}
	args = append(args, from, to)
	return q, args
}
