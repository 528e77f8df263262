package holdings

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"SectorScope/internal/domain"
	"SectorScope/internal/service/cache"
	applogger "SectorScope/pkg/logger"
)

func sampleRows() [][]string {
	return [][]string{
		{"Fund Name:", "Technology Select Sector SPDR"},
		{"Holdings:", "As of 02-Jan-2024"},
		{},
		{"Name", "TICKER", "Identifier", "Weight", "Sector"},
		{"APPLE INC", "aapl", "037833100", "22.51", "Information Technology"},
		{"MICROSOFT CORP", "MSFT", "594918104", "21.9", "Information Technology"},
		{"BERKSHIRE HATHAWAY", "BRK.B", "084670702", "1.5", "Financials"},
		{"US DOLLAR", "CASH_USD", "", "0.1", ""},
		{"PENDING", "NVDA", "", "-", ""},
		{"Past performance is not a guarantee."},
	}
}

func TestParseHoldings(t *testing.T) {
	got, err := ParseHoldings(sampleRows())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 holdings, got %+v", got)
	}
	if got[0].Symbol != "AAPL" || got[0].Weight != 22.51 || got[1].Symbol != "MSFT" {
		t.Fatalf("unexpected holdings %+v", got)
	}
}

func TestParseHoldingsMissingHeader(t *testing.T) {
	_, err := ParseHoldings([][]string{{"Name", "Ticker"}, {"APPLE", "AAPL"}})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func workbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range sampleRows() {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		vals := make([]interface{}, len(row))
		for j, v := range row {
			vals[j] = v
		}
		if err := f.SetSheetRow("Sheet1", cell, &vals); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestServiceDownloadsAndCaches(t *testing.T) {
	body := workbook(t)
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if !strings.HasSuffix(r.URL.Path, "/holdings-xlk.xlsx") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	svc := New(Config{URLPattern: srv.URL + "/holdings-%s.xlsx"}, WithCache(cache.NewTTLCache()))
	for i := 0; i < 2; i++ {
		got, err := svc.Holdings(context.Background(), "xlk")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 holdings, got %d", len(got))
		}
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("second call must be served from cache, got %d downloads", hits)
	}

	if _, err := svc.Holdings(context.Background(), "XLF"); err == nil {
		t.Fatalf("expected error for missing workbook")
	}
}

type brokenCache struct{}

func (brokenCache) GetBytes(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("redis: connection refused")
}

func (brokenCache) SetBytes(context.Context, string, []byte, time.Duration) error { return nil }

func TestHoldingsLogsCacheReadFailure(t *testing.T) {
	body := workbook(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	logPath := filepath.Join(t.TempDir(), "holdings.log")
	l, err := applogger.New(&applogger.Config{Level: "info", Format: "json", Output: logPath})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	svc := New(Config{URLPattern: srv.URL + "/holdings-%s.xlsx"}, WithCache(brokenCache{}), WithLogger(l))
	got, err := svc.Holdings(context.Background(), "XLK")
	if err != nil || len(got) != 2 {
		t.Fatalf("expected download fallback, got %d holdings, err=%v", len(got), err)
	}

	out, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(out), "holdings cache read failed") || !strings.Contains(string(out), "connection refused") {
		t.Fatalf("expected the cache failure logged, got:\n%s", out)
	}
}
