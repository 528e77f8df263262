package clickhouse

import (
	"strings"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host: "ch", Port: 9000, Database: "sectorscope", User: "u", Password: "p",
		DialTimeout: 5 * time.Second, MaxExecTime: 30 * time.Second,
	})
	want := "clickhouse://u:p@ch:9000/sectorscope?dial_timeout=5s&max_execution_time=30"
	if dsn != want {
		t.Fatalf("dsn = %q, want %q", dsn, want)
	}

	dsn = buildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "db", UseHTTP: true, AsyncInsert: true})
	if !strings.HasPrefix(dsn, "clickhouse+http://") || !strings.HasSuffix(dsn, "?async_insert=1") {
		t.Fatalf("unexpected http dsn %q", dsn)
	}
}

func TestBarsSchemaUsesDatabase(t *testing.T) {
	stmts := BarsSchema("warehouse")
	if len(stmts) != 2 || !strings.Contains(stmts[1], "warehouse.daily_bars") {
		t.Fatalf("unexpected schema %v", stmts)
	}
}
