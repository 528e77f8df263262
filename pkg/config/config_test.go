package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Fetch.BatchSize != 50 || c.Fetch.MaxRetries != 3 || c.Fetch.BackoffBase != 2*time.Second || c.Fetch.Cooldown != time.Second {
		t.Fatalf("unexpected fetch defaults %+v", c.Fetch)
	}
	if c.Provider.Name != "yahoo" || c.Cache.Backend != "memory" || len(c.Server.CORSOrigins) != 1 || c.Server.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected defaults %+v", c)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	p := write(t, "config.yaml", `
environment: production
server:
  port: 9090
  cors_origins: []
fetch:
  batch_size: 25
  cooldown: 500ms
`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Server.Port != 9090 || len(c.Server.CORSOrigins) != 0 || c.Fetch.BatchSize != 25 || c.Fetch.Cooldown != 500*time.Millisecond {
		t.Fatalf("file values not applied: %+v", c)
	}
	if c.Fetch.MaxRetries != 3 {
		t.Fatalf("unset fields must keep defaults")
	}
}

func TestLoadTOML(t *testing.T) {
	p := write(t, "config.toml", `
environment = "staging"

[fetch]
batch_size = 10
backoff_base = "3s"

[provider]
name = "financego"
`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Environment != "staging" || c.Fetch.BatchSize != 10 || c.Fetch.BackoffBase != 3*time.Second || c.Provider.Name != "financego" {
		t.Fatalf("toml values not applied: %+v", c)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"provider":   "provider:\n  name: bloomberg\n",
		"batch":      "fetch:\n  batch_size: 0\n",
		"kafka":      "kafka:\n  enabled: true\n",
		"clickhouse": "provider:\n  name: clickhouse\n",
	}
	for name, body := range cases {
		if _, err := Load(write(t, "c.yaml", body)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	env := map[string]string{
		"SECTORSCOPE_PROVIDER": "financego",
		"KAFKA_BROKERS":        "k1:9092,k2:9092",
		"REDIS_ADDR":           "redis:6379",
		"SERVER_PORT":          "7000",
		"SERVER_CORS_ORIGINS":  "https://a.example.com,https://b.example.com",
	}
	applyEnv(c, func(k string) string { return env[k] })
	if c.Provider.Name != "financego" || len(c.Kafka.Brokers) != 2 || !c.Kafka.Enabled {
		t.Fatalf("env not applied: %+v", c)
	}
	if c.Cache.Backend != "redis" || c.Cache.Redis.Addr != "redis:6379" || c.Server.Port != 7000 {
		t.Fatalf("env not applied: %+v", c.Cache)
	}
	if len(c.Server.CORSOrigins) != 2 || c.Server.CORSOrigins[1] != "https://b.example.com" {
		t.Fatalf("cors origins not applied: %v", c.Server.CORSOrigins)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
