package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Log         LogConfig        `yaml:"log"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Provider    ProviderConfig   `yaml:"provider"`
	Fetch       FetchConfig      `yaml:"fetch"`
	Holdings    HoldingsConfig   `yaml:"holdings"`
	Cache       CacheConfig      `yaml:"cache"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Analytics   AnalyticsConfig  `yaml:"analytics"`
}

type LogConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" default:"console" validate:"oneof=json console"`
	Output     string `yaml:"output" default:"stderr"`
	TimeFormat string `yaml:"time_format"`
}

type ServerConfig struct {
	Host            string          `yaml:"host" default:"0.0.0.0"`
	Port            int             `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" default:"30s"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" default:"120s"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" default:"10s"`
	SlowThreshold   time.Duration   `yaml:"slow_threshold" default:"10s"`
	CORSOrigins     []string        `yaml:"cors_origins" default:"[\"*\"]"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is a per-client token bucket.
type RateLimitConfig struct {
	Enabled      bool    `yaml:"enabled" default:"true"`
	Capacity     float64 `yaml:"capacity" default:"30" validate:"gte=1"`
	RefillPerSec float64 `yaml:"refill_per_sec" default:"0.5" validate:"gt=0"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

type ProviderConfig struct {
	Name        string        `yaml:"name" default:"yahoo" validate:"oneof=yahoo financego clickhouse"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout" default:"20s"`
	Concurrency int           `yaml:"concurrency" default:"8" validate:"min=1,max=64"`
	Proxy       string        `yaml:"proxy"`
	UserAgent   string        `yaml:"user_agent"`
}

type FetchConfig struct {
	BatchSize   int           `yaml:"batch_size" default:"50" validate:"min=1"`
	MaxRetries  int           `yaml:"max_retries" default:"3" validate:"min=0,max=10"`
	BackoffBase time.Duration `yaml:"backoff_base" default:"2s"`
	Cooldown    time.Duration `yaml:"cooldown" default:"1s"`
	Interval    string        `yaml:"interval" default:"1d" validate:"oneof=1d 1wk 1mo"`
	AutoAdjust  bool          `yaml:"auto_adjust" default:"true"`
}

type HoldingsConfig struct {
	URLPattern string        `yaml:"url_pattern" validate:"omitempty,contains=%s"`
	Timeout    time.Duration `yaml:"timeout" default:"30s"`
	CacheTTL   time.Duration `yaml:"cache_ttl" default:"12h"`
}

type CacheConfig struct {
	Backend    string        `yaml:"backend" default:"memory" validate:"oneof=memory redis none"`
	TTL        time.Duration `yaml:"ttl" default:"1h"`
	L1TTL      time.Duration `yaml:"l1_ttl" default:"5m"`
	MaxEntries int           `yaml:"max_entries" default:"1000" validate:"min=1"`
	Redis      RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size" default:"10"`
	Prefix   string `yaml:"prefix" default:"sectorscope"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"sectorscope"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	InitSchema       bool          `yaml:"init_schema" default:"true"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic" default:"sectorscope.runs"`
	LogTopic     string   `yaml:"log_topic" default:"sectorscope.logs"`
	RequiredAcks int      `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
	Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	MaxAttempts  int      `yaml:"max_attempts" default:"3"`
	Async        bool     `yaml:"async"`
}

type AnalyticsConfig struct {
	Benchmark    string        `yaml:"benchmark" default:"SPY"`
	DefaultETF   string        `yaml:"default_etf" default:"XLK"`
	BreadthStart string        `yaml:"breadth_start" default:"1y"`
	Timeout      time.Duration `yaml:"timeout" default:"5m"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads a YAML or TOML (by extension) configuration file on top of the
// defaults and validates the result.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decode(path, b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// decode unmarshals YAML directly. TOML is read into a generic tree and
// re-encoded as YAML so both formats share the yaml tags and duration
// parsing.
func decode(path string, b []byte, c *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var tree map[string]interface{}
		if err := toml.Unmarshal(b, &tree); err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := yaml.NewEncoder(&buf).Encode(tree); err != nil {
			return err
		}
		return yaml.Unmarshal(buf.Bytes(), c)
	default:
		return yaml.Unmarshal(b, c)
	}
}

// LoadWithEnv loads an optional .env file, then the config file, then
// applies environment overrides and validates again.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	applyEnv(c, os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func applyEnv(c *Config, getenv func(string) string) {
	if v := getenv("SECTORSCOPE_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("SECTORSCOPE_PROVIDER"); v != "" {
		c.Provider.Name = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := getenv("SERVER_CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := getenv("HTTPS_PROXY"); v != "" && c.Provider.Proxy == "" {
		c.Provider.Proxy = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Backend = "redis"
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
}

// Validate runs the struct rules and the cross-section checks.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Provider.Name == "clickhouse" && (!c.ClickHouse.Enabled || c.ClickHouse.Host == "") {
		return fmt.Errorf("provider clickhouse requires clickhouse.enabled and clickhouse.host")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required for the redis backend")
	}
	if c.Fetch.BackoffBase < 0 || c.Fetch.Cooldown < 0 {
		return fmt.Errorf("fetch durations must not be negative")
	}
	return nil
}
