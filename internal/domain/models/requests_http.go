package models

// Requests for analytics HTTP endpoints. Defined in domain for consistency and reuse.
// Tickers fields are comma separated lists; Format selects json or csv output.

type HoldingsRequest struct {
	ETF    string `query:"etf" json:"etf" validate:"omitempty,tickers"`
	Format string `query:"format" json:"format" default:"json" validate:"oneof=json csv"`
}

type ReturnsRequest struct {
	ETF        string `query:"etf" json:"etf" validate:"omitempty,tickers"`
	Tickers    string `query:"tickers" json:"tickers" validate:"omitempty,tickers"`
	Benchmark  string `query:"benchmark" json:"benchmark" validate:"omitempty,tickers"`
	MaxRetries string `query:"max_retries" json:"max_retries" validate:"omitempty,oneof=0 1 2 3 4 5 6 7 8 9 10"`
	Backoff    string `query:"backoff" json:"backoff" validate:"omitempty,backoff"`
	Format     string `query:"format" json:"format" default:"json" validate:"oneof=json csv"`
}

type BreadthRequest struct {
	ETF        string `query:"etf" json:"etf" validate:"omitempty,tickers"`
	Tickers    string `query:"tickers" json:"tickers" validate:"omitempty,tickers"`
	Start      string `query:"start" json:"start" validate:"omitempty,datetime=2006-01-02"`
	MaxRetries string `query:"max_retries" json:"max_retries" validate:"omitempty,oneof=0 1 2 3 4 5 6 7 8 9 10"`
	Backoff    string `query:"backoff" json:"backoff" validate:"omitempty,backoff"`
	Format     string `query:"format" json:"format" default:"json" validate:"oneof=json csv"`
}

type PerformanceRequest struct {
	ETF        string `query:"etf" json:"etf" validate:"omitempty,tickers"`
	Tickers    string `query:"tickers" json:"tickers" validate:"omitempty,tickers"`
	MaxRetries string `query:"max_retries" json:"max_retries" validate:"omitempty,oneof=0 1 2 3 4 5 6 7 8 9 10"`
	Backoff    string `query:"backoff" json:"backoff" validate:"omitempty,backoff"`
	Format     string `query:"format" json:"format" default:"json" validate:"oneof=json csv"`
}

type SeasonalityRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"required,tickers"`
	Format string `query:"format" json:"format" default:"json" validate:"oneof=json csv"`
}

type SimilarityRequest struct {
	Target   string `query:"target" json:"target" validate:"required,tickers"`
	Market   string `query:"market" json:"market" validate:"omitempty,tickers"`
	ETF      string `query:"etf" json:"etf" validate:"omitempty,tickers"`
	Tickers  string `query:"tickers" json:"tickers" validate:"omitempty,tickers"`
	Window   int    `query:"window" json:"window" default:"30" validate:"gte=2,lte=250"`
	Lookback int    `query:"lookback" json:"lookback" default:"250" validate:"gte=30,lte=2000"`
	Limit    int    `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=100"`
	Format   string `query:"format" json:"format" default:"json" validate:"oneof=json csv"`
}

type FactorRequest struct {
	Ticker   string `query:"ticker" json:"ticker" validate:"required,tickers"`
	Factors  string `query:"factors" json:"factors" validate:"omitempty,tickers"`
	Window   int    `query:"window" json:"window" default:"60" validate:"gte=10,lte=180"`
	Lookback int    `query:"lookback" json:"lookback" default:"365" validate:"gte=90,lte=1000"`
	Format   string `query:"format" json:"format" default:"json" validate:"oneof=json csv"`
}

type DominanceRequest struct {
	ETF      string `query:"etf" json:"etf" validate:"omitempty,tickers"`
	Tickers  string `query:"tickers" json:"tickers" validate:"omitempty,tickers"`
	Lookback int    `query:"lookback" json:"lookback" default:"90" validate:"gte=30,lte=365"`
	Top      int    `query:"top" json:"top" default:"10" validate:"gte=3,lte=50"`
	Format   string `query:"format" json:"format" default:"json" validate:"oneof=json csv"`
}

type ComplacencyRequest struct {
	Start      string  `query:"start" json:"start" validate:"omitempty,datetime=2006-01-02"`
	Window     int     `query:"window" json:"window" default:"50" validate:"gte=2,lte=500"`
	Multiplier float64 `query:"multiplier" json:"multiplier" default:"1.67" validate:"gt=0,lte=10"`
	Format     string  `query:"format" json:"format" default:"json" validate:"oneof=json csv"`
}

type RotationRequest struct {
	Momentum int    `query:"momentum" json:"momentum" default:"10" validate:"gte=5,lte=30"`
	Strength int    `query:"strength" json:"strength" default:"30" validate:"gte=10,lte=60"`
	History  int    `query:"history" json:"history" default:"30" validate:"gte=10,lte=90"`
	Format   string `query:"format" json:"format" default:"json" validate:"oneof=json csv"`
}

type MovesRequest struct {
	Ticker string `query:"ticker" json:"ticker" default:"^IXIC" validate:"required,tickers"`
	N      int    `query:"n" json:"n" default:"5" validate:"gte=1,lte=20"`
	Losses bool   `query:"losses" json:"losses"`
	Start  string `query:"start" json:"start" validate:"omitempty,datetime=2006-01-02"`
	Format string `query:"format" json:"format" default:"json" validate:"oneof=json csv"`
}

type OverlayRequest struct {
	Ticker    string  `query:"ticker" json:"ticker" default:"^GSPC" validate:"required,tickers"`
	Window    int     `query:"window" json:"window" default:"151" validate:"gte=30,lte=500"`
	Threshold float64 `query:"threshold" json:"threshold" default:"0.5" validate:"gte=0.1,lte=0.99"`
	Limit     int     `query:"limit" json:"limit" default:"7" validate:"gte=1,lte=50"`
	Format    string  `query:"format" json:"format" default:"json" validate:"oneof=json csv"`
}
