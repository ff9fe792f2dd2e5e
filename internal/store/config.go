package store

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Universe struct {
		Benchmark string   `yaml:"benchmark" validate:"required"`
		Tickers   []string `yaml:"tickers" validate:"required,min=1,dive,required"`
	} `yaml:"universe"`
	MarketData struct {
		Source            string        `yaml:"source" validate:"oneof=STATIC YAHOO KITE"`
		Period            string        `yaml:"period" validate:"required"`
		Interval          string        `yaml:"interval" validate:"required"`
		Timeout           time.Duration `yaml:"timeout"`
		RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
		CacheTTL          time.Duration `yaml:"cache_ttl"`
		Seed              int64         `yaml:"seed"`
		Kite              KiteConfig    `yaml:"kite"`
	} `yaml:"market_data"`
	Analytics struct {
		VolatilityWindow int   `yaml:"volatility_window" validate:"gte=0"`
		MomentumWindow   int   `yaml:"momentum_window" validate:"gte=0"`
		Annualize        *bool `yaml:"annualize"`
	} `yaml:"analytics"`
	News struct {
		Provider          string        `yaml:"provider" validate:"oneof=MARKETAUX SCRAPER NONE"`
		BaseURL           string        `yaml:"base_url"`
		Limit             int           `yaml:"limit" validate:"gte=1,lte=50"`
		LookbackDays      int           `yaml:"lookback_days" validate:"gte=1"`
		Language          string        `yaml:"language"`
		ScrapeFallback    bool          `yaml:"scrape_fallback"`
		CacheTTL          time.Duration `yaml:"cache_ttl"`
		Timeout           time.Duration `yaml:"timeout"`
		RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
		APIKey            string        `yaml:"-"`
	} `yaml:"news"`
	LLM    LLMConfig `yaml:"llm"`
	Server struct {
		Addr           string   `yaml:"addr" validate:"required"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
		DigestCron  string `yaml:"digest_cron"`
	} `yaml:"schedule"`
	Transcript struct {
		Enabled       bool   `yaml:"enabled"`
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days" validate:"gte=0"`
	} `yaml:"transcript"`
	Digest struct {
		Dir string `yaml:"dir"`
	} `yaml:"digest"`
}

// KiteConfig maps tickers to Kite instrument tokens. Credentials come from the environment.
type KiteConfig struct {
	Instruments map[string]int `yaml:"instruments"`
	APIKey      string         `yaml:"-"`
	AccessToken string         `yaml:"-"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider" validate:"oneof=OPENAI CLAUDE GEMINI NONE"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens" validate:"gte=1"`
	Temperature float32       `yaml:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `yaml:"timeout"`
	Language    string        `yaml:"language"`
	APIKey      string        `yaml:"-"`
}

// Tickers is the benchmark followed by the rest of the universe, without duplicates.
func (c *Config) Tickers() []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(c.Universe.Tickers)+1)
	for _, t := range append([]string{c.Universe.Benchmark}, c.Universe.Tickers...) {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// AnnualizeVolatility defaults to true when unset.
func (c *Config) AnnualizeVolatility() bool {
	return c.Analytics.Annualize == nil || *c.Analytics.Annualize
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.MarketData.Source == "KITE" {
		for _, t := range c.Tickers() {
			if _, ok := c.MarketData.Kite.Instruments[t]; !ok {
				return fmt.Errorf("market_data.kite.instruments has no token for '%s'", t)
			}
		}
	}
	if c.Analytics.VolatilityWindow == 1 {
		return errors.New("analytics.volatility_window must be at least 2")
	}
	return nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Universe.Benchmark == "" {
		c.Universe.Benchmark = "SPY"
	}
	if len(c.Universe.Tickers) == 0 {
		c.Universe.Tickers = []string{"AAPL", "MSFT", "NVDA", "GOOGL", "AMZN", "META", "TSLA"}
	}

	if c.MarketData.Source == "" {
		c.MarketData.Source = "STATIC"
	}
	if c.MarketData.Period == "" {
		c.MarketData.Period = "1y"
	}
	if c.MarketData.Interval == "" {
		c.MarketData.Interval = "1d"
	}
	if c.MarketData.Timeout == 0 {
		c.MarketData.Timeout = 15 * time.Second
	}
	if c.MarketData.RequestsPerSecond == 0 {
		c.MarketData.RequestsPerSecond = 2
	}
	if c.MarketData.CacheTTL == 0 {
		c.MarketData.CacheTTL = 15 * time.Minute
	}
	if c.MarketData.Seed == 0 {
		c.MarketData.Seed = 42
	}

	if c.Analytics.VolatilityWindow == 0 {
		c.Analytics.VolatilityWindow = 20
	}
	if c.Analytics.MomentumWindow == 0 {
		c.Analytics.MomentumWindow = 10
	}

	if c.News.Provider == "" {
		c.News.Provider = "MARKETAUX"
	}
	if c.News.BaseURL == "" {
		c.News.BaseURL = "https://api.marketaux.com"
	}
	if c.News.Limit == 0 {
		c.News.Limit = 5
	}
	if c.News.LookbackDays == 0 {
		c.News.LookbackDays = 3
	}
	if c.News.Language == "" {
		c.News.Language = "en"
	}
	if c.News.CacheTTL == 0 {
		c.News.CacheTTL = 10 * time.Minute
	}
	if c.News.Timeout == 0 {
		c.News.Timeout = 15 * time.Second
	}
	if c.News.RequestsPerSecond == 0 {
		c.News.RequestsPerSecond = 1
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "OPENAI"
	}
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case "CLAUDE":
			c.LLM.Model = "claude-3-5-haiku-latest"
		case "GEMINI":
			c.LLM.Model = "gemini-2.0-flash"
		default:
			c.LLM.Model = "gpt-4.1-mini"
		}
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 600
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	if c.LLM.Language == "" {
		c.LLM.Language = "English"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}

	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "0 */15 * * * 1-5"
	}
	if c.Schedule.DigestCron == "" {
		c.Schedule.DigestCron = "0 30 16 * * 1-5"
	}

	if c.Transcript.Dir == "" {
		c.Transcript.Dir = "logs"
	}
	if c.Transcript.RetentionDays == 0 {
		c.Transcript.RetentionDays = 7
	}
	if c.Digest.Dir == "" {
		c.Digest.Dir = "logs/digest"
	}
}

// applyEnv applies operational overrides from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("MARKET_DATA_SOURCE"); v != "" {
		c.MarketData.Source = strings.ToUpper(v)
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = strings.ToUpper(v)
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("NEWS_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.News.Limit = n
		}
	}
}

// loadSecrets reads credentials; it runs after defaults so the LLM key
// matches the effective provider.
func (c *Config) loadSecrets() {
	c.News.APIKey = os.Getenv("MARKETAUX_API_KEY")
	c.MarketData.Kite.APIKey = os.Getenv("KITE_API_KEY")
	c.MarketData.Kite.AccessToken = os.Getenv("KITE_ACCESS_TOKEN")

	switch c.LLM.Provider {
	case "OPENAI":
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	case "CLAUDE":
		c.LLM.APIKey = firstEnv("CLAUDE_API_KEY", "ANTHROPIC_API_KEY")
	case "GEMINI":
		c.LLM.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// LoadConfig reads path (a missing file means all defaults), applies
// environment overrides and defaults, then validates.
func LoadConfig(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(b) > 0 {
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	c.applyEnv()
	c.applyDefaults()
	c.loadSecrets()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
