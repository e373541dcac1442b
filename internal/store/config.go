package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type WatchItem struct {
	Pair     string `yaml:"pair"`
	Interval string `yaml:"interval"`
	Period   string `yaml:"period"`
}

type Config struct {
	Mode       string `yaml:"mode"`
	DataSource string `yaml:"data_source"`
	PoolSize   int    `yaml:"pool_size"`
	Server     struct {
		Addr           string   `yaml:"addr"`
		RateLimitRPS   float64  `yaml:"rate_limit_rps"`
		RateLimitBurst int      `yaml:"rate_limit_burst"`
		RequestTimeout int      `yaml:"request_timeout_seconds"`
		CORSOrigins    []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Yahoo struct {
		BaseURL      string  `yaml:"base_url"`
		RateLimitRPS float64 `yaml:"rate_limit_rps"`
	} `yaml:"yahoo"`
	Kite struct {
		APIKeyEnv      string         `yaml:"api_key_env"`
		AccessTokenEnv string         `yaml:"access_token_env"`
		Tokens         map[string]int `yaml:"tokens"`
	} `yaml:"kite"`
	News struct {
		Enabled            bool                `yaml:"enabled"`
		Sources            []string            `yaml:"sources"`
		NewsAPIKeyEnv      string              `yaml:"newsapi_key_env"`
		NewsAPIURL         string              `yaml:"newsapi_url"`
		LookbackHours      int                 `yaml:"lookback_hours"`
		MaxKeywords        int                 `yaml:"max_keywords"`
		ArticlesPerKeyword int                 `yaml:"articles_per_keyword"`
		MaxHeadlines       int                 `yaml:"max_headlines"`
		DefaultKeywords    []string            `yaml:"default_keywords"`
		PairKeywords       map[string][]string `yaml:"pair_keywords"`
		Cache              string              `yaml:"cache"`
		CacheMinutes       int                 `yaml:"cache_minutes"`
		RedisAddr          string              `yaml:"redis_addr"`
		ScrapeTimeout      int                 `yaml:"scrape_timeout_seconds"`
	} `yaml:"news"`
	Classifier struct {
		Provider     string  `yaml:"provider"`
		Model        string  `yaml:"model"`
		Endpoint     string  `yaml:"endpoint"`
		BatchSize    int     `yaml:"batch_size"`
		RateLimitRPS float64 `yaml:"rate_limit_rps"`
		Timeout      int     `yaml:"timeout_seconds"`
	} `yaml:"classifier"`
	Indicators struct {
		RSIPeriod  int     `yaml:"rsi_period"`
		MACDFast   int     `yaml:"macd_fast"`
		MACDSlow   int     `yaml:"macd_slow"`
		MACDSignal int     `yaml:"macd_signal"`
		MAFast     int     `yaml:"ma_fast"`
		MASlow     int     `yaml:"ma_slow"`
		BBPeriod   int     `yaml:"bb_period"`
		BBStdDev   float64 `yaml:"bb_stddev"`
	} `yaml:"indicators"`
	Combiner struct {
		TechnicalWeight float64 `yaml:"technical_weight"`
		SentimentWeight float64 `yaml:"sentiment_weight"`
	} `yaml:"combiner"`
	Timeouts struct {
		PriceSeconds    int `yaml:"price_seconds"`
		NewsSeconds     int `yaml:"news_seconds"`
		ClassifySeconds int `yaml:"classify_seconds"`
	} `yaml:"timeouts"`
	Chart struct {
		Enabled bool `yaml:"enabled"`
		Width   int  `yaml:"width"`
		Height  int  `yaml:"height"`
	} `yaml:"chart"`
	Recorder struct {
		DBPath    string `yaml:"db_path"`
		QueueSize int    `yaml:"queue_size"`
	} `yaml:"recorder"`
	Schedule struct {
		Enabled   bool        `yaml:"enabled"`
		Cron      string      `yaml:"cron"`
		Watchlist []WatchItem `yaml:"watchlist"`
	} `yaml:"schedule"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	switch c.DataSource {
	case "YAHOO", "KITE", "STATIC":
	default:
		return fmt.Errorf("invalid data_source '%s': must be 'YAHOO', 'KITE' or 'STATIC'", c.DataSource)
	}
	if c.DataSource == "KITE" && len(c.Kite.Tokens) == 0 {
		return errors.New("kite.tokens cannot be empty when data_source is 'KITE'")
	}
	for _, s := range c.News.Sources {
		if s != "NEWSAPI" && s != "SCRAPE" {
			return fmt.Errorf("news.sources: unknown source '%s': must be 'NEWSAPI' or 'SCRAPE'", s)
		}
	}
	switch c.News.Cache {
	case "NONE", "MEMORY":
	case "REDIS":
		if c.News.RedisAddr == "" {
			return errors.New("news.redis_addr is required when news.cache is 'REDIS'")
		}
	default:
		return fmt.Errorf("news.cache must be 'NONE', 'MEMORY' or 'REDIS', got '%s'", c.News.Cache)
	}
	switch c.Classifier.Provider {
	case "LEXICON", "OPENAI", "CLAUDE":
	default:
		return fmt.Errorf("classifier.provider must be 'LEXICON', 'OPENAI' or 'CLAUDE', got '%s'", c.Classifier.Provider)
	}
	if c.Combiner.TechnicalWeight < 0 || c.Combiner.SentimentWeight < 0 ||
		c.Combiner.TechnicalWeight+c.Combiner.SentimentWeight > 1.0001 {
		return fmt.Errorf("combiner weights must be non-negative and sum to at most 1, got %.2f + %.2f",
			c.Combiner.TechnicalWeight, c.Combiner.SentimentWeight)
	}
	if c.Indicators.MAFast >= c.Indicators.MASlow {
		return fmt.Errorf("indicators.ma_fast (%d) must be below ma_slow (%d)", c.Indicators.MAFast, c.Indicators.MASlow)
	}
	if c.Indicators.MACDFast >= c.Indicators.MACDSlow {
		return fmt.Errorf("indicators.macd_fast (%d) must be below macd_slow (%d)", c.Indicators.MACDFast, c.Indicators.MACDSlow)
	}
	if c.Schedule.Enabled {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron '%s': %w", c.Schedule.Cron, err)
		}
		if len(c.Schedule.Watchlist) == 0 {
			return errors.New("schedule.watchlist cannot be empty when the schedule is enabled")
		}
	}
	return nil
}

// PriceTimeout, NewsTimeout and ClassifyTimeout convert the configured seconds.
func (c *Config) PriceTimeout() time.Duration {
	return time.Duration(c.Timeouts.PriceSeconds) * time.Second
}

func (c *Config) NewsTimeout() time.Duration {
	return time.Duration(c.Timeouts.NewsSeconds) * time.Second
}

func (c *Config) ClassifyTimeout() time.Duration {
	return time.Duration(c.Timeouts.ClassifySeconds) * time.Second
}

// Default returns a configuration with every default applied. It is valid
// on its own and runs fully offline.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	c.Mode = strings.ToUpper(c.Mode)
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	c.DataSource = strings.ToUpper(c.DataSource)
	if c.DataSource == "" {
		c.DataSource = "YAHOO"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 4
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8001"
	}
	if c.Server.RateLimitRPS == 0 {
		c.Server.RateLimitRPS = 5
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = 10
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 60
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}

	if c.Yahoo.RateLimitRPS == 0 {
		c.Yahoo.RateLimitRPS = 2
	}
	if c.Kite.APIKeyEnv == "" {
		c.Kite.APIKeyEnv = "KITE_API_KEY"
	}
	if c.Kite.AccessTokenEnv == "" {
		c.Kite.AccessTokenEnv = "KITE_ACCESS_TOKEN"
	}

	for i, s := range c.News.Sources {
		c.News.Sources[i] = strings.ToUpper(s)
	}
	if c.News.NewsAPIKeyEnv == "" {
		c.News.NewsAPIKeyEnv = "NEWS_API_KEY"
	}
	if c.News.LookbackHours == 0 {
		c.News.LookbackHours = 24
	}
	if c.News.MaxKeywords == 0 {
		c.News.MaxKeywords = 3
	}
	if c.News.ArticlesPerKeyword == 0 {
		c.News.ArticlesPerKeyword = 3
	}
	if c.News.MaxHeadlines == 0 {
		c.News.MaxHeadlines = 10
	}
	if len(c.News.DefaultKeywords) == 0 {
		c.News.DefaultKeywords = []string{"EURUSD", "ECB", "Federal Reserve", "interest rates", "forex"}
	}
	c.News.Cache = strings.ToUpper(c.News.Cache)
	if c.News.Cache == "" {
		c.News.Cache = "MEMORY"
	}
	if c.News.CacheMinutes == 0 {
		c.News.CacheMinutes = 15
	}
	if c.News.ScrapeTimeout == 0 {
		c.News.ScrapeTimeout = 10
	}

	c.Classifier.Provider = strings.ToUpper(c.Classifier.Provider)
	if c.Classifier.Provider == "" {
		c.Classifier.Provider = "LEXICON"
	}
	if c.Classifier.BatchSize == 0 {
		c.Classifier.BatchSize = 5
	}
	if c.Classifier.RateLimitRPS == 0 {
		c.Classifier.RateLimitRPS = 1
	}
	if c.Classifier.Timeout == 0 {
		c.Classifier.Timeout = 30
	}

	if c.Indicators.RSIPeriod == 0 {
		c.Indicators.RSIPeriod = 14
	}
	if c.Indicators.MACDFast == 0 {
		c.Indicators.MACDFast = 12
	}
	if c.Indicators.MACDSlow == 0 {
		c.Indicators.MACDSlow = 26
	}
	if c.Indicators.MACDSignal == 0 {
		c.Indicators.MACDSignal = 9
	}
	if c.Indicators.MAFast == 0 {
		c.Indicators.MAFast = 50
	}
	if c.Indicators.MASlow == 0 {
		c.Indicators.MASlow = 200
	}
	if c.Indicators.BBPeriod == 0 {
		c.Indicators.BBPeriod = 20
	}
	if c.Indicators.BBStdDev == 0 {
		c.Indicators.BBStdDev = 2
	}

	if c.Combiner.TechnicalWeight == 0 && c.Combiner.SentimentWeight == 0 {
		c.Combiner.TechnicalWeight = 0.7
		c.Combiner.SentimentWeight = 0.3
	}

	if c.Timeouts.PriceSeconds == 0 {
		c.Timeouts.PriceSeconds = 15
	}
	if c.Timeouts.NewsSeconds == 0 {
		c.Timeouts.NewsSeconds = 10
	}
	if c.Timeouts.ClassifySeconds == 0 {
		c.Timeouts.ClassifySeconds = 20
	}

	if c.Chart.Width == 0 {
		c.Chart.Width = 1200
	}
	if c.Chart.Height == 0 {
		c.Chart.Height = 600
	}
	if c.Recorder.QueueSize == 0 {
		c.Recorder.QueueSize = 64
	}

	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 * * * *"
	}
	for i := range c.Schedule.Watchlist {
		w := &c.Schedule.Watchlist[i]
		if w.Interval == "" {
			w.Interval = "1h"
		}
		if w.Period == "" {
			w.Period = "7d"
		}
	}
}
