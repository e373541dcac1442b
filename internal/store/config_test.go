package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "mode: dry_run\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Mode != "DRY_RUN" || cfg.DataSource != "YAHOO" {
		t.Errorf("Unexpected mode/source: %s %s", cfg.Mode, cfg.DataSource)
	}
	if cfg.Server.Addr != ":8001" || cfg.PoolSize != 4 {
		t.Errorf("Unexpected server defaults: %s pool=%d", cfg.Server.Addr, cfg.PoolSize)
	}
	if cfg.News.MaxKeywords != 3 || cfg.News.ArticlesPerKeyword != 3 || cfg.News.MaxHeadlines != 10 {
		t.Errorf("Unexpected news limits: %+v", cfg.News)
	}
	if len(cfg.News.DefaultKeywords) != 5 || cfg.News.DefaultKeywords[0] != "EURUSD" {
		t.Errorf("Unexpected default keywords: %v", cfg.News.DefaultKeywords)
	}
	if cfg.Classifier.Provider != "LEXICON" || cfg.Classifier.BatchSize != 5 {
		t.Errorf("Unexpected classifier defaults: %+v", cfg.Classifier)
	}
	if cfg.Indicators.MAFast != 50 || cfg.Indicators.MASlow != 200 || cfg.Indicators.RSIPeriod != 14 {
		t.Errorf("Unexpected indicator defaults: %+v", cfg.Indicators)
	}
	if cfg.Combiner.TechnicalWeight != 0.7 || cfg.Combiner.SentimentWeight != 0.3 {
		t.Errorf("Unexpected combiner weights: %+v", cfg.Combiner)
	}
	if cfg.PriceTimeout().Seconds() != 15 || cfg.NewsTimeout().Seconds() != 10 || cfg.ClassifyTimeout().Seconds() != 20 {
		t.Errorf("Unexpected timeouts: %+v", cfg.Timeouts)
	}
}

func TestLoadConfigFull(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
mode: LIVE
data_source: kite
kite:
  tokens:
    USDINR: 412675
news:
  enabled: true
  sources: [newsapi, scrape]
  cache: redis
  redis_addr: localhost:6379
  pair_keywords:
    USDINR: [RBI, rupee]
classifier:
  provider: openai
  model: gpt-4o-mini
schedule:
  enabled: true
  cron: "*/15 * * * *"
  watchlist:
    - pair: USDINR
`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.DataSource != "KITE" || cfg.Kite.Tokens["USDINR"] != 412675 {
		t.Errorf("Unexpected kite config: %s %+v", cfg.DataSource, cfg.Kite)
	}
	if strings.Join(cfg.News.Sources, ",") != "NEWSAPI,SCRAPE" || cfg.News.Cache != "REDIS" {
		t.Errorf("Unexpected news config: %+v", cfg.News)
	}
	if cfg.News.PairKeywords["USDINR"][0] != "RBI" {
		t.Errorf("Unexpected pair keywords: %v", cfg.News.PairKeywords)
	}
	if cfg.Classifier.Provider != "OPENAI" {
		t.Errorf("Expected OPENAI provider, got %s", cfg.Classifier.Provider)
	}
	w := cfg.Schedule.Watchlist[0]
	if w.Pair != "USDINR" || w.Interval != "1h" || w.Period != "7d" {
		t.Errorf("Unexpected watch item defaults: %+v", w)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad mode", "mode: PAPER\n", "invalid mode"},
		{"bad source", "data_source: BLOOMBERG\n", "invalid data_source"},
		{"kite without tokens", "data_source: KITE\n", "kite.tokens"},
		{"bad news source", "news:\n  sources: [twitter]\n", "news.sources"},
		{"redis without addr", "news:\n  cache: redis\n", "redis_addr"},
		{"bad provider", "classifier:\n  provider: finbert\n", "classifier.provider"},
		{"weights over one", "combiner:\n  technical_weight: 0.8\n  sentiment_weight: 0.5\n", "combiner weights"},
		{"ma order", "indicators:\n  ma_fast: 200\n  ma_slow: 50\n", "ma_fast"},
		{"bad cron", "schedule:\n  enabled: true\n  cron: every hour\n  watchlist: [{pair: EURUSD=X}]\n", "schedule.cron"},
		{"empty watchlist", "schedule:\n  enabled: true\n", "watchlist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
