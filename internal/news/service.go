package news

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fx-analyzer/internal/logger"
	"fx-analyzer/internal/types"
)

// Service turns keywords into a bounded list of headline texts, with caching
type Service struct {
	sources []HeadlineSource
	cache   Cache
	cfg     *ServiceConfig
}

// ServiceConfig configures the headline service
type ServiceConfig struct {
	MaxKeywords        int           // Keywords searched per fetch
	ArticlesPerKeyword int           // Articles kept per keyword
	MaxHeadlines       int           // Total headlines returned
	CacheDuration      time.Duration // How long to cache headline lists
	DefaultKeywords    []string      // Used when the caller passes none
	Enabled            bool          // Whether news retrieval is enabled
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxKeywords:        3,
		ArticlesPerKeyword: 3,
		MaxHeadlines:       10,
		CacheDuration:      15 * time.Minute,
		DefaultKeywords:    []string{"EURUSD", "ECB", "Federal Reserve", "interest rates", "forex"},
		Enabled:            true,
	}
}

// NewService creates a headline service. Sources are queried in order per
// keyword until one returns articles. A nil cache disables caching.
func NewService(cfg *ServiceConfig, cache Cache, sources ...HeadlineSource) *Service {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	return &Service{sources: sources, cache: cache, cfg: cfg}
}

// FetchDocuments returns up to MaxHeadlines headlines for the first
// MaxKeywords keywords. A keyword that fails is skipped; the call only fails
// when every keyword failed.
func (s *Service) FetchDocuments(ctx context.Context, keywords []string) ([]string, error) {
	if !s.cfg.Enabled || len(s.sources) == 0 {
		return []string{}, nil
	}

	if len(keywords) == 0 {
		keywords = s.cfg.DefaultKeywords
	}
	if len(keywords) > s.cfg.MaxKeywords {
		keywords = keywords[:s.cfg.MaxKeywords]
	}

	key := cacheKey(keywords)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			logger.Debug(ctx, "Using cached headlines", "keywords", keywords, "count", len(cached))
			return cached, nil
		}
	}

	headlines := []string{}
	failed := 0
	var lastErr error
	for _, kw := range keywords {
		articles, err := s.searchKeyword(ctx, kw)
		if err != nil {
			logger.Warn(ctx, "Error fetching news for keyword", "keyword", kw, "error", err)
			failed++
			lastErr = err
			continue
		}
		for _, a := range articles {
			if h := a.Headline(); h != "" {
				headlines = append(headlines, h)
			}
		}
	}

	if failed == len(keywords) && lastErr != nil {
		return nil, fmt.Errorf("%w: news: %v", types.ErrCollaboratorUnavailable, lastErr)
	}

	if len(headlines) > s.cfg.MaxHeadlines {
		headlines = headlines[:s.cfg.MaxHeadlines]
	}

	if s.cache != nil && len(headlines) > 0 {
		if err := s.cache.Set(ctx, key, headlines); err != nil {
			logger.Warn(ctx, "Failed to cache headlines", "error", err)
		}
	}

	logger.Info(ctx, "News fetched", "keywords", len(keywords), "headlines", len(headlines))
	return headlines, nil
}

func (s *Service) searchKeyword(ctx context.Context, keyword string) ([]Article, error) {
	var lastErr error
	for _, src := range s.sources {
		articles, err := src.Search(ctx, keyword, s.cfg.ArticlesPerKeyword)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", src.Name(), err)
			continue
		}
		if len(articles) > s.cfg.ArticlesPerKeyword {
			articles = articles[:s.cfg.ArticlesPerKeyword]
		}
		if len(articles) > 0 {
			return articles, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

// DefaultKeywords returns the configured fallback keyword list
func (s *Service) DefaultKeywords() []string {
	return append([]string(nil), s.cfg.DefaultKeywords...)
}

func cacheKey(keywords []string) string {
	return strings.ToLower(strings.Join(keywords, "|"))
}
