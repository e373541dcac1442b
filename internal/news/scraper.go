package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"fx-analyzer/internal/logger"
)

const scraperUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ScrapeSource describes a searchable news site
type ScrapeSource struct {
	Name       string
	BaseURL    string
	SearchPath string // e.g. "/search?q={query}"
	Selectors  ArticleSelectors
}

// ArticleSelectors defines CSS selectors for extracting article data
type ArticleSelectors struct {
	ArticleContainer string
	Title            string
	URL              string
	Description      string
	PublishedAt      string
}

// Scraper collects headlines from search result pages. Sources are tried in
// order until one yields articles.
type Scraper struct {
	sources []ScrapeSource
	timeout time.Duration
}

// NewScraper uses DefaultScrapeSources when sources is empty
func NewScraper(timeout time.Duration, sources ...ScrapeSource) *Scraper {
	if len(sources) == 0 {
		sources = DefaultScrapeSources()
	}
	return &Scraper{sources: sources, timeout: timeout}
}

// DefaultScrapeSources returns the forex news sites scraped when no API key
// is configured
func DefaultScrapeSources() []ScrapeSource {
	return []ScrapeSource{
		{
			Name:       "GoogleNews",
			BaseURL:    "https://news.google.com",
			SearchPath: "/search?q={query}&hl=en-US&gl=US&ceid=US:en",
			Selectors: ArticleSelectors{
				ArticleContainer: "article",
				Title:            "h3, h4, a.JtKRv",
				URL:              "a",
				PublishedAt:      "time",
			},
		},
		{
			Name:       "FXStreet",
			BaseURL:    "https://www.fxstreet.com",
			SearchPath: "/search?q={query}",
			Selectors: ArticleSelectors{
				ArticleContainer: "article, div.fxs_headline_tiny",
				Title:            "h3 a, h4 a, a",
				URL:              "h3 a, h4 a, a",
				Description:      "p",
				PublishedAt:      "time",
			},
		},
	}
}

func (s *Scraper) Name() string { return "scraper" }

// Search returns up to limit articles for keyword from the first source that
// has any. Per-source failures are logged and skipped.
func (s *Scraper) Search(ctx context.Context, keyword string, limit int) ([]Article, error) {
	var lastErr error
	for _, source := range s.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		articles, err := s.scrapeSource(ctx, source, keyword, limit)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to scrape source", err, "source", source.Name, "keyword", keyword)
			lastErr = err
			continue
		}
		if len(articles) > 0 {
			return articles, nil
		}
	}
	return nil, lastErr
}

// scrapeSource scrapes articles from a single news source
func (s *Scraper) scrapeSource(ctx context.Context, source ScrapeSource, keyword string, limit int) ([]Article, error) {
	articles := []Article{}

	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(source.BaseURL)),
		colly.MaxDepth(1),
		colly.Async(false),
	)
	if s.timeout > 0 {
		c.SetRequestTimeout(s.timeout)
	}

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Headers.Set("User-Agent", scraperUserAgent)
	})

	c.OnHTML(source.Selectors.ArticleContainer, func(e *colly.HTMLElement) {
		if len(articles) >= limit {
			return
		}
		a, ok := extractArticle(e.DOM, source, e.Request.AbsoluteURL)
		if !ok {
			return
		}
		articles = append(articles, a)
	})

	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = fmt.Errorf("%s returned %d: %w", source.Name, r.StatusCode, err)
	})

	searchURL := source.BaseURL + strings.ReplaceAll(source.SearchPath, "{query}", url.QueryEscape(keyword))
	if err := c.Visit(searchURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", searchURL, err)
	}
	c.Wait()

	if scrapeErr != nil && len(articles) == 0 {
		return nil, scrapeErr
	}
	return articles, nil
}

// extractArticle reads one result block. Relative links are resolved
// against the page URL.
func extractArticle(sel *goquery.Selection, source ScrapeSource, resolve func(string) string) (Article, bool) {
	title := firstText(sel, source.Selectors.Title)
	if title == "" {
		return Article{}, false
	}

	link, _ := sel.Find(source.Selectors.URL).First().Attr("href")
	if link != "" && resolve != nil {
		link = resolve(link)
	}

	published := ""
	if source.Selectors.PublishedAt != "" {
		t := sel.Find(source.Selectors.PublishedAt).First()
		if dt, ok := t.Attr("datetime"); ok {
			published = dt
		} else {
			published = strings.TrimSpace(t.Text())
		}
	}

	return Article{
		Title:       title,
		Description: firstText(sel, source.Selectors.Description),
		URL:         link,
		Source:      source.Name,
		PublishedAt: published,
	}, true
}

func firstText(sel *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.Join(strings.Fields(sel.Find(selector).First().Text()), " ")
}

// getDomain extracts domain from URL
func getDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
