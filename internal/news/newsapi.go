package news

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"fx-analyzer/internal/api"
	"fx-analyzer/internal/types"
)

const defaultNewsAPIURL = "https://newsapi.org/v2/everything"

// Article is one news item as returned by a headline source.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
}

// Headline formats an article as "title - description", or just the title.
func (a Article) Headline() string {
	switch {
	case a.Title != "" && a.Description != "":
		return a.Title + " - " + a.Description
	default:
		return a.Title
	}
}

// HeadlineSource searches one keyword and returns at most limit articles.
type HeadlineSource interface {
	Search(ctx context.Context, keyword string, limit int) ([]Article, error)
	Name() string
}

// NewsAPISource queries the newsapi.org "everything" endpoint for articles
// published within the lookback window.
type NewsAPISource struct {
	client   *api.Client
	apiKey   string
	endpoint string
	lookback time.Duration
	now      func() time.Time
}

func NewNewsAPISource(client *api.Client, apiKey, endpoint string, lookback time.Duration) *NewsAPISource {
	if endpoint == "" {
		endpoint = defaultNewsAPIURL
	}
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	if client == nil {
		client = api.NewClient(api.WithService("newsapi"))
	}
	return &NewsAPISource{
		client:   client,
		apiKey:   apiKey,
		endpoint: endpoint,
		lookback: lookback,
		now:      time.Now,
	}
}

func (n *NewsAPISource) Name() string { return "newsapi" }

func (n *NewsAPISource) Search(ctx context.Context, keyword string, limit int) ([]Article, error) {
	if n.apiKey == "" {
		return nil, errors.New("NEWS_API_KEY missing")
	}

	q := url.Values{}
	q.Set("q", keyword)
	q.Set("language", "en")
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", strconv.Itoa(max(limit, 5)))
	q.Set("from", n.now().Add(-n.lookback).Format("2006-01-02"))

	resp, err := n.client.GET(ctx, n.endpoint+"?"+q.Encode(), map[string]string{
		"X-Api-Key": n.apiKey,
	})
	if err != nil {
		var se *api.StatusError
		if errors.As(err, &se) && se.Unauthorized() {
			return nil, fmt.Errorf("%w: newsapi rejected the API key: %w", types.ErrCollaboratorUnavailable, err)
		}
		return nil, fmt.Errorf("%w: newsapi %q: %w", types.ErrCollaboratorUnavailable, keyword, err)
	}

	var r struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Articles []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			URL         string `json:"url"`
			PublishedAt string `json:"publishedAt"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}
	if err := resp.ParseJSON(&r); err != nil {
		return nil, err
	}
	if r.Status != "" && r.Status != "ok" {
		return nil, fmt.Errorf("newsapi %q: %s", keyword, r.Message)
	}

	out := make([]Article, 0, limit)
	for _, a := range r.Articles {
		if len(out) >= limit {
			break
		}
		if a.Title == "" {
			continue
		}
		out = append(out, Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}
	return out, nil
}
