package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nostrlabs/nostroracle/src/types"
	"github.com/nostrlabs/nostroracle/src/webclient"
)

const (
	endpoint = "https://newsapi.org/v2/everything"
	pageSize = 5
)

// Client queries the NewsAPI "everything" index for claim evidence.
type Client struct {
	apiKey     string
	httpClient *http.Client
}

func NewClient(apiKey string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: webclient.NewDefault(timeout),
	}
}

// Search returns up to pageSize articles matching the query, newest first.
func (c *Client) Search(ctx context.Context, query string) ([]types.Article, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("newsapi: API key not configured")
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", fmt.Sprint(pageSize))
	q.Set("apiKey", c.apiKey)

	var resp struct {
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

	if err := webclient.GetJSON(ctx, c.httpClient, endpoint+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("newsapi: %s", resp.Message)
	}

	articles := make([]types.Article, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		published, _ := time.Parse(time.RFC3339, a.PublishedAt)
		articles = append(articles, types.Article{
			Title:       a.Title,
			SourceName:  a.Source.Name,
			URL:         a.URL,
			Description: a.Description,
			PublishedAt: published,
		})
	}
	return articles, nil
}
