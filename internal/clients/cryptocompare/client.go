// Package cryptocompare provides a client for the CryptoCompare news API
package cryptocompare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/AmineZmarrou/cryptomarket/internal/common"
	"github.com/AmineZmarrou/cryptomarket/internal/interfaces"
	"github.com/AmineZmarrou/cryptomarket/internal/models"
)

const (
	DefaultBaseURL   = "https://min-api.cryptocompare.com/data/v2"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5
)

// Client implements the NewsClient interface
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new CryptoCompare client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("CryptoCompare API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("CryptoCompare API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// GetNews retrieves the most popular English-language articles
func (c *Client) GetNews(ctx context.Context, limit int) ([]*models.Article, error) {
	params := url.Values{}
	params.Set("lang", "EN")
	params.Set("sortOrder", "popular")

	var resp newsResponse
	if err := c.get(ctx, "/news/", params, &resp); err != nil {
		return nil, err
	}

	articles := make([]*models.Article, 0, len(resp.Data))
	for _, item := range resp.Data {
		if limit > 0 && len(articles) >= limit {
			break
		}
		articles = append(articles, &models.Article{
			ID:          item.ID,
			Title:       item.Title,
			Source:      item.SourceInfo.Name,
			PublishedAt: time.Unix(item.PublishedOn, 0).UTC(),
			Image:       normalizeImageURL(item.ImageURL),
			Content:     item.Body,
			URL:         item.URL,
		})
	}

	return articles, nil
}

// providerHost serves relative image paths in the news feed.
const providerHost = "https://www.cryptocompare.com"

// normalizeImageURL forces https on image links and resolves relative
// paths against the provider host. Returns "" when no image exists.
func normalizeImageURL(image string) string {
	image = strings.TrimSpace(image)
	if image == "" {
		return ""
	}

	if strings.HasPrefix(image, "http://") {
		return "https://" + strings.TrimPrefix(image, "http://")
	}
	if strings.HasPrefix(image, "https://") {
		return image
	}

	if !strings.HasPrefix(image, "/") {
		image = "/" + image
	}
	return providerHost + image
}

// newsResponse represents the /news/ response envelope
type newsResponse struct {
	Data []newsItem `json:"Data"`
}

type newsItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	PublishedOn int64  `json:"published_on"`
	ImageURL    string `json:"imageurl"`
	URL         string `json:"url"`
	Body        string `json:"body"`
	SourceInfo  struct {
		Name string `json:"name"`
	} `json:"source_info"`
}

// Ensure Client implements NewsClient
var _ interfaces.NewsClient = (*Client)(nil)
