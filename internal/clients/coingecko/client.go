// Package coingecko provides a client for the CoinGecko API
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/AmineZmarrou/cryptomarket/internal/common"
	"github.com/AmineZmarrou/cryptomarket/internal/interfaces"
	"github.com/AmineZmarrou/cryptomarket/internal/models"
)

const (
	DefaultBaseURL   = "https://api.coingecko.com/api/v3"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements the MarketDataClient interface
type Client struct {
	baseURL    string
	apiKey     string
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

// WithAPIKey sets the demo API key sent with each request
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
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

// NewClient creates a new CoinGecko client
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
	return fmt.Sprintf("CoinGecko API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
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
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("CoinGecko API request")

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

// GetMarketAssets retrieves the top assets by market cap in USD
func (c *Client) GetMarketAssets(ctx context.Context, limit int) ([]*models.Asset, error) {
	if limit <= 0 {
		limit = 20
	}

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(limit))
	params.Set("page", "1")
	params.Set("price_change_percentage", "24h")

	var resp []marketAssetResponse
	if err := c.get(ctx, "/coins/markets", params, &resp); err != nil {
		return nil, err
	}

	assets := make([]*models.Asset, len(resp))
	for i, a := range resp {
		assets[i] = &models.Asset{
			ID:               a.ID,
			Symbol:           a.Symbol,
			Name:             a.Name,
			Image:            a.Image,
			CurrentPrice:     a.CurrentPrice,
			MarketCapRank:    a.MarketCapRank,
			ChangePercent24H: a.PriceChangePercentage24H,
		}
	}

	return assets, nil
}

// marketAssetResponse represents one entry of the /coins/markets response
type marketAssetResponse struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	Image                    string  `json:"image"`
	CurrentPrice             float64 `json:"current_price"`
	MarketCapRank            int     `json:"market_cap_rank"`
	PriceChangePercentage24H float64 `json:"price_change_percentage_24h"`
}

// GetAssetDetail retrieves extended data for a single asset. Any
// failure, whether an unknown asset, a provider rejection (rate limits
// included) or a transport error, yields nil with no error so callers
// can degrade gracefully. Callers cannot tell the causes apart.
func (c *Client) GetAssetDetail(ctx context.Context, assetID string) (*models.AssetDetail, error) {
	params := url.Values{}
	params.Set("localization", "false")
	params.Set("tickers", "false")
	params.Set("community_data", "false")
	params.Set("developer_data", "false")

	path := fmt.Sprintf("/coins/%s", url.PathEscape(assetID))

	var resp assetDetailResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn().Int("status", apiErr.StatusCode).Str("asset", assetID).Msg("Asset detail unavailable")
		} else {
			c.logger.Warn().Err(err).Str("asset", assetID).Msg("Asset detail unavailable")
		}
		return nil, nil
	}

	return &models.AssetDetail{
		ID:               resp.ID,
		Symbol:           resp.Symbol,
		Name:             resp.Name,
		Image:            resp.Image.Small,
		PriceUSD:         resp.MarketData.CurrentPrice["usd"],
		ChangePercent24H: resp.MarketData.PriceChangePercentage24H,
		MarketCapUSD:     resp.MarketData.MarketCap["usd"],
		VolumeUSD:        resp.MarketData.TotalVolume["usd"],
	}, nil
}

// assetDetailResponse represents the /coins/{id} response
type assetDetailResponse struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Image  struct {
		Small string `json:"small"`
	} `json:"image"`
	MarketData struct {
		CurrentPrice             map[string]float64 `json:"current_price"`
		MarketCap                map[string]float64 `json:"market_cap"`
		TotalVolume              map[string]float64 `json:"total_volume"`
		PriceChangePercentage24H float64            `json:"price_change_percentage_24h"`
	} `json:"market_data"`
}

// GetMarketChart retrieves historical prices for the past days
func (c *Client) GetMarketChart(ctx context.Context, assetID string, days int) ([]models.PricePoint, error) {
	if days <= 0 {
		days = 7
	}

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("days", strconv.Itoa(days))

	path := fmt.Sprintf("/coins/%s/market_chart", url.PathEscape(assetID))

	var resp marketChartResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	points := make([]models.PricePoint, 0, len(resp.Prices))
	for _, p := range resp.Prices {
		if len(p) < 2 {
			continue
		}
		points = append(points, models.PricePoint{
			Time:  time.UnixMilli(int64(p[0])),
			Price: p[1],
		})
	}

	return points, nil
}

// marketChartResponse represents the /coins/{id}/market_chart response.
// Prices arrive as [timestamp_ms, price] pairs.
type marketChartResponse struct {
	Prices [][]float64 `json:"prices"`
}

// Ensure Client implements MarketDataClient
var _ interfaces.MarketDataClient = (*Client)(nil)
