// Package interfaces defines service contracts for CryptoMarket
package interfaces

import (
	"context"

	"github.com/AmineZmarrou/cryptomarket/internal/models"
)

// MarketDataClient provides access to the CoinGecko market data API
type MarketDataClient interface {
	// GetMarketAssets retrieves the top assets by market cap in USD
	GetMarketAssets(ctx context.Context, limit int) ([]*models.Asset, error)

	// GetAssetDetail retrieves extended data for a single asset.
	// Returns nil without error when the asset is unknown or the
	// provider rejects the request (rate limits included).
	GetAssetDetail(ctx context.Context, assetID string) (*models.AssetDetail, error)

	// GetMarketChart retrieves historical prices for the past days
	GetMarketChart(ctx context.Context, assetID string, days int) ([]models.PricePoint, error)
}

// NewsClient provides access to the CryptoCompare news API
type NewsClient interface {
	// GetNews retrieves the most popular English-language articles
	GetNews(ctx context.Context, limit int) ([]*models.Article, error)
}
