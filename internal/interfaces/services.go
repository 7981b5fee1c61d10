// Package interfaces defines service contracts for CryptoMarket
package interfaces

import (
	"context"

	"github.com/AmineZmarrou/cryptomarket/internal/models"
)

// MarketService handles market data operations
type MarketService interface {
	// Snapshot returns the current cached market snapshot, fetching
	// one on demand when the cache is cold
	Snapshot(ctx context.Context) (*models.MarketSnapshot, error)

	// Refresh fetches a fresh snapshot from the provider and caches it
	Refresh(ctx context.Context) (*models.MarketSnapshot, error)

	// GetAssetDetail retrieves extended data for a single asset,
	// nil when unavailable
	GetAssetDetail(ctx context.Context, assetID string) (*models.AssetDetail, error)

	// RenderTrendChart renders a PNG price trend chart for an asset
	RenderTrendChart(ctx context.Context, assetID string, days int) ([]byte, error)

	// GetNews retrieves the latest popular news articles
	GetNews(ctx context.Context, limit int) ([]*models.Article, error)

	// OnRefresh registers a callback invoked with every snapshot a
	// successful Refresh produces
	OnRefresh(fn func(*models.MarketSnapshot))
}

// PortfolioService manages wallet holdings and valuation
type PortfolioService interface {
	// GetHoldings returns the user's holdings, empty when none exist
	GetHoldings(ctx context.Context, userID string) ([]*models.Holding, error)

	// AddHolding validates and accumulates a quantity onto the user's
	// holding for an asset. Quantity is raw user input and may use a
	// comma decimal separator.
	AddHolding(ctx context.Context, userID, assetID, quantity string) (*models.Holding, error)

	// GetWallet returns holdings valued against current market prices
	GetWallet(ctx context.Context, userID string) (*models.WalletView, error)
}

// FeedService manages the community message feed
type FeedService interface {
	// List returns all messages, newest first
	List(ctx context.Context) ([]*models.Message, error)

	// Post validates and stores a message for the authenticated user
	Post(ctx context.Context, text string) (*models.Message, error)

	// Subscribe delivers the full newest-first message list on every
	// change until release is called or ctx is cancelled
	Subscribe(ctx context.Context) (<-chan []*models.Message, func(), error)
}
