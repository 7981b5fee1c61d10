// Package interfaces defines service contracts for CryptoMarket
package interfaces

import (
	"context"

	"github.com/AmineZmarrou/cryptomarket/internal/models"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	UserStore() UserStore
	PortfolioStore() PortfolioStore
	MessageStore() MessageStore

	// Lifecycle
	Close() error
}

// UserStore manages user accounts
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, userID string) error
}

// PortfolioStore manages per-user wallet holdings
type PortfolioStore interface {
	// GetHoldings returns all holdings for a user, empty when none exist
	GetHoldings(ctx context.Context, userID string) ([]*models.Holding, error)

	// GetHolding returns a single holding, nil when absent
	GetHolding(ctx context.Context, userID, assetID string) (*models.Holding, error)

	// AddQuantity atomically adds delta to the user's holding for an
	// asset, creating the holding when absent, and returns the result
	AddQuantity(ctx context.Context, userID, assetID string, delta float64) (*models.Holding, error)
}

// MessageStore manages the append-only community feed
type MessageStore interface {
	// Create stores a message with a server-assigned timestamp
	Create(ctx context.Context, msg *models.Message) (*models.Message, error)

	// List returns all messages, newest first
	List(ctx context.Context) ([]*models.Message, error)

	// Subscribe delivers the full newest-first list on every table
	// change until release is called or ctx is cancelled
	Subscribe(ctx context.Context) (<-chan []*models.Message, func(), error)
}
