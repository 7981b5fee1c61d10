package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/AmineZmarrou/cryptomarket/internal/common"
	"github.com/AmineZmarrou/cryptomarket/internal/interfaces"
	"github.com/AmineZmarrou/cryptomarket/internal/models"
)

const holdingSelectFields = `user_id, asset_id, quantity, updated_at`

// Holding ID format: holding:<userID>_<assetID>
func holdingID(userID, assetID string) string {
	return userID + "_" + assetID
}

// PortfolioStore implements interfaces.PortfolioStore using SurrealDB.
type PortfolioStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewPortfolioStore creates a new PortfolioStore.
func NewPortfolioStore(db *surrealdb.DB, logger *common.Logger) *PortfolioStore {
	return &PortfolioStore{
		db:     db,
		logger: logger,
	}
}

func (s *PortfolioStore) GetHoldings(ctx context.Context, userID string) ([]*models.Holding, error) {
	sql := "SELECT " + holdingSelectFields + " FROM holding WHERE user_id = $user_id ORDER BY asset_id ASC"
	vars := map[string]any{"user_id": userID}

	results, err := surrealdb.Query[[]models.Holding](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	holdings := []*models.Holding{}
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			holdings = append(holdings, &(*results)[0].Result[i])
		}
	}
	return holdings, nil
}

func (s *PortfolioStore) GetHolding(ctx context.Context, userID, assetID string) (*models.Holding, error) {
	sql := "SELECT " + holdingSelectFields + " FROM $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("holding", holdingID(userID, assetID))}

	results, err := surrealdb.Query[[]models.Holding](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// AddQuantity accumulates delta onto the holding inside the database so
// concurrent adds for different assets (or the same one) never clobber
// each other.
func (s *PortfolioStore) AddQuantity(ctx context.Context, userID, assetID string, delta float64) (*models.Holding, error) {
	sql := `UPSERT type::record('holding', $id) SET
		user_id = $user_id, asset_id = $asset_id,
		quantity = (quantity ?? 0) + $delta,
		updated_at = time::now()`
	vars := map[string]any{
		"id":       holdingID(userID, assetID),
		"user_id":  userID,
		"asset_id": assetID,
		"delta":    delta,
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return nil, fmt.Errorf("failed to add quantity: %w", err)
	}

	holding, err := s.GetHolding(ctx, userID, assetID)
	if err != nil {
		return nil, err
	}
	if holding == nil {
		return nil, fmt.Errorf("holding missing after upsert")
	}
	return holding, nil
}

// Compile-time check
var _ interfaces.PortfolioStore = (*PortfolioStore)(nil)
