package surrealdb

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolioStoreGetHoldingsEmpty(t *testing.T) {
	db := testDB(t)
	store := NewPortfolioStore(db, testLogger())

	holdings, err := store.GetHoldings(context.Background(), "newuser")
	require.NoError(t, err)
	assert.NotNil(t, holdings)
	assert.Empty(t, holdings)
}

func TestPortfolioStoreAddQuantityCreates(t *testing.T) {
	db := testDB(t)
	store := NewPortfolioStore(db, testLogger())
	ctx := context.Background()

	holding, err := store.AddQuantity(ctx, "user1", "bitcoin", 0.5)
	require.NoError(t, err)
	require.NotNil(t, holding)
	assert.Equal(t, "user1", holding.UserID)
	assert.Equal(t, "bitcoin", holding.AssetID)
	assert.InDelta(t, 0.5, holding.Quantity, 1e-9)
	assert.False(t, holding.UpdatedAt.IsZero())
}

func TestPortfolioStoreAddQuantityAccumulates(t *testing.T) {
	db := testDB(t)
	store := NewPortfolioStore(db, testLogger())
	ctx := context.Background()

	_, err := store.AddQuantity(ctx, "user1", "ethereum", 2)
	require.NoError(t, err)
	holding, err := store.AddQuantity(ctx, "user1", "ethereum", 1.5)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, holding.Quantity, 1e-9)
}

func TestPortfolioStoreAddQuantityPreservesSiblings(t *testing.T) {
	db := testDB(t)
	store := NewPortfolioStore(db, testLogger())
	ctx := context.Background()

	_, err := store.AddQuantity(ctx, "user1", "bitcoin", 0.5)
	require.NoError(t, err)
	_, err = store.AddQuantity(ctx, "user1", "ethereum", 2)
	require.NoError(t, err)

	holdings, err := store.GetHoldings(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, holdings, 2)

	// Ordered by asset id
	assert.Equal(t, "bitcoin", holdings[0].AssetID)
	assert.InDelta(t, 0.5, holdings[0].Quantity, 1e-9)
	assert.Equal(t, "ethereum", holdings[1].AssetID)
	assert.InDelta(t, 2.0, holdings[1].Quantity, 1e-9)
}

func TestPortfolioStoreConcurrentAdds(t *testing.T) {
	db := testDB(t)
	store := NewPortfolioStore(db, testLogger())
	ctx := context.Background()

	// Concurrent adds to different assets must not lose each other
	var wg sync.WaitGroup
	assets := []string{"bitcoin", "ethereum", "dogecoin", "cardano"}
	for _, asset := range assets {
		wg.Add(1)
		go func(a string) {
			defer wg.Done()
			_, err := store.AddQuantity(ctx, "racer", a, 1)
			assert.NoError(t, err)
		}(asset)
	}
	wg.Wait()

	holdings, err := store.GetHoldings(ctx, "racer")
	require.NoError(t, err)
	assert.Len(t, holdings, len(assets))
}

func TestPortfolioStoreUserIsolation(t *testing.T) {
	db := testDB(t)
	store := NewPortfolioStore(db, testLogger())
	ctx := context.Background()

	_, err := store.AddQuantity(ctx, "alice", "bitcoin", 1)
	require.NoError(t, err)
	_, err = store.AddQuantity(ctx, "bob", "bitcoin", 2)
	require.NoError(t, err)

	alice, err := store.GetHoldings(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 1)
	assert.InDelta(t, 1.0, alice[0].Quantity, 1e-9)

	bob, err := store.GetHolding(ctx, "bob", "bitcoin")
	require.NoError(t, err)
	require.NotNil(t, bob)
	assert.InDelta(t, 2.0, bob.Quantity, 1e-9)
}

func TestPortfolioStoreGetHoldingMissing(t *testing.T) {
	db := testDB(t)
	store := NewPortfolioStore(db, testLogger())

	holding, err := store.GetHolding(context.Background(), "nobody", "bitcoin")
	require.NoError(t, err)
	assert.Nil(t, holding)
}
