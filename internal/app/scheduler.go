package app

import (
	"context"
	"time"

	"github.com/AmineZmarrou/cryptomarket/internal/common"
	"github.com/AmineZmarrou/cryptomarket/internal/interfaces"
)

// startMarketScheduler refreshes the market snapshot on a fixed interval.
// Every successful refresh fans out to WebSocket subscribers through the
// service's OnRefresh callback.
func startMarketScheduler(ctx context.Context, marketService interfaces.MarketService, logger *common.Logger, interval time.Duration) {
	// Warm the cache before the first tick so the initial page load is served hot
	refreshMarket(ctx, marketService, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Market scheduler: stopped")
			return
		case <-ticker.C:
			refreshMarket(ctx, marketService, logger)
		}
	}
}

func refreshMarket(ctx context.Context, marketService interfaces.MarketService, logger *common.Logger) {
	start := time.Now()

	snapshot, err := marketService.Refresh(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Market refresh: failed with no cached snapshot")
		return
	}

	logger.Debug().
		Int("assets", len(snapshot.Assets)).
		Dur("elapsed", time.Since(start)).
		Msg("Market refresh: complete")
}
