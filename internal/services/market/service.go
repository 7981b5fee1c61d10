// Package market maintains the cached market snapshot and serves
// asset detail, charts, and news.
package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AmineZmarrou/cryptomarket/internal/common"
	"github.com/AmineZmarrou/cryptomarket/internal/interfaces"
	"github.com/AmineZmarrou/cryptomarket/internal/models"
)

// Service implements MarketService. A single snapshot of the top assets
// is cached in memory and refreshed by the app scheduler; readers never
// hit the provider directly while a snapshot exists, so provider
// outages degrade to stale data instead of errors.
type Service struct {
	client interfaces.MarketDataClient
	news   interfaces.NewsClient
	logger *common.Logger

	topAssets int

	mu       sync.RWMutex
	snapshot *models.MarketSnapshot

	newsMu        sync.Mutex
	newsCache     []*models.Article
	newsFetchedAt time.Time

	chartMu    sync.Mutex
	chartCache map[string]chartEntry

	// onRefresh is guarded by mu and invoked outside the lock.
	onRefresh func(*models.MarketSnapshot)
}

type chartEntry struct {
	png       []byte
	fetchedAt time.Time
}

// NewService creates a new market service.
func NewService(client interfaces.MarketDataClient, news interfaces.NewsClient, topAssets int, logger *common.Logger) *Service {
	if topAssets <= 0 {
		topAssets = 20
	}
	return &Service{
		client:     client,
		news:       news,
		logger:     logger,
		topAssets:  topAssets,
		chartCache: make(map[string]chartEntry),
	}
}

// OnRefresh registers a callback invoked with each fresh snapshot.
// Used by the server to broadcast updates to WebSocket clients. Safe to
// call while the refresh loop is already running.
func (s *Service) OnRefresh(fn func(*models.MarketSnapshot)) {
	s.mu.Lock()
	s.onRefresh = fn
	s.mu.Unlock()
}

// Snapshot returns the cached snapshot, fetching one on demand when the
// cache is cold.
func (s *Service) Snapshot(ctx context.Context) (*models.MarketSnapshot, error) {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()

	if snap != nil {
		return snap, nil
	}
	return s.Refresh(ctx)
}

// Refresh fetches a fresh snapshot and replaces the cache. On provider
// failure the previous snapshot, when present, is kept and returned.
func (s *Service) Refresh(ctx context.Context) (*models.MarketSnapshot, error) {
	assets, err := s.client.GetMarketAssets(ctx, s.topAssets)
	if err != nil {
		s.mu.RLock()
		prev := s.snapshot
		s.mu.RUnlock()

		if prev != nil {
			s.logger.Warn().Err(err).
				Time("stale_as_of", prev.FetchedAt).
				Msg("Market refresh failed, serving previous snapshot")
			return prev, nil
		}
		return nil, fmt.Errorf("market refresh failed with no cached snapshot: %w", err)
	}

	snap := &models.MarketSnapshot{
		Assets:    assets,
		FetchedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.snapshot = snap
	fanout := s.onRefresh
	s.mu.Unlock()

	s.logger.Debug().Int("assets", len(assets)).Msg("Market snapshot refreshed")

	if fanout != nil {
		fanout(snap)
	}
	return snap, nil
}

// GetAssetDetail retrieves extended data for a single asset, nil when
// the provider cannot serve it.
func (s *Service) GetAssetDetail(ctx context.Context, assetID string) (*models.AssetDetail, error) {
	return s.client.GetAssetDetail(ctx, assetID)
}

// GetNews returns cached articles, refetching once the cache ages out.
// A failed refetch serves the stale cache when one exists.
func (s *Service) GetNews(ctx context.Context, limit int) ([]*models.Article, error) {
	s.newsMu.Lock()
	defer s.newsMu.Unlock()

	if s.newsCache != nil && common.IsFresh(s.newsFetchedAt, common.FreshnessNews) {
		return clipArticles(s.newsCache, limit), nil
	}

	articles, err := s.news.GetNews(ctx, 0)
	if err != nil {
		if s.newsCache != nil {
			s.logger.Warn().Err(err).Msg("News refresh failed, serving cached articles")
			return clipArticles(s.newsCache, limit), nil
		}
		return nil, err
	}

	s.newsCache = articles
	s.newsFetchedAt = time.Now()
	return clipArticles(articles, limit), nil
}

func clipArticles(articles []*models.Article, limit int) []*models.Article {
	if limit > 0 && len(articles) > limit {
		return articles[:limit]
	}
	return articles
}

// RenderTrendChart renders (and caches) a PNG price trend chart.
func (s *Service) RenderTrendChart(ctx context.Context, assetID string, days int) ([]byte, error) {
	if days <= 0 {
		days = 7
	}
	key := fmt.Sprintf("%s_%d", assetID, days)

	s.chartMu.Lock()
	entry, ok := s.chartCache[key]
	s.chartMu.Unlock()
	if ok && common.IsFresh(entry.fetchedAt, common.FreshnessChart) {
		return entry.png, nil
	}

	points, err := s.client.GetMarketChart(ctx, assetID, days)
	if err != nil {
		return nil, err
	}

	name := assetID
	if snap, _ := s.Snapshot(ctx); snap != nil {
		for _, a := range snap.Assets {
			if a.ID == assetID {
				name = a.Name
				break
			}
		}
	}

	png, err := renderTrendChart(name, points)
	if err != nil {
		return nil, err
	}

	s.chartMu.Lock()
	s.chartCache[key] = chartEntry{png: png, fetchedAt: time.Now()}
	s.chartMu.Unlock()

	return png, nil
}

// Compile-time check
var _ interfaces.MarketService = (*Service)(nil)
