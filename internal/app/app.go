// Package app wires configuration, storage, clients, and services into
// the running application.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AmineZmarrou/cryptomarket/internal/clients/coingecko"
	"github.com/AmineZmarrou/cryptomarket/internal/clients/cryptocompare"
	"github.com/AmineZmarrou/cryptomarket/internal/common"
	"github.com/AmineZmarrou/cryptomarket/internal/interfaces"
	"github.com/AmineZmarrou/cryptomarket/internal/services/feed"
	"github.com/AmineZmarrou/cryptomarket/internal/services/market"
	"github.com/AmineZmarrou/cryptomarket/internal/services/portfolio"
	"github.com/AmineZmarrou/cryptomarket/internal/storage/surrealdb"
)

// App holds all initialized services, clients, and storage. It is the
// shared core behind cmd/cryptomarket-server.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	MarketClient     interfaces.MarketDataClient
	NewsClient       interfaces.NewsClient
	MarketService    interfaces.MarketService
	PortfolioService interfaces.PortfolioService
	FeedService      interfaces.FeedService
	StartupTime      time.Time

	schedulerCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, storage, clients, and services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Load configuration - check provided path, CRYPTOMARKET_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("CRYPTOMARKET_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "cryptomarket.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/cryptomarket.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := surrealdb.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// API clients
	coingeckoOpts := []coingecko.ClientOption{
		coingecko.WithLogger(logger),
	}
	if config.Clients.CoinGecko.BaseURL != "" {
		coingeckoOpts = append(coingeckoOpts, coingecko.WithBaseURL(config.Clients.CoinGecko.BaseURL))
	}
	if config.Clients.CoinGecko.APIKey != "" {
		coingeckoOpts = append(coingeckoOpts, coingecko.WithAPIKey(config.Clients.CoinGecko.APIKey))
	}
	if config.Clients.CoinGecko.RateLimit > 0 {
		coingeckoOpts = append(coingeckoOpts, coingecko.WithRateLimit(config.Clients.CoinGecko.RateLimit))
	}
	marketClient := coingecko.NewClient(coingeckoOpts...)

	cryptocompareOpts := []cryptocompare.ClientOption{
		cryptocompare.WithLogger(logger),
	}
	if config.Clients.CryptoCompare.BaseURL != "" {
		cryptocompareOpts = append(cryptocompareOpts, cryptocompare.WithBaseURL(config.Clients.CryptoCompare.BaseURL))
	}
	if config.Clients.CryptoCompare.RateLimit > 0 {
		cryptocompareOpts = append(cryptocompareOpts, cryptocompare.WithRateLimit(config.Clients.CryptoCompare.RateLimit))
	}
	newsClient := cryptocompare.NewClient(cryptocompareOpts...)

	// Services
	marketService := market.NewService(marketClient, newsClient, config.Market.TopAssets, logger)
	portfolioService := portfolio.NewService(storageManager, marketService, logger)
	feedService := feed.NewService(storageManager, logger)

	app := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		MarketClient:     marketClient,
		NewsClient:       newsClient,
		MarketService:    marketService,
		PortfolioService: portfolioService,
		FeedService:      feedService,
		StartupTime:      time.Now(),
	}

	logger.Info().
		Dur("elapsed", time.Since(startupStart)).
		Str("environment", config.Environment).
		Msg("Application initialized")

	return app, nil
}

// StartScheduler launches the background market refresh loop.
func (a *App) StartScheduler() {
	ctx, cancel := context.WithCancel(context.Background())
	a.schedulerCancel = cancel
	go startMarketScheduler(ctx, a.MarketService, a.Logger, a.Config.Market.GetRefreshInterval())
}

// Close releases all application resources.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
		}
	}
}
