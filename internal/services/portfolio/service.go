// Package portfolio manages wallet holdings and their valuation.
package portfolio

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/AmineZmarrou/cryptomarket/internal/common"
	"github.com/AmineZmarrou/cryptomarket/internal/interfaces"
	"github.com/AmineZmarrou/cryptomarket/internal/models"
	"github.com/AmineZmarrou/cryptomarket/internal/services/valuation"
)

// Service implements PortfolioService on top of the portfolio store and
// the market service's cached prices.
type Service struct {
	storage interfaces.StorageManager
	market  interfaces.MarketService
	logger  *common.Logger
}

// NewService creates a new portfolio service.
func NewService(storage interfaces.StorageManager, market interfaces.MarketService, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		market:  market,
		logger:  logger,
	}
}

func (s *Service) GetHoldings(ctx context.Context, userID string) ([]*models.Holding, error) {
	if userID == "" {
		return nil, models.ErrAuthRequired
	}
	return s.storage.PortfolioStore().GetHoldings(ctx, userID)
}

// AddHolding validates the raw quantity input and accumulates it onto
// the user's holding for the asset.
func (s *Service) AddHolding(ctx context.Context, userID, assetID, quantity string) (*models.Holding, error) {
	if userID == "" {
		return nil, models.ErrAuthRequired
	}

	assetID = strings.TrimSpace(assetID)
	if assetID == "" {
		return nil, models.Validationf("asset id is required")
	}

	delta, err := parseQuantity(quantity)
	if err != nil {
		return nil, err
	}

	holding, err := s.storage.PortfolioStore().AddQuantity(ctx, userID, assetID, delta)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("asset_id", assetID).
		Float64("delta", delta).
		Float64("quantity", holding.Quantity).
		Msg("Holding updated")

	return holding, nil
}

// parseQuantity accepts a comma or dot decimal separator and requires a
// strictly positive amount.
func parseQuantity(raw string) (float64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if normalized == "" {
		return 0, models.Validationf("quantity is required")
	}

	qty, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, models.Validationf("invalid quantity %q", raw)
	}
	if qty <= 0 {
		return 0, models.Validationf("quantity must be greater than zero")
	}
	return qty, nil
}

// GetWallet values the user's holdings against the current market
// snapshot. Assets without a quote contribute zero rather than failing
// the whole wallet.
func (s *Service) GetWallet(ctx context.Context, userID string) (*models.WalletView, error) {
	if userID == "" {
		return nil, models.ErrAuthRequired
	}

	// Holdings and prices come from independent backends; fetch both at once.
	var (
		wg          sync.WaitGroup
		holdings    []*models.Holding
		snapshot    *models.MarketSnapshot
		holdErr     error
		snapshotErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		holdings, holdErr = s.storage.PortfolioStore().GetHoldings(ctx, userID)
	}()
	go func() {
		defer wg.Done()
		snapshot, snapshotErr = s.market.Snapshot(ctx)
	}()
	wg.Wait()

	if holdErr != nil {
		return nil, holdErr
	}

	// A provider outage must not break the wallet: value the holdings
	// against an empty price map so every line renders unpriced.
	var assets []*models.Asset
	if snapshotErr != nil {
		s.logger.Warn().Err(snapshotErr).Str("user_id", userID).Msg("Valuing wallet without market prices")
	} else {
		assets = snapshot.Assets
	}

	v := valuation.Valuate(holdings, models.PriceMap(assets))

	return &models.WalletView{
		Valuation: *v,
		Assets:    assets,
		AsOf:      time.Now().UTC(),
	}, nil
}

// Compile-time check
var _ interfaces.PortfolioService = (*Service)(nil)
