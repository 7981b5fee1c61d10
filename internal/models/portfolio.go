package models

import "time"

// Holding is one stored portfolio position: a user's claimed quantity of
// one asset. Quantities accumulate across additions and are never negative.
type Holding struct {
	UserID    string    `json:"user_id"`
	AssetID   string    `json:"asset_id"`
	Quantity  float64   `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValuationLine is one holding priced at a point-in-time unit price.
// Derived on every render, never persisted. A missing market price is
// represented as UnitPrice 0 with Priced false so the caller can show a
// placeholder instead of a hard zero.
type ValuationLine struct {
	AssetID   string  `json:"asset_id"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Value     float64 `json:"value"`
	Priced    bool    `json:"priced"`
}

// Valuation is the result of pricing a full portfolio.
type Valuation struct {
	Lines []ValuationLine `json:"lines"`
	Total float64         `json:"total"`
}

// WalletView is the composed response for the wallet screen: the priced
// portfolio plus the market assets used to price it (for symbol/name
// display on each line).
type WalletView struct {
	Valuation Valuation `json:"valuation"`
	Assets    []*Asset  `json:"assets"`
	AsOf      time.Time `json:"as_of"`
}
