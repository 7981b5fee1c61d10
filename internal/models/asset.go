// Package models defines data structures for CryptoMarket
package models

import "time"

// Asset represents one tradable cryptocurrency as listed by the market
// data provider. Identifier is the provider-assigned slug (e.g. "bitcoin")
// and is the stable key used by portfolios and valuations.
type Asset struct {
	ID               string  `json:"id"`
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	Image            string  `json:"image,omitempty"`
	CurrentPrice     float64 `json:"current_price"`
	MarketCapRank    int     `json:"market_cap_rank,omitempty"`
	ChangePercent24H float64 `json:"price_change_percentage_24h"`
}

// AssetQuote is the minimal price view used by the valuation path.
type AssetQuote struct {
	Price            float64 `json:"price"`
	ChangePercent24H float64 `json:"change_percent_24h"`
}

// AssetDetail is the expanded single-asset view from the detail endpoint.
type AssetDetail struct {
	ID               string  `json:"id"`
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	Image            string  `json:"image,omitempty"`
	PriceUSD         float64 `json:"price_usd"`
	ChangePercent24H float64 `json:"change_percent_24h"`
	MarketCapUSD     float64 `json:"market_cap_usd"`
	VolumeUSD        float64 `json:"volume_usd"`
}

// PricePoint is one sample of an asset's historical price series.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// MarketSnapshot is the assembled market view broadcast to live clients.
type MarketSnapshot struct {
	Assets    []*Asset  `json:"assets"`
	FetchedAt time.Time `json:"fetched_at"`
}

// PriceMap extracts the assetID → quote mapping from a list of assets.
func PriceMap(assets []*Asset) map[string]AssetQuote {
	prices := make(map[string]AssetQuote, len(assets))
	for _, a := range assets {
		prices[a.ID] = AssetQuote{Price: a.CurrentPrice, ChangePercent24H: a.ChangePercent24H}
	}
	return prices
}
