// Package valuation computes wallet values from holdings and market prices.
package valuation

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/AmineZmarrou/cryptomarket/internal/models"
)

// Valuate prices each holding against the quote map and sums the total.
// A holding with no quote contributes zero and is marked unpriced.
// Lines are ordered by value descending (asset id breaks ties) so output
// is independent of input order.
// Line values and the total are computed in decimal arithmetic to keep
// the sum exact regardless of summation order.
func Valuate(holdings []*models.Holding, prices map[string]models.AssetQuote) *models.Valuation {
	lines := make([]models.ValuationLine, 0, len(holdings))
	total := decimal.Zero

	for _, h := range holdings {
		line := models.ValuationLine{
			AssetID:  h.AssetID,
			Quantity: h.Quantity,
		}
		if quote, ok := prices[h.AssetID]; ok {
			value := decimal.NewFromFloat(h.Quantity).Mul(decimal.NewFromFloat(quote.Price))
			line.UnitPrice = quote.Price
			line.Value, _ = value.Float64()
			line.Priced = true
			total = total.Add(value)
		}
		lines = append(lines, line)
	}

	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Value != lines[j].Value {
			return lines[i].Value > lines[j].Value
		}
		return lines[i].AssetID < lines[j].AssetID
	})

	totalF, _ := total.Float64()
	return &models.Valuation{
		Lines: lines,
		Total: totalF,
	}
}
