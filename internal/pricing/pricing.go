// Package pricing is the single authority for checkout totals. Every path
// that needs an amount (COD orders, gateway intent creation, verification)
// calls Quote, so the totals cannot drift between them.
package pricing

import "github.com/shahid0mer/shopease/internal/models"

// TaxPercent is applied to the rounded paise subtotal.
const TaxPercent = 2

// Effective returns the price a product actually sells at, in paise.
func Effective(p *models.Product) int64 {
	if p.OfferPrice > 0 {
		return p.OfferPrice
	}
	return p.Price
}

type Line struct {
	Product  *models.Product
	Quantity uint
}

// Quote computes subtotal, tax and total in paise. Prices are already
// integer paise, so the subtotal is exact; tax is TaxPercent of the subtotal
// rounded half-up. The same two stages run on every checkout path, which is
// what lets verification compare its recomputed total against the gateway's
// captured amount byte for byte.
func Quote(lines []Line) (subtotal, tax, total int64) {
	for _, l := range lines {
		subtotal += Effective(l.Product) * int64(l.Quantity)
	}
	tax = (subtotal*TaxPercent + 50) / 100
	total = subtotal + tax
	return subtotal, tax, total
}
