package client

import "github.com/mbenites/dropstore/internal/domain"

// missingProductLabel renders line items whose product reference no longer
// resolves. Wire-contract wording inherited from the original storefront.
const missingProductLabel = "producto no encontrado"

// SummaryLine is one rendered cart row.
type SummaryLine struct {
	ProductID string
	Title     string
	UnitPrice float64
	Quantity  int
	LineTotal float64
	// Missing is set when the product reference did not resolve; the line
	// renders with price 0 instead of failing.
	Missing bool
}

// Summary is the rendered cart: per-line totals plus the grand total.
type Summary struct {
	CartID string
	Lines  []SummaryLine
	Total  float64
}

// BuildSummary renders a populated cart. Unresolved products contribute 0 to
// the total, and missing numerics degrade to 0 rather than erroring.
func BuildSummary(cart *domain.PopulatedCart) Summary {
	if cart == nil {
		return Summary{}
	}

	summary := Summary{
		CartID: cart.ID,
		Lines:  make([]SummaryLine, 0, len(cart.Items)),
	}

	for _, item := range cart.Items {
		quantity := item.Quantity
		if quantity < 0 {
			quantity = 0
		}

		line := SummaryLine{
			ProductID: item.ProductID,
			Quantity:  quantity,
		}

		if item.Product == nil {
			line.Title = missingProductLabel
			line.Missing = true
		} else {
			line.Title = item.Product.Title
			line.UnitPrice = item.Product.Price
			if line.UnitPrice < 0 {
				line.UnitPrice = 0
			}
			line.LineTotal = line.UnitPrice * float64(quantity)
		}

		summary.Total += line.LineTotal
		summary.Lines = append(summary.Lines, line)
	}

	return summary
}
