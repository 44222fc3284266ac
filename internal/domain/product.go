package domain

import "time"

// Product is a catalog entry. Code is globally unique across the catalog;
// uniqueness is enforced both by a pre-check and by a storage-level UNIQUE
// constraint. Drop is a numeric tag grouping products into a release cohort.
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Code        string    `json:"code"`
	Price       float64   `json:"price"`
	Status      bool      `json:"status"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category"`
	Drop        float64   `json:"drop"`
	Thumbnails  []string  `json:"thumbnails"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// InStock reports whether the product has units available.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// CurrentDrop returns the highest drop tag present in the given products and
// the products belonging to it. ok is false when the list is empty.
func CurrentDrop(products []Product) (drop float64, members []Product, ok bool) {
	for _, p := range products {
		if !ok || p.Drop > drop {
			drop = p.Drop
			ok = true
		}
	}
	if !ok {
		return 0, nil, false
	}
	for _, p := range products {
		if p.Drop == drop {
			members = append(members, p)
		}
	}
	return drop, members, true
}
