package domain

import "time"

// Cart holds an ordered collection of line items. Version is the optimistic
// concurrency token: every successful save increments it, and writers must
// present the version they read.
type Cart struct {
	ID        string     `json:"id"`
	Items     []LineItem `json:"products"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// LineItem pairs a weak product reference with a quantity. The cart does not
// own the product: the reference may no longer resolve after the product is
// deleted.
type LineItem struct {
	ProductID string `json:"product"`
	Quantity  int    `json:"quantity"`
}

// FindItemIndex returns the index of the line item for the given product,
// or -1 if the cart holds none. At most one line item exists per product.
func (c *Cart) FindItemIndex(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// ItemCount returns the total quantity across all line items.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// PopulatedCart is a cart with each product reference resolved against the
// catalog at read time.
type PopulatedCart struct {
	ID        string          `json:"id"`
	Items     []PopulatedItem `json:"products"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PopulatedItem carries the resolved product snapshot. Product is nil when
// the reference no longer resolves (the product was deleted after being
// added); presentation must render that as price 0 / not found, never error.
type PopulatedItem struct {
	ProductID string   `json:"productId"`
	Product   *Product `json:"product"`
	Quantity  int      `json:"quantity"`
}
