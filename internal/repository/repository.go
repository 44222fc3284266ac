package repository

import (
	"context"

	"github.com/mbenites/dropstore/internal/domain"
	"github.com/mbenites/dropstore/internal/query"
)

// ProductRepository defines the interface for catalog persistence operations.
type ProductRepository interface {
	// Create inserts a new product into the store.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetAll returns every product in the catalog.
	GetAll(ctx context.Context) ([]domain.Product, error)

	// CodeInUse reports whether any product other than excludeID already
	// carries the given code. Pass an empty excludeID on create.
	CodeInUse(ctx context.Context, code, excludeID string) (bool, error)

	// Count returns the number of products matching the filter. It runs
	// before List so the pagination plan can clamp out-of-range pages.
	Count(ctx context.Context, filter query.Filter) (int, error)

	// List returns products matching the filter, ordered by price when sort
	// is asc or desc.
	List(ctx context.Context, filter query.Filter, sort string, limit, offset int) ([]domain.Product, error)

	// Update modifies an existing product in the store.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product by its identifier and returns the removed row.
	Delete(ctx context.Context, id string) (*domain.Product, error)
}

// CartRepository defines the interface for cart persistence operations.
type CartRepository interface {
	// Create persists a brand new cart.
	Create(ctx context.Context, cart *domain.Cart) error

	// Get retrieves a cart by its identifier.
	Get(ctx context.Context, id string) (*domain.Cart, error)

	// SaveIfVersion persists the cart only when the stored version still
	// equals expectedVersion, bumping the version on success. It returns
	// false without error when another writer got there first.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error)
}
