package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mbenites/dropstore/internal/domain"
	"github.com/mbenites/dropstore/internal/event"
	"github.com/mbenites/dropstore/internal/repository"
	apperrors "github.com/mbenites/dropstore/pkg/errors"
)

// casRetries bounds how many times a cart mutation is replayed when a
// concurrent writer wins the compare-and-set.
const casRetries = 3

// ReplaceItemInput is one entry of a cart replacement payload. Quantity
// defaults to 1 when absent; when present it must be positive.
type ReplaceItemInput struct {
	Product  string         `json:"product"`
	Quantity *domain.Number `json:"quantity"`
}

// CartService implements the business logic for cart operations. Every write
// that touches product references validates them against the catalog first,
// so a cart can never gain a reference to a product that does not exist.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, producer *event.Producer, logger *slog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		producer: producer,
		logger:   logger,
	}
}

// CreateCart persists a brand new empty cart.
func (s *CartService) CreateCart(ctx context.Context) (*domain.Cart, error) {
	now := time.Now().UTC()
	cart := &domain.Cart{
		ID:        uuid.New().String(),
		Items:     []domain.LineItem{},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.carts.Create(ctx, cart); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart created",
		slog.String("cart_id", cart.ID),
	)

	return cart, nil
}

// GetCart retrieves a cart with every product reference resolved against the
// catalog. References that no longer resolve come back with a nil Product;
// a stale reference is never an error on read.
func (s *CartService) GetCart(ctx context.Context, id string) (*domain.PopulatedCart, error) {
	cart, err := s.carts.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	populated := &domain.PopulatedCart{
		ID:        cart.ID,
		Items:     make([]domain.PopulatedItem, 0, len(cart.Items)),
		Version:   cart.Version,
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}

	for _, item := range cart.Items {
		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("resolve cart item %s: %w", item.ProductID, err)
			}
			product = nil
		}
		populated.Items = append(populated.Items, domain.PopulatedItem{
			ProductID: item.ProductID,
			Product:   product,
			Quantity:  item.Quantity,
		})
	}

	return populated, nil
}

// AddProduct adds the requested quantity of a product to the cart. If the
// cart already holds a line item for the product, the quantities merge instead
// of creating a duplicate line.
func (s *CartService) AddProduct(ctx context.Context, cartID, productID string, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be a positive integer")
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, fmt.Errorf("validate product: %w", err)
	}

	cart, err := s.mutate(ctx, cartID, func(cart *domain.Cart) error {
		if i := cart.FindItemIndex(productID); i >= 0 {
			cart.Items[i].Quantity += quantity
		} else {
			cart.Items = append(cart.Items, domain.LineItem{ProductID: productID, Quantity: quantity})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishCartUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "product added to cart",
		slog.String("cart_id", cartID),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)

	return cart, nil
}

// UpdateQuantity sets the absolute quantity of an existing line item.
func (s *CartService) UpdateQuantity(ctx context.Context, cartID, productID string, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be a positive integer")
	}

	cart, err := s.mutate(ctx, cartID, func(cart *domain.Cart) error {
		i := cart.FindItemIndex(productID)
		if i < 0 {
			return apperrors.ItemNotInCart(productID)
		}
		cart.Items[i].Quantity = quantity
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishCartUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("cart_id", cartID),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)

	return cart, nil
}

// RemoveProduct removes a line item from the cart. A product that is not in
// the cart is reported distinctly from a missing cart or missing product.
func (s *CartService) RemoveProduct(ctx context.Context, cartID, productID string) (*domain.Cart, error) {
	cart, err := s.mutate(ctx, cartID, func(cart *domain.Cart) error {
		i := cart.FindItemIndex(productID)
		if i < 0 {
			return apperrors.ItemNotInCart(productID)
		}
		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishCartUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "product removed from cart",
		slog.String("cart_id", cartID),
		slog.String("product_id", productID),
	)

	return cart, nil
}

// ReplaceProducts swaps the whole cart contents in one shot. The replacement
// is all-or-nothing: every product reference is validated before anything is
// written, so one bad reference rejects the entire payload. Duplicate product
// ids in the payload merge by summing quantities.
func (s *CartService) ReplaceProducts(ctx context.Context, cartID string, inputs []ReplaceItemInput) (*domain.Cart, error) {
	items := make([]domain.LineItem, 0, len(inputs))
	index := make(map[string]int, len(inputs))

	for _, in := range inputs {
		if in.Product == "" {
			return nil, apperrors.InvalidInput("each item must reference a product")
		}

		quantity := 1
		if in.Quantity != nil {
			if int(*in.Quantity) <= 0 {
				return nil, apperrors.InvalidInput("quantity must be a positive integer")
			}
			quantity = int(*in.Quantity)
		}

		if _, err := s.products.GetByID(ctx, in.Product); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NotFound("product", in.Product)
			}
			return nil, fmt.Errorf("validate product %s: %w", in.Product, err)
		}

		if i, ok := index[in.Product]; ok {
			items[i].Quantity += quantity
			continue
		}
		index[in.Product] = len(items)
		items = append(items, domain.LineItem{ProductID: in.Product, Quantity: quantity})
	}

	cart, err := s.mutate(ctx, cartID, func(cart *domain.Cart) error {
		cart.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishCartUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "cart contents replaced",
		slog.String("cart_id", cartID),
		slog.Int("items", len(items)),
	)

	return cart, nil
}

// ClearCart removes every line item but keeps the cart itself.
func (s *CartService) ClearCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	cart, err := s.mutate(ctx, cartID, func(cart *domain.Cart) error {
		cart.Items = []domain.LineItem{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishCartUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("cart_id", cartID),
	)

	return cart, nil
}

// mutate replays a read-modify-write cycle until the compare-and-set commits
// or the retry budget runs out. The apply function must be safe to call more
// than once.
func (s *CartService) mutate(ctx context.Context, cartID string, apply func(*domain.Cart) error) (*domain.Cart, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		cart, err := s.carts.Get(ctx, cartID)
		if err != nil {
			return nil, fmt.Errorf("get cart: %w", err)
		}

		expectedVersion := cart.Version

		if err := apply(cart); err != nil {
			return nil, err
		}

		ok, err := s.carts.SaveIfVersion(ctx, cart, expectedVersion)
		if err != nil {
			return nil, fmt.Errorf("save cart: %w", err)
		}
		if ok {
			return cart, nil
		}

		s.logger.WarnContext(ctx, "cart version conflict, retrying",
			slog.String("cart_id", cartID),
			slog.Int("attempt", attempt+1),
		)
	}

	return nil, apperrors.Conflict("cart was modified concurrently, please retry")
}

func (s *CartService) publishCartUpdated(ctx context.Context, cart *domain.Cart) {
	if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("cart_id", cart.ID),
			slog.String("error", err.Error()),
		)
	}
}
