package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mbenites/dropstore/internal/domain"
	apperrors "github.com/mbenites/dropstore/pkg/errors"
)

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepository) Get(ctx context.Context, id string) (*domain.Cart, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*domain.Cart), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	args := m.Called(ctx, cart, expectedVersion)
	return args.Bool(0), args.Error(1)
}

func newTestCartService(carts *mockCartRepository, products *mockProductRepository) *CartService {
	return NewCartService(carts, products, testProducer(), testLogger())
}

func storedCart() *domain.Cart {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Cart{
		ID:        "cart-1",
		Items:     []domain.LineItem{{ProductID: "prod-1", Quantity: 2}},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCartService_CreateCart(t *testing.T) {
	ctx := context.Background()
	carts := new(mockCartRepository)
	svc := newTestCartService(carts, new(mockProductRepository))

	carts.On("Create", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)

	cart, err := svc.CreateCart(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, cart.ID)
	assert.Equal(t, []domain.LineItem{}, cart.Items)
	assert.Equal(t, 1, cart.Version)
	carts.AssertExpectations(t)
}

func TestCartService_GetCart_ResolvesReferences(t *testing.T) {
	ctx := context.Background()
	carts := new(mockCartRepository)
	products := new(mockProductRepository)
	svc := newTestCartService(carts, products)

	cart := storedCart()
	cart.Items = append(cart.Items, domain.LineItem{ProductID: "prod-gone", Quantity: 1})

	carts.On("Get", ctx, cart.ID).Return(cart, nil)
	products.On("GetByID", ctx, "prod-1").Return(storedProduct(), nil)
	products.On("GetByID", ctx, "prod-gone").Return(nil, apperrors.NotFound("product", "prod-gone"))

	populated, err := svc.GetCart(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, populated.Items, 2)

	assert.Equal(t, "prod-1", populated.Items[0].ProductID)
	require.NotNil(t, populated.Items[0].Product)
	assert.Equal(t, "Heavyweight Hoodie", populated.Items[0].Product.Title)
	assert.Equal(t, 2, populated.Items[0].Quantity)

	// A reference that no longer resolves is not an error on read.
	assert.Equal(t, "prod-gone", populated.Items[1].ProductID)
	assert.Nil(t, populated.Items[1].Product)
}

func TestCartService_GetCart_NotFound(t *testing.T) {
	ctx := context.Background()
	carts := new(mockCartRepository)
	svc := newTestCartService(carts, new(mockProductRepository))

	carts.On("Get", ctx, "missing-cart").Return(nil, apperrors.NotFound("cart", "missing-cart"))

	populated, err := svc.GetCart(ctx, "missing-cart")
	assert.Nil(t, populated)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartService_AddProduct_NewLineItem(t *testing.T) {
	ctx := context.Background()
	carts := new(mockCartRepository)
	products := new(mockProductRepository)
	svc := newTestCartService(carts, products)

	cart := storedCart()
	products.On("GetByID", ctx, "prod-2").Return(storedProduct(), nil)
	carts.On("Get", ctx, cart.ID).Return(cart, nil)
	carts.On("SaveIfVersion", ctx, cart, 1).Return(true, nil)

	updated, err := svc.AddProduct(ctx, cart.ID, "prod-2", 1)
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)
	assert.Equal(t, "prod-2", updated.Items[1].ProductID)
	assert.Equal(t, 1, updated.Items[1].Quantity)
	carts.AssertExpectations(t)
}

func TestCartService_AddProduct_MergesQuantity(t *testing.T) {
	ctx := context.Background()
	carts := new(mockCartRepository)
	products := new(mockProductRepository)
	svc := newTestCartService(carts, products)

	cart := storedCart()
	products.On("GetByID", ctx, "prod-1").Return(storedProduct(), nil)
	carts.On("Get", ctx, cart.ID).Return(cart, nil)
	carts.On("SaveIfVersion", ctx, cart, 1).Return(true, nil)

	updated, err := svc.AddProduct(ctx, cart.ID, "prod-1", 5)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1, "merged, not duplicated")
	assert.Equal(t, 7, updated.Items[0].Quantity, "existing quantity grows by the requested amount")
}

func TestCartService_AddProduct_InvalidQuantity(t *testing.T) {
	ctx := context.Background()
	carts := new(mockCartRepository)
	products := new(mockProductRepository)
	svc := newTestCartService(carts, products)

	for _, quantity := range []int{0, -5} {
		cart, err := svc.AddProduct(ctx, "cart-1", "prod-1", quantity)
		assert.Nil(t, cart)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	}
	products.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	carts.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestCartService_AddProduct_UnknownProduct(t *testing.T) {
	ctx := context.Background()
	carts := new(mockCartRepository)
	products := new(mockProductRepository)
	svc := newTestCartService(carts, products)

	products.On("GetByID", ctx, "prod-nope").Return(nil, apperrors.NotFound("product", "prod-nope"))

	cart, err := svc.AddProduct(ctx, "cart-1", "prod-nope", 1)
	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	carts.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestCartService_UpdateQuantity_Success(t *testing.T) {
	ctx := context.Background()
	carts := new(mockCartRepository)
	svc := newTestCartService(carts, new(mockProductRepository))

	cart := storedCart()
	carts.On("Get", ctx, cart.ID).Return(cart, nil)
	carts.On("SaveIfVersion", ctx, cart, 1).Return(true, nil)

	updated, err := svc.UpdateQuantity(ctx, cart.ID, "prod-1", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Items[0].Quantity)
}

func TestCartService_UpdateQuantity_Invalid(t *testing.T) {
	ctx := context.Background()
	carts := new(mockCartRepository)
	svc := newTestCartService(carts, new(mockProductRepository))

	for _, quantity := range []int{0, -3} {
		cart, err := svc.UpdateQuantity(ctx, "cart-1", "prod-1", quantity)
		assert.Nil(t, cart)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	}
	carts.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestCartService_UpdateQuantity_ItemNotInCart(t *testing.T) {
	ctx := context.Background()
	carts := new(mockCartRepository)
	svc := newTestCartService(carts, new(mockProductRepository))

	cart := storedCart()
	carts.On("Get", ctx, cart.ID).Return(cart, nil)

	updated, err := svc.UpdateQuantity(ctx, cart.ID, "prod-absent", 2)
	assert.Nil(t, updated)
	assert.ErrorIs(t, err, apperrors.ErrItemNotInCart)
	carts.AssertNotCalled(t, "SaveIfVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestCartService_RemoveProduct_Success(t *testing.T) {
	ctx := context.Background()
	carts := new(mockCartRepository)
	svc := newTestCartService(carts, new(mockProductRepository))

	cart := storedCart()
	carts.On("Get", ctx, cart.ID).Return(cart, nil)
	carts.On("SaveIfVersion", ctx, cart, 1).Return(true, nil)

	updated, err := svc.RemoveProduct(ctx, cart.ID, "prod-1")
	require.NoError(t, err)
	assert.Empty(t, updated.Items)
}

func TestCartService_RemoveProduct_ItemNotInCart(t *testing.T) {
	ctx := context.Background()
	carts := new(mockCartRepository)
	svc := newTestCartService(carts, new(mockProductRepository))

	cart := storedCart()
	carts.On("Get", ctx, cart.ID).Return(cart, nil)

	updated, err := svc.RemoveProduct(ctx, cart.ID, "prod-absent")
	assert.Nil(t, updated)
	assert.ErrorIs(t, err, apperrors.ErrItemNotInCart)
	// Distinct from a missing cart or a missing product.
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartService_ReplaceProducts_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	carts := new(mockCartRepository)
	products := new(mockProductRepository)
	svc := newTestCartService(carts, products)

	products.On("GetByID", ctx, "prod-1").Return(storedProduct(), nil)
	products.On("GetByID", ctx, "prod-nope").Return(nil, apperrors.NotFound("product", "prod-nope"))

	inputs := []ReplaceItemInput{
		{Product: "prod-1", Quantity: numPtr(2)},
		{Product: "prod-nope"},
	}

	cart, err := svc.ReplaceProducts(ctx, "cart-1", inputs)
	assert.Nil(t, cart)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	// One bad reference rejects the whole payload before any write.
	carts.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	carts.AssertNotCalled(t, "SaveIfVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestCartService_ReplaceProducts_RejectsNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	carts := new(mockCartRepository)
	products := new(mockProductRepository)
	svc := newTestCartService(carts, products)

	for _, quantity := range []float64{0, -5} {
		inputs := []ReplaceItemInput{{Product: "prod-1", Quantity: numPtr(quantity)}}

		cart, err := svc.ReplaceProducts(ctx, "cart-1", inputs)
		assert.Nil(t, cart)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "quantity %v", quantity)
	}
	// An explicit bad quantity never reaches storage; only an absent one
	// defaults to 1.
	carts.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	carts.AssertNotCalled(t, "SaveIfVersion", mock.Anything, mock.Anything, mock.Anything)
	products.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCartService_ReplaceProducts_Success(t *testing.T) {
	ctx := context.Background()
	carts := new(mockCartRepository)
	products := new(mockProductRepository)
	svc := newTestCartService(carts, products)

	cart := storedCart()
	products.On("GetByID", ctx, "prod-2").Return(storedProduct(), nil)
	products.On("GetByID", ctx, "prod-3").Return(storedProduct(), nil)
	carts.On("Get", ctx, cart.ID).Return(cart, nil)
	carts.On("SaveIfVersion", ctx, cart, 1).Return(true, nil)

	inputs := []ReplaceItemInput{
		{Product: "prod-2", Quantity: numPtr(3)},
		{Product: "prod-3"}, // quantity defaults to 1
		{Product: "prod-2", Quantity: numPtr(2)},
	}

	updated, err := svc.ReplaceProducts(ctx, cart.ID, inputs)
	require.NoError(t, err)
	require.Len(t, updated.Items, 2, "duplicates merge by quantity")
	assert.Equal(t, domain.LineItem{ProductID: "prod-2", Quantity: 5}, updated.Items[0])
	assert.Equal(t, domain.LineItem{ProductID: "prod-3", Quantity: 1}, updated.Items[1])
}

func TestCartService_ClearCart(t *testing.T) {
	ctx := context.Background()
	carts := new(mockCartRepository)
	svc := newTestCartService(carts, new(mockProductRepository))

	cart := storedCart()
	carts.On("Get", ctx, cart.ID).Return(cart, nil)
	carts.On("SaveIfVersion", ctx, cart, 1).Return(true, nil)

	updated, err := svc.ClearCart(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.LineItem{}, updated.Items)
	assert.Equal(t, cart.ID, updated.ID, "cart itself survives")
}

func TestCartService_VersionConflictExhaustsRetries(t *testing.T) {
	ctx := context.Background()
	carts := new(mockCartRepository)
	svc := newTestCartService(carts, new(mockProductRepository))

	cart := storedCart()
	carts.On("Get", ctx, cart.ID).Return(cart, nil)
	carts.On("SaveIfVersion", ctx, cart, 1).Return(false, nil)

	updated, err := svc.ClearCart(ctx, cart.ID)
	assert.Nil(t, updated)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	carts.AssertNumberOfCalls(t, "SaveIfVersion", casRetries)
}
