package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mbenites/dropstore/internal/domain"
	"github.com/mbenites/dropstore/internal/event"
	"github.com/mbenites/dropstore/internal/query"
	"github.com/mbenites/dropstore/internal/service"
	apperrors "github.com/mbenites/dropstore/pkg/errors"
	"github.com/mbenites/dropstore/pkg/health"
	pkgkafka "github.com/mbenites/dropstore/pkg/kafka"
	"github.com/mbenites/dropstore/pkg/middleware"
)

type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) Create(ctx context.Context, product *domain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProductRepo) GetAll(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	if p := args.Get(0); p != nil {
		return p.([]domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProductRepo) CodeInUse(ctx context.Context, code, excludeID string) (bool, error) {
	args := m.Called(ctx, code, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockProductRepo) Count(ctx context.Context, filter query.Filter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *mockProductRepo) List(ctx context.Context, filter query.Filter, sort string, limit, offset int) ([]domain.Product, error) {
	args := m.Called(ctx, filter, sort, limit, offset)
	if p := args.Get(0); p != nil {
		return p.([]domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProductRepo) Update(ctx context.Context, product *domain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockProductRepo) Delete(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*domain.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCartRepo struct {
	mock.Mock
}

func (m *mockCartRepo) Create(ctx context.Context, cart *domain.Cart) error {
	return m.Called(ctx, cart).Error(0)
}

func (m *mockCartRepo) Get(ctx context.Context, id string) (*domain.Cart, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*domain.Cart), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCartRepo) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	args := m.Called(ctx, cart, expectedVersion)
	return args.Bool(0), args.Error(1)
}

type recordingBroadcaster struct {
	calls int
}

func (b *recordingBroadcaster) BroadcastCatalog(ctx context.Context) { b.calls++ }

func domainNotFound(id string) error {
	return apperrors.NotFound("resource", id)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, products *mockProductRepo, carts *mockCartRepo, broadcaster CatalogBroadcaster) *httptest.Server {
	t.Helper()

	logger := testLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	producer := event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)

	catalog := service.NewCatalogService(products, producer, logger)
	cartSvc := service.NewCartService(carts, products, producer, logger)

	router := NewRouter(RouterConfig{
		Catalog:     catalog,
		Carts:       cartSvc,
		Health:      health.NewHandler(),
		Broadcaster: broadcaster,
		Logger:      logger,
		CORS:        middleware.DefaultCORSConfig(),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func sampleProduct() *domain.Product {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Product{
		ID:          "prod-1",
		Title:       "Heavyweight Hoodie",
		Description: "400gsm fleece",
		Code:        "HW-HOOD-01",
		Price:       79.9,
		Status:      true,
		Stock:       12,
		Category:    "hoodies",
		Drop:        3,
		Thumbnails:  []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestListProducts_Envelope(t *testing.T) {
	products := new(mockProductRepo)
	srv := newTestServer(t, products, new(mockCartRepo), nil)

	products.On("Count", mock.Anything, query.Filter{}).Return(25, nil)
	products.On("List", mock.Anything, query.Filter{}, "", 10, 10).
		Return([]domain.Product{*sampleProduct()}, nil)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/products?page=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ListProductsResponse
	decodeBody(t, resp, &body)

	assert.Equal(t, "success", body.Status)
	assert.Len(t, body.Payload, 1)
	assert.Equal(t, 3, body.TotalPages)
	assert.Equal(t, 2, body.Page)
	assert.True(t, body.HasPrevPage)
	assert.True(t, body.HasNextPage)
	require.NotNil(t, body.PrevPage)
	assert.Equal(t, 1, *body.PrevPage)
	require.NotNil(t, body.NextPage)
	assert.Equal(t, 3, *body.NextPage)
	require.NotNil(t, body.PrevLink)
	assert.Contains(t, *body.PrevLink, "/api/products?")
	assert.Contains(t, *body.PrevLink, "page=1")
	require.NotNil(t, body.NextLink)
	assert.Contains(t, *body.NextLink, "page=3")
}

func TestListProducts_EmptyCatalog(t *testing.T) {
	products := new(mockProductRepo)
	srv := newTestServer(t, products, new(mockCartRepo), nil)

	products.On("Count", mock.Anything, query.Filter{}).Return(0, nil)
	products.On("List", mock.Anything, query.Filter{}, "", 10, 0).
		Return([]domain.Product{}, nil)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/products", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ListProductsResponse
	decodeBody(t, resp, &body)

	assert.Equal(t, 0, body.TotalPages)
	assert.Empty(t, body.Payload)
	assert.Nil(t, body.PrevLink)
	assert.Nil(t, body.NextLink)
}

func TestGetProduct_NotFound(t *testing.T) {
	products := new(mockProductRepo)
	srv := newTestServer(t, products, new(mockCartRepo), nil)

	products.On("GetByID", mock.Anything, "missing-id").
		Return(nil, apperrors.NotFound("product", "missing-id"))

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/products/missing-id", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Contains(t, body["error"], "missing-id")
}

func TestCreateProduct_Success(t *testing.T) {
	products := new(mockProductRepo)
	broadcaster := &recordingBroadcaster{}
	srv := newTestServer(t, products, new(mockCartRepo), broadcaster)

	products.On("CodeInUse", mock.Anything, "CAP-01", "").Return(false, nil)
	products.On("Create", mock.Anything, mock.AnythingOfType("*domain.Product")).Return(nil)

	payload := `{"title":"Cap","description":"Corduroy cap","code":"CAP-01","price":"24.5","status":"true","stock":"3","category":"caps","drop":"1"}`
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/products", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body ProductMutationResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "product created", body.Mensaje)
	require.NotNil(t, body.Producto)
	assert.Equal(t, "CAP-01", body.Producto.Code)
	assert.Equal(t, 24.5, body.Producto.Price)
	assert.Equal(t, 1, broadcaster.calls, "mutation pushes the catalog to realtime clients")
}

func TestCreateProduct_MissingField(t *testing.T) {
	products := new(mockProductRepo)
	srv := newTestServer(t, products, new(mockCartRepo), nil)

	tests := []struct {
		payload string
		want    string
	}{
		{`{"description":"no title","code":"X-01","price":1,"status":true,"stock":1,"category":"misc","drop":1}`, "title is required"},
		{`{"title":"Cap","description":"d","code":"X-01","price":1,"stock":1,"category":"misc","drop":1}`, "status is required"},
		{`{"title":"Cap","description":"d","code":"X-01","price":1,"status":true,"stock":1,"category":"misc"}`, "drop is required"},
	}

	for _, tt := range tests {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/products", tt.payload)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, tt.want, body["error"])
	}
}

func TestCreateProduct_DuplicateCode(t *testing.T) {
	products := new(mockProductRepo)
	srv := newTestServer(t, products, new(mockCartRepo), nil)

	products.On("CodeInUse", mock.Anything, "HW-HOOD-01", "").Return(true, nil)

	payload := `{"title":"Hoodie","description":"d","code":"HW-HOOD-01","price":1,"status":true,"stock":1,"category":"hoodies","drop":1}`
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/products", payload)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Contains(t, body["error"], "HW-HOOD-01")
}

func TestUpdateProduct_Success(t *testing.T) {
	products := new(mockProductRepo)
	broadcaster := &recordingBroadcaster{}
	srv := newTestServer(t, products, new(mockCartRepo), broadcaster)

	existing := sampleProduct()
	products.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	products.On("Update", mock.Anything, mock.AnythingOfType("*domain.Product")).Return(nil)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/products/"+existing.ID, `{"price":59.9}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ProductMutationResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "product updated", body.Mensaje)
	assert.Equal(t, 59.9, body.Producto.Price)
	assert.Equal(t, 1, broadcaster.calls)
}

func TestDeleteProduct_ReturnsRemovedRow(t *testing.T) {
	products := new(mockProductRepo)
	srv := newTestServer(t, products, new(mockCartRepo), nil)

	removed := sampleProduct()
	products.On("Delete", mock.Anything, removed.ID).Return(removed, nil)

	resp := doJSON(t, http.MethodDelete, srv.URL+"/api/products/"+removed.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ProductDeletedResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "product deleted", body.Mensaje)
	require.NotNil(t, body.Eliminado)
	assert.Equal(t, removed.ID, body.Eliminado.ID)
}

func TestCurrentDrop(t *testing.T) {
	products := new(mockProductRepo)
	srv := newTestServer(t, products, new(mockCartRepo), nil)

	p1 := *sampleProduct()
	p1.Drop = 2
	p2 := *sampleProduct()
	p2.ID = "prod-2"
	p2.Drop = 4

	products.On("GetAll", mock.Anything).Return([]domain.Product{p1, p2}, nil)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/products/drops/current", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body CurrentDropResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, 4.0, body.Drop)
	require.Len(t, body.Payload, 1)
	assert.Equal(t, "prod-2", body.Payload[0].ID)
}

func TestContentTypeJSON_Rejected(t *testing.T) {
	srv := newTestServer(t, new(mockProductRepo), new(mockCartRepo), nil)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/products", strings.NewReader("title=x"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}
