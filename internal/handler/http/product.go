package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mbenites/dropstore/internal/domain"
	"github.com/mbenites/dropstore/internal/query"
	"github.com/mbenites/dropstore/internal/service"
	"github.com/mbenites/dropstore/pkg/httputil"
)

// productsBasePath is the base used when building pagination links.
const productsBasePath = "/api/products"

// CatalogBroadcaster pushes the refreshed catalog to realtime clients after a
// mutation. A nil broadcaster disables push notifications.
type CatalogBroadcaster interface {
	BroadcastCatalog(ctx context.Context)
}

// ProductHandler handles HTTP requests for catalog endpoints.
type ProductHandler struct {
	service     *service.CatalogService
	broadcaster CatalogBroadcaster
	logger      *slog.Logger
}

// NewProductHandler creates a new catalog HTTP handler.
func NewProductHandler(svc *service.CatalogService, broadcaster CatalogBroadcaster, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service:     svc,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (h *ProductHandler) notifyCatalogChanged(ctx context.Context) {
	if h.broadcaster != nil {
		h.broadcaster.BroadcastCatalog(ctx)
	}
}

// ListProductsResponse is the paginated catalog envelope. Field names are
// part of the public wire contract consumed by storefront clients.
type ListProductsResponse struct {
	Status      string           `json:"status"`
	Payload     []domain.Product `json:"payload"`
	TotalPages  int              `json:"totalPages"`
	PrevPage    *int             `json:"prevPage"`
	NextPage    *int             `json:"nextPage"`
	Page        int              `json:"page"`
	HasPrevPage bool             `json:"hasPrevPage"`
	HasNextPage bool             `json:"hasNextPage"`
	PrevLink    *string          `json:"prevLink"`
	NextLink    *string          `json:"nextLink"`
}

// ProductResponse wraps a single product.
type ProductResponse struct {
	Producto *domain.Product `json:"producto"`
}

// ProductMutationResponse reports a successful create or update.
type ProductMutationResponse struct {
	Mensaje  string          `json:"mensaje"`
	Producto *domain.Product `json:"producto"`
}

// ProductDeletedResponse reports a successful delete with the removed row.
type ProductDeletedResponse struct {
	Mensaje   string          `json:"mensaje"`
	Eliminado *domain.Product `json:"eliminado"`
}

// CurrentDropResponse carries the newest release cohort.
type CurrentDropResponse struct {
	Drop    float64          `json:"drop"`
	Payload []domain.Product `json:"payload"`
}

// ListProducts handles GET /api/products.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	params := query.Parse(r.URL.Query())

	products, plan, err := h.service.ListProducts(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	prevLink, nextLink := query.Links(productsBasePath, params, plan)

	httputil.WriteJSON(w, http.StatusOK, ListProductsResponse{
		Status:      "success",
		Payload:     products,
		TotalPages:  plan.TotalPages,
		PrevPage:    plan.PrevPage,
		NextPage:    plan.NextPage,
		Page:        plan.Page,
		HasPrevPage: plan.HasPrev,
		HasNextPage: plan.HasNext,
		PrevLink:    prevLink,
		NextLink:    nextLink,
	})
}

// GetProduct handles GET /api/products/{pid}.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	pid := chi.URLParam(r, "pid")

	product, err := h.service.GetProduct(r.Context(), pid)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ProductResponse{Producto: product})
}

// CreateProduct handles POST /api/products.
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var input service.CreateProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Error: "invalid request body: " + err.Error()})
		return
	}

	product, err := h.service.CreateProduct(r.Context(), &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.notifyCatalogChanged(r.Context())

	httputil.WriteJSON(w, http.StatusCreated, ProductMutationResponse{
		Mensaje:  "product created",
		Producto: product,
	})
}

// UpdateProduct handles PUT /api/products/{pid}.
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	pid := chi.URLParam(r, "pid")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var input service.UpdateProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Error: "invalid request body: " + err.Error()})
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), pid, &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.notifyCatalogChanged(r.Context())

	httputil.WriteJSON(w, http.StatusOK, ProductMutationResponse{
		Mensaje:  "product updated",
		Producto: product,
	})
}

// DeleteProduct handles DELETE /api/products/{pid}.
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	pid := chi.URLParam(r, "pid")

	removed, err := h.service.DeleteProduct(r.Context(), pid)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.notifyCatalogChanged(r.Context())

	httputil.WriteJSON(w, http.StatusOK, ProductDeletedResponse{
		Mensaje:   "product deleted",
		Eliminado: removed,
	})
}

// CurrentDrop handles GET /api/products/drops/current.
func (h *ProductHandler) CurrentDrop(w http.ResponseWriter, r *http.Request) {
	drop, products, err := h.service.CurrentDrop(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, CurrentDropResponse{
		Drop:    drop,
		Payload: products,
	})
}
