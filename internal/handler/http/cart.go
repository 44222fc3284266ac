package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mbenites/dropstore/internal/domain"
	"github.com/mbenites/dropstore/internal/service"
	"github.com/mbenites/dropstore/pkg/httputil"
	"github.com/mbenites/dropstore/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// CartResponse wraps a raw cart after a mutation.
type CartResponse struct {
	Mensaje string       `json:"mensaje"`
	Carrito *domain.Cart `json:"carrito"`
}

// PopulatedCartResponse wraps a cart read with resolved products.
type PopulatedCartResponse struct {
	Carrito *domain.PopulatedCart `json:"carrito"`
}

// UpdateQuantityRequest is the body for setting a line item quantity.
type UpdateQuantityRequest struct {
	Quantity *domain.Number `json:"quantity" validate:"required"`
}

// AddProductRequest is the optional body for adding a product to a cart.
// An empty body adds a single unit.
type AddProductRequest struct {
	Quantity *domain.Number `json:"quantity"`
}

// CreateCart handles POST /api/carts.
func (h *CartHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.CreateCart(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, CartResponse{
		Mensaje: "cart created",
		Carrito: cart,
	})
}

// GetCart handles GET /api/carts/{cid}. Product references are resolved at
// read time; stale references render with a null product.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")

	cart, err := h.service.GetCart(r.Context(), cid)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, PopulatedCartResponse{Carrito: cart})
}

// AddProduct handles POST /api/carts/{cid}/product/{pid}. The body may carry
// a quantity; without one, a single unit is added.
func (h *CartHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	pid := chi.URLParam(r, "pid")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req AddProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Error: "invalid request body: " + err.Error()})
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = int(*req.Quantity)
	}

	cart, err := h.service.AddProduct(r.Context(), cid, pid, quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, CartResponse{
		Mensaje: "product added to cart",
		Carrito: cart,
	})
}

// ReplaceProducts handles PUT /api/carts/{cid}. The body is a JSON array of
// line items; the replacement is all-or-nothing.
func (h *CartHandler) ReplaceProducts(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var inputs []service.ReplaceItemInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Error: "request body must be a JSON array of cart items"})
		return
	}

	cart, err := h.service.ReplaceProducts(r.Context(), cid, inputs)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, CartResponse{
		Mensaje: "cart updated",
		Carrito: cart,
	})
}

// UpdateQuantity handles PUT /api/carts/{cid}/products/{pid}.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	pid := chi.URLParam(r, "pid")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{Error: "invalid request body: " + err.Error()})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.UpdateQuantity(r.Context(), cid, pid, int(*req.Quantity))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, CartResponse{
		Mensaje: "quantity updated",
		Carrito: cart,
	})
}

// RemoveProduct handles DELETE /api/carts/{cid}/products/{pid}.
func (h *CartHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	pid := chi.URLParam(r, "pid")

	cart, err := h.service.RemoveProduct(r.Context(), cid, pid)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, CartResponse{
		Mensaje: "product removed from cart",
		Carrito: cart,
	})
}

// ClearCart handles DELETE /api/carts/{cid}.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")

	cart, err := h.service.ClearCart(r.Context(), cid)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, CartResponse{
		Mensaje: "cart cleared",
		Carrito: cart,
	})
}
