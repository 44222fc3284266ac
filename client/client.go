// Package client is a Go API client for the shop service. It owns the cart
// session the way a storefront does: the active cart id is cached locally and
// reconciled against the server before every use.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mbenites/dropstore/internal/domain"
	"github.com/mbenites/dropstore/pkg/httpclient"
)

// Client talks to the shop REST API and keeps the active cart id in a
// CartIDStore.
type Client struct {
	baseURL string
	http    *httpclient.CircuitBreakerClient
	store   CartIDStore
	logger  *slog.Logger

	// OnCartChange is invoked whenever the active cart id changes, so UI
	// references can be repointed. Optional.
	OnCartChange func(id string)
}

// New creates a client with the default retrying HTTP stack and circuit
// breaker.
func New(baseURL string, store CartIDStore, logger *slog.Logger) *Client {
	httpClient := httpclient.New(httpclient.DefaultConfig())
	cb := httpclient.NewCircuitBreakerClient(httpClient, httpclient.DefaultCircuitBreakerConfig("dropstore-api"), logger)
	return NewWithHTTP(baseURL, store, cb, logger)
}

// NewWithHTTP creates a client over a caller-supplied HTTP stack.
func NewWithHTTP(baseURL string, store CartIDStore, httpClient *httpclient.CircuitBreakerClient, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		store:   store,
		logger:  logger,
	}
}

type cartEnvelope struct {
	Carrito *domain.Cart `json:"carrito"`
}

type populatedCartEnvelope struct {
	Carrito *domain.PopulatedCart `json:"carrito"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// apiError decodes the {"error": ...} body into a Go error.
func apiError(resp *http.Response) error {
	var env errorEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&env); err != nil || env.Error == "" {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return fmt.Errorf("api error (%d): %s", resp.StatusCode, env.Error)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(ctx, req)
}

func (c *Client) createCart(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/carts", nil)
	if err != nil {
		return "", fmt.Errorf("create cart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", apiError(resp)
	}

	var env cartEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", fmt.Errorf("decode cart: %w", err)
	}
	if env.Carrito == nil || env.Carrito.ID == "" {
		return "", fmt.Errorf("create cart: response carried no cart id")
	}
	return env.Carrito.ID, nil
}

func (c *Client) adoptCart(id string) {
	if err := c.store.Set(id); err != nil {
		c.logger.Warn("persist cart id failed", slog.String("error", err.Error()))
	}
	if c.OnCartChange != nil {
		c.OnCartChange(id)
	}
}

// EnsureCartID returns a usable cart id. A cached id is verified against the
// server first: a definitive not-found discards it and creates a fresh cart,
// while a transport failure returns the cached id best-effort so an offline
// blip does not orphan the session.
func (c *Client) EnsureCartID(ctx context.Context) (string, error) {
	cached, err := c.store.Get()
	if err != nil {
		c.logger.Warn("read cached cart id failed", slog.String("error", err.Error()))
	}

	if cached != "" {
		resp, err := c.http.Get(ctx, c.baseURL+"/api/carts/"+cached)
		if err != nil {
			c.logger.Warn("cart verification failed, keeping cached id",
				slog.String("cart_id", cached),
				slog.String("error", err.Error()),
			)
			return cached, nil
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			return cached, nil
		}
		if resp.StatusCode != http.StatusNotFound {
			// Not definitive; keep the cached id rather than fork the session.
			return cached, nil
		}

		c.logger.Info("cached cart no longer exists, creating a new one",
			slog.String("cart_id", cached),
		)
		if err := c.store.Clear(); err != nil {
			c.logger.Warn("clear cart id failed", slog.String("error", err.Error()))
		}
	}

	id, err := c.createCart(ctx)
	if err != nil {
		return "", err
	}
	c.adoptCart(id)
	return id, nil
}

// GetCart fetches the active cart with product references resolved.
func (c *Client) GetCart(ctx context.Context) (*domain.PopulatedCart, error) {
	id, err := c.EnsureCartID(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodGet, "/api/carts/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var env populatedCartEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return env.Carrito, nil
}

func (c *Client) mutateCart(ctx context.Context, method, pathSuffix string, body any) (*domain.Cart, error) {
	id, err := c.EnsureCartID(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, method, "/api/carts/"+id+pathSuffix, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var env cartEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return env.Carrito, nil
}

// AddToCart adds one unit of the product, merging into an existing line item.
func (c *Client) AddToCart(ctx context.Context, productID string) (*domain.Cart, error) {
	return c.mutateCart(ctx, http.MethodPost, "/product/"+productID, nil)
}

// AddQuantity adds the given number of units of the product in one call.
func (c *Client) AddQuantity(ctx context.Context, productID string, quantity int) (*domain.Cart, error) {
	return c.mutateCart(ctx, http.MethodPost, "/product/"+productID, map[string]int{"quantity": quantity})
}

// SetQuantity sets the absolute quantity of an existing line item.
func (c *Client) SetQuantity(ctx context.Context, productID string, quantity int) (*domain.Cart, error) {
	return c.mutateCart(ctx, http.MethodPut, "/products/"+productID, map[string]int{"quantity": quantity})
}

// RemoveProduct removes the line item for the product.
func (c *Client) RemoveProduct(ctx context.Context, productID string) (*domain.Cart, error) {
	return c.mutateCart(ctx, http.MethodDelete, "/products/"+productID, nil)
}

// ReplaceProducts swaps the entire cart contents. The server validates every
// product before writing anything.
func (c *Client) ReplaceProducts(ctx context.Context, items []domain.LineItem) (*domain.Cart, error) {
	return c.mutateCart(ctx, http.MethodPut, "", items)
}

// ClearCart removes every line item, keeping the cart.
func (c *Client) ClearCart(ctx context.Context) (*domain.Cart, error) {
	return c.mutateCart(ctx, http.MethodDelete, "", nil)
}
