package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mbenites/dropstore/internal/domain"
	"github.com/mbenites/dropstore/internal/event"
	"github.com/mbenites/dropstore/internal/query"
	"github.com/mbenites/dropstore/internal/repository"
	apperrors "github.com/mbenites/dropstore/pkg/errors"
)

// CatalogService implements the business logic for catalog operations.
type CatalogService struct {
	repo     repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(repo repository.ProductRepository, producer *event.Producer, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// CreateProductInput holds the parameters for creating a product. Numeric and
// boolean fields use coercing types because payloads frequently originate in
// HTML forms where everything is a string.
type CreateProductInput struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Code        *string           `json:"code"`
	Price       *domain.Number    `json:"price"`
	Status      *domain.Bool      `json:"status"`
	Stock       *domain.Number    `json:"stock"`
	Category    *string           `json:"category"`
	Drop        *domain.Number    `json:"drop"`
	Thumbnails  domain.StringList `json:"thumbnails"`
}

// UpdateProductInput holds the parameters for a partial product update. Nil
// fields are left untouched. The product ID is never updatable; callers strip
// any id field before decoding.
type UpdateProductInput struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Code        *string           `json:"code"`
	Price       *domain.Number    `json:"price"`
	Status      *domain.Bool      `json:"status"`
	Stock       *domain.Number    `json:"stock"`
	Category    *string           `json:"category"`
	Drop        *domain.Number    `json:"drop"`
	Thumbnails  domain.StringList `json:"thumbnails"`
}

func (in *CreateProductInput) validate() error {
	required := []struct {
		name  string
		empty bool
	}{
		{"title", in.Title == nil || strings.TrimSpace(*in.Title) == ""},
		{"description", in.Description == nil || strings.TrimSpace(*in.Description) == ""},
		{"code", in.Code == nil || strings.TrimSpace(*in.Code) == ""},
		{"price", in.Price == nil},
		// Status and drop are presence checks: false and 0 are valid values.
		{"status", in.Status == nil},
		{"stock", in.Stock == nil},
		{"category", in.Category == nil || strings.TrimSpace(*in.Category) == ""},
		{"drop", in.Drop == nil},
	}
	for _, f := range required {
		if f.empty {
			return apperrors.InvalidInput(f.name + " is required")
		}
	}
	if *in.Price < 0 {
		return apperrors.InvalidInput("price must not be negative")
	}
	if *in.Stock < 0 {
		return apperrors.InvalidInput("stock must not be negative")
	}
	return nil
}

// CreateProduct creates a new product. Code uniqueness is pre-checked for a
// friendly error, but the storage constraint remains the authority under
// concurrent creates.
func (s *CatalogService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	code := strings.TrimSpace(*input.Code)

	inUse, err := s.repo.CodeInUse(ctx, code, "")
	if err != nil {
		return nil, fmt.Errorf("check product code: %w", err)
	}
	if inUse {
		return nil, apperrors.AlreadyExists("product", "code", code)
	}

	thumbnails := []string(input.Thumbnails)
	if thumbnails == nil {
		thumbnails = []string{}
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		Title:       *input.Title,
		Description: *input.Description,
		Code:        code,
		Price:       float64(*input.Price),
		Status:      bool(*input.Status),
		Stock:       int(*input.Stock),
		Category:    *input.Category,
		Drop:        float64(*input.Drop),
		Thumbnails:  thumbnails,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := s.producer.PublishProductCreated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("code", product.Code),
	)

	return product, nil
}

// GetProduct retrieves a product by its ID.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// GetAllProducts returns the whole catalog.
func (s *CatalogService) GetAllProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all products: %w", err)
	}
	return products, nil
}

// ListProducts compiles the query into a predicate, plans pagination against
// the matching total, and returns the requested page.
func (s *CatalogService) ListProducts(ctx context.Context, params query.Params) ([]domain.Product, query.Plan, error) {
	filter := params.Filter()

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, query.Plan{}, fmt.Errorf("count products: %w", err)
	}

	plan := query.Paginate(total, params)

	products, err := s.repo.List(ctx, filter, params.Sort, params.Limit, plan.Skip)
	if err != nil {
		return nil, query.Plan{}, fmt.Errorf("list products: %w", err)
	}

	return products, plan, nil
}

// UpdateProduct applies partial updates to an existing product.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input *UpdateProductInput) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, apperrors.InvalidInput("title must not be empty")
		}
		product.Title = *input.Title
	}

	if input.Description != nil {
		product.Description = *input.Description
	}

	if input.Code != nil {
		code := strings.TrimSpace(*input.Code)
		if code == "" {
			return nil, apperrors.InvalidInput("code must not be empty")
		}
		if code != product.Code {
			inUse, err := s.repo.CodeInUse(ctx, code, id)
			if err != nil {
				return nil, fmt.Errorf("check product code: %w", err)
			}
			if inUse {
				return nil, apperrors.AlreadyExists("product", "code", code)
			}
		}
		product.Code = code
	}

	if input.Price != nil {
		if *input.Price < 0 {
			return nil, apperrors.InvalidInput("price must not be negative")
		}
		product.Price = float64(*input.Price)
	}

	if input.Status != nil {
		product.Status = bool(*input.Status)
	}

	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, apperrors.InvalidInput("stock must not be negative")
		}
		product.Stock = int(*input.Stock)
	}

	if input.Category != nil {
		product.Category = *input.Category
	}

	if input.Drop != nil {
		product.Drop = float64(*input.Drop)
	}

	if input.Thumbnails != nil {
		product.Thumbnails = input.Thumbnails
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	if err := s.producer.PublishProductUpdated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID),
	)

	return product, nil
}

// DeleteProduct removes a product by its ID and returns the removed row.
// Carts holding the product keep their line items; the reference simply stops
// resolving on populated reads.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) (*domain.Product, error) {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete product: %w", err)
	}

	if err := s.producer.PublishProductDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", id),
	)

	return removed, nil
}

// CurrentDrop returns the highest drop tag in the catalog and its products.
// An empty catalog yields drop 0 and an empty list.
func (s *CatalogService) CurrentDrop(ctx context.Context) (float64, []domain.Product, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("list all products: %w", err)
	}

	drop, members, ok := domain.CurrentDrop(products)
	if !ok {
		return 0, []domain.Product{}, nil
	}
	return drop, members, nil
}
