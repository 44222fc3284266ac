// Package event publishes catalog and cart domain events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mbenites/dropstore/internal/domain"
	pkgkafka "github.com/mbenites/dropstore/pkg/kafka"
)

// Kafka topic constants for domain events.
const (
	TopicProductCreated = "dropstore.product.created"
	TopicProductUpdated = "dropstore.product.updated"
	TopicProductDeleted = "dropstore.product.deleted"
	TopicCartUpdated    = "dropstore.cart.updated"
)

// Aggregate type constants.
const (
	AggregateTypeProduct = "product"
	AggregateTypeCart    = "cart"
)

// Source identifier for events originating from this service.
const Source = "dropstore"

// ProductEventData is the payload for product lifecycle events.
type ProductEventData struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Code     string  `json:"code"`
	Price    float64 `json:"price"`
	Status   bool    `json:"status"`
	Stock    int     `json:"stock"`
	Category string  `json:"category"`
	Drop     float64 `json:"drop"`
}

// ProductDeletedData is the payload for a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	ID        string `json:"id"`
	Version   int    `json:"version"`
	ItemCount int    `json:"item_count"`
}

// Producer publishes domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func productData(p *domain.Product) ProductEventData {
	return ProductEventData{
		ID:       p.ID,
		Title:    p.Title,
		Code:     p.Code,
		Price:    p.Price,
		Status:   p.Status,
		Stock:    p.Stock,
		Category: p.Category,
		Drop:     p.Drop,
	}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	event, err := pkgkafka.NewEvent(TopicProductCreated, product.ID, AggregateTypeProduct, Source, productData(product))
	if err != nil {
		return fmt.Errorf("create product.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductCreated, event); err != nil {
		return fmt.Errorf("publish product.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.created event",
		slog.String("product_id", product.ID),
		slog.String("code", product.Code),
	)

	return nil
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	event, err := pkgkafka.NewEvent(TopicProductUpdated, product.ID, AggregateTypeProduct, Source, productData(product))
	if err != nil {
		return fmt.Errorf("create product.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductUpdated, event); err != nil {
		return fmt.Errorf("publish product.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.updated event",
		slog.String("product_id", product.ID),
	)

	return nil
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, id string) error {
	event, err := pkgkafka.NewEvent(TopicProductDeleted, id, AggregateTypeProduct, Source, ProductDeletedData{ID: id})
	if err != nil {
		return fmt.Errorf("create product.deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductDeleted, event); err != nil {
		return fmt.Errorf("publish product.deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.deleted event",
		slog.String("product_id", id),
	)

	return nil
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	data := CartUpdatedData{
		ID:        cart.ID,
		Version:   cart.Version,
		ItemCount: cart.ItemCount(),
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, cart.ID, AggregateTypeCart, Source, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("cart_id", cart.ID),
		slog.Int("version", cart.Version),
	)

	return nil
}
