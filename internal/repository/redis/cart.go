package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mbenites/dropstore/internal/domain"
	apperrors "github.com/mbenites/dropstore/pkg/errors"
)

const keyPrefix = "cart:"

// CartRepository implements repository.CartRepository using Redis. Carts are
// stored as JSON documents under cart:<id>, without expiry: a cart lives
// until it is explicitly cleared. Concurrent writers are serialized through
// SaveIfVersion, which performs a compare-and-set on the stored version
// inside a WATCH transaction.
type CartRepository struct {
	client *redis.Client
}

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client *redis.Client) *CartRepository {
	return &CartRepository{
		client: client,
	}
}

// Create persists a brand new cart.
func (r *CartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	if cart.Version == 0 {
		cart.Version = 1
	}

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, keyPrefix+cart.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	return nil
}

// Get retrieves a cart by its ID from Redis.
func (r *CartRepository) Get(ctx context.Context, id string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", id)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}

	return &cart, nil
}

// SaveIfVersion persists the cart only when the stored version still equals
// expectedVersion. A missing key counts as version 0, so a fresh cart saves
// with expectedVersion 0. On success the stored version is expectedVersion+1.
// It returns false without error when another writer got there first.
func (r *CartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	key := keyPrefix + cart.ID
	committed := false

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current := 0
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis get cart: %w", err)
		}
		if err == nil {
			var stored domain.Cart
			if err := json.Unmarshal(data, &stored); err != nil {
				return fmt.Errorf("unmarshal cart: %w", err)
			}
			current = stored.Version
		}

		if current != expectedVersion {
			return nil
		}

		cart.Version = expectedVersion + 1
		cart.UpdatedAt = time.Now().UTC()

		payload, err := json.Marshal(cart)
		if err != nil {
			return fmt.Errorf("marshal cart: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err != nil {
			return err
		}

		committed = true
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// The key changed under us; report a version conflict so callers
		// can re-read and retry.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("save cart: %w", err)
	}

	return committed, nil
}
