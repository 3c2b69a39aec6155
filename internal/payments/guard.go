package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quickmart-dev/quickmart-backend/pkg/redis"
)

// CallbackGuard is the Redis fast path in front of payment callback
// processing. It short-circuits exact redeliveries before they reach the
// database; the conditional update in the orders service remains the
// authoritative idempotency check.
type CallbackGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

// NewCallbackGuard builds a guard with the provided TTL and key scope.
func NewCallbackGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*CallbackGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &CallbackGuard{
		store: store,
		ttl:   ttl,
		scope: scope,
	}, nil
}

// CheckAndMark records the (order, outcome) pair and reports whether this
// delivery was already seen.
func (g *CallbackGuard) CheckAndMark(ctx context.Context, orderID, outcome string) (bool, error) {
	if orderID == "" || outcome == "" {
		return false, errors.New("order id and outcome are required")
	}
	key := g.store.IdempotencyKey(g.scope, orderID+":"+outcome)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Release clears the mark so a failed delivery can be retried.
func (g *CallbackGuard) Release(ctx context.Context, orderID, outcome string) error {
	if orderID == "" || outcome == "" {
		return errors.New("order id and outcome are required")
	}
	key := g.store.IdempotencyKey(g.scope, orderID+":"+outcome)
	return g.store.Del(ctx, key)
}
