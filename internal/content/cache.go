// Package content provides storage backends for questionnaire content.
//
// This file implements an optional Redis read-through cache over any Store.
// Question content changes rarely relative to how often it is read, so
// resolved nodes are cached per (id, language, gender) with a TTL. Redis
// failures fall through to the inner store; the cache never makes a read
// fail that would otherwise succeed.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/officeappout/out-run-app-sub001/internal/models"
)

// DefaultCacheTTL bounds how stale a cached node may be after a content edit.
const DefaultCacheTTL = 10 * time.Minute

// CachedStore wraps a Store with a Redis read-through cache.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
}

// NewCachedStore wraps inner with a Redis cache. A zero ttl uses DefaultCacheTTL.
func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{inner: inner, client: client, ttl: ttl}
}

// GetFirstQuestion returns the entry node of a partition, from cache when possible.
func (c *CachedStore) GetFirstQuestion(ctx context.Context, partition, language, gender string) (*models.QuestionNode, error) {
	key := "content:entry:" + partition + ":" + language + ":" + gender
	if node := c.lookup(ctx, key); node != nil {
		return node, nil
	}
	node, err := c.inner.GetFirstQuestion(ctx, partition, language, gender)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, node)
	return node, nil
}

// GetQuestion returns a node by id without answers. Not cached: bare-node
// reads are rare and cheap compared to resolved reads.
func (c *CachedStore) GetQuestion(ctx context.Context, questionID string) (*models.QuestionNode, error) {
	return c.inner.GetQuestion(ctx, questionID)
}

// GetQuestionWithAnswers returns a resolved node by id, from cache when possible.
func (c *CachedStore) GetQuestionWithAnswers(ctx context.Context, questionID, language, gender string) (*models.QuestionNode, error) {
	key := "content:question:" + questionID + ":" + language + ":" + gender
	if node := c.lookup(ctx, key); node != nil {
		return node, nil
	}
	node, err := c.inner.GetQuestionWithAnswers(ctx, questionID, language, gender)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, node)
	return node, nil
}

func (c *CachedStore) lookup(ctx context.Context, key string) *models.QuestionNode {
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("content cache lookup failed", "error", err, "key", key)
		}
		return nil
	}
	var node models.QuestionNode
	if err := json.Unmarshal([]byte(data), &node); err != nil {
		slog.Warn("content cache entry corrupt, ignoring", "error", err, "key", key)
		return nil
	}
	return &node
}

func (c *CachedStore) store(ctx context.Context, key string, node *models.QuestionNode) {
	data, err := json.Marshal(node)
	if err != nil {
		slog.Warn("content cache encode failed", "error", err, "key", key)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("content cache write failed", "error", err, "key", key)
	}
}

// Close closes the Redis client and the inner store.
func (c *CachedStore) Close() error {
	if err := c.client.Close(); err != nil {
		slog.Warn("failed to close content cache client", "error", err)
	}
	return c.inner.Close()
}
