package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"ai-doctor/internal/consultation"
)

const analysisCachePrefix = "ai:analysis:"

type cacheStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type redisStore struct {
	client *redis.Client
}

func (s redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// CachedAnalyzer answers repeated prompts from Redis so the same question
// is only paid for once per TTL. Cache failures fall through to the model.
type CachedAnalyzer struct {
	store cacheStore
	ttl   time.Duration
	next  consultation.Analyzer
	log   *zap.Logger
}

func NewCachedAnalyzer(client *redis.Client, ttl time.Duration, next consultation.Analyzer, log *zap.Logger) *CachedAnalyzer {
	return newCachedAnalyzer(redisStore{client: client}, ttl, next, log)
}

func newCachedAnalyzer(store cacheStore, ttl time.Duration, next consultation.Analyzer, log *zap.Logger) *CachedAnalyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedAnalyzer{store: store, ttl: ttl, next: next, log: log}
}

func (c *CachedAnalyzer) Analyze(ctx context.Context, prompt string, image *consultation.Image) (string, error) {
	key := analysisKey(prompt, image)

	if text, ok, err := c.store.Get(ctx, key); err != nil {
		c.log.Warn("analysis cache read failed", zap.Error(err))
	} else if ok {
		c.log.Debug("analysis cache hit", zap.String("key", key))
		return text, nil
	}

	text, err := c.next.Analyze(ctx, prompt, image)
	if err != nil {
		// Errors are never cached; the next request retries the model.
		return "", err
	}
	if err := c.store.Set(ctx, key, text, c.ttl); err != nil {
		c.log.Warn("analysis cache write failed", zap.Error(err))
	}
	return text, nil
}

func analysisKey(prompt string, image *consultation.Image) string {
	h := sha256.New()
	h.Write([]byte(prompt))
	if image != nil {
		h.Write([]byte{0})
		h.Write([]byte(image.MIMEType))
		h.Write([]byte{0})
		h.Write(image.Data)
	}
	return analysisCachePrefix + hex.EncodeToString(h.Sum(nil))
}
