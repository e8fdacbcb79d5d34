// Package dedupe implements a Redis-backed idempotent processor agent:
// every record is hashed to a dedup key, and a record whose key was already
// seen within the configured window is absorbed with no output instead of
// being forwarded downstream twice. Grounded on the teacher's
// internal/service/ratelimiter/redis_lua_limiter.go for the go-redis/v9
// client wiring and key-scoping conventions.
package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/langstream-go/pod-runtime/internal/domain"
)

// ClassName is the registry key this agent is built under.
const ClassName = "builtin.dedupe"

// Agent processes each input record exactly once per TTL window: a record
// whose dedup key was already marked within the window is absorbed with an
// empty derived batch; otherwise it is marked and forwarded unchanged.
type Agent struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
}

// config mirrors agent.configuration.* for this agent, passed verbatim
// from the pipeline descriptor.
type config struct {
	RedisAddr string `json:"redisAddr"`
	KeyPrefix string `json:"keyPrefix"`
	TTLSecs   int    `json:"ttlSeconds"`
}

// New constructs an un-initialized Agent; Init supplies the Redis
// connection details from the pipeline descriptor. Matches the
// registry.Constructor signature so it can be registered directly.
func New(context.Context, map[string]any) (domain.Agent, error) {
	return &Agent{}, nil
}

// Capabilities reports this agent fills only the processor role.
func (a *Agent) Capabilities() domain.Capability { return domain.CapProcess }

// Init parses cfg into a redis.Client and dedup window.
func (a *Agent) Init(_ context.Context, cfg map[string]any) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("dedupe: marshal configuration: %w", err)
	}
	var c config
	if err := json.Unmarshal(raw, &c); err != nil {
		return fmt.Errorf("dedupe: parse configuration: %w", err)
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("dedupe: configuration.redisAddr is required")
	}
	if c.TTLSecs <= 0 {
		c.TTLSecs = 300
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "dedupe"
	}

	a.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	a.ttl = time.Duration(c.TTLSecs) * time.Second
	a.prefix = c.KeyPrefix
	return nil
}

// Close releases the Redis connection.
func (a *Agent) Close() error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}

// Process dedups batch against Redis: the first occurrence of a key within
// the TTL window is forwarded unchanged; later occurrences are absorbed
// with an empty derived batch, per spec.md §4.3 step 4's "absorbed with no
// output" case.
func (a *Agent) Process(ctx context.Context, batch domain.Batch) ([]domain.ProcessingResult, error) {
	out := make([]domain.ProcessingResult, len(batch))
	for i, rec := range batch {
		key := a.prefix + ":" + keyFor(rec)
		set, err := a.redis.SetNX(ctx, key, 1, a.ttl).Result()
		if err != nil {
			out[i] = domain.ProcessingResult{Source: rec, Err: fmt.Errorf("dedupe: redis setnx: %w", err)}
			continue
		}
		if set {
			out[i] = domain.ProcessingResult{Source: rec, Derived: domain.Batch{rec}}
		} else {
			out[i] = domain.ProcessingResult{Source: rec}
		}
	}
	return out, nil
}

// keyFor derives a stable dedup key from a record's key if present,
// falling back to a hash of its JSON-encoded payload.
func keyFor(rec *domain.Record) string {
	if len(rec.Key) > 0 {
		return hex.EncodeToString(rec.Key)
	}
	b, err := json.Marshal(rec.Payload)
	if err != nil {
		b = []byte(fmt.Sprintf("%v", rec.Payload))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
