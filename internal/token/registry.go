package token

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Registry tracks issued tokens so logout can revoke a token before its
// natural expiry. A token absent from the registry is treated as logged out
// even when still cryptographically valid.
type Registry interface {
	// Put registers token as belonging to subject.
	Put(ctx context.Context, token, subject string) error
	// Subject returns the owning subject, or "" when the token is not
	// registered.
	Subject(ctx context.Context, token string) (string, error)
	// Remove unregisters a single token.
	Remove(ctx context.Context, token string) error
	// RemoveSubject unregisters every token owned by subject and reports
	// how many were removed.
	RemoveSubject(ctx context.Context, subject string) (int, error)
}

// MemoryRegistry is the process-local registry. It is unbounded and cleared
// on restart, which invalidates all sessions; stateless tokens make that an
// accepted tradeoff.
type MemoryRegistry struct {
	mu       sync.RWMutex
	tokens   map[string]string
	subjects map[string]map[string]struct{}
}

// NewMemoryRegistry constructs an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		tokens:   make(map[string]string),
		subjects: make(map[string]map[string]struct{}),
	}
}

func (r *MemoryRegistry) Put(ctx context.Context, token, subject string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = subject
	set, ok := r.subjects[subject]
	if !ok {
		set = make(map[string]struct{})
		r.subjects[subject] = set
	}
	set[token] = struct{}{}
	return nil
}

func (r *MemoryRegistry) Subject(ctx context.Context, token string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tokens[token], nil
}

func (r *MemoryRegistry) Remove(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(token)
	return nil
}

func (r *MemoryRegistry) RemoveSubject(ctx context.Context, subject string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := len(r.subjects[subject])
	for token := range r.subjects[subject] {
		delete(r.tokens, token)
	}
	delete(r.subjects, subject)
	return removed, nil
}

func (r *MemoryRegistry) remove(token string) {
	subject, ok := r.tokens[token]
	if !ok {
		return
	}
	delete(r.tokens, token)
	if set, ok := r.subjects[subject]; ok {
		delete(set, token)
		if len(set) == 0 {
			delete(r.subjects, subject)
		}
	}
}

var _ Registry = (*MemoryRegistry)(nil)

// RedisRegistry shares the registry across instances so logout is effective
// in multi-instance deployments. Entries carry the token TTL so Redis drops
// them once they could no longer verify anyway.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRegistry constructs a registry over client. Entries expire after
// ttl.
func NewRedisRegistry(client *redis.Client, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, ttl: ttl}
}

func (r *RedisRegistry) Put(ctx context.Context, token, subject string) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.tokenKey(token), subject, r.ttl)
	pipe.SAdd(ctx, r.subjectKey(subject), token)
	pipe.Expire(ctx, r.subjectKey(subject), r.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisRegistry) Subject(ctx context.Context, token string) (string, error) {
	subject, err := r.client.Get(ctx, r.tokenKey(token)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return subject, nil
}

func (r *RedisRegistry) Remove(ctx context.Context, token string) error {
	subject, err := r.Subject(ctx, token)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.tokenKey(token))
	if subject != "" {
		pipe.SRem(ctx, r.subjectKey(subject), token)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisRegistry) RemoveSubject(ctx context.Context, subject string) (int, error) {
	tokens, err := r.client.SMembers(ctx, r.subjectKey(subject)).Result()
	if err != nil && err != redis.Nil {
		return 0, err
	}
	pipe := r.client.TxPipeline()
	for _, token := range tokens {
		pipe.Del(ctx, r.tokenKey(token))
	}
	pipe.Del(ctx, r.subjectKey(subject))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return len(tokens), nil
}

func (r *RedisRegistry) tokenKey(token string) string {
	return "token:" + token
}

func (r *RedisRegistry) subjectKey(subject string) string {
	return "token_subject:" + subject
}

var _ Registry = (*RedisRegistry)(nil)
