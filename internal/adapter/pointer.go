package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	id "condo/pkg/domain"
)

// PointerStore persists the address of the active backend so a restarted
// process resumes forwarding to it. Load returns "" when nothing was saved.
type PointerStore interface {
	Load(ctx context.Context) (id.Address, error)
	Save(ctx context.Context, address id.Address) error
}

// MemoryPointer keeps the pointer for the lifetime of the process.
type MemoryPointer struct {
	mu      sync.Mutex
	address id.Address
}

func (p *MemoryPointer) Load(context.Context) (id.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.address, nil
}

func (p *MemoryPointer) Save(_ context.Context, address id.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.address = address
	return nil
}

// DefaultPointerKey is the Redis key holding the pointer of an adapter owned
// by owner.
func DefaultPointerKey(owner id.ParticipantID) string {
	return "condo:adapter:" + string(owner) + ":impl"
}

// RedisPointer stores the pointer under a single Redis key.
type RedisPointer struct {
	client *redis.Client
	key    string
}

func NewRedisPointer(client *redis.Client, key string) *RedisPointer {
	return &RedisPointer{client: client, key: key}
}

func (p *RedisPointer) Load(ctx context.Context) (id.Address, error) {
	v, err := p.client.Get(ctx, p.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load adapter pointer: %w", err)
	}
	return id.Address(v), nil
}

func (p *RedisPointer) Save(ctx context.Context, address id.Address) error {
	if err := p.client.Set(ctx, p.key, string(address), 0).Err(); err != nil {
		return fmt.Errorf("save adapter pointer: %w", err)
	}
	return nil
}
