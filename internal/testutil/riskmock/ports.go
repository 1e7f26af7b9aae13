package riskmock

import (
	"context"
	"errors"
	"sync"
	"time"

	domain "p2p-lending-backend/internal/domain/risk"
)

var (
	_ domain.ChainGateway    = (*Gateway)(nil)
	_ domain.InferenceClient = (*Inference)(nil)
	_ domain.AssessmentCache = (*MemoryCache)(nil)
)

var errUnimplemented = errors.New("riskmock: method not implemented")

// Gateway is a function-backed mock of risk.ChainGateway.
type Gateway struct {
	Calls      int
	SnapshotFn func(ctx context.Context, address string) (*domain.AccountSnapshot, error)
}

func (g *Gateway) GetAccountSnapshot(ctx context.Context, address string) (*domain.AccountSnapshot, error) {
	g.Calls++
	if g.SnapshotFn != nil {
		return g.SnapshotFn(ctx, address)
	}
	return nil, errUnimplemented
}

// Inference is a function-backed mock of risk.InferenceClient. Calls is
// incremented atomically-enough for single-flight tests (guarded by mu).
type Inference struct {
	mu         sync.Mutex
	Calls      int
	CompleteFn func(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

func (i *Inference) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	i.mu.Lock()
	i.Calls++
	i.mu.Unlock()
	if i.CompleteFn != nil {
		return i.CompleteFn(ctx, prompt, temperature, maxTokens)
	}
	return "", errUnimplemented
}

func (i *Inference) CallCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.Calls
}

type memoryEntry struct {
	a         domain.Assessment
	expiresAt time.Time
}

// MemoryCache is an in-memory risk.AssessmentCache honoring TTLs against a
// swappable clock, so tests can fast-forward expiry.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	Now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), Now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*domain.Assessment, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.Now().After(e.expiresAt) {
		return nil, false, nil
	}
	a := e.a
	return &a, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, a *domain.Assessment, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{a: *a, expiresAt: c.Now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
