// Package guest issues the stable anonymous identity for a table
// occupant. The identity lives for the browsing session and is never
// regenerated once created, so a guest's orders cannot become orphaned
// mid-session.
package guest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/comanda-pos/client/internal/cache"
)

const storeKey = "guest:identity"

// Identity is the anonymous guest. Immutable after creation.
type Identity struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}

// Provider hands out the session's Identity. Safe for concurrent use.
type Provider struct {
	mu       sync.Mutex
	store    cache.Store
	now      func() time.Time
	identity *Identity
}

// NewProvider creates a Provider backed by store. now is injected so
// tests control JoinedAt.
func NewProvider(store cache.Store, now func() time.Time) *Provider {
	if now == nil {
		now = time.Now
	}
	return &Provider{store: store, now: now}
}

// GetOrCreate returns the session identity, creating it on first call.
// name is only used at creation time; later calls ignore it. Idempotent.
func (p *Provider) GetOrCreate(ctx context.Context, name string) (Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.identity != nil {
		return *p.identity, nil
	}

	// A previous run of this session may have persisted one already.
	if raw, err := p.store.Get(ctx, storeKey); err == nil {
		var id Identity
		if err := json.Unmarshal(raw, &id); err == nil && id.ID != "" {
			p.identity = &id
			return id, nil
		}
	} else if !errors.Is(err, cache.ErrNotFound) {
		return Identity{}, fmt.Errorf("load guest identity: %w", err)
	}

	id := Identity{
		ID:       uuid.NewString(),
		Name:     name,
		JoinedAt: p.now(),
	}
	raw, err := json.Marshal(id)
	if err != nil {
		return Identity{}, fmt.Errorf("encode guest identity: %w", err)
	}
	if err := p.store.Set(ctx, storeKey, raw); err != nil {
		return Identity{}, fmt.Errorf("persist guest identity: %w", err)
	}
	p.identity = &id
	return id, nil
}

// Reset forgets the identity. Only called when the guest explicitly
// leaves the table.
func (p *Provider) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identity = nil
	return p.store.Delete(ctx, storeKey)
}
