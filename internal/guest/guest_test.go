package guest

import (
	"context"
	"testing"
	"time"

	"github.com/comanda-pos/client/internal/cache"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 19, 30, 0, 0, time.UTC)
}

func TestGetOrCreateIsStable(t *testing.T) {
	p := NewProvider(cache.NewMemory(), fixedNow)
	ctx := context.Background()

	first, err := p.GetOrCreate(ctx, "Ana")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if first.ID == "" {
		t.Fatal("empty guest id")
	}
	if first.Name != "Ana" {
		t.Errorf("name = %s, want Ana", first.Name)
	}
	if !first.JoinedAt.Equal(fixedNow()) {
		t.Errorf("joinedAt = %v, want %v", first.JoinedAt, fixedNow())
	}

	// Later calls return the same identity, even with another name.
	second, err := p.GetOrCreate(ctx, "Beto")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if second.ID != first.ID || second.Name != "Ana" {
		t.Errorf("identity regenerated: %+v vs %+v", second, first)
	}
}

func TestIdentitySurvivesProviderRestart(t *testing.T) {
	store := cache.NewMemory()
	ctx := context.Background()

	first, err := NewProvider(store, fixedNow).GetOrCreate(ctx, "Ana")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	again, err := NewProvider(store, fixedNow).GetOrCreate(ctx, "ignored")
	if err != nil {
		t.Fatalf("GetOrCreate after restart: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("id changed across restart: %s vs %s", again.ID, first.ID)
	}
}

func TestResetForgetsIdentity(t *testing.T) {
	store := cache.NewMemory()
	p := NewProvider(store, fixedNow)
	ctx := context.Background()

	first, _ := p.GetOrCreate(ctx, "Ana")
	if err := p.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	next, err := p.GetOrCreate(ctx, "Beto")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if next.ID == first.ID {
		t.Error("identity survived an explicit reset")
	}
	if next.Name != "Beto" {
		t.Errorf("name = %s, want Beto", next.Name)
	}
}
