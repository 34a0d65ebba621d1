package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/bobmcallan/events-portal/internal/interfaces"
)

func TestKVStorage_RoundTrip(t *testing.T) {
	kv := NewKVStorage()
	ctx := context.Background()

	if _, err := kv.Get(ctx, "k"); !errors.Is(err, interfaces.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	kv.Set(ctx, "k", "v")
	val, err := kv.Get(ctx, "k")
	if err != nil || val != "v" {
		t.Fatalf("expected v, got %q (%v)", val, err)
	}

	all, _ := kv.GetAll(ctx)
	all["k"] = "mutated"
	if val, _ := kv.Get(ctx, "k"); val != "v" {
		t.Error("GetAll must return a copy")
	}

	kv.Delete(ctx, "k")
	kv.Delete(ctx, "k")
	if _, err := kv.Get(ctx, "k"); !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
