package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/interfaces"
)

func newTestStore(t *testing.T) *KVStorage {
	t.Helper()
	return NewKVStorage(filepath.Join(t.TempDir(), "nested", "session.json"), common.NewSilentLogger())
}

func TestKVStorage_SetAndGet(t *testing.T) {
	kv := newTestStore(t)
	ctx := context.Background()

	if err := kv.Set(ctx, "auth-storage", `{"token":"abc"}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := kv.Get(ctx, "auth-storage")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != `{"token":"abc"}` {
		t.Errorf("expected stored value, got %q", val)
	}
}

func TestKVStorage_GetMissing(t *testing.T) {
	kv := newTestStore(t)

	_, err := kv.Get(context.Background(), "missing")
	if !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestKVStorage_DeleteIsIdempotent(t *testing.T) {
	kv := newTestStore(t)
	ctx := context.Background()

	if err := kv.Delete(ctx, "missing"); err != nil {
		t.Fatalf("Delete on missing key failed: %v", err)
	}

	kv.Set(ctx, "a", "1")
	kv.Set(ctx, "b", "2")
	if err := kv.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	all, err := kv.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 1 || all["b"] != "2" {
		t.Errorf("unexpected entries after delete: %v", all)
	}
}

func TestKVStorage_FilePermissions(t *testing.T) {
	kv := newTestStore(t)

	if err := kv.Set(context.Background(), "auth-storage", "x"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	info, err := os.Stat(kv.Path())
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}
}

func TestKVStorage_CorruptFileTreatedAsEmpty(t *testing.T) {
	kv := newTestStore(t)
	os.MkdirAll(filepath.Dir(kv.Path()), 0700)
	if err := os.WriteFile(kv.Path(), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := kv.Get(context.Background(), "auth-storage")
	if !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("expected ErrNotFound for corrupt file, got %v", err)
	}

	if err := kv.Set(context.Background(), "auth-storage", "fresh"); err != nil {
		t.Fatalf("Set over corrupt file failed: %v", err)
	}
	val, _ := kv.Get(context.Background(), "auth-storage")
	if val != "fresh" {
		t.Errorf("expected fresh, got %q", val)
	}
}

func TestKVStorage_SharedFileAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()

	first := NewKVStorage(path, common.NewSilentLogger())
	if err := first.Set(ctx, "auth-storage", "shared"); err != nil {
		t.Fatal(err)
	}

	second := NewKVStorage(path, common.NewSilentLogger())
	val, err := second.Get(ctx, "auth-storage")
	if err != nil {
		t.Fatalf("Get from second instance failed: %v", err)
	}
	if val != "shared" {
		t.Errorf("expected shared, got %q", val)
	}
}
