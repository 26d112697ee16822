package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/liquidnya/eventsource/internal/storage"
)

func TestNewStore(t *testing.T) {
	t.Run("with nil config", func(t *testing.T) {
		store := NewStore(nil)
		defer store.Close()

		if store.config == nil {
			t.Fatal("expected default config to be used")
		}
	})

	t.Run("with custom config", func(t *testing.T) {
		config := &storage.CheckpointStoreConfig{
			TTL:        time.Minute,
			MaxEntries: 5,
		}
		store := NewStore(config)
		defer store.Close()

		if store.config != config {
			t.Error("expected custom config to be used")
		}
	})
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	defer store.Close()

	if _, ok, err := store.Load(ctx, "http://a/events"); ok || err != nil {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}

	if err := store.Save(ctx, "http://a/events", "42"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	id, ok, err := store.Load(ctx, "http://a/events")
	if err != nil || !ok || id != "42" {
		t.Errorf("Load() = %q, %v, %v; want 42, true, nil", id, ok, err)
	}

	// empty id is a valid checkpoint
	store.Save(ctx, "http://a/events", "")
	id, ok, _ = store.Load(ctx, "http://a/events")
	if !ok || id != "" {
		t.Errorf("Load() = %q, %v; want empty, true", id, ok)
	}

	store.Delete(ctx, "http://a/events")
	if _, ok, _ := store.Load(ctx, "http://a/events"); ok {
		t.Error("expected checkpoint to be deleted")
	}
}

func TestStore_TTL(t *testing.T) {
	ctx := context.Background()
	store := NewStore(&storage.CheckpointStoreConfig{TTL: time.Minute})
	now := time.Now()
	store.now = func() time.Time { return now }

	store.Save(ctx, "k", "1")

	now = now.Add(30 * time.Second)
	if _, ok, _ := store.Load(ctx, "k"); !ok {
		t.Fatal("expected checkpoint within TTL")
	}

	now = now.Add(time.Minute)
	if _, ok, _ := store.Load(ctx, "k"); ok {
		t.Fatal("expected checkpoint to expire")
	}
	if store.Len() != 0 {
		t.Errorf("expected expired entry to be removed, got %d", store.Len())
	}
}

func TestStore_MaxEntries(t *testing.T) {
	ctx := context.Background()
	store := NewStore(&storage.CheckpointStoreConfig{MaxEntries: 3})
	now := time.Now()
	store.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}

	for i := 0; i < 5; i++ {
		store.Save(ctx, fmt.Sprintf("key-%d", i), fmt.Sprint(i))
	}

	if store.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", store.Len())
	}
	if _, ok, _ := store.Load(ctx, "key-0"); ok {
		t.Error("expected oldest entry to be evicted")
	}
	if id, ok, _ := store.Load(ctx, "key-4"); !ok || id != "4" {
		t.Error("expected newest entry to be kept")
	}

	// overwriting an existing key does not evict
	store.Save(ctx, "key-4", "44")
	if store.Len() != 3 {
		t.Errorf("expected 3 entries after overwrite, got %d", store.Len())
	}
}
