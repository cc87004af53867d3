package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(FileStoreConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	ctx := context.Background()
	if err := store.Put(ctx, "ana", "travel_log", []byte(`{"trips":[]}`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get(ctx, "ana", "travel_log")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `{"trips":[]}` {
		t.Fatalf("Get() = %s", got)
	}

	if err := store.Delete(ctx, "ana", "travel_log"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "ana", "travel_log"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get() after delete error = %v, want ErrKeyNotFound", err)
	}
}

func TestFileStoreLayout(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	store, err := NewFileStore(FileStoreConfig{Path: base})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if err := store.Put(context.Background(), "ana", "last_context", []byte(`{}`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	want := filepath.Join(base, "users", "ana", "last_context.json")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected file at %s: %v", want, err)
	}
}

func TestFileStoreRejectsPathEscape(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(FileStoreConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if err := store.Put(context.Background(), "../evil", "key", []byte(`{}`)); err == nil {
		t.Fatal("Put() with path traversal user id should fail")
	}
	if err := store.Put(context.Background(), "ana", "..", []byte(`{}`)); err == nil {
		t.Fatal("Put() with path traversal key should fail")
	}
}

func TestFileStoreMissingUser(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(FileStoreConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if _, err := store.Get(context.Background(), "nadie", "travel_log"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get() error = %v, want ErrKeyNotFound", err)
	}
}
