package blob

import (
	"context"
	"testing"

	cferrors "github.com/colisflow/colisflow/pkg/errors"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Put(ctx, "a/b.xlsx", []byte("v1"), true); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := store.Get(ctx, "a/b.xlsx")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "v1" {
		t.Errorf("Get = %q", data)
	}

	exists, err := store.Exists(ctx, "a/b.xlsx")
	if err != nil || !exists {
		t.Errorf("Exists = %v, %v", exists, err)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "missing")
	if !cferrors.IsCode(err, cferrors.CodeBlobNotFound) {
		t.Fatalf("err = %v, want blob not found", err)
	}
}

func TestMemoryStorePutNoOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Put(ctx, "k", []byte("first"), true); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "k", []byte("second"), false); err != nil {
		t.Fatalf("Put without overwrite: %v", err)
	}
	data, _ := store.Get(ctx, "k")
	if string(data) != "first" {
		t.Errorf("Get = %q, want original preserved", data)
	}

	if err := store.Put(ctx, "k", []byte("second"), true); err != nil {
		t.Fatalf("Put with overwrite: %v", err)
	}
	data, _ = store.Get(ctx, "k")
	if string(data) != "second" {
		t.Errorf("Get = %q, want overwritten", data)
	}
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Put(ctx, "site/20250405/a.xlsx", nil, true)
	store.Put(ctx, "site/20250405/b.xlsx", nil, true)
	store.Put(ctx, "site/20250406/a.xlsx", nil, true)

	paths, err := store.List(ctx, "site/20250405/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("List = %v", paths)
	}
	if paths[0] != "site/20250405/a.xlsx" {
		t.Errorf("paths not sorted: %v", paths)
	}
}
