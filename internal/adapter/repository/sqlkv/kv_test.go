package sqlkv

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"loan-intake-service/internal/domain/kv"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	st, err := New(db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

func TestStore_SetGetRemove(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, err := st.Get(ctx, "missing"); err != kv.ErrNotFound {
		t.Fatalf("Get missing err = %v, want kv.ErrNotFound", err)
	}

	if err := st.Set(ctx, "draft:s1", []byte("one")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// Overwrite must replace, not duplicate.
	if err := st.Set(ctx, "draft:s1", []byte("two")); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	v, err := st.Get(ctx, "draft:s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(v) != "two" {
		t.Fatalf("Get = %q, want two", v)
	}

	if err := st.Remove(ctx, "draft:s1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := st.Get(ctx, "draft:s1"); err != kv.ErrNotFound {
		t.Fatalf("after remove err = %v, want kv.ErrNotFound", err)
	}
}

func TestStore_KeysByPrefix(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_ = st.Set(ctx, "pending:s1:id-front", []byte("a"))
	_ = st.Set(ctx, "pending:s1:selfie", []byte("b"))
	_ = st.Set(ctx, "pending:s2:selfie", []byte("c"))

	keys, err := st.Keys(ctx, "pending:s1:")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("len(keys) = %d, want 2 (%v)", len(keys), keys)
	}
}
