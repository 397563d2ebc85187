package backends

import (
	"context"
	"testing"

	"github.com/goliatone/go-memoize/cache"
)

func TestNullStoresNothing(t *testing.T) {
	ctx := context.Background()
	n := NewNull()

	if err := n.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	res, err := n.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Status != cache.StatusAbsent {
		t.Errorf("Get after Set = %+v, want absent", res)
	}

	if err := n.Add(ctx, "k", "v", 0); err != nil {
		t.Errorf("Add: %v", err)
	}
	if err := n.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if err := n.SetMany(ctx, map[string]any{"a": 1}, 0); err != nil {
		t.Errorf("SetMany: %v", err)
	}
	if err := n.DeleteMany(ctx, "a", "b"); err != nil {
		t.Errorf("DeleteMany: %v", err)
	}
	if err := n.Clear(ctx); err != nil {
		t.Errorf("Clear: %v", err)
	}

	results, err := n.GetMany(ctx, "a", "b", "c")
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("GetMany returned %d results, want 3", len(results))
	}
	for i, r := range results {
		if r.OK() {
			t.Errorf("result %d = %+v, want absent", i, r)
		}
	}
}
