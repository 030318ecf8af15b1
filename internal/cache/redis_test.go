package cache

import (
	"context"
	"testing"
	"time"

	"fieldtrack/internal/logging"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newMemoryCache(at time.Time) (*Cache, *time.Time) {
	current := at
	c := New("", logging.Nop())
	c.now = func() time.Time { return current }
	return c, &current
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newMemoryCache(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	in := payload{Name: "u1", Count: 3}
	if err := c.Set(ctx, "loc:last:u1", in, time.Minute); err != nil {
		t.Fatal(err)
	}

	var out payload
	hit, err := c.Get(ctx, "loc:last:u1", &out)
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Fatal("fresh key missed")
	}
	if out != in {
		t.Errorf("Get = %+v, want %+v", out, in)
	}
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, current := newMemoryCache(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	if err := c.Set(ctx, "loc:last:u1", payload{}, time.Minute); err != nil {
		t.Fatal(err)
	}
	*current = current.Add(2 * time.Minute)

	var out payload
	hit, err := c.Get(ctx, "loc:last:u1", &out)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("expired key still served")
	}

	if n := c.EvictExpired(); n != 1 {
		t.Errorf("EvictExpired() = %d, want 1", n)
	}
}

func TestCacheDelete(t *testing.T) {
	ctx := context.Background()
	c, _ := newMemoryCache(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	if err := c.Set(ctx, "loc:live:u1", payload{}, time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "loc:live:u1"); err != nil {
		t.Fatal(err)
	}

	var out payload
	if hit, _ := c.Get(ctx, "loc:live:u1", &out); hit {
		t.Error("deleted key still served")
	}
}

func TestCacheClearPrefix(t *testing.T) {
	ctx := context.Background()
	c, _ := newMemoryCache(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	keys := []string{"loc:last:u1", "loc:live:u1", "other:u1"}
	for _, key := range keys {
		if err := c.Set(ctx, key, payload{}, time.Minute); err != nil {
			t.Fatal(err)
		}
	}

	cleared, err := c.ClearPrefix(ctx, "loc:")
	if err != nil {
		t.Fatal(err)
	}
	if cleared != 2 {
		t.Errorf("ClearPrefix cleared %d keys, want 2", cleared)
	}

	var out payload
	if hit, _ := c.Get(ctx, "other:u1", &out); !hit {
		t.Error("key outside the prefix was cleared")
	}
}
