package adapter

import "testing"

func TestTickCacheSetGet(t *testing.T) {
	c := newTickCache()
	if _, ok := c.get(1); ok {
		t.Fatalf("expected miss on empty cache")
	}

	c.set(1, 1.1000, 1.1002)
	tk, ok := c.get(1)
	if !ok {
		t.Fatalf("expected hit after set")
	}
	if tk.bid != 1.1000 || tk.ask != 1.1002 {
		t.Fatalf("unexpected tick: %+v", tk)
	}
}

func TestTickCacheShardIsolation(t *testing.T) {
	c := newTickCache()
	for id := int64(0); id < 200; id++ {
		c.set(id, float64(id), float64(id)+0.0001)
	}
	for id := int64(0); id < 200; id++ {
		tk, ok := c.get(id)
		if !ok || tk.bid != float64(id) {
			t.Fatalf("symbol %d: expected bid %v, got %+v (ok=%v)", id, id, tk, ok)
		}
	}
}

func TestLooksRateLimited(t *testing.T) {
	cases := map[string]bool{
		"too many requests":           true,
		"429 Too Many Requests":       true,
		"rate limit exceeded":         true,
		"FREQUENCY cap hit":           true,
		"symbol not found":            false,
		"connection reset by peer":    false,
	}
	for msg, want := range cases {
		if got := looksRateLimited(msg); got != want {
			t.Errorf("looksRateLimited(%q) = %v, want %v", msg, got, want)
		}
	}
}
