package cache

import (
	"bytes"
	"testing"
	"time"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func newTestCache() (*Cache, *clock) {
	clk := &clock{t: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)}
	c := New()
	c.now = clk.now
	return c, clk
}

func TestKeyFor(t *testing.T) {
	tests := []struct {
		name  string
		a, b  []byte
		equal bool
	}{
		{
			name:  "different id",
			a:     []byte{0xAB, 0xCD, 1, 0, 0, 1, 3, 'f', 'o', 'o', 0},
			b:     []byte{0x12, 0x34, 1, 0, 0, 1, 3, 'f', 'o', 'o', 0},
			equal: true,
		},
		{
			name:  "different flags",
			a:     []byte{0xAB, 0xCD, 1, 0, 0, 1},
			b:     []byte{0xAB, 0xCD, 0, 0, 0, 1},
			equal: false,
		},
		{
			name:  "different name",
			a:     []byte{0, 1, 3, 'f', 'o', 'o', 0},
			b:     []byte{0, 1, 3, 'b', 'a', 'r', 0},
			equal: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeyFor(tt.a) == KeyFor(tt.b); got != tt.equal {
				t.Errorf("KeyFor() equal = %v, want %v", got, tt.equal)
			}
		})
	}

	if KeyFor([]byte{1}) != "" {
		t.Error("KeyFor() of a one byte message should be empty")
	}
}

func TestGetInsert(t *testing.T) {
	c, clk := newTestCache()
	key := KeyFor([]byte{0, 1, 2, 3})

	if _, ok := c.Get(key); ok {
		t.Fatal("Get() hit on an empty cache")
	}

	c.Insert(key, []byte{1})
	clk.t = clk.t.Add(time.Second)
	c.Insert(key, []byte{2})

	e, ok := c.Get(key)
	if !ok {
		t.Fatal("Get() missed after Insert()")
	}
	if !bytes.Equal(e.Payload, []byte{2}) || !e.At.Equal(clk.t) {
		t.Errorf("Get() = %+v, want the overwritten entry", e)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestInvalidate(t *testing.T) {
	const ttl = time.Hour

	tests := []struct {
		name    string
		elapse  time.Duration
		ttl     time.Duration
		force   bool
		present bool
	}{
		{name: "within ttl", elapse: ttl - time.Second, ttl: ttl, force: true, present: true},
		{name: "exactly ttl", elapse: ttl, ttl: ttl, force: true, present: true},
		{name: "past ttl", elapse: ttl + time.Second, ttl: ttl, force: true, present: false},
		{name: "not forced", elapse: ttl + time.Second, ttl: ttl, force: false, present: true},
		{name: "caching disabled", elapse: 0, ttl: 0, force: true, present: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, clk := newTestCache()
			key := KeyFor([]byte{0, 1, 2, 3})
			c.Insert(key, []byte{4})

			clk.t = clk.t.Add(tt.elapse)
			removed := c.Invalidate(tt.ttl, tt.force)

			if _, ok := c.Get(key); ok != tt.present {
				t.Errorf("Get() after Invalidate() present = %v, want %v", ok, tt.present)
			}
			if (removed == 0) != tt.present {
				t.Errorf("Invalidate() removed = %d", removed)
			}
		})
	}
}

func TestInvalidateKeepsFresh(t *testing.T) {
	c, clk := newTestCache()
	c.Insert("old", []byte{1})
	clk.t = clk.t.Add(30 * time.Minute)
	c.Insert("new", []byte{2})
	clk.t = clk.t.Add(45 * time.Minute)

	if removed := c.Invalidate(time.Hour, true); removed != 1 {
		t.Errorf("Invalidate() removed = %d, want 1", removed)
	}
	if _, ok := c.Get("old"); ok {
		t.Error("stale entry survived")
	}
	if _, ok := c.Get("new"); !ok {
		t.Error("fresh entry removed")
	}
}
