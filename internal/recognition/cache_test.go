package recognition

import (
	"bytes"
	"fmt"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestCache(ttl time.Duration, size int) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	c := NewCache(ttl, size)
	c.now = clock.Now
	return c, clock
}

// distinctBuffer varies the sampled bytes so every i gets its own key.
func distinctBuffer(i int) []byte {
	buf := make([]byte, 16)
	buf[0] = byte(i)
	buf[8] = byte(i >> 8)
	return buf
}

// ====== Hash ======

func TestHash_Deterministic(t *testing.T) {
	buf := bytes.Repeat([]byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0}, 1000)
	if Hash(buf) != Hash(append([]byte(nil), buf...)) {
		t.Error("Expected identical buffers to hash identically")
	}
}

func TestHash_Sampling(t *testing.T) {
	small := []byte{0xab, 1, 2, 3, 4, 5, 6, 7, 0x0c}
	if got := Hash(small); got != "ab0c" {
		t.Errorf("Hash(small) = %q, want %q", got, "ab0c")
	}

	// 2048 bytes: only the head is sampled.
	head := make([]byte, 2048)
	if got := len(Hash(head)); got != 128*2 {
		t.Errorf("Expected 128 sampled bytes for 2KB buffer, got %d hex chars", got)
	}

	// Over 2KB the tail is sampled too.
	big := make([]byte, 4096)
	big[len(big)-1024] = 0xff
	h := Hash(big)
	if len(h) != 256*2 {
		t.Fatalf("Expected 256 sampled bytes, got %d hex chars", len(h))
	}
	if h[256:258] != "ff" {
		t.Errorf("Expected tail sample to start with ff, got %q", h[256:258])
	}

	// Bytes between samples do not change the key.
	other := append([]byte(nil), big...)
	other[1] = 0x01
	if Hash(other) != h {
		t.Error("Expected unsampled byte changes to collide")
	}
}

// ====== Get / Set ======

func TestCache_GetAfterSet(t *testing.T) {
	c, _ := newTestCache(5*time.Minute, 100)
	buf := distinctBuffer(1)

	if _, ok := c.Get(buf); ok {
		t.Fatal("Expected miss on empty cache")
	}

	c.Set(buf, FormatResult([]Label{{Keyword: "Coffee Mug", Score: 0.93}}))

	got, ok := c.Get(buf)
	if !ok {
		t.Fatal("Expected hit after set")
	}
	if got.Text != "Coffee Mug (93.0%)" {
		t.Errorf("Unexpected cached text %q", got.Text)
	}
}

func TestCache_ExpiredEntryPurgedOnGet(t *testing.T) {
	c, clock := newTestCache(5*time.Minute, 100)
	buf := distinctBuffer(1)
	c.Set(buf, Result{Text: "Lamp"})

	clock.now = clock.now.Add(5 * time.Minute)
	if _, ok := c.Get(buf); !ok {
		t.Error("Expected hit exactly at TTL")
	}

	clock.now = clock.now.Add(time.Millisecond)
	if _, ok := c.Get(buf); ok {
		t.Error("Expected miss after TTL")
	}
	if c.Len() != 0 {
		t.Errorf("Expected expired entry to be purged, size %d", c.Len())
	}
}

func TestCache_SetPurgesExpired(t *testing.T) {
	c, clock := newTestCache(time.Minute, 100)
	c.Set(distinctBuffer(1), Result{Text: "a"})
	c.Set(distinctBuffer(2), Result{Text: "b"})

	clock.now = clock.now.Add(2 * time.Minute)
	c.Set(distinctBuffer(3), Result{Text: "c"})

	if c.Len() != 1 {
		t.Errorf("Expected only the fresh entry, size %d", c.Len())
	}
}

func TestCache_EvictsOldestInserted(t *testing.T) {
	c, clock := newTestCache(5*time.Minute, 100)

	for i := 0; i < 101; i++ {
		c.Set(distinctBuffer(i), Result{Text: fmt.Sprint(i)})
		clock.now = clock.now.Add(time.Millisecond)
		// Reads must not protect an entry from eviction.
		c.Get(distinctBuffer(0))
	}

	if c.Len() != 100 {
		t.Fatalf("Expected 100 entries, got %d", c.Len())
	}
	if _, ok := c.Get(distinctBuffer(0)); ok {
		t.Error("Expected first inserted entry to be evicted")
	}
	if _, ok := c.Get(distinctBuffer(100)); !ok {
		t.Error("Expected newest entry to be present")
	}
}

func TestCache_ClearAndStats(t *testing.T) {
	c, clock := newTestCache(5*time.Minute, 100)
	first := clock.now

	c.Set(distinctBuffer(1), Result{Text: "a"})
	clock.now = clock.now.Add(time.Second)
	c.Set(distinctBuffer(2), Result{Text: "b"})

	stats := c.Stats()
	if stats.Size != 2 || !stats.Oldest.Equal(first) {
		t.Errorf("Unexpected stats %+v", stats)
	}

	c.Clear()
	if stats := c.Stats(); stats.Size != 0 || !stats.Oldest.IsZero() {
		t.Errorf("Expected empty stats after clear, got %+v", stats)
	}
}

// ====== Formatting ======

func TestFormatResult(t *testing.T) {
	tests := []struct {
		name   string
		labels []Label
		want   string
	}{
		{"top label", []Label{{Keyword: "Coffee Mug", Score: 0.93}, {Keyword: "Cup", Score: 0.4}}, "Coffee Mug (93.0%)"},
		{"rounding", []Label{{Keyword: "Keyboard", Score: 0.8766}}, "Keyboard (87.7%)"},
		{"no score", []Label{{Keyword: "Chair"}}, "Chair"},
		{"no labels", nil, Unrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatResult(tt.labels).Text; got != tt.want {
				t.Errorf("FormatResult() = %q, want %q", got, tt.want)
			}
		})
	}
}
