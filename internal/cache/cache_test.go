package cache

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestResponseCache_GetSet(t *testing.T) {
	c := New(5*time.Second, 100)

	resp := &CachedResponse{
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(`[{"id":1}]`),
	}

	key := MakeKey("42", "GET", "/events")
	c.Set(key, resp)

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", got.StatusCode)
	}
	if string(got.Body) != `[{"id":1}]` {
		t.Errorf("unexpected body: %s", got.Body)
	}
	if got.Headers.Get("Content-Type") != "application/json" {
		t.Errorf("unexpected content-type: %s", got.Headers.Get("Content-Type"))
	}
}

func TestResponseCache_Miss(t *testing.T) {
	c := New(5*time.Second, 100)

	if _, ok := c.Get("nonexistent"); ok {
		t.Error("expected cache miss for nonexistent key")
	}
}

func TestResponseCache_Disabled(t *testing.T) {
	for _, tc := range []struct {
		ttl time.Duration
		max int
	}{{0, 100}, {-time.Second, 100}, {time.Second, 0}} {
		c := New(tc.ttl, tc.max)
		if c != nil {
			t.Fatalf("New(%v, %d) should disable caching", tc.ttl, tc.max)
		}

		// nil cache is usable
		c.Set("k", &CachedResponse{})
		if _, ok := c.Get("k"); ok {
			t.Error("nil cache must never hit")
		}
		c.InvalidatePrefix("/events")
		c.Purge()
		if c.Len() != 0 {
			t.Error("nil cache must report zero length")
		}
	}
}

func TestResponseCache_TTLExpiration(t *testing.T) {
	c := New(50*time.Millisecond, 100)

	key := MakeKey("42", "GET", "/categories")
	c.Set(key, &CachedResponse{StatusCode: http.StatusOK, Body: []byte("data")})

	if _, ok := c.Get(key); !ok {
		t.Fatal("expected cache hit before expiry")
	}

	time.Sleep(80 * time.Millisecond)

	if _, ok := c.Get(key); ok {
		t.Error("expected cache miss after TTL expiration")
	}
}

func TestResponseCache_InvalidatePrefix(t *testing.T) {
	c := New(5*time.Second, 100)
	resp := &CachedResponse{StatusCode: http.StatusOK, Body: []byte("data")}

	c.Set(MakeKey("42", "GET", "/events"), resp)
	c.Set(MakeKey("42", "GET", "/events/7"), resp)
	c.Set(MakeKey("42", "GET", "/events/7/registrations"), resp)
	c.Set(MakeKey("42", "GET", "/categories"), resp)
	c.Set(MakeKey("42", "GET", "/profile/events"), resp)

	c.InvalidatePrefix("/events")

	for _, path := range []string{"/events", "/events/7", "/events/7/registrations"} {
		if _, ok := c.Get(MakeKey("42", "GET", path)); ok {
			t.Errorf("expected %s to be invalidated", path)
		}
	}
	for _, path := range []string{"/categories", "/profile/events"} {
		if _, ok := c.Get(MakeKey("42", "GET", path)); !ok {
			t.Errorf("expected %s to remain in cache", path)
		}
	}
}

func TestResponseCache_InvalidatePrefixAllUsers(t *testing.T) {
	c := New(5*time.Second, 100)
	resp := &CachedResponse{StatusCode: http.StatusOK}

	c.Set(MakeKey("1", "GET", "/events"), resp)
	c.Set(MakeKey("2", "GET", "/events"), resp)

	c.InvalidatePrefix("/events")

	if c.Len() != 0 {
		t.Errorf("expected every user's /events entry to be dropped, %d left", c.Len())
	}
}

func TestResponseCache_Purge(t *testing.T) {
	c := New(5*time.Second, 100)
	resp := &CachedResponse{StatusCode: http.StatusOK}

	c.Set(MakeKey("42", "GET", "/events"), resp)
	c.Set(MakeKey("42", "GET", "/profile"), resp)
	c.Purge()

	if c.Len() != 0 {
		t.Errorf("expected empty cache after purge, got %d entries", c.Len())
	}
}

func TestResponseCache_MaxEntries(t *testing.T) {
	c := New(5*time.Second, 3)
	resp := &CachedResponse{StatusCode: http.StatusOK, Body: []byte("data")}

	c.Set("key1", resp)
	c.Set("key2", resp)
	c.Set("key3", resp)
	c.Set("key4", resp)

	if _, ok := c.Get("key1"); ok {
		t.Error("expected key1 to be evicted (least recently used)")
	}
	if _, ok := c.Get("key4"); !ok {
		t.Error("expected key4 to be in cache")
	}
	if c.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", c.Len())
	}
}

func TestResponseCache_OverwriteExistingKey(t *testing.T) {
	c := New(5*time.Second, 100)

	c.Set("key", &CachedResponse{StatusCode: http.StatusOK, Body: []byte("v1")})
	c.Set("key", &CachedResponse{StatusCode: http.StatusOK, Body: []byte("v2")})

	got, ok := c.Get("key")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(got.Body) != "v2" {
		t.Errorf("expected updated body v2, got %s", got.Body)
	}
}

func TestMakeKey(t *testing.T) {
	key := MakeKey("user123", "GET", "/events/5")
	expected := "user123:GET:/events/5"
	if key != expected {
		t.Errorf("expected key %q, got %q", expected, key)
	}
	if pathOf(key) != "/events/5" {
		t.Errorf("expected path /events/5, got %q", pathOf(key))
	}
}

func TestResponseCache_ThreadSafety(t *testing.T) {
	c := New(5*time.Second, 50)
	resp := &CachedResponse{StatusCode: http.StatusOK, Body: []byte("data")}

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(3)
		go func(n int) {
			defer wg.Done()
			c.Set(MakeKey("42", "GET", fmt.Sprintf("/events/%d", n)), resp)
		}(i)
		go func(n int) {
			defer wg.Done()
			c.Get(MakeKey("42", "GET", fmt.Sprintf("/events/%d", n)))
		}(i)
		go func() {
			defer wg.Done()
			c.InvalidatePrefix("/events")
		}()
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("cache exceeded max entries: %d", c.Len())
	}
}
