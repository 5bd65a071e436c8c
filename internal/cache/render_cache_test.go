package cache

import (
	"testing"
	"time"

	"github.com/smartinvoice/smartinvoice/internal/config"
)

func TestRenderCacheRoundTrip(t *testing.T) {
	c := NewRenderCache(&config.Config{RenderCacheTTL: time.Minute})

	if _, ok := c.Get("42:stamp"); ok {
		t.Fatalf("expected miss on empty cache")
	}

	c.Set("42:stamp", []byte("%PDF"))
	got, ok := c.Get("42:stamp")
	if !ok || string(got) != "%PDF" {
		t.Fatalf("expected cached pdf, got %q ok=%v", got, ok)
	}

	c.Invalidate("42:stamp")
	if _, ok := c.Get("42:stamp"); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestRenderCacheCopiesValue(t *testing.T) {
	c := NewRenderCache(&config.Config{RenderCacheTTL: time.Minute})

	pdf := []byte("%PDF")
	c.Set("k", pdf)
	pdf[0] = 'X'

	got, ok := c.Get("k")
	if !ok || string(got) != "%PDF" {
		t.Fatalf("expected cached copy to be unaffected, got %q", got)
	}
}

func TestRenderCacheDisabled(t *testing.T) {
	c := NewRenderCache(&config.Config{})
	c.Set("k", []byte("%PDF"))
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected disabled cache to always miss")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	store := NewTTLCache[string, int]()
	store.Set("k", 7, time.Nanosecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok := store.Get("k"); ok {
		t.Fatalf("expected entry to expire")
	}
}
