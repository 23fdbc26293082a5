package cache

import (
	"context"
	"testing"
	"time"
)

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	ctx := context.Background()

	if err := c.Set(ctx, KeySystemMetrics, map[string]int{"a": 1}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	var dst map[string]int
	found, err := c.Get(ctx, KeySystemMetrics, &dst)
	if err != nil || found {
		t.Errorf("Get() = %v, %v; want false, nil", found, err)
	}
}

func TestRedis_UnreachableReturnsError(t *testing.T) {
	c := NewRedis(Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var dst map[string]int
	found, err := c.Get(ctx, KeySystemMetrics, &dst)
	if err == nil || found {
		t.Errorf("Get() = %v, %v; want false and an error", found, err)
	}
}

func TestNewRedis_DefaultTTL(t *testing.T) {
	c := NewRedis(Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { c.Close() })

	if c.ttl != 30*time.Second {
		t.Errorf("ttl = %v, want 30s", c.ttl)
	}
}
