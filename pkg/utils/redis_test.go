package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func TestAcquireConcurrencyCap_LimitEnforced(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	ok, err := AcquireConcurrencyCap(ctx, rdb, "prov:user-1", 2, time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	ok, err = AcquireConcurrencyCap(ctx, rdb, "prov:user-1", 2, time.Minute)
	if err != nil || !ok {
		t.Fatalf("second acquire: ok=%v err=%v", ok, err)
	}
	ok, err = AcquireConcurrencyCap(ctx, rdb, "prov:user-1", 2, time.Minute)
	if err != nil {
		t.Fatalf("third acquire err: %v", err)
	}
	if ok {
		t.Fatalf("expected rejection at limit")
	}

	if err := ReleaseConcurrencyCap(ctx, rdb, "prov:user-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = AcquireConcurrencyCap(ctx, rdb, "prov:user-1", 2, time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestCacheGetSet(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	if _, err := CacheGet(ctx, rdb, "widget:abc"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}
	if err := CacheSet(ctx, rdb, "widget:abc", `{"name":"Acme"}`, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := CacheGet(ctx, rdb, "widget:abc")
	if err != nil || v != `{"name":"Acme"}` {
		t.Fatalf("get: v=%q err=%v", v, err)
	}
}
