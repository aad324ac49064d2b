package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/canteen-meal-service/internal/config"
)

func cacheCtx(t *testing.T, target string, userID uint64) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	if userID != 0 {
		c.Set(ContextUserID, userID)
	}
	return c
}

func TestCacheKeySeparatesPathParams(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "canteen:cache", KeyStrategy: "route_query"}

	// Two users' dining-status URLs must never share a cache entry.
	k2 := cacheKeyFrom(cfg, cacheCtx(t, "/v1/users/2/dining-status?date=2025-01-10", 2))
	k3 := cacheKeyFrom(cfg, cacheCtx(t, "/v1/users/3/dining-status?date=2025-01-10", 2))
	if k2 == k3 {
		t.Fatalf("distinct path params share key %q", k2)
	}

	// Same for two order detail URLs.
	a := cacheKeyFrom(cfg, cacheCtx(t, "/v1/orders/ord-1", 2))
	b := cacheKeyFrom(cfg, cacheCtx(t, "/v1/orders/ord-2", 2))
	if a == b {
		t.Fatalf("distinct order ids share key %q", a)
	}
}

func TestCacheKeySeparatesUsers(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "canteen:cache", KeyStrategy: "route_query"}

	alice := cacheKeyFrom(cfg, cacheCtx(t, "/v1/departments/stats?date=2025-01-10", 2))
	bob := cacheKeyFrom(cfg, cacheCtx(t, "/v1/departments/stats?date=2025-01-10", 3))
	if alice == bob {
		t.Fatalf("distinct callers share key %q", alice)
	}
}

func TestCacheKeyStable(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "canteen:cache", KeyStrategy: "route_query"}

	first := cacheKeyFrom(cfg, cacheCtx(t, "/v1/users/2/dining-status?date=2025-01-10", 2))
	second := cacheKeyFrom(cfg, cacheCtx(t, "/v1/users/2/dining-status?date=2025-01-10", 2))
	if first != second {
		t.Fatalf("repeated request changed key: %q vs %q", first, second)
	}

	// The query string participates under the default strategy.
	other := cacheKeyFrom(cfg, cacheCtx(t, "/v1/users/2/dining-status?date=2025-01-11", 2))
	if first == other {
		t.Fatalf("distinct dates share key %q", first)
	}
}
