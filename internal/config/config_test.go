package config

import (
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_STR", "hello")
	t.Setenv("X_INT", "42")
	t.Setenv("X_INT_BAD", "forty-two")
	t.Setenv("X_BOOL_ON", "yes")
	t.Setenv("X_BOOL_OFF", "0")
	t.Setenv("X_BOOL_BAD", "maybe")
	t.Setenv("X_DUR", "250ms")
	t.Setenv("X_DUR_BAD", "soon")

	if got := envStr("X_STR", "d"); got != "hello" {
		t.Errorf("envStr = %q, want hello", got)
	}
	if got := envStr("X_MISSING", "d"); got != "d" {
		t.Errorf("envStr default = %q, want d", got)
	}
	if got := envInt("X_INT", 0); got != 42 {
		t.Errorf("envInt = %d, want 42", got)
	}
	if got := envInt("X_INT_BAD", 7); got != 7 {
		t.Errorf("envInt bad value = %d, want default 7", got)
	}
	if !envBool("X_BOOL_ON", false) {
		t.Error("envBool yes = false, want true")
	}
	if envBool("X_BOOL_OFF", true) {
		t.Error("envBool 0 = true, want false")
	}
	if !envBool("X_BOOL_BAD", true) {
		t.Error("envBool unparsable should fall back to default")
	}
	if got := envDur("X_DUR", time.Second); got != 250*time.Millisecond {
		t.Errorf("envDur = %v, want 250ms", got)
	}
	if got := envDur("X_DUR_BAD", time.Second); got != time.Second {
		t.Errorf("envDur bad value = %v, want default 1s", got)
	}
}

func TestLoadCacheConfigDefaults(t *testing.T) {
	cfg := LoadCacheConfig()
	if !cfg.Enabled {
		t.Error("cache should default to enabled")
	}
	if !cfg.Methods["GET"] || cfg.Methods["POST"] {
		t.Errorf("methods default = %v, want GET only", cfg.Methods)
	}
	if cfg.TTL != 60*time.Second {
		t.Errorf("TTL = %v, want 60s", cfg.TTL)
	}
	if cfg.KeyStrategy != "route_query" {
		t.Errorf("key strategy = %q, want route_query", cfg.KeyStrategy)
	}
	if cfg.Prefix != "catalog" {
		t.Errorf("prefix = %q, want catalog", cfg.Prefix)
	}
}

func TestParseMethods(t *testing.T) {
	m := parseMethods("get, head ,POST,")
	for _, want := range []string{"GET", "HEAD", "POST"} {
		if !m[want] {
			t.Errorf("missing method %s in %v", want, m)
		}
	}
	if len(m) != 3 {
		t.Errorf("len = %d, want 3", len(m))
	}
}

func TestLoadRateLimitConfigNormalizes(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "100ms")
	t.Setenv("RATE_LIMIT_TTL", "10ms")

	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 1 {
		t.Errorf("capacity = %d, want clamped to 1", cfg.Capacity)
	}
	// TTL must cover at least a few refill intervals of idle state.
	if cfg.TTL < 5*cfg.RefillInterval {
		t.Errorf("TTL %v below 5x refill interval %v", cfg.TTL, cfg.RefillInterval)
	}
}
