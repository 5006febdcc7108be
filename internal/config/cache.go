package config

import (
	"strconv"
	"strings"
	"time"
)

// CacheConfig controls the Redis response cache on the public catalog.
// Methods lists the HTTP methods worth caching (GET only by default).
// KeyStrategy picks which request parts form the cache key; the default
// route_query keys each search/filter/page combination separately.
// MaxBodyBytes caps how large a response may be and still be stored.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads the CACHE_* environment variables. The defaults
// suit the catalog browse endpoints: 60s TTL and a 1 MiB body cap.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      getenv("CACHE_ENABLED", "true") == "true",
		Methods:      parseMethods(getenv("CACHE_METHODS", "GET")),
		TTL:          parseDur(getenv("CACHE_TTL", "60s")),
		KeyStrategy:  getenv("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       getenv("CACHE_PREFIX", "catalog"),
		MaxBodyBytes: atoi(getenv("CACHE_MAX_BODY_BYTES", "1048576")),
	}
}

// parseMethods splits a comma list into a normalized method set.
func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(strings.ToUpper(p)); p != "" {
			m[p] = true
		}
	}
	return m
}

func getenv(key, def string) string { return envStr(key, def) }

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
