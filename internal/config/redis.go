package config

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisAddr resolves the server address: REDIS_HOST/REDIS_PORT win over
// the REDIS_ADDR shorthand, with localhost as the last resort.
func redisAddr() string {
	host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")
	if host != "" && port != "" {
		return host + ":" + port
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// NewRedisClient connects to the Redis that backs the catalog response
// cache and the rate limiter. Redis is strictly optional here: when the
// ping fails the function returns nil and both middlewares degrade to
// pass-throughs, so a missing cache tier never takes the API down.
func NewRedisClient() *redis.Client {
	dbNum := 0
	if s := os.Getenv("REDIS_DB"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			dbNum = n
		}
	}
	var tlsConf *tls.Config
	if v := os.Getenv("REDIS_TLS"); v == "1" || strings.EqualFold(v, "true") {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}

	client := redis.NewClient(&redis.Options{
		Addr:      redisAddr(),
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        dbNum,
		TLSConfig: tlsConf,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
