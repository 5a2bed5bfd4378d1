package config

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

func GetRedisDB() *redis.Client {
	return rdb
}

// GetRedisLock returns the distributed lock client, or nil when Redis is not
// configured. Locks are a best-effort optimization only; correctness must
// never depend on them.
func GetRedisLock() *redislock.Client {
	return locker
}

func init() {
	godotenv.Load()
}

// ConnectRedisWithRetry connects and sets the global Redis client.
// Call from main() after the HTTP server is listening. When REDIS_ADDRESS is
// unset the process runs without Redis (no rate limiting, no issue locks).
func ConnectRedisWithRetry() {
	address := strings.TrimSpace(os.Getenv("REDIS_ADDRESS"))
	if address == "" {
		log.Printf("REDIS_ADDRESS not set; running without redis")
		return
	}

	var attempt int
	for {
		attempt++
		client := redis.NewClient(&redis.Options{Addr: address})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err == nil {
			rdb = client
			locker = redislock.New(rdb)
			log.Printf("connected to redis (attempt=%d)", attempt)
			return
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect redis (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}
