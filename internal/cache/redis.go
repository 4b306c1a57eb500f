// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for finished match records.
var DefaultQueueName = "pong_matches"

// MatchRecord is the durable artifact of one finished round, consumed by an
// out-of-process stats service. Gameplay never reads it back.
type MatchRecord struct {
	RoomID       uuid.UUID `json:"room_id"`
	Player1ID    uuid.UUID `json:"player1_id"`
	Player2ID    uuid.UUID `json:"player2_id"`
	Player1Score int       `json:"player1_score"`
	Player2Score int       `json:"player2_score"`
	TargetScore  int       `json:"target_score"`
	FinishedAt   int64     `json:"finished_at"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishMatchRecord serializes the record to JSON and pushes it onto the
// match queue. Returns an error if Redis was never connected; callers in the
// game path log and move on.
func PublishMatchRecord(ctx context.Context, record MatchRecord) error {
	if Rdb == nil {
		return fmt.Errorf("redis client not connected")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal MatchRecord: %w", err)
	}

	queueName := getEnv("MATCH_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
