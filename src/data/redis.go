package data

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const streamFeed = "nostroracle.feed"

// ConnectRedis opens a redis client, or returns nil when the server is
// unreachable. The feed mirror is best-effort only.
func ConnectRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("redis: %v", err)
		return nil
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis: ping failed, feed mirror disabled: %v", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

// PublishEnvelope mirrors a broadcast envelope onto the shared feed stream so
// other processes can tail it.
func PublishEnvelope(ctx context.Context, rdb *redis.Client, topic string, payload []byte) error {
	_, err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamFeed,
		MaxLen: 1024,
		Approx: true,
		Values: map[string]interface{}{
			"topic":   topic,
			"payload": payload,
		},
	}).Result()
	return err
}
