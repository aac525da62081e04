package queue

import (
	"context"
	"errors"
	"fmt"
	"taobao/crawler/internal/config"
	"taobao/crawler/internal/domain/task"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type Queue interface {
	AddTask(ctx context.Context, task task.Task) (int64, error) // Returns queue length after push
	GetTask(ctx context.Context, timeout time.Duration) ([]byte, error)
	Len(ctx context.Context) (int64, error)
}

var _ Queue = (*RedisQueue)(nil)

// RedisQueue is a FIFO on a Redis list: producers LPUSH, the consumer BRPOPs
type RedisQueue struct {
	redisClient *redis.Client
	name        string
}

func NewRedisQueue(redisClient *redis.Client, cfg config.RedisConfig) *RedisQueue {
	return &RedisQueue{
		redisClient: redisClient,
		name:        cfg.Queue,
	}
}

func (q *RedisQueue) AddTask(ctx context.Context, task task.Task) (int64, error) {
	taskValue, err := task.TaskValue()
	if err != nil {
		return 0, fmt.Errorf("failed to serialize task: %w", err)
	}

	length, err := q.redisClient.LPush(ctx, q.name, taskValue).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to push task to Redis list %s: %w", q.name, err)
	}

	log.Debugf("Added task %s to %s, queue length %d", task.TaskType(), q.name, length)
	return length, nil
}

// GetTask blocks up to timeout for the next payload. A nil payload with a nil
// error means the wait timed out on an empty queue.
func (q *RedisQueue) GetTask(ctx context.Context, timeout time.Duration) ([]byte, error) {
	result, err := q.redisClient.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from Redis list %s: %w", q.name, err)
	}

	// BRPOP replies with [key, value]
	if len(result) < 2 {
		return nil, nil
	}

	return []byte(result[1]), nil
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.redisClient.LLen(ctx, q.name).Result()
}
