package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultStream = "copilot:jobs"
	consumerGroup = "copilot:workers"
)

type RedisQueueConfig struct {
	Stream   string
	Consumer string
	// Block is how long Dequeue waits for a message. Zero does not wait.
	Block time.Duration
}

// RedisQueue publishes job ids on a Redis stream read through a consumer
// group. Messages are acknowledged as soon as they are read, so delivery is
// at most once; the guarded claim on the job row decides who runs it.
type RedisQueue struct {
	client   *redis.Client
	repo     JobRepository
	stream   string
	consumer string
	block    time.Duration
}

func NewRedisQueue(ctx context.Context, client *redis.Client, repo JobRepository, cfg RedisQueueConfig) (*RedisQueue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	if cfg.Consumer == "" {
		host, _ := os.Hostname()
		cfg.Consumer = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	block := cfg.Block
	if block <= 0 {
		block = -1
	}

	err := client.XGroupCreateMkStream(ctx, cfg.Stream, consumerGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &RedisQueue{
		client:   client,
		repo:     repo,
		stream:   cfg.Stream,
		consumer: cfg.Consumer,
		block:    block,
	}, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, jobID string) error {
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]interface{}{"job_id": jobID},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*domain.Job, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    consumerGroup,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    q.block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	msg := streams[0].Messages[0]
	pipe := q.client.Pipeline()
	pipe.XAck(ctx, q.stream, consumerGroup, msg.ID)
	pipe.XDel(ctx, q.stream, msg.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to acknowledge message: %w", err)
	}

	jobID, ok := msg.Values["job_id"].(string)
	if !ok || jobID == "" {
		slog.WarnContext(ctx, "dropping malformed queue message", "message_id", msg.ID)
		return nil, nil
	}

	job, err := q.repo.Claim(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidJobTransition) || errors.Is(err, domain.ErrJobNotFound) {
			slog.WarnContext(ctx, "skipping job that is no longer pending", "job_id", jobID, "error", err)
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

func isGroupExistsError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}
