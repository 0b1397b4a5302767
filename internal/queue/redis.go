// Package queue carries agent messages over Redis streams so loop
// iterations and unit requests can be triggered from outside the
// process. Requests and replies live on separate streams; only the
// request stream is consumed through a consumer group.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ItaloOlivier/ayonne-sub000/internal/config"
	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

type RedisQueue struct {
	client        *redis.Client
	requestStream string
	replyStream   string
	consumerGroup string
	consumerName  string
}

func NewRedisQueue(cfg *config.RedisConfig, workerCfg *config.WorkerConfig) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}

	q := &RedisQueue{
		client:        client,
		requestStream: workerCfg.RequestStream,
		replyStream:   workerCfg.ReplyStream,
		consumerGroup: workerCfg.ConsumerGroup,
		consumerName:  workerCfg.ConsumerName,
	}

	if err := q.ensureConsumerGroup(ctx); err != nil {
		return nil, err
	}

	return q, nil
}

func (q *RedisQueue) ensureConsumerGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.requestStream, q.consumerGroup, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Publish puts one agent message on the request stream.
func (q *RedisQueue) Publish(ctx context.Context, msg *domain.AgentMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	_, err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.requestStream,
		Values: map[string]interface{}{
			"message_id": msg.ID,
			"recipient":  msg.To,
			"data":       string(data),
		},
	}).Result()

	if err != nil {
		return fmt.Errorf("xadd: %w", err)
	}

	return nil
}

// PublishBatch pipelines multiple request messages in one round trip.
func (q *RedisQueue) PublishBatch(ctx context.Context, msgs []*domain.AgentMessage) error {
	pipe := q.client.Pipeline()

	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", msg.ID, err)
		}

		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: q.requestStream,
			Values: map[string]interface{}{
				"message_id": msg.ID,
				"recipient":  msg.To,
				"data":       string(data),
			},
		})
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("pipeline exec: %w", err)
	}

	return nil
}

// PublishReply puts a unit's response on the reply stream, keyed by the
// correlation id so callers can match it to their request.
func (q *RedisQueue) PublishReply(ctx context.Context, msg *domain.AgentMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	_, err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.replyStream,
		Values: map[string]interface{}{
			"message_id":     msg.ID,
			"correlation_id": msg.CorrelationID,
			"data":           string(data),
		},
	}).Result()

	if err != nil {
		return fmt.Errorf("xadd reply: %w", err)
	}

	return nil
}

// Message pairs a stream entry id with the decoded agent message; the
// entry id is what Ack wants back.
type Message struct {
	ID      string
	Message *domain.AgentMessage
}

// Consume reads up to count pending request messages for this
// consumer, blocking up to blockDuration when the stream is empty.
// Entries that do not decode are skipped, not surfaced.
func (q *RedisQueue) Consume(ctx context.Context, count int64, blockDuration time.Duration) ([]Message, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.consumerGroup,
		Consumer: q.consumerName,
		Streams:  []string{q.requestStream, ">"},
		Count:    count,
		Block:    blockDuration,
	}).Result()

	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	var messages []Message
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			data, ok := msg.Values["data"].(string)
			if !ok {
				continue
			}

			var agentMsg domain.AgentMessage
			if err := json.Unmarshal([]byte(data), &agentMsg); err != nil {
				continue
			}

			messages = append(messages, Message{
				ID:      msg.ID,
				Message: &agentMsg,
			})
		}
	}

	return messages, nil
}

func (q *RedisQueue) Ack(ctx context.Context, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}

	_, err := q.client.XAck(ctx, q.requestStream, q.consumerGroup, messageIDs...).Result()
	if err != nil {
		return fmt.Errorf("xack: %w", err)
	}

	return nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Len reports how many entries sit on the request stream.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.XLen(ctx, q.requestStream).Result()
}

func (q *RedisQueue) Client() *redis.Client {
	return q.client
}
