// Package events publishes batch progress updates over redis pub/sub so
// frontends and dashboards can follow long-running generation jobs.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/tanadol/reelforge/internal/models"
)

const (
	ChannelBatchUpdates = "events:batch_updates"

	publishTimeout = 5 * time.Second
)

type Publisher struct {
	client *redis.Client
	log    zerolog.Logger
}

func New(redisURL string, log zerolog.Logger) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Publisher{client: client, log: log}, nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}

// BatchUpdated publishes the current snapshot of a batch job. Publish
// failures are logged rather than surfaced so a redis outage never
// interrupts generation work.
func (p *Publisher) BatchUpdated(job *models.BatchJob) {
	data, err := json.Marshal(job)
	if err != nil {
		p.log.Error().Err(err).Str("batch_id", job.ID.String()).Msg("failed to marshal batch update")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, ChannelBatchUpdates, data).Err(); err != nil {
		p.log.Error().Err(err).Str("batch_id", job.ID.String()).Msg("failed to publish batch update")
	}
}

// Subscribe returns a channel of batch snapshots for consumers such as
// websocket bridges. The subscription ends when ctx is cancelled.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan *models.BatchJob, error) {
	sub := p.client.Subscribe(ctx, ChannelBatchUpdates)
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan *models.BatchJob)
	go func() {
		defer close(out)
		defer sub.Close()
		for msg := range sub.Channel() {
			var job models.BatchJob
			if err := json.Unmarshal([]byte(msg.Payload), &job); err != nil {
				p.log.Warn().Err(err).Msg("dropping malformed batch update")
				continue
			}
			select {
			case out <- &job:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
