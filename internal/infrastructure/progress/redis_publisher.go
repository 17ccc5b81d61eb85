package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

const (
	importChannelPrefix = "records:import:"
	exportChannelPrefix = "records:export:"
)

// RedisPublisher pushes job snapshots onto per-job Redis channels so the UI
// can subscribe instead of hammering the status endpoint. Delivery is fire
// and forget; pollers always have the persisted snapshot as fallback.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) PublishImport(ctx context.Context, snapshot domain.ImportJobSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode import snapshot: %w", err)
	}
	if err := p.client.Publish(ctx, importChannelPrefix+snapshot.ID, payload).Err(); err != nil {
		return fmt.Errorf("publish import snapshot: %w", err)
	}
	return nil
}

func (p *RedisPublisher) PublishExport(ctx context.Context, snapshot domain.ExportJobSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode export snapshot: %w", err)
	}
	if err := p.client.Publish(ctx, exportChannelPrefix+snapshot.ID, payload).Err(); err != nil {
		return fmt.Errorf("publish export snapshot: %w", err)
	}
	return nil
}

// NopPublisher drops every event. Used when no Redis address is configured.
type NopPublisher struct{}

func (NopPublisher) PublishImport(ctx context.Context, snapshot domain.ImportJobSnapshot) error {
	return nil
}

func (NopPublisher) PublishExport(ctx context.Context, snapshot domain.ExportJobSnapshot) error {
	return nil
}
