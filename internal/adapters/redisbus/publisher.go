package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

// Message es lo que viaja por el canal; version cambia si cambia el formato.
type Message struct {
	Version int          `json:"version"`
	SentAt  time.Time    `json:"sent_at"`
	Event   domain.Event `json:"event"`
}

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Publisher anuncia cada evento con PUBLISH en un canal de Redis.
type Publisher struct {
	rdb     publisher
	channel string
	now     func() time.Time
}

func New(rdb publisher, channel string) *Publisher {
	return &Publisher{rdb: rdb, channel: channel, now: time.Now}
}

// Connect arma el cliente y verifica que Redis responda.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func (p *Publisher) Announce(ctx context.Context, ev domain.Event) error {
	data, err := json.Marshal(Message{Version: 1, SentAt: p.now().UTC(), Event: ev})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Kind, err)
	}
	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", ev.Kind, p.channel, err)
	}
	return nil
}
