package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relux-laundry/api/internal/ws"
)

const (
	EventsChannel   = "relux:events"
	SettingsChannel = "relux:settings"
)

// envelope is the wire format on EventsChannel.
type envelope struct {
	Origin  string          `json:"origin"`
	Room    string          `json:"room"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// settingsNotice is the wire format on SettingsChannel.
type settingsNotice struct {
	Origin  string `json:"origin"`
	Version int64  `json:"version"`
}

// RedisRelay delivers events locally and fans them out to the other
// instances. Messages it published itself are ignored on receipt.
type RedisRelay struct {
	rdb      *redis.Client
	local    *Local
	origin   string
	logger   *zap.Logger
	onReload func(ctx context.Context) error
}

// Dial connects to redisURL and verifies the connection.
func Dial(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// NewRedisRelay creates a RedisRelay. onReload runs when another instance
// saves a new settings version; it may be nil.
func NewRedisRelay(rdb *redis.Client, hub Broadcaster, logger *zap.Logger, onReload func(ctx context.Context) error) *RedisRelay {
	return &RedisRelay{
		rdb:      rdb,
		local:    NewLocal(hub),
		origin:   uuid.NewString(),
		logger:   logger,
		onReload: onReload,
	}
}

// Publish delivers the event locally, then to the other instances. A Redis
// failure is returned after local delivery has happened.
func (r *RedisRelay) Publish(ctx context.Context, room, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	r.local.deliver(room, ws.Event{Type: eventType, Payload: body})

	msg, err := json.Marshal(envelope{Origin: r.origin, Room: room, Type: eventType, Payload: body})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := r.rdb.Publish(ctx, EventsChannel, msg).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// AnnounceSettings tells the other instances that version was saved.
// Matches the settings.Store OnChange hook.
func (r *RedisRelay) AnnounceSettings(ctx context.Context, version int64) {
	msg, _ := json.Marshal(settingsNotice{Origin: r.origin, Version: version})
	if err := r.rdb.Publish(ctx, SettingsChannel, msg).Err(); err != nil {
		r.logger.Warn("settings announce failed", zap.Int64("version", version), zap.Error(err))
	}
}

// Run receives from both channels until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, EventsChannel, SettingsChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	r.logger.Info("relay subscribed", zap.String("origin", r.origin))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(ctx, m.Channel, []byte(m.Payload))
		}
	}
}

func (r *RedisRelay) handle(ctx context.Context, channel string, data []byte) {
	switch channel {
	case EventsChannel:
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			r.logger.Warn("relay message decode failed", zap.Error(err))
			return
		}
		if env.Origin == r.origin {
			return
		}
		r.local.deliver(env.Room, ws.Event{Type: env.Type, Payload: env.Payload})

	case SettingsChannel:
		var n settingsNotice
		if err := json.Unmarshal(data, &n); err != nil {
			r.logger.Warn("settings notice decode failed", zap.Error(err))
			return
		}
		if n.Origin == r.origin || r.onReload == nil {
			return
		}
		if err := r.onReload(ctx); err != nil {
			r.logger.Error("settings reload failed", zap.Int64("version", n.Version), zap.Error(err))
			return
		}
		r.logger.Info("settings reloaded from peer", zap.Int64("version", n.Version))
	}
}
