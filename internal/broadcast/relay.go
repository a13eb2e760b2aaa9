package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultRelayChannel    = "scantrack:scan-updates"
	DefaultRelayOutboxSize = 1024
)

// RelayConfig holds configuration for a Relay.
type RelayConfig struct {
	Client     redis.UniversalClient
	Channel    string
	Local      Publisher // receives every message seen on the channel
	Logger     *slog.Logger
	OutboxSize int
	OnDrop     func() // called when the outbox is full and a message is discarded
}

// Relay bridges scan updates across instances through a Redis channel.
// Publish hands the message to a bounded outbox; Run forwards the outbox to
// Redis and feeds every message received on the channel, including this
// instance's own, into the local publisher.
type Relay struct {
	client  redis.UniversalClient
	channel string
	local   Publisher
	logger  *slog.Logger
	outbox  chan Message
	onDrop  func()
	ready   chan struct{}
}

func NewRelay(cfg RelayConfig) *Relay {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	channel := cfg.Channel
	if channel == "" {
		channel = DefaultRelayChannel
	}
	size := cfg.OutboxSize
	if size <= 0 {
		size = DefaultRelayOutboxSize
	}

	return &Relay{
		client:  cfg.Client,
		channel: channel,
		local:   cfg.Local,
		logger:  logger,
		outbox:  make(chan Message, size),
		onDrop:  cfg.OnDrop,
		ready:   make(chan struct{}),
	}
}

// Publish queues msg for the channel without blocking.
func (r *Relay) Publish(msg Message) {
	select {
	case r.outbox <- msg:
	default:
		r.logger.Warn("relay outbox full, dropping scan update",
			"short_code", msg.Data.ShortCode,
			"channel", r.channel,
		)
		if r.onDrop != nil {
			r.onDrop()
		}
	}
}

// Ready is closed once the channel subscription is confirmed.
func (r *Relay) Ready() <-chan struct{} { return r.ready }

// Run subscribes to the channel and pumps messages in both directions until
// ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	close(r.ready)

	r.logger.Info("relay subscribed", "channel", r.channel)

	inbound := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil

		case msg := <-r.outbox:
			r.forward(ctx, msg)

		case m, ok := <-inbound:
			if !ok {
				return nil
			}
			r.deliver(m.Payload)
		}
	}
}

func (r *Relay) forward(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("relay encode failed", "error", err.Error())
		return
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		r.logger.Error("relay publish failed",
			"error", err.Error(),
			"channel", r.channel,
			"short_code", msg.Data.ShortCode,
		)
	}
}

func (r *Relay) deliver(payload string) {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		r.logger.Warn("relay received malformed payload", "error", err.Error())
		return
	}
	if msg.Type != TypeScanUpdate {
		return
	}
	r.local.Publish(msg)
}
