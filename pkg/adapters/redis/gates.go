package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/transit/internal/logging"
	"github.com/aretw0/transit/pkg/domain"
	"github.com/aretw0/transit/pkg/ports"
	"github.com/cenkalti/backoff/v4"
	backend "github.com/redis/go-redis/v9"
)

// DefaultGateChannel is the pub/sub channel gate commands travel on.
const DefaultGateChannel = "transit:gates"

// GateAction is a command verb on the gate channel.
type GateAction string

const (
	ActionHold    GateAction = "hold"
	ActionRelease GateAction = "release"
)

// ErrBadCommand is returned for payloads that are not "<action>:<gate>".
var ErrBadCommand = errors.New("malformed gate command")

// ParseCommand decodes a "hold:<gate>" or "release:<gate>" payload.
func ParseCommand(payload string) (GateAction, domain.GateID, error) {
	action, id, ok := strings.Cut(payload, ":")
	if !ok || id == "" {
		return "", "", fmt.Errorf("%w: %q", ErrBadCommand, payload)
	}
	switch GateAction(action) {
	case ActionHold, ActionRelease:
		return GateAction(action), domain.GateID(id), nil
	}
	return "", "", fmt.Errorf("%w: unknown action %q", ErrBadCommand, action)
}

// GateBridge applies gate commands received over Redis pub/sub to a local
// gate controller, so a server process can release a client's gates.
type GateBridge struct {
	client     *backend.Client
	gates      ports.GateController
	channel    string
	logger     *slog.Logger
	newBackOff func() backoff.BackOff

	readyOnce sync.Once
	ready     chan struct{}
}

// BridgeOption configures a GateBridge.
type BridgeOption func(*GateBridge)

// WithChannel sets the pub/sub channel.
func WithChannel(channel string) BridgeOption {
	return func(b *GateBridge) {
		b.channel = channel
	}
}

// WithBridgeLogger sets the logger.
func WithBridgeLogger(logger *slog.Logger) BridgeOption {
	return func(b *GateBridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBackOff sets the re-subscription policy.
func WithBackOff(newBackOff func() backoff.BackOff) BridgeOption {
	return func(b *GateBridge) {
		b.newBackOff = newBackOff
	}
}

// NewGateBridge creates a bridge feeding gates.
func NewGateBridge(client *backend.Client, gates ports.GateController, opts ...BridgeOption) *GateBridge {
	b := &GateBridge{
		client:  client,
		gates:   gates,
		channel: DefaultGateChannel,
		logger:  logging.NewNop(),
		newBackOff: func() backoff.BackOff {
			eb := backoff.NewExponentialBackOff()
			eb.MaxElapsedTime = 0
			return eb
		},
		ready: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Ready is closed once the first subscription is confirmed.
func (b *GateBridge) Ready() <-chan struct{} {
	return b.ready
}

// Run consumes commands until ctx is done. Broker errors trigger a
// re-subscription with backoff; Run returns nil on cancellation.
func (b *GateBridge) Run(ctx context.Context) error {
	op := func() error {
		err := b.consume(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		b.logger.Warn("gate bridge subscription lost, retrying", "channel", b.channel, "wait", wait, "err", err)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(b.newBackOff(), ctx), notify)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (b *GateBridge) consume(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	b.readyOnce.Do(func() { close(b.ready) })
	b.logger.Info("gate bridge subscribed", "channel", b.channel)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("subscription to %s closed", b.channel)
			}
			b.apply(msg.Payload)
		}
	}
}

func (b *GateBridge) apply(payload string) {
	action, id, err := ParseCommand(payload)
	if err != nil {
		b.logger.Warn("ignoring gate command", "payload", payload, "err", err)
		return
	}
	switch action {
	case ActionHold:
		b.gates.Hold(id)
	case ActionRelease:
		b.gates.Release(id)
	}
	b.logger.Debug("gate command applied", "action", action, "gate", id)
}

// Publish sends a gate command to every bridge on the channel.
func (b *GateBridge) Publish(ctx context.Context, action GateAction, id domain.GateID) error {
	payload := string(action) + ":" + id.String()
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", payload, err)
	}
	return nil
}
