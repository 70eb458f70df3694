package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/Pokatocz/quest-and-check/internal/logging"
)

// RedisBridge shares a Hub's changes with every instance listening on the
// same Redis channel. Publishing goes through a circuit breaker so an
// unreachable Redis costs one fast failure per change instead of a timeout.
type RedisBridge struct {
	client  *redis.Client
	channel string
	hub     *Hub
	breaker *gobreaker.CircuitBreaker
	origin  string
}

func NewRedisBridge(client *redis.Client, channel string, hub *Hub) *RedisBridge {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-change-feed",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("circuit breaker %s changed from %s to %s", name, from.String(), to.String())
		},
	})

	return &RedisBridge{
		client:  client,
		channel: channel,
		hub:     hub,
		breaker: breaker,
		origin:  uuid.NewString(),
	}
}

// Start subscribes to the channel, wires the bridge as a hub relay and
// re-injects changes from other instances until ctx is done.
func (b *RedisBridge) Start(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return err
	}

	b.hub.AddRelay(b.Forward)

	go func() {
		defer pubsub.Close()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				b.receive(msg.Payload)
			}
		}
	}()

	logging.Logger.WithField("channel", b.channel).Info("redis change feed bridge started")
	return nil
}

func (b *RedisBridge) receive(payload string) {
	var change Change
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		logging.Logger.WithError(err).Warn("ignoring malformed change from redis")
		return
	}
	if change.Origin == b.origin {
		return
	}
	b.hub.Deliver(change)
}

// Forward publishes a locally originated change. Failures are logged; the
// local hub has already delivered the change.
func (b *RedisBridge) Forward(change Change) {
	if change.Origin != "" {
		return
	}
	change.Origin = b.origin

	payload, err := json.Marshal(change)
	if err != nil {
		logging.Logger.WithError(err).Warn("failed to encode change")
		return
	}

	_, err = b.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return nil, b.client.Publish(ctx, b.channel, payload).Err()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Logger.Debug("redis change feed circuit open, change kept local")
			return
		}
		logging.Logger.WithError(err).Warn("failed to publish change to redis")
	}
}
