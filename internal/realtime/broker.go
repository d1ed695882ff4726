package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/logger"
)

type pubsubClient interface {
	Publish(ctx context.Context, channel string, payload any) error
	Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error)
	RealtimeChannel(audience, id string) string
}

// Publisher is what order mutations need from the broker.
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// Broker publishes and subscribes to order changes over Redis pub/sub.
type Broker struct {
	client pubsubClient
	logg   *logger.Logger
}

func NewBroker(client pubsubClient, logg *logger.Logger) (*Broker, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &Broker{client: client, logg: logg}, nil
}

// Publish sends the change to every interested channel. Each channel is
// attempted; the combined error is returned.
func (b *Broker) Publish(ctx context.Context, change Change) error {
	if change.OccurredAt.IsZero() {
		change.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode realtime change")
	}
	var errs error
	for _, target := range change.Targets() {
		channel := b.client.RealtimeChannel(string(target.Audience), target.ID)
		if err := b.client.Publish(ctx, channel, string(payload)); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("publish %s: %w", channel, err))
		}
	}
	if errs != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "publish realtime change")
	}
	return nil
}

// Subscription delivers decoded changes until Close is called or the context
// passed to Subscribe ends.
type Subscription struct {
	C      <-chan Change
	pubsub *goredis.PubSub
}

func (s *Subscription) Close() error {
	if s == nil || s.pubsub == nil {
		return nil
	}
	return s.pubsub.Close()
}

// Subscribe listens on the channels for targets.
func (b *Broker) Subscribe(ctx context.Context, targets ...Target) (*Subscription, error) {
	if len(targets) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "no realtime channels for this user")
	}
	channels := make([]string, 0, len(targets))
	for _, target := range targets {
		channels = append(channels, b.client.RealtimeChannel(string(target.Audience), target.ID))
	}
	ps, err := b.client.Subscribe(ctx, channels...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe realtime")
	}
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm realtime subscription")
	}

	out := make(chan Change, 16)
	go b.pump(ctx, ps.Channel(), out)
	return &Subscription{C: out, pubsub: ps}, nil
}

// pump decodes messages into out and closes it when in closes or ctx ends.
func (b *Broker) pump(ctx context.Context, in <-chan *goredis.Message, out chan<- Change) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				if b.logg != nil {
					b.logg.Warn(b.logg.WithField(ctx, "channel", msg.Channel), "dropping malformed realtime message")
				}
				continue
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}
}
