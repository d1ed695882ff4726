package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
)

type fakePubSub struct {
	published map[string][]string
	failOn    string
}

func (f *fakePubSub) Publish(_ context.Context, channel string, payload any) error {
	if channel == f.failOn {
		return errors.New("redis down")
	}
	if f.published == nil {
		f.published = map[string][]string{}
	}
	f.published[channel] = append(f.published[channel], payload.(string))
	return nil
}

func (f *fakePubSub) Subscribe(context.Context, ...string) (*goredis.PubSub, error) {
	return nil, errors.New("not supported")
}

func (f *fakePubSub) RealtimeChannel(audience, id string) string {
	if id == "" {
		return "dd:rt:" + audience
	}
	return "dd:rt:" + audience + ":" + id
}

func TestReconcilerDiscardsStaleVersions(t *testing.T) {
	r := NewReconciler()
	order := uuid.New()

	assert.True(t, r.Accept(Change{OrderID: order, Version: 2}))
	assert.False(t, r.Accept(Change{OrderID: order, Version: 2}), "equal version must be discarded")
	assert.False(t, r.Accept(Change{OrderID: order, Version: 1}), "older version must be discarded")
	assert.True(t, r.Accept(Change{OrderID: order, Version: 5}), "newer versions are accepted even with gaps")
	assert.Equal(t, int64(5), r.Latest(order))

	r.Observe(order, 7)
	assert.False(t, r.Accept(Change{OrderID: order, Version: 6}))
	r.Observe(order, 3)
	assert.Equal(t, int64(7), r.Latest(order), "observe never moves backwards")

	other := uuid.New()
	assert.True(t, r.Accept(Change{OrderID: other, Version: 1}))
}

func TestTargets(t *testing.T) {
	agent := uuid.New()
	change := Change{OrderID: uuid.New(), CustomerID: uuid.New(), RestaurantID: uuid.New()}
	assert.Len(t, change.Targets(), 3)

	change.AgentID = &agent
	targets := change.Targets()
	require.Len(t, targets, 4)
	assert.Equal(t, Target{Audience: AudienceAgent, ID: agent.String()}, targets[2])
	assert.Equal(t, Target{Audience: AudienceAdmin}, targets[3])

	user := uuid.New()
	restaurants := []uuid.UUID{uuid.New(), uuid.New()}
	assert.Equal(t, []Target{{Audience: AudienceCustomer, ID: user.String()}}, TargetsFor(enums.UserRoleCustomer, user, nil))
	assert.Len(t, TargetsFor(enums.UserRoleRestaurant, user, restaurants), 2)
	assert.Equal(t, []Target{{Audience: AudienceAdmin}}, TargetsFor(enums.UserRoleAdmin, user, nil))
	assert.Empty(t, TargetsFor(enums.UserRoleSystem, user, nil))
}

func TestBrokerPublishFansOut(t *testing.T) {
	client := &fakePubSub{}
	broker, err := NewBroker(client, nil)
	require.NoError(t, err)

	change := Change{
		OrderID:      uuid.New(),
		CustomerID:   uuid.New(),
		RestaurantID: uuid.New(),
		Status:       enums.OrderStatusAccepted,
		Version:      2,
	}
	require.NoError(t, broker.Publish(context.Background(), change))

	customerChannel := "dd:rt:customer:" + change.CustomerID.String()
	require.Len(t, client.published[customerChannel], 1)
	require.Len(t, client.published["dd:rt:admin"], 1)

	var decoded Change
	require.NoError(t, json.Unmarshal([]byte(client.published[customerChannel][0]), &decoded))
	assert.Equal(t, change.OrderID, decoded.OrderID)
	assert.Equal(t, enums.OrderStatusAccepted, decoded.Status)
	assert.False(t, decoded.OccurredAt.IsZero())
}

func TestBrokerPublishReportsPartialFailure(t *testing.T) {
	client := &fakePubSub{failOn: "dd:rt:admin"}
	broker, _ := NewBroker(client, nil)
	change := Change{OrderID: uuid.New(), CustomerID: uuid.New(), RestaurantID: uuid.New(), Version: 1}

	err := broker.Publish(context.Background(), change)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Len(t, client.published, 2, "other channels still receive the change")
}

func TestBrokerSubscribeRequiresTargets(t *testing.T) {
	broker, _ := NewBroker(&fakePubSub{}, nil)
	_, err := broker.Subscribe(context.Background())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestPumpDecodesAndSkipsMalformed(t *testing.T) {
	broker, _ := NewBroker(&fakePubSub{}, nil)
	in := make(chan *goredis.Message, 3)
	out := make(chan Change, 3)

	want := Change{OrderID: uuid.New(), Version: 4, Status: enums.OrderStatusReady}
	payload, _ := json.Marshal(want)
	in <- &goredis.Message{Channel: "c", Payload: "not json"}
	in <- &goredis.Message{Channel: "c", Payload: string(payload)}
	close(in)

	broker.pump(context.Background(), in, out)

	got, ok := <-out
	require.True(t, ok)
	assert.Equal(t, want.OrderID, got.OrderID)
	assert.Equal(t, int64(4), got.Version)
	_, ok = <-out
	assert.False(t, ok, "out closes when input closes")
}

func TestPumpStopsOnContextCancel(t *testing.T) {
	broker, _ := NewBroker(&fakePubSub{}, nil)
	in := make(chan *goredis.Message)
	out := make(chan Change)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		broker.pump(ctx, in, out)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not stop after cancel")
	}
}
