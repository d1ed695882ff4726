package orders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dishdash-backend/internal/realtime"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
)

type stubBroker struct {
	ch      chan realtime.Change
	err     error
	targets []realtime.Target
}

func (b *stubBroker) Subscribe(_ context.Context, targets ...realtime.Target) (*realtime.Subscription, error) {
	b.targets = targets
	if b.err != nil {
		return nil, b.err
	}
	return &realtime.Subscription{C: b.ch}, nil
}

type stubOwned []uuid.UUID

func (s stubOwned) OwnedIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return s, nil
}

func TestStreamWritesOnlyNewerVersions(t *testing.T) {
	orderID := uuid.New()
	broker := &stubBroker{ch: make(chan realtime.Change, 4)}
	broker.ch <- realtime.Change{OrderID: orderID, Status: enums.OrderStatusAccepted, Version: 2}
	broker.ch <- realtime.Change{OrderID: orderID, Status: enums.OrderStatusPlaced, Version: 1}
	broker.ch <- realtime.Change{OrderID: orderID, Status: enums.OrderStatusAccepted, Version: 2}
	broker.ch <- realtime.Change{OrderID: orderID, Status: enums.OrderStatusPreparing, Version: 3}
	close(broker.ch)

	resp := httptest.NewRecorder()
	Stream(broker, nil, time.Hour, nil).ServeHTTP(resp, actorRequest(http.MethodGet, "/api/v1/orders/stream", "", enums.UserRoleCustomer, nil))

	if ct := resp.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := resp.Body.String()
	if got := strings.Count(body, "event: order"); got != 2 {
		t.Fatalf("expected 2 frames, got %d:\n%s", got, body)
	}
	if !strings.Contains(body, "id: "+orderID.String()+":2\n") || !strings.Contains(body, "id: "+orderID.String()+":3\n") {
		t.Fatalf("missing expected frame ids:\n%s", body)
	}
	if strings.Contains(body, ":1\n") {
		t.Fatalf("stale version leaked:\n%s", body)
	}
	if len(broker.targets) != 1 || broker.targets[0].Audience != realtime.AudienceCustomer {
		t.Fatalf("unexpected targets %+v", broker.targets)
	}
}

func TestStreamHonorsLastEventID(t *testing.T) {
	orderID := uuid.New()
	broker := &stubBroker{ch: make(chan realtime.Change, 2)}
	broker.ch <- realtime.Change{OrderID: orderID, Version: 4}
	broker.ch <- realtime.Change{OrderID: orderID, Version: 5}
	close(broker.ch)

	req := actorRequest(http.MethodGet, "/api/v1/orders/stream", "", enums.UserRoleCustomer, nil)
	req.Header.Set("Last-Event-ID", orderID.String()+":4")
	resp := httptest.NewRecorder()
	Stream(broker, nil, time.Hour, nil).ServeHTTP(resp, req)

	if got := strings.Count(resp.Body.String(), "event: order"); got != 1 {
		t.Fatalf("expected only version 5, got %d frames", got)
	}
}

func TestStreamSubscribesOwnedRestaurants(t *testing.T) {
	owned := stubOwned{uuid.New(), uuid.New()}
	broker := &stubBroker{ch: make(chan realtime.Change)}
	close(broker.ch)

	resp := httptest.NewRecorder()
	Stream(broker, owned, time.Hour, nil).ServeHTTP(resp, actorRequest(http.MethodGet, "/", "", enums.UserRoleRestaurant, nil))

	if len(broker.targets) != 2 {
		t.Fatalf("expected one target per owned restaurant, got %+v", broker.targets)
	}
	for i, target := range broker.targets {
		if target.Audience != realtime.AudienceRestaurant || target.ID != owned[i].String() {
			t.Fatalf("unexpected target %+v", target)
		}
	}
}

func TestStreamSubscribeFailure(t *testing.T) {
	broker := &stubBroker{err: pkgerrors.New(pkgerrors.CodeDependency, "subscribe realtime")}
	resp := httptest.NewRecorder()
	Stream(broker, nil, time.Hour, nil).ServeHTTP(resp, actorRequest(http.MethodGet, "/", "", enums.UserRoleCustomer, nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestStreamStopsOnDisconnect(t *testing.T) {
	broker := &stubBroker{ch: make(chan realtime.Change)}
	req := actorRequest(http.MethodGet, "/", "", enums.UserRoleCustomer, nil)
	ctx, cancel := context.WithCancel(req.Context())
	req = req.WithContext(ctx)

	done := make(chan struct{})
	go func() {
		Stream(broker, nil, time.Hour, nil).ServeHTTP(httptest.NewRecorder(), req)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after the client went away")
	}
}

func TestParseEventID(t *testing.T) {
	id := uuid.New()
	gotID, version, ok := parseEventID(id.String() + ":7")
	if !ok || gotID != id || version != 7 {
		t.Fatalf("unexpected parse result %s %d %v", gotID, version, ok)
	}
	for _, raw := range []string{"", "nope", id.String(), id.String() + ":x", id.String() + ":0"} {
		if _, _, ok := parseEventID(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}
