package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dishdash-backend/api/responses"
	"github.com/angelmondragon/dishdash-backend/internal/realtime"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/logger"
)

const defaultHeartbeat = 25 * time.Second

type changeSubscriber interface {
	Subscribe(ctx context.Context, targets ...realtime.Target) (*realtime.Subscription, error)
}

type ownedRestaurants interface {
	OwnedIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error)
}

// Stream pushes order changes to the actor as server-sent events. Each frame
// is an "order" event with id "<order_id>:<version>"; changes at or below a
// version the connection already delivered are dropped.
func Stream(broker changeSubscriber, owned ownedRestaurants, heartbeat time.Duration, logg *logger.Logger) http.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if broker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "realtime broker unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var restaurantIDs []uuid.UUID
		if actor.Role == enums.UserRoleRestaurant {
			if owned == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "restaurant lookup unavailable"))
				return
			}
			restaurantIDs, err = owned.OwnedIDs(r.Context(), actor.UserID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sub, err := broker.Subscribe(ctx, realtime.TargetsFor(actor.Role, actor.UserID, restaurantIDs)...)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer sub.Close()

		rc := http.NewResponseController(w)
		// the server write timeout would otherwise cut long-lived streams
		_ = rc.SetWriteDeadline(time.Time{})

		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		reconciler := realtime.NewReconciler()
		if orderID, version, ok := parseEventID(r.Header.Get("Last-Event-ID")); ok {
			reconciler.Observe(orderID, version)
		}

		if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
			return
		}
		_ = rc.Flush()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
					return
				}
				_ = rc.Flush()
			case change, ok := <-sub.C:
				if !ok {
					return
				}
				if !reconciler.Accept(change) {
					continue
				}
				if err := writeChange(w, change); err != nil {
					if logg != nil {
						logg.Warn(logg.WithOrderID(ctx, change.OrderID.String()), "realtime.stream_write_failed")
					}
					return
				}
				_ = rc.Flush()
			}
		}
	}
}

func writeChange(w http.ResponseWriter, change realtime.Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s:%d\nevent: order\ndata: %s\n\n", change.OrderID, change.Version, data)
	return err
}

// parseEventID reads the "<order_id>:<version>" id a reconnecting client
// echoes back through Last-Event-ID.
func parseEventID(raw string) (uuid.UUID, int64, bool) {
	idPart, versionPart, found := strings.Cut(strings.TrimSpace(raw), ":")
	if !found {
		return uuid.Nil, 0, false
	}
	orderID, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, 0, false
	}
	version, err := strconv.ParseInt(versionPart, 10, 64)
	if err != nil || version < 1 {
		return uuid.Nil, 0, false
	}
	return orderID, version, true
}
