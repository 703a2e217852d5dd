package ledger

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"

	"github.com/comanda-pos/client/internal/api"
	"github.com/comanda-pos/client/internal/order"
	"github.com/comanda-pos/client/internal/ws"
)

// Watch subscribes to the backend's live order feed and runs every
// pushed order through the same upsert-merge as polling, so push and
// poll cannot diverge. Blocks until ctx is cancelled or the connection
// drops; reconnecting is the caller's decision (a dropped feed just
// means falling back to polling).
func (l *Ledger) Watch(ctx context.Context, feedURL string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, feedURL, nil)
	if err != nil {
		return &api.NetworkError{Op: "dial feed", Err: err}
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var ev ws.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &api.NetworkError{Op: "read feed", Err: err}
		}

		switch ev.Type {
		case ws.EventOrderUpdated:
			var o order.Order
			if err := json.Unmarshal(ev.Payload, &o); err != nil {
				l.log.Warn().Err(err).Str("type", ev.Type).Msg("unreadable feed event")
				continue
			}
			l.apply(context.Background(), o)
		default:
			l.log.Debug().Str("type", ev.Type).Msg("ignoring feed event")
		}
	}
}
