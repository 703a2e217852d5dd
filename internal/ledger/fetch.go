package ledger

import (
	"context"

	"github.com/comanda-pos/client/internal/enum"
	"github.com/comanda-pos/client/internal/order"
)

// FetchForGuest pulls the guest/table order set and replaces the local
// scope with the server's response wholesale; the server is
// authoritative for anything it returns. Before a session exists this is
// "no orders yet", not an error. On failure the collection is left
// unchanged and returned alongside the error so the UI can offer a
// retry.
func (l *Ledger) FetchForGuest(ctx context.Context) ([]order.Order, error) {
	b, err := l.session.Binding()
	if err != nil {
		return nil, err
	}
	g, err := l.guests.GetOrCreate(ctx, "")
	if err != nil {
		return nil, err
	}
	sessionID, err := l.session.SessionID()
	if err != nil {
		// No session token means nothing was ever submitted this visit.
		return l.Orders(), nil
	}

	incoming, err := l.backend.GuestOrders(ctx, b.RestaurantID, b.TableID, g.ID, sessionID)
	if err != nil {
		l.log.Debug().Err(err).Msg("guest fetch failed, keeping local set")
		return l.Orders(), err
	}

	l.mu.Lock()
	// Replace the full local set for this guest/table scope.
	for id, o := range l.orders {
		if o.Meta.GuestID == g.ID && o.Meta.TableID == b.TableID {
			delete(l.orders, id)
		}
	}
	var newestOpen order.Order
	for _, o := range incoming {
		l.orders[o.ID] = o
		// Resubmits may only upsert into an order the kitchen is still
		// working on; billed or settled orders are never rewritten.
		if o.Status == enum.OrderStatusProcessing &&
			(newestOpen.ID == "" || o.Timestamp().After(newestOpen.Timestamp())) {
			newestOpen = o
		}
	}
	l.lastOrderID = newestOpen.ID
	l.rebuildLocked(ctx)
	l.mu.Unlock()

	return l.Orders(), nil
}

// FetchForUnit pulls the staff view for a whole unit and upserts it into
// the existing collection rather than replacing it: the manager's view
// aggregates many tables and a transient fetch failure for a subset must
// not blank the rest. Last writer wins by timestamp, ties favor the
// incoming record.
func (l *Ledger) FetchForUnit(ctx context.Context, restaurantID, unitID, token string) ([]order.Order, error) {
	incoming, err := l.backend.UnitOrders(ctx, restaurantID, unitID, token)
	if err != nil {
		l.log.Debug().Err(err).Msg("unit fetch failed, keeping local set")
		return l.Orders(), err
	}

	l.mu.Lock()
	for _, o := range incoming {
		l.mergeLocked(o)
	}
	l.rebuildLocked(ctx)
	l.mu.Unlock()

	return l.Orders(), nil
}
