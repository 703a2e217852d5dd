// Package ledger owns the authoritative-as-known set of orders for the
// current guest/table (or a staff unit view) and reconciles it against
// the backend. Only the ledger mutates the collection; every other
// component reads through it and dispatches its operations.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/client/internal/api"
	"github.com/comanda-pos/client/internal/cache"
	"github.com/comanda-pos/client/internal/enum"
	"github.com/comanda-pos/client/internal/guest"
	"github.com/comanda-pos/client/internal/order"
	"github.com/comanda-pos/client/internal/session"
)

const snapshotKey = "orders:snapshot"

// Backend is the client surface the ledger needs. Satisfied by
// *api.Client; narrow interface for testability.
type Backend interface {
	InitiateOrder(ctx context.Context, restaurantID, sessionID string, req api.InitiateOrderRequest) (*api.InitiateOrderResult, error)
	GuestOrders(ctx context.Context, restaurantID, tableID, guestID, sessionID string) ([]order.Order, error)
	UnitOrders(ctx context.Context, restaurantID, unitID, token string) ([]order.Order, error)
	CancelOrder(ctx context.Context, restaurantID, orderID, sessionID string) (*order.Order, error)
	CancelItem(ctx context.Context, restaurantID, orderID, itemID, sessionID string) (*order.Order, error)
	UpdateItem(ctx context.Context, restaurantID, orderID, itemID, sessionID string, req api.ItemUpdateRequest) (*order.Order, error)
	RequestCheckout(ctx context.Context, restaurantID, orderID, sessionID string, req api.CheckoutRequest) (*order.Order, error)
	UpdateStatus(ctx context.Context, restaurantID, orderID, status, token string) (*order.Order, error)
}

// GuestProvider issues the stable guest identity. Satisfied by
// *guest.Provider.
type GuestProvider interface {
	GetOrCreate(ctx context.Context, name string) (guest.Identity, error)
}

// Ledger is the order lifecycle core. All dependencies are constructor
// injected; there are no package-level singletons.
type Ledger struct {
	backend  Backend
	guests   GuestProvider
	session  *session.Context
	cache    cache.Store
	now      func() time.Time
	log      zerolog.Logger
	validate *validator.Validate

	mu          sync.Mutex
	orders      map[string]order.Order
	visible     []order.Order // sorted by Timestamp desc, rebuilt on apply
	lastOrderID string        // last server-assigned id, echoed on resubmit
	lastChanges order.Changes
	scheduler   gocron.Scheduler
}

// New creates a Ledger. now may be nil (defaults to time.Now).
func New(backend Backend, guests GuestProvider, sess *session.Context, store cache.Store, now func() time.Time, log zerolog.Logger) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		backend:  backend,
		guests:   guests,
		session:  sess,
		cache:    store,
		now:      now,
		log:      log,
		validate: validator.New(),
		orders:   make(map[string]order.Order),
	}
}

// Draft is the cart content a submit is built from. On any submit
// failure the draft is left untouched so the guest can retry without
// re-entering data.
type Draft struct {
	GuestName    string      `validate:"omitempty,max=120"`
	OrderType    string      `validate:"required,oneof=local takeaway"`
	Observations string      `validate:"omitempty,max=500"`
	SplitCount   int         `validate:"omitempty,min=1"`
	Items        []DraftItem `validate:"required,min=1,dive"`
}

// DraftItem is one cart line.
type DraftItem struct {
	ProductID    string          `validate:"required"`
	Name         string          `validate:"required"`
	Price        decimal.Decimal `validate:"-"`
	Quantity     int             `validate:"required,min=1"`
	Observations string          `validate:"omitempty,max=500"`
	Addons       []DraftItem     `validate:"omitempty,dive"`
}

// Total is the draft's display total. Only valid until the server
// answers; server totals win from then on.
func (d Draft) Total() decimal.Decimal {
	return draftOrder(d).Recompute()
}

func draftOrder(d Draft) order.Order {
	return order.Order{Items: draftItems(d.Items)}
}

func draftItems(items []DraftItem) []order.Item {
	out := make([]order.Item, len(items))
	for i, it := range items {
		out[i] = order.Item{
			ProductID:    it.ProductID,
			Name:         it.Name,
			Price:        it.Price,
			Quantity:     it.Quantity,
			Observations: it.Observations,
			Addons:       draftItems(it.Addons),
			Status:       enum.ItemStatusAdded,
		}
	}
	return out
}

// Submit sends the draft to the backend and adopts the canonical order
// from the response, including the server-assigned id, recomputed total
// and the session token issued for this table visit. Resubmissions carry
// the last known order id so the backend upserts instead of duplicating.
func (l *Ledger) Submit(ctx context.Context, d Draft) (order.Order, error) {
	if err := l.validate.Struct(d); err != nil {
		return order.Order{}, &api.ValidationError{Reason: err.Error()}
	}
	for i, it := range d.Items {
		if it.Price.IsNegative() {
			return order.Order{}, &api.ValidationError{Reason: fmt.Sprintf("items[%d]: negative price", i)}
		}
	}

	b, err := l.session.Binding()
	if err != nil {
		return order.Order{}, &api.ValidationError{Reason: "no table bound"}
	}
	g, err := l.guests.GetOrCreate(ctx, d.GuestName)
	if err != nil {
		return order.Order{}, fmt.Errorf("guest identity: %w", err)
	}
	sessionID, _ := l.session.SessionID() // empty on first submit

	l.mu.Lock()
	lastID := l.lastOrderID
	l.mu.Unlock()

	res, err := l.backend.InitiateOrder(ctx, b.RestaurantID, sessionID, api.InitiateOrderRequest{
		OrderID:      lastID,
		TableID:      b.TableID,
		UnitID:       b.UnitID,
		GuestID:      g.ID,
		GuestName:    g.Name,
		OrderType:    d.OrderType,
		Observations: d.Observations,
		SplitCount:   d.SplitCount,
		Items:        draftItems(d.Items),
	})
	if err != nil {
		return order.Order{}, err
	}

	l.session.SetSessionID(res.SessionID)

	l.mu.Lock()
	if lastID != "" && lastID != res.Order.ID {
		// Backend opened a fresh order (previous one settled); the old
		// local copy is superseded.
		delete(l.orders, lastID)
	}
	l.lastOrderID = res.Order.ID
	l.orders[res.Order.ID] = res.Order
	l.rebuildLocked(ctx)
	l.mu.Unlock()

	l.log.Debug().Str("order_id", res.Order.ID).Str("table", b.TableID).Msg("order submitted")
	return res.Order.Clone(), nil
}

// CancelOrder cancels a whole order. Permitted only from processing; the
// backend performs the authoritative check and the local status is never
// flipped before confirmation.
func (l *Ledger) CancelOrder(ctx context.Context, orderID string) error {
	b, sessionID, err := l.guestScope()
	if err != nil {
		return err
	}
	if err := l.guardCancel(orderID); err != nil {
		return err
	}
	res, err := l.backend.CancelOrder(ctx, b.RestaurantID, orderID, sessionID)
	if err != nil {
		l.resyncOnConflict(ctx, err)
		return err
	}
	l.apply(ctx, *res)
	return nil
}

// CancelItem cancels one item and adopts the server's post-cancellation
// order wholesale; the new total is never derived client-side.
func (l *Ledger) CancelItem(ctx context.Context, orderID, itemID string) error {
	b, sessionID, err := l.guestScope()
	if err != nil {
		return err
	}
	if err := l.guardCancel(orderID); err != nil {
		return err
	}
	res, err := l.backend.CancelItem(ctx, b.RestaurantID, orderID, itemID, sessionID)
	if err != nil {
		l.resyncOnConflict(ctx, err)
		return err
	}
	l.apply(ctx, *res)
	return nil
}

// ItemUpdate patches quantity and/or observations on one item.
type ItemUpdate struct {
	Quantity     *int
	Observations *string
}

// UpdateItem sends the patch with an informational status hint: a
// decrease marks the item reduced (removed at zero) so kitchen staff can
// tell it apart from a fresh addition. Billing always uses the live
// quantity.
func (l *Ledger) UpdateItem(ctx context.Context, orderID, itemID string, upd ItemUpdate) error {
	b, sessionID, err := l.guestScope()
	if err != nil {
		return err
	}
	if upd.Quantity != nil && *upd.Quantity < 0 {
		return &api.ValidationError{Reason: "quantity must be >= 0"}
	}

	req := api.ItemUpdateRequest{Quantity: upd.Quantity, Observations: upd.Observations}
	if upd.Quantity != nil {
		req.Status = l.quantityHint(orderID, itemID, *upd.Quantity)
	}

	res, err := l.backend.UpdateItem(ctx, b.RestaurantID, orderID, itemID, sessionID, req)
	if err != nil {
		l.resyncOnConflict(ctx, err)
		return err
	}
	l.apply(ctx, *res)
	return nil
}

// RequestCheckout transitions every eligible order for this guest/table
// into payment_requested. The checkout coordinator layers the
// single-flight guard and split math on top of this.
func (l *Ledger) RequestCheckout(ctx context.Context, splitCount int) error {
	b, sessionID, err := l.guestScope()
	if err != nil {
		return err
	}
	g, err := l.guests.GetOrCreate(ctx, "")
	if err != nil {
		return fmt.Errorf("guest identity: %w", err)
	}

	l.mu.Lock()
	var eligible []string
	for _, o := range l.visible {
		if o.CanRequestCheckout() {
			eligible = append(eligible, o.ID)
		}
	}
	l.mu.Unlock()

	if len(eligible) == 0 {
		return &api.ValidationError{Reason: "no open order to check out"}
	}

	for _, id := range eligible {
		res, err := l.backend.RequestCheckout(ctx, b.RestaurantID, id, sessionID, api.CheckoutRequest{
			TableID:    b.TableID,
			GuestID:    g.ID,
			SplitCount: splitCount,
		})
		if err != nil {
			l.resyncOnConflict(ctx, err)
			return err
		}
		l.apply(ctx, *res)
	}
	return nil
}

// UpdateStatus is the staff-only transition. Terminal statuses are
// refused locally (the action is disabled, not merely hidden) before the
// backend performs its own check.
func (l *Ledger) UpdateStatus(ctx context.Context, restaurantID, orderID, status, token string) (order.Order, error) {
	l.mu.Lock()
	if o, ok := l.orders[orderID]; ok && order.Terminal(o.Status) {
		l.mu.Unlock()
		return order.Order{}, &api.ConflictError{Message: fmt.Sprintf("order is %s", o.Status)}
	}
	l.mu.Unlock()

	res, err := l.backend.UpdateStatus(ctx, restaurantID, orderID, status, token)
	if err != nil {
		return order.Order{}, err
	}
	l.apply(ctx, *res)
	return res.Clone(), nil
}

// Orders returns the current visible set, most recently changed first.
// Deep copies: callers never alias the owned collection.
func (l *Ledger) Orders() []order.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	return order.CloneAll(l.visible)
}

// Order returns one order by id.
func (l *Ledger) Order(id string) (order.Order, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return order.Order{}, false
	}
	return o.Clone(), true
}

// Changes reports what the most recent reconciliation changed; the
// kanban view uses it to highlight fresh orders and items.
func (l *Ledger) Changes() order.Changes {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastChanges
}

// --- internals ---

// guestScope resolves the table binding and session token for a
// guest-scoped mutation. Both missing pieces are validation errors:
// fixable by re-binding or submitting first.
func (l *Ledger) guestScope() (session.Binding, string, error) {
	b, err := l.session.Binding()
	if err != nil {
		return session.Binding{}, "", &api.ValidationError{Reason: "no table bound"}
	}
	sessionID, err := l.session.SessionID()
	if err != nil {
		return session.Binding{}, "", &api.ValidationError{Reason: "no session for this table visit"}
	}
	return b, sessionID, nil
}

// guardCancel is the client-side guard rail: cancellation is only
// offered from processing. The backend remains the enforcer of legality.
func (l *Ledger) guardCancel(orderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if o, ok := l.orders[orderID]; ok && !o.CanCancel() {
		return &api.ConflictError{Message: fmt.Sprintf("order is %s", o.Status)}
	}
	return nil
}

func (l *Ledger) quantityHint(orderID, itemID string, quantity int) string {
	if quantity == 0 {
		return enum.ItemStatusRemoved
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if o, ok := l.orders[orderID]; ok {
		for _, it := range o.Items {
			if it.ID == itemID && quantity < it.Quantity {
				return enum.ItemStatusReduced
			}
		}
	}
	return enum.ItemStatusAdded
}

// apply upserts one server-returned order atomically, keyed by the
// response's own timestamp. Responses may complete out of issue order; a
// late-arriving older body must not clobber a newer one.
func (l *Ledger) apply(ctx context.Context, o order.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mergeLocked(o)
	l.rebuildLocked(ctx)
}

// mergeLocked is the upsert-merge: last writer wins by timestamp, ties
// favor the incoming (server) record.
func (l *Ledger) mergeLocked(o order.Order) {
	existing, ok := l.orders[o.ID]
	if ok && existing.Timestamp().After(o.Timestamp()) {
		return
	}
	l.orders[o.ID] = o
}

// rebuildLocked refreshes the sorted view, records the diff against the
// previous view and persists the filtered snapshot. Callers hold l.mu.
func (l *Ledger) rebuildLocked(ctx context.Context) {
	next := make([]order.Order, 0, len(l.orders))
	for _, o := range l.orders {
		next = append(next, o)
	}
	sort.Slice(next, func(i, j int) bool {
		ti, tj := next[i].Timestamp(), next[j].Timestamp()
		if ti.Equal(tj) {
			return next[i].ID < next[j].ID
		}
		return ti.After(tj)
	})

	l.lastChanges = order.Diff(l.visible, next)
	l.visible = next
	l.persistLocked(ctx)
}

// persistLocked writes the filtered snapshot: settled and terminal
// orders are dropped on every write. Failures are logged only; the
// cache is not safety-critical.
func (l *Ledger) persistLocked(ctx context.Context) {
	snapshot := order.FilterCacheable(l.visible)
	raw, err := json.Marshal(snapshot)
	if err != nil {
		l.log.Warn().Err(err).Msg("encode order snapshot")
		return
	}
	if err := l.cache.Set(ctx, snapshotKey, raw); err != nil {
		l.log.Warn().Err(err).Msg("persist order snapshot")
	}
}

// LoadCached seeds the ledger from the persisted snapshot, if any. A
// later fetch always supersedes it; an empty or stale cache never blocks
// repopulation.
func (l *Ledger) LoadCached(ctx context.Context) error {
	raw, err := l.cache.Get(ctx, snapshotKey)
	if errors.Is(err, cache.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read order snapshot: %w", err)
	}
	var snapshot []order.Order
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		// Corrupt cache: drop it rather than blocking a fresh fetch.
		l.log.Warn().Err(err).Msg("discarding unreadable order snapshot")
		return l.cache.Delete(ctx, snapshotKey)
	}
	l.mu.Lock()
	for _, o := range snapshot {
		l.mergeLocked(o)
	}
	l.rebuildLocked(ctx)
	l.mu.Unlock()
	return nil
}

// resyncOnConflict refreshes from the server after a rejected
// transition so the local view converges on whatever the server holds.
func (l *Ledger) resyncOnConflict(ctx context.Context, err error) {
	if !api.IsConflict(err) {
		return
	}
	if _, ferr := l.FetchForGuest(ctx); ferr != nil {
		l.log.Warn().Err(ferr).Msg("resync after conflict failed")
	}
}
