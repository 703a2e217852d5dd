// Package backend is the in-repo stand-in for the ordering backend: the
// authoritative enforcer of the order state machine, session scoping and
// money. It backs cmd/stubserver and the integration tests; production
// clients talk to the real service through the same HTTP surface.
package backend

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/comanda-pos/client/internal/api"
	"github.com/comanda-pos/client/internal/enum"
	"github.com/comanda-pos/client/internal/order"
)

// Errors returned by the store.
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrItemNotFound  = errors.New("item not found")
	ErrSessionScope  = errors.New("session does not match this table visit")
	ErrBadLogin      = errors.New("invalid credentials")
	ErrConflict      = errors.New("conflict")
	ErrValidation    = errors.New("invalid request")
)

// Staff is a seeded back-office account.
type Staff struct {
	ID           uuid.UUID
	Username     string
	PasswordHash []byte
	RestaurantID string
	UnitID       string
	Role         string
}

type rec struct {
	ord          order.Order
	restaurantID string
	unitID       string
	sessionID    string
}

// Store holds all orders, table sessions and staff accounts in memory.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	orders   map[string]*rec
	sessions map[string]string // restaurant|table|guest -> session id
	staff    map[string]Staff
}

// NewStore creates an empty Store. now may be nil.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:      now,
		orders:   make(map[string]*rec),
		sessions: make(map[string]string),
		staff:    make(map[string]Staff),
	}
}

// AddStaff seeds a staff account.
func (s *Store) AddStaff(username, password, restaurantID, unitID, role string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staff[username] = Staff{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		RestaurantID: restaurantID,
		UnitID:       unitID,
		Role:         role,
	}
	return nil
}

// Authenticate checks staff credentials.
func (s *Store) Authenticate(username, password string) (Staff, error) {
	s.mu.Lock()
	st, ok := s.staff[username]
	s.mu.Unlock()
	if !ok {
		return Staff{}, ErrBadLogin
	}
	if err := bcrypt.CompareHashAndPassword(st.PasswordHash, []byte(password)); err != nil {
		return Staff{}, ErrBadLogin
	}
	return st, nil
}

func sessionKey(restaurantID, tableID, guestID string) string {
	return restaurantID + "|" + tableID + "|" + guestID
}

// InitiateOrder creates or upserts an order. The first submit of a table
// visit issues the session token; resubmissions carrying a known order
// id update that order instead of duplicating it.
func (s *Store) InitiateOrder(restaurantID, sessionID string, req api.InitiateOrderRequest) (order.Order, string, error) {
	if req.TableID == "" || req.GuestID == "" {
		return order.Order{}, "", fmt.Errorf("%w: table_id and guest_id are required", ErrValidation)
	}
	if len(req.Items) == 0 {
		return order.Order{}, "", fmt.Errorf("%w: items are required", ErrValidation)
	}
	for i, it := range req.Items {
		if it.Quantity < 1 {
			return order.Order{}, "", fmt.Errorf("%w: items[%d]: quantity must be >= 1", ErrValidation, i)
		}
		if it.Price.IsNegative() {
			return order.Order{}, "", fmt.Errorf("%w: items[%d]: negative price", ErrValidation, i)
		}
	}
	orderType := req.OrderType
	if orderType == "" {
		orderType = enum.OrderTypeLocal
	}
	if orderType != enum.OrderTypeLocal && orderType != enum.OrderTypeTakeaway {
		return order.Order{}, "", fmt.Errorf("%w: invalid order_type", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(restaurantID, req.TableID, req.GuestID)
	sid := s.sessions[key]
	if sid == "" {
		sid = uuid.NewString()
		s.sessions[key] = sid
	} else if sessionID != "" && sessionID != sid {
		return order.Order{}, "", ErrSessionScope
	}

	now := s.now()

	// Upsert path: same guest resubmitting the same draft under flaky
	// connectivity updates the existing open order. Only orders the
	// kitchen is still working on qualify; once the bill is requested the
	// order's contents are frozen for this path.
	if req.OrderID != "" {
		if r, ok := s.orders[req.OrderID]; ok &&
			r.restaurantID == restaurantID &&
			r.ord.Meta.GuestID == req.GuestID &&
			r.ord.Meta.TableID == req.TableID &&
			r.ord.Status == enum.OrderStatusProcessing {
			r.ord.Items = s.assignItemIDs(req.Items)
			r.ord.Meta.Observations = req.Observations
			if req.SplitCount > 0 {
				r.ord.Meta.SplitCount = req.SplitCount
			}
			r.ord.TotalAmount = r.ord.Recompute()
			r.ord.UpdatedAt = now
			return r.ord.Clone(), sid, nil
		}
	}

	o := order.Order{
		ID:     uuid.NewString(),
		Items:  s.assignItemIDs(req.Items),
		Status: enum.OrderStatusProcessing,
		Meta: order.Meta{
			TableID:        req.TableID,
			GuestID:        req.GuestID,
			OrderType:      orderType,
			Observations:   req.Observations,
			SplitCount:     req.SplitCount,
			OrderCreatedAt: now,
		},
		GuestName: req.GuestName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.TotalAmount = o.Recompute()

	s.orders[o.ID] = &rec{
		ord:          o,
		restaurantID: restaurantID,
		unitID:       req.UnitID,
		sessionID:    sid,
	}
	return o.Clone(), sid, nil
}

func (s *Store) assignItemIDs(items []order.Item) []order.Item {
	out := make([]order.Item, len(items))
	for i, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if it.Status == "" {
			it.Status = enum.ItemStatusAdded
		}
		it.Addons = s.assignItemIDs(it.Addons)
		out[i] = it
	}
	return out
}

// GuestOrders returns the orders of one guest at one table, scoped by
// session token so other visits to the same table stay invisible.
func (s *Store) GuestOrders(restaurantID, tableID, guestID, sessionID string) ([]order.Order, error) {
	if sessionID == "" {
		return nil, ErrSessionScope
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []order.Order
	for _, r := range s.orders {
		if r.restaurantID == restaurantID &&
			r.ord.Meta.TableID == tableID &&
			r.ord.Meta.GuestID == guestID &&
			r.sessionID == sessionID {
			out = append(out, r.ord.Clone())
		}
	}
	sortByUpdated(out)
	return out, nil
}

// UnitOrders returns every order of the restaurant, optionally narrowed
// to one unit.
func (s *Store) UnitOrders(restaurantID, unitID string) []order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []order.Order
	for _, r := range s.orders {
		if r.restaurantID != restaurantID {
			continue
		}
		if unitID != "" && r.unitID != unitID {
			continue
		}
		out = append(out, r.ord.Clone())
	}
	sortByUpdated(out)
	return out
}

// CancelOrder cancels a whole order; only legal from processing.
func (s *Store) CancelOrder(restaurantID, orderID, sessionID string) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.guestRec(restaurantID, orderID, sessionID)
	if err != nil {
		return order.Order{}, err
	}
	if r.ord.Status != enum.OrderStatusProcessing {
		return order.Order{}, fmt.Errorf("%w: order is %s", ErrConflict, r.ord.Status)
	}
	now := s.now()
	r.ord.Status = enum.OrderStatusCancelled
	for i := range r.ord.Items {
		r.ord.Items[i].Status = enum.ItemStatusCancelled
	}
	r.ord.UpdatedAt = now
	return r.ord.Clone(), nil
}

// CancelItem cancels one item and recomputes the total. Cancelling the
// last active item cancels the order.
func (s *Store) CancelItem(restaurantID, orderID, itemID, sessionID string) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.guestRec(restaurantID, orderID, sessionID)
	if err != nil {
		return order.Order{}, err
	}
	if r.ord.Status != enum.OrderStatusProcessing {
		return order.Order{}, fmt.Errorf("%w: order is %s", ErrConflict, r.ord.Status)
	}

	found := false
	active := 0
	for i := range r.ord.Items {
		if r.ord.Items[i].ID == itemID {
			r.ord.Items[i].Status = enum.ItemStatusCancelled
			found = true
		}
		if r.ord.Items[i].Active() {
			active++
		}
	}
	if !found {
		return order.Order{}, ErrItemNotFound
	}
	if active == 0 {
		r.ord.Status = enum.OrderStatusCancelled
	}
	r.ord.TotalAmount = r.ord.Recompute()
	r.ord.UpdatedAt = s.now()
	return r.ord.Clone(), nil
}

// UpdateItem patches quantity/observations. Quantity zero removes the
// row entirely; a decrease keeps the client's "reduced" marker so the
// kitchen can tell it apart from a fresh addition.
func (s *Store) UpdateItem(restaurantID, orderID, itemID, sessionID string, req api.ItemUpdateRequest) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.guestRec(restaurantID, orderID, sessionID)
	if err != nil {
		return order.Order{}, err
	}
	if r.ord.Status != enum.OrderStatusProcessing {
		return order.Order{}, fmt.Errorf("%w: order is %s", ErrConflict, r.ord.Status)
	}
	if req.Quantity != nil && *req.Quantity < 0 {
		return order.Order{}, fmt.Errorf("%w: quantity must be >= 0", ErrValidation)
	}

	idx := -1
	for i := range r.ord.Items {
		if r.ord.Items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return order.Order{}, ErrItemNotFound
	}

	if req.Quantity != nil {
		if *req.Quantity == 0 {
			// Driven to zero: removed, not retained as a zero-row.
			r.ord.Items = append(r.ord.Items[:idx], r.ord.Items[idx+1:]...)
			idx = -1
		} else {
			it := &r.ord.Items[idx]
			switch {
			case *req.Quantity < it.Quantity:
				it.Status = enum.ItemStatusReduced
			case *req.Quantity > it.Quantity:
				it.Status = enum.ItemStatusAdded
			}
			it.Quantity = *req.Quantity
		}
	}
	if req.Observations != nil && idx >= 0 {
		r.ord.Items[idx].Observations = *req.Observations
	}

	active := 0
	for _, it := range r.ord.Items {
		if it.Active() {
			active++
		}
	}
	if active == 0 {
		r.ord.Status = enum.OrderStatusCancelled
	}
	r.ord.TotalAmount = r.ord.Recompute()
	r.ord.UpdatedAt = s.now()
	return r.ord.Clone(), nil
}

// RequestCheckout moves the order to payment_requested and stamps the
// request time. Legal from processing or completed only.
func (s *Store) RequestCheckout(restaurantID, orderID, sessionID string, req api.CheckoutRequest) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.guestRec(restaurantID, orderID, sessionID)
	if err != nil {
		return order.Order{}, err
	}
	if !r.ord.CanRequestCheckout() {
		return order.Order{}, fmt.Errorf("%w: order is %s", ErrConflict, r.ord.Status)
	}
	if req.SplitCount < 1 {
		return order.Order{}, fmt.Errorf("%w: split count must be >= 1", ErrValidation)
	}

	now := s.now()
	r.ord.Status = enum.OrderStatusPaymentRequested
	r.ord.Meta.SplitCount = req.SplitCount
	r.ord.Meta.PaymentRequestedAt = &now
	r.ord.UpdatedAt = now
	return r.ord.Clone(), nil
}

// legalStatusTargets maps a current status to the transitions staff may
// drive from it.
var legalStatusTargets = map[string]map[string]bool{
	enum.OrderStatusProcessing: {
		enum.OrderStatusCompleted:        true,
		enum.OrderStatusCancelled:        true,
		enum.OrderStatusPaymentRequested: true,
	},
	enum.OrderStatusCompleted: {
		enum.OrderStatusPaymentRequested: true,
	},
	enum.OrderStatusPaymentRequested: {
		enum.OrderStatusPaid: true,
	},
}

// UpdateStatus performs a staff transition; terminal states admit none.
func (s *Store) UpdateStatus(restaurantID, orderID, status, processedBy string) (order.Order, error) {
	switch status {
	case enum.OrderStatusProcessing, enum.OrderStatusCompleted, enum.OrderStatusCancelled,
		enum.OrderStatusPaymentRequested, enum.OrderStatusPaid:
	default:
		return order.Order{}, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.orders[orderID]
	if !ok || r.restaurantID != restaurantID {
		return order.Order{}, ErrOrderNotFound
	}
	if !legalStatusTargets[r.ord.Status][status] {
		return order.Order{}, fmt.Errorf("%w: cannot move %s order to %s", ErrConflict, r.ord.Status, status)
	}

	now := s.now()
	r.ord.Status = status
	if status == enum.OrderStatusPaid {
		r.ord.IsPaid = true
		// The table visit is settled; the session token dies with it.
		delete(s.sessions, sessionKey(r.restaurantID, r.ord.Meta.TableID, r.ord.Meta.GuestID))
	}
	if processedBy != "" {
		r.ord.Meta.ProcessedBy = processedBy
	}
	r.ord.UpdatedAt = now
	return r.ord.Clone(), nil
}

func (s *Store) guestRec(restaurantID, orderID, sessionID string) (*rec, error) {
	r, ok := s.orders[orderID]
	if !ok || r.restaurantID != restaurantID {
		return nil, ErrOrderNotFound
	}
	if sessionID == "" || r.sessionID != sessionID {
		return nil, ErrSessionScope
	}
	return r, nil
}

func sortByUpdated(orders []order.Order) {
	sort.Slice(orders, func(i, j int) bool {
		ti, tj := orders[i].Timestamp(), orders[j].Timestamp()
		if ti.Equal(tj) {
			return orders[i].ID < orders[j].ID
		}
		return ti.After(tj)
	})
}
