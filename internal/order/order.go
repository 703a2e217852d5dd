package order

import (
	"time"

	"github.com/jinzhu/copier"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/client/internal/enum"
)

// Item is a single line of an order. Price is a snapshot taken at order
// time; later menu price changes never alter it.
type Item struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	Addons       []Item          `json:"addons,omitempty"`
	Observations string          `json:"observations,omitempty"`
	Status       string          `json:"status"`
}

// Active reports whether the item still counts toward the order total.
func (it Item) Active() bool {
	return it.Status != enum.ItemStatusCancelled && it.Status != enum.ItemStatusRemoved
}

// Meta carries the table/guest scope and checkout details of an order.
type Meta struct {
	TableID            string     `json:"table_id"`
	GuestID            string     `json:"guest_id"`
	OrderType          string     `json:"order_type"`
	Observations       string     `json:"observations,omitempty"`
	SplitCount         int        `json:"split_count,omitempty"`
	PaymentMethod      string     `json:"payment_method,omitempty"`
	PaymentRequestedAt *time.Time `json:"payment_requested_at,omitempty"`
	ProcessedBy        string     `json:"processed_by,omitempty"`
	OrderCreatedAt     time.Time  `json:"order_created_at"`
}

// Order is the canonical order object. The backend is authoritative for
// TotalAmount and Status; clients recompute totals only while no server
// response has been seen for a mutation.
type Order struct {
	ID          string          `json:"id"`
	Items       []Item          `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	IsPaid      bool            `json:"is_paid"`
	Meta        Meta            `json:"meta"`
	GuestName   string          `json:"guest_name,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Recompute returns the sum of price*quantity over active items.
// Used for local display before any server total exists; once the server
// answers, its total wins.
func (o Order) Recompute() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		if !it.Active() {
			continue
		}
		line := it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		for _, ad := range it.Addons {
			if ad.Active() {
				line = line.Add(ad.Price.Mul(decimal.NewFromInt(int64(ad.Quantity))))
			}
		}
		total = total.Add(line)
	}
	return total
}

// Terminal reports whether status admits no further transitions.
func Terminal(status string) bool {
	return status == enum.OrderStatusPaid || status == enum.OrderStatusCancelled
}

// CanCancel reports whether a guest may still cancel the order or one of
// its items. The backend performs the authoritative check; this is the
// UX guard rail only.
func (o Order) CanCancel() bool {
	return o.Status == enum.OrderStatusProcessing
}

// CanRequestCheckout reports whether the order is eligible for a bill
// request: kitchen may still be working (processing) or done (completed),
// but never cancelled, already requested, or paid.
func (o Order) CanRequestCheckout() bool {
	return o.Status == enum.OrderStatusProcessing || o.Status == enum.OrderStatusCompleted
}

// Cacheable reports whether the order belongs in the persisted snapshot.
// Settled and terminal orders are dropped on every write so a returning
// guest never sees stale paid/closed orders re-appear locally.
func (o Order) Cacheable() bool {
	if o.IsPaid {
		return false
	}
	switch o.Status {
	case enum.OrderStatusCancelled, enum.OrderStatusCompleted, enum.OrderStatusPaid:
		return false
	}
	return true
}

// Timestamp returns the merge key: UpdatedAt, falling back to CreatedAt
// when the backend never stamped an update.
func (o Order) Timestamp() time.Time {
	if o.UpdatedAt.IsZero() {
		return o.CreatedAt
	}
	return o.UpdatedAt
}

// Clone returns a deep copy. Ledger reads hand out clones so callers can
// never alias into the owned collection.
func (o Order) Clone() Order {
	var dst Order
	_ = copier.CopyWithOption(&dst, &o, copier.Option{DeepCopy: true})
	return dst
}

// CloneAll deep-copies a slice of orders.
func CloneAll(orders []Order) []Order {
	out := make([]Order, len(orders))
	for i, o := range orders {
		out[i] = o.Clone()
	}
	return out
}
