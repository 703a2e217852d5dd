// Package checkout derives per-person totals and drives the request-bill
// transition on top of the ledger.
package checkout

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/client/internal/api"
	"github.com/comanda-pos/client/internal/enum"
	"github.com/comanda-pos/client/internal/order"
)

// Ledger is the surface the coordinator needs. Satisfied by
// *ledger.Ledger.
type Ledger interface {
	Orders() []order.Order
	RequestCheckout(ctx context.Context, splitCount int) error
}

// Coordinator guards the request-bill transition. A checkout request is
// never silently retried and never duplicated: a second call while one
// is in flight is a no-op, since a duplicate request would double-notify
// staff.
type Coordinator struct {
	ledger Ledger
	log    zerolog.Logger

	mu       sync.Mutex
	inFlight bool
}

// New creates a Coordinator.
func New(l Ledger, log zerolog.Logger) *Coordinator {
	return &Coordinator{ledger: l, log: log}
}

// RequestCheckout asks for the bill, split across splitCount diners.
// Requires at least one non-terminal order for the guest. Errors surface
// to the caller for a user-facing retry prompt; nothing is retried here.
func (c *Coordinator) RequestCheckout(ctx context.Context, splitCount int) error {
	if splitCount < 1 {
		return &api.ValidationError{Reason: "split count must be >= 1"}
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		c.log.Debug().Msg("checkout already in flight, ignoring")
		return nil
	}
	if !c.anyOpenOrder() {
		c.mu.Unlock()
		return &api.ValidationError{Reason: "no open order to check out"}
	}
	c.inFlight = true
	c.mu.Unlock()

	err := c.ledger.RequestCheckout(ctx, splitCount)

	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()
	return err
}

// AmountPerPerson divides the current open total evenly. Pure function
// over the visible orders; the per-person amount is computed at read
// time, never stored pre-divided.
func (c *Coordinator) AmountPerPerson(splitCount int) (decimal.Decimal, error) {
	if splitCount < 1 {
		return decimal.Zero, &api.ValidationError{Reason: "split count must be >= 1"}
	}
	total := c.openTotal()
	return total.Div(decimal.NewFromInt(int64(splitCount))).Round(2), nil
}

// openTotal sums the server-held totals of every order a bill can still
// be requested for, plus those already awaiting payment.
func (c *Coordinator) openTotal() decimal.Decimal {
	total := decimal.Zero
	for _, o := range c.ledger.Orders() {
		if o.CanRequestCheckout() || o.Status == enum.OrderStatusPaymentRequested {
			total = total.Add(o.TotalAmount)
		}
	}
	return total
}

func (c *Coordinator) anyOpenOrder() bool {
	for _, o := range c.ledger.Orders() {
		if o.CanRequestCheckout() {
			return true
		}
	}
	return false
}
