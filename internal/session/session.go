// Package session binds a guest's activity to a (restaurant, unit?,
// table) triple plus the server-issued session token scoping all order
// calls for one table visit.
package session

import (
	"errors"
	"sync"
)

var (
	// ErrNotBound means no table context has been recorded yet.
	ErrNotBound = errors.New("session: no table bound")

	// ErrNoSession means no server-issued session token exists yet. The
	// ledger treats this as "no orders yet" on reads, never as a failure.
	ErrNoSession = errors.New("session: no session id")
)

// Binding is the recorded table context.
type Binding struct {
	RestaurantID string
	UnitID       string
	TableID      string
}

// Context holds the current binding and session token. The session id
// starts empty and is set only as a side effect of the ledger's first
// successful submit.
type Context struct {
	mu        sync.Mutex
	binding   Binding
	bound     bool
	sessionID string
}

// New creates an unbound Context.
func New() *Context {
	return &Context{}
}

// Bind records the table triple. Rebinding to a different table clears
// any session token, since a token scopes exactly one table visit.
func (c *Context) Bind(restaurantID, tableID, unitID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := Binding{RestaurantID: restaurantID, TableID: tableID, UnitID: unitID}
	if c.bound && next != c.binding {
		c.sessionID = ""
	}
	c.binding = next
	c.bound = true
}

// Binding returns the recorded triple, or ErrNotBound.
func (c *Context) Binding() (Binding, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.bound {
		return Binding{}, ErrNotBound
	}
	return c.binding, nil
}

// SessionID returns the server-issued token, or ErrNoSession.
func (c *Context) SessionID() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID == "" {
		return "", ErrNoSession
	}
	return c.sessionID, nil
}

// SetSessionID stores the token issued by the first successful submit.
// An empty id is ignored.
func (c *Context) SetSessionID(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

// ClearSession drops the token, keeping the table binding. Called on
// checkout completion.
func (c *Context) ClearSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = ""
}

// Reset drops both binding and token.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.binding = Binding{}
	c.bound = false
	c.sessionID = ""
}
