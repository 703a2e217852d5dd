package session

import (
	"errors"
	"testing"
)

func TestBindingBeforeBind(t *testing.T) {
	c := New()
	if _, err := c.Binding(); !errors.Is(err, ErrNotBound) {
		t.Errorf("err = %v, want ErrNotBound", err)
	}
}

func TestSessionIDBeforeFirstSubmit(t *testing.T) {
	c := New()
	c.Bind("rest-1", "table-7", "")
	if _, err := c.SessionID(); !errors.Is(err, ErrNoSession) {
		t.Errorf("err = %v, want ErrNoSession", err)
	}
}

func TestSetSessionID(t *testing.T) {
	c := New()
	c.Bind("rest-1", "table-7", "main-hall")
	c.SetSessionID("sess-1")

	id, err := c.SessionID()
	if err != nil {
		t.Fatalf("SessionID: %v", err)
	}
	if id != "sess-1" {
		t.Errorf("session = %s, want sess-1", id)
	}

	// Empty ids are ignored, not clearing.
	c.SetSessionID("")
	if id, _ := c.SessionID(); id != "sess-1" {
		t.Errorf("session after empty set = %s, want sess-1", id)
	}
}

func TestRebindToOtherTableClearsSession(t *testing.T) {
	c := New()
	c.Bind("rest-1", "table-7", "")
	c.SetSessionID("sess-1")

	c.Bind("rest-1", "table-8", "")
	if _, err := c.SessionID(); !errors.Is(err, ErrNoSession) {
		t.Error("session survived a rebind to another table")
	}

	// Rebinding to the same table keeps it.
	c.SetSessionID("sess-2")
	c.Bind("rest-1", "table-8", "")
	if id, _ := c.SessionID(); id != "sess-2" {
		t.Errorf("session = %s, want sess-2", id)
	}
}

func TestClearSessionKeepsBinding(t *testing.T) {
	c := New()
	c.Bind("rest-1", "table-7", "")
	c.SetSessionID("sess-1")
	c.ClearSession()

	if _, err := c.SessionID(); !errors.Is(err, ErrNoSession) {
		t.Error("ClearSession did not drop the token")
	}
	if _, err := c.Binding(); err != nil {
		t.Error("ClearSession dropped the binding")
	}
}

func TestReset(t *testing.T) {
	c := New()
	c.Bind("rest-1", "table-7", "")
	c.SetSessionID("sess-1")
	c.Reset()

	if _, err := c.Binding(); !errors.Is(err, ErrNotBound) {
		t.Error("Reset kept the binding")
	}
	if _, err := c.SessionID(); !errors.Is(err, ErrNoSession) {
		t.Error("Reset kept the session")
	}
}
