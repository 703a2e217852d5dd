package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/comanda-pos/client/internal/order"
)

// SessionHeader carries the server-issued table-session token on every
// guest-scoped call after the first submit.
const SessionHeader = "x-session-id"

// Client is the typed HTTP client for the ordering backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client against baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// --- Request / Response types ---

// InitiateOrderRequest is the submit/upsert payload. OrderID, when set,
// carries the last known order id so a resubmission under connectivity
// flakiness updates the same order instead of creating a duplicate.
type InitiateOrderRequest struct {
	OrderID      string       `json:"order_id,omitempty"`
	TableID      string       `json:"table_id"`
	UnitID       string       `json:"unit_id,omitempty"`
	GuestID      string       `json:"guest_id"`
	GuestName    string       `json:"guest_name,omitempty"`
	OrderType    string       `json:"order_type"`
	Observations string       `json:"observations,omitempty"`
	SplitCount   int          `json:"split_count,omitempty"`
	Items        []order.Item `json:"items"`
}

// InitiateOrderResult is the canonical order plus the session token the
// backend issued (or echoed) for this table visit.
type InitiateOrderResult struct {
	Order     order.Order `json:"order"`
	SessionID string      `json:"session_id"`
}

// CheckoutRequest asks the backend to move the guest's order into
// payment_requested.
type CheckoutRequest struct {
	TableID    string `json:"table_id"`
	GuestID    string `json:"guest_id"`
	SplitCount int    `json:"split_count"`
}

// ItemUpdateRequest patches quantity and/or observations on one item.
// Status is the client's informational hint (added/reduced/removed) so
// kitchen staff can tell a guest reduction from a fresh addition; billing
// always uses the live quantity.
type ItemUpdateRequest struct {
	Quantity     *int    `json:"quantity,omitempty"`
	Observations *string `json:"observations,omitempty"`
	Status       string  `json:"status,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Guest-scoped calls ---

// InitiateOrder submits or upserts an order.
func (c *Client) InitiateOrder(ctx context.Context, restaurantID, sessionID string, req InitiateOrderRequest) (*InitiateOrderResult, error) {
	var out InitiateOrderResult
	path := fmt.Sprintf("/restaurant/%s/order/initiate", restaurantID)
	if err := c.do(ctx, http.MethodPost, path, guestHeaders(sessionID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GuestOrders fetches the orders visible to one guest at one table.
// Requires the session token; the backend scopes the response to this
// visit.
func (c *Client) GuestOrders(ctx context.Context, restaurantID, tableID, guestID, sessionID string) ([]order.Order, error) {
	var out []order.Order
	path := fmt.Sprintf("/restaurant/%s/%s/guest/%s/orders", restaurantID, tableID, guestID)
	if err := c.do(ctx, http.MethodGet, path, guestHeaders(sessionID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CancelOrder cancels a whole order; returns the server's post-cancel
// version.
func (c *Client) CancelOrder(ctx context.Context, restaurantID, orderID, sessionID string) (*order.Order, error) {
	var out order.Order
	path := fmt.Sprintf("/restaurant/%s/order/%s/cancel", restaurantID, orderID)
	if err := c.do(ctx, http.MethodPost, path, guestHeaders(sessionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelItem cancels a single item; returns the whole order as the server
// left it, since item removal changes the total and money is never
// derived client-side.
func (c *Client) CancelItem(ctx context.Context, restaurantID, orderID, itemID, sessionID string) (*order.Order, error) {
	var out order.Order
	path := fmt.Sprintf("/restaurant/%s/order/%s/items/%s/cancel", restaurantID, orderID, itemID)
	if err := c.do(ctx, http.MethodPost, path, guestHeaders(sessionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateItem patches one item; returns the updated order.
func (c *Client) UpdateItem(ctx context.Context, restaurantID, orderID, itemID, sessionID string, req ItemUpdateRequest) (*order.Order, error) {
	var out order.Order
	path := fmt.Sprintf("/restaurant/%s/order/%s/items/%s", restaurantID, orderID, itemID)
	if err := c.do(ctx, http.MethodPatch, path, guestHeaders(sessionID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestCheckout asks for the bill; returns the updated order.
func (c *Client) RequestCheckout(ctx context.Context, restaurantID, orderID, sessionID string, req CheckoutRequest) (*order.Order, error) {
	var out order.Order
	path := fmt.Sprintf("/restaurant/%s/order/%s/request-checkout", restaurantID, orderID)
	if err := c.do(ctx, http.MethodPost, path, guestHeaders(sessionID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Staff-scoped calls ---

// StaffLogin exchanges credentials for a bearer token.
func (c *Client) StaffLogin(ctx context.Context, username, password string) (string, error) {
	var out loginResponse
	err := c.do(ctx, http.MethodPost, "/auth/staff/login", nil, loginRequest{Username: username, Password: password}, &out)
	if err != nil {
		return "", err
	}
	return out.Token, nil
}

// UnitOrders fetches every order for a restaurant, optionally narrowed to
// one unit. Bearer-token authenticated.
func (c *Client) UnitOrders(ctx context.Context, restaurantID, unitID, token string) ([]order.Order, error) {
	var out []order.Order
	path := fmt.Sprintf("/restaurant/%s/orders", restaurantID)
	if unitID != "" {
		path += "?unit=" + unitID
	}
	if err := c.do(ctx, http.MethodGet, path, staffHeaders(token), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus performs a staff-only order status transition.
func (c *Client) UpdateStatus(ctx context.Context, restaurantID, orderID, status, token string) (*order.Order, error) {
	var out order.Order
	path := fmt.Sprintf("/restaurant/%s/order/%s/status", restaurantID, orderID)
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPatch, path, staffHeaders(token), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Transport ---

func guestHeaders(sessionID string) map[string]string {
	if sessionID == "" {
		return nil
	}
	return map[string]string{SessionHeader: sessionID}
}

func staffHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.decodeError(method, path, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: method + " " + path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// decodeError maps HTTP failures onto the error taxonomy: 400/422 are
// validation, 409 and 404 are conflicts (the client's view disagrees with
// the server's), 401/403 are auth, everything else is transient network.
func (c *Client) decodeError(method, path string, resp *http.Response) error {
	msg := readErrorMessage(resp)
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &ValidationError{Reason: msg}
	case http.StatusConflict, http.StatusNotFound:
		return &ConflictError{Message: msg}
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	default:
		return &NetworkError{Op: method + " " + path, Err: fmt.Errorf("backend returned status %d: %s", resp.StatusCode, msg)}
	}
}

func readErrorMessage(resp *http.Response) string {
	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil && er.Error != "" {
		return er.Error
	}
	return http.StatusText(resp.StatusCode)
}
