package backend

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/comanda-pos/client/internal/auth"
	"github.com/comanda-pos/client/internal/enum"
)

func newTestRouter(t *testing.T) (http.Handler, *Store) {
	t.Helper()
	store := NewStore(testNow())
	return NewRouter("handler-secret", store, nil, zerolog.Nop()), store
}

func doJSON(t *testing.T, router http.Handler, method, path string, headers map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func staffToken(t *testing.T, secret, restaurantID string) string {
	t.Helper()
	token, err := auth.GenerateToken(secret, uuid.New(), restaurantID, "main-hall", enum.RoleManager)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestErrorStatusMapping(t *testing.T) {
	router, store := newTestRouter(t)
	o, sid, err := store.InitiateOrder("rest-1", "", submitRequest())
	if err != nil {
		t.Fatal(err)
	}
	session := map[string]string{"x-session-id": sid}

	tests := []struct {
		name   string
		do     func() *httptest.ResponseRecorder
		status int
	}{
		{
			name: "unknown order is 404",
			do: func() *httptest.ResponseRecorder {
				return doJSON(t, router, http.MethodPost, "/restaurant/rest-1/order/no-such/cancel", session, nil)
			},
			status: http.StatusNotFound,
		},
		{
			name: "wrong session is 401",
			do: func() *httptest.ResponseRecorder {
				return doJSON(t, router, http.MethodPost, "/restaurant/rest-1/order/"+o.ID+"/cancel",
					map[string]string{"x-session-id": "stolen"}, nil)
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "bad split is 422",
			do: func() *httptest.ResponseRecorder {
				return doJSON(t, router, http.MethodPost, "/restaurant/rest-1/order/"+o.ID+"/request-checkout",
					session, map[string]int{"split_count": 0})
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "garbage body is 400",
			do: func() *httptest.ResponseRecorder {
				req := httptest.NewRequest(http.MethodPost, "/restaurant/rest-1/order/initiate", bytes.NewBufferString("{"))
				rr := httptest.NewRecorder()
				router.ServeHTTP(rr, req)
				return rr
			},
			status: http.StatusBadRequest,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if rr := tc.do(); rr.Code != tc.status {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tc.status, rr.Body)
			}
		})
	}

	// Illegal transition is 409, checked last since it consumes the order.
	if _, err := store.UpdateStatus("rest-1", o.ID, enum.OrderStatusCancelled, ""); err != nil {
		t.Fatal(err)
	}
	rr := doJSON(t, router, http.MethodPost, "/restaurant/rest-1/order/"+o.ID+"/cancel", session, nil)
	if rr.Code != http.StatusConflict {
		t.Errorf("cancel of cancelled order = %d, want 409", rr.Code)
	}
}

func TestStaffTokenScopedToRestaurant(t *testing.T) {
	router, _ := newTestRouter(t)
	token := staffToken(t, "handler-secret", "rest-2")

	rr := doJSON(t, router, http.MethodGet, "/restaurant/rest-1/orders",
		map[string]string{"Authorization": "Bearer " + token}, nil)
	if rr.Code != http.StatusForbidden {
		t.Errorf("cross-restaurant read = %d, want 403", rr.Code)
	}
}

func TestUnitOrdersReturnsEmptyArrayNotNull(t *testing.T) {
	router, _ := newTestRouter(t)
	token := staffToken(t, "handler-secret", "rest-1")

	rr := doJSON(t, router, http.MethodGet, "/restaurant/rest-1/orders",
		map[string]string{"Authorization": "Bearer " + token}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := bytes.TrimSpace(rr.Body.Bytes()); string(body) != "[]" {
		t.Errorf("body = %s, want []", body)
	}
}
