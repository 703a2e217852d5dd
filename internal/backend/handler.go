package backend

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/comanda-pos/client/internal/api"
	"github.com/comanda-pos/client/internal/auth"
	"github.com/comanda-pos/client/internal/order"
	"github.com/comanda-pos/client/internal/ws"
)

// Handler exposes the store over the HTTP boundary the client speaks.
type Handler struct {
	store     *Store
	hub       *ws.Hub
	jwtSecret string
	log       zerolog.Logger
}

// NewHandler creates a Handler. hub may be nil when no feed is wanted.
func NewHandler(store *Store, hub *ws.Hub, jwtSecret string, log zerolog.Logger) *Handler {
	return &Handler{store: store, hub: hub, jwtSecret: jwtSecret, log: log}
}

type initiateResponse struct {
	Order     order.Order `json:"order"`
	SessionID string      `json:"session_id"`
}

// Initiate handles POST /restaurant/{rid}/order/initiate.
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	rid := chi.URLParam(r, "rid")
	var req api.InitiateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	o, sid, err := h.store.InitiateOrder(rid, r.Header.Get(api.SessionHeader), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.broadcast(rid, o)
	writeJSON(w, http.StatusCreated, initiateResponse{Order: o, SessionID: sid})
}

// GuestOrders handles GET /restaurant/{rid}/{tableID}/guest/{guestID}/orders.
func (h *Handler) GuestOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.GuestOrders(
		chi.URLParam(r, "rid"),
		chi.URLParam(r, "tableID"),
		chi.URLParam(r, "guestID"),
		r.Header.Get(api.SessionHeader),
	)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// UnitOrders handles GET /restaurant/{rid}/orders (staff).
func (h *Handler) UnitOrders(w http.ResponseWriter, r *http.Request) {
	rid := chi.URLParam(r, "rid")
	claims := ClaimsFromContext(r.Context())
	if claims == nil || claims.RestaurantID != rid {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "restaurant access denied"})
		return
	}
	orders := h.store.UnitOrders(rid, r.URL.Query().Get("unit"))
	if orders == nil {
		orders = []order.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// CancelOrder handles POST /restaurant/{rid}/order/{id}/cancel.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	rid := chi.URLParam(r, "rid")
	o, err := h.store.CancelOrder(rid, chi.URLParam(r, "id"), r.Header.Get(api.SessionHeader))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.broadcast(rid, o)
	writeJSON(w, http.StatusOK, o)
}

// CancelItem handles POST /restaurant/{rid}/order/{id}/items/{itemID}/cancel.
func (h *Handler) CancelItem(w http.ResponseWriter, r *http.Request) {
	rid := chi.URLParam(r, "rid")
	o, err := h.store.CancelItem(rid, chi.URLParam(r, "id"), chi.URLParam(r, "itemID"), r.Header.Get(api.SessionHeader))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.broadcast(rid, o)
	writeJSON(w, http.StatusOK, o)
}

// UpdateItem handles PATCH /restaurant/{rid}/order/{id}/items/{itemID}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	rid := chi.URLParam(r, "rid")
	var req api.ItemUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	o, err := h.store.UpdateItem(rid, chi.URLParam(r, "id"), chi.URLParam(r, "itemID"), r.Header.Get(api.SessionHeader), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.broadcast(rid, o)
	writeJSON(w, http.StatusOK, o)
}

// RequestCheckout handles POST /restaurant/{rid}/order/{id}/request-checkout.
func (h *Handler) RequestCheckout(w http.ResponseWriter, r *http.Request) {
	rid := chi.URLParam(r, "rid")
	var req api.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	o, err := h.store.RequestCheckout(rid, chi.URLParam(r, "id"), r.Header.Get(api.SessionHeader), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.broadcast(rid, o)
	writeJSON(w, http.StatusOK, o)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /restaurant/{rid}/order/{id}/status (staff).
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	rid := chi.URLParam(r, "rid")
	claims := ClaimsFromContext(r.Context())
	if claims == nil || claims.RestaurantID != rid {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "restaurant access denied"})
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	o, err := h.store.UpdateStatus(rid, chi.URLParam(r, "id"), req.Status, claims.StaffID.String())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.broadcast(rid, o)
	writeJSON(w, http.StatusOK, o)
}

type staffLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// StaffLogin handles POST /auth/staff/login.
func (h *Handler) StaffLogin(w http.ResponseWriter, r *http.Request) {
	var req staffLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	st, err := h.store.Authenticate(req.Username, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	token, err := auth.GenerateToken(h.jwtSecret, st.ID, st.RestaurantID, st.UnitID, st.Role)
	if err != nil {
		h.log.Error().Err(err).Msg("mint staff token")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not issue token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) broadcast(restaurantID string, o order.Order) {
	if h.hub == nil {
		return
	}
	payload, err := json.Marshal(o)
	if err != nil {
		h.log.Warn().Err(err).Msg("encode feed payload")
		return
	}
	h.hub.Broadcast(restaurantID, ws.Event{Type: ws.EventOrderUpdated, Payload: payload})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrSessionScope):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("unhandled store error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
