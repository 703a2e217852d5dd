package backend

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/comanda-pos/client/internal/ws"
)

// NewRouter wires the stub backend's routes.
func NewRouter(jwtSecret string, store *Store, hub *ws.Hub, log zerolog.Logger) chi.Router {
	h := NewHandler(store, hub, jwtSecret, log)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "x-session-id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/auth/staff/login", h.StaffLogin)

	if hub != nil {
		r.Get("/ws/restaurant/{rid}/orders", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWS(hub, jwtSecret, w, r)
		})
	}

	r.Route("/restaurant/{rid}", func(r chi.Router) {
		// Guest surface: scoped by the table-session header, no token.
		r.Post("/order/initiate", h.Initiate)
		r.Get("/{tableID}/guest/{guestID}/orders", h.GuestOrders)
		r.Post("/order/{id}/cancel", h.CancelOrder)
		r.Post("/order/{id}/items/{itemID}/cancel", h.CancelItem)
		r.Patch("/order/{id}/items/{itemID}", h.UpdateItem)
		r.Post("/order/{id}/request-checkout", h.RequestCheckout)

		// Staff surface: bearer token required.
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(jwtSecret))
			r.Get("/orders", h.UnitOrders)
			r.Patch("/order/{id}/status", h.UpdateStatus)
		})
	})

	return r
}
