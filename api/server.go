/*
server.go - HTTP router and middleware

PURPOSE:
  Builds the chi router with CORS and request logging, mapping the route
  table onto the handlers.

SEE ALSO:
  - handlers.go: The handlers behind these routes
  - cmd/server: Wires the router into an http.Server with graceful shutdown
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter assembles the full API route table.
func NewRouter(h *Handler, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/parties", func(r chi.Router) {
			r.Get("/", h.ListParties)
			r.Post("/", h.CreateParty)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetParty)
				r.Put("/status", h.SetStatus)
				r.Post("/cancel", h.CancelParty)
				r.Post("/staff", h.AddStaff)
				r.Delete("/staff/{aid}", h.RemoveStaff)
				r.Put("/staff/{aid}/payment", h.SetStaffPayment)
				r.Post("/invoice", h.CreateInvoice)
			})
		})
		r.Put("/invoices/{id}/paid", h.SetInvoicePaid)
		r.Put("/installments/{id}/paid", h.SetInstallmentPaid)
		r.Route("/admin", func(r chi.Router) {
			r.Post("/reconcile", h.RunReconcile)
			r.Get("/reconcile/next", h.NextReconcile)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// requestLogger logs one line per request at debug level.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
