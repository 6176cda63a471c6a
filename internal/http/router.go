package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/transitlab/bus-reservations/internal/account"
	"github.com/transitlab/bus-reservations/internal/clock"
	"github.com/transitlab/bus-reservations/internal/observability"
	"github.com/transitlab/bus-reservations/internal/rateLimit"
)

func SetupRouter(h *Handlers, accounts *account.Service, jwtSecret string, clk clock.Clock, logger observability.Logger, rl *rateLimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Post("/auth/signup", h.Signup)
	r.Post("/auth/signin", h.Signin)

	r.Get("/buses", h.ListBuses)
	r.Get("/buses/{busId}", h.GetBus)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret, clk))
		r.Use(RateLimitMiddleware(rl))

		r.Get("/auth/me", h.Me)
		r.Get("/users/me", h.Me)
		r.Get("/users/me/wallet", h.GetWallet)
		r.Get("/users/me/bookings", h.ListMyBookings)
		r.Post("/users/bookings/{id}/cancel", h.CancelBooking)
		r.Post("/users/request-topup", h.RequestTopup)

		r.Post("/reservations/select/{busId}", h.SelectSeats)
		r.Get("/reservations/{id}", h.GetReservation)
		r.Post("/reservations/confirm/{id}", h.ConfirmReservation)
		r.Post("/reservations/cancel/{id}", h.CancelReservation)

		r.Group(func(r chi.Router) {
			r.Use(AdminMiddleware(accounts))

			r.Post("/admin/routes", h.AdminCreateRoute)
			r.Post("/admin/buses", h.AdminCreateBus)
			r.Get("/admin/buses", h.AdminListBuses)
			r.Get("/admin/buses/{busId}", h.AdminGetBus)
			r.Post("/admin/buses/{busId}/publish", h.AdminPublishBus)
			r.Post("/admin/buses/{busId}/sales-open", h.AdminSetSalesOpen)
			r.Get("/admin/topup-requests", h.AdminListTopups)
			r.Post("/admin/topup-requests/{id}/approve", h.AdminApproveTopup)
			r.Post("/admin/topup-requests/{id}/reject", h.AdminRejectTopup)
		})
	})

	return r
}
