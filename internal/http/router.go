package httpapi

import (
	"net/http"

	"dinein-order-services/internal/config"
	"dinein-order-services/internal/http/handlers"
	"dinein-order-services/internal/middleware"
	"dinein-order-services/internal/settlement"
	"dinein-order-services/internal/ws"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func NewRouter(svc handlers.Settlement, settings settlement.SettingsProvider, logger *zap.Logger, cfg config.Config, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Telemetry(logger))
	r.Use(chimw.Recoverer)

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"Idempotency-Key",
				"X-Request-Id",
				"X-Requested-With",
			},
			ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	h := handlers.New(svc, settings, logger, cfg)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/pos", func(r chi.Router) {
		r.Use(setResponseHeader("X-Settlement-Service", "dinein"))
		r.Use(middleware.StaffAuth(cfg.JWTSecret))

		r.Get("/orders/{orderId}", h.POSOrderView)
		r.Post("/orders/{orderId}/recalculate", h.POSRecalculateOrder)
		r.Post("/orders/{orderId}/status", h.POSAdvanceOrderStatus)
		r.Post("/orders/{orderId}/payments", h.POSProcessPayment)
		r.Get("/orders/{orderId}/split-bills/available", h.POSAvailableSplitItems)
		r.Post("/orders/{orderId}/split-bills", h.POSCreateSplitBill)
		r.Post("/split-bills/{splitBillId}/settle", h.POSSettleSplitBill)
		r.Post("/split-bills/{splitBillId}/void", h.POSVoidSplitBill)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireManager())
			r.Post("/orders/{orderId}/cancel", h.POSCancelOrder)
			r.Post("/payments/{paymentId}/approve", h.POSApprovePayment)
			r.Post("/payments/{paymentId}/reject", h.POSRejectPayment)
			r.Post("/payments/{paymentId}/void", h.POSVoidPayment)
		})
	})

	if wsServer != nil {
		r.Get("/ws/orders/{orderId}", wsServer.OrderSettlementWS)
	}

	return r
}

func setResponseHeader(name string, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(name, value)
			next.ServeHTTP(w, r)
		})
	}
}
