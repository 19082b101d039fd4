// Package httpapi exposes orders, carts, delivery fees and the PIX payment
// flow over HTTP.
package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cardapio/api/internal/cart"
	"cardapio/api/internal/gateway"
	"cardapio/api/internal/logger"
	"cardapio/api/internal/middleware"
	"cardapio/api/internal/order"
	"cardapio/api/internal/payment"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	requestTimeout = 30 * time.Second
	maxBodyBytes   = 64 << 10
)

type Handler struct {
	db       *sql.DB
	gateways gateway.Registry
	payments *payment.Service
	orders   *order.Service
	carts    cart.Store
}

func NewHandler(db *sql.DB, gateways gateway.Registry, carts cart.Store) *Handler {
	return &Handler{
		db:       db,
		gateways: gateways,
		payments: payment.NewService(db),
		orders:   order.NewService(db),
		carts:    carts,
	}
}

// Routes builds the router. Every request gets a request id, panic recovery,
// a timeout, CORS and a server span.
func (h *Handler) Routes(corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(middleware.CORS(corsOrigins))

	r.Get("/health", h.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/orders", h.CreateOrder)
		r.Post("/orders/quote", h.QuoteOrder)
		r.Get("/orders/{orderID}", h.GetOrder)

		r.Get("/delivery/fee", h.DeliveryFee)

		r.Route("/carts/{cartID}", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddCartItem)
			r.Patch("/items/{productID}", h.UpdateCartItem)
			r.Delete("/items/{productID}", h.RemoveCartItem)
		})

		r.Post("/payments/{gateway}/charges", h.CreateCharge)
		r.Get("/payments/{gateway}/status", h.PaymentStatus)
		r.Post("/webhooks/{gateway}", h.Webhook)
	})

	return otelhttp.NewHandler(r, "cardapio-api")
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debugf("[HTTP] %s %s %d %s req=%s", r.Method, r.URL.Path, ww.Status(), time.Since(start), chimw.GetReqID(r.Context()))
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		logger.Errorf("[HEALTH] banco indisponível: %v", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// statusFor maps domain and gateway errors to HTTP status codes. Gateway 4xx
// rejections pass the gateway status through; 5xx ones become 502.
func statusFor(err error) int {
	var rejected *gateway.RejectedError
	switch {
	case errors.Is(err, gateway.ErrBadRequest),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidItem),
		errors.Is(err, order.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, payment.ErrOrderNotFound), errors.Is(err, gateway.ErrUnknownGateway):
		return http.StatusNotFound
	case errors.Is(err, payment.ErrAlreadyPaid):
		return http.StatusConflict
	case errors.Is(err, order.ErrUndeliverable):
		return http.StatusUnprocessableEntity
	case errors.As(err, &rejected):
		if rejected.StatusCode >= http.StatusInternalServerError {
			return http.StatusBadGateway
		}
		return rejected.StatusCode
	case errors.Is(err, gateway.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, gateway.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, gateway.ErrNetwork):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondErr writes err with its mapped status. Internal failures are not
// described to the client.
func respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	var rejected *gateway.RejectedError
	switch {
	case status == http.StatusInternalServerError:
		respondError(w, status, "erro interno")
	case errors.As(err, &rejected):
		respondJSON(w, status, map[string]string{"error": "pagamento recusado pelo gateway", "details": rejected.Body})
	default:
		respondError(w, status, err.Error())
	}
}
