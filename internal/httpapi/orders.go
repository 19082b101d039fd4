package httpapi

import (
	"net/http"

	"cardapio/api/internal/delivery"
	"cardapio/api/internal/logger"
	"cardapio/api/internal/order"
	"cardapio/api/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// CreateOrder handles POST /v1/orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req order.Request
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "corpo inválido")
		return
	}

	placed, err := h.orders.Place(r.Context(), req)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			logger.Errorf("[ORDER] erro ao criar pedido: %v", err)
		}
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, placed)
}

// QuoteOrder handles POST /v1/orders/quote
func (h *Handler) QuoteOrder(w http.ResponseWriter, r *http.Request) {
	var req order.Request
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "corpo inválido")
		return
	}

	q, err := h.orders.Quote(r.Context(), req)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			logger.Errorf("[ORDER] erro ao calcular pedido: %v", err)
		}
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

type orderItemView struct {
	ProductID string          `json:"productId"`
	VariantID string          `json:"variantId,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Notes     string          `json:"notes,omitempty"`
}

type statusChangeView struct {
	PaymentStatus string `json:"paymentStatus"`
	Status        string `json:"status"`
	Reason        string `json:"reason"`
	Gateway       string `json:"gateway,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	At            string `json:"at"`
}

type webhookEventView struct {
	Gateway       string `json:"gateway"`
	EventID       string `json:"eventId"`
	Event         string `json:"event"`
	TransactionID string `json:"transactionId"`
	Outcome       string `json:"outcome"`
	ReceivedAt    string `json:"receivedAt"`
}

// GetOrder handles GET /v1/orders/{orderID}. The payment status comes from
// the database only.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "orderID")

	o, err := repository.OrderByID(ctx, h.db, orderID)
	if err != nil {
		logger.Errorf("[ERROR] buscar pedido %s: %v", orderID, err)
		respondError(w, http.StatusInternalServerError, "erro interno")
		return
	}
	if o == nil {
		respondError(w, http.StatusNotFound, "pedido não encontrado")
		return
	}

	items, err := repository.OrderItemsByOrderID(ctx, h.db, orderID)
	if err != nil {
		logger.Errorf("[ERROR] itens do pedido %s: %v", orderID, err)
		respondError(w, http.StatusInternalServerError, "erro interno")
		return
	}
	history, err := repository.OrderStatusHistory(ctx, h.db, orderID)
	if err != nil {
		logger.Errorf("[ERROR] histórico do pedido %s: %v", orderID, err)
		respondError(w, http.StatusInternalServerError, "erro interno")
		return
	}

	// notificações recebidas para as transações do pedido, em qualquer gateway
	eventViews := []webhookEventView{}
	for _, name := range h.gateways.Names() {
		txID := o.TransactionID(name)
		if txID == "" {
			continue
		}
		events, err := repository.WebhookEventsByTransactionID(ctx, h.db, name, txID)
		if err != nil {
			logger.Errorf("[ERROR] webhooks do pedido %s: %v", orderID, err)
			respondError(w, http.StatusInternalServerError, "erro interno")
			return
		}
		for _, e := range events {
			eventViews = append(eventViews, webhookEventView{
				Gateway:       e.Gateway,
				EventID:       e.EventID,
				Event:         e.EventType,
				TransactionID: e.TransactionID,
				Outcome:       e.Outcome,
				ReceivedAt:    e.ReceivedAt,
			})
		}
	}

	itemViews := make([]orderItemView, 0, len(items))
	for _, it := range items {
		itemViews = append(itemViews, orderItemView{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: decimal.New(it.UnitPriceCents, -2),
			Notes:     it.Notes,
		})
	}
	historyViews := make([]statusChangeView, 0, len(history))
	for _, c := range history {
		historyViews = append(historyViews, statusChangeView{
			PaymentStatus: c.NewPaymentStatus,
			Status:        c.NewStatus,
			Reason:        c.Reason,
			Gateway:       c.Gateway,
			TransactionID: c.TransactionID,
			At:            c.CreatedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"orderId":       o.ID,
		"paymentStatus": o.PaymentStatus,
		"status":        o.Status,
		"paid":          o.Paid(),
		"subtotal":      decimal.New(o.SubtotalCents, -2),
		"deliveryFee":   decimal.New(o.DeliveryFeeCents, -2),
		"total":         decimal.New(o.TotalCents, -2),
		"postalCode":    delivery.FormatPostalCode(o.PostalCode),
		"items":         itemViews,
		"history":       historyViews,
		"webhookEvents": eventViews,
		"createdAt":     o.CreatedAt,
		"updatedAt":     o.UpdatedAt,
	})
}

// DeliveryFee handles GET /v1/delivery/fee?postalCode=
// found=false means the address is outside every zone, not free delivery.
func (h *Handler) DeliveryFee(w http.ResponseWriter, r *http.Request) {
	postalCode := r.URL.Query().Get("postalCode")

	zones, err := repository.ActiveZones(r.Context(), h.db)
	if err != nil {
		logger.Errorf("[DELIVERY] erro ao carregar zonas: %v", err)
		respondError(w, http.StatusInternalServerError, "erro interno")
		return
	}

	res := delivery.Resolve(postalCode, zones)
	respondJSON(w, http.StatusOK, map[string]any{
		"found":      res.Found,
		"fee":        res.Fee,
		"time":       res.Time,
		"postalCode": delivery.FormatPostalCode(postalCode),
	})
}
