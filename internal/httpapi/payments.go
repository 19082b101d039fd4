package httpapi

import (
	"errors"
	"io"
	"net/http"

	"cardapio/api/internal/gateway"
	"cardapio/api/internal/logger"
	"cardapio/api/internal/payment"
	"cardapio/api/internal/repository"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) lookupGateway(w http.ResponseWriter, r *http.Request) (gateway.Gateway, bool) {
	gw, err := h.gateways.Get(chi.URLParam(r, "gateway"))
	if err != nil {
		respondError(w, http.StatusNotFound, "gateway desconhecido")
		return nil, false
	}
	return gw, true
}

type chargeResponse struct {
	Success bool `json:"success"`
	*gateway.ChargeResult
}

// CreateCharge handles POST /v1/payments/{gateway}/charges
func (h *Handler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	gw, ok := h.lookupGateway(w, r)
	if !ok {
		return
	}

	var req gateway.ChargeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "corpo inválido")
		return
	}

	res, err := h.payments.CreateCharge(r.Context(), gw, req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, chargeResponse{Success: true, ChargeResult: res})
}

// PaymentStatus handles GET /v1/payments/{gateway}/status?transactionId=
// A paid answer from the gateway confirms the order as a side effect.
func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	gw, ok := h.lookupGateway(w, r)
	if !ok {
		return
	}
	txID := r.URL.Query().Get("transactionId")
	if txID == "" {
		respondError(w, http.StatusBadRequest, "transactionId é obrigatório")
		return
	}

	res, err := h.payments.Poll(r.Context(), gw, txID)
	if err != nil {
		logger.Warnf("[STATUS] %s: consulta da transação %s falhou: %v", gw.Name(), txID, err)
		respondErr(w, err)
		return
	}

	body := map[string]any{
		"transactionId": txID,
		"status":        res.Status.Status,
		"data":          res.Status.Data,
		"paid":          res.Status.Paid,
	}
	if res.Outcome != nil {
		body["orderId"] = res.Outcome.OrderID
	}
	respondJSON(w, http.StatusOK, body)
}

// Webhook handles POST /v1/webhooks/{gateway}
//
// Irrelevant events are acknowledged without side effects. A paid event is
// acknowledged only after the order transition committed, so a failed write
// makes the gateway redeliver.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	gw, ok := h.lookupGateway(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		logger.Errorf("[WEBHOOK] %s: erro ao ler corpo: %v", gw.Name(), err)
		respondError(w, http.StatusBadRequest, "erro ao ler corpo")
		return
	}
	logger.Debugf("[WEBHOOK] %s: corpo recebido: %s", gw.Name(), string(body))

	n, err := gw.ParseWebhook(body)
	if err != nil {
		logger.Warnf("[WEBHOOK] %s: payload inválido: %v", gw.Name(), err)
		respondError(w, http.StatusBadRequest, "corpo inválido")
		return
	}

	if !n.Paid {
		logger.Infof("[WEBHOOK] %s: evento ignorado event=%s status=%s", gw.Name(), n.Event, n.Status)
		h.logWebhook(r, gw.Name(), n, "ignored")
		respondJSON(w, http.StatusOK, map[string]any{"received": true, "ignored": true})
		return
	}
	if n.TransactionID == "" {
		respondError(w, http.StatusBadRequest, "transactionId é obrigatório")
		return
	}

	out, err := h.payments.Confirm(r.Context(), gw.Name(), n.TransactionID, payment.ReasonWebhook)
	if errors.Is(err, payment.ErrOrderNotFound) {
		respondError(w, http.StatusNotFound, "pedido não encontrado")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "erro ao processar webhook")
		return
	}

	outcome := "confirmed"
	if out.AlreadyPaid {
		outcome = "already_paid"
	}
	h.logWebhook(r, gw.Name(), n, outcome)

	resp := map[string]any{"received": true, "orderId": out.OrderID}
	if out.AlreadyPaid {
		resp["alreadyPaid"] = true
	}
	respondJSON(w, http.StatusOK, resp)
}

// logWebhook records the delivery for auditing. Failures are only logged: the
// order state is already settled.
func (h *Handler) logWebhook(r *http.Request, gatewayName string, n *gateway.Notification, outcome string) {
	err := repository.InsertWebhookEvent(r.Context(), h.db, repository.WebhookEventRow{
		Gateway:       gatewayName,
		EventID:       n.EventID,
		EventType:     n.Event,
		TransactionID: n.TransactionID,
		Outcome:       outcome,
	})
	if err != nil {
		logger.Warnf("[WEBHOOK] %s: erro ao registrar evento: %v", gatewayName, err)
	}
}
