package pagarme

import (
	"encoding/json"
	"fmt"

	"cardapio/api/internal/gateway"
)

type webhookOrder struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// WebhookEvent is the Pagar.me postback envelope. For order.paid Data is the
// order; for charge.paid it is the charge with its order nested.
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		ID     string        `json:"id"`
		Code   string        `json:"code"`
		Status string        `json:"status"`
		Order  *webhookOrder `json:"order"`
	} `json:"data"`
}

// ParseWebhook normalizes a postback. Only order.paid and charge.paid with a
// paid status are relevant.
func (c *Client) ParseWebhook(body []byte) (*gateway.Notification, error) {
	var evt WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("%w: payload inválido: %v", gateway.ErrBadRequest, err)
	}

	n := &gateway.Notification{
		EventID: evt.ID,
		Event:   evt.Type,
		Status:  evt.Data.Status,
	}
	switch evt.Type {
	case EventOrderPaid:
		n.TransactionID = evt.Data.ID
	case EventChargePaid:
		if evt.Data.Order != nil {
			n.TransactionID = evt.Data.Order.ID
		}
	default:
		n.TransactionID = evt.Data.ID
		return n, nil
	}
	n.Paid = evt.Data.Status == StatusPaid
	return n, nil
}
