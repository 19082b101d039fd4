// Package pixapi is the flat REST PIX gateway: one call creates a PIX
// transaction, status is read by transaction id and payments are pushed as
// PAYMENT_RECEIVED webhooks.
package pixapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cardapio/api/internal/gateway"
	"cardapio/api/internal/logger"
)

const (
	Name = "pixapi"

	EventPaymentReceived = "PAYMENT_RECEIVED"
	StatusPaid           = "PAID"
)

// Client creates charges with a Bearer token and queries status with the
// same key as Basic auth username.
type Client struct {
	caller      *gateway.Caller
	expiration  time.Duration
	postbackURL string
	now         func() time.Time
}

// NewClient builds the adapter. postbackURL is sent with every charge so the
// provider knows where to push payment notifications; empty disables it.
func NewClient(caller *gateway.Caller, expiration time.Duration, postbackURL string) *Client {
	return &Client{caller: caller, expiration: expiration, postbackURL: postbackURL, now: time.Now}
}

func (c *Client) Name() string { return Name }

type customer struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone"`
	Document string `json:"document,omitempty"`
}

type transactionRequest struct {
	Amount      int64    `json:"amount"`
	Description string   `json:"description"`
	ExternalID  string   `json:"externalId"`
	ExpiresIn   int64    `json:"expiresIn"`
	PostbackURL string   `json:"postbackUrl,omitempty"`
	Customer    customer `json:"customer"`
}

func (c *Client) endpoint(baseURL string, parts ...string) string {
	u := strings.TrimRight(baseURL, "/") + "/v1/transactions"
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

func (c *Client) CreateCharge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	if err := gateway.Validate(req); err != nil {
		return nil, err
	}

	description := req.Description
	if description == "" {
		description = "Pedido " + req.OrderID
	}
	payload := transactionRequest{
		Amount:      gateway.ToMinorUnits(req.Amount),
		Description: description,
		ExternalID:  req.OrderID,
		ExpiresIn:   int64(c.expiration / time.Second),
		PostbackURL: c.postbackURL,
		Customer: customer{
			Name:     req.Customer.Name,
			Email:    req.Customer.Email,
			Phone:    gateway.Digits(req.Customer.Phone),
			Document: gateway.Digits(req.Customer.Document),
		},
	}

	logger.Infof("[CHARGE] pixapi: criando transação order_id=%s amount=%d centavos", req.OrderID, payload.Amount)

	createdAt := c.now()
	body, err := c.caller.Do(ctx, http.MethodPost, c.endpoint(req.BaseURL, "pix"), gateway.BearerAuth(req.APIKey), payload)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, gateway.Malformed("pixapi: decode transaction: %v", err)
	}
	txID := gateway.StringField(data, "transactionId")
	if txID == "" {
		return nil, gateway.Malformed("pixapi: transactionId missing")
	}
	qrcode := gateway.StringField(data, "qrcode", "qrCode")
	if qrcode == "" {
		return nil, gateway.Malformed("pixapi: qrcode missing for %s", txID)
	}

	return &gateway.ChargeResult{
		TransactionID: txID,
		PixPayload:    qrcode,
		ExpiresAt:     gateway.Expiration(gateway.StringField(data, "expirationDate"), createdAt, c.expiration),
		Status:        gateway.StringField(data, "status"),
	}, nil
}

func (c *Client) QueryStatus(ctx context.Context, creds gateway.Credentials, transactionID string) (*gateway.StatusResult, error) {
	if !creds.Complete() {
		return nil, gateway.ErrNotConfigured
	}
	body, err := c.caller.Do(ctx, http.MethodGet, c.endpoint(creds.BaseURL, transactionID), gateway.BasicAuth(creds.APIKey, ""), nil)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, gateway.Malformed("pixapi: decode status: %v", err)
	}
	status := gateway.StringField(data, "status")
	if status == "" {
		return nil, gateway.Malformed("pixapi: status missing for %s", transactionID)
	}
	return &gateway.StatusResult{
		TransactionID: transactionID,
		Status:        status,
		Paid:          strings.EqualFold(status, StatusPaid),
		Data:          data,
	}, nil
}

type webhookEvent struct {
	ID            string `json:"id"`
	Event         string `json:"event"`
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

// ParseWebhook accepts {event, transactionId, status}. Only
// PAYMENT_RECEIVED with status PAID moves an order.
func (c *Client) ParseWebhook(body []byte) (*gateway.Notification, error) {
	var evt webhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("%w: payload inválido: %v", gateway.ErrBadRequest, err)
	}
	return &gateway.Notification{
		EventID:       evt.ID,
		Event:         evt.Event,
		TransactionID: evt.TransactionID,
		Status:        evt.Status,
		Paid:          evt.Event == EventPaymentReceived && strings.EqualFold(evt.Status, StatusPaid),
	}, nil
}
