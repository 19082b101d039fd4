// Package pagarme is the Pagar.me core v5 PIX gateway: orders with a single
// PIX payment, order status queries and order.paid/charge.paid webhooks.
package pagarme

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

// Client talks to Pagar.me using the merchant secret key as Basic auth
// username with an empty password.
type Client struct {
	caller     *gateway.Caller
	expiration time.Duration
	now        func() time.Time
}

func NewClient(caller *gateway.Caller, expiration time.Duration) *Client {
	return &Client{caller: caller, expiration: expiration, now: time.Now}
}

func (c *Client) Name() string { return Name }

type OrderItem struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Code        string `json:"code"`
}

type customerPhones struct {
	MobilePhone PhoneData `json:"mobile_phone"`
}

type customer struct {
	Name         string         `json:"name"`
	Email        string         `json:"email,omitempty"`
	Type         string         `json:"type,omitempty"`
	Document     string         `json:"document,omitempty"`
	DocumentType string         `json:"document_type,omitempty"`
	Phones       customerPhones `json:"phones"`
}

type pixPayment struct {
	ExpiresIn int64 `json:"expires_in"`
}

type payment struct {
	PaymentMethod string     `json:"payment_method"`
	Pix           pixPayment `json:"pix"`
}

type orderRequest struct {
	Code     string      `json:"code"`
	Items    []OrderItem `json:"items"`
	Customer customer    `json:"customer"`
	Payments []payment   `json:"payments"`
	Closed   bool        `json:"closed"`
}

type lastTransaction struct {
	Status    string `json:"status"`
	QRCode    string `json:"qr_code"`
	QRCodeURL string `json:"qr_code_url"`
	ExpiresAt string `json:"expires_at"`
}

type orderResponse struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Status  string `json:"status"`
	Charges []struct {
		ID              string          `json:"id"`
		Status          string          `json:"status"`
		LastTransaction lastTransaction `json:"last_transaction"`
	} `json:"charges"`
}

func endpoint(baseURL string, parts ...string) string {
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.Join(parts, "/")
}

func (c *Client) buildOrder(req gateway.ChargeRequest) (*orderRequest, error) {
	phone, err := ParsePhone(req.Customer.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrBadRequest, err)
	}

	cust := customer{
		Name:   req.Customer.Name,
		Email:  req.Customer.Email,
		Phones: customerPhones{MobilePhone: phone},
	}
	if doc := gateway.Digits(req.Customer.Document); doc != "" {
		kind, docType, err := customerType(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", gateway.ErrBadRequest, err)
		}
		cust.Document, cust.Type, cust.DocumentType = doc, kind, docType
	}

	description := req.Description
	if description == "" {
		description = "Pedido " + req.OrderID
	}

	return &orderRequest{
		Code: req.OrderID,
		Items: []OrderItem{{
			Amount:      gateway.ToMinorUnits(req.Amount),
			Description: description,
			Quantity:    1,
			Code:        req.OrderID,
		}},
		Customer: cust,
		Payments: []payment{{
			PaymentMethod: AllowedPaymentMethod,
			Pix:           pixPayment{ExpiresIn: int64(c.expiration / time.Second)},
		}},
		Closed: true,
	}, nil
}

// CreateCharge creates a closed Pagar.me order with one PIX payment. The
// Pagar.me order id is the transaction id.
func (c *Client) CreateCharge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	if err := gateway.Validate(req); err != nil {
		return nil, err
	}
	order, err := c.buildOrder(req)
	if err != nil {
		return nil, err
	}

	logger.Infof("[CHARGE] pagarme: criando pedido PIX order_id=%s amount=%d centavos", req.OrderID, order.Items[0].Amount)

	createdAt := c.now()
	body, err := c.caller.Do(ctx, http.MethodPost, endpoint(req.BaseURL, "orders"), gateway.BasicAuth(req.APIKey, ""), order)
	if err != nil {
		return nil, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, gateway.Malformed("pagarme: decode order: %v", err)
	}
	if resp.ID == "" {
		return nil, gateway.Malformed("pagarme: order without id")
	}
	if len(resp.Charges) == 0 || resp.Charges[0].LastTransaction.QRCode == "" {
		return nil, gateway.Malformed("pagarme: order %s without pix qr_code", resp.ID)
	}

	tx := resp.Charges[0].LastTransaction
	status := resp.Status
	if status == "" {
		status = resp.Charges[0].Status
	}
	return &gateway.ChargeResult{
		TransactionID: resp.ID,
		PixPayload:    tx.QRCode,
		ExpiresAt:     gateway.Expiration(tx.ExpiresAt, createdAt, c.expiration),
		Status:        status,
	}, nil
}

// QueryStatus reads GET /orders/{id}.
func (c *Client) QueryStatus(ctx context.Context, creds gateway.Credentials, transactionID string) (*gateway.StatusResult, error) {
	if !creds.Complete() {
		return nil, gateway.ErrNotConfigured
	}
	body, err := c.caller.Do(ctx, http.MethodGet, endpoint(creds.BaseURL, "orders", transactionID), gateway.BasicAuth(creds.APIKey, ""), nil)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, gateway.Malformed("pagarme: decode status: %v", err)
	}
	status := gateway.StringField(data, "status")
	if status == "" {
		return nil, gateway.Malformed("pagarme: status missing for order %s", transactionID)
	}
	return &gateway.StatusResult{
		TransactionID: transactionID,
		Status:        status,
		Paid:          status == StatusPaid,
		Data:          data,
	}, nil
}
