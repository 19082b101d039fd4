// Package gateway defines the PIX gateway capability shared by every payment
// provider adapter: charge creation, status queries and webhook parsing, plus
// the request validation and error classification they have in common.
package gateway

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type Customer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Document string `json:"document,omitempty"`
}

// ChargeRequest is the normalized charge creation input. Amount is in major
// currency units (reais).
type ChargeRequest struct {
	OrderID     string          `json:"orderId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	BaseURL     string          `json:"baseUrl"`
	APIKey      string          `json:"apiKey"`
	Customer    Customer        `json:"customer"`
}

func (r ChargeRequest) Credentials() Credentials {
	return Credentials{BaseURL: r.BaseURL, APIKey: r.APIKey}
}

// ChargeResult is a pending PIX charge. TransactionID and PixPayload are
// always non-empty.
type ChargeResult struct {
	TransactionID string    `json:"transactionId"`
	PixPayload    string    `json:"qrcode"`
	ExpiresAt     time.Time `json:"expirationDate"`
	Status        string    `json:"status"`
}

type StatusResult struct {
	TransactionID string         `json:"transactionId"`
	Status        string         `json:"status"`
	Paid          bool           `json:"-"`
	Data          map[string]any `json:"data"`
}

// Notification is a webhook envelope reduced to what the order transition
// needs. Paid is true only for the provider's "payment received" event and
// status combination.
type Notification struct {
	EventID       string
	Event         string
	TransactionID string
	Status        string
	Paid          bool
}

type Credentials struct {
	BaseURL string
	APIKey  string
}

func (c Credentials) Complete() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

type Gateway interface {
	Name() string
	CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	QueryStatus(ctx context.Context, creds Credentials, transactionID string) (*StatusResult, error)
	ParseWebhook(body []byte) (*Notification, error)
}

type Registry map[string]Gateway

func NewRegistry(gateways ...Gateway) Registry {
	r := make(Registry, len(gateways))
	for _, g := range gateways {
		r[g.Name()] = g
	}
	return r
}

func (r Registry) Get(name string) (Gateway, error) {
	g, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGateway, name)
	}
	return g, nil
}

func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var nonDigit = regexp.MustCompile(`[^\d]`)

// Digits strips every non-digit character (phones, CPF/CNPJ).
func Digits(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

// ToMinorUnits converts reais to centavos rounding half away from zero.
// Fractions of a centavo are lost; the conversion is one-way.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Validate checks everything a charge needs before any network call.
func Validate(req ChargeRequest) error {
	switch {
	case req.OrderID == "":
		return badRequest("orderId é obrigatório")
	case !req.Amount.IsPositive():
		return badRequest("amount deve ser maior que zero")
	case ToMinorUnits(req.Amount) <= 0:
		return badRequest("amount menor que um centavo")
	case req.BaseURL == "":
		return badRequest("baseUrl do gateway não configurada")
	case req.APIKey == "":
		return badRequest("apiKey do gateway não configurada")
	case req.Customer.Name == "":
		return badRequest("customer.name é obrigatório")
	case Digits(req.Customer.Phone) == "":
		return badRequest("customer.phone é obrigatório")
	}
	return nil
}

var expirationLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Expiration parses the provider expiration timestamp, falling back to
// now+fallback when it is absent or unreadable.
func Expiration(raw string, now time.Time, fallback time.Duration) time.Time {
	for _, layout := range expirationLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return now.Add(fallback).UTC()
}

// Field looks key up at the top level and then under a "data" wrapper.
func Field(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok && v != nil {
		return v, true
	}
	if data, ok := m["data"].(map[string]any); ok {
		if v, ok := data[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func StringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := Field(m, key)
		if !ok {
			continue
		}
		switch s := v.(type) {
		case string:
			if s != "" {
				return s
			}
		case float64:
			return decimal.NewFromFloat(s).String()
		}
	}
	return ""
}
