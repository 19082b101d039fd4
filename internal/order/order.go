// Package order turns a list of catalog references into a priced, deliverable
// order. Prices always come from the catalog, never from the client.
package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"cardapio/api/internal/cart"
	"cardapio/api/internal/delivery"
	"cardapio/api/internal/logger"
	"cardapio/api/internal/repository"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyOrder    = errors.New("pedido sem itens")
	ErrInvalidItem   = errors.New("item inválido")
	ErrInvalidInput  = errors.New("dados do pedido inválidos")
	ErrUndeliverable = errors.New("não entregamos neste CEP")
)

var nonDigit = regexp.MustCompile(`[^\d]`)

type Line struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
}

type Customer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Document string `json:"document,omitempty"`
}

type Request struct {
	Items      []Line   `json:"items"`
	PostalCode string   `json:"postalCode"`
	Customer   Customer `json:"customer"`
}

type Quote struct {
	Items         cart.Items      `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DeliveryFee   decimal.Decimal `json:"deliveryFee"`
	Total         decimal.Decimal `json:"total"`
	EstimatedTime int             `json:"estimatedTime"`
	PostalCode    string          `json:"postalCode"`
}

type Placed struct {
	OrderID string `json:"orderId"`
	*Quote
}

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Quote reprices every line from the catalog and resolves the delivery zone.
func (s *Service) Quote(ctx context.Context, req Request) (*Quote, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	var items cart.Items
	for _, l := range req.Items {
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantidade deve ser maior que zero (produto %s)", ErrInvalidItem, l.ProductID)
		}
		p, err := repository.ProductByID(ctx, s.db, l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", l.ProductID, err)
		}
		if p == nil {
			return nil, fmt.Errorf("%w: produto %s não encontrado", ErrInvalidItem, l.ProductID)
		}

		var v *cart.Variant
		if l.VariantID != "" {
			v, err = repository.VariantByID(ctx, s.db, l.ProductID, l.VariantID)
			if err != nil {
				return nil, fmt.Errorf("load variant %s: %w", l.VariantID, err)
			}
			if v == nil {
				return nil, fmt.Errorf("%w: variante %s não encontrada", ErrInvalidItem, l.VariantID)
			}
		}
		items = items.Add(*p, l.Quantity, l.Notes, v)
	}

	zones, err := repository.ActiveZones(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("load delivery zones: %w", err)
	}
	zone := delivery.Resolve(req.PostalCode, zones)
	if !zone.Found {
		return nil, fmt.Errorf("%w: %s", ErrUndeliverable, delivery.FormatPostalCode(req.PostalCode))
	}

	return &Quote{
		Items:         items,
		Subtotal:      items.Subtotal(),
		DeliveryFee:   zone.Fee,
		Total:         items.Total(zone.Fee, decimal.Zero),
		EstimatedTime: zone.Time,
		PostalCode:    delivery.FormatPostalCode(req.PostalCode),
	}, nil
}

func cents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// Place quotes the request and stores it as a pending order.
func (s *Service) Place(ctx context.Context, req Request) (*Placed, error) {
	if req.Customer.Name == "" {
		return nil, fmt.Errorf("%w: customer.name é obrigatório", ErrInvalidInput)
	}
	if nonDigit.ReplaceAllString(req.Customer.Phone, "") == "" {
		return nil, fmt.Errorf("%w: customer.phone é obrigatório", ErrInvalidInput)
	}

	q, err := s.Quote(ctx, req)
	if err != nil {
		return nil, err
	}

	rows := make([]repository.OrderItemRow, 0, len(q.Items))
	for _, it := range q.Items {
		row := repository.OrderItemRow{
			ProductID:      it.Product.ID,
			Name:           it.Product.Name,
			Quantity:       it.Quantity,
			UnitPriceCents: cents(it.UnitPrice()),
			Notes:          it.Notes,
		}
		if it.Variant != nil {
			row.VariantID = it.Variant.ID
			row.Name = it.Product.Name + " - " + it.Variant.Name
		}
		rows = append(rows, row)
	}

	id, err := repository.CreateOrder(ctx, s.db, repository.OrderRow{
		SubtotalCents:    cents(q.Subtotal),
		DeliveryFeeCents: cents(q.DeliveryFee),
		TotalCents:       cents(q.Total),
		PostalCode:       delivery.Digits(req.PostalCode),
		CustomerName:     req.Customer.Name,
		CustomerEmail:    req.Customer.Email,
		CustomerPhone:    nonDigit.ReplaceAllString(req.Customer.Phone, ""),
		CustomerDocument: nonDigit.ReplaceAllString(req.Customer.Document, ""),
	}, rows)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	logger.Infof("[ORDER] pedido criado order_id=%s total=%s itens=%d", id, q.Total.StringFixed(2), q.Items.Count())
	return &Placed{OrderID: id, Quote: q}, nil
}
