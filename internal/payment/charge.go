package payment

import (
	"context"
	"fmt"

	"cardapio/api/internal/gateway"
	"cardapio/api/internal/logger"
	"cardapio/api/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CreateCharge creates a PIX charge for a stored, unpaid order and records the
// gateway transaction id on it. Amount, customer name and phone are required;
// the amount must match the stored total. Credentials missing from the request
// come from the gateway settings.
func (s *Service) CreateCharge(ctx context.Context, gw gateway.Gateway, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	ctx, span := s.tracer.Start(ctx, "payment.CreateCharge", trace.WithAttributes(
		attribute.String("payment.gateway", gw.Name()),
		attribute.String("order.id", req.OrderID),
	))
	defer span.End()

	switch {
	case req.OrderID == "":
		return nil, fmt.Errorf("%w: orderId é obrigatório", gateway.ErrBadRequest)
	case req.Amount.IsZero():
		return nil, fmt.Errorf("%w: amount é obrigatório", gateway.ErrBadRequest)
	case req.Customer.Name == "":
		return nil, fmt.Errorf("%w: customer.name é obrigatório", gateway.ErrBadRequest)
	case gateway.Digits(req.Customer.Phone) == "":
		return nil, fmt.Errorf("%w: customer.phone é obrigatório", gateway.ErrBadRequest)
	}

	order, err := repository.OrderByID(ctx, s.db, req.OrderID)
	if err != nil {
		return nil, fail(span, fmt.Errorf("lookup order: %w", err))
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Paid() {
		return nil, ErrAlreadyPaid
	}

	total := gateway.FromMinorUnits(order.TotalCents)
	if gateway.ToMinorUnits(req.Amount) != order.TotalCents {
		return nil, fmt.Errorf("%w: amount %s difere do total do pedido %s", gateway.ErrBadRequest, req.Amount.StringFixed(2), total.StringFixed(2))
	}
	req.Amount = total

	if req.BaseURL == "" || req.APIKey == "" {
		creds, err := s.credentials(ctx, gw.Name())
		if err != nil {
			return nil, fail(span, err)
		}
		if req.BaseURL == "" {
			req.BaseURL = creds.BaseURL
		}
		if req.APIKey == "" {
			req.APIKey = creds.APIKey
		}
	}
	if req.Customer.Email == "" {
		req.Customer.Email = order.CustomerEmail
	}
	if req.Customer.Document == "" {
		req.Customer.Document = order.CustomerDocument
	}

	res, err := gw.CreateCharge(ctx, req)
	if err != nil {
		logger.Errorf("[CHARGE] %s: criar cobrança para pedido %s: %v", gw.Name(), order.ID, err)
		count(ctx, s.charges, gw.Name(), "failed")
		return nil, fail(span, err)
	}

	if err := repository.SetOrderTransactionID(ctx, s.db, gw.Name(), order.ID, res.TransactionID); err != nil {
		logger.Errorf("[ERROR] %s: cobrança %s criada mas não gravada no pedido %s: %v", gw.Name(), res.TransactionID, order.ID, err)
		return nil, fail(span, fmt.Errorf("store transaction id: %w", err))
	}

	count(ctx, s.charges, gw.Name(), "created")
	logger.Infof("[CHARGE] %s: cobrança PIX criada order_id=%s transaction=%s amount=%d centavos",
		gw.Name(), order.ID, res.TransactionID, order.TotalCents)
	return res, nil
}
