// Package payment owns the order payment lifecycle shared by every gateway:
// charge creation against a stored order, status polling and the single
// idempotent pending → paid transition.
package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cardapio/api/internal/gateway"
	"cardapio/api/internal/logger"
	"cardapio/api/internal/repository"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	ReasonWebhook    = "webhook_payment_confirmed"
	ReasonStatusPoll = "status_poll_payment_confirmed"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrAlreadyPaid   = errors.New("order already paid")
)

// Outcome of a confirmation. AlreadyPaid means nothing was written.
type Outcome struct {
	OrderID     string `json:"orderId"`
	AlreadyPaid bool   `json:"alreadyPaid,omitempty"`
}

type Service struct {
	db            *sql.DB
	tracer        trace.Tracer
	confirmations metric.Int64Counter
	charges       metric.Int64Counter
	polls         singleflight.Group
}

func NewService(db *sql.DB) *Service {
	meter := otel.Meter("cardapio/api/internal/payment")
	confirmations, err := meter.Int64Counter("payment.confirmations",
		metric.WithDescription("Order payment confirmations by gateway and result"))
	if err != nil {
		logger.Warnf("metric payment.confirmations: %v", err)
	}
	charges, err := meter.Int64Counter("payment.charges",
		metric.WithDescription("PIX charges created by gateway and result"))
	if err != nil {
		logger.Warnf("metric payment.charges: %v", err)
	}
	return &Service{
		db:            db,
		tracer:        otel.Tracer("cardapio/api/internal/payment"),
		confirmations: confirmations,
		charges:       charges,
	}
}

func count(ctx context.Context, c metric.Int64Counter, gatewayName, result string) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment.gateway", gatewayName),
		attribute.String("result", result),
	))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Confirm marks the order holding transactionID as paid and confirmed.
// Replays and races are safe: the update only applies while the order is not
// paid, and losing that race reports AlreadyPaid instead of an error.
func (s *Service) Confirm(ctx context.Context, gatewayName, transactionID, reason string) (*Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "payment.Confirm", trace.WithAttributes(
		attribute.String("payment.gateway", gatewayName),
		attribute.String("payment.transaction_id", transactionID),
	))
	defer span.End()

	order, err := repository.OrderByTransactionID(ctx, s.db, gatewayName, transactionID)
	if err != nil {
		logger.Errorf("[ERROR] %s: lookup order by transaction %s: %v", gatewayName, transactionID, err)
		count(ctx, s.confirmations, gatewayName, "error")
		return nil, fail(span, fmt.Errorf("lookup order: %w", err))
	}
	if order == nil {
		logger.Warnf("[NOT_FOUND] %s: nenhum pedido para a transação %s", gatewayName, transactionID)
		count(ctx, s.confirmations, gatewayName, "not_found")
		return nil, fail(span, ErrOrderNotFound)
	}
	span.SetAttributes(attribute.String("order.id", order.ID))

	if order.Paid() {
		logger.Infof("[SKIP] %s: pedido %s já está pago (transação %s)", gatewayName, order.ID, transactionID)
		count(ctx, s.confirmations, gatewayName, "already_paid")
		return &Outcome{OrderID: order.ID, AlreadyPaid: true}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		count(ctx, s.confirmations, gatewayName, "error")
		return nil, fail(span, fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	marked, err := repository.MarkOrderPaidTx(ctx, tx, order.ID)
	if err != nil {
		logger.Errorf("[ERROR] %s: mark order %s paid: %v", gatewayName, order.ID, err)
		count(ctx, s.confirmations, gatewayName, "error")
		return nil, fail(span, fmt.Errorf("mark order paid: %w", err))
	}
	if !marked {
		logger.Infof("[SKIP] %s: pedido %s confirmado por outra entrega", gatewayName, order.ID)
		count(ctx, s.confirmations, gatewayName, "already_paid")
		return &Outcome{OrderID: order.ID, AlreadyPaid: true}, nil
	}

	err = repository.RecordOrderStatusChangeTx(ctx, tx, repository.StatusChange{
		OrderID:          order.ID,
		OldPaymentStatus: order.PaymentStatus,
		NewPaymentStatus: repository.PaymentPaid,
		OldStatus:        order.Status,
		NewStatus:        repository.StatusConfirmed,
		Reason:           reason,
		Gateway:          gatewayName,
		TransactionID:    transactionID,
	})
	if err != nil {
		logger.Warnf("[WARNING] %s: record status change for %s (non-fatal): %v", gatewayName, order.ID, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Errorf("[ERROR] %s: commit transaction for order %s: %v", gatewayName, order.ID, err)
		count(ctx, s.confirmations, gatewayName, "error")
		return nil, fail(span, fmt.Errorf("commit: %w", err))
	}

	logger.Infof("[ORDER_CONFIRMED] order_id=%s gateway=%s transaction=%s reason=%s", order.ID, gatewayName, transactionID, reason)
	count(ctx, s.confirmations, gatewayName, "confirmed")
	return &Outcome{OrderID: order.ID}, nil
}

// PollResult is a gateway status plus the confirmation it triggered, if any.
type PollResult struct {
	Status  *gateway.StatusResult
	Outcome *Outcome
}

// Poll queries the gateway with the stored merchant credentials and confirms
// the order when the gateway reports it paid. Concurrent polls for the same
// transaction share one gateway call.
func (s *Service) Poll(ctx context.Context, gw gateway.Gateway, transactionID string) (*PollResult, error) {
	key := gw.Name() + ":" + transactionID
	v, err, shared := s.polls.Do(key, func() (any, error) {
		return s.poll(context.WithoutCancel(ctx), gw, transactionID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debugf("[STATUS] %s: consulta compartilhada para %s", gw.Name(), transactionID)
	}
	return v.(*PollResult), nil
}

func (s *Service) poll(ctx context.Context, gw gateway.Gateway, transactionID string) (*PollResult, error) {
	creds, err := s.credentials(ctx, gw.Name())
	if err != nil {
		return nil, err
	}
	if !creds.Complete() {
		return nil, fmt.Errorf("%w: %s", gateway.ErrNotConfigured, gw.Name())
	}

	status, err := gw.QueryStatus(ctx, creds, transactionID)
	if err != nil {
		return nil, err
	}
	res := &PollResult{Status: status}
	if !status.Paid {
		return res, nil
	}

	res.Outcome, err = s.Confirm(ctx, gw.Name(), transactionID, ReasonStatusPoll)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) credentials(ctx context.Context, gatewayName string) (gateway.Credentials, error) {
	settings, err := repository.GatewaySettingsByName(ctx, s.db, gatewayName)
	if err != nil {
		return gateway.Credentials{}, fmt.Errorf("load gateway settings: %w", err)
	}
	if settings == nil {
		return gateway.Credentials{}, nil
	}
	return gateway.Credentials{BaseURL: settings.BaseURL, APIKey: settings.APIKey}, nil
}
