package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"

	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
)

// ErrUnknownGateway is returned when no transaction column exists for a gateway.
var ErrUnknownGateway = errors.New("repository: unknown gateway")

// transactionColumns maps a gateway to the orders column holding its
// transaction id. Column names only ever come from this table.
var transactionColumns = map[string]string{
	"pagarme": "pagarme_order_id",
	"pixapi":  "pixapi_transaction_id",
}

func TransactionColumn(gateway string) (string, error) {
	col, ok := transactionColumns[gateway]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownGateway, gateway)
	}
	return col, nil
}

type OrderRow struct {
	ID                  string
	SubtotalCents       int64
	DeliveryFeeCents    int64
	TotalCents          int64
	PaymentStatus       string
	Status              string
	PostalCode          string
	CustomerName        string
	CustomerEmail       string
	CustomerPhone       string
	CustomerDocument    string
	PagarmeOrderID      string
	PixAPITransactionID string
	CreatedAt           string
	UpdatedAt           string
}

func (o *OrderRow) Paid() bool {
	return o.PaymentStatus == PaymentPaid
}

// TransactionID returns the id stored for gateway, or "" when none.
func (o *OrderRow) TransactionID(gateway string) string {
	switch gateway {
	case "pagarme":
		return o.PagarmeOrderID
	case "pixapi":
		return o.PixAPITransactionID
	}
	return ""
}

type OrderItemRow struct {
	ID             string
	OrderID        string
	ProductID      string
	VariantID      string
	Name           string
	Quantity       int
	UnitPriceCents int64
	Notes          string
}

const orderColumns = `id, subtotal_cents, delivery_fee_cents, total_cents, payment_status, status,
	COALESCE(postal_code, ''), COALESCE(customer_name, ''), COALESCE(customer_email, ''),
	COALESCE(customer_phone, ''), COALESCE(customer_document, ''),
	COALESCE(pagarme_order_id, ''), COALESCE(pixapi_transaction_id, ''), created_at, updated_at`

func scanOrder(row *sql.Row) (*OrderRow, error) {
	var o OrderRow
	err := row.Scan(&o.ID, &o.SubtotalCents, &o.DeliveryFeeCents, &o.TotalCents, &o.PaymentStatus, &o.Status,
		&o.PostalCode, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone, &o.CustomerDocument,
		&o.PagarmeOrderID, &o.PixAPITransactionID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// CreateOrder inserts a pending order and its items in one transaction and
// returns the new order id.
func CreateOrder(ctx context.Context, db *sql.DB, o OrderRow, items []OrderItemRow) (string, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	id := uuid.New().String()
	ts := now()
	_, err = tx.ExecContext(ctx, `INSERT INTO orders (id, subtotal_cents, delivery_fee_cents, total_cents, payment_status, status,
		postal_code, customer_name, customer_email, customer_phone, customer_document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, o.SubtotalCents, o.DeliveryFeeCents, o.TotalCents, PaymentPending, StatusPending,
		o.PostalCode, o.CustomerName, o.CustomerEmail, o.CustomerPhone, o.CustomerDocument, ts, ts,
	)
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}

	for _, item := range items {
		var variantID any
		if item.VariantID != "" {
			variantID = item.VariantID
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO order_items (id, order_id, product_id, variant_id, name, quantity, unit_price_cents, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), id, item.ProductID, variantID, item.Name, item.Quantity, item.UnitPriceCents, item.Notes,
		)
		if err != nil {
			return "", fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// OrderByID returns nil, nil when the order does not exist.
func OrderByID(ctx context.Context, db *sql.DB, id string) (*OrderRow, error) {
	return scanOrder(db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
}

// OrderByTransactionID resolves a gateway transaction id to its order.
// Returns nil, nil when no order carries that id.
func OrderByTransactionID(ctx context.Context, db *sql.DB, gateway, transactionID string) (*OrderRow, error) {
	col, err := TransactionColumn(gateway)
	if err != nil {
		return nil, err
	}
	return scanOrder(db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+col+` = ?`, transactionID))
}

// SetOrderTransactionID stores the gateway transaction id on the order.
func SetOrderTransactionID(ctx context.Context, db *sql.DB, gateway, orderID, transactionID string) error {
	col, err := TransactionColumn(gateway)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `UPDATE orders SET `+col+` = ?, updated_at = ? WHERE id = ?`, transactionID, now(), orderID)
	if err != nil {
		return err
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if ra != 1 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkOrderPaidTx moves the order to paid/confirmed only if it is not paid
// yet. Returns false when another delivery already did it.
func MarkOrderPaidTx(ctx context.Context, tx *sql.Tx, orderID string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE orders SET payment_status = ?, status = ?, updated_at = ?
		WHERE id = ? AND payment_status <> ?`,
		PaymentPaid, StatusConfirmed, now(), orderID, PaymentPaid,
	)
	if err != nil {
		return false, err
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return ra == 1, nil
}

func OrderItemsByOrderID(ctx context.Context, db *sql.DB, orderID string) ([]OrderItemRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, order_id, product_id, COALESCE(variant_id, ''), name, quantity, unit_price_cents, COALESCE(notes, '')
		FROM order_items WHERE order_id = ? ORDER BY rowid`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []OrderItemRow
	for rows.Next() {
		var o OrderItemRow
		if err := rows.Scan(&o.ID, &o.OrderID, &o.ProductID, &o.VariantID, &o.Name, &o.Quantity, &o.UnitPriceCents, &o.Notes); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}
