package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// StatusChange is one row of the order audit trail.
type StatusChange struct {
	ID               string
	OrderID          string
	OldPaymentStatus string
	NewPaymentStatus string
	OldStatus        string
	NewStatus        string
	Reason           string
	Gateway          string
	TransactionID    string
	CreatedAt        string
}

// RecordOrderStatusChangeTx appends to the audit trail inside the transition
// transaction.
func RecordOrderStatusChangeTx(ctx context.Context, tx *sql.Tx, c StatusChange) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO order_status_history
		(id, order_id, old_payment_status, new_payment_status, old_status, new_status, reason, gateway, transaction_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), c.OrderID, c.OldPaymentStatus, c.NewPaymentStatus, c.OldStatus, c.NewStatus,
		c.Reason, c.Gateway, c.TransactionID, now(),
	)
	return err
}

func OrderStatusHistory(ctx context.Context, db *sql.DB, orderID string) ([]StatusChange, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, order_id, old_payment_status, new_payment_status, old_status, new_status,
		reason, COALESCE(gateway, ''), COALESCE(transaction_id, ''), created_at
		FROM order_status_history WHERE order_id = ? ORDER BY created_at, rowid`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []StatusChange
	for rows.Next() {
		var c StatusChange
		if err := rows.Scan(&c.ID, &c.OrderID, &c.OldPaymentStatus, &c.NewPaymentStatus, &c.OldStatus, &c.NewStatus,
			&c.Reason, &c.Gateway, &c.TransactionID, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
