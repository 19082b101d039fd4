package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type WebhookEventRow struct {
	Gateway       string
	EventID       string
	EventType     string
	TransactionID string
	Outcome       string
	ReceivedAt    string
}

// InsertWebhookEvent logs a handled delivery. Redeliveries of the same
// gateway event id are ignored; the log is never consulted to skip work.
func InsertWebhookEvent(ctx context.Context, db *sql.DB, e WebhookEventRow) error {
	eventID := e.EventID
	if eventID == "" {
		eventID = uuid.New().String()
	}
	_, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO webhook_events (id, gateway, event_id, event_type, transaction_id, outcome, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), e.Gateway, eventID, e.EventType, e.TransactionID, e.Outcome, now(),
	)
	return err
}

func WebhookEventsByTransactionID(ctx context.Context, db *sql.DB, gateway, transactionID string) ([]WebhookEventRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT gateway, event_id, event_type, COALESCE(transaction_id, ''), outcome, received_at
		FROM webhook_events WHERE gateway = ? AND transaction_id = ? ORDER BY received_at, rowid`, gateway, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []WebhookEventRow
	for rows.Next() {
		var e WebhookEventRow
		if err := rows.Scan(&e.Gateway, &e.EventID, &e.EventType, &e.TransactionID, &e.Outcome, &e.ReceivedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
