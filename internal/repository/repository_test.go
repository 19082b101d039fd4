package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"cardapio/api/internal/db"
	"cardapio/api/internal/delivery"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(conn))
	return conn
}

func createTestOrder(t *testing.T, conn *sql.DB) string {
	t.Helper()
	id, err := CreateOrder(context.Background(), conn, OrderRow{
		SubtotalCents:    6500,
		DeliveryFeeCents: 800,
		TotalCents:       7300,
		PostalCode:       "01310100",
		CustomerName:     "Maria",
		CustomerPhone:    "11988887777",
	}, []OrderItemRow{
		{ProductID: "p1", Name: "Pizza", Quantity: 2, UnitPriceCents: 2000},
		{ProductID: "p1", VariantID: "v1", Name: "Pizza grande", Quantity: 1, UnitPriceCents: 2500, Notes: "sem cebola"},
	})
	require.NoError(t, err)
	return id
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	id := createTestOrder(t, conn)

	o, err := OrderByID(ctx, conn, id)
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, int64(7300), o.TotalCents)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, StatusPending, o.Status)
	assert.False(t, o.Paid())

	items, err := OrderItemsByOrderID(ctx, conn, id)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "", items[0].VariantID)
	assert.Equal(t, "v1", items[1].VariantID)
	assert.Equal(t, "sem cebola", items[1].Notes)
}

func TestOrderByID_NotFound(t *testing.T) {
	o, err := OrderByID(context.Background(), openTestDB(t), "missing")
	assert.NoError(t, err)
	assert.Nil(t, o)
}

func TestTransactionID(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	id := createTestOrder(t, conn)

	require.NoError(t, SetOrderTransactionID(ctx, conn, "pixapi", id, "T1"))

	o, err := OrderByTransactionID(ctx, conn, "pixapi", "T1")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, id, o.ID)
	assert.Equal(t, "T1", o.TransactionID("pixapi"))

	// o id de uma transação não vale para o outro gateway
	o, err = OrderByTransactionID(ctx, conn, "pagarme", "T1")
	require.NoError(t, err)
	assert.Nil(t, o)

	_, err = OrderByTransactionID(ctx, conn, "stripe", "T1")
	assert.ErrorIs(t, err, ErrUnknownGateway)

	assert.ErrorIs(t, SetOrderTransactionID(ctx, conn, "pixapi", "missing", "T2"), sql.ErrNoRows)
}

func TestMarkOrderPaidTx(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	id := createTestOrder(t, conn)

	mark := func() bool {
		tx, err := conn.BeginTx(ctx, nil)
		require.NoError(t, err)
		defer tx.Rollback()
		ok, err := MarkOrderPaidTx(ctx, tx, id)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
		return ok
	}

	assert.True(t, mark())
	assert.False(t, mark())

	o, err := OrderByID(ctx, conn, id)
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.Equal(t, StatusConfirmed, o.Status)
}

func TestOrderStatusHistory(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)
	id := createTestOrder(t, conn)

	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, RecordOrderStatusChangeTx(ctx, tx, StatusChange{
		OrderID:          id,
		OldPaymentStatus: PaymentPending,
		NewPaymentStatus: PaymentPaid,
		OldStatus:        StatusPending,
		NewStatus:        StatusConfirmed,
		Reason:           "webhook",
		Gateway:          "pixapi",
		TransactionID:    "T1",
	}))
	require.NoError(t, tx.Commit())

	history, err := OrderStatusHistory(ctx, conn, id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "webhook", history[0].Reason)
	assert.Equal(t, "T1", history[0].TransactionID)
}

func TestGatewaySettings(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	s, err := GatewaySettingsByName(ctx, conn, "pagarme")
	require.NoError(t, err)
	assert.Nil(t, s)

	require.NoError(t, UpsertGatewaySettings(ctx, conn, GatewaySettings{Gateway: "pagarme", BaseURL: "https://a", APIKey: "k1"}))
	require.NoError(t, UpsertGatewaySettings(ctx, conn, GatewaySettings{Gateway: "pagarme", BaseURL: "https://b", APIKey: "k2"}))

	s, err = GatewaySettingsByName(ctx, conn, "pagarme")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "https://b", s.BaseURL)
	assert.Equal(t, "k2", s.APIKey)
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	require.NoError(t, UpsertProduct(ctx, conn, "p1", "Pizza", 2000, true))
	require.NoError(t, UpsertProduct(ctx, conn, "p2", "Antiga", 1000, false))
	require.NoError(t, UpsertVariant(ctx, conn, "v1", "p1", "Grande", 2500, ""))

	p, err := ProductByID(ctx, conn, "p1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, decimal.NewFromInt(20).Equal(p.Price))

	p, err = ProductByID(ctx, conn, "p2")
	require.NoError(t, err)
	assert.Nil(t, p, "produto inativo não aparece")

	v, err := VariantByID(ctx, conn, "p1", "v1")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, decimal.NewFromInt(25).Equal(v.Price))

	v, err = VariantByID(ctx, conn, "p2", "v1")
	require.NoError(t, err)
	assert.Nil(t, v, "variante de outro produto")
}

func TestActiveZones(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	zones := []delivery.Zone{
		{ID: "z2", RangeStart: "04000000", RangeEnd: "04999999", Fee: decimal.RequireFromString("12.5"), EstimatedTime: 50, Active: true},
		{ID: "z1", RangeStart: "01000000", RangeEnd: "01999999", Fee: decimal.NewFromInt(8), EstimatedTime: 30, Active: true},
		{ID: "z3", RangeStart: "02000000", RangeEnd: "02999999", Fee: decimal.NewFromInt(5), EstimatedTime: 20, Active: false},
	}
	for _, z := range zones {
		require.NoError(t, UpsertZone(ctx, conn, z))
	}

	got, err := ActiveZones(ctx, conn)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "z1", got[0].ID)
	assert.Equal(t, "z2", got[1].ID)
	assert.True(t, decimal.RequireFromString("12.5").Equal(got[1].Fee))
}

func TestInsertWebhookEvent(t *testing.T) {
	ctx := context.Background()
	conn := openTestDB(t)

	e := WebhookEventRow{Gateway: "pagarme", EventID: "hook_1", EventType: "order.paid", TransactionID: "or_1", Outcome: "confirmed"}
	require.NoError(t, InsertWebhookEvent(ctx, conn, e))
	require.NoError(t, InsertWebhookEvent(ctx, conn, e))
	require.NoError(t, InsertWebhookEvent(ctx, conn, WebhookEventRow{Gateway: "pagarme", EventType: "order.paid", TransactionID: "or_1", Outcome: "already_paid"}))

	events, err := WebhookEventsByTransactionID(ctx, conn, "pagarme", "or_1")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
