package order

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"cardapio/api/internal/db"
	"cardapio/api/internal/delivery"
	"cardapio/api/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	ctx := context.Background()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "order.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(conn))

	require.NoError(t, repository.UpsertProduct(ctx, conn, "pizza", "Pizza", 2000, true))
	require.NoError(t, repository.UpsertVariant(ctx, conn, "grande", "pizza", "Grande", 2500, ""))
	require.NoError(t, repository.UpsertZone(ctx, conn, delivery.Zone{
		ID: "centro", RangeStart: "01000000", RangeEnd: "01999999", Fee: decimal.NewFromInt(8), EstimatedTime: 30, Active: true,
	}))
	return NewService(conn), conn
}

func TestQuote(t *testing.T) {
	svc, _ := setup(t)

	q, err := svc.Quote(context.Background(), Request{
		Items: []Line{
			{ProductID: "pizza", Quantity: 2},
			{ProductID: "pizza", VariantID: "grande", Quantity: 1},
		},
		PostalCode: "01310-100",
	})
	require.NoError(t, err)

	assert.Len(t, q.Items, 2)
	assert.True(t, decimal.NewFromInt(65).Equal(q.Subtotal), "subtotal = %s", q.Subtotal)
	assert.True(t, decimal.NewFromInt(8).Equal(q.DeliveryFee))
	assert.True(t, decimal.NewFromInt(73).Equal(q.Total))
	assert.Equal(t, 30, q.EstimatedTime)
	assert.Equal(t, "01310-100", q.PostalCode)
}

func TestQuote_Errors(t *testing.T) {
	svc, _ := setup(t)

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"sem itens", Request{PostalCode: "01310100"}, ErrEmptyOrder},
		{"produto inexistente", Request{Items: []Line{{ProductID: "sushi", Quantity: 1}}, PostalCode: "01310100"}, ErrInvalidItem},
		{"variante inexistente", Request{Items: []Line{{ProductID: "pizza", VariantID: "gigante", Quantity: 1}}, PostalCode: "01310100"}, ErrInvalidItem},
		{"quantidade zero", Request{Items: []Line{{ProductID: "pizza", Quantity: 0}}, PostalCode: "01310100"}, ErrInvalidItem},
		{"CEP fora da área", Request{Items: []Line{{ProductID: "pizza", Quantity: 1}}, PostalCode: "99999-999"}, ErrUndeliverable},
		{"CEP incompleto", Request{Items: []Line{{ProductID: "pizza", Quantity: 1}}, PostalCode: "0131"}, ErrUndeliverable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Quote(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPlace(t *testing.T) {
	ctx := context.Background()
	svc, conn := setup(t)

	placed, err := svc.Place(ctx, Request{
		Items: []Line{
			{ProductID: "pizza", Quantity: 2, Notes: "sem cebola"},
			{ProductID: "pizza", VariantID: "grande", Quantity: 1},
		},
		PostalCode: "01310-100",
		Customer:   Customer{Name: "Maria", Phone: "(11) 98888-7777", Email: "maria@example.com"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, placed.OrderID)

	o, err := repository.OrderByID(ctx, conn, placed.OrderID)
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, int64(6500), o.SubtotalCents)
	assert.Equal(t, int64(800), o.DeliveryFeeCents)
	assert.Equal(t, int64(7300), o.TotalCents)
	assert.Equal(t, "11988887777", o.CustomerPhone)
	assert.Equal(t, "01310100", o.PostalCode)
	assert.Equal(t, repository.PaymentPending, o.PaymentStatus)

	items, err := repository.OrderItemsByOrderID(ctx, conn, placed.OrderID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2000), items[0].UnitPriceCents)
	assert.Equal(t, "sem cebola", items[0].Notes)
	assert.Equal(t, int64(2500), items[1].UnitPriceCents)
	assert.Equal(t, "Pizza - Grande", items[1].Name)
}

func TestPlace_RequiresCustomer(t *testing.T) {
	svc, _ := setup(t)
	req := Request{Items: []Line{{ProductID: "pizza", Quantity: 1}}, PostalCode: "01310100"}

	_, err := svc.Place(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidInput)

	req.Customer = Customer{Name: "Maria", Phone: "--"}
	_, err = svc.Place(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
