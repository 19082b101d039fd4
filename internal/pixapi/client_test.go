package pixapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cardapio/api/internal/gateway"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestClient() *Client {
	c := NewClient(gateway.NewCaller("pixapi-test", 2*time.Second), 5*time.Minute, "https://loja.test/v1/webhooks/pixapi")
	c.now = func() time.Time { return testNow }
	return c
}

func chargeRequest(baseURL string) gateway.ChargeRequest {
	return gateway.ChargeRequest{
		OrderID:     "order-1",
		Amount:      decimal.RequireFromString("19.99"),
		Description: "Pedido #1",
		BaseURL:     baseURL,
		APIKey:      "pk_live",
		Customer:    gateway.Customer{Name: "João", Email: "joao@example.com", Phone: "+55 (11) 97777-6666"},
	}
}

func TestCreateCharge(t *testing.T) {
	var sent transactionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transactions/pix", r.URL.Path)
		assert.Equal(t, "Bearer pk_live", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &sent))
		w.Write([]byte(`{"transactionId":"T1","qrcode":"000201pix","expirationDate":"2024-05-01T12:30:00Z","status":"PENDING"}`))
	}))
	defer srv.Close()

	res, err := newTestClient().CreateCharge(context.Background(), chargeRequest(srv.URL))
	require.NoError(t, err)

	assert.Equal(t, &gateway.ChargeResult{
		TransactionID: "T1",
		PixPayload:    "000201pix",
		ExpiresAt:     time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		Status:        "PENDING",
	}, res)

	assert.Equal(t, int64(1999), sent.Amount)
	assert.Equal(t, "order-1", sent.ExternalID)
	assert.Equal(t, "5511977776666", sent.Customer.Phone)
	assert.Equal(t, "https://loja.test/v1/webhooks/pixapi", sent.PostbackURL)
}

func TestCreateCharge_Responses(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantExpire time.Time
	}{
		{
			name:       "sem expirationDate usa o padrão",
			status:     http.StatusOK,
			body:       `{"transactionId":"T1","qrcode":"pix","status":"PENDING"}`,
			wantExpire: testNow.Add(5 * time.Minute),
		},
		{
			name:       "resposta aninhada em data",
			status:     http.StatusCreated,
			body:       `{"data":{"transactionId":"T1","qrCode":"pix"}}`,
			wantExpire: testNow.Add(5 * time.Minute),
		},
		{
			name:    "sem transactionId com HTTP 200",
			status:  http.StatusOK,
			body:    `{"qrcode":"pix","status":"PENDING"}`,
			wantErr: gateway.ErrMalformedResponse,
		},
		{
			name:    "sem qrcode",
			status:  http.StatusOK,
			body:    `{"transactionId":"T1"}`,
			wantErr: gateway.ErrMalformedResponse,
		},
		{
			name:    "gateway rejeita",
			status:  http.StatusBadRequest,
			body:    `{"error":"amount too low"}`,
			wantErr: gateway.ErrRejected,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			res, err := newTestClient().CreateCharge(context.Background(), chargeRequest(srv.URL))
			if tt.wantErr != nil {
				assert.Nil(t, res)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "T1", res.TransactionID)
			assert.Equal(t, tt.wantExpire, res.ExpiresAt)
		})
	}
}

func TestCreateCharge_ValidationSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	req := chargeRequest(srv.URL)
	req.Amount = decimal.Zero
	_, err := newTestClient().CreateCharge(context.Background(), req)
	assert.ErrorIs(t, err, gateway.ErrBadRequest)

	req = chargeRequest("")
	_, err = newTestClient().CreateCharge(context.Background(), req)
	assert.ErrorIs(t, err, gateway.ErrBadRequest)

	assert.Equal(t, int32(0), hits.Load())
}

func TestQueryStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transactions/T1", r.URL.Path)
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "pk_live", user)
		w.Write([]byte(`{"data":{"transactionId":"T1","status":"PAID","amount":1999}}`))
	}))
	defer srv.Close()

	res, err := newTestClient().QueryStatus(context.Background(), gateway.Credentials{BaseURL: srv.URL, APIKey: "pk_live"}, "T1")
	require.NoError(t, err)
	assert.Equal(t, "PAID", res.Status)
	assert.True(t, res.Paid)
}

func TestParseWebhook(t *testing.T) {
	tests := []struct {
		name string
		body string
		paid bool
	}{
		{"pagamento recebido", `{"event":"PAYMENT_RECEIVED","transactionId":"T1","status":"PAID"}`, true},
		{"evento diferente", `{"event":"PAYMENT_CREATED","transactionId":"T1","status":"PENDING"}`, false},
		{"recebido sem status pago", `{"event":"PAYMENT_RECEIVED","transactionId":"T1","status":"REFUNDED"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := newTestClient().ParseWebhook([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, "T1", n.TransactionID)
			assert.Equal(t, tt.paid, n.Paid)
		})
	}

	_, err := newTestClient().ParseWebhook([]byte(`not json`))
	assert.ErrorIs(t, err, gateway.ErrBadRequest)
}
