package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() ChargeRequest {
	return ChargeRequest{
		OrderID:  "order-1",
		Amount:   decimal.RequireFromString("19.99"),
		BaseURL:  "https://gateway.test",
		APIKey:   "sk_test",
		Customer: Customer{Name: "Maria", Phone: "(11) 98888-7777"},
	}
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"19.99", 1999},
		{"65", 6500},
		{"0.01", 1},
		{"10.005", 1001},
		{"10.004", 1000},
		{"0.004", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ToMinorUnits(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ChargeRequest)
		ok     bool
	}{
		{"requisição completa", func(*ChargeRequest) {}, true},
		{"sem orderId", func(r *ChargeRequest) { r.OrderID = "" }, false},
		{"valor zero", func(r *ChargeRequest) { r.Amount = decimal.Zero }, false},
		{"valor negativo", func(r *ChargeRequest) { r.Amount = decimal.NewFromInt(-5) }, false},
		{"menor que um centavo", func(r *ChargeRequest) { r.Amount = decimal.RequireFromString("0.001") }, false},
		{"sem baseUrl", func(r *ChargeRequest) { r.BaseURL = "" }, false},
		{"sem apiKey", func(r *ChargeRequest) { r.APIKey = "" }, false},
		{"sem nome", func(r *ChargeRequest) { r.Customer.Name = "" }, false},
		{"telefone sem dígitos", func(r *ChargeRequest) { r.Customer.Phone = "( ) -" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := Validate(req)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrBadRequest)
		})
	}
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "11988887777", Digits("+(11) 98888-7777"))
	assert.Equal(t, "12345678900", Digits("123.456.789-00"))
	assert.Equal(t, "", Digits("abc"))
}

func TestExpiration(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	got := Expiration("2024-05-01T12:30:00Z", now, 5*time.Minute)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC), got)

	assert.Equal(t, now.Add(5*time.Minute), Expiration("", now, 5*time.Minute))
	assert.Equal(t, now.Add(5*time.Minute), Expiration("amanhã", now, 5*time.Minute))
}

func TestStringField(t *testing.T) {
	top := map[string]any{"status": "paid"}
	nested := map[string]any{"data": map[string]any{"status": "pending"}}

	assert.Equal(t, "paid", StringField(top, "status"))
	assert.Equal(t, "pending", StringField(nested, "status"))
	assert.Equal(t, "", StringField(map[string]any{}, "status"))
	assert.Equal(t, "pending", StringField(nested, "state", "status"))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownGateway)
}

func TestCaller_Do(t *testing.T) {
	t.Run("sucesso devolve o corpo", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		body, err := NewCaller("t", time.Second).Do(context.Background(), http.MethodPost, srv.URL, BearerAuth("tok"), map[string]any{"a": 1})
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(body))
	})

	t.Run("rejeição preserva status e corpo", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message":"invalid"}`))
		}))
		defer srv.Close()

		_, err := NewCaller("t", time.Second).Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
		var rejected *RejectedError
		require.True(t, errors.As(err, &rejected))
		assert.Equal(t, http.StatusUnprocessableEntity, rejected.StatusCode)
		assert.Contains(t, rejected.Body, "invalid")
		assert.ErrorIs(t, err, ErrRejected)
	})

	t.Run("timeout vira erro de rede", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		_, err := NewCaller("t", 50*time.Millisecond).Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
		assert.ErrorIs(t, err, ErrNetwork)
	})

	t.Run("circuito abre após falhas 5xx consecutivas", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := NewCaller("t", time.Second)
		for i := 0; i < 5; i++ {
			_, err := c.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
			assert.ErrorIs(t, err, ErrRejected)
		}
		_, err := c.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
		assert.ErrorIs(t, err, ErrNetwork)
		assert.Equal(t, int32(5), hits.Load())
	})

	t.Run("4xx não abre o circuito", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		c := NewCaller("t", time.Second)
		for i := 0; i < 7; i++ {
			_, err := c.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
			assert.ErrorIs(t, err, ErrRejected)
		}
		assert.Equal(t, int32(7), hits.Load())
	})
}
