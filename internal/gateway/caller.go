package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Auth func(r *resty.Request)

func BasicAuth(user, password string) Auth {
	return func(r *resty.Request) { r.SetBasicAuth(user, password) }
}

func BearerAuth(token string) Auth {
	return func(r *resty.Request) { r.SetAuthToken(token) }
}

// Caller performs outbound gateway requests with a bounded timeout behind a
// circuit breaker. Nothing is retried here.
type Caller struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker[*resty.Response]
}

func NewCaller(name string, timeout time.Duration) *Caller {
	client := resty.New().
		SetTimeout(timeout).
		SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
		SetHeader("Accept", "application/json")

	breaker := gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 4xx é resposta válida do gateway; só 5xx e falhas de rede abrem o circuito.
		IsSuccessful: func(err error) bool {
			var rejected *RejectedError
			if errors.As(err, &rejected) {
				return rejected.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
	})

	return &Caller{client: client, breaker: breaker}
}

// Do sends a JSON request and returns the body of a 2xx answer. Non-2xx
// answers become *RejectedError; transport errors, timeouts and an open
// circuit become ErrNetwork.
func (c *Caller) Do(ctx context.Context, method, url string, auth Auth, body any) ([]byte, error) {
	resp, err := c.breaker.Execute(func() (*resty.Response, error) {
		req := c.client.R().SetContext(ctx)
		if auth != nil {
			auth(req)
		}
		if body != nil {
			req.SetHeader("Content-Type", "application/json").SetBody(body)
		}
		resp, err := req.Execute(method, url)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		if !resp.IsSuccess() {
			return resp, &RejectedError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		return nil, err
	}
	return resp.Body(), nil
}
