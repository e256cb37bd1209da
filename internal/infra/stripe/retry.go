package stripe

import (
	"context"
	"errors"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	stripego "github.com/stripe/stripe-go/v75"
)

// RetryingGateway retries transient processor failures with backoff. Every
// request carries an idempotency key, so a retry never creates a second charge.
type RetryingGateway struct {
	delegate     Gateway
	buildBackoff func() backoff.BackOff
}

func NewRetryingGateway(delegate Gateway, factory func() backoff.BackOff) *RetryingGateway {
	if factory == nil {
		factory = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 5 * time.Second
			return backoff.WithMaxRetries(b, 3)
		}
	}
	return &RetryingGateway{delegate: delegate, buildBackoff: factory}
}

func (g *RetryingGateway) CreateCustomer(ctx context.Context, email string, userID uint) (string, error) {
	var id string
	err := g.retry(ctx, func() error {
		var err error
		id, err = g.delegate.CreateCustomer(ctx, email, userID)
		return err
	})
	return id, err
}

func (g *RetryingGateway) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	var pi *Intent
	err := g.retry(ctx, func() error {
		var err error
		pi, err = g.delegate.CreatePaymentIntent(ctx, req)
		return err
	})
	return pi, err
}

func (g *RetryingGateway) GetPaymentIntent(ctx context.Context, id string) (*Intent, error) {
	var pi *Intent
	err := g.retry(ctx, func() error {
		var err error
		pi, err = g.delegate.GetPaymentIntent(ctx, id)
		return err
	})
	return pi, err
}

func (g *RetryingGateway) retry(ctx context.Context, fn func() error) error {
	b := backoff.WithContext(g.buildBackoff(), ctx)
	return backoff.Retry(func() error {
		err := fn()
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// IsTransient reports whether err is worth retrying: rate limits, Stripe
// 5xx responses and transport failures. Card declines and validation errors are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *stripego.Error
	if errors.As(err, &se) {
		return se.HTTPStatusCode == http.StatusTooManyRequests || se.HTTPStatusCode >= 500
	}
	return true
}

var _ Gateway = (*RetryingGateway)(nil)
