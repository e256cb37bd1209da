// Package stripetest provides an in-memory payment gateway for tests.
package stripetest

import (
	"context"
	"fmt"
	"sync"

	"learningly/internal/infra/stripe"
)

// Fake records calls and serves intents from memory. Set the *Err fields to
// make the matching call fail.
type Fake struct {
	mu sync.Mutex

	CustomerErr error
	CreateErr   error
	GetErr      error

	Customers map[uint]string
	Intents   map[string]*stripe.Intent
	Requests  []stripe.IntentRequest
}

func New() *Fake {
	return &Fake{
		Customers: map[uint]string{},
		Intents:   map[string]*stripe.Intent{},
	}
}

func (f *Fake) CreateCustomer(ctx context.Context, email string, userID uint) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CustomerErr != nil {
		return "", f.CustomerErr
	}
	id := fmt.Sprintf("cus_test_%d", userID)
	f.Customers[userID] = id
	return id, nil
}

func (f *Fake) CreatePaymentIntent(ctx context.Context, req stripe.IntentRequest) (*stripe.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	id := fmt.Sprintf("pi_test_%d", len(f.Requests))
	md := map[string]string{}
	for k, v := range req.Metadata {
		md[k] = v
	}
	pi := &stripe.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       "requires_payment_method",
		AmountCents:  req.AmountCents,
		Currency:     req.Currency,
		Metadata:     md,
	}
	f.Intents[id] = pi
	copied := *pi
	return &copied, nil
}

func (f *Fake) GetPaymentIntent(ctx context.Context, id string) (*stripe.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	pi, ok := f.Intents[id]
	if !ok {
		return nil, fmt.Errorf("no such payment_intent: %s", id)
	}
	copied := *pi
	return &copied, nil
}

// Succeed marks an intent as paid, as if the client confirmed it.
func (f *Fake) Succeed(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pi, ok := f.Intents[id]; ok {
		pi.Status = "succeeded"
	}
}

var _ stripe.Gateway = (*Fake)(nil)
