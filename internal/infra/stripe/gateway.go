package stripe

import "context"

// IntentRequest describes a PaymentIntent to create. AmountCents is in the
// currency's minor unit.
type IntentRequest struct {
	AmountCents    int64
	Currency       string
	CustomerID     string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// Intent is the part of a Stripe PaymentIntent this service reads.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountCents  int64
	Currency     string
	Metadata     map[string]string
}

// Gateway is the payment processor boundary.
type Gateway interface {
	CreateCustomer(ctx context.Context, email string, userID uint) (string, error)
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	GetPaymentIntent(ctx context.Context, id string) (*Intent, error)
}

// Client is the process-wide gateway, installed by main.
var Client Gateway
