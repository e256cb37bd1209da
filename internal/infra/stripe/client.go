package stripe

import (
	"context"
	"fmt"
	"os"

	stripego "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/customer"
	"github.com/stripe/stripe-go/v75/paymentintent"
)

// APIGateway talks to the Stripe API.
type APIGateway struct{}

func NewAPIGateway(secretKey string) *APIGateway {
	stripego.Key = secretKey
	return &APIGateway{}
}

func (APIGateway) CreateCustomer(ctx context.Context, email string, userID uint) (string, error) {
	params := &stripego.CustomerParams{
		Email: stripego.String(email),
		Metadata: map[string]string{
			"user_id": fmt.Sprint(userID),
			"app_env": os.Getenv("APP_ENV"),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(fmt.Sprintf("customer-%d", userID))

	cus, err := customer.New(params)
	if err != nil {
		return "", err
	}
	return cus.ID, nil
}

func (APIGateway) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(req.AmountCents),
		Currency: stripego.String(req.Currency),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	if req.CustomerID != "" {
		params.Customer = stripego.String(req.CustomerID)
	}
	if req.Description != "" {
		params.Description = stripego.String(req.Description)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return FromPaymentIntent(pi), nil
}

func (APIGateway) GetPaymentIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripego.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(id, params)
	if err != nil {
		return nil, err
	}
	return FromPaymentIntent(pi), nil
}

// FromPaymentIntent converts a stripe-go PaymentIntent, e.g. one decoded from a webhook.
func FromPaymentIntent(pi *stripego.PaymentIntent) *Intent {
	if pi == nil {
		return nil
	}
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

var _ Gateway = APIGateway{}
