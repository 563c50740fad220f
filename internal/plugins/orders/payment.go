package orders

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"

	"github.com/keyxmakerx/elearning/internal/apperror"
)

// PaymentVerifier confirms that a client-reported payment really happened.
type PaymentVerifier interface {
	Verify(ctx context.Context, paymentID string) error
}

// StripeVerifier checks payments against Stripe PaymentIntents.
type StripeVerifier struct {
	get func(id string) (*stripe.PaymentIntent, error)
}

// NewStripeVerifier creates a verifier using secretKey.
func NewStripeVerifier(secretKey string) (*StripeVerifier, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	stripe.Key = secretKey

	return &StripeVerifier{
		get: func(id string) (*stripe.PaymentIntent, error) {
			return paymentintent.Get(id, nil)
		},
	}, nil
}

// Verify succeeds only for a PaymentIntent in the succeeded state.
func (v *StripeVerifier) Verify(_ context.Context, paymentID string) error {
	if paymentID == "" {
		return apperror.NewValidation("Please provide payment information")
	}

	pi, err := v.get(paymentID)
	if err != nil {
		return apperror.NewUpstream("Payment could not be verified", fmt.Errorf("getting payment intent: %w", err))
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return apperror.NewBadRequest("Payment not authorized")
	}
	return nil
}
