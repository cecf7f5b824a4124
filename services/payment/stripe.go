package payment

import (
	"context"
	"errors"
	"net/http"

	"installhub/domain"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// VerifiedPayment is a settled top-up as reported by the payment provider.
type VerifiedPayment struct {
	IntentID   string
	Amount     int64
	Currency   string
	CustomerID string
}

// PaymentVerifier confirms that an external payment settled before the
// ledger credits it.
type PaymentVerifier interface {
	VerifyTopUp(ctx context.Context, intentID string) (*VerifiedPayment, error)
}

// StripeVerifier checks PaymentIntents through the Stripe API. stripe.Key
// must be set before use.
type StripeVerifier struct {
	Currency string
	fetch    func(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

func NewStripeVerifier(currency string) *StripeVerifier {
	return &StripeVerifier{Currency: currency, fetch: paymentintent.Get}
}

func (v *StripeVerifier) VerifyTopUp(ctx context.Context, intentID string) (*VerifiedPayment, error) {
	if intentID == "" {
		return nil, domain.Validation("payment intent id is required")
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := v.fetch(intentID, params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.HTTPStatusCode == http.StatusNotFound {
			return nil, domain.NotFound("payment intent", intentID)
		}
		return nil, domain.Unavailable(err, "verify payment intent")
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, domain.Validation("payment intent %s is %s, not succeeded", intentID, pi.Status)
	}
	if v.Currency != "" && string(pi.Currency) != v.Currency {
		return nil, domain.Validation("payment intent %s is in %s, expected %s", intentID, pi.Currency, v.Currency)
	}
	amount := pi.AmountReceived
	if amount == 0 {
		amount = pi.Amount
	}
	return &VerifiedPayment{
		IntentID:   pi.ID,
		Amount:     amount,
		Currency:   string(pi.Currency),
		CustomerID: pi.Metadata["customerId"],
	}, nil
}
