// internal/domain/payment/stripe.go
package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/account"
	"github.com/stripe/stripe-go/v78/accountlink"
	checkoutsession "github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/price"
	stripeproduct "github.com/stripe/stripe-go/v78/product"
	"github.com/stripe/stripe-go/v78/webhook"
	"github.com/your-org/marketplace-backend/internal/config"
)

// StripeGateway implements Gateway against Stripe Connect using
// destination charges: funds are collected by the platform and the
// transfer amount routes to the seller's connected account.
type StripeGateway struct {
	config *config.Config
}

// NewStripeGateway creates a new Stripe gateway
func NewStripeGateway(cfg *config.Config) *StripeGateway {
	stripe.Key = cfg.Stripe.SecretKey
	return &StripeGateway{config: cfg}
}

// CreateCheckoutSession opens a hosted checkout session in payment mode with
// a destination-transfer instruction and the platform's application fee.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*CheckoutSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(params.LineItems))
	for _, item := range params.LineItems {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(item.PriceID),
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(params.SuccessURL),
		CancelURL:          stripe.String(params.CancelURL),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(params.ApplicationFee),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(params.DestinationAccount),
			},
			Metadata: params.Metadata,
		},
	}
	sessionParams.Context = ctx

	if params.ShippingFee > 0 {
		sessionParams.ShippingOptions = []*stripe.CheckoutSessionShippingOptionParams{
			{
				ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
					DisplayName: stripe.String("Shipping"),
					Type:        stripe.String("fixed_amount"),
					FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
						Amount:   stripe.Int64(params.ShippingFee),
						Currency: stripe.String(g.config.Platform.Currency),
					},
				},
			},
		}
	}

	sess, err := checkoutsession.New(sessionParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// CreateAccount creates an Express connected account with the platform
// covering fees and payment losses.
func (g *StripeGateway) CreateAccount(ctx context.Context, country, email string) (*ConnectedAccount, error) {
	accountParams := &stripe.AccountParams{
		Country: stripe.String(country),
		Email:   stripe.String(email),
		Controller: &stripe.AccountControllerParams{
			Fees: &stripe.AccountControllerFeesParams{
				Payer: stripe.String("application"),
			},
			Losses: &stripe.AccountControllerLossesParams{
				Payments: stripe.String("application"),
			},
			StripeDashboard: &stripe.AccountControllerStripeDashboardParams{
				Type: stripe.String("express"),
			},
		},
	}
	accountParams.Context = ctx

	acct, err := account.New(accountParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create connected account: %w", err)
	}

	return toConnectedAccount(acct), nil
}

// CreateAccountLink returns a one-time onboarding URL for the account
func (g *StripeGateway) CreateAccountLink(ctx context.Context, accountID string) (string, error) {
	linkParams := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		Collect:    stripe.String("eventually_due"),
		RefreshURL: stripe.String(fmt.Sprintf("%s/connect/accounts/%s/onboard/refresh", g.config.Platform.RootURL, accountID)),
		ReturnURL:  stripe.String(fmt.Sprintf("%s/connect/accounts/%s/onboard/return", g.config.Platform.RootURL, accountID)),
		Type:       stripe.String("account_onboarding"),
	}
	linkParams.Context = ctx

	link, err := accountlink.New(linkParams)
	if err != nil {
		return "", fmt.Errorf("failed to create account link: %w", err)
	}

	return link.URL, nil
}

// GetAccount retrieves the connected account's onboarding status
func (g *StripeGateway) GetAccount(ctx context.Context, accountID string) (*ConnectedAccount, error) {
	accountParams := &stripe.AccountParams{}
	accountParams.Context = ctx

	acct, err := account.GetByID(accountID, accountParams)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve connected account: %w", err)
	}

	return toConnectedAccount(acct), nil
}

// RegisterPrice creates a processor-side product with a single price in the
// platform currency. Called when a listing or variant first becomes sellable.
func (g *StripeGateway) RegisterPrice(ctx context.Context, name string, unitAmount int64) (*RegisteredPrice, error) {
	productParams := &stripe.ProductParams{
		Name: stripe.String(name),
	}
	productParams.Context = ctx

	prod, err := stripeproduct.New(productParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	priceParams := &stripe.PriceParams{
		Product:    stripe.String(prod.ID),
		UnitAmount: stripe.Int64(unitAmount),
		Currency:   stripe.String(g.config.Platform.Currency),
	}
	priceParams.Context = ctx

	pr, err := price.New(priceParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create price: %w", err)
	}

	return &RegisteredPrice{ProductID: prod.ID, PriceID: pr.ID}, nil
}

func toConnectedAccount(acct *stripe.Account) *ConnectedAccount {
	return &ConnectedAccount{
		ID:               acct.ID,
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}
}

// VerifyWebhook checks the signature over the raw request body and
// normalizes the event. An invalid signature fails before any business
// logic can run.
func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, g.config.Stripe.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	normalized := &WebhookEvent{
		ID:   evt.ID,
		Type: string(evt.Type),
	}

	switch normalized.Type {
	case EventPaymentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &intent); err != nil {
			return nil, fmt.Errorf("failed to parse payment intent: %w", err)
		}
		normalized.ObjectID = intent.ID
		normalized.Metadata = intent.Metadata
	case EventPayoutPaid, EventPayoutFailed:
		var payout stripe.Payout
		if err := json.Unmarshal(evt.Data.Raw, &payout); err != nil {
			return nil, fmt.Errorf("failed to parse payout: %w", err)
		}
		normalized.ObjectID = payout.ID
	}

	return normalized, nil
}
