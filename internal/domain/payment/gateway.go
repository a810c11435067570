// internal/domain/payment/gateway.go
package payment

import (
	"context"
)

// Webhook event types the reconciler acts on or acknowledges.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPayoutPaid       = "payout.paid"
	EventPayoutFailed     = "payout.failed"
)

// MetadataOrderID is the metadata key embedding the order id in the
// payment intent. It is the only linkage between a checkout session and
// the order it pays for.
const MetadataOrderID = "orderId"

// CheckoutLineItem references a processor-side price for one order line
type CheckoutLineItem struct {
	PriceID  string
	Quantity int64
}

// CheckoutSessionParams describes a hosted checkout session request:
// resolved line items, a single destination account, the platform's
// application fee and the order-linking metadata.
type CheckoutSessionParams struct {
	LineItems          []CheckoutLineItem
	ShippingFee        int64
	DestinationAccount string
	ApplicationFee     int64
	Metadata           map[string]string
	SuccessURL         string
	CancelURL          string
}

// CheckoutSession is the externally-assigned session handle returned to
// the client for redirect. Not persisted by this system.
type CheckoutSession struct {
	ID  string
	URL string
}

// ConnectedAccount summarizes a seller's connected payment account
type ConnectedAccount struct {
	ID               string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
}

// WebhookEvent is a verified, normalized payment callback
type WebhookEvent struct {
	ID       string
	Type     string
	Metadata map[string]string // payment-intent metadata, if any
	ObjectID string            // id of the event's primary object (intent, payout)
}

// RegisteredPrice is the processor-side product/price pair created for a
// catalog listing. The price id is what checkout line items reference.
type RegisteredPrice struct {
	ProductID string
	PriceID   string
}

// Gateway abstracts the payment processor. The production implementation
// talks to Stripe; tests substitute a fake.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*CheckoutSession, error)
	CreateAccount(ctx context.Context, country, email string) (*ConnectedAccount, error)
	CreateAccountLink(ctx context.Context, accountID string) (string, error)
	GetAccount(ctx context.Context, accountID string) (*ConnectedAccount, error)
	RegisterPrice(ctx context.Context, name string, unitAmount int64) (*RegisteredPrice, error)
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
