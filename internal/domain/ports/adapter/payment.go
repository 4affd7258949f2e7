package adapter

import (
	"context"
	"encoding/json"
)

// Payment is the authoritative payment object as fetched from the
// processor's API. Webhook bodies are never trusted; decisions are made
// from this object only.
type Payment struct {
	ID                string
	Status            string
	ExternalReference string // echoes our transaction id
	TransactionAmount float64
	Raw               json.RawMessage // full processor payload, kept in transaction metadata
}

// PreferenceRequest describes the hosted checkout session to create.
type PreferenceRequest struct {
	TransactionID string // becomes external_reference
	Title         string
	Amount        float64
	PayerEmail    string
	PaymentMethod string // pix | credit_card | boleto
}

// Preference is the processor-hosted checkout session.
type Preference struct {
	ID               string
	InitPoint        string
	SandboxInitPoint string
}

type PaymentProvider interface {
	Name() string
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
	// GetPayment fetches a payment by processor id. Transport failures and
	// non-2xx responses surface as domain.ErrUpstreamFetch so the webhook
	// can answer 5xx and lean on the processor's redelivery.
	GetPayment(ctx context.Context, id string) (*Payment, error)
}
