package model

import (
	"encoding/json"
	"time"

	"iptv-client-portal/internal/domain"

	"github.com/google/uuid"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"   // created locally; awaiting processor notification
	TransactionStatusCompleted TransactionStatus = "completed" // processor approved; side effects applied once
	TransactionStatusFailed    TransactionStatus = "failed"    // rejected or charged back
	TransactionStatusCancelled TransactionStatus = "cancelled" // cancelled or refunded
)

type TransactionType string

const (
	TransactionTypeRecharge         TransactionType = "recharge"
	TransactionTypeSubscription     TransactionType = "subscription"
	TransactionTypeCommission       TransactionType = "commission"
	TransactionTypeCommissionPayout TransactionType = "commission_payout"
)

// TransactionMetadata is the open metadata bag on a transaction. Several
// independent writers append to it (recharge creation, preference creation,
// the webhook) and none may clobber keys written by another. Extra holds
// keys this version does not know about so they round-trip untouched.
type TransactionMetadata struct {
	Period          string          `json:"period,omitempty"`
	DurationDays    int             `json:"duration_days,omitempty"`
	PreferenceID    string          `json:"mercado_pago_preference_id,omitempty"`
	PaymentID       string          `json:"mercado_pago_id,omitempty"`
	ProcessorStatus string          `json:"mercado_pago_status,omitempty"`
	RawPayment      json.RawMessage `json:"mercado_pago_payment,omitempty"`
	RedeemType      string          `json:"redeem_type,omitempty"`
	DaysAdded       int             `json:"days_added,omitempty"`
	RequestedAt     *time.Time      `json:"requested_at,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// transactionMetadataKnown mirrors the named fields for two-pass decoding.
var transactionMetadataKnown = map[string]struct{}{
	"period": {}, "duration_days": {}, "mercado_pago_preference_id": {},
	"mercado_pago_id": {}, "mercado_pago_status": {}, "mercado_pago_payment": {},
	"redeem_type": {}, "days_added": {}, "requested_at": {},
}

func (m TransactionMetadata) MarshalJSON() ([]byte, error) {
	type alias TransactionMetadata
	b, err := json.Marshal(alias(m))
	if err != nil {
		return nil, err
	}
	if len(m.Extra) == 0 {
		return b, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(b, &merged); err != nil {
		return nil, err
	}
	for k, v := range m.Extra {
		if _, known := transactionMetadataKnown[k]; !known {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

func (m *TransactionMetadata) UnmarshalJSON(b []byte) error {
	type alias TransactionMetadata
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*m = TransactionMetadata(a)
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k := range transactionMetadataKnown {
		delete(raw, k)
	}
	if len(raw) > 0 {
		m.Extra = raw
	}
	return nil
}

// Transaction is a payment-intent ledger row. Created pending by the
// recharge flow; its terminal state is decided by the webhook after the
// authoritative processor fetch. Never deleted.
type Transaction struct {
	ID            string
	UserID        *string // nil for non-attributable bookkeeping rows
	Type          TransactionType
	Amount        float64 // BRL; owned by the creator, never mutated afterwards
	PaymentMethod string  // pix | credit_card | boleto | manual
	Status        TransactionStatus
	Description   string
	Metadata      TransactionMetadata
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewRechargeTransaction(userID string, amount float64, method, description string, meta TransactionMetadata) (*Transaction, error) {
	if userID == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Transaction{
		ID:            uuid.NewString(),
		UserID:        &userID,
		Type:          TransactionTypeRecharge,
		Amount:        amount,
		PaymentMethod: method,
		Status:        TransactionStatusPending,
		Description:   description,
		Metadata:      meta,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// DurationDays returns the purchased duration, falling back to a month
// when the creating flow did not record one.
func (t *Transaction) DurationDays() int {
	if t.Metadata.DurationDays > 0 {
		return t.Metadata.DurationDays
	}
	return DefaultRechargeDays
}

// DefaultRechargeDays is used when a transaction carries no duration metadata.
const DefaultRechargeDays = 30

// MapProcessorStatus maps a Mercado Pago payment status onto the internal
// transaction status. Unrecognized statuses map to pending so an unknown
// processor state can never trigger completion side effects.
func MapProcessorStatus(s string) TransactionStatus {
	switch s {
	case "approved", "authorized":
		return TransactionStatusCompleted
	case "rejected", "charged_back":
		return TransactionStatusFailed
	case "cancelled", "refunded":
		return TransactionStatusCancelled
	case "pending", "in_process", "in_mediation":
		return TransactionStatusPending
	default:
		return TransactionStatusPending
	}
}
