package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"iptv-client-portal/internal/domain"
	"iptv-client-portal/internal/domain/ports/adapter"
	"iptv-client-portal/internal/infra/metrics"
)

const defaultBaseURL = "https://api.mercadopago.com"

var _ adapter.PaymentProvider = (*MercadoPagoGateway)(nil)

// MercadoPagoGateway implements PaymentProvider using direct HTTP calls.
type MercadoPagoGateway struct {
	accessToken string
	baseURL     string
	client      *http.Client
}

func NewMercadoPagoGateway(accessToken, baseURL string) *MercadoPagoGateway {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &MercadoPagoGateway{
		accessToken: accessToken,
		baseURL:     baseURL,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *MercadoPagoGateway) Name() string { return "mercadopago" }

type preferenceItem struct {
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type preferencePayload struct {
	Items             []preferenceItem       `json:"items"`
	Payer             map[string]string      `json:"payer,omitempty"`
	ExternalReference string                 `json:"external_reference"`
	AutoReturn        string                 `json:"auto_return,omitempty"`
	BackURLs          map[string]string      `json:"back_urls,omitempty"`
	PaymentMethods    map[string]interface{} `json:"payment_methods,omitempty"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// CreatePreference opens a hosted checkout session. The transaction id goes
// out as external_reference and comes back on the payment object; it is the
// only correlation key the webhook trusts.
func (g *MercadoPagoGateway) CreatePreference(ctx context.Context, req adapter.PreferenceRequest) (*adapter.Preference, error) {
	payload := preferencePayload{
		Items: []preferenceItem{{
			Title:     req.Title,
			Quantity:  1,
			UnitPrice: req.Amount,
		}},
		ExternalReference: req.TransactionID,
	}
	if req.PayerEmail != "" {
		payload.Payer = map[string]string{"email": req.PayerEmail}
	}
	if excluded := excludedPaymentTypes(req.PaymentMethod); excluded != nil {
		payload.PaymentMethods = map[string]interface{}{
			"excluded_payment_types": excluded,
			"installments":           1,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal preference payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/checkout/preferences", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build preference request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.accessToken)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read preference response: %v", domain.ErrUpstreamFetch, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: preference %d: %s", domain.ErrUpstreamFetch, resp.StatusCode, truncate(raw, 512))
	}

	var pr preferenceResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("%w: decode preference response: %v", domain.ErrUpstreamFetch, err)
	}
	return &adapter.Preference{
		ID:               pr.ID,
		InitPoint:        pr.InitPoint,
		SandboxInitPoint: pr.SandboxInitPoint,
	}, nil
}

type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount float64     `json:"transaction_amount"`
}

// GetPayment fetches the authoritative payment object. Any transport or
// non-2xx failure maps to ErrUpstreamFetch; the caller answers the webhook
// with a 5xx and the processor redelivers.
func (g *MercadoPagoGateway) GetPayment(ctx context.Context, id string) (*adapter.Payment, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/payments/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("build payment request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.accessToken)

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	metrics.ObservePaymentFetchLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read payment response: %v", domain.ErrUpstreamFetch, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: payment %s: %d: %s", domain.ErrUpstreamFetch, id, resp.StatusCode, truncate(raw, 512))
	}

	var pr paymentResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("%w: decode payment response: %v", domain.ErrUpstreamFetch, err)
	}
	return &adapter.Payment{
		ID:                pr.ID.String(),
		Status:            pr.Status,
		ExternalReference: pr.ExternalReference,
		TransactionAmount: pr.TransactionAmount,
		Raw:               json.RawMessage(raw),
	}, nil
}

// excludedPaymentTypes narrows the hosted checkout to the method the user
// picked. Mercado Pago has no allow-list, only exclusions.
func excludedPaymentTypes(method string) []map[string]string {
	switch method {
	case "pix":
		return []map[string]string{{"id": "credit_card"}, {"id": "debit_card"}, {"id": "ticket"}}
	case "credit_card":
		return []map[string]string{{"id": "bank_transfer"}, {"id": "ticket"}}
	case "boleto":
		return []map[string]string{{"id": "credit_card"}, {"id": "debit_card"}, {"id": "bank_transfer"}}
	default:
		return nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
