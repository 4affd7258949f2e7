package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"iptv-client-portal/internal/domain"
	"iptv-client-portal/internal/domain/ports/adapter"
)

func preferenceReq(txID, method string) adapter.PreferenceRequest {
	return adapter.PreferenceRequest{
		TransactionID: txID,
		Title:         "Recarga Mensal - 30 dias",
		Amount:        30,
		PayerEmail:    "a@b.c",
		PaymentMethod: method,
	}
}

func TestCreatePreference(t *testing.T) {
	var got preferencePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkout/preferences" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://mp/init","sandbox_init_point":"https://mp/sandbox"}`))
	}))
	defer srv.Close()

	g := NewMercadoPagoGateway("test-token", srv.URL)
	pref, err := g.CreatePreference(context.Background(), preferenceReq("tx-1", "pix"))
	if err != nil {
		t.Fatalf("CreatePreference: %v", err)
	}
	if pref.ID != "pref-1" || pref.InitPoint != "https://mp/init" {
		t.Errorf("preference = %+v", pref)
	}
	if got.ExternalReference != "tx-1" {
		t.Errorf("external_reference = %q, want tx-1", got.ExternalReference)
	}
	if len(got.Items) != 1 || got.Items[0].UnitPrice != 30 {
		t.Errorf("items = %+v", got.Items)
	}
	if got.PaymentMethods == nil {
		t.Error("expected payment method exclusions for pix")
	}
}

func TestGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/123" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":123,"status":"approved","external_reference":"tx-1","transaction_amount":30.0,"payer":{"email":"a@b.c"}}`))
	}))
	defer srv.Close()

	g := NewMercadoPagoGateway("test-token", srv.URL)
	p, err := g.GetPayment(context.Background(), "123")
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if p.ID != "123" || p.Status != "approved" || p.ExternalReference != "tx-1" || p.TransactionAmount != 30 {
		t.Errorf("payment = %+v", p)
	}
	if len(p.Raw) == 0 {
		t.Error("expected raw payload to be kept")
	}
}

func TestGetPaymentUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"internal"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewMercadoPagoGateway("test-token", srv.URL)
	_, err := g.GetPayment(context.Background(), "123")
	if !errors.Is(err, domain.ErrUpstreamFetch) {
		t.Fatalf("err = %v, want ErrUpstreamFetch", err)
	}
}

func TestGetPaymentTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	g := NewMercadoPagoGateway("test-token", srv.URL)
	_, err := g.GetPayment(context.Background(), "123")
	if !errors.Is(err, domain.ErrUpstreamFetch) {
		t.Fatalf("err = %v, want ErrUpstreamFetch", err)
	}
}
