//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"iptv-client-portal/internal/domain"
	"iptv-client-portal/internal/domain/model"
	"iptv-client-portal/internal/domain/ports/adapter"
	"iptv-client-portal/internal/domain/ports/repository"
	"iptv-client-portal/internal/usecase"
)

// webhookDeps bundles the mocks behind a webhook use case under test.
type webhookDeps struct {
	transactions *MockTransactionRepo
	subs         *MockSubscriptionRepo
	users        *MockUserRepo
	ledger       *MockLedgerRepo
	referrals    *MockReferralRepo
	raffles      *MockRaffleRepo
	provider     *MockPaymentProvider
	uc           usecase.WebhookUseCase
}

func newWebhookDeps() *webhookDeps {
	d := &webhookDeps{
		transactions: NewMockTransactionRepo(),
		subs:         NewMockSubscriptionRepo(),
		users:        NewMockUserRepo(),
		ledger:       NewMockLedgerRepo(),
		referrals:    NewMockReferralRepo(),
		raffles:      NewMockRaffleRepo(),
		provider:     &MockPaymentProvider{},
	}
	log := newTestLogger()
	tm := &MockTxManager{}
	raffleUC := usecase.NewRaffleUseCase(d.raffles, 100, log)
	referralUC := usecase.NewReferralUseCase(d.referrals, d.users, d.transactions, d.subs, tm, raffleUC, 0.10, 50, log)
	d.uc = usecase.NewWebhookUseCase(d.transactions, d.subs, d.users, d.ledger, tm, d.provider,
		referralUC, raffleUC, &MockLocker{}, log)
	return d
}

func (d *webhookDeps) seedUser(id string) {
	_ = d.users.Save(context.Background(), nil, &model.User{
		ID: id, FullName: "Maria", Email: id + "@example.com", PasswordHash: "x", ReferralCode: "CODE" + id,
	})
}

func (d *webhookDeps) seedSubscription(id, userID string, expiresIn time.Duration) {
	_ = d.subs.Save(context.Background(), nil, &model.Subscription{
		ID: id, UserID: userID, PlanType: "ponto_unico", PanelName: "panel-a",
		Status: model.SubscriptionStatusActive, ExpirationDate: time.Now().Add(expiresIn), MonthlyValue: 30,
	})
}

func (d *webhookDeps) seedPendingTransaction(id, userID string, amount float64, days int) {
	uid := userID
	_ = d.transactions.Save(context.Background(), nil, &model.Transaction{
		ID: id, UserID: &uid, Type: model.TransactionTypeRecharge, Amount: amount,
		PaymentMethod: "pix", Status: model.TransactionStatusPending,
		Metadata:  model.TransactionMetadata{DurationDays: days},
		CreatedAt: time.Now().Add(-time.Hour), UpdatedAt: time.Now().Add(-time.Hour),
	})
}

func approvedPayment(paymentID, txID string, amount float64) *adapter.Payment {
	return &adapter.Payment{
		ID: paymentID, Status: "approved", ExternalReference: txID,
		TransactionAmount: amount, Raw: []byte(`{"status":"approved"}`),
	}
}

func TestWebhookUseCase_ProcessNotification(t *testing.T) {
	ctx := context.Background()

	t.Run("approved payment completes the transaction and extends the subscription", func(t *testing.T) {
		d := newWebhookDeps()
		d.seedUser("u1")
		d.seedSubscription("s1", "u1", 10*24*time.Hour)
		d.seedPendingTransaction("tx-1", "u1", 30, 30)
		d.provider.Payment = approvedPayment("777", "tx-1", 30)

		before, _ := d.subs.FindByID(ctx, nil, "s1")
		res, err := d.uc.ProcessNotification(ctx, "payment", "777")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if res.Outcome != usecase.OutcomeApplied {
			t.Fatalf("outcome = %s, want applied", res.Outcome)
		}
		if res.TransactionID != "tx-1" || res.Status != model.TransactionStatusCompleted {
			t.Errorf("result = %+v", res)
		}

		tx, _ := d.transactions.FindByID(ctx, nil, "tx-1")
		if tx.Status != model.TransactionStatusCompleted {
			t.Errorf("transaction status = %s", tx.Status)
		}
		if tx.Metadata.PaymentID != "777" || tx.Metadata.ProcessorStatus != "approved" {
			t.Errorf("metadata = %+v", tx.Metadata)
		}
		if tx.Metadata.DurationDays != 30 {
			t.Errorf("duration metadata clobbered: %+v", tx.Metadata)
		}

		after, _ := d.subs.FindByID(ctx, nil, "s1")
		want := before.ExpirationDate.AddDate(0, 0, 30)
		if !after.ExpirationDate.Equal(want) {
			t.Errorf("expiration = %v, want %v", after.ExpirationDate, want)
		}
		if len(d.ledger.Cash) != 1 || len(d.ledger.Credits) != 1 {
			t.Errorf("ledger entries: cash=%d credits=%d, want 1 each", len(d.ledger.Cash), len(d.ledger.Credits))
		}
		if d.ledger.Cash[0].CreditAmount != 30 || d.ledger.Cash[0].TransactionID != "tx-1" {
			t.Errorf("cash entry = %+v", d.ledger.Cash[0])
		}
	})

	t.Run("duplicate delivery applies side effects exactly once", func(t *testing.T) {
		d := newWebhookDeps()
		d.seedUser("u1")
		d.seedSubscription("s1", "u1", 10*24*time.Hour)
		d.seedPendingTransaction("tx-1", "u1", 30, 30)
		d.provider.Payment = approvedPayment("777", "tx-1", 30)

		first, err := d.uc.ProcessNotification(ctx, "payment", "777")
		if err != nil || first.Outcome != usecase.OutcomeApplied {
			t.Fatalf("first delivery: res=%+v err=%v", first, err)
		}
		afterFirst, _ := d.subs.FindByID(ctx, nil, "s1")

		second, err := d.uc.ProcessNotification(ctx, "payment", "777")
		if err != nil {
			t.Fatalf("second delivery: %v", err)
		}
		if second.Outcome != usecase.OutcomeDuplicate {
			t.Fatalf("second outcome = %s, want duplicate", second.Outcome)
		}

		afterSecond, _ := d.subs.FindByID(ctx, nil, "s1")
		if !afterSecond.ExpirationDate.Equal(afterFirst.ExpirationDate) {
			t.Error("duplicate delivery extended the subscription again")
		}
		if len(d.ledger.Cash) != 1 || len(d.ledger.Credits) != 1 {
			t.Errorf("duplicate delivery wrote extra ledger entries: cash=%d credits=%d", len(d.ledger.Cash), len(d.ledger.Credits))
		}
	})

	t.Run("multi slot plan extends every slot but books one payment", func(t *testing.T) {
		d := newWebhookDeps()
		d.seedUser("u1")
		d.seedSubscription("s1", "u1", 5*24*time.Hour)
		d.seedSubscription("s2", "u1", 5*24*time.Hour)
		d.seedSubscription("s3", "u1", 5*24*time.Hour)
		d.seedPendingTransaction("tx-1", "u1", 65, 30)
		d.provider.Payment = approvedPayment("888", "tx-1", 65)

		res, err := d.uc.ProcessNotification(ctx, "payment", "888")
		if err != nil || res.Outcome != usecase.OutcomeApplied {
			t.Fatalf("res=%+v err=%v", res, err)
		}
		for _, id := range []string{"s1", "s2", "s3"} {
			s, _ := d.subs.FindByID(ctx, nil, id)
			if time.Until(s.ExpirationDate) < 34*24*time.Hour {
				t.Errorf("slot %s not extended: %v", id, s.ExpirationDate)
			}
		}
		if len(d.ledger.Cash) != 1 {
			t.Fatalf("cash entries = %d, want 1", len(d.ledger.Cash))
		}
		if len(d.ledger.Credits) != 1 || d.ledger.Credits[0].Quantity != 3 {
			t.Errorf("credits quantity = %+v, want one entry of 3", d.ledger.Credits)
		}
	})

	t.Run("lapsed subscription extends from now, not the stale expiry", func(t *testing.T) {
		d := newWebhookDeps()
		d.seedUser("u1")
		d.seedSubscription("s1", "u1", -40*24*time.Hour) // long expired
		d.seedPendingTransaction("tx-1", "u1", 30, 30)
		d.provider.Payment = approvedPayment("999", "tx-1", 30)

		if _, err := d.uc.ProcessNotification(ctx, "payment", "999"); err != nil {
			t.Fatalf("process: %v", err)
		}
		s, _ := d.subs.FindByID(ctx, nil, "s1")
		left := time.Until(s.ExpirationDate)
		if left < 29*24*time.Hour || left > 31*24*time.Hour {
			t.Errorf("expiration %v not ~30 days out", s.ExpirationDate)
		}
	})

	t.Run("no active subscription completes the status but books no ledger entries", func(t *testing.T) {
		d := newWebhookDeps()
		d.seedUser("u1")
		d.seedPendingTransaction("tx-1", "u1", 30, 30)
		d.provider.Payment = approvedPayment("777", "tx-1", 30)

		res, err := d.uc.ProcessNotification(ctx, "payment", "777")
		if err != nil {
			t.Fatalf("process: %v", err)
		}
		if res.Outcome != usecase.OutcomeApplied || res.Status != model.TransactionStatusCompleted {
			t.Fatalf("res = %+v", res)
		}
		tx, _ := d.transactions.FindByID(ctx, nil, "tx-1")
		if tx.Status != model.TransactionStatusCompleted {
			t.Errorf("status = %s, want completed", tx.Status)
		}
		if len(d.ledger.Cash) != 0 || len(d.ledger.Credits) != 0 {
			t.Errorf("ledger entries with nothing to extend: cash=%d credits=%d", len(d.ledger.Cash), len(d.ledger.Credits))
		}
	})

	t.Run("subscription load failure skips extension and ledger but keeps completion", func(t *testing.T) {
		d := newWebhookDeps()
		d.seedUser("u1")
		d.seedSubscription("s1", "u1", 10*24*time.Hour)
		d.seedPendingTransaction("tx-1", "u1", 30, 30)
		d.provider.Payment = approvedPayment("777", "tx-1", 30)
		d.subs.FindActiveByUserFunc = func(context.Context, repository.Tx, string) ([]*model.Subscription, error) {
			return nil, domain.ErrOperationFailed
		}

		res, err := d.uc.ProcessNotification(ctx, "payment", "777")
		if err != nil {
			t.Fatalf("process: %v", err)
		}
		if res.Outcome != usecase.OutcomeApplied {
			t.Fatalf("outcome = %s, want applied", res.Outcome)
		}
		tx, _ := d.transactions.FindByID(ctx, nil, "tx-1")
		if tx.Status != model.TransactionStatusCompleted {
			t.Errorf("status = %s, want completed", tx.Status)
		}
		if len(d.ledger.Cash) != 0 || len(d.ledger.Credits) != 0 {
			t.Errorf("ledger written without knowing the active slots: cash=%d credits=%d", len(d.ledger.Cash), len(d.ledger.Credits))
		}
	})

	t.Run("rejected payment marks failed without side effects", func(t *testing.T) {
		d := newWebhookDeps()
		d.seedUser("u1")
		d.seedSubscription("s1", "u1", 10*24*time.Hour)
		d.seedPendingTransaction("tx-1", "u1", 30, 30)
		d.provider.Payment = &adapter.Payment{ID: "5", Status: "rejected", ExternalReference: "tx-1", TransactionAmount: 30}

		res, err := d.uc.ProcessNotification(ctx, "payment", "5")
		if err != nil {
			t.Fatalf("process: %v", err)
		}
		if res.Outcome != usecase.OutcomeUpdated || res.Status != model.TransactionStatusFailed {
			t.Fatalf("res = %+v", res)
		}
		tx, _ := d.transactions.FindByID(ctx, nil, "tx-1")
		if tx.Status != model.TransactionStatusFailed {
			t.Errorf("status = %s", tx.Status)
		}
		if len(d.ledger.Cash) != 0 || len(d.ledger.Credits) != 0 {
			t.Error("rejected payment produced ledger entries")
		}
	})

	t.Run("late non-approved status never downgrades a completed transaction", func(t *testing.T) {
		d := newWebhookDeps()
		d.seedUser("u1")
		d.seedSubscription("s1", "u1", 10*24*time.Hour)
		d.seedPendingTransaction("tx-1", "u1", 30, 30)

		d.provider.Payment = approvedPayment("777", "tx-1", 30)
		if _, err := d.uc.ProcessNotification(ctx, "payment", "777"); err != nil {
			t.Fatalf("approve: %v", err)
		}

		d.provider.Payment = &adapter.Payment{ID: "777", Status: "in_process", ExternalReference: "tx-1", TransactionAmount: 30}
		res, err := d.uc.ProcessNotification(ctx, "payment", "777")
		if err != nil {
			t.Fatalf("late in_process: %v", err)
		}
		tx, _ := d.transactions.FindByID(ctx, nil, "tx-1")
		if tx.Status != model.TransactionStatusCompleted {
			t.Errorf("status downgraded to %s", tx.Status)
		}
		if res.Status != model.TransactionStatusCompleted {
			t.Errorf("response reports %s, row holds completed", res.Status)
		}
	})

	t.Run("unknown external reference is acknowledged without writes", func(t *testing.T) {
		d := newWebhookDeps()
		d.provider.Payment = approvedPayment("777", "tx-nope", 30)

		res, err := d.uc.ProcessNotification(ctx, "payment", "777")
		if err != nil {
			t.Fatalf("process: %v", err)
		}
		if res.Outcome != usecase.OutcomeUnmatched {
			t.Fatalf("outcome = %s, want unmatched", res.Outcome)
		}
		if len(d.ledger.Cash) != 0 {
			t.Error("unmatched notification wrote a ledger entry")
		}
	})

	t.Run("non payment events are ignored without a processor fetch", func(t *testing.T) {
		d := newWebhookDeps()
		res, err := d.uc.ProcessNotification(ctx, "plan", "42")
		if err != nil {
			t.Fatalf("process: %v", err)
		}
		if res.Outcome != usecase.OutcomeIgnored {
			t.Fatalf("outcome = %s, want ignored", res.Outcome)
		}
		if d.provider.GetCalls != 0 {
			t.Errorf("processor fetched %d times for ignored event", d.provider.GetCalls)
		}
	})

	t.Run("upstream fetch failure surfaces the error", func(t *testing.T) {
		d := newWebhookDeps()
		d.provider.Err = domain.ErrUpstreamFetch

		_, err := d.uc.ProcessNotification(ctx, "payment", "777")
		if !errors.Is(err, domain.ErrUpstreamFetch) {
			t.Fatalf("err = %v, want ErrUpstreamFetch", err)
		}
	})

	t.Run("completed payment credits the referrer", func(t *testing.T) {
		d := newWebhookDeps()
		d.seedUser("referrer")
		d.seedUser("u1")
		_ = d.referrals.Save(ctx, nil, &model.Referral{ID: "ref-1", ReferrerID: "referrer", ReferredID: "u1"})
		d.seedSubscription("s1", "u1", 10*24*time.Hour)
		d.seedPendingTransaction("tx-1", "u1", 100, 30)
		d.provider.Payment = approvedPayment("777", "tx-1", 100)

		if _, err := d.uc.ProcessNotification(ctx, "payment", "777"); err != nil {
			t.Fatalf("process: %v", err)
		}
		ref, _ := d.referrals.FindByReferred(ctx, nil, "u1")
		if ref.TotalCommissionEarned != 10 {
			t.Errorf("commission earned = %.2f, want 10.00", ref.TotalCommissionEarned)
		}
		referrer, _ := d.users.FindByID(ctx, nil, "referrer")
		if referrer.TotalCommission != 10 {
			t.Errorf("referrer balance = %.2f, want 10.00", referrer.TotalCommission)
		}
	})

	t.Run("ledger failure does not roll back completion", func(t *testing.T) {
		d := newWebhookDeps()
		d.seedUser("u1")
		d.seedSubscription("s1", "u1", 10*24*time.Hour)
		d.seedPendingTransaction("tx-1", "u1", 30, 30)
		d.provider.Payment = approvedPayment("777", "tx-1", 30)
		d.ledger.AppendCashFunc = func(context.Context, interface{}, *model.CashLedgerEntry) error {
			return domain.ErrOperationFailed
		}

		res, err := d.uc.ProcessNotification(ctx, "payment", "777")
		if err != nil {
			t.Fatalf("process: %v", err)
		}
		if res.Outcome != usecase.OutcomeApplied {
			t.Fatalf("outcome = %s", res.Outcome)
		}
		tx, _ := d.transactions.FindByID(ctx, nil, "tx-1")
		if tx.Status != model.TransactionStatusCompleted {
			t.Errorf("status = %s, completion must stick", tx.Status)
		}
	})
}

func TestWebhookUseCase_Reconcile(t *testing.T) {
	ctx := context.Background()

	d := newWebhookDeps()
	d.seedUser("u1")
	d.seedSubscription("s1", "u1", 10*24*time.Hour)
	uid := "u1"
	_ = d.transactions.Save(ctx, nil, &model.Transaction{
		ID: "tx-1", UserID: &uid, Type: model.TransactionTypeRecharge, Amount: 30,
		Status:    model.TransactionStatusPending,
		Metadata:  model.TransactionMetadata{PaymentID: "777", DurationDays: 30},
		CreatedAt: time.Now().Add(-time.Hour),
	})
	d.provider.Payment = approvedPayment("777", "tx-1", 30)

	res, err := d.uc.Reconcile(ctx, "tx-1")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Outcome != usecase.OutcomeApplied {
		t.Fatalf("outcome = %s, want applied", res.Outcome)
	}

	// A second pass sees the completed row and does nothing.
	res, err = d.uc.Reconcile(ctx, "tx-1")
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if res.Outcome != usecase.OutcomeDuplicate {
		t.Fatalf("second outcome = %s, want duplicate", res.Outcome)
	}

	t.Run("rejects a transaction without a payment id", func(t *testing.T) {
		d := newWebhookDeps()
		d.seedUser("u1")
		d.seedPendingTransaction("tx-2", "u1", 30, 30)
		if _, err := d.uc.Reconcile(ctx, "tx-2"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("err = %v, want ErrInvalidArgument", err)
		}
	})
}
