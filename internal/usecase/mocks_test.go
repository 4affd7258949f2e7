//go:build !integration

package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"iptv-client-portal/internal/domain"
	"iptv-client-portal/internal/domain/model"
	"iptv-client-portal/internal/domain/ports/adapter"
	"iptv-client-portal/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

//
// -------------------- transaction repo --------------------
//

type MockTransactionRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Transaction

	SaveFunc     func(ctx context.Context, tx repository.Tx, t *model.Transaction) error
	CompleteFunc func(ctx context.Context, tx repository.Tx, id string, meta model.TransactionMetadata) (bool, error)
}

func NewMockTransactionRepo() *MockTransactionRepo {
	return &MockTransactionRepo{rows: make(map[string]*model.Transaction)}
}

func (m *MockTransactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.rows[t.ID] = &cp
	return nil
}

func (m *MockTransactionRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockTransactionRepo) ListByUser(_ context.Context, _ repository.Tx, userID string, _, _ int) ([]*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Transaction
	for _, t := range m.rows {
		if t.UserID != nil && *t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func mergeMeta(dst *model.TransactionMetadata, meta model.TransactionMetadata) {
	if meta.Period != "" {
		dst.Period = meta.Period
	}
	if meta.DurationDays > 0 {
		dst.DurationDays = meta.DurationDays
	}
	if meta.PreferenceID != "" {
		dst.PreferenceID = meta.PreferenceID
	}
	if meta.PaymentID != "" {
		dst.PaymentID = meta.PaymentID
	}
	if meta.ProcessorStatus != "" {
		dst.ProcessorStatus = meta.ProcessorStatus
	}
	if meta.RawPayment != nil {
		dst.RawPayment = meta.RawPayment
	}
	if meta.RedeemType != "" {
		dst.RedeemType = meta.RedeemType
	}
	if meta.DaysAdded > 0 {
		dst.DaysAdded = meta.DaysAdded
	}
	if meta.RequestedAt != nil {
		dst.RequestedAt = meta.RequestedAt
	}
}

func (m *MockTransactionRepo) Complete(ctx context.Context, tx repository.Tx, id string, meta model.TransactionMetadata) (bool, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, tx, id, meta)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return false, domain.ErrOperationFailed
	}
	if t.Status == model.TransactionStatusCompleted {
		mergeMeta(&t.Metadata, meta)
		return false, nil
	}
	t.Status = model.TransactionStatusCompleted
	mergeMeta(&t.Metadata, meta)
	t.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockTransactionRepo) UpdateStatusUnlessCompleted(_ context.Context, _ repository.Tx, id string, status model.TransactionStatus, meta model.TransactionMetadata) (model.TransactionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	if t.Status != model.TransactionStatusCompleted {
		t.Status = status
	}
	mergeMeta(&t.Metadata, meta)
	t.UpdatedAt = time.Now()
	return t.Status, nil
}

func (m *MockTransactionRepo) MergeMetadata(_ context.Context, _ repository.Tx, id string, meta model.TransactionMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	mergeMeta(&t.Metadata, meta)
	return nil
}

func (m *MockTransactionRepo) ListPendingWithPaymentOlderThan(_ context.Context, _ repository.Tx, olderThan time.Time, _ int) ([]*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Transaction
	for _, t := range m.rows {
		if t.Status == model.TransactionStatusPending && t.Metadata.PaymentID != "" && t.CreatedAt.Before(olderThan) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockTransactionRepo) SumCompletedByPeriod(_ context.Context, _ repository.Tx, _ string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum float64
	for _, t := range m.rows {
		if t.Status == model.TransactionStatusCompleted {
			sum += t.Amount
		}
	}
	return sum, nil
}

//
// -------------------- subscription repo --------------------
//

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Subscription

	UpdateExpirationFunc func(ctx context.Context, tx repository.Tx, id string, expiration, updatedAt time.Time) error
	FindActiveByUserFunc func(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error)
}

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{rows: make(map[string]*model.Subscription)}
}

func (m *MockSubscriptionRepo) Save(_ context.Context, _ repository.Tx, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.rows[s.ID] = &cp
	return nil
}

func (m *MockSubscriptionRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSubscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	if m.FindActiveByUserFunc != nil {
		return m.FindActiveByUserFunc(ctx, tx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Subscription
	for _, s := range m.rows {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockSubscriptionRepo) ListByUser(_ context.Context, _ repository.Tx, userID string) ([]*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Subscription
	for _, s := range m.rows {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockSubscriptionRepo) UpdateExpiration(ctx context.Context, tx repository.Tx, id string, expiration, updatedAt time.Time) error {
	if m.UpdateExpirationFunc != nil {
		return m.UpdateExpirationFunc(ctx, tx, id, expiration, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.ExpirationDate = expiration
	s.Status = model.SubscriptionStatusActive
	s.UpdatedAt = updatedAt
	return nil
}

func (m *MockSubscriptionRepo) MarkExpiredPastDue(_ context.Context, _ repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.rows {
		if s.Status == model.SubscriptionStatusActive && s.ExpirationDate.Before(now) {
			s.Status = model.SubscriptionStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *MockSubscriptionRepo) CountByStatus(_ context.Context, _ repository.Tx) (map[model.SubscriptionStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[model.SubscriptionStatus]int)
	for _, s := range m.rows {
		out[s.Status]++
	}
	return out, nil
}

//
// -------------------- user repo --------------------
//

type MockUserRepo struct {
	mu   sync.Mutex
	rows map[string]*model.User
}

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{rows: make(map[string]*model.User)}
}

func (m *MockUserRepo) Save(_ context.Context, _ repository.Tx, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.rows {
		if other.ID != u.ID && (other.Email == u.Email || other.ReferralCode == u.ReferralCode) {
			return domain.ErrAlreadyExists
		}
	}
	cp := *u
	m.rows[u.ID] = &cp
	return nil
}

func (m *MockUserRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) FindByEmail(_ context.Context, _ repository.Tx, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepo) FindByReferralCode(_ context.Context, _ repository.Tx, code string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.ReferralCode == code {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepo) AddCommission(_ context.Context, _ repository.Tx, id string, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.TotalCommission += delta
	return nil
}

func (m *MockUserRepo) UpdateProfile(_ context.Context, _ repository.Tx, in *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[in.ID]
	if !ok {
		return domain.ErrNotFound
	}
	u.FullName = in.FullName
	u.Phone = in.Phone
	u.CPF = in.CPF
	u.UpdatedAt = in.UpdatedAt
	return nil
}

//
// -------------------- ledger repo --------------------
//

type MockLedgerRepo struct {
	mu      sync.Mutex
	Cash    []*model.CashLedgerEntry
	Credits []*model.CreditsLedgerEntry

	AppendCashFunc func(ctx context.Context, tx repository.Tx, e *model.CashLedgerEntry) error
}

func NewMockLedgerRepo() *MockLedgerRepo { return &MockLedgerRepo{} }

func (m *MockLedgerRepo) AppendCash(ctx context.Context, tx repository.Tx, e *model.CashLedgerEntry) error {
	if m.AppendCashFunc != nil {
		return m.AppendCashFunc(ctx, tx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cash = append(m.Cash, e)
	return nil
}

func (m *MockLedgerRepo) AppendCredits(_ context.Context, _ repository.Tx, e *model.CreditsLedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Credits = append(m.Credits, e)
	return nil
}

func (m *MockLedgerRepo) ListCashByTransaction(_ context.Context, _ repository.Tx, transactionID string) ([]*model.CashLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.CashLedgerEntry
	for _, e := range m.Cash {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

//
// -------------------- referral repo --------------------
//

type MockReferralRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Referral
}

func NewMockReferralRepo() *MockReferralRepo {
	return &MockReferralRepo{rows: make(map[string]*model.Referral)}
}

func (m *MockReferralRepo) Save(_ context.Context, _ repository.Tx, r *model.Referral) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.rows {
		if other.ReferredID == r.ReferredID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *r
	m.rows[r.ID] = &cp
	return nil
}

func (m *MockReferralRepo) FindByReferred(_ context.Context, _ repository.Tx, referredID string) (*model.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ReferredID == referredID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockReferralRepo) ListByReferrer(_ context.Context, _ repository.Tx, referrerID string) ([]*model.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Referral
	for _, r := range m.rows {
		if r.ReferrerID == referrerID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockReferralRepo) AddCommission(_ context.Context, _ repository.Tx, id string, amount float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.TotalCommissionEarned += amount
	r.LastCommissionDate = &at
	return nil
}

//
// -------------------- raffle repo --------------------
//

type MockRaffleRepo struct {
	mu      sync.Mutex
	raffles map[string]*model.Raffle
	entries []*model.RaffleEntry

	// ForceCollisions makes the next N SaveEntry calls fail as taken numbers.
	ForceCollisions int
}

func NewMockRaffleRepo() *MockRaffleRepo {
	return &MockRaffleRepo{raffles: make(map[string]*model.Raffle)}
}

func (m *MockRaffleRepo) Save(_ context.Context, _ repository.Tx, r *model.Raffle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.raffles {
		if other.ID != r.ID && other.Month == r.Month {
			return domain.ErrAlreadyExists
		}
	}
	cp := *r
	m.raffles[r.ID] = &cp
	return nil
}

func (m *MockRaffleRepo) FindActiveByMonth(_ context.Context, _ repository.Tx, month string) (*model.Raffle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.raffles {
		if r.Month == month && r.Status == model.RaffleStatusActive {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockRaffleRepo) SaveEntry(_ context.Context, _ repository.Tx, e *model.RaffleEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceCollisions > 0 {
		m.ForceCollisions--
		return domain.ErrAlreadyExists
	}
	for _, other := range m.entries {
		if other.RaffleID == e.RaffleID && other.LuckyNumber == e.LuckyNumber {
			return domain.ErrAlreadyExists
		}
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *MockRaffleRepo) ListEntriesByUser(_ context.Context, _ repository.Tx, raffleID, userID string) ([]*model.RaffleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.RaffleEntry
	for _, e := range m.entries {
		if e.RaffleID == raffleID && e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockRaffleRepo) CountEntries(_ context.Context, _ repository.Tx, raffleID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.RaffleID == raffleID {
			n++
		}
	}
	return n, nil
}

//
// -------------------- recharge option repo --------------------
//

type MockRechargeOptionRepo struct {
	mu   sync.Mutex
	rows map[string]*model.RechargeOption
}

func NewMockRechargeOptionRepo() *MockRechargeOptionRepo {
	return &MockRechargeOptionRepo{rows: make(map[string]*model.RechargeOption)}
}

func (m *MockRechargeOptionRepo) Save(_ context.Context, _ repository.Tx, o *model.RechargeOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.rows[o.ID] = &cp
	return nil
}

func (m *MockRechargeOptionRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.RechargeOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockRechargeOptionRepo) ListActiveByPlanType(_ context.Context, _ repository.Tx, planType string) ([]*model.RechargeOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.RechargeOption
	for _, o := range m.rows {
		if o.PlanType == planType && o.Active {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

//
// -------------------- tx manager, provider, locker --------------------
//

type MockTxManager struct{}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

type MockPaymentProvider struct {
	mu       sync.Mutex
	Payment  *adapter.Payment
	Pref     *adapter.Preference
	Err      error
	GetCalls int

	LastPreferenceReq adapter.PreferenceRequest
}

func (p *MockPaymentProvider) Name() string { return "mock" }

func (p *MockPaymentProvider) CreatePreference(_ context.Context, req adapter.PreferenceRequest) (*adapter.Preference, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.LastPreferenceReq = req
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Pref != nil {
		return p.Pref, nil
	}
	return &adapter.Preference{ID: "pref-1", InitPoint: "https://mp/init"}, nil
}

func (p *MockPaymentProvider) GetPayment(_ context.Context, id string) (*adapter.Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GetCalls++
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Payment, nil
}

type MockLocker struct{}

func (l *MockLocker) TryLock(_ context.Context, _ string, _ time.Duration) (string, error) {
	return "token", nil
}

func (l *MockLocker) Unlock(_ context.Context, _, _ string) error { return nil }
