package web_test

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"iptv-client-portal/internal/config"
	"iptv-client-portal/internal/domain/model"
	"iptv-client-portal/internal/infra/web"
	"iptv-client-portal/internal/usecase"
)

func newTestLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Port = 0
	cfg.Server.RequestTimeout = 5 * time.Second
	return cfg
}

func newTestServer(deps serverDeps) (*web.Server, *web.TokenIssuer) {
	tokens := web.NewTokenIssuer("test-secret", time.Hour)
	srv := web.NewServer(testConfig(), deps.user, deps.sub, deps.payment, deps.webhook, deps.referral, deps.raffle, tokens, newTestLogger())
	return srv, tokens
}

type serverDeps struct {
	user     usecase.UserUseCase
	sub      usecase.SubscriptionUseCase
	payment  usecase.PaymentUseCase
	webhook  usecase.WebhookUseCase
	referral usecase.ReferralUseCase
	raffle   usecase.RaffleUseCase
}

//
// -------------------- stub use cases --------------------
//

type stubWebhookUC struct {
	Result    *usecase.WebhookResult
	Err       error
	LastType  string
	LastID    string
	CallCount int
}

func (s *stubWebhookUC) ProcessNotification(_ context.Context, eventType, paymentID string) (*usecase.WebhookResult, error) {
	s.CallCount++
	s.LastType = eventType
	s.LastID = paymentID
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Result, nil
}

func (s *stubWebhookUC) Reconcile(_ context.Context, _ string) (*usecase.WebhookResult, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Result, nil
}

type stubUserUC struct {
	User *model.User
	Err  error
}

func (s *stubUserUC) Signup(_ context.Context, _ usecase.SignupInput) (*model.User, error) {
	return s.User, s.Err
}

func (s *stubUserUC) Login(_ context.Context, _, _ string) (*model.User, error) {
	return s.User, s.Err
}

func (s *stubUserUC) Get(_ context.Context, _ string) (*model.User, error) {
	return s.User, s.Err
}

func (s *stubUserUC) UpdateProfile(_ context.Context, _, _, _, _ string) (*model.User, error) {
	return s.User, s.Err
}

type stubSubUC struct {
	Subs []*model.Subscription
	Err  error
}

func (s *stubSubUC) List(_ context.Context, _ string) ([]*model.Subscription, error) {
	return s.Subs, s.Err
}

func (s *stubSubUC) ExtendAllActive(_ context.Context, _ string, _ int) (int, error) {
	return len(s.Subs), s.Err
}

func (s *stubSubUC) FinishExpired(_ context.Context) (int, error) { return 0, s.Err }
