package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"iptv-client-portal/internal/config"
	"iptv-client-portal/internal/infra/logging"
	"iptv-client-portal/internal/usecase"
	"iptv-client-portal/internal/validate"
)

type Server struct {
	cfg        *config.Config
	userUC     usecase.UserUseCase
	subUC      usecase.SubscriptionUseCase
	paymentUC  usecase.PaymentUseCase
	webhookUC  usecase.WebhookUseCase
	referralUC usecase.ReferralUseCase
	raffleUC   usecase.RaffleUseCase
	tokens     *TokenIssuer
	validate   *validator.Validate
	log        *zerolog.Logger
	server     *http.Server
}

func NewServer(
	cfg *config.Config,
	userUC usecase.UserUseCase,
	subUC usecase.SubscriptionUseCase,
	paymentUC usecase.PaymentUseCase,
	webhookUC usecase.WebhookUseCase,
	referralUC usecase.ReferralUseCase,
	raffleUC usecase.RaffleUseCase,
	tokens *TokenIssuer,
	log *zerolog.Logger,
) *Server {
	v := validator.New()
	_ = v.RegisterValidation("cpf", func(fl validator.FieldLevel) bool {
		return validate.IsCPF(fl.Field().String())
	})
	_ = v.RegisterValidation("brphone", func(fl validator.FieldLevel) bool {
		return validate.IsBRPhone(fl.Field().String())
	})
	return &Server{
		cfg:        cfg,
		userUC:     userUC,
		subUC:      subUC,
		paymentUC:  paymentUC,
		webhookUC:  webhookUC,
		referralUC: referralUC,
		raffleUC:   raffleUC,
		tokens:     tokens,
		validate:   v,
		log:        log,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.traceMiddleware)
	r.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// The processor calls this unauthenticated; identity comes from the
	// payment fetch, never from the request body.
	r.Post("/api/webhook/mercadopago", s.handleWebhook)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/me", s.handleMe)
			r.Put("/me", s.handleUpdateProfile)
			r.Get("/subscriptions", s.handleListSubscriptions)
			r.Get("/transactions", s.handleListTransactions)
			r.Get("/recharge/options", s.handleRechargeOptions)
			r.Post("/recharge", s.handleInitiateRecharge)
			r.Post("/payments/preference", s.handleCreatePreference)
			r.Get("/referrals", s.handleReferralSummary)
			r.Post("/referrals/payout", s.handleRequestPayout)
			r.Get("/raffle/entries", s.handleRaffleEntries)
		})
	})
	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: s.Router(),
	}
	s.log.Info().Int("port", s.cfg.Server.Port).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// traceMiddleware tags each request with a trace id and logs completion.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Request-Id")
		if traceID == "" {
			traceID = uuid.NewString()
		}
		ctx := logging.WithTraceID(r.Context(), traceID)
		w.Header().Set("X-Request-Id", traceID)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}
