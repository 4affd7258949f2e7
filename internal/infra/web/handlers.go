package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"iptv-client-portal/internal/domain"
	"iptv-client-portal/internal/domain/model"
	"iptv-client-portal/internal/usecase"
)

type signupRequest struct {
	FullName     string `json:"full_name" validate:"required,min=3"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	Phone        string `json:"phone" validate:"omitempty,brphone"`
	CPF          string `json:"cpf" validate:"omitempty,cpf"`
	ReferralCode string `json:"referral_code" validate:"omitempty,alphanum,len=8"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !s.decode(w, r, &req) {
		return
	}
	user, err := s.userUC.Signup(r.Context(), usecase.SignupInput{
		FullName:     req.FullName,
		Email:        req.Email,
		Password:     req.Password,
		Phone:        req.Phone,
		CPF:          req.CPF,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		s.fail(w, r, err)
		return
	}
	token, err := s.tokens.Mint(user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"token":   token,
		"user":    userView(user),
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}
	user, err := s.userUC.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.fail(w, r, err)
		return
	}
	token, err := s.tokens.Mint(user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
		"user":    userView(user),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.userUC.Get(r.Context(), authUserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": userView(user)})
}

type updateProfileRequest struct {
	FullName string `json:"full_name" validate:"omitempty,min=3"`
	Phone    string `json:"phone" validate:"omitempty,brphone"`
	CPF      string `json:"cpf" validate:"omitempty,cpf"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !s.decode(w, r, &req) {
		return
	}
	user, err := s.userUC.UpdateProfile(r.Context(), authUserID(r.Context()), req.FullName, req.Phone, req.CPF)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": userView(user)})
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subUC.List(r.Context(), authUserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(subs))
	for _, sub := range subs {
		out = append(out, subscriptionView(sub))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "subscriptions": out})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txs, err := s.paymentUC.ListTransactions(r.Context(), authUserID(r.Context()), offset, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionView(t))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "transactions": out})
}

func (s *Server) handleRechargeOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.paymentUC.ListRechargeOptions(r.Context(), authUserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(opts))
	for _, o := range opts {
		out = append(out, map[string]interface{}{
			"id":            o.ID,
			"plan_type":     o.PlanType,
			"period":        o.Period,
			"duration_days": o.DurationDays,
			"price":         o.Price,
			"display_name":  o.DisplayName,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "options": out})
}

type initiateRechargeRequest struct {
	OptionID      string `json:"option_id" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=pix credit_card boleto"`
}

func (s *Server) handleInitiateRecharge(w http.ResponseWriter, r *http.Request) {
	var req initiateRechargeRequest
	if !s.decode(w, r, &req) {
		return
	}
	t, err := s.paymentUC.InitiateRecharge(r.Context(), authUserID(r.Context()), req.OptionID, req.PaymentMethod)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "transaction": transactionView(t)})
}

type createPreferenceRequest struct {
	TransactionID string  `json:"transaction_id" validate:"required,uuid4"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
}

func (s *Server) handleCreatePreference(w http.ResponseWriter, r *http.Request) {
	var req createPreferenceRequest
	if !s.decode(w, r, &req) {
		return
	}
	pref, err := s.paymentUC.CreatePreference(r.Context(), authUserID(r.Context()), req.TransactionID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAmountMismatch):
			writeError(w, http.StatusBadRequest, "amount does not match transaction")
		case errors.Is(err, domain.ErrTransactionNotOpen):
			writeError(w, http.StatusConflict, "transaction is not pending")
		default:
			s.fail(w, r, err)
		}
		return
	}
	initPoint := pref.InitPoint
	if s.cfg.Payment.MercadoPago.Sandbox && pref.SandboxInitPoint != "" {
		initPoint = pref.SandboxInitPoint
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"preference_id": pref.ID,
		"init_point":    initPoint,
	})
}

func (s *Server) handleReferralSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.referralUC.Summary(r.Context(), authUserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":           true,
		"referral_code":     summary.ReferralCode,
		"referred_count":    summary.ReferredCount,
		"total_earned":      summary.TotalEarned,
		"redeemable":        summary.Redeemable,
		"min_payout_amount": summary.MinPayoutAmount,
	})
}

type payoutRequest struct {
	Method string `json:"method" validate:"required,oneof=pix credit"`
	PixKey string `json:"pix_key" validate:"required_if=Method pix"`
}

func (s *Server) handleRequestPayout(w http.ResponseWriter, r *http.Request) {
	var req payoutRequest
	if !s.decode(w, r, &req) {
		return
	}
	t, err := s.referralUC.RequestPayout(r.Context(), authUserID(r.Context()), req.Method, req.PixKey)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInsufficientBalance):
			writeError(w, http.StatusUnprocessableEntity, "insufficient commission balance")
		case errors.Is(err, domain.ErrNoActiveSubscription):
			writeError(w, http.StatusUnprocessableEntity, "no active subscription to credit")
		default:
			s.fail(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "transaction": transactionView(t)})
}

func (s *Server) handleRaffleEntries(w http.ResponseWriter, r *http.Request) {
	raffle, entries, err := s.raffleUC.MyEntries(r.Context(), authUserID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := map[string]interface{}{"success": true}
	if raffle != nil {
		resp["raffle"] = map[string]interface{}{
			"id":           raffle.ID,
			"month":        raffle.Month,
			"prize_amount": raffle.PrizeAmount,
			"status":       raffle.Status,
		}
	}
	numbers := make([]int, 0, len(entries))
	for _, e := range entries {
		numbers = append(numbers, e.LuckyNumber)
	}
	resp["lucky_numbers"] = numbers
	writeJSON(w, http.StatusOK, resp)
}

// decode reads and validates a JSON body, replying 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed json body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return false
	}
	return true
}

// fail maps domain sentinels onto status codes and hides everything else
// behind a 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, domain.ErrNoActiveSubscription):
		writeError(w, http.StatusUnprocessableEntity, "no active subscription")
	case errors.Is(err, domain.ErrUpstreamFetch):
		writeError(w, http.StatusBadGateway, "payment processor unavailable")
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func userView(u *model.User) map[string]interface{} {
	return map[string]interface{}{
		"id":               u.ID,
		"full_name":        u.FullName,
		"email":            u.Email,
		"phone":            u.Phone,
		"cpf":              u.CPF,
		"referral_code":    u.ReferralCode,
		"total_commission": u.TotalCommission,
		"created_at":       u.CreatedAt.Format(time.RFC3339),
	}
}

func subscriptionView(s *model.Subscription) map[string]interface{} {
	return map[string]interface{}{
		"id":              s.ID,
		"plan_type":       s.PlanType,
		"app_username":    s.AppUsername,
		"panel_name":      s.PanelName,
		"status":          s.Status,
		"expiration_date": s.ExpirationDate.Format(time.RFC3339),
		"monthly_value":   s.MonthlyValue,
	}
}

func transactionView(t *model.Transaction) map[string]interface{} {
	return map[string]interface{}{
		"id":             t.ID,
		"type":           t.Type,
		"amount":         t.Amount,
		"payment_method": t.PaymentMethod,
		"status":         t.Status,
		"description":    t.Description,
		"created_at":     t.CreatedAt.Format(time.RFC3339),
	}
}
