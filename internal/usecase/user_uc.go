package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"iptv-client-portal/internal/domain"
	"iptv-client-portal/internal/domain/model"
	"iptv-client-portal/internal/domain/ports/repository"
	"iptv-client-portal/internal/infra/logging"
)

// SignupInput carries the signup form. Validation of shapes (email, CPF,
// phone) happens at the HTTP boundary; this layer enforces business rules.
type SignupInput struct {
	FullName     string
	Email        string
	Password     string
	Phone        string
	CPF          string
	ReferralCode string
}

var _ UserUseCase = (*userUC)(nil)

type UserUseCase interface {
	Signup(ctx context.Context, in SignupInput) (*model.User, error)
	// Login checks the credentials and returns the account. Wrong email and
	// wrong password are indistinguishable to the caller.
	Login(ctx context.Context, email, password string) (*model.User, error)
	Get(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID, fullName, phone, cpf string) (*model.User, error)
}

type userUC struct {
	users     repository.UserRepository
	referrals ReferralUseCase
	log       *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, referrals ReferralUseCase, log *zerolog.Logger) *userUC {
	return &userUC{users: users, referrals: referrals, log: log}
}

func (u *userUC) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := u.users.FindByEmail(ctx, repository.NoTX, email); err == nil {
		return nil, domain.ErrAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	user, err := model.NewUser(in.FullName, email, string(hash))
	if err != nil {
		return nil, err
	}
	user.Phone = in.Phone
	user.CPF = in.CPF

	// The referral code has a unique index; a collision gets a fresh code.
	for i := 0; i < 3; i++ {
		err = u.users.Save(ctx, repository.NoTX, user)
		if !errors.Is(err, domain.ErrAlreadyExists) {
			break
		}
		user.ReferralCode = model.GenerateReferralCode()
	}
	if err != nil {
		return nil, err
	}

	if u.referrals != nil && in.ReferralCode != "" {
		if err := u.referrals.RegisterReferral(ctx, user.ID, strings.ToUpper(strings.TrimSpace(in.ReferralCode))); err != nil {
			logging.With(ctx, u.log).Error().Err(err).Str("user_id", user.ID).Msg("register referral at signup")
		}
	}
	logging.With(ctx, u.log).Info().Str("user_id", user.ID).Msg("user signed up")
	return user, nil
}

func (u *userUC) Login(ctx context.Context, email, password string) (*model.User, error) {
	user, err := u.users.FindByEmail(ctx, repository.NoTX, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (u *userUC) Get(ctx context.Context, userID string) (*model.User, error) {
	return u.users.FindByID(ctx, repository.NoTX, userID)
}

func (u *userUC) UpdateProfile(ctx context.Context, userID, fullName, phone, cpf string) (*model.User, error) {
	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	if fullName != "" {
		user.FullName = fullName
	}
	if phone != "" {
		user.Phone = phone
	}
	if cpf != "" {
		user.CPF = cpf
	}
	user.UpdatedAt = nowFunc()
	if err := u.users.UpdateProfile(ctx, repository.NoTX, user); err != nil {
		return nil, err
	}
	return user, nil
}
