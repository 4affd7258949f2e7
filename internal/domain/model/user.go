package model

import (
	"crypto/rand"
	"math/big"
	"time"

	"iptv-client-portal/internal/domain"

	"github.com/google/uuid"
)

// User is a portal account holder.
type User struct {
	ID              string
	FullName        string
	Email           string
	Phone           string
	CPF             string
	BirthDate       *time.Time
	PasswordHash    string
	ReferralCode    string  // short code this user shares with others
	ReferredBy      *string // user id of the referrer, set at signup
	TotalCommission float64 // redeemable commission balance in BRL
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewUser(fullName, email, passwordHash string) (*User, error) {
	if fullName == "" || email == "" || passwordHash == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		ID:           uuid.NewString(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: passwordHash,
		ReferralCode: GenerateReferralCode(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

const referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateReferralCode returns an 8-character code from an alphabet without
// ambiguous characters. Uniqueness is enforced by the users table; callers
// retry on conflict.
func GenerateReferralCode() string {
	b := make([]byte, 8)
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			b[i] = referralCodeAlphabet[i*7%len(referralCodeAlphabet)]
			continue
		}
		b[i] = referralCodeAlphabet[n.Int64()]
	}
	return string(b)
}
