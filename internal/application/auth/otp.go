package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"daloamarket-backend/internal/application/emails"
	"daloamarket-backend/internal/domain"
	"daloamarket-backend/internal/pkg/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpPrefix        = "otp:"
	otpAttemptPrefix = "otp_attempts:"
	otpTTL           = 10 * time.Minute
	otpMaxAttempts   = 5
)

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// RequestCode emails a one-time login code. Only its bcrypt hash is kept in Redis.
func (s *Service) RequestCode(ctx context.Context, email string) error {
	email = validation.NormalizeEmail(email)
	if !validation.IsValidEmail(email) {
		return ErrInvalidEmail
	}
	u, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u.Banned {
		return ErrBanned
	}
	if s.Emails == nil {
		return emails.ErrNotConfigured
	}

	gen := s.genCode
	if gen == nil {
		gen = randomCode
	}
	code, err := gen()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
	if err != nil {
		return err
	}
	pipe := s.Rdb.TxPipeline()
	pipe.Set(ctx, otpPrefix+email, hash, otpTTL)
	pipe.Del(ctx, otpAttemptPrefix+email)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	_, err = s.Emails.Send(ctx, emails.Message{
		To:      []string{email},
		Subject: emails.LoginCodeSubject,
		HTML:    emails.LoginCodeHTML(code, int(otpTTL.Minutes())),
		Tags:    []emails.Tag{{Name: "category", Value: "login_code"}},
	})
	return err
}

// VerifyCode consumes a valid code. After otpMaxAttempts failures the code is locked.
func (s *Service) VerifyCode(ctx context.Context, email, code string) (*domain.User, error) {
	email = validation.NormalizeEmail(email)
	if !validation.IsValidCode(code) {
		return nil, ErrInvalidCode
	}
	hash, err := s.Rdb.Get(ctx, otpPrefix+email).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrInvalidCode
	}
	if err != nil {
		return nil, err
	}
	// counted before the compare: concurrent guesses never exceed otpMaxAttempts
	pipe := s.Rdb.TxPipeline()
	attempts := pipe.Incr(ctx, otpAttemptPrefix+email)
	pipe.Expire(ctx, otpAttemptPrefix+email, otpTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	if attempts.Val() > otpMaxAttempts {
		return nil, ErrTooManyAttempts
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(code)) != nil {
		return nil, ErrInvalidCode
	}
	s.Rdb.Del(ctx, otpPrefix+email, otpAttemptPrefix+email)

	u, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u.Banned {
		return nil, ErrBanned
	}
	return u, nil
}
