package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const otpKeyPrefix = "cashier_otp:"

// OTPService issues short-lived numeric codes that bind a merchant's
// collection request to the cashier session that will verify it.
type OTPService struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewOTPService(rdb *redis.Client, ttl time.Duration) *OTPService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &OTPService{rdb: rdb, ttl: ttl}
}

// Issue generates a 6-digit code for the cashier and stores it with a TTL.
// Re-issuing replaces any previous code held by the same value space.
func (s *OTPService) Issue(ctx context.Context, cashierID uuid.UUID) (string, error) {
	code, err := generateOTP()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	if err := s.rdb.Set(ctx, otpKeyPrefix+code, cashierID.String(), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// Resolve consumes a code and returns the cashier it belongs to. Codes are
// single-use: GETDEL removes the key atomically.
func (s *OTPService) Resolve(ctx context.Context, code string) (uuid.UUID, error) {
	val, err := s.rdb.GetDel(ctx, otpKeyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrInvalidOTP
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve otp: %w", err)
	}
	cashierID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, ErrInvalidOTP
	}
	return cashierID, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
