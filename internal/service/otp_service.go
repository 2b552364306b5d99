package service

import (
	"context"
	"crypto/rand"
	"edu_platform_backend/internal/config"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// OTP 用途
const (
	OTPPurposeRegister = "register"
	OTPPurposeReset    = "reset"
)

var errOTPMissing = errors.New("otp not found")

// OTPStore 验证码存储
type OTPStore interface {
	Save(ctx context.Context, key, code string, ttl time.Duration) error
	// Take 取出并删除，保证验证码只能使用一次
	Take(ctx context.Context, key string) (string, error)
}

type RedisOTPStore struct {
	client *redis.Client
}

func NewRedisOTPStore(client *redis.Client) *RedisOTPStore {
	return &RedisOTPStore{client: client}
}

func (s *RedisOTPStore) Save(ctx context.Context, key, code string, ttl time.Duration) error {
	return s.client.Set(ctx, key, code, ttl).Err()
}

func (s *RedisOTPStore) Take(ctx context.Context, key string) (string, error) {
	code, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", errOTPMissing
	}
	return code, err
}

type OTPService struct {
	store  OTPStore
	mailer Mailer
	cfg    config.OTPConfig
	logger *zap.Logger
}

func NewOTPService(store OTPStore, mailer Mailer, cfg config.OTPConfig, logger *zap.Logger) *OTPService {
	return &OTPService{store: store, mailer: mailer, cfg: cfg, logger: logger}
}

func otpKey(purpose, email string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, strings.ToLower(email))
}

func (s *OTPService) Send(ctx context.Context, purpose, email string) error {
	code, err := generateOTP(s.cfg.Length)
	if err != nil {
		return err
	}

	if err := s.store.Save(ctx, otpKey(purpose, email), code, s.cfg.TTLMinutes); err != nil {
		return err
	}

	minutes := int(s.cfg.TTLMinutes / time.Minute)
	msg := EmailMessage{
		ToAddress:   email,
		Subject:     "Your verification code",
		TextContent: fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("Failed to send OTP email", zap.String("email", email), zap.Error(err))
		return err
	}
	return nil
}

// Verify 校验并消费验证码
func (s *OTPService) Verify(ctx context.Context, purpose, email, code string) (bool, error) {
	stored, err := s.store.Take(ctx, otpKey(purpose, email))
	if errors.Is(err, errOTPMissing) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored == code, nil
}

func generateOTP(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
