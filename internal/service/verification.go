package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

// VerificationCodeStore 签收验证码存储（带过期）
type VerificationCodeStore interface {
	Put(ctx context.Context, shipmentID, code string, ttl time.Duration) error
	Get(ctx context.Context, shipmentID string) (string, bool, error)
}

// CodeGenerator 生成签收验证码
type CodeGenerator func() (string, error)

var codeSpan = big.NewInt(900000)

// GenerateVerificationCode 生成 6 位数字验证码（100000-999999）
func GenerateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// checkVerificationCode 比对提交的验证码与已存储的验证码
func checkVerificationCode(ctx context.Context, store VerificationCodeStore, shipmentID, supplied string) error {
	stored, ok, err := store.Get(ctx, shipmentID)
	if err != nil {
		return err
	}
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) != 1 {
		return ErrInvalidVerificationCode
	}
	return nil
}
