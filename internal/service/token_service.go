package service

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fastship-next/internal/constants"

	"github.com/golang-jwt/jwt/v5"
)

// PurposeClaims 一次性用途令牌声明（评价邀请、邮箱验证）
type PurposeClaims struct {
	Purpose string `json:"purpose"`
	Role    string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenService 签发与校验带用途的签名令牌
type TokenService struct {
	secret []byte
	domain string
	now    func() time.Time
}

// NewTokenService 创建令牌服务
func NewTokenService(secret, domain string) *TokenService {
	return &TokenService{secret: []byte(secret), domain: strings.TrimSpace(domain), now: time.Now}
}

// Issue 签发令牌，subject 为运单或账号 ID
func (s *TokenService) Issue(purpose, role, subject string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)
	claims := PurposeClaims{
		Purpose: purpose,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse 校验签名、有效期与用途
func (s *TokenService) Parse(tokenString, purpose string) (*PurposeClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	token, err := parser.ParseWithClaims(strings.TrimSpace(tokenString), &PurposeClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*PurposeClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Purpose != purpose || claims.Subject == "" {
		return nil, fmt.Errorf("unexpected token purpose %q", claims.Purpose)
	}
	return claims, nil
}

// IssueReviewToken 签发评价邀请令牌并返回评价链接
func (s *TokenService) IssueReviewToken(shipmentID string, ttl time.Duration) (string, string, error) {
	token, _, err := s.Issue(constants.TokenPurposeReview, "", shipmentID, ttl)
	if err != nil {
		return "", "", err
	}
	return token, s.buildURL("/shipment/review", token), nil
}

// ParseReviewToken 解析评价令牌得到运单 ID
func (s *TokenService) ParseReviewToken(token string) (string, error) {
	claims, err := s.Parse(token, constants.TokenPurposeReview)
	if err != nil {
		return "", ErrInvalidReviewToken
	}
	return claims.Subject, nil
}

// IssueEmailVerifyToken 签发邮箱验证令牌并返回验证链接
func (s *TokenService) IssueEmailVerifyToken(role, accountID string, ttl time.Duration) (string, string, error) {
	token, _, err := s.Issue(constants.TokenPurposeEmailVerify, role, accountID, ttl)
	if err != nil {
		return "", "", err
	}
	return token, s.buildURL(fmt.Sprintf("/api/v1/%s/verify", role), token), nil
}

// ParseEmailVerifyToken 解析邮箱验证令牌，校验角色
func (s *TokenService) ParseEmailVerifyToken(token, role string) (string, error) {
	claims, err := s.Parse(token, constants.TokenPurposeEmailVerify)
	if err != nil || claims.Role != role {
		return "", ErrInvalidVerifyToken
	}
	return claims.Subject, nil
}

func (s *TokenService) buildURL(path, token string) string {
	domain := s.domain
	if domain == "" {
		domain = "localhost:8080"
	}
	return fmt.Sprintf("http://%s%s?token=%s", domain, path, url.QueryEscape(token))
}
