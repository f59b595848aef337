package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/fastship-next/internal/cache"
	"github.com/fastship-next/internal/config"
	"github.com/fastship-next/internal/constants"
	"github.com/fastship-next/internal/logger"
	"github.com/fastship-next/internal/models"
	"github.com/fastship-next/internal/queue"
	"github.com/fastship-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AccessClaims 卖家/配送员访问令牌声明
type AccessClaims struct {
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// SellerSignupInput 卖家注册
type SellerSignupInput struct {
	Name     string
	Email    string
	Password string
	Address  string
	ZipCode  uint
}

// PartnerSignupInput 配送员注册
type PartnerSignupInput struct {
	Name                string
	Email               string
	Password            string
	MaxHandlingCapacity int
	ZipCodes            []uint
}

// LoginResult 登录结果
type LoginResult struct {
	Token     string          `json:"access_token"`
	TokenType string          `json:"token_type"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   models.Identity `json:"-"`
}

// AuthService 卖家与配送员账号认证
type AuthService struct {
	db           *gorm.DB
	cfg          *config.Config
	sellerRepo   repository.SellerRepository
	partnerRepo  repository.PartnerRepository
	locationRepo repository.LocationRepository
	tokens       *TokenService
	blacklist    *cache.TokenBlacklist
	dispatcher   NotificationDispatcher
	bcryptCost   int
	now          func() time.Time
}

// NewAuthService 创建认证服务
func NewAuthService(
	db *gorm.DB,
	cfg *config.Config,
	sellerRepo repository.SellerRepository,
	partnerRepo repository.PartnerRepository,
	locationRepo repository.LocationRepository,
	tokens *TokenService,
	blacklist *cache.TokenBlacklist,
	dispatcher NotificationDispatcher,
) *AuthService {
	return &AuthService{
		db:           db,
		cfg:          cfg,
		sellerRepo:   sellerRepo,
		partnerRepo:  partnerRepo,
		locationRepo: locationRepo,
		tokens:       tokens,
		blacklist:    blacklist,
		dispatcher:   dispatcher,
		bcryptCost:   bcrypt.DefaultCost,
		now:          time.Now,
	}
}

// HashPassword 使用 bcrypt 加密密码
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *AuthService) validateAccount(name, email, password string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrNameRequired
	}
	normalized := strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(normalized); err != nil || normalized == "" {
		return "", ErrInvalidAccountEmail
	}
	minLen := s.cfg.Security.MinPasswordLen
	if minLen <= 0 {
		minLen = 8
	}
	if len([]rune(password)) < minLen {
		return "", ErrWeakPassword
	}
	return normalized, nil
}

// SignupSeller 卖家注册并发送邮箱验证链接
func (s *AuthService) SignupSeller(ctx context.Context, input SellerSignupInput) (*models.Seller, error) {
	email, err := s.validateAccount(input.Name, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	existing, err := s.sellerRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hash, err := s.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	seller := &models.Seller{
		Account: models.Account{
			Name:         strings.TrimSpace(input.Name),
			Email:        email,
			PasswordHash: hash,
		},
		Address: strings.TrimSpace(input.Address),
		ZipCode: input.ZipCode,
	}
	if err := s.sellerRepo.Create(seller); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, err
	}
	logger.Infow("seller_signed_up", "seller_id", seller.ID)
	s.sendVerifyEmail(ctx, seller)
	return seller, nil
}

// SignupPartner 配送员注册，同时登记可配送邮编
func (s *AuthService) SignupPartner(ctx context.Context, input PartnerSignupInput) (*models.DeliveryPartner, error) {
	email, err := s.validateAccount(input.Name, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	if input.MaxHandlingCapacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if err := validateZipCodes(input.ZipCodes); err != nil {
		return nil, err
	}
	existing, err := s.partnerRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hash, err := s.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	partner := &models.DeliveryPartner{
		Account: models.Account{
			Name:         strings.TrimSpace(input.Name),
			Email:        email,
			PasswordHash: hash,
		},
		MaxHandlingCapacity: input.MaxHandlingCapacity,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		partnerRepo := s.partnerRepo.WithTx(tx)
		if err := partnerRepo.Create(partner); err != nil {
			if repository.IsDuplicateKey(err) {
				return ErrEmailAlreadyRegistered
			}
			return err
		}
		return replaceLocations(tx, partnerRepo, s.locationRepo, partner, input.ZipCodes)
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("partner_signed_up", "partner_id", partner.ID, "zip_codes", len(partner.ServiceableLocations))
	s.sendVerifyEmail(ctx, partner)
	return partner, nil
}

// Login 邮箱密码登录，返回访问令牌
func (s *AuthService) Login(role, email, password string) (*LoginResult, error) {
	account, err := s.findByEmail(role, email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Profile().PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	token, expiresAt, err := s.issueAccessToken(account)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, TokenType: "bearer", ExpiresAt: expiresAt, Account: account}, nil
}

func (s *AuthService) findByEmail(role, email string) (models.Identity, error) {
	switch role {
	case constants.RoleSeller:
		seller, err := s.sellerRepo.GetByEmail(email)
		if err != nil || seller == nil {
			return nil, err
		}
		return seller, nil
	case constants.RolePartner:
		partner, err := s.partnerRepo.GetByEmail(email)
		if err != nil || partner == nil {
			return nil, err
		}
		return partner, nil
	default:
		return nil, fmt.Errorf("unknown account role %q", role)
	}
}

func (s *AuthService) issueAccessToken(account models.Identity) (string, time.Time, error) {
	hours := s.cfg.JWT.ExpireHours
	if hours <= 0 {
		hours = 24
	}
	now := s.now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	claims := AccessClaims{
		AccountID: account.AccountID(),
		Role:      account.AccountRole(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   account.AccountID(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseAccessToken 解析访问令牌并检查是否已注销
func (s *AuthService) ParseAccessToken(ctx context.Context, tokenString string) (*AccessClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	claims := &AccessClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.AccountID == "" {
		return nil, errors.New("invalid access token")
	}
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, errors.New("access token revoked")
	}
	return claims, nil
}

// Logout 注销令牌，黑名单保留到令牌过期
func (s *AuthService) Logout(ctx context.Context, claims *AccessClaims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if err := s.blacklist.Revoke(ctx, claims.ID, ttl); err != nil {
		return err
	}
	logger.Infow("account_logged_out", "account_id", claims.AccountID, "role", claims.Role)
	return nil
}

// Me 获取当前账号
func (s *AuthService) Me(role, accountID string) (models.Identity, error) {
	switch role {
	case constants.RoleSeller:
		seller, err := s.sellerRepo.GetByID(accountID)
		if err != nil {
			return nil, err
		}
		if seller == nil {
			return nil, ErrSellerNotFound
		}
		return seller, nil
	case constants.RolePartner:
		partner, err := s.partnerRepo.GetByID(accountID)
		if err != nil {
			return nil, err
		}
		if partner == nil {
			return nil, ErrPartnerNotFound
		}
		return partner, nil
	default:
		return nil, fmt.Errorf("unknown account role %q", role)
	}
}

// VerifyEmail 校验邮箱验证令牌并标记已验证
func (s *AuthService) VerifyEmail(role, token string) error {
	accountID, err := s.tokens.ParseEmailVerifyToken(token, role)
	if err != nil {
		return err
	}
	account, err := s.Me(role, accountID)
	if err != nil {
		return err
	}
	switch role {
	case constants.RoleSeller:
		err = s.sellerRepo.MarkEmailVerified(account.AccountID())
	case constants.RolePartner:
		err = s.partnerRepo.MarkEmailVerified(account.AccountID())
	}
	if err != nil {
		return err
	}
	logger.Infow("account_email_verified", "account_id", accountID, "role", role)
	return nil
}

func (s *AuthService) sendVerifyEmail(ctx context.Context, account models.Identity) {
	ttl := time.Duration(s.cfg.Email.VerifyTokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	_, link, err := s.tokens.IssueEmailVerifyToken(account.AccountRole(), account.AccountID(), ttl)
	if err != nil {
		logger.Warnw("account_verify_token_failed", "account_id", account.AccountID(), "error", err)
		return
	}
	profile := account.Profile()
	box := &outbox{}
	box.addEmail(EmailMessage{
		TaskType:   queue.TaskAccountVerifyEmail,
		Recipients: []string{profile.Email},
		Subject:    "Verify Your Email",
		Body:       fmt.Sprintf("Hi %s,\n\nConfirm your email address to finish setting up your FastShip account:\n%s", profile.Name, link),
		Context:    map[string]string{"username": profile.Name, "url": link},
	})
	box.flush(ctx, s.dispatcher, nil, "")
}
