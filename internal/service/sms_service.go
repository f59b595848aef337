package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fastship-next/internal/config"

	"github.com/valyala/fasthttp"
)

var (
	ErrSMSServiceDisabled = errors.New("sms service disabled")
	ErrInvalidPhone       = errors.New("invalid phone number")
)

const defaultSMSTimeout = 5 * time.Second

// SMSService 短信网关客户端
type SMSService struct {
	cfg     *config.SMSConfig
	client  *fasthttp.Client
	timeout time.Duration
}

type smsSendRequest struct {
	MessageID   string `json:"message_id,omitempty"`
	PhoneNumber string `json:"phone_number"`
	Content     string `json:"content"`
	Sender      string `json:"sender,omitempty"`
	Priority    string `json:"priority"`
}

// NewSMSService 创建短信服务
func NewSMSService(cfg *config.SMSConfig) *SMSService {
	timeout := defaultSMSTimeout
	if cfg != nil && cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &SMSService{
		cfg:     cfg,
		timeout: timeout,
		client: &fasthttp.Client{
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}
}

// Enabled 是否启用
func (s *SMSService) Enabled() bool {
	return s != nil && s.cfg != nil && s.cfg.Enabled && strings.TrimSpace(s.cfg.GatewayURL) != ""
}

// Send 发送短信；号码在发送前规范化为 E.164
func (s *SMSService) Send(ctx context.Context, phone, body, messageID string) error {
	if !s.Enabled() {
		return ErrSMSServiceDisabled
	}
	normalized, err := NormalizePhone(phone, s.cfg.DefaultCountryCode)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(smsSendRequest{
		MessageID:   messageID,
		PhoneNumber: normalized,
		Content:     body,
		Sender:      s.cfg.Sender,
		Priority:    "high",
	})
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.cfg.GatewayURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if key := strings.TrimSpace(s.cfg.APIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	req.SetBody(payload)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(s.timeout)
	}
	if err := s.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("sms gateway request failed: %w", err)
	}
	statusCode := resp.StatusCode()
	if statusCode != fasthttp.StatusOK && statusCode != fasthttp.StatusAccepted {
		return fmt.Errorf("sms gateway unexpected status code: %d, body: %s", statusCode, resp.Body())
	}
	return nil
}

// NormalizePhone 规范化为 E.164：去掉分隔符，本地号码去掉前导 0 后补默认国家码
func NormalizePhone(raw, defaultCountryCode string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidPhone
	}
	var b strings.Builder
	for i, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", ErrInvalidPhone
		}
	}
	digits := b.String()
	switch {
	case strings.HasPrefix(digits, "+"):
	case strings.HasPrefix(digits, "00"):
		digits = "+" + strings.TrimPrefix(digits, "00")
	default:
		code := strings.TrimSpace(defaultCountryCode)
		if code == "" {
			code = "+34"
		}
		if !strings.HasPrefix(code, "+") {
			code = "+" + code
		}
		digits = code + strings.TrimPrefix(digits, "0")
	}
	// E.164 最多 15 位数字
	if n := len(digits) - 1; n < 8 || n > 15 {
		return "", ErrInvalidPhone
	}
	return digits, nil
}
