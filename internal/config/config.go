package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fastship-next/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Security SecurityConfig `mapstructure:"security"`
	Email    EmailConfig    `mapstructure:"email"`
	SMS      SMSConfig      `mapstructure:"sms"`
	Shipment ShipmentConfig `mapstructure:"shipment"`
}

// AppConfig 应用基础信息
type AppConfig struct {
	Name   string `mapstructure:"name"`
	Domain string `mapstructure:"domain"` // 用于拼接评价/追踪链接
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // sqlite / postgres
	DSN    string             `mapstructure:"dsn"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig 卖家/配送员登录令牌配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// EmailConfig 邮件服务配置
type EmailConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	Host                string `mapstructure:"host"`
	Port                int    `mapstructure:"port"`
	Username            string `mapstructure:"username"`
	Password            string `mapstructure:"password"`
	From                string `mapstructure:"from"`
	FromName            string `mapstructure:"from_name"`
	UseTLS              bool   `mapstructure:"use_tls"`
	UseSSL              bool   `mapstructure:"use_ssl"`
	VerifyTokenTTLHours int    `mapstructure:"verify_token_ttl_hours"`
}

// SMSConfig 短信网关配置
type SMSConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	GatewayURL         string `mapstructure:"gateway_url"`
	APIKey             string `mapstructure:"api_key"`
	Sender             string `mapstructure:"sender"`
	DefaultCountryCode string `mapstructure:"default_country_code"`
	TimeoutMS          int    `mapstructure:"timeout_ms"`
}

// ShipmentConfig 运单生命周期策略
type ShipmentConfig struct {
	MaxWeightKG             float64 `mapstructure:"max_weight_kg"`
	EstimatedDeliveryHours  int     `mapstructure:"estimated_delivery_hours"`
	VerificationCodeTTLHour int     `mapstructure:"verification_code_ttl_hours"`
	ReviewTokenDays         int     `mapstructure:"review_token_days"`
	ReviewSecret            string  `mapstructure:"review_secret"`
}

// EstimatedDelivery 预计送达时长
func (c ShipmentConfig) EstimatedDelivery() time.Duration {
	if c.EstimatedDeliveryHours <= 0 {
		return 72 * time.Hour
	}
	return time.Duration(c.EstimatedDeliveryHours) * time.Hour
}

// VerificationCodeTTL 签收验证码有效期
func (c ShipmentConfig) VerificationCodeTTL() time.Duration {
	if c.VerificationCodeTTLHour <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.VerificationCodeTTLHour) * time.Hour
}

// ReviewTokenTTL 评价链接有效期
func (c ShipmentConfig) ReviewTokenTTL() time.Duration {
	if c.ReviewTokenDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(c.ReviewTokenDays) * 24 * time.Hour
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit  RateLimitConfig `mapstructure:"login_rate_limit"`
	ReviewRateLimit RateLimitConfig `mapstructure:"review_rate_limit"`
	MinPasswordLen  int             `mapstructure:"min_password_length"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// Load 从 .env 与 config.yml 加载配置
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		logger.Infow("config_dotenv_loaded", "file", ".env")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("./config")

	viper.SetDefault("app.name", "FastShip")
	viper.SetDefault("app.domain", "localhost:8080")
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "fastship.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/fastship.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expire_hours", 24)
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "fs")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
	})
	viper.SetDefault("cors.allow_credentials", true)
	viper.SetDefault("cors.max_age", 600)
	viper.SetDefault("security.login_rate_limit.window_seconds", 300)
	viper.SetDefault("security.login_rate_limit.max_attempts", 5)
	viper.SetDefault("security.login_rate_limit.block_seconds", 900)
	viper.SetDefault("security.review_rate_limit.window_seconds", 60)
	viper.SetDefault("security.review_rate_limit.max_attempts", 10)
	viper.SetDefault("security.review_rate_limit.block_seconds", 300)
	viper.SetDefault("security.min_password_length", 8)
	viper.SetDefault("email.enabled", false)
	viper.SetDefault("email.host", "")
	viper.SetDefault("email.port", 587)
	viper.SetDefault("email.username", "")
	viper.SetDefault("email.password", "")
	viper.SetDefault("email.from", "")
	viper.SetDefault("email.from_name", "FastShip")
	viper.SetDefault("email.use_tls", true)
	viper.SetDefault("email.use_ssl", false)
	viper.SetDefault("email.verify_token_ttl_hours", 24)
	viper.SetDefault("sms.enabled", false)
	viper.SetDefault("sms.gateway_url", "")
	viper.SetDefault("sms.api_key", "")
	viper.SetDefault("sms.sender", "FastShip")
	viper.SetDefault("sms.default_country_code", "+34")
	viper.SetDefault("sms.timeout_ms", 5000)
	viper.SetDefault("shipment.max_weight_kg", 25)
	viper.SetDefault("shipment.estimated_delivery_hours", 72)
	viper.SetDefault("shipment.verification_code_ttl_hours", 24)
	viper.SetDefault("shipment.review_token_days", 30)
	viper.SetDefault("shipment.review_secret", "review-change-me-in-production")

	// SERVER_PORT -> server.port
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}

const minSecretLength = 32

var defaultSecrets = map[string]struct{}{
	"change-me-in-production":        {},
	"review-change-me-in-production": {},
}

// Validate 启动前校验配置；release 模式下拒绝默认或过短的密钥
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(c.JWT.SecretKey) == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if strings.TrimSpace(c.Shipment.ReviewSecret) == "" {
		return fmt.Errorf("shipment.review_secret is required")
	}
	if c.Shipment.MaxWeightKG <= 0 {
		return fmt.Errorf("shipment.max_weight_kg must be positive")
	}
	if !strings.EqualFold(strings.TrimSpace(c.Server.Mode), "release") {
		return nil
	}
	secrets := map[string]string{
		"jwt.secret":             c.JWT.SecretKey,
		"shipment.review_secret": c.Shipment.ReviewSecret,
	}
	for name, secret := range secrets {
		if _, weak := defaultSecrets[secret]; weak || len(secret) < minSecretLength {
			return fmt.Errorf("%s is too weak for release mode", name)
		}
	}
	return nil
}
