package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Log          LogConfig          `mapstructure:"log"`
	OSS          OSSConfig          `mapstructure:"oss"`
	Email        EmailConfig        `mapstructure:"email"`
	Queue        QueueConfig        `mapstructure:"queue"`
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Webhook      WebhookConfig      `mapstructure:"webhook"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	Order        OrderConfig        `mapstructure:"order"`
	Notification NotificationConfig `mapstructure:"notification"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql, postgres, sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
	MaxUploadSize   int64  `mapstructure:"max_upload_size"` // 字节
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type QueueConfig struct {
	EmailQueue string `mapstructure:"email_queue"`
	MaxWorkers int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// WebhookConfig 支付网关回调配置
type WebhookConfig struct {
	Gateway         string `mapstructure:"gateway"`
	Secret          string `mapstructure:"secret"`
	SignatureHeader string `mapstructure:"signature_header"`
	MaxBodyBytes    int64  `mapstructure:"max_body_bytes"`
}

type SubscriptionConfig struct {
	Plans map[string]PlanConfig `mapstructure:"plans"`
}

// PlanConfig 卖家套餐（键为 TIER1/TIER2/TIER3）
type PlanConfig struct {
	MonthlyPrice  float64 `mapstructure:"monthly_price"`
	YearlyPrice   float64 `mapstructure:"yearly_price"`
	MaxGigs       int     `mapstructure:"max_gigs"` // 0 表示不限
	MonthlyPlanID string  `mapstructure:"monthly_plan_id"`
	YearlyPlanID  string  `mapstructure:"yearly_plan_id"`
}

type OrderConfig struct {
	PlatformFeeRate float64 `mapstructure:"platform_fee_rate"`
}

type NotificationConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

// SignatureHeaderName 返回签名头名称，未配置时使用 X-Signature
func (c WebhookConfig) SignatureHeaderName() string {
	if c.SignatureHeader == "" {
		return "X-Signature"
	}
	return c.SignatureHeader
}

// GatewayName 返回网关名称，未配置时使用 razorpay
func (c WebhookConfig) GatewayName() string {
	if c.Gateway == "" {
		return "razorpay"
	}
	return c.Gateway
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("webhook.signature_header", "X-Signature")
	v.SetDefault("webhook.gateway", "razorpay")
	v.SetDefault("webhook.max_body_bytes", 65536)
	v.SetDefault("webhook.secret", "")
	v.SetDefault("queue.email_queue", "email_jobs")
	v.SetDefault("queue.max_workers", 2)
	v.SetDefault("order.platform_fee_rate", 0.1)
	v.SetDefault("notification.retention_days", 90)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
