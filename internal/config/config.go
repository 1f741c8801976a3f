// Package config reads the server settings from the environment once at
// start-up. The resulting Config is never modified afterwards.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Transport names accepted in MAIL_TRANSPORT.
const (
	TransportWebhook = "webhook"
	TransportSMTP    = "smtp"
)

const (
	defaultPort           = "8080"
	defaultDBPath         = "alta.db"
	defaultTemplateDir    = "plantillas"
	defaultTreasury       = "tesoreria@dimensasl.com"
	defaultSplitThreshold = 18 << 20 // 18 MiB
	defaultWebhookTimeout = 30 * time.Second
	defaultSMTPTimeout    = 20 * time.Second
	defaultSMTPPort       = 587
	defaultSessionTTL     = 2 * time.Hour
	defaultMaxRetry       = 3
)

type Config struct {
	Port        string
	DBPath      string
	TemplateDir string
	LayoutFile  string // empty means the embedded layout
	LogLevel    slog.Level

	// Transport is "webhook", "smtp" or "" when neither is configured.
	Transport      string
	WebhookURL     string
	WebhookTimeout time.Duration
	SMTP           SMTPConfig

	TreasuryEmail       string
	AdminEmail          string
	SplitThresholdBytes int64
	ForceSyncSend       bool

	SessionTTL    time.Duration
	CSRFKey       []byte
	SecureCookies bool

	Redis    RedisConfig
	MaxRetry int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      bool
	Timeout  time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether background delivery should go through Redis.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// Load builds a Config from environment variables, falling back to defaults.
// Malformed values are reported together rather than silently replaced.
func Load() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		Port:        readEnv("PORT", defaultPort),
		DBPath:      readEnv("DB_PATH", defaultDBPath),
		TemplateDir: readEnv("TEMPLATE_DIR", defaultTemplateDir),
		LayoutFile:  readEnv("LAYOUT_FILE", ""),
		LogLevel:    p.level("LOG_LEVEL", slog.LevelInfo),

		WebhookURL:     readEnv("GAS_WEBHOOK_URL", ""),
		WebhookTimeout: p.duration("WEBHOOK_TIMEOUT", defaultWebhookTimeout),
		SMTP: SMTPConfig{
			Host:     readEnv("SMTP_HOST", ""),
			Port:     p.integer("SMTP_PORT", defaultSMTPPort),
			Username: readEnv("SMTP_USERNAME", ""),
			Password: readEnv("SMTP_PASSWORD", ""),
			From:     readEnv("SMTP_FROM", ""),
			TLS:      p.boolean("SMTP_TLS", true),
			Timeout:  p.duration("SMTP_TIMEOUT", defaultSMTPTimeout),
		},

		TreasuryEmail:       readEnv("TREASURY_EMAIL", defaultTreasury),
		AdminEmail:          strings.TrimSpace(readEnv("MAIL_TO_ADMIN", "")),
		SplitThresholdBytes: p.int64("SPLIT_THRESHOLD_BYTES", defaultSplitThreshold),
		ForceSyncSend:       p.boolean("FORCE_SYNC_SEND", false),

		SessionTTL:    p.duration("SESSION_TTL", defaultSessionTTL),
		SecureCookies: p.boolean("SECURE_COOKIES", false),

		Redis: RedisConfig{
			Addr:     readEnv("REDIS_ADDR", ""),
			Password: readEnv("REDIS_PASSWORD", ""),
			DB:       p.integer("REDIS_DB", 0),
		},
		MaxRetry: p.integer("DELIVERY_MAX_RETRY", defaultMaxRetry),
	}
	if key := readEnv("CSRF_KEY", ""); key != "" {
		if len(key) != 32 {
			p.fail("CSRF_KEY", key, errors.New("must be exactly 32 bytes"))
		}
		cfg.CSRFKey = []byte(key)
	}
	cfg.Transport = p.transport(cfg)

	if cfg.SplitThresholdBytes <= 0 {
		p.fail("SPLIT_THRESHOLD_BYTES", strconv.FormatInt(cfg.SplitThresholdBytes, 10), errors.New("must be positive"))
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}
	if cfg.MaxRetry < 0 {
		cfg.MaxRetry = 0
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MailConfigured reports whether a delivery backend has enough settings to
// attempt a send.
func (c *Config) MailConfigured() error {
	switch c.Transport {
	case TransportWebhook:
		if c.WebhookURL == "" {
			return errors.New("GAS_WEBHOOK_URL is not set")
		}
	case TransportSMTP:
		if c.SMTP.Host == "" {
			return errors.New("SMTP_HOST is not set")
		}
		if c.SMTP.From == "" {
			return errors.New("SMTP_FROM or SMTP_USERNAME is not set")
		}
	default:
		return errors.New("no mail transport configured: set GAS_WEBHOOK_URL or SMTP_HOST")
	}
	return nil
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// parser collects malformed values so Load can report all of them at once.
type parser struct {
	errs []error
}

func (p *parser) fail(key, val string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", key, val, err))
}

func (p *parser) int64(key string, def int64) int64 {
	v := readEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) integer(key string, def int) int {
	return int(p.int64(key, int64(def)))
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := readEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	if d <= 0 {
		p.fail(key, v, errors.New("must be positive"))
		return def
	}
	return d
}

func (p *parser) boolean(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(readEnv(key, "")))
	switch v {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	p.fail(key, v, errors.New("not a boolean"))
	return def
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	v := readEnv(key, "")
	if v == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		p.fail(key, v, err)
		return def
	}
	return l
}

// transport resolves MAIL_TRANSPORT, inferring it from whichever backend has
// settings when unset. The webhook wins when both are present.
func (p *parser) transport(cfg *Config) string {
	v := strings.ToLower(readEnv("MAIL_TRANSPORT", ""))
	switch v {
	case TransportWebhook, TransportSMTP:
		return v
	case "":
	default:
		p.fail("MAIL_TRANSPORT", v, errors.New("want webhook or smtp"))
		return ""
	}
	switch {
	case cfg.WebhookURL != "":
		return TransportWebhook
	case cfg.SMTP.Host != "":
		return TransportSMTP
	}
	return ""
}
