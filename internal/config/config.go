// Package config reads service settings from PAIRWISH_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/pairwish/internal/images"
)

type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string
	BaseURL   string

	// SecureCookies marks the session cookie Secure. Enable behind TLS.
	SecureCookies bool
	// AllowedOrigins are extra websocket origin patterns besides the
	// request host.
	AllowedOrigins []string

	PostmarkToken string
	EmailFrom     string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	ReminderLeadDays []int
	ReminderInterval time.Duration

	S3 images.S3Config
}

// PushConfigured reports whether both VAPID keys are set.
func (c Config) PushConfigured() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv("PAIRWISH_" + key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Port:      get("PORT", "8080"),
		DBPath:    get("DB_PATH", "pairwish.db"),
		LogLevel:  get("LOG_LEVEL", "info"),
		LogFormat: get("LOG_FORMAT", "text"),

		PostmarkToken: get("POSTMARK_TOKEN", ""),
		EmailFrom:     get("EMAIL_FROM", ""),

		VAPIDPublicKey:  get("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: get("VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:    get("VAPID_SUBJECT", ""),

		S3: images.S3Config{
			Endpoint:  get("S3_ENDPOINT", ""),
			Bucket:    get("S3_BUCKET", ""),
			Region:    get("S3_REGION", "us-east-1"),
			AccessKey: get("S3_ACCESS_KEY", ""),
			SecretKey: get("S3_SECRET_KEY", ""),
			PublicURL: get("S3_PUBLIC_URL", ""),
		},
	}
	cfg.BaseURL = strings.TrimRight(get("BASE_URL", "http://localhost:"+cfg.Port), "/")
	if cfg.VAPIDSubject == "" && cfg.EmailFrom != "" {
		cfg.VAPIDSubject = "mailto:" + cfg.EmailFrom
	}

	var err error
	if cfg.SecureCookies, err = strconv.ParseBool(get("SECURE_COOKIES", "false")); err != nil {
		return Config{}, fmt.Errorf("parse PAIRWISH_SECURE_COOKIES: %w", err)
	}

	if origins := get("ALLOWED_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	if cfg.ReminderLeadDays, err = parseDays(get("REMINDER_LEAD_DAYS", "7,1")); err != nil {
		return Config{}, fmt.Errorf("parse PAIRWISH_REMINDER_LEAD_DAYS: %w", err)
	}

	if cfg.ReminderInterval, err = time.ParseDuration(get("REMINDER_INTERVAL", "1h")); err != nil {
		return Config{}, fmt.Errorf("parse PAIRWISH_REMINDER_INTERVAL: %w", err)
	}
	if cfg.ReminderInterval <= 0 {
		return Config{}, fmt.Errorf("PAIRWISH_REMINDER_INTERVAL must be positive")
	}

	return cfg, nil
}

func parseDays(s string) ([]int, error) {
	var days []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("negative lead day %d", n)
		}
		days = append(days, n)
	}
	return days, nil
}
