package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "STOREFRONT_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		Env      string `koanf:"env"`
		HTTPAddr string `koanf:"http_addr"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout       time.Duration `koanf:"read_timeout"`
		WriteTimeout      time.Duration `koanf:"write_timeout"`
		IdleTimeout       time.Duration `koanf:"idle_timeout"`
		ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
		CountdownInterval time.Duration `koanf:"countdown_interval"`
	} `koanf:"http"`

	Commerce struct {
		BaseURL         string        `koanf:"base_url"`
		Timeout         time.Duration `koanf:"timeout"`
		TestMode        bool          `koanf:"test_mode"`
		BreakerFailures uint32        `koanf:"breaker_failures"`
		BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
	} `koanf:"commerce"`

	// An empty Redis.Addr keeps sessions, locks and the catalog cache in memory.
	Redis struct {
		Addr       string        `koanf:"addr"`
		Password   string        `koanf:"password"`
		DB         int           `koanf:"db"`
		SessionTTL time.Duration `koanf:"session_ttl"`
	} `koanf:"redis"`

	Auth struct {
		JWTSecret   string        `koanf:"jwt_secret"`
		Issuer      string        `koanf:"issuer"`
		Audience    string        `koanf:"audience"`
		TTL         time.Duration `koanf:"ttl"`
		InFlightTTL time.Duration `koanf:"in_flight_ttl"`
	} `koanf:"auth"`

	Cache struct {
		StaleTime time.Duration `koanf:"stale_time"`
		MaxJitter time.Duration `koanf:"max_jitter"`
	} `koanf:"cache"`

	RateLimit struct {
		RPS   float64 `koanf:"rps"`
		Burst int     `koanf:"burst"`
	} `koanf:"ratelimit"`

	CORS struct {
		AllowedOrigins []string `koanf:"allowed_origins"`
	} `koanf:"cors"`

	Log struct {
		Level      string `koanf:"level"`
		File       string `koanf:"file"`
		MaxSizeMB  int    `koanf:"max_size_mb"`
		MaxBackups int    `koanf:"max_backups"`
		MaxAgeDays int    `koanf:"max_age_days"`
	} `koanf:"log"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	// 3) environment variables override (prefix STOREFRONT_, nested with __)
	// e.g. STOREFRONT_COMMERCE__BASE_URL, STOREFRONT_AUTH__JWT_SECRET
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if cfg.App.Env == "" {
		cfg.App.Env = envName
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.App.HTTPAddr == "" {
		errs = append(errs, errors.New("app.http_addr required"))
	}
	if c.Commerce.BaseURL == "" {
		errs = append(errs, errors.New("commerce.base_url required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret required"))
	}
	if c.Auth.Issuer == "" || c.Auth.Audience == "" {
		errs = append(errs, errors.New("auth.issuer and auth.audience required"))
	}
	if c.Cache.StaleTime < 0 {
		errs = append(errs, errors.New("cache.stale_time must not be negative"))
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("ratelimit.rps and ratelimit.burst must not be negative"))
	}
	return errors.Join(errs...)
}
