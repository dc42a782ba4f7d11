package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultPath = "config/config.yaml"

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	ClientURL       string        `yaml:"client_url"` // CORS origin
	// RateLimit запросов с одного IP за RateWindow; 0 выключает.
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // memory | postgres | mongo
	DSN    string `yaml:"url"`
	Name   string `yaml:"name"` // mongo database name
	// OTPRetention: сколько Mongo держит истёкший код до удаления TTL-индексом.
	OTPRetention time.Duration `yaml:"otp_retention"`
}

type RevocationConfig struct {
	Enabled bool `yaml:"enabled"`
}

type AuthConfig struct {
	JWTSecret           string           `yaml:"jwt_secret"`
	TokenTTL            time.Duration    `yaml:"token_ttl"`
	BcryptCost          int              `yaml:"bcrypt_cost"`
	ConcealUnknownEmail bool             `yaml:"conceal_unknown_email"`
	Revocation          RevocationConfig `yaml:"revocation"`
}

type OTPConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	SendLimit  int           `yaml:"send_limit"`
	SendWindow time.Duration `yaml:"send_window"`
}

type EmailConfig struct {
	Provider     string `yaml:"provider"` // smtp | resend | sendgrid | log
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	APIKey       string `yaml:"api_key"`
	FromEmail    string `yaml:"from_email"`
	FromName     string `yaml:"from_name"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dev   bool   `yaml:"dev"`
	File  string `yaml:"file"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	OTP      OTPConfig      `yaml:"otp"`
	Email    EmailConfig    `yaml:"email"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

// LoadDefaults fills every field the yaml file may leave out.
func (c *Config) LoadDefaults() {
	c.Server.Port = 5001
	c.Server.ShutdownTimeout = 5 * time.Second
	c.Server.ClientURL = "*"
	c.Server.RateLimit = 100
	c.Server.RateWindow = 15 * time.Minute
	c.Database.Driver = "memory"
	c.Database.Name = "shopauth"
	c.Database.OTPRetention = 24 * time.Hour
	c.Auth.TokenTTL = 30 * 24 * time.Hour
	c.Auth.BcryptCost = 10
	c.Auth.ConcealUnknownEmail = true
	c.OTP.TTL = 10 * time.Minute
	c.OTP.SendLimit = 3
	c.OTP.SendWindow = 10 * time.Minute
	c.Email.Provider = "log"
	c.Email.SMTPPort = 587
	c.Email.FromName = "Shop"
	c.Log.Level = "info"
}

// LoadConfig reads .env (if any), the yaml file and the environment, in that order.
// Panics on a broken config, same as startup would fail anyway.
func LoadConfig() *Config {
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultPath
	}
	cfg, err := Load(path)
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	return cfg
}

// Load builds a Config from defaults, an optional yaml file and env overrides.
// A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path != "" {
		f, err := os.Open(path)
		switch {
		case err == nil:
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.Redis.URL, "REDIS_URL")
	setString(&c.Email.SMTPPassword, "SMTP_PASSWORD")
	setString(&c.Email.APIKey, "EMAIL_API_KEY")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Server.ClientURL, "CLIENT_URL")
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if os.Getenv("LOG_DEV") == "1" {
		c.Log.Dev = true
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth.jwt_secret (JWT_SECRET) is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("otp.ttl must be positive")
	}
	switch c.Database.Driver {
	case "memory":
	case "postgres", "mongo":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.url is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	switch c.Email.Provider {
	case "smtp", "resend", "sendgrid", "log":
	default:
		return fmt.Errorf("unknown email.provider %q", c.Email.Provider)
	}
	if c.Auth.Revocation.Enabled && c.Redis.URL == "" {
		return errors.New("redis.url is required when auth.revocation.enabled")
	}
	return nil
}
