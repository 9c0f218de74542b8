package config

import (
	"fmt"
	"strings" // For LogLevel normalization
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Email providers accepted in EMAIL_PROVIDER.
const (
	EmailProviderResend  = "resend"
	EmailProviderMailjet = "mailjet"
	EmailProviderMock    = "mock"
)

// Identity providers accepted in OIDC_PROVIDER.
const (
	OIDCProviderAuth0  = "auth0"
	OIDCProviderReplit = "replit"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL" envDefault:"gpt-4o"`

	EmailProvider     string `env:"EMAIL_PROVIDER" envDefault:"mock"`
	ResendAPIKey      string `env:"RESEND_API_KEY"`
	MailjetPublicKey  string `env:"MAILJET_PUBLIC_KEY"`
	MailjetPrivateKey string `env:"MAILJET_PRIVATE_KEY"`
	EmailFrom         string `env:"EMAIL_FROM" envDefault:"onboarding@tinymanager.ai"`
	AppBaseURL        string `env:"APP_BASE_URL" envDefault:"http://localhost:5000"`

	HTTPAddr         string `env:"HTTP_ADDR" envDefault:":5000"`
	SessionSecret    string `env:"SESSION_SECRET,required,notEmpty"`
	OIDCProvider     string `env:"OIDC_PROVIDER" envDefault:"auth0"`
	OIDCIssuer       string `env:"OIDC_ISSUER"`
	OIDCClientID     string `env:"OIDC_CLIENT_ID"`
	OIDCClientSecret string `env:"OIDC_CLIENT_SECRET"`
	OIDCRedirectURL  string `env:"OIDC_REDIRECT_URL"`

	TelegramToken   string `env:"TELEGRAM_TOKEN"` // Admin bot is disabled when empty
	AdminTelegramID int64  `env:"ADMIN_TELEGRAM_ID"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	CronSpecWeekly     string        `env:"CRON_SPEC_WEEKLY" envDefault:"0 9 * * 1"` // Monday 09:00
	TickTimeout        time.Duration `env:"TICK_TIMEOUT" envDefault:"30m"`
	TickConcurrency    int           `env:"TICK_CONCURRENCY" envDefault:"4"`
	GenerationTimeout  time.Duration `env:"GENERATION_TIMEOUT" envDefault:"60s"`
	RegenerateOnRepeat bool          `env:"REGENERATE_ON_REPEAT" envDefault:"false"`
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[AppConfig]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Environment = strings.ToLower(cfg.Environment)
	cfg.EmailProvider = strings.ToLower(cfg.EmailProvider)
	cfg.OIDCProvider = strings.ToLower(cfg.OIDCProvider)
	cfg.AppBaseURL = strings.TrimRight(cfg.AppBaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks rules that span several keys.
func (c *AppConfig) Validate() error {
	switch c.EmailProvider {
	case EmailProviderResend:
		if c.ResendAPIKey == "" {
			return fmt.Errorf("RESEND_API_KEY is not set")
		}
	case EmailProviderMailjet:
		if c.MailjetPublicKey == "" || c.MailjetPrivateKey == "" {
			return fmt.Errorf("MAILJET_PUBLIC_KEY and MAILJET_PRIVATE_KEY must both be set")
		}
	case EmailProviderMock:
	default:
		return fmt.Errorf("invalid EMAIL_PROVIDER %q", c.EmailProvider)
	}

	switch c.OIDCProvider {
	case OIDCProviderAuth0, OIDCProviderReplit:
	default:
		return fmt.Errorf("invalid OIDC_PROVIDER %q", c.OIDCProvider)
	}

	if c.TelegramToken != "" && c.AdminTelegramID == 0 {
		return fmt.Errorf("ADMIN_TELEGRAM_ID is required when TELEGRAM_TOKEN is set")
	}
	if c.TickConcurrency < 1 {
		return fmt.Errorf("TICK_CONCURRENCY must be at least 1, got %d", c.TickConcurrency)
	}
	if c.TickTimeout <= 0 {
		return fmt.Errorf("TICK_TIMEOUT must be positive")
	}
	return nil
}

// IsProduction reports whether the app runs in production or staging.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "staging"
}

// OIDCEnabled reports whether login through the identity provider is configured.
func (c *AppConfig) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}
