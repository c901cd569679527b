package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (ORDERFLOW_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (ORDERFLOW_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing" flag:"api-key-pepper"`
	Analytics    AnalyticsConfig
	Email        EmailConfig
	Chat         ChatConfig
	Notify       NotifyConfig
	Staging      StagingConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// AnalyticsConfig points at the external sales-aggregation service.
type AnalyticsConfig struct {
	BaseURL string        `usage:"Base URL of the sales aggregation service" flag:"analytics-url"`
	Timeout time.Duration `default:"10s" usage:"Analytics request timeout"`
}

// EmailConfig configures the SMTP transport for customer notifications.
type EmailConfig struct {
	Addr     string `usage:"SMTP server host:port" flag:"smtp-addr"`
	From     string `default:"orders@bloomhaus.example" usage:"Sender address for order notifications"`
	Username string `usage:"SMTP username (empty disables auth)"`
	Password string `usage:"SMTP password"`
}

// ChatConfig selects and configures the chat delivery transport.
type ChatConfig struct {
	// Mode selects the transport: "botapi" posts directly to the bot HTTP
	// API, "amqp" publishes to a queue consumed by the bot worker.
	Mode       string        `default:"botapi" usage:"Chat transport: botapi or amqp"`
	BotBaseURL string        `usage:"Bot HTTP API base URL (mode=botapi)" flag:"chat-bot-url"`
	BotTimeout time.Duration `default:"10s" usage:"Bot API request timeout"`
	AMQPURL    string        `usage:"AMQP broker URL (mode=amqp)" flag:"chat-amqp-url"`
	Queue      string        `default:"orderflow.chat" usage:"AMQP queue name (mode=amqp)"`
}

// NotifyConfig tunes the notification fan-out.
type NotifyConfig struct {
	Workers         int           `default:"8" usage:"Max concurrent notification deliveries"`
	DeliveryTimeout time.Duration `default:"10s" usage:"Per-delivery timeout" flag:"delivery-timeout"`
}

// StagingConfig tunes the in-memory checkout draft store.
type StagingConfig struct {
	TTL time.Duration `default:"30m" usage:"Staged draft lifetime before eviction"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "ORDERFLOW",
		Files:     []string{"config.yaml", "/etc/orderflow/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set ORDERFLOW_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Chat.Mode != "botapi" && cfg.Chat.Mode != "amqp" {
		return nil, errors.Errorf("unknown chat mode %q", cfg.Chat.Mode)
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL and PORT onto the ORDERFLOW_-prefixed
// configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
