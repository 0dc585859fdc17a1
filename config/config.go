// Package config loads the synapse client and event logger settings from
// the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	synapse "github.com/kleinwizard/synapse-ai-complete"
	"github.com/kleinwizard/synapse-ai-complete/eventlog"
)

// Config holds the settings loaded from SYNAPSE_* environment variables.
type Config struct {
	Env string `env:"SYNAPSE_ENV" envDefault:"development" validate:"oneof=development local test staging production"`

	// Event logger
	LogEnabled       bool          `env:"SYNAPSE_LOG_ENABLED" envDefault:"true"`
	LogLevel         string        `env:"SYNAPSE_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	LogEndpoint      string        `env:"SYNAPSE_LOG_ENDPOINT" validate:"omitempty,url"`
	LogFlushInterval time.Duration `env:"SYNAPSE_LOG_FLUSH_INTERVAL" envDefault:"30s" validate:"gt=0"`
	LogBufferSize    int           `env:"SYNAPSE_LOG_BUFFER_SIZE" envDefault:"1000" validate:"gt=0"`
	LogRedisURL      string        `env:"SYNAPSE_LOG_REDIS_URL" validate:"omitempty,url"`
	LogRedisKey      string        `env:"SYNAPSE_LOG_REDIS_KEY" envDefault:"synapse:logs"`
	LogRedisMaxLen   int64         `env:"SYNAPSE_LOG_REDIS_MAX_LEN" envDefault:"10000" validate:"gte=0"`

	// Request client
	APIBaseURL   string  `env:"SYNAPSE_API_BASE_URL,required" validate:"required,url"`
	UserAgent    string  `env:"SYNAPSE_USER_AGENT"`
	AppURL       string  `env:"SYNAPSE_APP_URL"`
	APIRateLimit float64 `env:"SYNAPSE_API_RATE_LIMIT" envDefault:"0" validate:"gte=0"`
	APIRateBurst int     `env:"SYNAPSE_API_RATE_BURST" envDefault:"1" validate:"gte=1"`
}

var validate = validator.New()

// Load parses the process environment and returns a validated Config.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// IsDevelopment returns true for development and local environments.
func (c Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "local"
}

// UseRedisSink returns true if log batches go to Redis instead of HTTP.
func (c Config) UseRedisSink() bool {
	return c.LogRedisURL != ""
}

// Level returns the parsed minimum log level.
func (c Config) Level() eventlog.Level {
	level, err := eventlog.ParseLevel(c.LogLevel)
	if err != nil {
		return eventlog.LevelInfo
	}
	return level
}

// EventLog returns the logger configuration. The remote endpoint is left
// empty when Redis is configured so that NewSink decides delivery alone.
func (c Config) EventLog() eventlog.Config {
	cfg := eventlog.Config{
		Enabled:       c.LogEnabled,
		MinLevel:      c.Level(),
		FlushInterval: c.LogFlushInterval,
		BufferSize:    c.LogBufferSize,
	}
	if !c.UseRedisSink() {
		cfg.RemoteEndpoint = c.LogEndpoint
	}
	return cfg
}

// NewSink returns the configured delivery target: Redis when a URL is set,
// the HTTP collector when an endpoint is set, nil otherwise.
func (c Config) NewSink() (eventlog.Sink, error) {
	switch {
	case c.UseRedisSink():
		sink, err := eventlog.NewRedisSinkFromURL(c.LogRedisURL, c.LogRedisKey, c.LogRedisMaxLen)
		if err != nil {
			return nil, fmt.Errorf("creating redis sink: %w", err)
		}
		return sink, nil
	case c.LogEndpoint != "":
		return eventlog.NewHTTPSink(c.LogEndpoint), nil
	default:
		return nil, nil
	}
}

// NewEventLogger builds a logger with the configured console, sink and
// environment snapshot. Extra options are applied last. The caller owns the
// logger and must Start and Close it.
func (c Config) NewEventLogger(opts ...eventlog.Option) (*eventlog.Logger, error) {
	console, err := eventlog.NewConsole(c.Env, eventlog.LevelDebug)
	if err != nil {
		return nil, fmt.Errorf("creating console logger: %w", err)
	}

	sink, err := c.NewSink()
	if err != nil {
		_ = console.Sync()
		return nil, err
	}

	base := []eventlog.Option{
		eventlog.WithConsole(console),
		eventlog.WithEnvironment(c.UserAgent, c.AppURL),
	}
	if sink != nil {
		base = append(base, eventlog.WithSink(sink))
	}

	return eventlog.New(c.EventLog(), append(base, opts...)...), nil
}

// ClientOptions returns the client options derived from the configuration.
func (c Config) ClientOptions() []synapse.Option {
	opts := []synapse.Option{synapse.WithBaseURL(c.APIBaseURL)}
	if c.UserAgent != "" {
		opts = append(opts, synapse.WithUserAgent(c.UserAgent))
	}
	if c.APIRateLimit > 0 {
		opts = append(opts, synapse.WithRateLimiter(rate.Limit(c.APIRateLimit), c.APIRateBurst))
	}
	return opts
}

// NewClient builds a request client reporting to logger. Extra options are
// applied last.
func (c Config) NewClient(logger *eventlog.Logger, opts ...synapse.Option) (*synapse.Client, error) {
	all := append(c.ClientOptions(), synapse.WithLogger(logger))
	client := synapse.New(append(all, opts...)...)
	if err := client.ValidationError(); err != nil {
		return nil, fmt.Errorf("configuring client: %w", err)
	}
	return client, nil
}

// SilentConsole discards the console mirror of a logger built by
// NewEventLogger.
func SilentConsole() eventlog.Option {
	return eventlog.WithConsole(zap.NewNop())
}
