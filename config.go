package vireo

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds the configuration for the request engine. All fields are
// optional except BaseURL (which only becomes optional when a custom
// Executor is supplied).
//
// Configuration is built with the fluent builder pattern:
//
//	config := vireo.DefaultConfig().
//	    WithBaseURL("https://api.vireo.example").
//	    WithAccessToken(token).
//	    WithTimeout(10 * time.Second).
//	    WithCache(rediscache.New(client))
//
//	engine, err := vireo.New(config)
type Config struct {
	// BaseURL is the base URL of the API. Relative request paths resolve
	// against it.
	// Default: "https://api.vireo.example"
	BaseURL string

	// AccessToken is the bearer credential sent in the Authorization
	// header of every request. Empty disables the header.
	AccessToken string

	// UserAgent is the User-Agent header value.
	// Default: "vireo-go/1.0.0"
	UserAgent string

	// Timeout is the per-attempt HTTP timeout, covering connection time
	// and reading the response body.
	// Default: 30s
	Timeout time.Duration

	// TransportConfig holds connection-pool settings for the default
	// executor.
	TransportConfig TransportConfig

	// Headers are custom headers included in every request.
	Headers map[string]string

	// Cache is the response cache shared by all requests.
	// Default: an in-memory cache.
	Cache ResponseCache

	// Executor issues the HTTP requests. When nil the default
	// net/http-backed executor is built from BaseURL, Timeout and
	// TransportConfig.
	Executor HTTPExecutor

	// Notifier receives the engine's cross-cutting events.
	// Default: a fresh Hub with no subscribers.
	Notifier Notifier

	// Observer receives per-attempt monitoring hooks.
	// Default: NoopObserver.
	Observer Observer

	// Logger receives the engine's structured log output.
	// Default: the logrus standard logger.
	Logger logrus.FieldLogger
}

// TransportConfig holds connection-pool settings for the default executor.
type TransportConfig struct {
	// MaxIdleConns caps idle connections across all hosts. Zero means no
	// limit.
	// Default: 100
	MaxIdleConns int

	// MaxConnsPerHost caps connections per host, counting dialing, active
	// and idle ones.
	// Default: 10
	MaxConnsPerHost int

	// IdleConnTimeout is how long an idle connection stays open.
	// Default: 90s
	IdleConnTimeout time.Duration
}

// DefaultConfig returns a Config with defaults suitable for most hosts.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   "https://api.vireo.example",
		UserAgent: "vireo-go/1.0.0",
		Timeout:   30 * time.Second,
		TransportConfig: TransportConfig{
			MaxIdleConns:    100,
			MaxConnsPerHost: 10,
			IdleConnTimeout: 90 * time.Second,
		},
		Headers: make(map[string]string),
	}
}

// WithBaseURL sets the API base URL.
func (c *Config) WithBaseURL(url string) *Config {
	c.BaseURL = url
	return c
}

// WithAccessToken sets the bearer credential.
func (c *Config) WithAccessToken(token string) *Config {
	c.AccessToken = token
	return c
}

// WithUserAgent sets the User-Agent header value.
func (c *Config) WithUserAgent(ua string) *Config {
	c.UserAgent = ua
	return c
}

// WithTimeout sets the per-attempt HTTP timeout.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithHeader adds a custom header sent with every request.
func (c *Config) WithHeader(key, value string) *Config {
	if c.Headers == nil {
		c.Headers = make(map[string]string)
	}
	c.Headers[key] = value
	return c
}

// WithCache sets the shared response cache.
func (c *Config) WithCache(cache ResponseCache) *Config {
	c.Cache = cache
	return c
}

// WithExecutor sets a custom HTTP executor.
func (c *Config) WithExecutor(executor HTTPExecutor) *Config {
	c.Executor = executor
	return c
}

// WithNotifier sets the event notifier.
func (c *Config) WithNotifier(notifier Notifier) *Config {
	c.Notifier = notifier
	return c
}

// WithObserver sets the monitoring observer.
func (c *Config) WithObserver(observer Observer) *Config {
	c.Observer = observer
	return c
}

// WithLogger sets the structured logger.
func (c *Config) WithLogger(logger logrus.FieldLogger) *Config {
	c.Logger = logger
	return c
}

// Validate checks the configuration and fills in defaults for missing
// values. New calls it automatically.
func (c *Config) Validate() error {
	if c.BaseURL == "" && c.Executor == nil {
		return ErrInvalidConfig
	}
	if c.UserAgent == "" {
		c.UserAgent = "vireo-go/1.0.0"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.TransportConfig.MaxIdleConns <= 0 {
		c.TransportConfig.MaxIdleConns = 100
	}
	if c.TransportConfig.MaxConnsPerHost <= 0 {
		c.TransportConfig.MaxConnsPerHost = 10
	}
	if c.TransportConfig.IdleConnTimeout <= 0 {
		c.TransportConfig.IdleConnTimeout = 90 * time.Second
	}
	if c.Cache == nil {
		c.Cache = NewMemoryCache()
	}
	if c.Notifier == nil {
		c.Notifier = NewHub()
	}
	if c.Observer == nil {
		c.Observer = NoopObserver{}
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return nil
}
