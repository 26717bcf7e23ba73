package config

import (
	"github.com/rs/zerolog"
	"github.com/wnt/empyreal/client"
)

// ClientOptions translates the API settings into client options
func (c Config) ClientOptions(logger zerolog.Logger) []client.Option {
	opts := []client.Option{
		client.WithEnvironment(client.Environment(c.Environment)),
		client.WithLogger(logger),
	}
	if c.APIVersion != "" {
		opts = append(opts, client.WithVersion(c.APIVersion))
	}
	if c.RequestTimeout > 0 {
		opts = append(opts, client.WithTimeout(c.RequestTimeout))
	}
	if c.BaseURL != "" {
		opts = append(opts, client.WithBaseURL(c.BaseURL))
	}
	if c.RateLimitRPS > 0 {
		opts = append(opts, client.WithRateLimit(c.RateLimitRPS, c.RateLimitBurst))
	}
	return opts
}

// NewClient opens an API session with the configured key
func (c Config) NewClient(logger zerolog.Logger) (*client.Client, error) {
	return client.New(c.APIKey, c.ClientOptions(logger)...)
}
