package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validSSLModes are the PostgreSQL SSL modes accepted by pgx.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Validate checks the whole configuration and fails fast on the first
// invalid field, wrapping the matching sentinel error.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model must not be empty", ErrInvalidEmbedderModel)
	}

	if c.ChunkLength <= 0 || c.ChunkLength > MaxChunkLength {
		return fmt.Errorf("%w: must be between 1 and %d, got %d",
			ErrInvalidChunkLength, MaxChunkLength, c.ChunkLength)
	}

	if err := c.validatePostgres(); err != nil {
		return err
	}

	if err := c.validatePermission(); err != nil {
		return err
	}

	if c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("%w: rate limit %v and burst %d must not be negative",
			ErrInvalidRateLimit, c.RateLimit, c.RateBurst)
	}

	return nil
}

func (c *Config) validatePostgres() error {
	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d",
			ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: %q is not a valid SSL mode", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}
	return nil
}

func (c *Config) validatePermission() error {
	if c.PermissionBaseURL == "" {
		// Permission service is mandatory: the query pipeline fails
		// closed and cannot run without a policy endpoint.
		return fmt.Errorf("%w: base URL must not be empty", ErrInvalidPermissionURL)
	}
	u, err := url.Parse(c.PermissionBaseURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPermissionURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidPermissionURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidPermissionURL)
	}
	if c.PermissionTimeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidPermissionURL, c.PermissionTimeout)
	}
	return nil
}
