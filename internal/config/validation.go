package config

import (
	"fmt"
	"strings"
)

// validSSLModes are the PostgreSQL sslmode values accepted by pgx.
var validSSLModes = map[string]struct{}{
	"disable":     {},
	"allow":       {},
	"prefer":      {},
	"require":     {},
	"verify-ca":   {},
	"verify-full": {},
}

// Validate performs comprehensive configuration validation.
// Returns the first validation error encountered (fail-fast).
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: must be in [0, 2], got %v", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxTokens < 1 || c.MaxTokens > 1_000_000 {
		return fmt.Errorf("%w: must be in [1, 1000000], got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model must not be empty", ErrInvalidEmbedderModel)
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	return c.validateGeneration()
}

func (c *Config) validateStorage() error {
	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be in [1, 65535], got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: database name must not be empty", ErrInvalidPostgresDBName)
	}
	if _, ok := validSSLModes[c.PostgresSSLMode]; !ok {
		return fmt.Errorf("%w: %q is not a valid sslmode", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}
	return nil
}

func (c *Config) validateGeneration() error {
	g := c.Generation

	if g.SimilarityThreshold < 0 || g.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: must be in [0, 1], got %v", ErrInvalidThreshold, g.SimilarityThreshold)
	}
	if g.SearchLimit < 1 || g.SearchLimit > 100 {
		return fmt.Errorf("%w: must be in [1, 100], got %d", ErrInvalidSearchLimit, g.SearchLimit)
	}
	if g.ContextTokenBudget < 100 || g.ContextTokenBudget > 1_000_000 {
		return fmt.Errorf("%w: must be in [100, 1000000], got %d", ErrInvalidTokenBudget, g.ContextTokenBudget)
	}
	if g.PageTTLHours < 1 {
		return fmt.Errorf("%w: must be >= 1 hour, got %d", ErrInvalidPageTTL, g.PageTTLHours)
	}
	return nil
}
