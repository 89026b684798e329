// Package settings manages the model API credential.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-insights/internal/kvstore"
	"github.com/dvloznov/statement-insights/internal/logger"
)

const (
	// DefaultKey is the key the credential is stored under.
	DefaultKey = "api_credential"

	// CredentialPrefix is the literal prefix every Gemini API key starts with.
	CredentialPrefix = "AIza"
)

var (
	// ErrCredentialMissing means no credential is stored or configured.
	ErrCredentialMissing = errors.New("API key is not configured")

	// ErrInvalidCredential means a key failed the prefix check.
	ErrInvalidCredential = errors.New("invalid API key")
)

// ValidateAPIKey checks that key is non-empty and carries CredentialPrefix.
func ValidateAPIKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidCredential)
	}
	if !strings.HasPrefix(key, CredentialPrefix) {
		return fmt.Errorf("%w: must start with %q", ErrInvalidCredential, CredentialPrefix)
	}
	return nil
}

// Mask hides all but the prefix and the last four characters of a key.
func Mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= len(CredentialPrefix)+4 {
		return strings.Repeat("*", len(key))
	}
	hidden := len(key) - len(CredentialPrefix) - 4
	return key[:len(CredentialPrefix)] + strings.Repeat("*", hidden) + key[len(key)-4:]
}

// Credentials reads and writes the stored API key.
type Credentials struct {
	kv       kvstore.Store
	key      string
	fallback string
}

// NewCredentials creates a credential store. fallback is used when nothing is stored.
func NewCredentials(kv kvstore.Store, key, fallback string) *Credentials {
	if key == "" {
		key = DefaultKey
	}
	return &Credentials{kv: kv, key: key, fallback: strings.TrimSpace(fallback)}
}

// APIKey returns the stored key, or the configured fallback, or ErrCredentialMissing.
func (c *Credentials) APIKey(ctx context.Context) (string, error) {
	stored, err := c.stored(ctx)
	if err == nil && stored != "" {
		return stored, nil
	}
	if c.fallback != "" {
		return c.fallback, nil
	}
	return "", ErrCredentialMissing
}

// Configured reports whether an API key is available and returns it masked.
func (c *Credentials) Configured(ctx context.Context) (bool, string) {
	key, err := c.APIKey(ctx)
	if err != nil {
		return false, ""
	}
	return true, Mask(key)
}

// Save validates and stores key, replacing any previous value.
func (c *Credentials) Save(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if err := ValidateAPIKey(key); err != nil {
		return err
	}
	if err := c.kv.Put(ctx, c.key, []byte(key)); err != nil {
		return fmt.Errorf("settings: save credential: %w", err)
	}
	logger.FromContext(ctx).Info().Str("key", Mask(key)).Msg("API key saved")
	return nil
}

func (c *Credentials) stored(ctx context.Context) (string, error) {
	data, err := c.kv.Get(ctx, c.key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return "", err
	}
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("Failed to read stored API key")
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
