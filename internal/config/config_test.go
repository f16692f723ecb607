package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// No t.Parallel here: t.Setenv mutates process-wide state.

func setRequired(t *testing.T) {
	t.Setenv("DB_CONN", "host=db port=5432 user=bank dbname=bank sslmode=disable")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("VAULT_TOKEN", "vault-token")
}

func TestNewConfig_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, "http://localhost:8200", cfg.VaultAddr)
	assert.Equal(t, "secret/data/bank/encryption", cfg.VaultSecretPath)
	assert.Equal(t, 3, cfg.CardExpirationYears)
	assert.Equal(t, "noreply@bank.local", cfg.SenderEmail)
}

func TestNewConfig_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("JWT_REFRESH_TTL", "48h")
	t.Setenv("CARD_EXPIRATION_YEARS", "5")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 48*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 5, cfg.CardExpirationYears)
}

func TestNewConfig_MissingSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")

	_, err := NewConfig()
	assert.Error(t, err)
}

func TestNewConfig_MalformedValuesFallBack(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_ACCESS_TTL", "soon")
	t.Setenv("CARD_EXPIRATION_YEARS", "three")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 3, cfg.CardExpirationYears)
}
