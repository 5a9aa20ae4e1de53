package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsToFAQWithoutKey(t *testing.T) {
	t.Setenv("AI_PROVIDER", "")
	t.Setenv("AI_API_KEY", "")

	cfg := Load()
	assert.Equal(t, AIProviderFAQ, cfg.AIProvider)
	assert.Equal(t, 15*time.Second, cfg.AITimeout)
	assert.Equal(t, time.Second, cfg.AIBackoffBase)
	assert.Equal(t, 3, cfg.AIMaxAttempts)
	assert.Equal(t, ResolvePolicyReject, cfg.ResolvePolicy)
	require.NoError(t, cfg.Validate())
}

func TestLoadPicksGeminiWithKey(t *testing.T) {
	t.Setenv("AI_PROVIDER", "")
	t.Setenv("AI_API_KEY", "k")
	t.Setenv("AI_BACKOFF_BASE_MS", "250")
	t.Setenv("ADMIN_NOTIFY_EMAILS", " a@x.edu , ,b@x.edu")

	cfg := Load()
	assert.Equal(t, AIProviderGemini, cfg.AIProvider)
	assert.Equal(t, 250*time.Millisecond, cfg.AIBackoffBase)
	assert.Equal(t, []string{"a@x.edu", "b@x.edu"}, cfg.AdminNotifyEmails)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			GinMode:       "release",
			SessionSecret: "s3cr3t",
			AIProvider:    AIProviderFAQ,
			AIMaxAttempts: 3,
			ResolvePolicy: ResolvePolicyIgnore,
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.SessionSecret = DefaultSessionSecret
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.ResolvePolicy = "overwrite"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.AIProvider = AIProviderGemini
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.AIMaxAttempts = 0
	assert.Error(t, cfg.Validate())
}
