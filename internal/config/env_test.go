package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEnv_OverridesFileValues(t *testing.T) {
	t.Setenv(EnvAPIBaseURL, "https://env.example.com")
	t.Setenv(EnvStoreDriver, StoreMemory)
	t.Setenv(EnvBudgetMS, "60000")

	cfg := Config{APIBaseURL: "https://file.example.com", BudgetMillis: 300000}
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "https://env.example.com", cfg.APIBaseURL)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, 60000, cfg.BudgetMillis)
}

func TestApplyEnv_UnsetLeavesConfigAlone(t *testing.T) {
	cfg := Config{APIBaseURL: "https://file.example.com", UserID: "tester"}
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "https://file.example.com", cfg.APIBaseURL)
	assert.Equal(t, "tester", cfg.UserID)
}

func TestApplyEnv_RejectsBadBudget(t *testing.T) {
	t.Setenv(EnvBudgetMS, "soon")

	cfg := Config{}
	err := cfg.ApplyEnv()
	assert.Error(t, err)
}
