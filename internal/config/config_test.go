package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("WORKFLOW_TIMEOUT", "")
	t.Setenv("USE_MOCK_LLM", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Hour, cfg.WorkflowTimeout)
	assert.Equal(t, 24*time.Hour, cfg.StatusTTL)
	assert.Equal(t, 180*24*time.Hour, cfg.AnalysisTTL)
	assert.False(t, cfg.UseMockLLM)
}

func TestEnvDuration(t *testing.T) {
	tests := []struct {
		name string
		val  string
		want time.Duration
	}{
		{"go duration", "90s", 90 * time.Second},
		{"plain seconds", "30", 30 * time.Second},
		{"garbage", "soon", time.Minute},
		{"empty", "", time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.val)
			assert.Equal(t, tt.want, envDuration("TEST_DURATION", time.Minute))
		})
	}
}

func TestEnvBoolAndInt(t *testing.T) {
	t.Setenv("USE_MOCK_LLM", "true")
	t.Setenv("REFERENCE_PARALLELISM", "8")
	cfg := Load()
	assert.True(t, cfg.UseMockLLM)
	assert.Equal(t, 8, cfg.ReferenceParallel)
}
