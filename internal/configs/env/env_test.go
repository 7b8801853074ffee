package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetters(t *testing.T) {
	t.Setenv("PROV_STR", "value")
	t.Setenv("PROV_INT", "42")
	t.Setenv("PROV_BAD_INT", "forty")
	t.Setenv("PROV_FLOAT", "0.5")
	t.Setenv("PROV_BOOL", "true")
	t.Setenv("PROV_BAD_BOOL", "maybe")

	assert.Equal(t, "value", GetEnv("PROV_STR", "x"))
	assert.Equal(t, "x", GetEnv("PROV_UNSET", "x"))
	assert.Equal(t, 42, GetEnvInt("PROV_INT", 1))
	assert.Equal(t, 1, GetEnvInt("PROV_BAD_INT", 1))
	assert.Equal(t, 0.5, GetEnvFloat("PROV_FLOAT", 1))
	assert.True(t, GetEnvBool("PROV_BOOL", false))
	assert.True(t, GetEnvBool("PROV_BAD_BOOL", true))
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 5 * time.Second},
		{"30", 30 * time.Minute},
		{"90s", 90 * time.Second},
		{"soon", 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("PROV_DURATION", tt.value)
			assert.Equal(t, tt.want, GetEnvDuration("PROV_DURATION", time.Minute, 5*time.Second))
		})
	}
}
