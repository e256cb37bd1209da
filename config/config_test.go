package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("LEARNINGLY_SET", "value")
	t.Setenv("LEARNINGLY_EMPTY", "")

	assert.Equal(t, "value", getEnv("LEARNINGLY_SET", "fallback"))
	assert.Equal(t, "fallback", getEnv("LEARNINGLY_EMPTY", "fallback"))
	assert.Equal(t, "fallback", getEnv("LEARNINGLY_UNSET", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	cases := map[string]int{
		"12":  12,
		"0":   0,
		"":    5,
		"abc": 5,
		"-3":  5,
	}
	for raw, want := range cases {
		t.Setenv("LEARNINGLY_INT", raw)
		assert.Equal(t, want, getEnvInt("LEARNINGLY_INT", 5), "raw=%q", raw)
	}
}

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/learningly")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec")
	t.Setenv("DEFAULT_FEATURE_QUOTA", "")
	t.Setenv("RESET_INTERVAL_DAYS", "7")

	LoadEnv()

	assert.Equal(t, 5, DEFAULT_FEATURE_QUOTA)
	assert.Equal(t, "168h0m0s", RESET_INTERVAL.String())
	assert.Equal(t, "@hourly", RESET_SCHEDULE)
	assert.Equal(t, 60, RATE_LIMIT_PER_MINUTE)
}
