package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("ENV", "test")
		conf := NewConfig()
		assert.Equal(t, "TEST", conf.Env)
		assert.Equal(t, 8000, conf.Server.Port)
		assert.Equal(t, 24*time.Hour, conf.Server.JWTExpirationDelta)
		assert.True(t, conf.RateLimit.Disabled)
		assert.Equal(t, 100, conf.RateLimit.Requests)
		assert.Equal(t, 5, conf.RateLimit.AuthRequests)
		assert.Equal(t, 15*time.Minute, conf.RateLimit.Window)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("ENV", "")
		t.Setenv("NODE_ENV", "production")
		t.Setenv("PORT", "5000")
		t.Setenv("JWT_EXPIRES_IN", "2h")
		conf := NewConfig()
		assert.Equal(t, "PROD", conf.Env)
		assert.Equal(t, 5000, conf.Server.Port)
		assert.Equal(t, 2*time.Hour, conf.Server.JWTExpirationDelta)
		assert.False(t, conf.RateLimit.Disabled)
	})
}

func Test_envFromNodeEnv(t *testing.T) {
	assert.Equal(t, "PROD", envFromNodeEnv("production"))
	assert.Equal(t, "TEST", envFromNodeEnv("test"))
	assert.Equal(t, "DEV", envFromNodeEnv("development"))
	assert.Equal(t, "DEV", envFromNodeEnv(""))
}
