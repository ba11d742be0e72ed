package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "sqlite://./data/app.db")
	t.Setenv("JWT_EXPIRES_DAYS", "bogus")
	t.Setenv("MISMATCH_DELAY_MS", "250")
	t.Setenv("NODE_ENV", "production")

	c := Load()
	assert.Equal(t, "5175", c.Port)
	assert.Equal(t, "sqlite://./data/app.db", c.DatabaseURL)
	assert.Equal(t, 14*24*time.Hour, c.JWTExpiry)
	assert.Equal(t, 250*time.Millisecond, c.MismatchDelay)
	assert.True(t, c.Production)
}
