package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{URL: "postgres://localhost/memechain"}.withDefaults()

	assert.Equal(t, int32(4), cfg.MaxConns)
	assert.Equal(t, int32(0), cfg.MinConns)
	assert.Equal(t, time.Hour, cfg.MaxConnLifetime)
	assert.Equal(t, 10*time.Minute, cfg.MaxConnIdleTime)
}

func TestConfig_WithDefaultsKeepsOverrides(t *testing.T) {
	cfg := Config{MaxConns: 2, MinConns: 5, MaxConnIdleTime: time.Minute}.withDefaults()

	assert.Equal(t, int32(2), cfg.MaxConns)
	assert.Equal(t, int32(0), cfg.MinConns, "min above max is dropped")
	assert.Equal(t, time.Minute, cfg.MaxConnIdleTime)
}
