package outbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextDelayGrowsExponentiallyAndCaps(t *testing.T) {
	cfg := BackoffConfig{Base: time.Second, Factor: 2, Cap: 5 * time.Minute, JitterFraction: 0}

	assert.Equal(t, time.Second, cfg.NextDelay(1))
	assert.Equal(t, 2*time.Second, cfg.NextDelay(2))
	assert.Equal(t, 4*time.Second, cfg.NextDelay(3))

	longDelay := cfg.NextDelay(20)
	assert.Equal(t, 5*time.Minute, longDelay)
}

func TestNextDelayAppliesJitterWithinBounds(t *testing.T) {
	cfg := BackoffConfig{Base: time.Second, Factor: 2, Cap: 5 * time.Minute, JitterFraction: 0.10}

	for i := 0; i < 20; i++ {
		d := cfg.NextDelay(1)
		assert.GreaterOrEqual(t, d, 900*time.Millisecond)
		assert.LessOrEqual(t, d, 1100*time.Millisecond)
	}
}

func TestDefaultBackoffConfigMatchesSpec(t *testing.T) {
	cfg := DefaultBackoffConfig()
	assert.Equal(t, time.Second, cfg.Base)
	assert.Equal(t, 2.0, cfg.Factor)
	assert.Equal(t, 5*time.Minute, cfg.Cap)
	assert.Equal(t, 0.10, cfg.JitterFraction)
	assert.Equal(t, 10, cfg.MaxAttempts)
}
