package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayGrowth(t *testing.T) {
	fixed := Policy{Mode: BackoffFixed, Initial: time.Second, Max: 10 * time.Second, MaxRetries: 3}
	assert.Equal(t, time.Second, fixed.Delay(1))
	assert.Equal(t, time.Second, fixed.Delay(5))

	linear := Policy{Mode: BackoffLinear, Initial: time.Second, Max: 3 * time.Second, MaxRetries: 3}
	assert.Equal(t, time.Second, linear.Delay(1))
	assert.Equal(t, 2*time.Second, linear.Delay(2))
	assert.Equal(t, 3*time.Second, linear.Delay(5), "capped at max")

	exp := Policy{Mode: BackoffExponential, Initial: time.Second, Max: 5 * time.Second, MaxRetries: 3}
	assert.Equal(t, time.Second, exp.Delay(1))
	assert.Equal(t, 2*time.Second, exp.Delay(2))
	assert.Equal(t, 4*time.Second, exp.Delay(3))
	assert.Equal(t, 5*time.Second, exp.Delay(4), "capped at max")
}

func TestDelayZeroForNonPositiveAttempt(t *testing.T) {
	assert.Zero(t, DefaultPolicy().Delay(0))
	assert.Zero(t, DefaultPolicy().Delay(-1))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
	assert.Error(t, Policy{Initial: 0, Max: time.Second}.Validate())
	assert.Error(t, Policy{Initial: time.Second, Max: 0}.Validate())
	assert.Error(t, Policy{Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
}
