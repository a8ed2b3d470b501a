package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepress/internal/config"
)

func TestNewPolicy_Overrides(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, 5*time.Second, 2*time.Second, 5)
	assert.Equal(t, 2*time.Second, p.Initial, "initial is clamped to max")
	assert.Equal(t, 2*time.Second, p.Max)
	assert.Equal(t, config.RetryBackoffFixed, p.Mode)
	assert.Equal(t, 5, p.MaxRetries)

	d := NewPolicy("bogus", 0, 0, -1)
	assert.Equal(t, DefaultPolicy(), d)
	require.NoError(t, d.Validate())
}

func TestFromNotify(t *testing.T) {
	p := FromNotify(config.NotifyConfig{Retries: 3, Backoff: config.RetryBackoffExponential, RetryDelay: 100 * time.Millisecond})
	assert.Equal(t, 3, p.MaxRetries)
	assert.Equal(t, config.RetryBackoffExponential, p.Mode)
	assert.Equal(t, 100*time.Millisecond, p.Initial)
}

func TestDelay_Modes(t *testing.T) {
	tests := []struct {
		name string
		p    Policy
		want []time.Duration // attempts 1..4
	}{
		{"fixed", NewPolicy(config.RetryBackoffFixed, 100*time.Millisecond, 500*time.Millisecond, 3),
			[]time.Duration{100, 100, 100, 100}},
		{"linear", NewPolicy(config.RetryBackoffLinear, 100*time.Millisecond, 250*time.Millisecond, 5),
			[]time.Duration{100, 200, 250, 250}},
		{"exponential", NewPolicy(config.RetryBackoffExponential, 50*time.Millisecond, 160*time.Millisecond, 5),
			[]time.Duration{50, 100, 160, 160}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, ms := range tt.want {
				assert.Equal(t, ms*time.Millisecond, tt.p.Delay(i+1), "attempt %d", i+1)
			}
			assert.Zero(t, tt.p.Delay(0))
			assert.Zero(t, tt.p.Delay(-3))
		})
	}
}

func TestDelay_ExponentialOverflowCaps(t *testing.T) {
	p := NewPolicy(config.RetryBackoffExponential, time.Second, time.Minute, 100)
	assert.Equal(t, time.Minute, p.Delay(80))
}

func TestValidate(t *testing.T) {
	assert.Error(t, Policy{Max: time.Second}.Validate())
	assert.Error(t, Policy{Initial: time.Second}.Validate())
	assert.Error(t, Policy{Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 3)
	var attempts []int
	err := p.Do(context.Background(), func(attempt int) error {
		attempts = append(attempts, attempt)
		if attempt < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, attempts)
}

func TestDo_ReturnsLastErrorWhenExhausted(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 1)
	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return errors.New("down")
	})
	require.EqualError(t, err, "down")
	assert.Equal(t, 2, calls)
}

func TestDo_StopsOnCancel(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Hour, time.Hour, 5)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, func(int) error {
		calls++
		cancel()
		return errors.New("down")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
