package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadTimeoutConfig(t *testing.T) {
	t.Setenv("READ_TIMEOUT", "42")
	t.Setenv("WRITE_TIMEOUT", "nope")
	t.Setenv("IDLE_TIMEOUT", "-1")

	cfg := LoadTimeoutConfig(DefaultTimeoutConfig())
	assert.Equal(t, 42*time.Second, cfg.Read)
	assert.Equal(t, 30*time.Second, cfg.Write)
	assert.Equal(t, 60*time.Second, cfg.Idle)
}

func TestRunHooks(t *testing.T) {
	var order []int
	RunHooks(context.Background(), time.Second,
		func(ctx context.Context) error {
			order = append(order, 1)
			return errors.New("failed")
		},
		nil,
		func(ctx context.Context) error {
			order = append(order, 2)
			return nil
		},
	)
	assert.Equal(t, []int{1, 2}, order)
}
