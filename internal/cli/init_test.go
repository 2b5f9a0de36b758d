package cli

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billbook/internal/config"
	"billbook/internal/log"
)

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, logger := LoadAndValidateConfig(log.ComponentCLI, nil)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, log.ComponentCLI, logger.Component())
}

func TestLoadAndValidateConfig_ExitsOnInvalid(t *testing.T) {
	var code int
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = os.Exit })

	LoadAndValidateConfig(log.ComponentCLI, func(*config.Config) error {
		return errors.New("bad config")
	})
	assert.Equal(t, 1, code)
}

func TestShutdownOn(t *testing.T) {
	sig := make(chan os.Signal, 1)
	var cleaned bool
	ctx, done := shutdownOn(sig, log.Discard(), time.Second, func(ctx context.Context) {
		_, hasDeadline := ctx.Deadline()
		cleaned = hasDeadline
	})

	select {
	case <-ctx.Done():
		t.Fatal("context cancelled before signal")
	default:
	}

	sig <- syscall.SIGTERM
	finished := make(chan struct{})
	go func() {
		WaitForShutdown(ctx, done)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	require.True(t, cleaned)
}
