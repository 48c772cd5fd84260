package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	defer func() { verbose, quiet = false, false }()
	ctx := context.Background()
	var buf bytes.Buffer

	verbose, quiet = false, false
	logger := newLogger(&buf)
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	verbose = true
	assert.True(t, newLogger(&buf).Enabled(ctx, slog.LevelDebug))

	// Quiet wins over verbose.
	quiet = true
	logger = newLogger(&buf)
	logger.Warn("dropped")
	assert.NotContains(t, buf.String(), "dropped")
}

func TestRootCommandWiring(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"scan", "fuzz", "signatures", "serve", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestCommandContext(t *testing.T) {
	assert.NotNil(t, commandContext(&cobra.Command{}))
}
