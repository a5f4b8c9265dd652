package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/buildgraph/internal/cli/config"
	"github.com/leapstack-labs/buildgraph/internal/cli/testutil"
	bgtest "github.com/leapstack-labs/buildgraph/internal/testutil"
)

func TestWatch_RebuildsOnChange(t *testing.T) {
	dir := t.TempDir()
	program := filepath.Join(dir, "buildgraph.bgc")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(program, []byte("v1"), 0o600))

	r := testutil.NewTestRenderer("", false)
	c := &CommandContext{Cfg: &config.Config{}, Logger: bgtest.NewTestLogger(t), Renderer: r.Renderer}

	var rebuilds atomic.Int32
	rebuild := func() error {
		if rebuilds.Add(1) == 1 {
			return errors.New("compile in progress")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watch(ctx, c, []string{program}, rebuild) }()

	// unrelated files in the same directory are ignored
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o600))

	require.Eventually(t, func() bool {
		_ = os.WriteFile(program, []byte("v2"), 0o600)
		return rebuilds.Load() >= 2
	}, 10*time.Second, 250*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	assert.Contains(t, r.ErrorOutput(), "compile in progress")
}

func TestWatch_MissingDirectory(t *testing.T) {
	r := testutil.NewTestRenderer("", false)
	c := &CommandContext{Cfg: &config.Config{}, Logger: bgtest.NewTestLogger(t), Renderer: r.Renderer}

	err := watch(context.Background(), c, []string{filepath.Join(t.TempDir(), "gone", "buildgraph.bgc")}, func() error { return nil })
	assert.ErrorContains(t, err, "failed to watch")
}

func TestWatchedFiles(t *testing.T) {
	config.ResetConfig()
	c := &CommandContext{Cfg: &config.Config{Program: "p.bgc", HandlersFile: "h.yaml"}}
	assert.Equal(t, []string{"p.bgc", "h.yaml"}, watchedFiles(c))
}
