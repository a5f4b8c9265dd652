package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/buildgraph/internal/cli/config"
)

const watchDebounce = 100 * time.Millisecond

// watchedFiles lists the inputs of an evaluation.
func watchedFiles(c *CommandContext) []string {
	files := []string{c.Cfg.Program}
	if c.Cfg.HandlersFile != "" {
		files = append(files, c.Cfg.HandlersFile)
	}
	if cfgFile := config.GetConfigFileUsed(); cfgFile != "" {
		files = append(files, cfgFile)
	}
	return files
}

// watch calls rebuild after every change to files until ctx is cancelled
// or the process is interrupted. Rebuild errors are reported and watching
// continues.
func watch(ctx context.Context, c *CommandContext, files []string, rebuild func() error) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch directories so files replaced by a rename stay watched.
	wanted := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			_ = watcher.Close()
			return err
		}
		wanted[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	c.Logger.Info("watching for changes", "files", files)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return watcher.Close()
	})
	g.Go(func() error {
		return watchLoop(ctx, c, watcher, wanted, rebuild)
	})
	return g.Wait()
}

func watchLoop(ctx context.Context, c *CommandContext, watcher *fsnotify.Watcher, wanted map[string]bool, rebuild func() error) error {
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if abs, err := filepath.Abs(event.Name); err != nil || !wanted[abs] {
				continue
			}
			c.Logger.Debug("change detected", "file", event.Name, "op", event.Op.String())
			debounce.Reset(watchDebounce)
		case <-debounce.C:
			if err := rebuild(); err != nil {
				c.Renderer.Warning(err.Error())
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warn("watcher error", "error", err)
		}
	}
}
