package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-spry/spry/internal/config"
	"github.com/go-spry/spry/internal/engine"
	"github.com/go-spry/spry/internal/logging"
	"github.com/go-spry/spry/internal/server"
	"github.com/go-spry/spry/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the preview server with live reload",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		eng, err := buildEngine(cfg, logger)
		if err != nil {
			return err
		}

		data := map[string]any{}
		if cfg.Render.Data != "" {
			if data, err = loadDataFile(cfg.Render.Data); err != nil {
				return err
			}
		}
		if err := eng.ApplyData(data); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(cfg, eng, logger)

		fw, err := watcher.New(time.Duration(cfg.Watch.DebounceMs)*time.Millisecond, logger)
		if err != nil {
			return err
		}
		defer fw.Stop()
		fw.AddFilter(watcher.TemplateFilter)
		fw.AddFilter(watcher.NoHiddenFilter)
		// The engine is single-goroutine: reloads are serialized and the
		// server only ever reads the snapshot Refresh publishes.
		var reloadMu sync.Mutex
		fw.AddHandler(func([]watcher.ChangeEvent) {
			reloadMu.Lock()
			defer reloadMu.Unlock()
			reloadAndNotify(ctx, cfg, eng, srv, logger)
		})
		for _, path := range cfg.Watch.Paths {
			if err := fw.AddRecursive(path); err != nil {
				logger.Warn(ctx, err, "cannot watch path", "path", path)
			}
		}
		fw.Start(ctx)

		return srv.Start(ctx)
	},
}

func init() {
	addRenderFlags(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
}

// reloadAndNotify re-reads template and data from disk, re-applies, and
// tells connected browsers to refresh. Failures leave the previous render
// in place.
func reloadAndNotify(ctx context.Context, cfg *config.Config, eng *engine.Engine, srv *server.PreviewServer, logger logging.Logger) {
	src, err := os.ReadFile(cfg.Render.Template)
	if err != nil {
		logger.Warn(ctx, err, "reload: template unavailable")
		return
	}
	if err := eng.SetTemplate(string(src)); err != nil {
		logger.Warn(ctx, err, "reload: template failed to parse")
		return
	}

	data := map[string]any{}
	if cfg.Render.Data != "" {
		if data, err = loadDataFile(cfg.Render.Data); err != nil {
			logger.Warn(ctx, err, "reload: data unavailable")
			return
		}
	}
	if err := eng.ApplyData(data); err != nil {
		logger.Warn(ctx, err, "reload: apply failed")
		return
	}
	srv.Refresh()
	srv.NotifyReload()
}
