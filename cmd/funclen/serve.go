package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/phyten/funclen/internal/config"
	"github.com/phyten/funclen/internal/diagstore"
	"github.com/phyten/funclen/internal/engine"
	"github.com/phyten/funclen/internal/host"
	"github.com/phyten/funclen/internal/logging"
	"github.com/phyten/funclen/internal/watch"
)

type serveFlags struct {
	addr    string
	open    bool
	noWatch bool
}

func newServeCmd(env *environment, flags *cliFlags) *cobra.Command {
	sf := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve [path]",
		Short: "Serve the web UI, the JSON API and live diagnostics",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, env, flags, sf, args)
		},
	}
	cmd.Flags().StringVar(&sf.addr, "addr", "", "listen address (default 127.0.0.1:8080)")
	cmd.Flags().BoolVar(&sf.open, "open", false, "open the UI in a browser")
	cmd.Flags().BoolVar(&sf.noWatch, "no-watch", false, "do not watch the workspace for changes")
	return cmd
}

// workspace is a host kept current by a file watcher.
type workspace struct {
	host    *host.Host
	watcher *watch.Watcher
	live    liveConfig
}

// liveConfig lets a workspace follow edits to its configuration files.
type liveConfig struct {
	files    []string
	reload   func() (engine.Options, error)
	onReload func(engine.Options)
}

func startWorkspace(ctx context.Context, scanner *engine.Scanner, store *diagstore.Store, opts engine.Options, logger *slog.Logger, watchFS bool, live liveConfig) (*workspace, *engine.Result, error) {
	h, err := host.New(scanner, store, opts, logger)
	if err != nil {
		return nil, nil, err
	}
	res, err := h.ScanAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	ws := &workspace{host: h, live: live}
	if watchFS {
		// settings may be reloaded, so ask the host every time
		skip := func(dir string) bool {
			return engine.SkipDir(dir, h.Options().ExcludeTypical) || h.Policy().Excluded(dir)
		}
		if ws.watcher, err = watch.New(h.Root(), ws, skip, logger); err != nil {
			return nil, nil, err
		}
		if err := ws.watcher.WatchConfig(live.files...); err != nil {
			return nil, nil, err
		}
	}
	return ws, res, nil
}

// Handle passes events to the host. A configuration change first reloads
// the settings, keeping the workspace root.
func (ws *workspace) Handle(ctx context.Context, ev host.Event) error {
	if ev.Kind != host.EventConfigChange || ws.live.reload == nil {
		return ws.host.Handle(ctx, ev)
	}
	opts, err := ws.live.reload()
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	opts.Root = ws.host.Root()
	if err := ws.host.UpdateOptions(ctx, opts); err != nil {
		return err
	}
	if ws.live.onReload != nil {
		ws.live.onReload(ws.host.Options())
	}
	return nil
}

// reloadable wires settings resolution for a workspace started with s.
func reloadable(cmd *cobra.Command, env *environment, flags *cliFlags, args []string, s *settings) liveConfig {
	files := []string{filepath.Join(env.workdir, ".env"), s.configPath}
	files = append(files, config.Candidates(s.opts.Root)...)
	return liveConfig{
		files: files,
		reload: func() (engine.Options, error) {
			next, err := resolveSettings(cmd, env, flags, args)
			if err != nil {
				return engine.Options{}, err
			}
			return next.opts, nil
		},
	}
}

func (ws *workspace) run(ctx context.Context) error {
	if ws.watcher == nil {
		<-ctx.Done()
		return nil
	}
	return ws.watcher.Run(ctx)
}

func runServe(cmd *cobra.Command, env *environment, flags *cliFlags, sf *serveFlags, args []string) error {
	s, err := resolveSettings(cmd, env, flags, args)
	if err != nil {
		return err
	}
	if sf.addr != "" {
		s.server.Addr = sf.addr
	}
	logger, err := s.logger(env)
	if err != nil {
		return usage(err)
	}
	scanner, collector, err := s.scanner(logger)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer func() { _ = collector.Shutdown(context.WithoutCancel(ctx)) }()
	store := diagstore.New()
	srv := &server{base: s.opts, scanner: scanner, metrics: collector, store: store, logger: logging.Component(logger, "http")}
	live := reloadable(cmd, env, flags, args, s)
	live.onReload = srv.setOptions
	ws, _, err := startWorkspace(ctx, scanner, store, s.opts, logger, !sf.noWatch, live)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}
	httpSrv := &http.Server{Handler: srv.routes(), ReadHeaderTimeout: 10 * time.Second}
	url := "http://" + ln.Addr().String() + "/"
	fmt.Fprintf(env.stderr, "funclen serve listening on %s (root=%s)\n", url, s.opts.Root)
	if sf.open {
		if err := browser.OpenURL(url); err != nil {
			logging.Warn(ctx, logger, "open browser", logging.Fields{"url": url, "error": err.Error()})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return ws.run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
