// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/flagdeck/flagdeck/internal/api"
	"github.com/flagdeck/flagdeck/internal/app"
	"github.com/flagdeck/flagdeck/internal/config"
	"github.com/flagdeck/flagdeck/internal/logging"
	"github.com/flagdeck/flagdeck/internal/notify"
	"github.com/flagdeck/flagdeck/internal/observability"
	"github.com/flagdeck/flagdeck/internal/session"
	"github.com/flagdeck/flagdeck/internal/shell"
	"github.com/flagdeck/flagdeck/internal/view"
	"github.com/flagdeck/flagdeck/internal/xdg"
)

const serviceName = "flagdeck"

// runtimeOptions adjust how a command's runtime is wired.
type runtimeOptions struct {
	// shellMode logs to a file and leaves notification output to the shell.
	shellMode bool
	// confirm replaces the interactive confirmation prompt.
	confirm app.Confirmer
}

// runtime is everything one command invocation needs.
type runtime struct {
	ctx    context.Context
	stop   context.CancelFunc
	cfg    *config.Config
	logger *slog.Logger
	out    *shell.Printer
	errOut *shell.Printer
	in     *shell.Input
	notes  *notify.Center
	app    *app.App

	metricsSrv *observability.Server
	logFile    *os.File
	events     <-chan notify.Event
	printing   sync.WaitGroup
}

// loadConfig merges defaults, the config file and the command's flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString(config.FlagConfig)
	if err != nil {
		return nil, oops.Code(config.CodeInvalid).Wrapf(err, "reading --config")
	}
	defaultPath, err := xdg.ConfigFile()
	if err != nil {
		defaultPath = ""
	}
	return config.Load(config.LoadOptions{Path: path, DefaultPath: defaultPath, Flags: cmd.Flags()})
}

func newRuntime(cmd *cobra.Command, opts runtimeOptions) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	r := &runtime{
		cfg:    cfg,
		out:    shell.NewPrinter(cmd.OutOrStdout()),
		errOut: shell.NewPrinter(cmd.ErrOrStderr()),
	}
	r.ctx, r.stop = signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		r.stop()
		return nil, err
	}
	var logOut io.Writer = cmd.ErrOrStderr()
	if opts.shellMode {
		if f, err := openShellLog(); err == nil {
			r.logFile = f
			logOut = f
		}
	}
	r.logger = logging.Setup(serviceName, version, cfg.Log.Format, level, logOut)

	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		r.metricsSrv = observability.NewServer(cfg.Metrics.Addr, observability.WithServerLogger(r.logger))
		metrics = r.metricsSrv.Metrics()
	}

	var durable session.TokenStore
	if cfg.Session.Persist {
		fileStore, err := session.NewFileTokenStore(cfg.Session.TokenFile)
		if err != nil {
			r.Close()
			return nil, err
		}
		durable = fileStore
	} else {
		durable = session.NewMemoryTokenStore("")
	}
	store, err := session.NewStore(durable, session.WithLogger(r.logger))
	if err != nil {
		r.Close()
		return nil, err
	}

	gw, err := api.New(api.Config{
		BaseURL: cfg.Server.URL,
		Timeout: cfg.Server.Timeout,
		Retries: cfg.Server.Retries,
	}, store, api.WithLogger(r.logger), api.WithMetrics(metrics))
	if err != nil {
		r.Close()
		return nil, err
	}

	r.notes = notify.NewCenter(notify.WithLogger(r.logger), notify.WithMetrics(metrics))
	r.in = shell.NewInput(cmd.InOrStdin(), r.out, shell.WithPassword(passwordReader(cmd.InOrStdin(), r.out)))

	confirm := opts.confirm
	if confirm == nil {
		confirm = r.in
	}
	r.app, err = app.New(app.Deps{
		Gateway:   gw,
		Session:   store,
		Notifier:  r.notes,
		Screen:    view.NewScreen(),
		Tasks:     app.NewTasks(r.ctx, r.logger),
		Confirmer: confirm,
		Logger:    r.logger,
		Metrics:   metrics,
	})
	if err != nil {
		r.Close()
		return nil, err
	}

	if r.metricsSrv != nil {
		r.metricsSrv.SetReadiness(r.app.Ready)
		if _, err := r.metricsSrv.Start(); err != nil {
			r.metricsSrv = nil
			r.Close()
			return nil, err
		}
	}

	if !opts.shellMode {
		r.printNotifications()
	}
	r.logger.Debug("runtime ready", "server", cfg.Server.URL, "persist", cfg.Session.Persist)
	return r, nil
}

// printNotifications echoes notifications as they are shown: successes on
// stdout and errors on stderr.
func (r *runtime) printNotifications() {
	r.events = r.notes.Subscribe()
	r.printing.Add(1)
	go func() {
		defer r.printing.Done()
		for event := range r.events {
			if event.Type != notify.EventShown {
				continue
			}
			if event.Notification.Kind == notify.KindError {
				r.errOut.Print(shell.FormatNotification(event.Notification))
			} else {
				r.out.Print(shell.FormatNotification(event.Notification))
			}
		}
	}()
}

// Close waits for background loads, flushes notifications and releases
// everything newRuntime acquired. It tolerates a partially built runtime.
func (r *runtime) Close() {
	if r.app != nil {
		r.app.Wait()
	}
	if r.notes != nil {
		if r.events != nil {
			r.notes.Unsubscribe(r.events)
			r.printing.Wait()
		}
		r.notes.Close()
	}
	if r.in != nil {
		r.in.Close()
	}
	if r.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.metricsSrv.Stop(ctx); err != nil {
			r.logger.Warn("error stopping metrics server", "error", err)
		}
		cancel()
	}
	if r.logFile != nil {
		_ = r.logFile.Close()
	}
	r.stop()
}

// restore validates the stored session, printing why it cannot be used.
func (r *runtime) restore() (api.User, error) {
	user, err := r.app.Restore(r.ctx)
	if err != nil {
		r.errOut.Print(app.UserMessage(err) + "\n")
		return api.User{}, surfaced(err)
	}
	return user, nil
}

func (r *runtime) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return oops.Code("OUTPUT_FAILED").Wrapf(err, "encoding output")
	}
	r.out.Print(string(data) + "\n")
	return nil
}

// withRuntime adapts a command body that needs a runtime to cobra's RunE.
func withRuntime(fn func(r *runtime, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		r, err := newRuntime(cmd, runtimeOptions{})
		if err != nil {
			return err
		}
		defer r.Close()
		return fn(r, cmd, args)
	}
}

// passwordReader reads secrets without echo when stdin is a terminal.
func passwordReader(in io.Reader, out *shell.Printer) shell.PasswordFunc {
	f, ok := in.(*os.File)
	if !ok || !shell.IsTerminal(int(f.Fd())) {
		return nil
	}
	return shell.TerminalPassword(int(f.Fd()), out)
}

func openShellLog() (*os.File, error) {
	dir, err := xdg.StateDir()
	if err != nil {
		return nil, err
	}
	if err := xdg.EnsureDir(dir); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, "shell.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, oops.With("path", dir).Wrapf(err, "open shell log")
	}
	return f, nil
}
