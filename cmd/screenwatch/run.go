package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/screenwatch/internal/audio"
	"github.com/GriffinCanCode/screenwatch/internal/config"
	"github.com/GriffinCanCode/screenwatch/internal/events"
	"github.com/GriffinCanCode/screenwatch/internal/input"
	"github.com/GriffinCanCode/screenwatch/internal/journal"
	"github.com/GriffinCanCode/screenwatch/internal/notify"
	"github.com/GriffinCanCode/screenwatch/internal/ocr"
	"github.com/GriffinCanCode/screenwatch/internal/orchestrator"
	"github.com/GriffinCanCode/screenwatch/internal/orchestrator/history"
	"github.com/GriffinCanCode/screenwatch/internal/screen"
	"github.com/GriffinCanCode/screenwatch/internal/server"
)

const shutdownTimeout = 5 * time.Second

type runOptions struct {
	http   string
	watch  bool
	dryRun bool
	idle   bool
	paused bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start monitoring the configured region",
		Long: `Captures the configured region every interval, recognizes its text and,
for each keyword line not seen before in this session, types the reply.

Examples:
  # Monitor with defaults and log what would be typed
  screenwatch run --dry-run

  # Use a config file and reload it when it changes
  screenwatch run -c screenwatch.yaml --watch

  # Start idle and control the session over HTTP
  screenwatch run --idle --http :8000

  # Start paused; POST /api/monitor/resume begins ticking
  screenwatch run --paused
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.http, "http", "", "HTTP/WebSocket listen address (overrides HTTP_ADDR; \"off\" disables)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload the config file when it changes")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Log replies instead of typing them")
	cmd.Flags().BoolVar(&opts.idle, "idle", false, "Leave the session Idle until started over HTTP")
	cmd.Flags().BoolVar(&opts.paused, "paused", false, "Start the session Paused until resumed over HTTP")
	cmd.MarkFlagsMutuallyExclusive("idle", "paused")
	return cmd
}

func runMonitor(cmd *cobra.Command, opts runOptions) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	switch opts.http {
	case "":
	case "off":
		cfg.HTTPAddr = ""
	default:
		cfg.HTTPAddr = opts.http
	}

	closeLog, err := setupLogging(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	capturer, err := screen.New(cfg.CaptureBackend)
	if err != nil {
		return err
	}
	defer capturer.Close()

	extractor, err := ocr.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = extractor.Close() }()

	var dispatcher orchestrator.ActionDispatcher = input.DryRun{}
	if !opts.dryRun {
		kb, err := input.NewKeyboard(cfg.Monitor.Submit)
		if err != nil {
			return err
		}
		dispatcher = kb
	}

	hist := history.NewStore(orchestrator.HistoryMaxEntries, orchestrator.HistoryEventBuffer)
	sinks, closeSinks := buildSinks(ctx, cfg, hist)
	defer closeSinks()

	mgr := orchestrator.NewManager(cfg.Monitor, orchestrator.Deps{
		Source:     capturer,
		Extractor:  extractor,
		Dispatcher: dispatcher,
		Sink:       sinks,
	})

	if opts.watch && path != "" {
		w, err := config.NewWatcher(path, config.DefaultDebounce, func(c *config.Config) {
			if err := mgr.Reload(c.Monitor); err != nil {
				slog.Error("applying reloaded config failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		go w.Run(ctx)
	}

	switch {
	case opts.idle:
	case opts.paused:
		if err := mgr.StartPaused(ctx); err != nil {
			return err
		}
	default:
		if err := mgr.Start(ctx); err != nil {
			return err
		}
	}

	var httpServer *http.Server
	if cfg.HTTPAddr != "" {
		httpServer = &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      server.New(ctx, mgr, hist).Handler(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("http server starting", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http server error", "error", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	slog.Info("shutting down...")

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown error", "error", err)
		}
	}
	mgr.Shutdown()

	printSummary(cmd, mgr.Status())
	return nil
}

// buildSinks fans events out to the log, the history store and whichever
// optional sinks the config enables. Optional sinks that fail to open are
// logged and skipped.
func buildSinks(ctx context.Context, cfg *config.Config, hist *history.Store) (events.Fanout, func()) {
	sinks := events.Fanout{events.NewLogSink(ctx), hist}
	var closers []func()

	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			slog.Warn("journal disabled", "path", cfg.JournalPath, "error", err)
		} else {
			b := journal.NewBatcher(j, journal.DefaultBatcherMaxSize, journal.DefaultBatcherFlushDelay)
			sinks = append(sinks, b)
			closers = append(closers, func() {
				b.Stop()
				_ = j.Close()
			})
		}
	}

	if cfg.MQTTBroker != "" {
		m, err := notify.DialMQTT(cfg.MQTTBroker, cfg.MQTTTopic)
		if err != nil {
			slog.Warn("mqtt disabled", "broker", cfg.MQTTBroker, "error", err)
		} else {
			sinks = append(sinks, m)
			closers = append(closers, m.Close)
		}
	}

	if cfg.AlertSound {
		a, err := audio.NewAlerter()
		if err != nil {
			slog.Warn("alert sound disabled", "error", err)
		} else {
			sinks = append(sinks, a)
			closers = append(closers, func() { _ = a.Close() })
		}
	}

	return sinks, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

func printSummary(cmd *cobra.Command, st orchestrator.Status) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session %s %s", st.Session, st.State)
	if !st.StartedAt.IsZero() {
		fmt.Fprintf(out, ", started %s", humanize.Time(st.StartedAt))
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  ticks       %s (%s unchanged)\n", humanize.Comma(int64(st.Ticks)), humanize.Comma(int64(st.Unchanged)))
	fmt.Fprintf(out, "  matches     %s\n", humanize.Comma(int64(st.Matches)))
	fmt.Fprintf(out, "  dispatched  %s (%s failed)\n", humanize.Comma(int64(st.Dispatches)), humanize.Comma(int64(st.DispatchFailures)))
	fmt.Fprintf(out, "  failures    capture %s, extraction %s\n", humanize.Comma(int64(st.CaptureFailures)), humanize.Comma(int64(st.ExtractionFailures)))
}
