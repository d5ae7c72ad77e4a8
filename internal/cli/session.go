package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/quarry/internal/config"
	"github.com/roach88/quarry/internal/engine"
	"github.com/roach88/quarry/internal/fixture"
	"github.com/roach88/quarry/internal/store"
)

// session is the store and engine one command runs against.
type session struct {
	cfg      *config.Config
	store    store.Store
	engine   *engine.Engine
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  string
}

// openSession loads the config, opens the store, seeds the data files and
// builds the engine. adjust runs on the loaded config before anything is
// opened. Failures are command errors.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command, adjust ...func(*config.Config)) (*session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Store.Driver = config.DriverSQLite
		cfg.Store.Path = opts.Database
	}
	for _, fn := range adjust {
		fn(cfg)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg, opts.Verbose)
	logger.Debug("opening store", "driver", cfg.Store.Driver, "path", cfg.Store.Path)
	st, err := store.New(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	if len(opts.Data) > 0 {
		logger.Debug("loading data", "files", opts.Data)
		if err := fixture.Seed(ctx, st, opts.Data...); err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to load data", err)
		}
	}

	if opts.Metrics != "" {
		cfg.Stats.Enabled = true
	}
	eng, err := engine.New(st,
		engine.WithConfig(cfg),
		engine.WithLogger(logger),
		engine.WithRetriever(&fixture.Retriever{}),
	)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create engine", err)
	}

	s := &session{cfg: cfg, store: st, engine: eng, logger: logger, metrics: opts.Metrics}
	if opts.Metrics != "" {
		s.registry = prometheus.NewRegistry()
		if err := eng.Stats().Register(s.registry); err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to register metrics", err)
		}
	}
	return s, nil
}

// Close writes the metrics file, if requested, and closes the store.
func (s *session) Close() error {
	var metricsErr error
	if s.registry != nil {
		metricsErr = prometheus.WriteToTextfile(s.metrics, s.registry)
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing store", "error", err)
		return err
	}
	if metricsErr != nil {
		return WrapExitError(ExitCommandError, "failed to write metrics", metricsErr)
	}
	return nil
}

// newLogger builds the slog logger of a command. --verbose forces debug.
func newLogger(w io.Writer, cfg *config.Config, verbose bool) *slog.Logger {
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// readOperation returns the query or update text of a command: the
// argument, the --file contents, or stdin when the file is "-".
func readOperation(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case len(args) == 1 && file != "":
		return "", NewExitError(ExitCommandError, "give the text as an argument or with --file, not both")
	case len(args) == 1:
		return args[0], nil
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", WrapExitError(ExitCommandError, "failed to read stdin", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", WrapExitError(ExitCommandError, fmt.Sprintf("failed to read %s", file), err)
		}
		return string(data), nil
	}
	return "", NewExitError(ExitCommandError, "no text given: pass it as an argument or with --file")
}
