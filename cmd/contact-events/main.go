package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/tartampluch/go-contact-events/internal/config"
	"github.com/tartampluch/go-contact-events/internal/engine"
	"github.com/tartampluch/go-contact-events/internal/locale"
	"github.com/tartampluch/go-contact-events/internal/server"
	"github.com/tartampluch/go-contact-events/internal/vcardstore"
)

// errDenied marks a run that stopped because contacts access was refused.
var errDenied = errors.New(config.ErrAccessDenied)

// options holds the parsed command line.
type options struct {
	configPath string
	start, end string
	format     string
	serve      bool
	revoke     bool
}

// main is the application entry point.
// It delegates execution to runMain to ensure that deferred function calls
// (like closing log files) are executed before the process terminates.
// os.Exit() does not run defers, so we must return an integer code first.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
func runMain() int {
	// -------------------------------------------------------------------------
	// 1. CLI Argument Parsing
	// -------------------------------------------------------------------------
	var opts options
	showVersion := flag.Bool(config.FlagVersion, false, config.FlagDescVersion)
	debugMode := flag.Bool(config.FlagDebug, false, config.FlagDescDebug)
	flag.StringVar(&opts.configPath, config.FlagConfig, "", config.FlagDescConfig)
	flag.StringVar(&opts.start, config.FlagStart, "", config.FlagDescStart)
	flag.StringVar(&opts.end, config.FlagEnd, "", config.FlagDescEnd)
	flag.StringVar(&opts.format, config.FlagFormat, config.FormatText, config.FlagDescFormat)
	flag.BoolVar(&opts.serve, config.FlagServe, false, config.FlagDescServe)
	flag.BoolVar(&opts.revoke, config.FlagRevoke, false, config.FlagDescRevoke)
	flag.Parse()

	if *showVersion {
		printVersion()
		return config.ExitCodeSuccess
	}

	// -------------------------------------------------------------------------
	// 2. Logging Initialization
	// -------------------------------------------------------------------------
	logCloser := setupLogging(*debugMode, opts.serve)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close() // Best effort close
		}()
	}

	// -------------------------------------------------------------------------
	// 3. Context & Signal Handling
	// -------------------------------------------------------------------------
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo()

	// -------------------------------------------------------------------------
	// 4. Application Logic
	// -------------------------------------------------------------------------
	if err := run(ctx, opts, os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, errDenied) {
			fmt.Fprintln(os.Stderr, err)
			return config.ExitCodeDenied
		}
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// run loads the configuration, wires the contact store behind the engine and
// either prints one range or serves the feed until ctx is cancelled.
func run(ctx context.Context, opts options, in io.Reader, out io.Writer) error {
	path := opts.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	// Dependency Injection.
	titler := locale.New(cfg.Language)
	source, err := vcardstore.NewSource(cfg.Source, vcardstore.NewHTTPFetcher())
	if err != nil {
		return err
	}
	store := vcardstore.New(source, &vcardstore.TerminalPrompter{In: in, Out: os.Stderr, Question: titler.Prompt})

	if opts.revoke {
		if err := store.Revoke(); err != nil {
			return err
		}
		slog.Info(config.MsgAccessRevoked,
			config.LogKeyComponent, config.CompMain,
			config.LogKeySource, source.Name())
		return nil
	}

	events := engine.NewContactEvents(store, engine.Gregorian{},
		engine.WithTitle(titler.AgeTitle),
		engine.WithLanguage(titler.Tag()),
	)

	if !events.Request(ctx) {
		return fmt.Errorf("%w: %s", errDenied, source.Name())
	}

	if opts.serve {
		return serve(ctx, cfg, events, titler)
	}

	if opts.format == config.FormatFeed {
		dates, err := store.ContactDates(ctx)
		if err != nil {
			return err
		}
		return writeFeed(out, dates, titler.Title, engine.RealClock{})
	}

	start, end, err := parseRange(engine.RealClock{}, opts.start, opts.end, cfg.WindowDays)
	if err != nil {
		return err
	}
	return writeEvents(out, opts.format, events.Events(ctx, start, end), engine.RealClock{})
}

// serve runs the HTTP feed and the optional digest until ctx is cancelled.
func serve(ctx context.Context, cfg *config.File, events *engine.ContactEvents, titler *locale.Titler) error {
	if cfg.DigestCron != "" {
		stop, err := scheduleDigest(ctx, cfg.DigestCron, events, titler, engine.RealClock{})
		if err != nil {
			return err
		}
		defer stop()
	}

	go func() {
		<-ctx.Done()
		slog.Info(config.MsgCtxCancel, config.LogKeyComponent, config.CompMain)
	}()

	return server.New(cfg.Listen, events, engine.RealClock{}).Start(ctx)
}

// printVersion outputs the build information to stdout and exits.
func printVersion() {
	fmt.Printf(config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyCommit, config.Commit),
			slog.String(config.LogKeyDate, config.Date),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger.
// Logs go to stderr so that stdout only carries the requested output, and
// one-shot runs only report warnings unless debugging.
func setupLogging(debugMode, serveMode bool) io.Closer {
	var writers []io.Writer
	var logFile *os.File

	writers = append(writers, os.Stderr)

	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelWarn
	switch {
	case debugMode:
		level = slog.LevelDebug
	case serveMode:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts))
	slog.SetDefault(logger)

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)

	// Ensure the directory exists with restricted permissions (700).
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}
