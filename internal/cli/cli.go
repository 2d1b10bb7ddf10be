// Package cli wires the crux commands together.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/polaminggkub-debug/crux/internal/builtin"
	"github.com/polaminggkub-debug/crux/internal/cache"
	"github.com/polaminggkub-debug/crux/internal/config"
	"github.com/polaminggkub-debug/crux/internal/display"
	"github.com/polaminggkub-debug/crux/internal/engine"
	"github.com/polaminggkub-debug/crux/internal/filter"
	"github.com/polaminggkub-debug/crux/internal/logging"
	"github.com/polaminggkub-debug/crux/internal/resolve"
	"github.com/polaminggkub-debug/crux/internal/script"
	"github.com/polaminggkub-debug/crux/internal/tee"
	"github.com/polaminggkub-debug/crux/internal/tracking"
)

// version is overridden at build time with -ldflags "-X".
var version = "0.1.0"

// Version returns the current version string.
func Version() string {
	return version
}

// IO holds the streams a command runs against.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// app is the state shared by every command of one invocation.
type app struct {
	io       IO
	embedded fs.FS

	verbose int
	noCache bool
	stream  string

	cfg      *config.Config
	logger   *zap.Logger
	builtins *builtin.Registry
	resolver *resolve.Resolver

	// exitCode is what crux exits with when the command itself succeeded.
	exitCode int
}

// Run is the main entry point. Returns exit code.
func Run(args []string, embedded fs.FS) int {
	return RunIO(args, embedded, IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
}

// RunIO is Run with explicit streams.
func RunIO(args []string, embedded fs.FS, streams IO) int {
	a := &app{io: streams, embedded: embedded}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(streams.In)
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)

	err := root.ExecuteContext(context.Background())
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if err == nil {
		return a.exitCode
	}

	var se *engine.SpawnError
	if errors.As(err, &se) {
		a.printError(se.Error())
		return se.ExitStatus()
	}
	a.printError(err.Error())
	return 1
}

func (a *app) printError(msg string) {
	if f, ok := a.io.Err.(*os.File); ok && f == os.Stderr {
		display.PrintError(msg)
		return
	}
	fmt.Fprintln(a.io.Err, "crux: "+msg)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "crux [flags] <command> [args...]",
		Short: "Compress command output before it reaches an agent",
		Long: `crux runs a command and rewrites its output into a compact form using
declarative filters and built-in handlers. The exit code of the command is
preserved.

Filters are looked up in ./.crux/filters, ~/.config/crux/filters, the
filters embedded in the binary, then the built-in handlers. Commands with no
filter run unchanged.

Use "crux run <command>" when the command name collides with a crux
subcommand.`,
		Example: `  crux git status
  crux go test ./...
  crux run --time cargo build
  crux gain --daily`,
		Version:           version,
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return a.runCommand(cmd.Context(), args, false)
		},
	}
	root.SetVersionTemplate("crux v{{.Version}}\n")
	root.Flags().SetInterspersed(false)

	pf := root.PersistentFlags()
	pf.CountVarP(&a.verbose, "verbose", "v", "verbose output (repeat for more)")
	pf.BoolVar(&a.noCache, "no-cache", false, "bypass the filter discovery cache")
	pf.StringVar(&a.stream, "stream", "", "streams to filter: combined or stdout")

	root.AddCommand(
		a.runCmd(),
		a.errCmd(),
		a.testCmd(),
		a.logCmd(),
		a.proxyCmd(),
		a.lsCmd(),
		a.whichCmd(),
		a.showCmd(),
		a.ejectCmd(),
		a.gainCmd(),
		a.historyCmd(),
		a.initCmd(),
		a.hookCmd(),
		a.verifyCmd(),
		a.cacheCmd(),
		a.configCmd(),
	)
	return root
}

// setup loads configuration and builds the logger. A broken config file is
// reported and defaults are used.
func (a *app) setup() error {
	a.logger = logging.New(a.verbose, a.io.Err)
	cfg, err := config.Load()
	if err != nil {
		a.logger.Warn("config error, using defaults", zap.Error(err))
		cfg = config.DefaultConfig()
	}
	if a.noCache {
		cfg.Cache.Enabled = false
	}
	if a.stream != "" {
		cfg.Output.Stream = a.stream
	}
	if _, err := engine.ParseStreamMode(cfg.Output.Stream); err != nil {
		return err
	}
	a.cfg = cfg
	a.builtins = builtin.Default()
	a.resolver = resolve.New(a.loadIndex, a.builtins)
	a.resolver.Logger = a.logger
	return nil
}

// sources lists the spec tiers in precedence order. Directories are made
// absolute so that cache entries of different projects never collide.
func (a *app) sources() []filter.Source {
	srcs := []filter.Source{
		filter.DirSource(filter.TierLocal, absDir(a.cfg.Filters.LocalDir)),
		filter.DirSource(filter.TierGlobal, absDir(a.cfg.Filters.GlobalDir)),
	}
	if a.embedded != nil {
		srcs = append(srcs, filter.Source{Tier: filter.TierEmbedded, FS: a.embedded, Root: "embedded"})
	}
	return srcs
}

func absDir(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

func (a *app) cache() *cache.Cache {
	path := a.cfg.Cache.Path
	if path == "" {
		path = cache.DefaultPath()
	}
	c := &cache.Cache{Path: path, Sources: a.sources(), Logger: a.logger}
	if a.cfg.Cache.Fingerprint == "mtime" {
		c.Fingerprinter = cache.ModTime{}
	}
	return c
}

func (a *app) loadIndex() *filter.Index {
	if a.cfg.Cache.Enabled {
		return a.cache().Load()
	}
	ix, errs := filter.LoadAll(a.sources()...)
	for _, err := range errs {
		a.logger.Warn("skipping filter", zap.Error(err))
	}
	return ix
}

func (a *app) evaluator() script.Evaluator {
	return script.Evaluator{Timeout: a.cfg.Script.Timeout.Duration}
}

func (a *app) teeConfig() tee.Config {
	t := a.cfg.Tee
	return tee.Config{
		Enabled:     t.Enabled,
		Mode:        tee.Mode(t.Mode),
		MaxFiles:    t.MaxFiles,
		MaxFileSize: t.MaxFileSize,
		MinSize:     t.MinSize,
		Dir:         t.Dir,
	}.WithEnv()
}

// recorder starts the tracking sink, or returns nil when tracking is off
// or unsupported by this build.
func (a *app) recorder() *tracking.Recorder {
	if !a.cfg.Tracking.Enabled || !tracking.DriverAvailable {
		return nil
	}
	return tracking.NewRecorder(tracking.DBPath(a.cfg.Tracking.DBPath), a.cfg.Tracking.History, a.logger)
}

func (a *app) tracker() (*tracking.Tracker, error) {
	return tracking.NewTracker(tracking.DBPath(a.cfg.Tracking.DBPath))
}

func (a *app) runner(timing bool) *engine.Runner {
	mode, _ := engine.ParseStreamMode(a.cfg.Output.Stream)
	return &engine.Runner{
		Resolver:  a.resolver,
		Executor:  &engine.Executor{Stdin: a.io.In, Stdout: a.io.Out, Stderr: a.io.Err},
		Evaluator: a.evaluator(),
		Recorder:  a.recorder(),
		Tee:       a.teeConfig(),
		Stream:    mode,
		Timing:    timing,
		Verbose:   a.verbose,
		Logger:    a.logger,
		Stdout:    a.io.Out,
		Stderr:    a.io.Err,
	}
}

// flush waits briefly for pending tracking writes.
func flush(r *engine.Runner) {
	start := time.Now()
	r.Recorder.Flush()
	if r.Logger != nil {
		r.Logger.Debug("tracking flushed", zap.Duration("took", time.Since(start)))
	}
}
