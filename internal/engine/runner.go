package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/polaminggkub-debug/crux/internal/resolve"
	"github.com/polaminggkub-debug/crux/internal/stage"
	"github.com/polaminggkub-debug/crux/internal/tee"
	"github.com/polaminggkub-debug/crux/internal/tracking"
	"github.com/polaminggkub-debug/crux/internal/utils"
)

// ErrNoCommand is returned when Run is given nothing to execute.
var ErrNoCommand = errors.New("no command given")

// Runner orchestrates a full invocation: resolve, execute, filter, save
// raw output, record, print.
type Runner struct {
	Resolver  *resolve.Resolver
	Executor  *Executor
	Evaluator stage.Evaluator
	// Recorder is nil when tracking is off. Unfiltered commands then run
	// with inherited stdio instead of being captured.
	Recorder *tracking.Recorder
	Tee      tee.Config
	Stream   StreamMode
	// Timing prints a phase breakdown to stderr.
	Timing  bool
	Verbose int
	Logger  *zap.Logger

	Stdout io.Writer
	Stderr io.Writer
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout == nil {
		return os.Stdout
	}
	return r.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr == nil {
		return os.Stderr
	}
	return r.Stderr
}

// Run resolves args and runs them through the matching filter. The
// returned code is what crux should exit with. An error is returned only
// when the command could not be started.
func (r *Runner) Run(ctx context.Context, args []string) (int, error) {
	if len(args) == 0 {
		return 1, ErrNoCommand
	}
	timed := tracking.Start()
	res := r.Resolver.Resolve(args)
	timed.Mark("resolve")
	r.logger().Debug("resolved", zap.Strings("command", args),
		zap.String("filter", res.Name()), zap.Stringer("tier", res.Tier()))
	return r.run(ctx, args, res, timed)
}

// RunWith runs args through res instead of resolving them.
func (r *Runner) RunWith(ctx context.Context, args []string, res resolve.Result) (int, error) {
	if len(args) == 0 {
		return 1, ErrNoCommand
	}
	timed := tracking.Start()
	timed.Mark("resolve")
	return r.run(ctx, args, res, timed)
}

func (r *Runner) run(ctx context.Context, args []string, res resolve.Result, timed *tracking.Timed) (int, error) {
	x := r.Executor
	if x == nil {
		x = &Executor{Stdout: r.Stdout, Stderr: r.Stderr}
	}
	if resolve.IsPassthrough(res) && r.Recorder == nil {
		return x.Passthrough(ctx, args[0], args[1:])
	}

	out, err := x.Execute(ctx, args[0], args[1:])
	if err != nil {
		return 0, err
	}
	timed.Mark("exec")

	if r.Resolver != nil {
		res = r.Resolver.Refine(res, out.Combined())
	}
	cmdline := strings.Join(args, " ")
	o := Apply(ctx, res, *out, Options{
		Stream:    r.Stream,
		Command:   cmdline,
		Evaluator: r.Evaluator,
		Logger:    r.logger(),
	})
	timed.Mark("filter")

	stdout, stderr := r.stdout(), r.stderr()
	printed := o.Output()
	if o.Filtered {
		io.WriteString(stdout, printed)
		if o.Stderr != "" {
			io.WriteString(stderr, o.Stderr)
		}
		path, err := tee.Save(o.Input, out.ExitCode, cmdline, r.Tee)
		if err != nil {
			r.logger().Debug("raw output not saved", zap.Error(err))
		} else if path != "" {
			fmt.Fprintln(stderr, tee.Hint(path))
		}
		if out.ExitCode != 0 {
			fmt.Fprintf(stderr, "crux: exit code %d\n", out.ExitCode)
		}
	} else {
		// Raw output keeps its streams apart.
		io.WriteString(stdout, out.Stdout)
		io.WriteString(stderr, out.Stderr)
		printed = o.Input
	}

	r.Recorder.Record(tracking.Event{
		RunID:       tracking.NewRunID(),
		Command:     cmdline,
		Filter:      res.Name(),
		Tier:        res.Tier().String(),
		InputBytes:  len(o.Input),
		OutputBytes: len(printed),
		InputLines:  utils.CountLines(o.Input),
		OutputLines: utils.CountLines(printed),
		ExitCode:    o.ExitCode,
		Duration:    out.Duration(),
		Timestamp:   out.End,
	}, o.Input, printed)

	if r.Verbose > 0 && len(o.Input) > 0 && len(o.Input) != len(printed) {
		saved := float64(len(o.Input)-len(printed)) / float64(len(o.Input)) * 100
		fmt.Fprintf(stderr, "crux: %d → %d bytes (%.0f%% saved)\n", len(o.Input), len(printed), saved)
	}
	if r.Timing {
		r.printTiming(timed, len(o.Input), len(printed))
	}
	return o.ExitCode, nil
}

func (r *Runner) printTiming(timed *tracking.Timed, in, out int) {
	w := r.stderr()
	fmt.Fprintln(w, "crux: timing breakdown:")
	for _, p := range timed.Phases() {
		fmt.Fprintf(w, "  %-18s %s\n", p.Name+":", ms(p.Duration))
	}
	fmt.Fprintf(w, "  %-18s %s\n", "total:", ms(timed.Elapsed()))
	fmt.Fprintf(w, "  %-18s %d bytes\n", "input size:", in)
	fmt.Fprintf(w, "  %-18s %d bytes\n", "output size:", out)
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
}
