package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/polaminggkub-debug/crux/internal/builtin"
	"github.com/polaminggkub-debug/crux/internal/resolve"
	"github.com/polaminggkub-debug/crux/internal/stage"
	"github.com/polaminggkub-debug/crux/internal/utils"
)

// StreamMode chooses which captured streams a filter sees.
type StreamMode string

const (
	// StreamCombined filters stdout and stderr joined together.
	StreamCombined StreamMode = "combined"
	// StreamStdout filters stdout only and re-emits stderr untouched.
	StreamStdout StreamMode = "stdout"
)

// ParseStreamMode validates a --stream value. Empty means combined.
func ParseStreamMode(s string) (StreamMode, error) {
	switch StreamMode(s) {
	case "", StreamCombined:
		return StreamCombined, nil
	case StreamStdout:
		return StreamStdout, nil
	}
	return "", fmt.Errorf("invalid stream mode %q (want combined or stdout)", s)
}

// Options configures Apply.
type Options struct {
	Stream    StreamMode
	Command   string
	Evaluator stage.Evaluator
	Logger    *zap.Logger
}

// Outcome is what a run prints and exits with.
type Outcome struct {
	// Input is the text the filter was given.
	Input string
	// Text is the filter result, or Input when nothing was applied.
	Text string
	// Stderr is raw stderr to re-emit in stdout stream mode.
	Stderr   string
	ExitCode int
	// Filtered is set when a filter produced Text.
	Filtered bool
	// Err explains why a filter fell back to raw output.
	Err error
}

// Output is the text to write to stdout. Filtered text always ends with a
// single newline; raw passthrough text is left byte for byte.
func (o Outcome) Output() string {
	if o.Filtered {
		return utils.EnsureNewline(o.Text)
	}
	return o.Text
}

// Apply runs the resolved filter over captured output. It never fails:
// any problem with the filter yields the raw output and original exit code.
func Apply(ctx context.Context, res resolve.Result, out Captured, opts Options) Outcome {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	o := Outcome{ExitCode: out.ExitCode}
	if opts.Stream == StreamStdout {
		o.Input = out.Stdout
		o.Stderr = out.Stderr
	} else {
		o.Input = out.Combined()
	}
	o.Text = o.Input

	switch r := res.(type) {
	case resolve.SpecResult:
		stages, err := r.Spec.Compile()
		if err != nil {
			log.Warn("filter failed to compile", zap.Error(err))
			o.Err = err
			return o
		}
		env := &stage.Env{
			Command:    opts.Command,
			ExitCode:   out.ExitCode,
			Duration:   out.Duration(),
			InputBytes: len(o.Input),
			InputLines: utils.CountLines(o.Input),
			Evaluator:  opts.Evaluator,
		}
		o.Text = Fold(ctx, stages, o.Input, env, log)
		o.Filtered = true
		o.ExitCode = ExitCode(out.ExitCode, r.Spec.ExitMask)

	case resolve.BuiltinResult:
		text, err := builtin.Run(r.Entry, o.Input, out.ExitCode)
		if err != nil {
			if errors.Is(err, builtin.ErrUnrecognized) {
				log.Debug("builtin did not recognize output", zap.Error(err))
			} else {
				log.Warn("builtin failed", zap.Error(err))
			}
			o.Err = err
			return o
		}
		o.Text = text
		o.Filtered = true
		o.ExitCode = ExitCode(out.ExitCode, r.ExitMask())
	}
	return o
}

// Fold applies stages in order. A stage that errors leaves the text as it
// was; a stage that halts ends the fold.
func Fold(ctx context.Context, stages []stage.Stage, text string, env *stage.Env, log *zap.Logger) string {
	for _, s := range stages {
		next, verdict, err := s.Apply(ctx, text, env)
		if err != nil {
			log.Debug("stage failed, output unchanged", zap.Error(err))
			continue
		}
		text = next
		if verdict == stage.Halt {
			break
		}
	}
	return text
}
