package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/polaminggkub-debug/crux/internal/builtin"
	"github.com/polaminggkub-debug/crux/internal/filter"
	"github.com/polaminggkub-debug/crux/internal/pattern"
	"github.com/polaminggkub-debug/crux/internal/resolve"
	"github.com/polaminggkub-debug/crux/internal/stage"
)

// execute runs args through res, or through the resolved filter when res
// is nil, and records the exit code.
func (a *app) execute(ctx context.Context, args []string, res resolve.Result, timing bool) error {
	// The child sees interrupts directly; crux waits for it to exit and
	// reports its status.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	r := a.runner(timing)
	defer flush(r)

	var code int
	var err error
	if res == nil {
		code, err = r.Run(ctx, args)
	} else {
		code, err = r.RunWith(ctx, args, res)
	}
	if err != nil {
		return err
	}
	a.exitCode = code
	return nil
}

func (a *app) runCommand(ctx context.Context, args []string, timing bool) error {
	return a.execute(ctx, args, nil, timing)
}

func (a *app) runCmd() *cobra.Command {
	var timing bool
	cmd := &cobra.Command{
		Use:   "run <command> [args...]",
		Short: "Run a command through its filter",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCommand(cmd.Context(), args, timing)
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().BoolVar(&timing, "time", false, "print a resolve/exec/filter timing breakdown to stderr")
	return cmd
}

// fixed returns a command that applies one strategy regardless of what
// the command line would resolve to.
func (a *app) fixed(use, short string, res func() resolve.Result) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <command> [args...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.execute(cmd.Context(), args, res(), false)
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func handler(id, desc string, fn func(in builtin.Input) (string, error)) resolve.Result {
	return resolve.BuiltinResult{Entry: builtin.Entry{
		ID:          id,
		Pattern:     pattern.Parse(id),
		Description: desc,
		Handler:     builtin.HandlerFunc(fn),
	}}
}

func (a *app) errCmd() *cobra.Command {
	return a.fixed("err", "Show only the error lines of a command's output", func() resolve.Result {
		return handler("err", "error lines only", func(in builtin.Input) (string, error) {
			return builtin.ExtractErrors(in.Output), nil
		})
	})
}

func (a *app) testCmd() *cobra.Command {
	return a.fixed("test", "Summarize test results, detecting the framework", func() resolve.Result {
		return handler("test", "test summary", func(in builtin.Input) (string, error) {
			return builtin.SummarizeTests(a.builtins, in.Output, in.ExitCode), nil
		})
	})
}

// logSpec deduplicates and tidies output without dropping anything else.
var logSpec = &filter.Spec{
	Command:     "log",
	Description: "dedup, trim and collapse",
	ExitMask:    true,
	Tier:        filter.TierBuiltin,
	Stages: []stage.Config{
		{Kind: stage.KindDedup},
		{Kind: stage.KindTrimTrailing},
		{Kind: stage.KindCollapseBlank},
	},
}

func (a *app) logCmd() *cobra.Command {
	return a.fixed("log", "Deduplicate and tidy a command's output", func() resolve.Result {
		return resolve.SpecResult{Spec: logSpec}
	})
}

func (a *app) proxyCmd() *cobra.Command {
	return a.fixed("proxy", "Run a command unfiltered, still tracking it", func() resolve.Result {
		return resolve.Passthrough{}
	})
}
