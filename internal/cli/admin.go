package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/polaminggkub-debug/crux/internal/config"
	"github.com/polaminggkub-debug/crux/internal/display"
	"github.com/polaminggkub-debug/crux/internal/filter"
	"github.com/polaminggkub-debug/crux/internal/hook"
	"github.com/polaminggkub-debug/crux/internal/tracking"
	"github.com/polaminggkub-debug/crux/internal/verify"
)

func (a *app) gainCmd() *cobra.Command {
	var opts display.GainOptions
	cmd := &cobra.Command{
		Use:   "gain",
		Short: "Show token savings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, err := a.tracker()
			if err != nil {
				if errors.Is(err, tracking.ErrUnavailable) {
					return errors.New("tracking is not available in this build")
				}
				return err
			}
			defer tracker.Close()
			return display.RunGain(cmd.OutOrStdout(), tracker, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.Daily, "daily", false, "per-day breakdown")
	f.BoolVar(&opts.Weekly, "weekly", false, "per-week breakdown")
	f.BoolVar(&opts.Monthly, "monthly", false, "per-month breakdown")
	f.IntVar(&opts.Top, "top", 10, "number of commands in the top list")
	f.IntVar(&opts.History, "history", 0, "list the last N runs")
	f.IntVar(&opts.Days, "days", 7, "days covered by --daily, --json and --csv")
	f.BoolVar(&opts.JSON, "json", false, "JSON output")
	f.BoolVar(&opts.CSV, "csv", false, "CSV output")
	cmd.MarkFlagsMutuallyExclusive("json", "csv")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [N]",
		Short: "Show raw and filtered output of recent runs",
		Long:  "history lists stored runs. Runs are stored only when tracking.history is enabled.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 10
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v <= 0 {
					return fmt.Errorf("invalid count %q", args[0])
				}
				n = v
			}
			tracker, err := a.tracker()
			if err != nil {
				return err
			}
			defer tracker.Close()
			entries, err := tracker.GetHistory(n)
			if err != nil {
				return err
			}
			display.History(cmd.OutOrStdout(), entries)
			return nil
		},
	}
}

func (a *app) initCmd() *cobra.Command {
	var uninstall bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Install the agent hook that routes shell commands through crux",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			settings, err := hook.SettingsPath()
			if err != nil {
				return err
			}
			if uninstall {
				changed, err := hook.Uninstall(settings)
				if err != nil {
					return err
				}
				if changed {
					fmt.Fprintf(w, "crux hook removed from %s\n", settings)
				} else {
					fmt.Fprintln(w, "crux hook was not installed")
				}
				return nil
			}

			if err := os.MkdirAll(a.cfg.Filters.GlobalDir, 0755); err != nil {
				return fmt.Errorf("create filter dir: %w", err)
			}
			changed, err := hook.Install(settings)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintf(w, "crux hook already installed in %s\n", settings)
				return nil
			}
			fmt.Fprintln(w, "crux init complete:")
			fmt.Fprintf(w, "  hook:     %s\n", hook.Command)
			fmt.Fprintf(w, "  settings: %s (backup in %s.bak)\n", settings, settings)
			fmt.Fprintf(w, "  filters:  %s\n", a.cfg.Filters.GlobalDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&uninstall, "uninstall", false, "remove the hook")
	return cmd
}

func (a *app) hookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "hook",
		Short:  "Agent hook entry points",
		Hidden: true,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "handle",
		Short: "Answer a PreToolUse event read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return hook.Handle(cmd.InOrStdin(), cmd.OutOrStdout(), a.resolver)
		},
	})
	return cmd
}

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [dir]",
		Short: "Run the declarative tests that sit next to filter files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			srcs := a.sources()
			if len(args) == 1 {
				srcs = []filter.Source{filter.DirSource(filter.TierLocal, args[0])}
			}
			w := cmd.OutOrStdout()
			r := &verify.Runner{Builtins: a.builtins, Evaluator: a.evaluator(), Logger: a.logger}

			var total, failed int
			for _, src := range srcs {
				cases, errs := verify.Discover(src)
				for _, err := range errs {
					fmt.Fprintf(w, "ERROR %v\n", err)
					failed++
				}
				for _, res := range r.RunAll(cmd.Context(), cases) {
					total++
					name := res.Case.Spec.Source + " " + res.Case.Name
					switch {
					case res.Err != nil:
						failed++
						fmt.Fprintf(w, "ERROR %s: %v\n", name, res.Err)
					case !res.Passed():
						failed++
						fmt.Fprintf(w, "FAIL  %s\n%s\n", name, res.Diff)
					default:
						fmt.Fprintf(w, "ok    %s\n", name)
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d filter tests failed", failed, total)
			}
			fmt.Fprintf(w, "%d filter tests passed\n", total)
			return nil
		},
	}
}

func (a *app) cacheCmd() *cobra.Command {
	var wipe bool
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Rebuild or clear the filter discovery cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.cache()
			w := cmd.OutOrStdout()
			if wipe {
				if err := c.Clear(); err != nil {
					return err
				}
				fmt.Fprintf(w, "removed %s\n", c.Path)
				return nil
			}
			ix := c.Refresh()
			fmt.Fprintf(w, "indexed %d filters into %s\n", ix.Len(), c.Path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&wipe, "clear", false, "delete the cache file")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Encode(a.cfg)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "# %s\n", config.Path())
			_, err = w.Write(data)
			return err
		},
	}
}
