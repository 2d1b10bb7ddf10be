package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/polaminggkub-debug/crux/internal/display"
	"github.com/polaminggkub-debug/crux/internal/filter"
	"github.com/polaminggkub-debug/crux/internal/resolve"
)

func (a *app) lsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List every filter crux can resolve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			var rows [][]string
			shadowed := false
			for _, l := range a.resolver.List() {
				tier := l.Tier.String()
				if l.Shadowed {
					tier += "*"
					shadowed = true
				}
				rows = append(rows, []string{l.Pattern, tier, orDash(l.Source), l.Description})
			}
			fmt.Fprint(w, display.FormatTable([]string{"Pattern", "Tier", "Source", "Description"}, rows))
			if shadowed {
				fmt.Fprintln(w, "\n* shadowed by a higher tier")
			}
			return nil
		},
	}
}

// describe is the one-line form of a resolution.
func describe(res resolve.Result) string {
	switch r := res.(type) {
	case resolve.SpecResult:
		return fmt.Sprintf("%s  (%s: %s)", r.Spec.Command, r.Spec.Tier, r.Spec.Source)
	case resolve.BuiltinResult:
		if r.Shadow != nil {
			return fmt.Sprintf("%s  (builtin via %s: %s)", r.Entry.ID, r.Shadow.Tier, r.Shadow.Source)
		}
		return fmt.Sprintf("%s  (builtin: %s)", r.Entry.ID, r.Entry.Pattern)
	}
	return "no filter (passthrough)"
}

func (a *app) whichCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "which <command> [args...]",
		Short: "Show which filter a command resolves to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, as := a.resolver.Explain(args)
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, describe(res))
			if !resolve.IsPassthrough(res) && strings.Join(as, " ") != strings.Join(args, " ") {
				fmt.Fprintf(w, "  matched as: %s\n", strings.Join(as, " "))
			}
			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <command> [args...]",
		Short: "Show the filter a command resolves to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			res := a.resolver.Resolve(args)
			switch r := res.(type) {
			case resolve.SpecResult:
				fmt.Fprintf(w, "# %s\n", describe(res))
				data, err := filter.Encode(r.Spec, filter.FormatTOML)
				if err != nil {
					return err
				}
				_, err = w.Write(data)
				return err
			case resolve.BuiltinResult:
				fmt.Fprintf(w, "builtin:     %s\n", r.Entry.ID)
				fmt.Fprintf(w, "pattern:     %s\n", r.Entry.Pattern)
				fmt.Fprintf(w, "description: %s\n", orDash(r.Entry.Description))
				if r.Shadow != nil {
					fmt.Fprintf(w, "declared in: %s (%s)\n", r.Shadow.Source, r.Shadow.Tier)
				}
				return nil
			}
			fmt.Fprintln(w, describe(res))
			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

var slugRe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// specFileName derives a file name from a command pattern.
func specFileName(pattern string, format filter.Format) string {
	slug := strings.Trim(slugRe.ReplaceAllString(pattern, "-"), "-")
	if slug == "" {
		slug = "filter"
	}
	return slug + format.Ext()
}

// ejectable returns an editable spec for res: a copy of the matched spec,
// or a builtin shadow that delegates to the compiled handler.
func ejectable(res resolve.Result) (*filter.Spec, error) {
	switch r := res.(type) {
	case resolve.SpecResult:
		s := *r.Spec
		return &s, nil
	case resolve.BuiltinResult:
		if r.Shadow != nil {
			s := *r.Shadow
			return &s, nil
		}
		return &filter.Spec{
			Command:     r.Entry.Pattern.String(),
			Description: r.Entry.Description,
			Builtin:     true,
			ExitMask:    true,
		}, nil
	}
	return nil, errors.New("no filter matches this command")
}

func (a *app) ejectCmd() *cobra.Command {
	var (
		global bool
		format string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "eject <command> [args...]",
		Short: "Copy the filter for a command into an editable file",
		Long: `eject writes the filter a command resolves to into the local filter
directory (or the global one with --global), where it takes precedence and
can be edited. A built-in handler is written as a spec with builtin = true,
which keeps using the handler until stages are added in its place.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, ok := filter.FormatFor("x." + format)
			if !ok {
				return fmt.Errorf("invalid format %q (want toml or yaml)", format)
			}
			spec, err := ejectable(a.resolver.Resolve(args))
			if err != nil {
				return err
			}
			data, err := filter.Encode(spec, f)
			if err != nil {
				return err
			}

			dir := a.cfg.Filters.LocalDir
			if global {
				dir = a.cfg.Filters.GlobalDir
			}
			path := filepath.Join(dir, specFileName(spec.Command, f))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create filter dir: %w", err)
			}
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("write filter: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ejected %q to %s\n", spec.Command, path)
			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().BoolVar(&global, "global", false, "write to the global filter directory")
	cmd.Flags().StringVar(&format, "format", "toml", "file format: toml or yaml")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
