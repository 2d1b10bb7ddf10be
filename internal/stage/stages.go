package stage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/polaminggkub-debug/crux/internal/utils"
)

type matchRule struct {
	re       *regexp.Regexp
	contains string
	haltWith string
}

func (r matchRule) matches(text string) bool {
	if r.re != nil {
		return r.re.MatchString(text)
	}
	return strings.Contains(text, r.contains)
}

// output is the text a matching rule halts with.
func (r matchRule) output(text string) string {
	if r.haltWith == "" && r.re != nil {
		return r.re.FindString(text)
	}
	return r.haltWith
}

type matchOutputStage struct {
	rules []matchRule
}

func (*matchOutputStage) Kind() Kind { return KindMatchOutput }

func (s *matchOutputStage) Apply(_ context.Context, text string, _ *Env) (string, Verdict, error) {
	for _, r := range s.rules {
		if r.matches(text) {
			return r.output(text), Halt, nil
		}
	}
	return text, Continue, nil
}

type stripANSIStage struct{}

func (stripANSIStage) Kind() Kind { return KindStripANSI }

func (stripANSIStage) Apply(_ context.Context, text string, _ *Env) (string, Verdict, error) {
	return StripANSI(text), Continue, nil
}

type cleanStage struct{}

func (cleanStage) Kind() Kind { return KindClean }

func (cleanStage) Apply(_ context.Context, text string, _ *Env) (string, Verdict, error) {
	return Clean(text), Continue, nil
}

type templateRule struct {
	re   *regexp.Regexp
	tmpl string
}

// replaceStage substitutes line by line so that ^ and $ anchor to lines.
type replaceStage struct {
	rules []templateRule
}

func (*replaceStage) Kind() Kind { return KindReplace }

func (s *replaceStage) Apply(_ context.Context, text string, _ *Env) (string, Verdict, error) {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		for _, r := range s.rules {
			l = r.re.ReplaceAllString(l, r.tmpl)
		}
		lines[i] = l
	}
	return strings.Join(lines, "\n"), Continue, nil
}

type lineFilterStage struct {
	kind Kind
	res  []*regexp.Regexp
}

func (s *lineFilterStage) Kind() Kind { return s.kind }

func (s *lineFilterStage) Apply(_ context.Context, text string, _ *Env) (string, Verdict, error) {
	if s.kind == KindSkip {
		return SkipKeep(text, s.res, nil), Continue, nil
	}
	return SkipKeep(text, nil, s.res), Continue, nil
}

type sectionRule struct {
	start *regexp.Regexp
	end   *regexp.Regexp
	name  string
}

// sectionStage keeps only the lines inside sections. A section opens on a
// start match and closes on the next end match, both lines included. A
// section left open at the end of the buffer is dropped, unless its rule
// has no end pattern.
type sectionStage struct {
	rules []sectionRule
}

func (*sectionStage) Kind() Kind { return KindSection }

func (s *sectionStage) Apply(_ context.Context, text string, env *Env) (string, Verdict, error) {
	var (
		out    []string
		buf    []string
		active = -1
		found  = make(map[int][]string)
	)
	closeSection := func() {
		found[active] = append(found[active], buf...)
		out = append(out, buf...)
		buf, active = nil, -1
	}
	for _, line := range utils.SplitLines(text) {
		if active >= 0 {
			buf = append(buf, line)
			if end := s.rules[active].end; end != nil && end.MatchString(line) {
				closeSection()
			}
			continue
		}
		for i, r := range s.rules {
			if r.start.MatchString(line) {
				active, buf = i, []string{line}
				break
			}
		}
	}
	if active >= 0 && s.rules[active].end == nil {
		closeSection()
	}
	if env != nil {
		for i, r := range s.rules {
			lines, ok := found[i]
			if !ok {
				continue
			}
			joined := strings.Join(lines, "\n")
			env.setSection("section_"+strconv.Itoa(i), joined)
			if r.name != "" {
				env.setSection(r.name, joined)
			}
		}
		env.setSection("section", strings.Join(out, "\n"))
	}
	return strings.Join(out, "\n"), Continue, nil
}

// extractStage replaces the buffer with the template of the first rule
// that matches. No match empties the buffer.
type extractStage struct {
	rules []templateRule
}

func (*extractStage) Kind() Kind { return KindExtract }

func (s *extractStage) Apply(_ context.Context, text string, _ *Env) (string, Verdict, error) {
	for _, r := range s.rules {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		names := r.re.SubexpNames()
		out := Render(r.tmpl, func(name string) (string, bool) {
			if i, err := strconv.Atoi(name); err == nil {
				if i < len(m) {
					return m[i], true
				}
				return "", false
			}
			for i, n := range names {
				if n != "" && n == name {
					return m[i], true
				}
			}
			return "", false
		})
		return out, Continue, nil
	}
	return "", Continue, nil
}

type dedupStage struct{}

func (dedupStage) Kind() Kind { return KindDedup }

func (dedupStage) Apply(_ context.Context, text string, _ *Env) (string, Verdict, error) {
	return Dedup(text), Continue, nil
}

type templateStage struct {
	tmpl string
	vars map[string]string
}

func (*templateStage) Kind() Kind { return KindTemplate }

func (s *templateStage) Apply(_ context.Context, text string, env *Env) (string, Verdict, error) {
	return Render(s.tmpl, func(name string) (string, bool) {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
		return env.lookup(name, text)
	}), Continue, nil
}

type trimStage struct{}

func (trimStage) Kind() Kind { return KindTrimTrailing }

func (trimStage) Apply(_ context.Context, text string, _ *Env) (string, Verdict, error) {
	return TrimTrailingWhitespace(text), Continue, nil
}

type collapseStage struct{}

func (collapseStage) Kind() Kind { return KindCollapseBlank }

func (collapseStage) Apply(_ context.Context, text string, _ *Env) (string, Verdict, error) {
	return CollapseBlankLines(text), Continue, nil
}

type windowStage struct {
	kind Kind
	n    int
}

func (s *windowStage) Kind() Kind { return s.kind }

func (s *windowStage) Apply(_ context.Context, text string, _ *Env) (string, Verdict, error) {
	if s.kind == KindHead {
		return Head(text, s.n), Continue, nil
	}
	return Tail(text, s.n), Continue, nil
}

var errNoEvaluator = errors.New("no script evaluator configured")

type scriptStage struct {
	source  string
	timeout time.Duration
}

func (*scriptStage) Kind() Kind { return KindScript }

// Apply runs the script under its timeout. Any failure leaves text as it
// was; the error is returned for the caller to report.
func (s *scriptStage) Apply(ctx context.Context, text string, env *Env) (string, Verdict, error) {
	if env == nil || env.Evaluator == nil {
		return text, Continue, &RuntimeError{Stage: KindScript, Err: errNoEvaluator}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := env.Evaluator.Evaluate(ctx, ScriptRequest{
		Source:   s.source,
		Input:    text,
		ExitCode: env.ExitCode,
	})
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("timed out after %s: %w", s.timeout, ctx.Err())
		}
		return text, Continue, &RuntimeError{Stage: KindScript, Err: err}
	}
	return out, Continue, nil
}

// lookup resolves the variables a template stage can reference.
func (e *Env) lookup(name, text string) (string, bool) {
	if e == nil {
		e = &Env{}
	}
	if v, ok := e.Sections[name]; ok {
		return v, true
	}
	switch name {
	case "output":
		return text, true
	case "lines":
		return strconv.Itoa(utils.CountLines(text)), true
	case "bytes":
		return strconv.Itoa(len(text)), true
	case "exit_code":
		return strconv.Itoa(e.ExitCode), true
	case "duration":
		return e.Duration.Round(time.Millisecond).String(), true
	case "duration_ms":
		return strconv.FormatInt(e.Duration.Milliseconds(), 10), true
	case "input_lines":
		return strconv.Itoa(e.InputLines), true
	case "input_bytes":
		return strconv.Itoa(e.InputBytes), true
	case "command":
		return e.Command, true
	}
	return "", false
}
