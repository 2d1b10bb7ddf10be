package stage

import (
	"errors"
	"fmt"
	"regexp"
)

var errMissing = errors.New("missing required field")

// Compile validates cfg and returns the stage it describes.
func Compile(cfg Config) (Stage, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("stage kind: %w", errMissing)
	}
	s, err := compile(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Kind, err)
	}
	return s, nil
}

// CompileAll compiles cfgs in order, stopping at the first invalid stage.
func CompileAll(cfgs []Config) ([]Stage, error) {
	stages := make([]Stage, 0, len(cfgs))
	for i, cfg := range cfgs {
		s, err := Compile(cfg)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i+1, err)
		}
		stages = append(stages, s)
	}
	return stages, nil
}

func compile(cfg Config) (Stage, error) {
	switch cfg.Kind {
	case KindMatchOutput:
		if len(cfg.Rules) == 0 {
			return nil, fmt.Errorf("%w: rules", errMissing)
		}
		s := &matchOutputStage{}
		for _, r := range cfg.Rules {
			if r.Pattern == "" && r.Contains == "" {
				return nil, fmt.Errorf("%w: pattern or contains", errMissing)
			}
			// Without halt_with the matched text itself is the output.
			cr := matchRule{contains: r.Contains, haltWith: r.Template}
			if cr.haltWith == "" {
				cr.haltWith = r.Contains
			}
			if r.Pattern != "" {
				re, err := compilePattern(r.Pattern)
				if err != nil {
					return nil, err
				}
				cr.re = re
			}
			s.rules = append(s.rules, cr)
		}
		return s, nil

	case KindStripANSI:
		return stripANSIStage{}, nil

	case KindClean:
		return cleanStage{}, nil

	case KindReplace:
		if len(cfg.Rules) == 0 {
			return nil, fmt.Errorf("%w: rules", errMissing)
		}
		s := &replaceStage{}
		for _, r := range cfg.Rules {
			re, err := requirePattern(r.Pattern)
			if err != nil {
				return nil, err
			}
			s.rules = append(s.rules, templateRule{re: re, tmpl: r.Template})
		}
		return s, nil

	case KindSkip, KindKeep:
		if len(cfg.Patterns) == 0 {
			return nil, fmt.Errorf("%w: patterns", errMissing)
		}
		res, err := compilePatterns(cfg.Patterns)
		if err != nil {
			return nil, err
		}
		return &lineFilterStage{kind: cfg.Kind, res: res}, nil

	case KindSection:
		if len(cfg.Sections) == 0 {
			return nil, fmt.Errorf("%w: sections", errMissing)
		}
		s := &sectionStage{}
		for _, r := range cfg.Sections {
			start, err := requirePattern(r.Start)
			if err != nil {
				return nil, fmt.Errorf("start: %w", err)
			}
			cr := sectionRule{start: start, name: r.Name}
			if r.End != "" {
				if cr.end, err = compilePattern(r.End); err != nil {
					return nil, fmt.Errorf("end: %w", err)
				}
			}
			s.rules = append(s.rules, cr)
		}
		return s, nil

	case KindExtract:
		if len(cfg.Rules) == 0 {
			return nil, fmt.Errorf("%w: rules", errMissing)
		}
		s := &extractStage{}
		for _, r := range cfg.Rules {
			re, err := requirePattern(r.Pattern)
			if err != nil {
				return nil, err
			}
			tmpl := r.Template
			if tmpl == "" {
				tmpl = "{0}"
			}
			s.rules = append(s.rules, templateRule{re: re, tmpl: tmpl})
		}
		return s, nil

	case KindDedup:
		return dedupStage{}, nil

	case KindTemplate:
		if cfg.Template == "" {
			return nil, fmt.Errorf("%w: template", errMissing)
		}
		return &templateStage{tmpl: cfg.Template, vars: cfg.Vars}, nil

	case KindTrimTrailing:
		return trimStage{}, nil

	case KindCollapseBlank:
		return collapseStage{}, nil

	case KindHead, KindTail:
		if cfg.Count <= 0 {
			return nil, fmt.Errorf("%w: a positive line count", errMissing)
		}
		return &windowStage{kind: cfg.Kind, n: cfg.Count}, nil

	case KindScript:
		if cfg.Source == "" {
			return nil, fmt.Errorf("%w: source", errMissing)
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultScriptTimeout
		}
		return &scriptStage{source: cfg.Source, timeout: timeout}, nil

	}
	return nil, ErrUnknownKind
}

func requirePattern(p string) (*regexp.Regexp, error) {
	if p == "" {
		return nil, fmt.Errorf("%w: pattern", errMissing)
	}
	return compilePattern(p)
}

func compilePattern(p string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", p, err)
	}
	return re, nil
}

func compilePatterns(ps []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(ps))
	for _, p := range ps {
		re, err := compilePattern(p)
		if err != nil {
			return nil, err
		}
		res = append(res, re)
	}
	return res, nil
}
