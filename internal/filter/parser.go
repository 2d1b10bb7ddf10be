package filter

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/polaminggkub-debug/crux/internal/stage"
)

// Format is a specification file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file name's extension.
func FormatFor(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		return FormatTOML, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return "", false
}

// Ext is the file extension written for f.
func (f Format) Ext() string { return "." + string(f) }

// Document is the on-disk shape of a specification. Stages are given either
// as flat keys, compiled in canonical order, or as an explicit pipeline
// list, never both.
type Document struct {
	Command                string            `toml:"command" yaml:"command"`
	Description            string            `toml:"description,omitempty" yaml:"description,omitempty"`
	Priority               int               `toml:"priority,omitempty" yaml:"priority,omitempty"`
	Builtin                bool              `toml:"builtin,omitempty" yaml:"builtin,omitempty"`
	ExitMask               *bool             `toml:"exit_mask,omitempty" yaml:"exit_mask,omitempty"`
	MatchOutput            []RuleDoc         `toml:"match_output,omitempty" yaml:"match_output,omitempty"`
	StripANSI              bool              `toml:"strip_ansi,omitempty" yaml:"strip_ansi,omitempty"`
	Clean                  bool              `toml:"clean,omitempty" yaml:"clean,omitempty"`
	Replace                []RuleDoc         `toml:"replace,omitempty" yaml:"replace,omitempty"`
	Skip                   []string          `toml:"skip,omitempty" yaml:"skip,omitempty"`
	Keep                   []string          `toml:"keep,omitempty" yaml:"keep,omitempty"`
	Section                []SectionDoc      `toml:"section,omitempty" yaml:"section,omitempty"`
	Extract                []RuleDoc         `toml:"extract,omitempty" yaml:"extract,omitempty"`
	Dedup                  bool              `toml:"dedup,omitempty" yaml:"dedup,omitempty"`
	Template               string            `toml:"template,omitempty" yaml:"template,omitempty"`
	Vars                   map[string]string `toml:"vars,omitempty" yaml:"vars,omitempty"`
	TrimTrailingWhitespace bool              `toml:"trim_trailing_whitespace,omitempty" yaml:"trim_trailing_whitespace,omitempty"`
	CollapseBlankLines     bool              `toml:"collapse_blank_lines,omitempty" yaml:"collapse_blank_lines,omitempty"`
	Head                   int               `toml:"head,omitempty" yaml:"head,omitempty"`
	Tail                   int               `toml:"tail,omitempty" yaml:"tail,omitempty"`
	// Script is either inline source or a table with source and timeout.
	Script   any          `toml:"script,omitempty" yaml:"script,omitempty"`
	Variant  []VariantDoc `toml:"variant,omitempty" yaml:"variant,omitempty"`
	Pipeline []StageDoc   `toml:"pipeline,omitempty" yaml:"pipeline,omitempty"`
}

// RuleDoc is a pattern rule. match_output uses HaltWith, replace and
// extract use Template.
type RuleDoc struct {
	Pattern  string `toml:"pattern,omitempty" yaml:"pattern,omitempty"`
	Contains string `toml:"contains,omitempty" yaml:"contains,omitempty"`
	HaltWith string `toml:"halt_with,omitempty" yaml:"halt_with,omitempty"`
	Template string `toml:"template,omitempty" yaml:"template,omitempty"`
}

type SectionDoc struct {
	Start string `toml:"start" yaml:"start"`
	End   string `toml:"end,omitempty" yaml:"end,omitempty"`
	Name  string `toml:"name,omitempty" yaml:"name,omitempty"`
}

type VariantDoc struct {
	Name         string `toml:"name,omitempty" yaml:"name,omitempty"`
	DetectFile   string `toml:"detect_file,omitempty" yaml:"detect_file,omitempty"`
	DetectOutput string `toml:"detect_output,omitempty" yaml:"detect_output,omitempty"`
	Filter       string `toml:"filter" yaml:"filter"`
}

// StageDoc is one entry of an explicit pipeline. The single-rule fields
// (Pattern, Contains, HaltWith, Template, Start, End, Name) are shorthand
// for a one-element Rules or Sections list.
type StageDoc struct {
	Stage    string            `toml:"stage" yaml:"stage"`
	Pattern  string            `toml:"pattern,omitempty" yaml:"pattern,omitempty"`
	Contains string            `toml:"contains,omitempty" yaml:"contains,omitempty"`
	HaltWith string            `toml:"halt_with,omitempty" yaml:"halt_with,omitempty"`
	Template string            `toml:"template,omitempty" yaml:"template,omitempty"`
	Patterns []string          `toml:"patterns,omitempty" yaml:"patterns,omitempty"`
	Rules    []RuleDoc         `toml:"rules,omitempty" yaml:"rules,omitempty"`
	Start    string            `toml:"start,omitempty" yaml:"start,omitempty"`
	End      string            `toml:"end,omitempty" yaml:"end,omitempty"`
	Name     string            `toml:"name,omitempty" yaml:"name,omitempty"`
	Sections []SectionDoc      `toml:"sections,omitempty" yaml:"sections,omitempty"`
	Vars     map[string]string `toml:"vars,omitempty" yaml:"vars,omitempty"`
	Count    int               `toml:"count,omitempty" yaml:"count,omitempty"`
	Source   string            `toml:"source,omitempty" yaml:"source,omitempty"`
	Timeout  any               `toml:"timeout,omitempty" yaml:"timeout,omitempty"`
}

var errMixedStages = errors.New("pipeline cannot be combined with flat stage keys")

// Parse decodes and validates a specification document.
func Parse(data []byte, format Format) (*Spec, error) {
	var doc Document
	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}
	return doc.Spec()
}

// ParseFile parses data read from name, choosing the format from its
// extension. Failures are returned as *ConfigError.
func ParseFile(name string, data []byte) (*Spec, error) {
	format, ok := FormatFor(name)
	if !ok {
		return nil, &ConfigError{Path: name, Err: errors.New("unknown file extension")}
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, &ConfigError{Path: name, Err: err}
	}
	s.Source = name
	return s, nil
}

// Spec converts the document into a validated Spec.
func (d *Document) Spec() (*Spec, error) {
	cmd := strings.Join(strings.Fields(d.Command), " ")
	if cmd == "" {
		return nil, errors.New("missing 'command'")
	}
	s := &Spec{
		Command:     cmd,
		Description: d.Description,
		Priority:    d.Priority,
		Builtin:     d.Builtin,
		ExitMask:    d.ExitMask == nil || *d.ExitMask,
	}

	flat, err := d.flatStages()
	if err != nil {
		return nil, err
	}
	switch {
	case len(d.Pipeline) > 0 && len(flat) > 0:
		return nil, errMixedStages
	case len(d.Pipeline) > 0:
		for i, sd := range d.Pipeline {
			cfg, err := sd.config()
			if err != nil {
				return nil, fmt.Errorf("pipeline[%d]: %w", i, err)
			}
			s.Stages = append(s.Stages, cfg)
		}
	default:
		s.Stages = flat
	}
	if s.Builtin && len(s.Stages) > 0 {
		return nil, errors.New("a builtin spec cannot declare stages")
	}
	if _, err := stage.CompileAll(s.Stages); err != nil {
		return nil, err
	}

	for i, v := range d.Variant {
		if v.Filter == "" {
			return nil, fmt.Errorf("variant[%d]: missing 'filter'", i)
		}
		if v.DetectFile == "" && v.DetectOutput == "" {
			return nil, fmt.Errorf("variant[%d]: needs detect_file or detect_output", i)
		}
		name := v.Name
		if name == "" {
			name = v.Filter
		}
		s.Variants = append(s.Variants, Variant{
			Name:         name,
			DetectFile:   v.DetectFile,
			DetectOutput: v.DetectOutput,
			Filter:       strings.Join(strings.Fields(v.Filter), " "),
		})
	}
	return s, nil
}

func (d *Document) flatStages() ([]stage.Config, error) {
	var out []stage.Config
	add := func(c stage.Config) { out = append(out, c) }

	if len(d.MatchOutput) > 0 {
		add(stage.Config{Kind: stage.KindMatchOutput, Rules: haltRules(d.MatchOutput)})
	}
	if d.StripANSI {
		add(stage.Config{Kind: stage.KindStripANSI})
	}
	if d.Clean {
		add(stage.Config{Kind: stage.KindClean})
	}
	if len(d.Replace) > 0 {
		add(stage.Config{Kind: stage.KindReplace, Rules: templateRules(d.Replace)})
	}
	if len(d.Skip) > 0 {
		add(stage.Config{Kind: stage.KindSkip, Patterns: d.Skip})
	}
	if len(d.Keep) > 0 {
		add(stage.Config{Kind: stage.KindKeep, Patterns: d.Keep})
	}
	if len(d.Section) > 0 {
		add(stage.Config{Kind: stage.KindSection, Sections: sectionRules(d.Section)})
	}
	if len(d.Extract) > 0 {
		add(stage.Config{Kind: stage.KindExtract, Rules: templateRules(d.Extract)})
	}
	if d.Dedup {
		add(stage.Config{Kind: stage.KindDedup})
	}
	if d.Template != "" {
		add(stage.Config{Kind: stage.KindTemplate, Template: d.Template, Vars: d.Vars})
	} else if len(d.Vars) > 0 {
		return nil, errors.New("'vars' requires 'template'")
	}
	if d.TrimTrailingWhitespace {
		add(stage.Config{Kind: stage.KindTrimTrailing})
	}
	if d.CollapseBlankLines {
		add(stage.Config{Kind: stage.KindCollapseBlank})
	}
	if d.Head > 0 {
		add(stage.Config{Kind: stage.KindHead, Count: d.Head})
	}
	if d.Tail > 0 {
		add(stage.Config{Kind: stage.KindTail, Count: d.Tail})
	}
	if d.Script != nil {
		cfg, err := scriptConfig(d.Script)
		if err != nil {
			return nil, err
		}
		add(cfg)
	}
	return out, nil
}

func (sd *StageDoc) config() (stage.Config, error) {
	kind := stage.Kind(sd.Stage)
	cfg := stage.Config{Kind: kind}
	switch kind {
	case "":
		return cfg, errors.New("missing 'stage'")
	case stage.KindMatchOutput:
		rules := sd.Rules
		if sd.Pattern != "" || sd.Contains != "" {
			rules = append([]RuleDoc{{Pattern: sd.Pattern, Contains: sd.Contains, HaltWith: sd.HaltWith}}, rules...)
		}
		cfg.Rules = haltRules(rules)
	case stage.KindReplace, stage.KindExtract:
		rules := sd.Rules
		if sd.Pattern != "" {
			rules = append([]RuleDoc{{Pattern: sd.Pattern, Template: sd.Template}}, rules...)
		}
		cfg.Rules = templateRules(rules)
	case stage.KindSkip, stage.KindKeep:
		cfg.Patterns = sd.Patterns
		if sd.Pattern != "" {
			cfg.Patterns = append([]string{sd.Pattern}, cfg.Patterns...)
		}
	case stage.KindSection:
		secs := sd.Sections
		if sd.Start != "" {
			secs = append([]SectionDoc{{Start: sd.Start, End: sd.End, Name: sd.Name}}, secs...)
		}
		cfg.Sections = sectionRules(secs)
	case stage.KindTemplate:
		cfg.Template = sd.Template
		cfg.Vars = sd.Vars
	case stage.KindHead, stage.KindTail:
		cfg.Count = sd.Count
	case stage.KindScript:
		cfg.Source = sd.Source
		d, err := parseTimeout(sd.Timeout)
		if err != nil {
			return cfg, err
		}
		cfg.Timeout = d
	}
	return cfg, nil
}

func haltRules(docs []RuleDoc) []stage.Rule {
	rules := make([]stage.Rule, 0, len(docs))
	for _, r := range docs {
		rules = append(rules, stage.Rule{Pattern: r.Pattern, Contains: r.Contains, Template: r.HaltWith})
	}
	return rules
}

func templateRules(docs []RuleDoc) []stage.Rule {
	rules := make([]stage.Rule, 0, len(docs))
	for _, r := range docs {
		rules = append(rules, stage.Rule{Pattern: r.Pattern, Template: r.Template})
	}
	return rules
}

func sectionRules(docs []SectionDoc) []stage.SectionRule {
	rules := make([]stage.SectionRule, 0, len(docs))
	for _, s := range docs {
		rules = append(rules, stage.SectionRule{Start: s.Start, End: s.End, Name: s.Name})
	}
	return rules
}

func scriptConfig(v any) (stage.Config, error) {
	cfg := stage.Config{Kind: stage.KindScript}
	switch t := v.(type) {
	case string:
		cfg.Source = t
	case map[string]any:
		src, _ := t["source"].(string)
		cfg.Source = src
		d, err := parseTimeout(t["timeout"])
		if err != nil {
			return cfg, err
		}
		cfg.Timeout = d
	default:
		return cfg, fmt.Errorf("script: expected string or table, got %T", v)
	}
	return cfg, nil
}

// parseTimeout accepts a duration string ("500ms") or a number of
// milliseconds.
func parseTimeout(v any) (time.Duration, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return time.Duration(n) * time.Millisecond, nil
		}
		d, err := time.ParseDuration(t)
		if err != nil {
			return 0, fmt.Errorf("timeout: %w", err)
		}
		return d, nil
	case int:
		return time.Duration(t) * time.Millisecond, nil
	case int64:
		return time.Duration(t) * time.Millisecond, nil
	case uint64:
		return time.Duration(t) * time.Millisecond, nil
	case float64:
		return time.Duration(t * float64(time.Millisecond)), nil
	}
	return 0, fmt.Errorf("timeout: unsupported value %v", v)
}

// Document converts s back into its on-disk shape. Stages already in
// canonical order are written as flat keys, anything else as a pipeline.
func (s *Spec) Document() *Document {
	d := &Document{
		Command:     s.Command,
		Description: s.Description,
		Priority:    s.Priority,
		Builtin:     s.Builtin,
	}
	if !s.ExitMask {
		f := false
		d.ExitMask = &f
	}
	for _, v := range s.Variants {
		d.Variant = append(d.Variant, VariantDoc(v))
	}
	if canonical(s.Stages) {
		for _, c := range s.Stages {
			setFlat(d, c)
		}
	} else {
		for _, c := range s.Stages {
			d.Pipeline = append(d.Pipeline, stageDoc(c))
		}
	}
	return d
}

// Encode renders s in the given format.
func Encode(s *Spec, format Format) ([]byte, error) {
	d := s.Document()
	switch format {
	case FormatTOML:
		return toml.Marshal(d)
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

func canonical(cfgs []stage.Config) bool {
	rank := make(map[stage.Kind]int, len(stage.Kinds))
	for i, k := range stage.Kinds {
		rank[k] = i
	}
	last := -1
	for _, c := range cfgs {
		r, ok := rank[c.Kind]
		if !ok || r <= last {
			return false
		}
		last = r
	}
	return true
}

func setFlat(d *Document, c stage.Config) {
	switch c.Kind {
	case stage.KindMatchOutput:
		for _, r := range c.Rules {
			d.MatchOutput = append(d.MatchOutput, RuleDoc{Pattern: r.Pattern, Contains: r.Contains, HaltWith: r.Template})
		}
	case stage.KindStripANSI:
		d.StripANSI = true
	case stage.KindClean:
		d.Clean = true
	case stage.KindReplace:
		d.Replace = ruleDocs(c.Rules)
	case stage.KindSkip:
		d.Skip = c.Patterns
	case stage.KindKeep:
		d.Keep = c.Patterns
	case stage.KindSection:
		d.Section = sectionDocs(c.Sections)
	case stage.KindExtract:
		d.Extract = ruleDocs(c.Rules)
	case stage.KindDedup:
		d.Dedup = true
	case stage.KindTemplate:
		d.Template = c.Template
		d.Vars = c.Vars
	case stage.KindTrimTrailing:
		d.TrimTrailingWhitespace = true
	case stage.KindCollapseBlank:
		d.CollapseBlankLines = true
	case stage.KindHead:
		d.Head = c.Count
	case stage.KindTail:
		d.Tail = c.Count
	case stage.KindScript:
		if c.Timeout == 0 {
			d.Script = c.Source
		} else {
			d.Script = map[string]any{"source": c.Source, "timeout": c.Timeout.String()}
		}
	}
}

func stageDoc(c stage.Config) StageDoc {
	sd := StageDoc{Stage: string(c.Kind), Template: c.Template, Vars: c.Vars, Count: c.Count, Source: c.Source}
	switch c.Kind {
	case stage.KindMatchOutput:
		for _, r := range c.Rules {
			sd.Rules = append(sd.Rules, RuleDoc{Pattern: r.Pattern, Contains: r.Contains, HaltWith: r.Template})
		}
	case stage.KindReplace, stage.KindExtract:
		sd.Rules = ruleDocs(c.Rules)
	case stage.KindSkip, stage.KindKeep:
		sd.Patterns = c.Patterns
	case stage.KindSection:
		sd.Sections = sectionDocs(c.Sections)
	}
	if c.Timeout > 0 {
		sd.Timeout = c.Timeout.String()
	}
	return sd
}

func ruleDocs(rules []stage.Rule) []RuleDoc {
	out := make([]RuleDoc, 0, len(rules))
	for _, r := range rules {
		out = append(out, RuleDoc{Pattern: r.Pattern, Template: r.Template})
	}
	return out
}

func sectionDocs(secs []stage.SectionRule) []SectionDoc {
	out := make([]SectionDoc, 0, len(secs))
	for _, s := range secs {
		out = append(out, SectionDoc(s))
	}
	return out
}
