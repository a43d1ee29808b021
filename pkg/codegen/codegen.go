// Package codegen turns recorded session operations (cleaning, derived
// variables, analyses) into equivalent standalone Python or R scripts.
// Each language is described by a profile: preamble, per-section
// generators, and a table of analysis templates. One assembly routine
// consumes the profile, so adding a language means adding data, not
// another generator.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/marinad-syro/inferra/pkg/cleaning"
	"github.com/marinad-syro/inferra/pkg/derive"
)

// Language selects the target language of a generated script.
type Language string

const (
	Python Language = "python"
	R      Language = "r"
)

// UnsupportedLanguageError is fatal: an unknown language invalidates the
// whole request, unlike an unsupported analysis, which only skips a
// section.
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported script language: %q (supported: python, r)", e.Language)
}

// AnalysisSpec names one analysis with its resolved column parameters.
type AnalysisSpec struct {
	Library  string            `json:"library,omitempty"`
	Function string            `json:"function"`
	Params   map[string]string `json:"param_map"`
}

// Request carries everything a session wants scripted. Nil or empty
// sections are omitted from the output.
type Request struct {
	SessionID string
	Cleaning  *cleaning.Config
	Variables []derive.Spec
	Analyses  []AnalysisSpec
}

// Script is a generated script plus the analyses that had no template in
// the target language and were skipped.
type Script struct {
	Language Language `json:"language"`
	Code     string   `json:"code"`
	Skipped  []string `json:"skipped,omitempty"`
}

// profile is the full description of one target language.
type profile struct {
	header   func(sessionID string) []string
	summary  []string
	cleaning func(cfg cleaning.Config) []string
	variable func(spec derive.Spec) []string // nil result skips the variable
	analyses map[string]analysisTemplate
}

var profiles = map[Language]*profile{
	Python: pythonProfile,
	R:      rProfile,
}

// Generate renders the request as a script in the given language.
func Generate(lang Language, req Request) (*Script, error) {
	p, ok := profiles[lang]
	if !ok {
		return nil, &UnsupportedLanguageError{Language: string(lang)}
	}

	script := &Script{Language: lang}
	sections := [][]string{p.header(req.SessionID)}

	if req.Cleaning != nil {
		if lines := p.cleaning(*req.Cleaning); len(lines) > 0 {
			sections = append(sections, append([]string{"# === Data Cleaning ==="}, lines...))
		}
	}

	if len(req.Variables) > 0 {
		var lines []string
		for _, spec := range req.Variables {
			if strings.TrimSpace(spec.Formula) == "" {
				continue
			}
			rendered := p.variable(spec)
			if rendered == nil {
				script.Skipped = append(script.Skipped, "variable:"+spec.Name)
				continue
			}
			lines = append(lines, rendered...)
		}
		if len(lines) > 0 {
			sections = append(sections, append([]string{"# === Derived Variables ==="}, lines...))
		}
	}

	if len(req.Analyses) > 0 {
		var lines []string
		for _, spec := range req.Analyses {
			tmpl, ok := p.analyses[spec.Function]
			if !ok {
				script.Skipped = append(script.Skipped, spec.Function)
				continue
			}
			rendered, ok := tmpl.render(spec.Params)
			if !ok {
				// Required parameters missing; nothing sensible to emit.
				continue
			}
			lines = append(lines, rendered...)
		}
		if len(lines) > 0 {
			sections = append(sections, append([]string{"# === Statistical Analyses ==="}, lines...))
		}
	}

	sections = append(sections, p.summary)

	var parts []string
	for _, section := range sections {
		parts = append(parts, strings.Join(section, "\n"))
	}
	script.Code = strings.Join(parts, "\n\n")
	return script, nil
}

// analysisTemplate renders one analysis. Each param slot lists the
// acceptable source keys in priority order; the first key is also the
// placeholder name used in the lines.
type analysisTemplate struct {
	params [][]string
	lines  []string
}

func (t analysisTemplate) render(params map[string]string) ([]string, bool) {
	pairs := make([]string, 0, 2*len(t.params))
	for _, slot := range t.params {
		var value string
		for _, key := range slot {
			if v := params[key]; v != "" {
				value = v
				break
			}
		}
		if value == "" {
			return nil, false
		}
		pairs = append(pairs, "{"+slot[0]+"}", value)
	}
	r := strings.NewReplacer(pairs...)
	out := make([]string, len(t.lines))
	for i, line := range t.lines {
		out[i] = r.Replace(line)
	}
	return out, true
}

// sortedMapKeys keeps generated cleaning sections deterministic.
func sortedMapKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
