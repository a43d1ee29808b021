package codegen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/marinad-syro/inferra/pkg/cleaning"
	"github.com/marinad-syro/inferra/pkg/derive"
	"github.com/marinad-syro/inferra/pkg/transform"
)

var pythonProfile = &profile{
	header: func(sessionID string) []string {
		return []string{
			"# Inferra Data Analysis - Python",
			"# Auto-generated from UI operations",
			"",
			"import pandas as pd",
			"import numpy as np",
			"from scipy import stats",
			"import seaborn as sns",
			"import matplotlib.pyplot as plt",
			"",
			"# Dataset is pre-loaded as 'df' by the execution environment",
			"# Session: " + sessionID,
		}
	},
	summary: []string{
		"# Display summary",
		"print(f'Dataset shape: {df.shape}')",
		"print(f'Columns: {list(df.columns)}')",
		"print(df.head())",
	},
	cleaning: pythonCleaning,
	variable: pythonVariable,
	analyses: pythonAnalyses,
}

func pythonCleaning(cfg cleaning.Config) []string {
	var lines []string

	for _, col := range sortedMapKeys(cfg.LabelStandardization) {
		mapping := cfg.LabelStandardization[col]
		if len(mapping) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("df['%s'] = df['%s'].replace(%s)", col, col, pythonDict(mapping)))
	}

	for _, col := range sortedMapKeys(cfg.MissingDataStrategy) {
		switch cfg.MissingDataStrategy[col] {
		case cleaning.DropMissing:
			lines = append(lines, fmt.Sprintf("df = df.dropna(subset=['%s'])", col))
		case cleaning.ImputeMean:
			lines = append(lines, fmt.Sprintf("df['%s'].fillna(df['%s'].mean(), inplace=True)", col, col))
		case cleaning.ImputeMedian:
			lines = append(lines, fmt.Sprintf("df['%s'].fillna(df['%s'].median(), inplace=True)", col, col))
		}
	}

	switch cfg.DuplicateHandling {
	case cleaning.DropAll:
		if cfg.DuplicateIDColumn != "" {
			lines = append(lines, fmt.Sprintf("df = df.drop_duplicates(subset=['%s'], keep=False)", cfg.DuplicateIDColumn))
		} else {
			lines = append(lines, "df = df.drop_duplicates(keep=False)")
		}
	case cleaning.KeepFirst:
		if cfg.DuplicateIDColumn != "" {
			lines = append(lines, fmt.Sprintf("df = df.drop_duplicates(subset=['%s'], keep='first')", cfg.DuplicateIDColumn))
		} else {
			lines = append(lines, "df = df.drop_duplicates(keep='first')")
		}
	case cleaning.KeepLast:
		if cfg.DuplicateIDColumn != "" {
			lines = append(lines, fmt.Sprintf("df = df.drop_duplicates(subset=['%s'], keep='last')", cfg.DuplicateIDColumn))
		} else {
			lines = append(lines, "df = df.drop_duplicates(keep='last')")
		}
	}

	return lines
}

// pythonDict renders a string mapping as a Python dict literal with sorted
// keys.
func pythonDict(m map[string]string) string {
	keys := sortedMapKeys(m)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("'%s': '%s'", k, m[k])
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

func pythonVariable(spec derive.Spec) []string {
	switch spec.Kind {
	case derive.KindEval, "":
		// pandas eval handles backticked column names natively.
		return []string{fmt.Sprintf("df['%s'] = df.eval(%s)", spec.Name, pythonString(spec.Formula))}
	case derive.KindTransform:
		formula := pythonBackticksToQuotes(spec.Formula)
		formula = pythonNormalizeColumnRefs(formula)
		formula = pythonInjectTableArg(formula)
		return []string{fmt.Sprintf("df['%s'] = %s", spec.Name, formula)}
	default:
		// Script formulas have no single-expression rendering.
		return nil
	}
}

func pythonString(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

var (
	pythonBacktickRe  = regexp.MustCompile("`([^`]+)`")
	pythonColumnRefRe = regexp.MustCompile(`df\["([^"]+)"\]`)
)

// pythonBackticksToQuotes rewrites backticked column names as plain string
// literals; dispatch calls take column names as strings.
func pythonBackticksToQuotes(formula string) string {
	return pythonBacktickRe.ReplaceAllString(formula, "'$1'")
}

func pythonNormalizeColumnRefs(formula string) string {
	return pythonColumnRefRe.ReplaceAllString(formula, "df['$1']")
}

var tableArgRe = regexp.MustCompile(`^\s*df\s*,`)

// pythonInjectTableArg rewrites dispatch calls to pass df explicitly,
// since the standalone script has no pre-bound table. Calls that already
// pass df are left alone.
func pythonInjectTableArg(formula string) string {
	for _, name := range transform.Names() {
		re := regexp.MustCompile(`\b` + name + `\s*\(`)
		var sb strings.Builder
		last := 0
		for _, loc := range re.FindAllStringIndex(formula, -1) {
			sb.WriteString(formula[last:loc[1]])
			if !tableArgRe.MatchString(formula[loc[1]:]) {
				sb.WriteString("df, ")
			}
			last = loc[1]
		}
		sb.WriteString(formula[last:])
		formula = sb.String()
	}
	return formula
}
