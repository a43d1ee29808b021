package codegen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/marinad-syro/inferra/pkg/cleaning"
	"github.com/marinad-syro/inferra/pkg/derive"
)

var rProfile = &profile{
	header: func(sessionID string) []string {
		return []string{
			"# Inferra Data Analysis - R",
			"# Auto-generated from UI operations",
			"",
			"library(dplyr)",
			"library(tidyr)",
			"library(ggplot2)",
			"",
			"# Dataset is pre-loaded as 'df' by the execution environment",
			"# Session: " + sessionID,
		}
	},
	summary: []string{
		"# Display summary",
		`cat('Dataset dimensions:', nrow(df), 'rows x', ncol(df), 'columns\n')`,
		`cat('Columns:', paste(colnames(df), collapse=', '), '\n')`,
		"print(head(df))",
	},
	cleaning: rCleaning,
	variable: rVariable,
	analyses: rAnalyses,
}

func rCleaning(cfg cleaning.Config) []string {
	var lines []string

	for _, col := range sortedMapKeys(cfg.LabelStandardization) {
		mapping := cfg.LabelStandardization[col]
		if len(mapping) == 0 {
			continue
		}
		pairs := make([]string, 0, len(mapping))
		for _, k := range sortedMapKeys(mapping) {
			pairs = append(pairs, fmt.Sprintf("'%s' = '%s'", k, mapping[k]))
		}
		ref := rColumnRef(col)
		lines = append(lines, fmt.Sprintf("df <- df %%>%% mutate(%s = recode(%s, %s))", ref, ref, strings.Join(pairs, ", ")))
	}

	for _, col := range sortedMapKeys(cfg.MissingDataStrategy) {
		ref := rColumnRef(col)
		switch cfg.MissingDataStrategy[col] {
		case cleaning.DropMissing:
			lines = append(lines, fmt.Sprintf("df <- df %%>%% drop_na(%s)", ref))
		case cleaning.ImputeMean:
			lines = append(lines, fmt.Sprintf("df <- df %%>%% mutate(%s = ifelse(is.na(%s), mean(%s, na.rm=TRUE), %s))", ref, ref, ref, ref))
		case cleaning.ImputeMedian:
			lines = append(lines, fmt.Sprintf("df <- df %%>%% mutate(%s = ifelse(is.na(%s), median(%s, na.rm=TRUE), %s))", ref, ref, ref, ref))
		}
	}

	switch cfg.DuplicateHandling {
	case cleaning.KeepFirst, cleaning.KeepLast:
		if cfg.DuplicateIDColumn != "" {
			lines = append(lines, fmt.Sprintf("df <- df %%>%% distinct(%s, .keep_all = TRUE)", rColumnRef(cfg.DuplicateIDColumn)))
		} else {
			lines = append(lines, "df <- df %>% distinct()")
		}
	case cleaning.DropAll:
		if cfg.DuplicateIDColumn != "" {
			ref := rColumnRef(cfg.DuplicateIDColumn)
			lines = append(lines, fmt.Sprintf("df <- df %%>%% group_by(%s) %%>%% filter(n() == 1) %%>%% ungroup()", ref))
		} else {
			lines = append(lines, "df <- df %>% distinct()")
		}
	}

	return lines
}

var rPlainNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// rColumnRef backtick-quotes column names R cannot take bare.
func rColumnRef(col string) string {
	if rPlainNameRe.MatchString(col) {
		return col
	}
	return "`" + col + "`"
}

func rVariable(spec derive.Spec) []string {
	if spec.Kind == derive.KindScript {
		return nil
	}
	formula := ConvertFormulaToR(spec.Formula)
	return []string{fmt.Sprintf("df <- df %%>%% mutate(%s = %s)", rColumnRef(spec.Name), formula)}
}

// rRewrite is one ordered formula rewrite step.
type rRewrite struct {
	pattern *regexp.Regexp
	replace func(match []string) string
}

// rRewrites translates the restricted formula grammar into R, in order:
// numpy and pandas names first, then dict and list literals, column
// references, and trailing aggregate methods. Dispatch calls stay direct
// calls; the R runtime binds the table for them.
var rRewrites = []rRewrite{
	// numpy / pandas function names
	{regexp.MustCompile(`np\.log\b`), func(m []string) string { return "log" }},
	{regexp.MustCompile(`np\.exp\b`), func(m []string) string { return "exp" }},
	{regexp.MustCompile(`np\.sqrt\b`), func(m []string) string { return "sqrt" }},
	{regexp.MustCompile(`np\.abs\b`), func(m []string) string { return "abs" }},
	{regexp.MustCompile(`pd\.cut\b`), func(m []string) string { return "cut" }},

	// dict literal -> named vector: {'k': v, ...} -> c('k' = v, ...)
	{regexp.MustCompile(`\{([^}]+)\}`), func(m []string) string {
		body := regexp.MustCompile(`'([^']+)':\s*`).ReplaceAllString(m[1], "'$1' = ")
		body = regexp.MustCompile(`"([^"]+)":\s*`).ReplaceAllString(body, `"$1" = `)
		return "c(" + body + ")"
	}},

	// df["col"] / df['col'] -> bare name or backticked name
	{regexp.MustCompile(`df\["([^"]+)"\]`), func(m []string) string { return rColumnRef(m[1]) }},
	{regexp.MustCompile(`df\['([^']+)'\]`), func(m []string) string { return rColumnRef(m[1]) }},

	// list literal -> vector
	{regexp.MustCompile(`\[([^\]]+)\]`), func(m []string) string { return "c(" + m[1] + ")" }},

	// pandas cut keyword
	{regexp.MustCompile(`bins=`), func(m []string) string { return "breaks=" }},

	// trailing aggregate methods -> R functions with na.rm
	{regexp.MustCompile("((?:df\\$\\w+)|(?:`[^`]+`)|\\w+)\\.quantile\\(([^)]+)\\)"), func(m []string) string {
		return fmt.Sprintf("quantile(%s, probs=%s, na.rm=TRUE)", m[1], m[2])
	}},
	{regexp.MustCompile("((?:df\\$\\w+)|(?:`[^`]+`)|\\w+)\\.(min|max|mean|median|sum)\\(\\)"), func(m []string) string {
		return fmt.Sprintf("%s(%s, na.rm=TRUE)", m[2], m[1])
	}},
	{regexp.MustCompile("((?:df\\$\\w+)|(?:`[^`]+`)|\\w+)\\.std\\(\\)"), func(m []string) string {
		return fmt.Sprintf("sd(%s, na.rm=TRUE)", m[1])
	}},
}

// ConvertFormulaToR translates one formula into R syntax.
func ConvertFormulaToR(formula string) string {
	out := formula
	for _, rw := range rRewrites {
		out = rw.pattern.ReplaceAllStringFunc(out, func(m string) string {
			return rw.replace(rw.pattern.FindStringSubmatch(m))
		})
	}
	return out
}
