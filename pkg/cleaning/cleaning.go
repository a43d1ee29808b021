// Package cleaning applies dataset cleaning policies: label
// standardization, duplicate handling, invalid-value handling, and
// missing-data strategies. Policies run in that fixed order and report a
// summary of what changed.
package cleaning

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/marinad-syro/inferra/pkg/table"
)

// Duplicate handling strategies.
const (
	KeepAll   = "keep_all"
	KeepFirst = "keep_first"
	KeepLast  = "keep_last"
	DropAll   = "drop_all"
)

// Invalid-value actions.
const (
	DropInvalid = "drop"
	ReplaceNaN  = "replace_nan"
)

// Missing-data strategies.
const (
	DropMissing  = "drop"
	ImputeMean   = "impute_mean"
	ImputeMedian = "impute_median"
)

// Config is one cleaning request. Zero-valued sections are skipped.
type Config struct {
	// LabelStandardization maps column -> old label -> new label.
	LabelStandardization map[string]map[string]string `json:"label_standardization,omitempty"`

	// DuplicateHandling is one of keep_all, keep_first, keep_last,
	// drop_all. When DuplicateIDColumn is set, duplicates are judged by
	// that column alone; otherwise by the whole row.
	DuplicateHandling string `json:"duplicate_handling,omitempty"`
	DuplicateIDColumn string `json:"duplicate_id_column,omitempty"`

	// InvalidValueHandling maps column -> action. Invalid means negative
	// for numeric columns.
	InvalidValueHandling map[string]string `json:"invalid_value_handling,omitempty"`

	// MissingDataStrategy maps column -> strategy for missing cells.
	MissingDataStrategy map[string]string `json:"missing_data_strategy,omitempty"`
}

// Summary reports what a cleaning pass did.
type Summary struct {
	RowsBefore     int            `json:"rows_before"`
	RowsAfter      int            `json:"rows_after"`
	ChangesApplied map[string]any `json:"changes_applied"`
}

// Apply runs the configured policies against a working copy of the table
// and returns the cleaned table with a change summary.
func Apply(tbl *table.Table, cfg Config, logger *slog.Logger) (*table.Table, *Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	out := tbl.Clone()
	summary := &Summary{
		RowsBefore:     out.Len(),
		ChangesApplied: make(map[string]any),
	}

	if changes := standardizeLabels(out, cfg.LabelStandardization, logger); len(changes) > 0 {
		summary.ChangesApplied["label_standardization"] = changes
	}

	if cfg.DuplicateHandling != "" && cfg.DuplicateHandling != KeepAll {
		removed, err := handleDuplicates(out, cfg.DuplicateHandling, cfg.DuplicateIDColumn)
		if err != nil {
			return nil, nil, err
		}
		if removed > 0 {
			summary.ChangesApplied["duplicate_handling"] = map[string]any{
				"strategy":           cfg.DuplicateHandling,
				"duplicates_removed": removed,
				"id_column":          cfg.DuplicateIDColumn,
			}
			logger.Debug("removed duplicate rows", "count", removed, "strategy", cfg.DuplicateHandling)
		}
	}

	if changes, err := handleInvalidValues(out, cfg.InvalidValueHandling, logger); err != nil {
		return nil, nil, err
	} else if len(changes) > 0 {
		summary.ChangesApplied["invalid_value_handling"] = changes
	}

	if changes, err := handleMissingData(out, cfg.MissingDataStrategy, logger); err != nil {
		return nil, nil, err
	} else if len(changes) > 0 {
		summary.ChangesApplied["missing_data"] = changes
	}

	summary.RowsAfter = out.Len()
	return out, summary, nil
}

// standardizeLabels rewrites cell values per the column mappings and counts
// affected rows. Columns absent from the table are skipped.
func standardizeLabels(tbl *table.Table, mappings map[string]map[string]string, logger *slog.Logger) map[string]any {
	changes := make(map[string]any)
	for column, mapping := range mappings {
		vals, ok := tbl.Column(column)
		if !ok {
			continue
		}
		affected := 0
		out := make([]table.Value, len(vals))
		for i, v := range vals {
			out[i] = v
			s, isStr := v.(string)
			if !isStr {
				continue
			}
			if replacement, hit := mapping[s]; hit {
				out[i] = replacement
				affected++
			}
		}
		if affected > 0 {
			_ = tbl.SetColumn(column, out)
			changes[column] = map[string]any{
				"rows_affected":    affected,
				"mappings_applied": len(mapping),
			}
			logger.Debug("standardized labels", "column", column, "rows", affected)
		}
	}
	return changes
}

// handleDuplicates filters duplicate rows per the strategy and returns the
// number of rows removed.
func handleDuplicates(tbl *table.Table, strategy, idColumn string) (int, error) {
	if idColumn != "" && !tbl.HasColumn(idColumn) {
		idColumn = ""
	}

	keys := make([]string, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		keys[i] = rowKey(tbl, i, idColumn)
	}
	counts := make(map[string]int, len(keys))
	for _, k := range keys {
		counts[k]++
	}

	keep := make([]bool, len(keys))
	switch strategy {
	case KeepFirst:
		seen := make(map[string]bool)
		for i, k := range keys {
			keep[i] = !seen[k]
			seen[k] = true
		}
	case KeepLast:
		seen := make(map[string]bool)
		for i := len(keys) - 1; i >= 0; i-- {
			keep[i] = !seen[keys[i]]
			seen[keys[i]] = true
		}
	case DropAll:
		for i, k := range keys {
			keep[i] = counts[k] == 1
		}
	default:
		return 0, fmt.Errorf("unknown duplicate handling strategy %q", strategy)
	}

	before := tbl.Len()
	if err := tbl.Filter(keep); err != nil {
		return 0, err
	}
	return before - tbl.Len(), nil
}

func rowKey(tbl *table.Table, i int, idColumn string) string {
	if idColumn != "" {
		vals, _ := tbl.Column(idColumn)
		return fmt.Sprintf("%T:%v", vals[i], vals[i])
	}
	var sb strings.Builder
	for _, v := range tbl.Row(i) {
		fmt.Fprintf(&sb, "%T:%v\x00", v, v)
	}
	return sb.String()
}

// handleInvalidValues applies per-column actions to negative values in
// numeric columns.
func handleInvalidValues(tbl *table.Table, actions map[string]string, logger *slog.Logger) (map[string]any, error) {
	changes := make(map[string]any)
	for column, action := range actions {
		if !tbl.HasColumn(column) || !tbl.IsNumeric(column) {
			continue
		}
		vals, _ := tbl.Column(column)

		switch action {
		case DropInvalid:
			keep := make([]bool, len(vals))
			removed := 0
			for i, v := range vals {
				f, ok := table.AsFloat(v)
				invalid := ok && f < 0
				keep[i] = !invalid
				if invalid {
					removed++
				}
			}
			if removed > 0 {
				if err := tbl.Filter(keep); err != nil {
					return nil, err
				}
				changes[column] = map[string]any{"action": DropInvalid, "rows_removed": removed}
				logger.Debug("dropped rows with invalid values", "column", column, "rows", removed)
			}
		case ReplaceNaN:
			replaced := 0
			out := make([]table.Value, len(vals))
			for i, v := range vals {
				out[i] = v
				if f, ok := table.AsFloat(v); ok && f < 0 {
					out[i] = nil
					replaced++
				}
			}
			if replaced > 0 {
				_ = tbl.SetColumn(column, out)
				changes[column] = map[string]any{"action": ReplaceNaN, "values_replaced": replaced}
				logger.Debug("replaced invalid values", "column", column, "values", replaced)
			}
		default:
			return nil, fmt.Errorf("unknown invalid value action %q for column %q", action, column)
		}
	}
	return changes, nil
}

// handleMissingData applies per-column strategies to missing cells.
func handleMissingData(tbl *table.Table, strategies map[string]string, logger *slog.Logger) (map[string]any, error) {
	changes := make(map[string]any)
	for column, strategy := range strategies {
		vals, ok := tbl.Column(column)
		if !ok {
			continue
		}

		switch strategy {
		case DropMissing:
			keep := make([]bool, len(vals))
			removed := 0
			for i, v := range vals {
				keep[i] = v != nil
				if v == nil {
					removed++
				}
			}
			if removed > 0 {
				if err := tbl.Filter(keep); err != nil {
					return nil, err
				}
				changes[column] = map[string]any{"strategy": DropMissing, "rows_removed": removed}
				logger.Debug("dropped rows with missing values", "column", column, "rows", removed)
			}
		case ImputeMean, ImputeMedian:
			xs, err := tbl.NumericColumn(column)
			if err != nil {
				return nil, err
			}
			fill := table.Mean(xs)
			if strategy == ImputeMedian {
				fill = table.Median(xs)
			}
			imputed := 0
			out := make([]table.Value, len(vals))
			for i, v := range vals {
				out[i] = v
				if v == nil {
					out[i] = fill
					imputed++
				}
			}
			if imputed > 0 {
				_ = tbl.SetColumn(column, out)
				changes[column] = map[string]any{"strategy": strategy, "values_imputed": imputed}
				logger.Debug("imputed missing values", "column", column, "values", imputed)
			}
		default:
			return nil, fmt.Errorf("unknown missing data strategy %q for column %q", strategy, column)
		}
	}
	return changes, nil
}
