package codegen

// Analysis templates per language. Placeholders use the first key of each
// parameter slot; later keys are accepted aliases from older execution
// specs.

var pythonAnalyses = map[string]analysisTemplate{
	"ttest_ind": {
		params: [][]string{{"group_col"}, {"value_col"}},
		lines: []string{
			"# Independent t-test: {value_col} by {group_col}",
			"groups = df['{group_col}'].unique()",
			"group1 = df[df['{group_col}'] == groups[0]]['{value_col}']",
			"group2 = df[df['{group_col}'] == groups[1]]['{value_col}']",
			"t_stat, p_value = stats.ttest_ind(group1, group2)",
			"print(f'Independent t-test: t={t_stat:.3f}, p={p_value:.4f}')",
			"",
		},
	},
	"ttest_rel": {
		params: [][]string{{"col1"}, {"col2"}},
		lines: []string{
			"# Paired t-test: {col1} vs {col2}",
			"t_stat, p_value = stats.ttest_rel(df['{col1}'], df['{col2}'])",
			"print(f'Paired t-test: t={t_stat:.3f}, p={p_value:.4f}')",
			"",
		},
	},
	"f_oneway": {
		params: [][]string{{"group_col"}, {"value_col"}},
		lines: []string{
			"# One-way ANOVA: {value_col} by {group_col}",
			"groups = df['{group_col}'].unique()",
			"group_data = [df[df['{group_col}'] == g]['{value_col}'] for g in groups]",
			"f_stat, p_value = stats.f_oneway(*group_data)",
			"print(f'One-way ANOVA: F={f_stat:.3f}, p={p_value:.4f}')",
			"",
		},
	},
	"pearsonr": {
		params: [][]string{{"x_col"}, {"y_col"}},
		lines: []string{
			"# Pearson correlation: {x_col} vs {y_col}",
			"r, p_value = stats.pearsonr(df['{x_col}'], df['{y_col}'])",
			"print(f'Pearson correlation: r={r:.3f}, p={p_value:.4f}')",
			"",
		},
	},
	"spearmanr": {
		params: [][]string{{"x_col"}, {"y_col"}},
		lines: []string{
			"# Spearman correlation: {x_col} vs {y_col}",
			"rho, p_value = stats.spearmanr(df['{x_col}'], df['{y_col}'])",
			"print(f'Spearman correlation: rho={rho:.3f}, p={p_value:.4f}')",
			"",
		},
	},
	"kendalltau": {
		params: [][]string{{"x_col"}, {"y_col"}},
		lines: []string{
			"# Kendall's tau correlation: {x_col} vs {y_col}",
			"tau, p_value = stats.kendalltau(df['{x_col}'], df['{y_col}'])",
			"print(f'Kendall tau correlation: tau={tau:.3f}, p={p_value:.4f}')",
			"",
		},
	},
	"chi2_contingency": {
		params: [][]string{{"row_col", "var1", "x_col"}, {"col_col", "var2", "y_col"}},
		lines: []string{
			"# Chi-square test: {row_col} vs {col_col}",
			"contingency_table = pd.crosstab(df['{row_col}'], df['{col_col}'])",
			"chi2, p_value, dof, expected = stats.chi2_contingency(contingency_table)",
			"print(f'Chi-square test: chi2={chi2:.3f}, p={p_value:.4f}, dof={dof}')",
			"",
		},
	},
	"mannwhitneyu": {
		params: [][]string{{"group_col"}, {"value_col"}},
		lines: []string{
			"# Mann-Whitney U test: {value_col} by {group_col}",
			"groups = df['{group_col}'].unique()",
			"group1 = df[df['{group_col}'] == groups[0]]['{value_col}'].dropna()",
			"group2 = df[df['{group_col}'] == groups[1]]['{value_col}'].dropna()",
			"u_stat, p_value = stats.mannwhitneyu(group1, group2, alternative='two-sided')",
			"print(f'Mann-Whitney U test: U={u_stat:.3f}, p={p_value:.4f}')",
			"",
		},
	},
	"wilcoxon": {
		params: [][]string{{"col1"}, {"col2"}},
		lines: []string{
			"# Wilcoxon signed-rank test: {col1} vs {col2}",
			"w_stat, p_value = stats.wilcoxon(df['{col1}'], df['{col2}'])",
			"print(f'Wilcoxon test: W={w_stat:.3f}, p={p_value:.4f}')",
			"",
		},
	},
	"kruskal": {
		params: [][]string{{"group_col"}, {"value_col"}},
		lines: []string{
			"# Kruskal-Wallis test: {value_col} by {group_col}",
			"groups = df['{group_col}'].unique()",
			"group_data = [df[df['{group_col}'] == g]['{value_col}'].dropna() for g in groups]",
			"h_stat, p_value = stats.kruskal(*group_data)",
			"print(f'Kruskal-Wallis test: H={h_stat:.3f}, p={p_value:.4f}')",
			"",
		},
	},
	"ols": {
		params: [][]string{{"dependent"}, {"independent"}},
		lines: []string{
			"# OLS Regression: {dependent} ~ {independent}",
			"import statsmodels.formula.api as smf",
			"model = smf.ols('{dependent} ~ {independent}', data=df).fit()",
			"print(model.summary())",
			"print(f'R-squared: {model.rsquared:.3f}, Adj R-squared: {model.rsquared_adj:.3f}')",
			"",
		},
	},
}

var rAnalyses = map[string]analysisTemplate{
	"ttest_ind": {
		params: [][]string{{"group_col"}, {"value_col"}},
		lines: []string{
			"# Independent t-test: {value_col} by {group_col}",
			"result <- t.test({value_col} ~ {group_col}, data = df)",
			"print(result)",
			"",
		},
	},
	"ttest_rel": {
		params: [][]string{{"col1"}, {"col2"}},
		lines: []string{
			"# Paired t-test: {col1} vs {col2}",
			"result <- t.test(df${col1}, df${col2}, paired = TRUE)",
			"print(result)",
			"",
		},
	},
	"f_oneway": {
		params: [][]string{{"group_col"}, {"value_col"}},
		lines: []string{
			"# One-way ANOVA: {value_col} by {group_col}",
			"result <- aov({value_col} ~ {group_col}, data = df)",
			"print(summary(result))",
			"",
		},
	},
	"pearsonr": {
		params: [][]string{{"x_col"}, {"y_col"}},
		lines: []string{
			"# Pearson correlation: {x_col} vs {y_col}",
			"result <- cor.test(df${x_col}, df${y_col}, method = 'pearson')",
			"print(result)",
			"",
		},
	},
	"spearmanr": {
		params: [][]string{{"x_col"}, {"y_col"}},
		lines: []string{
			"# Spearman correlation: {x_col} vs {y_col}",
			"result <- cor.test(df${x_col}, df${y_col}, method = 'spearman')",
			"print(result)",
			"",
		},
	},
	"kendalltau": {
		params: [][]string{{"x_col"}, {"y_col"}},
		lines: []string{
			"# Kendall's tau correlation: {x_col} vs {y_col}",
			"result <- cor.test(df${x_col}, df${y_col}, method = 'kendall')",
			"print(result)",
			"",
		},
	},
	"chi2_contingency": {
		params: [][]string{{"row_col", "var1", "x_col"}, {"col_col", "var2", "y_col"}},
		lines: []string{
			"# Chi-square test: {row_col} vs {col_col}",
			"contingency_table <- table(df${row_col}, df${col_col})",
			"result <- chisq.test(contingency_table)",
			"print(result)",
			"",
		},
	},
	"mannwhitneyu": {
		params: [][]string{{"group_col"}, {"value_col"}},
		lines: []string{
			"# Mann-Whitney U test: {value_col} by {group_col}",
			"result <- wilcox.test({value_col} ~ {group_col}, data = df)",
			"print(result)",
			"",
		},
	},
	"wilcoxon": {
		params: [][]string{{"col1"}, {"col2"}},
		lines: []string{
			"# Wilcoxon signed-rank test: {col1} vs {col2}",
			"result <- wilcox.test(df${col1}, df${col2}, paired = TRUE)",
			"print(result)",
			"",
		},
	},
	"kruskal": {
		params: [][]string{{"group_col"}, {"value_col"}},
		lines: []string{
			"# Kruskal-Wallis test: {value_col} by {group_col}",
			"result <- kruskal.test({value_col} ~ {group_col}, data = df)",
			"print(result)",
			"",
		},
	},
	"ols": {
		params: [][]string{{"dependent"}, {"independent"}},
		lines: []string{
			"# OLS Regression: {dependent} ~ {independent}",
			"model <- lm({dependent} ~ {independent}, data = df)",
			"print(summary(model))",
			"",
		},
	},
}
