package analysis

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/marinad-syro/inferra/pkg/table"
)

// ols fits an ordinary least squares regression of the dependent column on
// one or more independent columns. Independent columns may be given as a
// single name or a "+"-joined list; rows with any missing value are
// dropped.
func ols(tbl *table.Table, params map[string]string) (Results, error) {
	dependent, err := param(params, "dependent")
	if err != nil {
		return nil, err
	}
	independent, err := param(params, "independent")
	if err != nil {
		return nil, err
	}

	var predictors []string
	for _, name := range strings.Split(independent, "+") {
		name = strings.TrimSpace(name)
		if name != "" {
			predictors = append(predictors, name)
		}
	}
	if len(predictors) == 0 {
		return nil, fmt.Errorf("ols requires at least one independent column")
	}

	y, xs, err := regressionData(tbl, dependent, predictors)
	if err != nil {
		return nil, err
	}
	n := len(y)
	k := len(predictors) + 1 // predictors plus intercept
	if n <= k {
		return nil, fmt.Errorf("ols needs more than %d complete rows, have %d", k, n)
	}

	// Design matrix with intercept.
	X := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
		for j, col := range xs {
			X.Set(i, j+1, col[i])
		}
	}
	Y := mat.NewVecDense(n, y)

	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("design matrix is singular: check for collinear columns")
	}
	var xty mat.VecDense
	xty.MulVec(X.T(), Y)
	var beta mat.VecDense
	beta.MulVec(&xtxInv, &xty)

	var fitted mat.VecDense
	fitted.MulVec(X, &beta)

	meanY := table.Mean(y)
	var ssr, sst float64
	for i := 0; i < n; i++ {
		r := y[i] - fitted.AtVec(i)
		ssr += r * r
		d := y[i] - meanY
		sst += d * d
	}

	nf := float64(n)
	dfModel := float64(k - 1)
	dfResid := nf - float64(k)

	rsquared := 1 - ssr/sst
	rsquaredAdj := 1 - (1-rsquared)*(nf-1)/dfResid
	fvalue := (sst - ssr) / dfModel / (ssr / dfResid)
	fPValue := 1 - distuv.F{D1: dfModel, D2: dfResid}.CDF(fvalue)

	// Coefficient standard errors from the residual variance.
	sigma2 := ssr / dfResid
	names := append([]string{"Intercept"}, predictors...)
	coefs := make(map[string]any, k)
	pvalues := make(map[string]any, k)
	for j := 0; j < k; j++ {
		se := math.Sqrt(sigma2 * xtxInv.At(j, j))
		t := beta.AtVec(j) / se
		coefs[names[j]] = beta.AtVec(j)
		pvalues[names[j]] = twoSidedT(t, dfResid)
	}

	// Gaussian log-likelihood, as fit statistics are reported from it.
	llf := -nf / 2 * (math.Log(2*math.Pi) + math.Log(ssr/nf) + 1)
	aic := -2*llf + 2*float64(k)
	bic := -2*llf + float64(k)*math.Log(nf)

	return Results{
		"rsquared":     rsquared,
		"rsquared_adj": rsquaredAdj,
		"fvalue":       fvalue,
		"f_pvalue":     fPValue,
		"params":       coefs,
		"pvalues":      pvalues,
		"aic":          aic,
		"bic":          bic,
	}, nil
}

// regressionData extracts the dependent and predictor columns restricted
// to complete rows.
func regressionData(tbl *table.Table, dependent string, predictors []string) ([]float64, [][]float64, error) {
	yRaw, err := tbl.NumericColumn(dependent)
	if err != nil {
		return nil, nil, err
	}
	xRaw := make([][]float64, len(predictors))
	for i, p := range predictors {
		col, err := tbl.NumericColumn(p)
		if err != nil {
			return nil, nil, err
		}
		xRaw[i] = col
	}

	var y []float64
	xs := make([][]float64, len(predictors))
	for row := range yRaw {
		if isNaN(yRaw[row]) {
			continue
		}
		complete := true
		for _, col := range xRaw {
			if isNaN(col[row]) {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		y = append(y, yRaw[row])
		for i, col := range xRaw {
			xs[i] = append(xs[i], col[row])
		}
	}
	return y, xs, nil
}
