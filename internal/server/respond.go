package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marinad-syro/inferra/internal/dataset"
	"github.com/marinad-syro/inferra/pkg/analysis"
	"github.com/marinad-syro/inferra/pkg/codegen"
	"github.com/marinad-syro/inferra/pkg/formula"
	"github.com/marinad-syro/inferra/pkg/sandbox"
	"github.com/marinad-syro/inferra/pkg/table"
	"github.com/marinad-syro/inferra/pkg/transform"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorBody{Error: err.Error(), ErrorType: errorType(err)})
}

// errorType names the failure class for clients that branch on it.
func errorType(err error) string {
	var (
		syntaxErr     *formula.SyntaxError
		unknownErr    *transform.UnknownTransformationError
		argErr        *transform.InvalidArgumentError
		runtimeErr    *transform.RuntimeError
		forbiddenErr  *sandbox.ForbiddenConstructError
		noResultErr   *sandbox.MissingResultVariableError
		langErr       *codegen.UnsupportedLanguageError
		funcErr       *analysis.UnsupportedFunctionError
		missingColErr *table.MissingColumnError
		notFoundErr   *dataset.NotFoundError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return "FormulaSyntaxError"
	case errors.As(err, &unknownErr):
		return "UnknownTransformationError"
	case errors.As(err, &argErr):
		return "InvalidArgumentError"
	case errors.As(err, &runtimeErr):
		return "TransformationError"
	case errors.As(err, &forbiddenErr):
		return "ForbiddenConstructError"
	case errors.As(err, &noResultErr):
		return "MissingResultVariableError"
	case errors.As(err, &langErr):
		return "UnsupportedScriptLanguageError"
	case errors.As(err, &funcErr):
		return "UnsupportedAnalysisFunctionError"
	case errors.As(err, &missingColErr):
		return "MissingColumnError"
	case errors.As(err, &notFoundErr):
		return "DatasetNotFoundError"
	default:
		return ""
	}
}

// errorStatus maps a failure to an HTTP status: missing datasets are 404,
// everything the client sent wrong is 400.
func errorStatus(err error) int {
	var notFoundErr *dataset.NotFoundError
	if errors.As(err, &notFoundErr) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}
