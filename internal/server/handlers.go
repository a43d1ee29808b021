package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/marinad-syro/inferra/pkg/analysis"
	"github.com/marinad-syro/inferra/pkg/cleaning"
	"github.com/marinad-syro/inferra/pkg/codegen"
	"github.com/marinad-syro/inferra/pkg/derive"
	"github.com/marinad-syro/inferra/pkg/table"
)

// sampleRows is how many rows of preview each response carries;
// sampleColumns caps the preview width when no computed columns exist.
const (
	sampleRows    = 5
	sampleColumns = 5
)

// tableRef selects the table a request operates on: a stored dataset id or
// inline records.
type tableRef struct {
	DatasetID string           `json:"dataset_id,omitempty"`
	Columns   []string         `json:"columns,omitempty"`
	Data      []map[string]any `json:"data,omitempty"`
}

// resolve produces a working table from the reference. Inline records win
// over a dataset id; column order defaults to sorted keys of the first
// record when not given.
func (s *Server) resolve(ref tableRef) (*table.Table, error) {
	if ref.Data != nil {
		names := ref.Columns
		if names == nil && len(ref.Data) > 0 {
			for key := range ref.Data[0] {
				names = append(names, key)
			}
			sort.Strings(names)
		}
		return table.FromRecords(names, ref.Data), nil
	}
	if ref.DatasetID != "" {
		return s.store.Get(ref.DatasetID)
	}
	return nil, fmt.Errorf("request needs either data records or a dataset_id")
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type computeVariablesRequest struct {
	tableRef
	Variables []derive.Spec `json:"variables"`
}

type computeVariablesResponse struct {
	Status          string                 `json:"status"`
	NewColumns      []string               `json:"new_columns"`
	SampleData      []map[string]any       `json:"sample_data"`
	UpdatedDataset  []map[string]any       `json:"updated_dataset"`
	FailedVariables []derive.VariableError `json:"failed_variables,omitempty"`
}

func (s *Server) handleComputeVariables(w http.ResponseWriter, r *http.Request) {
	var req computeVariablesRequest
	if !s.decode(w, r, &req) {
		return
	}
	tbl, err := s.resolve(req.tableRef)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	if len(req.Variables) == 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("no variables given"))
		return
	}

	res := s.eval.ComputeBatch(r.Context(), tbl, req.Variables)

	status := "success"
	switch {
	case len(res.Computed) == 0:
		status = "error"
	case len(res.Failed) > 0:
		status = "partial_failure"
	}
	if req.DatasetID != "" && len(res.Computed) > 0 {
		if err := s.store.Replace(req.DatasetID, res.Table); err != nil {
			s.writeError(w, errorStatus(err), err)
			return
		}
	}

	newColumns := res.Computed
	if newColumns == nil {
		newColumns = []string{}
	}
	// The sample previews the computed columns; without any, the first
	// few columns of the dataset stand in.
	sampleCols := res.Computed
	if len(sampleCols) == 0 {
		sampleCols = res.Table.Columns()
		if len(sampleCols) > sampleColumns {
			sampleCols = sampleCols[:sampleColumns]
		}
	}
	s.writeJSON(w, http.StatusOK, computeVariablesResponse{
		Status:          status,
		NewColumns:      newColumns,
		SampleData:      res.Table.SampleRecords(sampleRows, sampleCols),
		UpdatedDataset:  res.Table.Records(),
		FailedVariables: res.Failed,
	})
}

type applyCleaningRequest struct {
	tableRef
	cleaning.Config
}

type applyCleaningResponse struct {
	Status         string           `json:"status"`
	RowsBefore     int              `json:"rows_before"`
	RowsAfter      int              `json:"rows_after"`
	ChangesApplied map[string]any   `json:"changes_applied"`
	UpdatedDataset []map[string]any `json:"updated_dataset"`
}

func (s *Server) handleApplyCleaning(w http.ResponseWriter, r *http.Request) {
	var req applyCleaningRequest
	if !s.decode(w, r, &req) {
		return
	}
	tbl, err := s.resolve(req.tableRef)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}

	cleaned, summary, err := cleaning.Apply(tbl, req.Config, s.logger)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	if req.DatasetID != "" {
		if err := s.store.Replace(req.DatasetID, cleaned); err != nil {
			s.writeError(w, errorStatus(err), err)
			return
		}
	}

	s.writeJSON(w, http.StatusOK, applyCleaningResponse{
		Status:         "success",
		RowsBefore:     summary.RowsBefore,
		RowsAfter:      summary.RowsAfter,
		ChangesApplied: summary.ChangesApplied,
		UpdatedDataset: cleaned.Records(),
	})
}

type executeCodeRequest struct {
	tableRef
	Code string `json:"code"`
}

type executeCodeResponse struct {
	Success       bool             `json:"success"`
	RowCount      int              `json:"row_count,omitempty"`
	ColumnNames   []string         `json:"column_names,omitempty"`
	Table         []map[string]any `json:"table,omitempty"`
	ConsoleOutput string           `json:"console_output"`
	Plots         [][]byte         `json:"plots,omitempty"`
	Error         string           `json:"error,omitempty"`
	Trace         string           `json:"trace,omitempty"`
}

func (s *Server) handleExecuteCode(w http.ResponseWriter, r *http.Request) {
	var req executeCodeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Code == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("no code given"))
		return
	}
	tbl, err := s.resolve(req.tableRef)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}

	res, err := s.exec.Execute(r.Context(), tbl, req.Code)
	if err != nil {
		// Rejected before execution: syntax or a forbidden construct.
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp := executeCodeResponse{
		Success:       res.Success,
		ConsoleOutput: res.Console,
		Plots:         res.Images,
		Error:         res.Error,
		Trace:         res.Trace,
	}
	if res.Success && res.Table != nil {
		resp.RowCount = res.Table.Len()
		resp.ColumnNames = res.Table.Columns()
		resp.Table = res.Table.Records()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type generateCodeRequest struct {
	Language  string                 `json:"language"`
	SessionID string                 `json:"session_id,omitempty"`
	Cleaning  *cleaning.Config       `json:"cleaning,omitempty"`
	Variables []derive.Spec          `json:"variables,omitempty"`
	Analyses  []codegen.AnalysisSpec `json:"analyses,omitempty"`
}

func (s *Server) handleGenerateCode(w http.ResponseWriter, r *http.Request) {
	var req generateCodeRequest
	if !s.decode(w, r, &req) {
		return
	}
	script, err := codegen.Generate(codegen.Language(req.Language), codegen.Request{
		SessionID: req.SessionID,
		Cleaning:  req.Cleaning,
		Variables: req.Variables,
		Analyses:  req.Analyses,
	})
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, script)
}

type analyzeRequest struct {
	tableRef
	Function string                        `json:"function"`
	Params   map[string]analysis.ParamHint `json:"params"`
}

type analyzeResponse struct {
	AnalysisID string            `json:"analysis_id"`
	Function   string            `json:"function"`
	Parameters map[string]string `json:"parameters"`
	Results    analysis.Results  `json:"results"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decode(w, r, &req) {
		return
	}
	tbl, err := s.resolve(req.tableRef)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}

	params, err := analysis.MapParameters(req.Params, tbl)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	results, err := analysis.Run(tbl, req.Function, params)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, analyzeResponse{
		AnalysisID: uuid.NewString(),
		Function:   req.Function,
		Parameters: params,
		Results:    results,
	})
}

type createDatasetRequest struct {
	Name    string           `json:"name"`
	Path    string           `json:"path,omitempty"`
	Columns []string         `json:"columns,omitempty"`
	Data    []map[string]any `json:"data,omitempty"`
}

func (s *Server) handleCreateDataset(w http.ResponseWriter, r *http.Request) {
	var req createDatasetRequest
	if !s.decode(w, r, &req) {
		return
	}

	var tbl *table.Table
	var err error
	switch {
	case req.Path != "":
		tbl, err = s.loader.LoadFile(req.Path)
	case req.Data != nil:
		tbl, err = s.resolve(tableRef{Columns: req.Columns, Data: req.Data})
	default:
		err = fmt.Errorf("request needs either a file path or data records")
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	id := s.store.Add(req.Name, tbl)
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"id":      id,
		"name":    req.Name,
		"rows":    tbl.Len(),
		"columns": tbl.Columns(),
	})
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"datasets": s.store.List()})
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tbl, err := s.store.Get(id)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"id":          id,
		"rows":        tbl.Len(),
		"columns":     tbl.Columns(),
		"sample_data": tbl.SampleRecords(sampleRows, nil),
		"data":        tbl.Records(),
	})
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	s.store.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}
