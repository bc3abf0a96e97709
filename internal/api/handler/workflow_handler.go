package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-dataset-workflow/internal/model"
	"go-dataset-workflow/internal/pipeline"
)

const maxUploadSize = 32 << 20

// CreateWorkflowRequest names a new workflow session.
type CreateWorkflowRequest struct {
	Name string `json:"name"`
}

// WorkflowResponse is a persisted workflow plus its live state, when the
// session is held by this process.
type WorkflowResponse struct {
	Workflow model.WorkflowInfo `json:"workflow"`
	State    *pipeline.Snapshot `json:"state,omitempty"`
}

// LoadRequest picks exactly one data source for the load stage.
type LoadRequest struct {
	Rows      json.RawMessage     `json:"rows,omitempty"`
	Dataset   *model.Dataset      `json:"dataset,omitempty"`
	Source    *model.FetchRequest `json:"source,omitempty"`
	URL       string              `json:"url,omitempty"`
	Format    string              `json:"format,omitempty"`
	DatasetID string              `json:"datasetId,omitempty"`
	Mapping   model.FieldMapping  `json:"mapping,omitempty"`
}

// SuggestRequest lists model variables, or names a stored dataset whose variables
// are looked up on the backend.
type SuggestRequest struct {
	ModelVariables []string `json:"modelVariables"`
	DatasetID      string   `json:"datasetId,omitempty"`
}

// SuggestResponse is a proposed mapping; it is not applied.
type SuggestResponse struct {
	ModelVariables []string           `json:"modelVariables"`
	Mapping        model.FieldMapping `json:"mapping"`
}

// SummaryResponse holds column statistics of the current buffer.
type SummaryResponse struct {
	Stage   model.Stage           `json:"stage"`
	Columns []model.ColumnSummary `json:"columns"`
	Groups  []model.GroupSummary  `json:"groups,omitempty"`
}

// HistoryResponse is the audit trail of a workflow.
type HistoryResponse struct {
	Runs   []model.StageRun      `json:"runs"`
	Errors []model.WorkflowError `json:"errors"`
}

// CreateWorkflow starts a new workflow session
// @Summary Create a workflow
// @Description Create an empty dataset workflow session
// @Tags workflows
// @Accept json
// @Produce json
// @Param workflow body CreateWorkflowRequest false "Workflow name"
// @Success 201 {object} model.WorkflowInfo "Workflow created"
// @Failure 400 {object} ErrorBody "Invalid request payload"
// @Failure 500 {object} ErrorBody "Internal server error"
// @Router /workflows [post]
func (s *Service) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkflowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	info, err := s.create(r.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// ListWorkflows retrieves all workflows
// @Summary List workflows
// @Description Get all workflows, newest first
// @Tags workflows
// @Produce json
// @Success 200 {array} model.WorkflowInfo "List of workflows"
// @Failure 500 {object} ErrorBody "Internal server error"
// @Router /workflows [get]
func (s *Service) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := s.store.ListWorkflows(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if workflows == nil {
		workflows = []model.WorkflowInfo{}
	}
	writeJSON(w, http.StatusOK, workflows)
}

// GetWorkflow retrieves a workflow and its current state
// @Summary Get workflow
// @Description Retrieve a workflow, its stage, schema, mapping and paging position
// @Tags workflows
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} WorkflowResponse "Workflow details"
// @Failure 404 {object} ErrorBody "Workflow not found"
// @Router /workflows/{id} [get]
func (s *Service) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id := workflowID(r)
	info, err := s.store.GetWorkflow(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := WorkflowResponse{Workflow: *info}
	if ctrl, err := s.controller(id); err == nil {
		snap := ctrl.Snapshot()
		resp.State = &snap
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteWorkflow removes a workflow
// @Summary Delete workflow
// @Description Stop a workflow, delete its history and its exported files
// @Tags workflows
// @Param id path string true "Workflow ID"
// @Success 204 "Workflow deleted"
// @Failure 404 {object} ErrorBody "Workflow not found"
// @Router /workflows/{id} [delete]
func (s *Service) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := s.remove(r.Context(), workflowID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetWorkflow drops all data of a workflow
// @Summary Reset workflow
// @Description Return the workflow to the empty stage and cancel a running analysis
// @Tags workflows
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} pipeline.Snapshot "Workflow state"
// @Failure 404 {object} ErrorBody "Workflow not found"
// @Failure 409 {object} ErrorBody "Another operation is running"
// @Router /workflows/{id}/reset [post]
func (s *Service) ResetWorkflow(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(workflowID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := ctrl.Reset(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

// LoadData replaces the workflow's dataset
// @Summary Load data
// @Description Load rows, a dataset, a backend source, a stored dataset or a CSV/JSON URL
// @Tags stages
// @Accept json
// @Produce json
// @Param id path string true "Workflow ID"
// @Param load body LoadRequest true "Data source"
// @Success 200 {object} pipeline.Snapshot "Workflow state"
// @Failure 400 {object} ErrorBody "Invalid request payload"
// @Failure 409 {object} ErrorBody "Another operation is running"
// @Failure 502 {object} ErrorBody "Backend failure"
// @Router /workflows/{id}/load [post]
func (s *Service) LoadData(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(workflowID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	var req LoadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	src, err := s.loadSource(req)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := ctrl.Load(r.Context(), src); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

func (s *Service) loadSource(req LoadRequest) (pipeline.Source, error) {
	set := 0
	for _, ok := range []bool{len(req.Rows) > 0, req.Dataset != nil, req.Source != nil, req.URL != "", req.DatasetID != ""} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, badRequest("exactly one of rows, dataset, source, url or datasetId is required")
	}

	switch {
	case len(req.Rows) > 0:
		ds, err := pipeline.LoadJSON(req.Rows)
		if err != nil {
			return nil, badRequest("invalid rows: %v", err)
		}
		return pipeline.StaticSource(ds), nil
	case req.Dataset != nil:
		return pipeline.StaticSource(req.Dataset), nil
	case req.URL != "":
		if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
			return nil, badRequest("url must be http or https")
		}
		return pipeline.FileSource{Path: req.URL, Format: req.Format}, nil
	}

	if err := s.requireBackend("load"); err != nil {
		return nil, err
	}
	if req.Source != nil {
		return s.backend.Source(*req.Source), nil
	}
	return pipeline.SourceFunc(func(ctx context.Context) (*model.FetchResult, error) {
		return s.backend.LoadDataset(ctx, req.DatasetID, req.Mapping)
	}), nil
}

// UploadData loads a CSV file
// @Summary Upload CSV
// @Description Load a CSV file sent as multipart form field "file"
// @Tags stages
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Workflow ID"
// @Param file formData file true "CSV file"
// @Success 200 {object} pipeline.Snapshot "Workflow state"
// @Failure 400 {object} ErrorBody "Invalid upload"
// @Failure 502 {object} ErrorBody "Backend failure"
// @Router /workflows/{id}/upload [post]
func (s *Service) UploadData(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(workflowID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, badRequest("invalid multipart form: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, badRequest("file is required"))
		return
	}
	defer file.Close()

	var src pipeline.Source
	if s.opts.RemoteStages && s.backend != nil {
		src = pipeline.SourceFunc(func(ctx context.Context) (*model.FetchResult, error) {
			return s.backend.UploadCSV(ctx, header.Filename, file)
		})
	} else {
		ds, err := pipeline.LoadCSV(file)
		if err != nil {
			writeError(w, badRequest("invalid CSV: %v", err))
			return
		}
		src = pipeline.SourceFunc(func(context.Context) (*model.FetchResult, error) {
			return &model.FetchResult{Data: ds, Metadata: map[string]interface{}{"source": header.Filename}}, nil
		})
	}
	if err := ctrl.Load(r.Context(), src); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

// SuggestMapping proposes a variable-to-field mapping
// @Summary Suggest mapping
// @Description Match model variables to dataset fields by name; the result is not applied
// @Tags mapping
// @Accept json
// @Produce json
// @Param id path string true "Workflow ID"
// @Param request body SuggestRequest true "Model variables"
// @Success 200 {object} SuggestResponse "Suggested mapping"
// @Failure 409 {object} ErrorBody "No dataset loaded"
// @Failure 502 {object} ErrorBody "Backend failure"
// @Router /workflows/{id}/mapping/suggest [post]
func (s *Service) SuggestMapping(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(workflowID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	var req SuggestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	vars := req.ModelVariables
	if len(vars) == 0 && req.DatasetID != "" {
		if err := s.requireBackend("suggest mapping"); err != nil {
			writeError(w, err)
			return
		}
		dv, err := s.backend.DatasetVariables(r.Context(), req.DatasetID)
		if err != nil {
			writeError(w, err)
			return
		}
		vars = dv.ModelVariables
	}
	mapping, err := ctrl.SuggestMapping(vars)
	if err != nil {
		writeError(w, err)
		return
	}
	if vars == nil {
		vars = []string{}
	}
	writeJSON(w, http.StatusOK, SuggestResponse{ModelVariables: vars, Mapping: mapping})
}

// ApplyMapping sets the variable-to-field mapping
// @Summary Apply mapping
// @Description Apply a mapping; filtered and cleaned data are discarded
// @Tags mapping
// @Accept json
// @Produce json
// @Param id path string true "Workflow ID"
// @Param mapping body model.FieldMapping true "Variable to field mapping"
// @Success 200 {object} pipeline.Snapshot "Workflow state"
// @Failure 400 {object} ErrorBody "Invalid mapping"
// @Failure 409 {object} ErrorBody "No dataset loaded"
// @Router /workflows/{id}/mapping [put]
func (s *Service) ApplyMapping(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(workflowID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	var mapping model.FieldMapping
	if err := decodeJSON(r, &mapping); err != nil {
		writeError(w, err)
		return
	}
	if err := ctrl.MapFields(mapping); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

// ApplyFilter runs the filter stage
// @Summary Filter
// @Description Select fields and an optional inclusive year range from the loaded dataset
// @Tags stages
// @Accept json
// @Produce json
// @Param id path string true "Workflow ID"
// @Param filter body model.FilterSpec true "Fields and year range"
// @Success 200 {object} pipeline.Snapshot "Workflow state"
// @Failure 400 {object} ErrorBody "Invalid filter"
// @Failure 409 {object} ErrorBody "No dataset loaded"
// @Router /workflows/{id}/filter [post]
func (s *Service) ApplyFilter(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(workflowID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	var spec model.FilterSpec
	if err := decodeJSON(r, &spec); err != nil {
		writeError(w, err)
		return
	}
	if err := ctrl.Filter(r.Context(), spec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
}

// CleanData runs the cleaning stage
// @Summary Clean
// @Description Clean the filtered dataset and return the cleaning report
// @Tags stages
// @Accept json
// @Produce json
// @Param id path string true "Workflow ID"
// @Param options body model.CleaningOptions true "Cleaning options"
// @Success 200 {object} model.CleaningReport "Cleaning report"
// @Failure 400 {object} ErrorBody "Invalid options"
// @Failure 409 {object} ErrorBody "Dataset not filtered"
// @Router /workflows/{id}/clean [post]
func (s *Service) CleanData(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(workflowID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	var opts model.CleaningOptions
	if err := decodeJSON(r, &opts); err != nil {
		writeError(w, err)
		return
	}
	report, err := ctrl.Clean(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetPage returns one page of the preview
// @Summary Get page
// @Description Move the preview to page n (1-based) and optionally change the page size
// @Tags preview
// @Produce json
// @Param id path string true "Workflow ID"
// @Param n query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} PageResponse "Page records"
// @Failure 400 {object} ErrorBody "Page out of range"
// @Router /workflows/{id}/page [get]
func (s *Service) GetPage(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(workflowID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	if v := q.Get("size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, badRequest("invalid size %q", v))
			return
		}
		if err := ctrl.SetPageSize(size); err != nil {
			writeError(w, err)
			return
		}
	}

	var page pipeline.Preview
	if v := q.Get("n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, badRequest("invalid page %q", v))
			return
		}
		page, err = ctrl.Page(n)
		if err != nil {
			writeError(w, err)
			return
		}
	} else {
		page = ctrl.CurrentPage()
	}
	writePage(w, page)
}

// NextPage advances the preview
// @Summary Next page
// @Description Advance the preview by one page; stays on the last page
// @Tags preview
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} PageResponse "Page records"
// @Router /workflows/{id}/page/next [post]
func (s *Service) NextPage(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(workflowID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, ctrl.NextPage())
}

// PrevPage moves the preview back
// @Summary Previous page
// @Description Move the preview back one page; stays on the first page
// @Tags preview
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} PageResponse "Page records"
// @Router /workflows/{id}/page/prev [post]
func (s *Service) PrevPage(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(workflowID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writePage(w, ctrl.PrevPage())
}

func writePage(w http.ResponseWriter, page pipeline.Preview) {
	raw, err := recordsJSON(page.Schema, page.Records)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageResponse{Schema: page.Schema, Records: raw, Page: page.Page})
}

// GetSummary describes the columns of the current dataset
// @Summary Column summary
// @Description Count, nulls and numeric statistics per column, optionally grouped by a field
// @Tags preview
// @Produce json
// @Param id path string true "Workflow ID"
// @Param groupBy query string false "Group by field"
// @Success 200 {object} SummaryResponse "Column summary"
// @Failure 400 {object} ErrorBody "Unknown group field"
// @Failure 409 {object} ErrorBody "No dataset loaded"
// @Router /workflows/{id}/summary [get]
func (s *Service) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(workflowID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	columns, groups, err := ctrl.Summary(r.URL.Query().Get("groupBy"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{Stage: ctrl.Stage(), Columns: columns, Groups: groups})
}

// GetReport returns the last cleaning report
// @Summary Cleaning report
// @Description Retrieve the report of the last cleaning run
// @Tags stages
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} model.CleaningReport "Cleaning report"
// @Failure 409 {object} ErrorBody "Dataset not cleaned"
// @Router /workflows/{id}/report [get]
func (s *Service) GetReport(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(workflowID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	report := ctrl.Report()
	if report == nil {
		writeError(w, &pipeline.Error{Kind: pipeline.KindPrecondition, Op: "report", Message: "dataset has not been cleaned"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetHistory retrieves the audit trail of a workflow
// @Summary Workflow history
// @Description Retrieve every recorded stage run and surfaced error
// @Tags workflows
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} HistoryResponse "Stage runs and errors"
// @Failure 404 {object} ErrorBody "Workflow not found"
// @Router /workflows/{id}/history [get]
func (s *Service) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := workflowID(r)
	if _, err := s.store.GetWorkflow(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	runs, err := s.store.ListStageRuns(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	errs, err := s.store.ListErrors(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []model.StageRun{}
	}
	if errs == nil {
		errs = []model.WorkflowError{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Runs: runs, Errors: errs})
}

// GetMetrics retrieves stage timings
// @Summary Workflow metrics
// @Description Per-stage run counts, timings and row counts
// @Tags workflows
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} model.WorkflowMetrics "Workflow metrics"
// @Failure 404 {object} ErrorBody "Workflow not found"
// @Router /workflows/{id}/metrics [get]
func (s *Service) GetMetrics(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(workflowID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Tracker().Metrics())
}

// GetFields lists the field choices of a backend table
// @Summary Table fields
// @Description Field choices of a table and, with datasetId, the dataset's model variables
// @Tags mapping
// @Produce json
// @Param id path string true "Workflow ID"
// @Param table query string true "Table"
// @Param datasetId query string false "Stored dataset ID"
// @Success 200 {object} backend.Choices "Field choices"
// @Failure 409 {object} ErrorBody "No backend configured"
// @Failure 502 {object} ErrorBody "Backend failure"
// @Router /workflows/{id}/fields [get]
func (s *Service) GetFields(w http.ResponseWriter, r *http.Request) {
	if _, err := s.controller(workflowID(r)); err != nil {
		writeError(w, err)
		return
	}
	if err := s.requireBackend("get fields"); err != nil {
		writeError(w, err)
		return
	}
	table := r.URL.Query().Get("table")
	if table == "" {
		writeError(w, badRequest("table is required"))
		return
	}
	choices, err := s.backend.Choices(r.Context(), table, r.URL.Query().Get("datasetId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, choices)
}

// ExportData saves the current dataset
// @Summary Export dataset
// @Description Save the current dataset with its provenance to a file, a bucket or the backend
// @Tags files
// @Accept json
// @Produce json
// @Param id path string true "Workflow ID"
// @Param export body pipeline.ExportRequest false "Format, target and name"
// @Success 200 {object} model.ExportResult "Export result"
// @Failure 400 {object} ErrorBody "Invalid export request"
// @Failure 409 {object} ErrorBody "No dataset loaded"
// @Router /workflows/{id}/export [post]
func (s *Service) ExportData(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(workflowID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	var req pipeline.ExportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Target == targetBackend {
		res, err := s.saveToBackend(r, ctrl)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}
	res, err := ctrl.Export(r.Context(), s.exporter, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

const targetBackend = "backend"

func (s *Service) saveToBackend(r *http.Request, ctrl *pipeline.Controller) (*model.ExportResult, error) {
	const op = "save dataset"
	if err := s.requireBackend(op); err != nil {
		return nil, err
	}
	ds := ctrl.Current()
	if ds == nil {
		return nil, &pipeline.Error{Kind: pipeline.KindPrecondition, Op: op, Message: "no dataset loaded"}
	}
	if err := s.backend.SaveDataset(r.Context(), ds, ctrl.Provenance()); err != nil {
		return nil, err
	}
	return &model.ExportResult{
		Type:        targetBackend,
		Format:      "json",
		RecordCount: ds.Len(),
		Success:     true,
		Timestamp:   time.Now().UTC(),
	}, nil
}

// DownloadFile serves an exported file
// @Summary Download file
// @Description Download an exported dataset of a workflow
// @Tags files
// @Produce application/octet-stream
// @Param id path string true "Workflow ID"
// @Param filename path string true "File name"
// @Success 200 {file} file "File download"
// @Failure 404 {object} ErrorBody "File not found"
// @Router /download/{id}/{filename} [get]
func (s *Service) DownloadFile(w http.ResponseWriter, r *http.Request) {
	seg := pathSegments(r)
	if len(seg) != 5 || s.output == nil {
		writeNotFound(w, "file not found")
		return
	}
	id, fileName := seg[3], seg[4]
	path, err := s.output.Resolve(id, fileName)
	if err != nil {
		writeNotFound(w, "file not found")
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Type", s.output.ContentType(fileName))
	http.ServeFile(w, r, path)
}
