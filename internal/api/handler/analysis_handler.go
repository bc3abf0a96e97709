package handler

import (
	"encoding/json"
	"net/http"

	"go-dataset-workflow/internal/model"
	"go-dataset-workflow/internal/pipeline"
)

// AnalysisStatus reports the last analysis of a workflow.
type AnalysisStatus struct {
	Status   string          `json:"status"` // idle, running, completed, failed
	Progress int             `json:"progress"`
	Results  json.RawMessage `json:"results,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func analysisStatus(h *pipeline.AnalysisHandle) AnalysisStatus {
	if h == nil {
		return AnalysisStatus{Status: "idle"}
	}
	res, done, err := h.Result()
	switch {
	case !done:
		return AnalysisStatus{Status: "running", Progress: h.Progress().Percent}
	case err != nil:
		return AnalysisStatus{Status: "failed", Progress: h.Progress().Percent, Error: err.Error()}
	default:
		st := AnalysisStatus{Status: "completed", Progress: 100}
		if res != nil {
			st.Results = res.Results
		}
		return st
	}
}

// StartAnalysis runs a model against the current dataset
// @Summary Start analysis
// @Description Send the current dataset to the backend; progress is polled until the result arrives
// @Tags analysis
// @Accept json
// @Produce json
// @Param id path string true "Workflow ID"
// @Param request body model.AnalysisRequest true "Model and options"
// @Success 202 {object} AnalysisStatus "Analysis started"
// @Failure 400 {object} ErrorBody "Model is required"
// @Failure 409 {object} ErrorBody "No dataset loaded or analysis already running"
// @Router /workflows/{id}/analysis [post]
func (s *Service) StartAnalysis(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(workflowID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.requireBackend("run analysis"); err != nil {
		writeError(w, err)
		return
	}
	var req model.AnalysisRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h, err := ctrl.StartAnalysis(s.ctx, s.backend, req)
	if err != nil {
		writeError(w, err)
		return
	}
	s.log.Info("analysis started", "workflow", ctrl.ID(), "model", req.Model)
	writeJSON(w, http.StatusAccepted, analysisStatus(h))
}

// GetAnalysis reports analysis progress or its result
// @Summary Analysis status
// @Description Progress of the running analysis, or the result of the last one
// @Tags analysis
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} AnalysisStatus "Analysis status"
// @Failure 404 {object} ErrorBody "Workflow not found"
// @Router /workflows/{id}/analysis [get]
func (s *Service) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(workflowID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisStatus(ctrl.Analysis()))
}

// CancelAnalysis aborts the running analysis
// @Summary Cancel analysis
// @Description Abort the running analysis and stop its progress poll
// @Tags analysis
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} AnalysisStatus "Analysis status"
// @Failure 404 {object} ErrorBody "Workflow not found"
// @Router /workflows/{id}/analysis [delete]
func (s *Service) CancelAnalysis(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.controller(workflowID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	ctrl.CancelAnalysis()
	writeJSON(w, http.StatusOK, analysisStatus(ctrl.Analysis()))
}
