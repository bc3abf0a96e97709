package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go-dataset-workflow/internal/model"
	"go-dataset-workflow/internal/pipeline"
	"go-dataset-workflow/internal/store"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail names the error kind so clients can choose how to notify.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

var errWorkflowNotFound = errors.New("workflow not found")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps workflow error kinds to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := string(pipeline.KindOf(err))
	switch pipeline.KindOf(err) {
	case pipeline.KindValidation, pipeline.KindInvalidMapping, pipeline.KindOutOfRange:
		status = http.StatusBadRequest
	case pipeline.KindPrecondition, pipeline.KindBusy:
		status = http.StatusConflict
	case pipeline.KindBackend:
		status = http.StatusBadGateway
	default:
		switch {
		case errors.Is(err, errWorkflowNotFound), errors.Is(err, store.ErrNotFound):
			status, kind = http.StatusNotFound, "not_found"
		default:
			kind = "internal"
		}
	}
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Kind: kind, Message: err.Error()}})
}

func writeNotFound(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusNotFound, ErrorBody{Error: ErrorDetail{Kind: "not_found", Message: msg}})
}

func badRequest(format string, args ...interface{}) error {
	return &pipeline.Error{Kind: pipeline.KindValidation, Message: fmt.Sprintf(format, args...)}
}

// decodeJSON reads a JSON request body into v. An empty body leaves v unchanged.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return badRequest("invalid JSON payload: %v", err)
	}
	return nil
}

// pathSegments returns the non-empty segments of the URL path.
func pathSegments(r *http.Request) []string {
	return strings.FieldsFunc(r.URL.Path, func(c rune) bool { return c == '/' })
}

// workflowID is the segment after /api/v1/workflows.
func workflowID(r *http.Request) string {
	seg := pathSegments(r)
	if len(seg) < 4 {
		return ""
	}
	return seg[3]
}

// recordsJSON encodes records in schema order.
func recordsJSON(schema []string, records []model.Record) (json.RawMessage, error) {
	ds := model.Dataset{Schema: schema, Records: records}
	return ds.MarshalRows()
}

// PageResponse is one page of the preview.
type PageResponse struct {
	Schema  []string        `json:"schema"`
	Records json.RawMessage `json:"records"`
	Page    model.PageState `json:"page"`
}
