package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-dataset-workflow/internal/pipeline"
	"go-dataset-workflow/internal/store"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		err  error
		code int
		kind string
	}{
		{&pipeline.Error{Kind: pipeline.KindValidation, Message: "bad"}, http.StatusBadRequest, "validation"},
		{&pipeline.Error{Kind: pipeline.KindOutOfRange, Message: "page"}, http.StatusBadRequest, "out_of_range"},
		{&pipeline.Error{Kind: pipeline.KindInvalidMapping, Message: "field"}, http.StatusBadRequest, "invalid_mapping"},
		{&pipeline.Error{Kind: pipeline.KindPrecondition, Message: "empty"}, http.StatusConflict, "precondition"},
		{&pipeline.Error{Kind: pipeline.KindBusy, Message: "busy"}, http.StatusConflict, "busy"},
		{pipeline.BackendError("fetch", errors.New("refused")), http.StatusBadGateway, "backend"},
		{fmt.Errorf("abc: %w", errWorkflowNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("get: %w", store.ErrNotFound), http.StatusNotFound, "not_found"},
		{errors.New("disk full"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, tt.err)
		if rec.Code != tt.code {
			t.Fatalf("%v: code got %d want %d", tt.err, rec.Code, tt.code)
		}
		var body ErrorBody
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%v: decode: %v", tt.err, err)
		}
		if body.Error.Kind != tt.kind || body.Error.Message != tt.err.Error() {
			t.Fatalf("%v: body got %#v", tt.err, body)
		}
	}
}

func TestWorkflowID(t *testing.T) {
	tests := map[string]string{
		"/api/v1/workflows/abc":        "abc",
		"/api/v1/workflows/abc/filter": "abc",
		"/api/v1/workflows":            "",
	}
	for path, want := range tests {
		if got := workflowID(httptest.NewRequest(http.MethodGet, path, nil)); got != want {
			t.Fatalf("workflowID(%q): got %q want %q", path, got, want)
		}
	}
}
