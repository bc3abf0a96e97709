package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go-dataset-workflow/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "workflows.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWorkflowLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	wf := &model.WorkflowInfo{Name: "mortality"}
	if err := s.SaveWorkflow(ctx, wf); err != nil {
		t.Fatalf("SaveWorkflow: %v", err)
	}
	if wf.ID == "" {
		t.Fatalf("expected generated id")
	}

	if err := s.UpdateWorkflow(ctx, wf.ID, model.StageFiltered, 42); err != nil {
		t.Fatalf("UpdateWorkflow: %v", err)
	}
	got, err := s.GetWorkflow(ctx, wf.ID)
	if err != nil {
		t.Fatalf("GetWorkflow: %v", err)
	}
	if got.Name != "mortality" || got.Stage != model.StageFiltered || got.Rows != 42 {
		t.Fatalf("workflow: got %#v", got)
	}

	list, err := s.ListWorkflows(ctx)
	if err != nil {
		t.Fatalf("ListWorkflows: %v", err)
	}
	if len(list) != 1 || list[0].ID != wf.ID {
		t.Fatalf("list: got %#v", list)
	}

	if err := s.DeleteWorkflow(ctx, wf.ID); err != nil {
		t.Fatalf("DeleteWorkflow: %v", err)
	}
	if _, err := s.GetWorkflow(ctx, wf.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestUnknownWorkflow(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.UpdateWorkflow(ctx, "missing", model.StageLoaded, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateWorkflow: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteWorkflow(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteWorkflow: expected ErrNotFound, got %v", err)
	}
}

func TestStageRunsInOrder(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	runs := []*model.StageRun{
		{WorkflowID: "w1", Stage: model.StageLoaded, RowsOut: 10, Fingerprint: "aa", CreatedAt: base},
		{WorkflowID: "w1", Stage: model.StageFiltered, Params: []byte(`{"fields":["age"]}`), RowsIn: 10, RowsOut: 4, Fingerprint: "bb", CreatedAt: base.Add(time.Second)},
		{WorkflowID: "w2", Stage: model.StageLoaded, RowsOut: 1, Fingerprint: "cc", CreatedAt: base},
	}
	for _, r := range runs {
		if err := s.SaveStageRun(ctx, r); err != nil {
			t.Fatalf("SaveStageRun: %v", err)
		}
	}

	got, err := s.ListStageRuns(ctx, "w1")
	if err != nil {
		t.Fatalf("ListStageRuns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("runs: got %d want 2", len(got))
	}
	if got[0].Stage != model.StageLoaded || got[1].Stage != model.StageFiltered {
		t.Fatalf("order: got %v then %v", got[0].Stage, got[1].Stage)
	}
	if string(got[1].Params) != `{"fields":["age"]}` || got[0].Params != nil {
		t.Fatalf("params: got %q and %q", got[0].Params, got[1].Params)
	}
	if got[1].RowsIn != 10 || got[1].RowsOut != 4 || got[1].Fingerprint != "bb" {
		t.Fatalf("run: got %#v", got[1])
	}
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.SaveError(ctx, "w1", "precondition", "clean: requires stage filtered"); err != nil {
		t.Fatalf("SaveError: %v", err)
	}
	if err := s.SaveError(ctx, "w1", "busy", "filter: busy"); err != nil {
		t.Fatalf("SaveError: %v", err)
	}
	got, err := s.ListErrors(ctx, "w1")
	if err != nil {
		t.Fatalf("ListErrors: %v", err)
	}
	if len(got) != 2 || got[0].Kind != "precondition" || got[1].Message != "filter: busy" {
		t.Fatalf("errors: got %#v", got)
	}
}
