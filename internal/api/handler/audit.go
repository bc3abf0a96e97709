package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"go-dataset-workflow/internal/model"
	"go-dataset-workflow/internal/pipeline"
	"go-dataset-workflow/internal/store"
)

const auditTimeout = 5 * time.Second

// auditListener writes every stage transition and surfaced error of one workflow
// to the store. The cleaned transition is held back until its report arrives so
// both land in one stage run.
type auditListener struct {
	workflowID string
	store      *store.Store
	log        *slog.Logger

	mu      sync.Mutex
	pending *model.StageRun
}

func newAuditListener(workflowID string, st *store.Store, log *slog.Logger) *auditListener {
	return &auditListener{workflowID: workflowID, store: st, log: log}
}

func (a *auditListener) OnBufferChanged(ev pipeline.BufferEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()

	if err := a.store.UpdateWorkflow(ctx, a.workflowID, ev.Stage, ev.Dataset.Len()); err != nil {
		a.log.Error("update workflow", "workflow", a.workflowID, "error", err)
	}
	if ev.Stage == model.StageEmpty {
		return
	}

	run := &model.StageRun{
		WorkflowID:  a.workflowID,
		Stage:       ev.Stage,
		RowsIn:      ev.RowsIn,
		RowsOut:     ev.Dataset.Len(),
		Fingerprint: pipeline.Fingerprint(ev.Dataset),
	}
	if ev.Params != nil {
		if b, err := json.Marshal(ev.Params); err == nil {
			run.Params = b
		}
	}
	if ev.Stage == model.StageCleaned {
		a.mu.Lock()
		a.pending = run
		a.mu.Unlock()
		return
	}
	a.save(ctx, run)
}

func (a *auditListener) OnReport(r model.CleaningReport) {
	a.mu.Lock()
	run := a.pending
	a.pending = nil
	a.mu.Unlock()
	if run == nil {
		return
	}
	if b, err := json.Marshal(r); err == nil {
		run.Report = b
	}
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()
	a.save(ctx, run)
}

func (a *auditListener) OnError(kind pipeline.ErrorKind, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()
	if err := a.store.SaveError(ctx, a.workflowID, string(kind), msg); err != nil {
		a.log.Error("save workflow error", "workflow", a.workflowID, "error", err)
	}
}

func (a *auditListener) save(ctx context.Context, run *model.StageRun) {
	if err := a.store.SaveStageRun(ctx, run); err != nil {
		a.log.Error("save stage run", "workflow", a.workflowID, "stage", run.Stage, "error", err)
	}
}

// logListener reports workflow events through slog.
func logListener(workflowID string, log *slog.Logger) pipeline.Listener {
	log = log.With("workflow", workflowID)
	return pipeline.ListenerFuncs{
		BufferChanged: func(ev pipeline.BufferEvent) {
			log.Info("buffer changed", "stage", ev.Stage, "rows_in", ev.RowsIn, "rows_out", ev.Dataset.Len())
		},
		Report: func(r model.CleaningReport) {
			log.Info("cleaning report",
				"rows_before", r.RowsBefore,
				"rows_after", r.RowsAfter,
				"duplicates", r.DuplicatesRemoved,
				"imputed", r.ValuesImputed,
			)
		},
		Error: func(kind pipeline.ErrorKind, msg string) {
			log.Warn("workflow error", "kind", kind, "error", msg)
		},
	}
}
