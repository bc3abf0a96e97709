package handler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go-dataset-workflow/internal/backend"
	"go-dataset-workflow/internal/model"
	"go-dataset-workflow/internal/pipeline"
	"go-dataset-workflow/internal/store"
	"go-dataset-workflow/pkg/utils"
)

// Options tune the controllers the service creates.
type Options struct {
	PageSize     int
	YearField    string
	PollInterval time.Duration
	// RemoteStages runs filtering, cleaning and CSV uploads on the backend.
	RemoteStages bool
}

type session struct {
	ctrl *pipeline.Controller
	info model.WorkflowInfo
}

// Service holds one controller per workflow session and serves them over HTTP.
type Service struct {
	store    *store.Store
	backend  *backend.Client
	exporter *pipeline.Exporter
	output   *utils.OutputManager
	opts     Options
	log      *slog.Logger

	// analyses outlive the request that started them
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	workflows map[string]*session
}

// NewService wires the HTTP layer. bc may be nil when no analysis backend is configured.
func NewService(st *store.Store, bc *backend.Client, exporter *pipeline.Exporter, output *utils.OutputManager, opts Options, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:     st,
		backend:   bc,
		exporter:  exporter,
		output:    output,
		opts:      opts,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		workflows: make(map[string]*session),
	}
}

// Close stops every running analysis.
func (s *Service) Close() {
	s.cancel()
	s.mu.RLock()
	sessions := make([]*session, 0, len(s.workflows))
	for _, sess := range s.workflows {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()
	for _, sess := range sessions {
		sess.ctrl.Close()
	}
}

func (s *Service) create(ctx context.Context, name string) (*model.WorkflowInfo, error) {
	info := &model.WorkflowInfo{Name: name}
	if err := s.store.SaveWorkflow(ctx, info); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	opts := pipeline.Options{
		PageSize:     s.opts.PageSize,
		Filterer:     pipeline.FilterStage{YearField: s.opts.YearField},
		PollInterval: s.opts.PollInterval,
		Listener: pipeline.Listeners{
			newAuditListener(info.ID, s.store, s.log),
			logListener(info.ID, s.log),
		},
	}
	if s.opts.RemoteStages && s.backend != nil {
		opts.Filterer = s.backend
		opts.Cleaner = s.backend
	}
	ctrl, err := pipeline.NewController(info.ID, opts)
	if err != nil {
		if derr := s.store.DeleteWorkflow(ctx, info.ID); derr != nil {
			s.log.Warn("roll back workflow", "workflow", info.ID, "error", derr)
		}
		return nil, err
	}

	s.mu.Lock()
	s.workflows[info.ID] = &session{ctrl: ctrl, info: *info}
	s.mu.Unlock()
	s.log.Info("workflow created", "workflow", info.ID, "name", name)
	return info, nil
}

func (s *Service) controller(id string) (*pipeline.Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.workflows[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, errWorkflowNotFound)
	}
	return sess.ctrl, nil
}

func (s *Service) remove(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.workflows[id]
	delete(s.workflows, id)
	s.mu.Unlock()
	if ok {
		sess.ctrl.Close()
	}

	if err := s.store.DeleteWorkflow(ctx, id); err != nil {
		return err
	}
	if s.output != nil {
		if err := s.output.RemoveWorkflowDir(id); err != nil {
			s.log.Warn("remove workflow output", "workflow", id, "error", err)
		}
	}
	s.log.Info("workflow deleted", "workflow", id)
	return nil
}

func (s *Service) requireBackend(op string) error {
	if s.backend == nil {
		return &pipeline.Error{Kind: pipeline.KindPrecondition, Op: op, Message: "no analysis backend configured"}
	}
	return nil
}
