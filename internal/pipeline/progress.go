package pipeline

import (
	"context"
	"sync"
	"time"

	"go-dataset-workflow/internal/model"
)

// DefaultPollInterval is how often analysis progress is re-queried.
const DefaultPollInterval = 2 * time.Second

// Progress is one observation of a long-running backend operation.
type Progress struct {
	Percent int       `json:"percent"`
	Err     error     `json:"-"`
	At      time.Time `json:"at"`
}

// ProgressFunc queries the current progress percentage.
type ProgressFunc func(ctx context.Context) (int, error)

// Subscription is a running progress poll. It ends when progress reaches 100,
// when its context ends, or when Cancel is called. Cancel must be called by the
// owner once the operation it watches has finished.
type Subscription struct {
	cancel  context.CancelFunc
	done    chan struct{}
	updates chan Progress

	mu   sync.Mutex
	last Progress
}

// Poll starts calling fn every interval. Query errors are reported in Progress.Err
// and polling carries on.
func Poll(ctx context.Context, interval time.Duration, fn ProgressFunc) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		cancel:  cancel,
		done:    make(chan struct{}),
		updates: make(chan Progress, 1),
	}
	go s.loop(ctx, interval, fn)
	return s
}

func (s *Subscription) loop(ctx context.Context, interval time.Duration, fn ProgressFunc) {
	defer close(s.done)
	defer close(s.updates)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pct, err := fn(ctx)
			if ctx.Err() != nil {
				return
			}
			p := Progress{Err: err, At: time.Now()}
			s.mu.Lock()
			if err == nil {
				p.Percent = pct
			} else {
				p.Percent = s.last.Percent
			}
			s.last = p
			s.mu.Unlock()
			s.publish(p)
			if err == nil && pct >= 100 {
				return
			}
		}
	}
}

// publish keeps only the newest update when the reader lags behind.
func (s *Subscription) publish(p Progress) {
	select {
	case s.updates <- p:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- p:
	default:
	}
}

// Updates delivers observations; the channel is closed when polling stops.
func (s *Subscription) Updates() <-chan Progress { return s.updates }

// Done is closed once the poll loop has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Last returns the most recent observation.
func (s *Subscription) Last() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Cancel stops polling and waits until no further query can run.
func (s *Subscription) Cancel() {
	s.cancel()
	<-s.done
}

// AnalysisRunner runs a model against a dataset on the backend.
type AnalysisRunner interface {
	RunAnalysis(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error)
}

// ProgressReporter is implemented by runners that can report progress.
type ProgressReporter interface {
	AnalysisProgress(ctx context.Context) (int, error)
}

// AnalysisHandle tracks one analysis request. Its progress poll is always
// cancelled when the request returns, fails or is cancelled.
type AnalysisHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
	sub    *Subscription

	result *model.AnalysisResult
	err    error
}

// StartAnalysis sends req in the background. If runner reports progress it is
// polled every interval until the response arrives.
func StartAnalysis(ctx context.Context, runner AnalysisRunner, req model.AnalysisRequest, interval time.Duration) *AnalysisHandle {
	ctx, cancel := context.WithCancel(ctx)
	h := &AnalysisHandle{cancel: cancel, done: make(chan struct{})}
	if pr, ok := runner.(ProgressReporter); ok && interval > 0 {
		h.sub = Poll(ctx, interval, pr.AnalysisProgress)
	}
	go func() {
		defer close(h.done)
		res, err := runner.RunAnalysis(ctx, req)
		if h.sub != nil {
			h.sub.Cancel()
		}
		if err != nil {
			h.err = BackendError("run analysis", err)
		} else {
			h.result = res
		}
		cancel()
	}()
	return h
}

// Done is closed when the request has finished.
func (h *AnalysisHandle) Done() <-chan struct{} { return h.done }

// Wait blocks until the analysis finishes or ctx ends.
func (h *AnalysisHandle) Wait(ctx context.Context) (*model.AnalysisResult, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Progress reports the latest observation; a finished successful run reads as 100.
func (h *AnalysisHandle) Progress() Progress {
	select {
	case <-h.done:
		if h.err == nil {
			return Progress{Percent: 100, At: time.Now()}
		}
	default:
	}
	if h.sub == nil {
		return Progress{}
	}
	return h.sub.Last()
}

// Result returns the outcome once Done is closed, and false before that.
func (h *AnalysisHandle) Result() (*model.AnalysisResult, bool, error) {
	select {
	case <-h.done:
		return h.result, true, h.err
	default:
		return nil, false, nil
	}
}

// Cancel aborts the request and its poll, then waits for both to stop.
func (h *AnalysisHandle) Cancel() {
	h.cancel()
	<-h.done
}
