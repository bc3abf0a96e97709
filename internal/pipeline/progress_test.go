package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-dataset-workflow/internal/model"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPoll_StopsAtHundred(t *testing.T) {
	var calls atomic.Int32
	steps := []int{30, 60, 100, 100}
	sub := Poll(context.Background(), time.Millisecond, func(context.Context) (int, error) {
		n := calls.Add(1)
		return steps[n-1], nil
	})

	var last Progress
	for p := range sub.Updates() {
		last = p
	}
	<-sub.Done()
	if last.Percent != 100 || sub.Last().Percent != 100 {
		t.Fatalf("last progress: got %#v", last)
	}
	if calls.Load() != 3 {
		t.Fatalf("polling should stop at 100, made %d calls", calls.Load())
	}
}

func TestPoll_ErrorKeepsLastPercent(t *testing.T) {
	var calls atomic.Int32
	sub := Poll(context.Background(), time.Millisecond, func(context.Context) (int, error) {
		if calls.Add(1) == 1 {
			return 40, nil
		}
		return 0, errors.New("status unavailable")
	})
	waitFor(t, "a few polls", func() bool { return calls.Load() >= 3 })
	sub.Cancel()

	last := sub.Last()
	if last.Percent != 40 || last.Err == nil {
		t.Fatalf("last progress: got %#v", last)
	}
}

func TestPoll_Cancel(t *testing.T) {
	var calls atomic.Int32
	sub := Poll(context.Background(), time.Millisecond, func(context.Context) (int, error) {
		calls.Add(1)
		return 10, nil
	})
	waitFor(t, "first poll", func() bool { return calls.Load() >= 1 })
	sub.Cancel()

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != after {
		t.Fatalf("polls after cancel: %d then %d", after, calls.Load())
	}
	for range sub.Updates() {
	}
}

type fakeRunner struct {
	release chan struct{}
	fail    error

	mu   sync.Mutex
	rows int
}

func (f *fakeRunner) RunAnalysis(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	f.mu.Lock()
	f.rows = req.Data.Len()
	f.mu.Unlock()
	select {
	case <-f.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if f.fail != nil {
		return nil, f.fail
	}
	return &model.AnalysisResult{Results: json.RawMessage(`{"deviance":1.5}`)}, nil
}

func (f *fakeRunner) AnalysisProgress(context.Context) (int, error) { return 50, nil }

func TestStartAnalysis_ProgressThenResult(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	h := StartAnalysis(context.Background(), runner, model.AnalysisRequest{Model: "lc", Data: mortality(t)}, time.Millisecond)

	waitFor(t, "progress", func() bool { return h.Progress().Percent == 50 })
	if _, done, _ := h.Result(); done {
		t.Fatalf("analysis finished early")
	}

	close(runner.release)
	res, err := h.Wait(context.Background())
	if err != nil || string(res.Results) != `{"deviance":1.5}` {
		t.Fatalf("wait: %v %#v", err, res)
	}
	if h.Progress().Percent != 100 {
		t.Fatalf("finished analysis should read 100, got %d", h.Progress().Percent)
	}
}

func TestStartAnalysis_Failure(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{}), fail: errors.New("model diverged")}
	close(runner.release)
	h := StartAnalysis(context.Background(), runner, model.AnalysisRequest{Model: "lc", Data: mortality(t)}, time.Millisecond)

	if _, err := h.Wait(context.Background()); !errors.Is(err, ErrBackend) {
		t.Fatalf("failure: got %v", err)
	}
	if p := h.Progress(); p.Percent == 100 {
		t.Fatalf("failed analysis should not read 100")
	}
}

func TestStartAnalysis_Cancel(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	h := StartAnalysis(context.Background(), runner, model.AnalysisRequest{Model: "lc", Data: mortality(t)}, time.Millisecond)
	h.Cancel()

	_, done, err := h.Result()
	if !done || !errors.Is(err, context.Canceled) {
		t.Fatalf("cancel: done %v err %v", done, err)
	}
}

func TestController_StartAnalysis(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{release: make(chan struct{})}

	c, _ := newTestController(t, Options{PollInterval: time.Millisecond})
	if _, err := c.StartAnalysis(ctx, runner, model.AnalysisRequest{Model: "lc"}); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("analysis before load: got %v", err)
	}
	if err := c.Load(ctx, StaticSource(mortality(t))); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := c.StartAnalysis(ctx, runner, model.AnalysisRequest{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing model: got %v", err)
	}

	h, err := c.StartAnalysis(ctx, runner, model.AnalysisRequest{Model: "lc"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := c.StartAnalysis(ctx, runner, model.AnalysisRequest{Model: "lc"}); !errors.Is(err, ErrBusy) {
		t.Fatalf("second analysis: got %v", err)
	}
	if c.Analysis() != h {
		t.Fatalf("controller should expose the running analysis")
	}

	close(runner.release)
	if _, err := h.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.rows != 4 {
		t.Fatalf("analysis should receive the current buffer, got %d rows", runner.rows)
	}
}

func TestController_ResetCancelsAnalysis(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{release: make(chan struct{})}
	c, _ := loaded(t, Options{PollInterval: time.Millisecond})

	h, err := c.StartAnalysis(ctx, runner, model.AnalysisRequest{Model: "lc"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, done, err := h.Result(); !done || err == nil {
		t.Fatalf("reset should cancel the analysis: done %v err %v", done, err)
	}
}
