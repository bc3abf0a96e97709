package pipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"go-dataset-workflow/internal/model"
)

// Source produces a new raw dataset: a backend fetch, an upload, a local file.
type Source interface {
	Fetch(ctx context.Context) (*model.FetchResult, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*model.FetchResult, error)

func (f SourceFunc) Fetch(ctx context.Context) (*model.FetchResult, error) { return f(ctx) }

// StaticSource serves an already decoded dataset.
func StaticSource(ds *model.Dataset, tables ...model.Option) Source {
	return SourceFunc(func(context.Context) (*model.FetchResult, error) {
		return &model.FetchResult{Data: ds, Tables: tables}, nil
	})
}

// Options configures a Controller. Zero values select the local stages.
type Options struct {
	PageSize     int
	Filterer     Filterer
	Cleaner      Cleaner
	Listener     Listener
	Tracker      *Tracker
	PollInterval time.Duration
}

// Controller owns one workflow: the current buffer, the stage it has reached and
// everything derived from earlier stages. Only the controller replaces the buffer,
// and only after a stage has fully succeeded. At most one buffer-replacing
// operation runs at a time; a second one is rejected with KindBusy.
type Controller struct {
	id       string
	inflight *semaphore.Weighted

	mu        sync.RWMutex
	stage     model.Stage
	raw       *model.Dataset
	filtered  *model.Dataset
	cleaned   *model.Dataset
	tables    []model.Option
	modelVars []string
	mapping   model.FieldMapping
	spec      *model.FilterSpec
	cleaning  *model.CleaningOptions
	report    *model.CleaningReport
	view      *PagedView
	analysis  *AnalysisHandle

	filterer     Filterer
	cleaner      Cleaner
	listener     Listener
	tracker      *Tracker
	pollInterval time.Duration
}

// NewController creates an empty workflow.
func NewController(id string, opts Options) (*Controller, error) {
	if opts.PageSize == 0 {
		opts.PageSize = DefaultPageSize
	}
	view, err := NewPagedView(opts.PageSize)
	if err != nil {
		return nil, err
	}
	if opts.Filterer == nil {
		opts.Filterer = FilterStage{}
	}
	if opts.Cleaner == nil {
		opts.Cleaner = CleaningStage{}
	}
	if opts.Listener == nil {
		opts.Listener = Listeners{}
	}
	if opts.Tracker == nil {
		opts.Tracker = NewTracker(id)
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Controller{
		id:           id,
		inflight:     semaphore.NewWeighted(1),
		view:         view,
		filterer:     opts.Filterer,
		cleaner:      opts.Cleaner,
		listener:     opts.Listener,
		tracker:      opts.Tracker,
		pollInterval: opts.PollInterval,
	}, nil
}

// ID returns the workflow id.
func (c *Controller) ID() string { return c.id }

// Tracker returns the stage tracker.
func (c *Controller) Tracker() *Tracker { return c.tracker }

func (c *Controller) acquire(op string) error {
	if !c.inflight.TryAcquire(1) {
		return c.fail(newError(KindBusy, op, "another operation is still running"))
	}
	return nil
}

func (c *Controller) release() { c.inflight.Release(1) }

// fail reports err to the listener and returns it.
func (c *Controller) fail(err error) error {
	kind := KindOf(err)
	if kind == "" {
		kind = KindBackend
	}
	c.listener.OnError(kind, err.Error())
	return err
}

// Load replaces the workflow with a new raw dataset. Mapping, filter and cleaning
// state from the previous dataset is discarded; known model variables are kept and
// a fresh mapping is suggested for them.
func (c *Controller) Load(ctx context.Context, src Source) error {
	const op = "load"
	if err := c.acquire(op); err != nil {
		return err
	}
	defer c.release()

	start := c.tracker.StartStage(op)
	res, err := src.Fetch(ctx)
	if err != nil {
		err = wrapError(KindBackend, op, err)
	} else if res == nil {
		err = newError(KindBackend, op, "source returned no result")
	} else {
		err = validateDataset(op, res.Data)
	}
	if err != nil {
		c.tracker.EndStage(op, start, 0, 0, err)
		return c.fail(err)
	}

	c.mu.Lock()
	rowsIn := c.current().Len()
	c.raw = res.Data
	c.tables = append([]model.Option(nil), res.Tables...)
	c.mapping = nil
	if len(c.modelVars) > 0 {
		c.mapping = SuggestMapping(c.modelVars, c.raw.Schema)
	}
	c.resetFrom(model.StageLoaded)
	ev := BufferEvent{Stage: model.StageLoaded, Dataset: c.raw, RowsIn: rowsIn}
	c.mu.Unlock()

	c.tracker.EndStage(op, start, rowsIn, res.Data.Len(), nil)
	c.listener.OnBufferChanged(ev)
	return nil
}

// resetFrom makes stage the current one and drops everything derived after it.
// Caller holds c.mu.
func (c *Controller) resetFrom(stage model.Stage) {
	if stage <= model.StageLoaded {
		c.filtered = nil
		c.spec = nil
	}
	if stage <= model.StageFiltered {
		c.cleaned = nil
		c.cleaning = nil
		c.report = nil
	}
	if stage == model.StageEmpty {
		c.raw = nil
		c.tables = nil
		c.mapping = nil
	}
	c.stage = stage
	c.view.SetBuffer(c.current())
}

// current returns the buffer valid for the current stage. Caller holds c.mu.
func (c *Controller) current() *model.Dataset {
	switch c.stage {
	case model.StageCleaned:
		return c.cleaned
	case model.StageFiltered:
		return c.filtered
	case model.StageLoaded:
		return c.raw
	default:
		return nil
	}
}

// SuggestMapping remembers the model's variables and proposes a mapping onto the
// loaded dataset's fields. The suggestion is not applied.
func (c *Controller) SuggestMapping(modelVariables []string) (model.FieldMapping, error) {
	c.mu.Lock()
	if err := requireStage("suggest mapping", c.stage, model.StageLoaded); err != nil {
		c.mu.Unlock()
		return nil, c.fail(err)
	}
	c.modelVars = append([]string(nil), modelVariables...)
	suggested := SuggestMapping(c.modelVars, c.raw.Schema)
	c.mu.Unlock()
	return suggested, nil
}

// MapFields applies a variable-to-field mapping. Any filtered or cleaned data
// derived under the old mapping is discarded and the workflow returns to Loaded.
func (c *Controller) MapFields(mapping model.FieldMapping) error {
	const op = "map fields"
	if err := c.acquire(op); err != nil {
		return err
	}
	defer c.release()

	c.mu.Lock()
	if err := requireStage(op, c.stage, model.StageLoaded); err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	applied, err := ApplyMapping(mapping, c.raw.Schema)
	if err == nil {
		err = validateMappingKeys(applied, c.modelVars)
	}
	if err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	c.mapping = applied
	reset := c.stage > model.StageLoaded
	if reset {
		c.resetFrom(model.StageLoaded)
	}
	ev := BufferEvent{Stage: model.StageLoaded, Dataset: c.raw, RowsIn: c.raw.Len(), Params: applied.Clone()}
	c.mu.Unlock()

	if reset {
		c.listener.OnBufferChanged(ev)
	}
	return nil
}

// Filter runs the filter stage on the raw dataset. With no fields selected, the
// fields chosen by the current mapping are used.
func (c *Controller) Filter(ctx context.Context, spec model.FilterSpec) error {
	const op = "filter"
	if err := c.acquire(op); err != nil {
		return err
	}
	defer c.release()

	c.mu.RLock()
	if err := requireStage(op, c.stage, model.StageLoaded); err != nil {
		c.mu.RUnlock()
		return c.fail(err)
	}
	in := c.raw
	if len(spec.Fields) == 0 && c.mapping != nil {
		spec.Fields = c.mapping.SelectedFields(in.Schema)
	}
	c.mu.RUnlock()

	spec.Fields = append([]string(nil), spec.Fields...)
	if err := spec.Validate(); err != nil {
		return c.fail(&Error{Kind: KindValidation, Op: op, Err: err})
	}
	start := c.tracker.StartStage(op)
	out, err := c.filterer.Filter(ctx, in, spec)
	if err == nil {
		err = validateDataset(op, out)
	}
	if err != nil {
		err = wrapError(KindBackend, op, err)
		c.tracker.EndStage(op, start, in.Len(), 0, err)
		return c.fail(err)
	}

	c.mu.Lock()
	c.filtered = out
	c.resetFrom(model.StageFiltered)
	c.spec = &spec
	ev := BufferEvent{Stage: model.StageFiltered, Dataset: out, RowsIn: in.Len(), Params: spec}
	c.mu.Unlock()

	c.tracker.EndStage(op, start, in.Len(), out.Len(), nil)
	c.listener.OnBufferChanged(ev)
	return nil
}

// Clean runs the cleaning stage on the filtered dataset. Cleaning again replaces
// the previous cleaned result; it never cleans already cleaned data.
func (c *Controller) Clean(ctx context.Context, opts model.CleaningOptions) (*model.CleaningReport, error) {
	const op = "clean"
	if err := c.acquire(op); err != nil {
		return nil, err
	}
	defer c.release()

	c.mu.RLock()
	if err := requireStage(op, c.stage, model.StageFiltered); err != nil {
		c.mu.RUnlock()
		return nil, c.fail(err)
	}
	in := c.filtered
	c.mu.RUnlock()

	opts = opts.WithDefaults()
	start := c.tracker.StartStage(op)
	out, report, err := c.cleaner.Clean(ctx, in, opts)
	if err == nil {
		err = validateDataset(op, out)
	}
	if err != nil {
		err = wrapError(KindBackend, op, err)
		c.tracker.EndStage(op, start, in.Len(), 0, err)
		return nil, c.fail(err)
	}
	if report == nil {
		report = model.NewCleaningReport(opts, in.Len())
		report.RowsAfter = out.Len()
	}

	c.mu.Lock()
	c.cleaned = out
	c.resetFrom(model.StageCleaned)
	c.cleaning = &opts
	c.report = report
	ev := BufferEvent{Stage: model.StageCleaned, Dataset: out, RowsIn: in.Len(), Params: opts}
	c.mu.Unlock()

	c.tracker.EndStage(op, start, in.Len(), out.Len(), nil)
	c.listener.OnBufferChanged(ev)
	c.listener.OnReport(*report)
	return report, nil
}

// Reset returns the workflow to Empty, forgets the model variables and cancels
// a running analysis.
func (c *Controller) Reset() error {
	if err := c.acquire("reset"); err != nil {
		return err
	}
	defer c.release()
	c.CancelAnalysis()

	c.mu.Lock()
	c.resetFrom(model.StageEmpty)
	c.modelVars = nil
	c.analysis = nil
	c.mu.Unlock()
	c.listener.OnBufferChanged(BufferEvent{Stage: model.StageEmpty})
	return nil
}

// Close stops background work tied to the workflow.
func (c *Controller) Close() {
	c.CancelAnalysis()
}

// Stage returns the current workflow stage.
func (c *Controller) Stage() model.Stage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stage
}

// Current returns the dataset valid for the current stage, nil when Empty.
func (c *Controller) Current() *model.Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current()
}

// Raw returns the loaded dataset.
func (c *Controller) Raw() *model.Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.raw
}

// Report returns the last cleaning report, if the workflow is Cleaned.
func (c *Controller) Report() *model.CleaningReport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.report
}

// Snapshot is a consistent read of the controller state.
type Snapshot struct {
	ID              string                 `json:"id"`
	Stage           model.Stage            `json:"stage"`
	Schema          []string               `json:"schema"`
	Rows            int                    `json:"rows"`
	Tables          []model.Option         `json:"tables"`
	ModelVariables  []string               `json:"modelVariables"`
	Mapping         model.FieldMapping     `json:"mapping"`
	FilterSpec      *model.FilterSpec      `json:"filterSpec,omitempty"`
	CleaningOptions *model.CleaningOptions `json:"cleaningOptions,omitempty"`
	Page            model.PageState        `json:"page"`
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cur := c.current()
	s := Snapshot{
		ID:             c.id,
		Stage:          c.stage,
		Rows:           cur.Len(),
		Tables:         append([]model.Option(nil), c.tables...),
		ModelVariables: append([]string(nil), c.modelVars...),
		Mapping:        c.mapping.Clone(),
		Page:           c.view.State(),
	}
	if cur != nil {
		s.Schema = append([]string(nil), cur.Schema...)
	}
	if c.spec != nil {
		spec := *c.spec
		s.FilterSpec = &spec
	}
	if c.cleaning != nil {
		opts := *c.cleaning
		s.CleaningOptions = &opts
	}
	return s
}

// SetPageSize changes the preview page size.
func (c *Controller) SetPageSize(n int) error {
	c.mu.Lock()
	err := c.view.SetPageSize(n)
	c.mu.Unlock()
	if err != nil {
		return c.fail(err)
	}
	return nil
}

// Preview is one page of the current dataset together with the schema it was cut from.
type Preview struct {
	Schema  []string
	Records []model.Record
	Page    model.PageState
}

// preview must be called with c.mu held.
func (c *Controller) preview() Preview {
	p := Preview{Schema: []string{}, Records: c.view.CurrentSlice(), Page: c.view.State()}
	if cur := c.current(); cur != nil {
		p.Schema = append(p.Schema, cur.Schema...)
	}
	return p
}

// Page moves the preview to page k and returns it.
func (c *Controller) Page(k int) (Preview, error) {
	c.mu.Lock()
	err := c.view.Page(k)
	p := c.preview()
	c.mu.Unlock()
	if err != nil {
		return p, c.fail(err)
	}
	return p, nil
}

// NextPage advances the preview; a no-op on the last page.
func (c *Controller) NextPage() Preview {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Next()
	return c.preview()
}

// PrevPage goes back one page; a no-op on the first page.
func (c *Controller) PrevPage() Preview {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Prev()
	return c.preview()
}

// CurrentPage returns the page the preview is on.
func (c *Controller) CurrentPage() Preview {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.preview()
}

// StartAnalysis sends the current buffer to the analysis backend. Progress is
// polled until the response arrives; only one analysis runs per workflow.
func (c *Controller) StartAnalysis(ctx context.Context, runner AnalysisRunner, req model.AnalysisRequest) (*AnalysisHandle, error) {
	const op = "run analysis"
	c.mu.Lock()
	if err := c.analysisAllowed(op, req); err != nil {
		c.mu.Unlock()
		return nil, c.fail(err)
	}
	req.Data = c.current()
	if req.Mapping == nil {
		req.Mapping = c.mapping.Clone()
	}
	h := StartAnalysis(ctx, runner, req, c.pollInterval)
	c.analysis = h
	c.mu.Unlock()
	return h, nil
}

// analysisAllowed is called with c.mu held.
func (c *Controller) analysisAllowed(op string, req model.AnalysisRequest) error {
	if err := requireStage(op, c.stage, model.StageLoaded); err != nil {
		return err
	}
	if c.analysis != nil {
		if _, done, _ := c.analysis.Result(); !done {
			return newError(KindBusy, op, "an analysis is already running")
		}
	}
	if req.Model == "" {
		return newError(KindValidation, op, "model is required")
	}
	return nil
}

// Analysis returns the most recent analysis handle, if any.
func (c *Controller) Analysis() *AnalysisHandle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.analysis
}

// CancelAnalysis aborts a running analysis and its progress poll.
func (c *Controller) CancelAnalysis() {
	c.mu.RLock()
	h := c.analysis
	c.mu.RUnlock()
	if h != nil {
		h.Cancel()
	}
}

// Provenance describes how the current buffer was produced.
func (c *Controller) Provenance() Provenance {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cur := c.current()
	p := Provenance{WorkflowID: c.id, Stage: c.stage, Fingerprint: Fingerprint(cur)}
	if cur != nil {
		p.Fields = append([]string(nil), cur.Schema...)
	}
	if c.spec != nil {
		spec := *c.spec
		p.FilterSpec = &spec
	}
	if c.cleaning != nil {
		opts := *c.cleaning
		p.CleaningOptions = &opts
	}
	return p
}

// Export saves the current buffer together with its provenance.
func (c *Controller) Export(ctx context.Context, e *Exporter, req ExportRequest) (*model.ExportResult, error) {
	if err := requireStage("export", c.Stage(), model.StageLoaded); err != nil {
		return nil, c.fail(err)
	}
	res, err := e.Export(ctx, c.Current(), c.Provenance(), req)
	if err != nil {
		return res, c.fail(err)
	}
	return res, nil
}

// Summary describes the columns of the current buffer, optionally per group.
func (c *Controller) Summary(groupBy string) ([]model.ColumnSummary, []model.GroupSummary, error) {
	cur := c.Current()
	if cur == nil {
		return nil, nil, c.fail(newError(KindPrecondition, "summary", "no dataset loaded"))
	}
	if groupBy == "" {
		return Summarize(cur), nil, nil
	}
	groups, err := SummarizeBy(cur, groupBy)
	if err != nil {
		return nil, nil, c.fail(err)
	}
	return Summarize(cur), groups, nil
}

// Tables returns the table choices reported by the last source.
func (c *Controller) Tables() []model.Option {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Option(nil), c.tables...)
}

// Mapping returns the applied or suggested mapping.
func (c *Controller) Mapping() model.FieldMapping {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mapping.Clone()
}
