package pipeline

import "go-dataset-workflow/internal/model"

// BufferEvent is emitted after a stage has swapped in a new buffer.
type BufferEvent struct {
	Stage   model.Stage
	Dataset *model.Dataset
	RowsIn  int
	// Params is what the stage ran with: a FilterSpec, CleaningOptions, FetchRequest or nil.
	Params interface{}
}

// Listener receives workflow events. Rendering layers, loggers and audit stores
// subscribe through it; the controller never calls them while holding a partial buffer.
type Listener interface {
	OnBufferChanged(BufferEvent)
	OnReport(model.CleaningReport)
	OnError(kind ErrorKind, message string)
}

// ListenerFuncs adapts plain functions to a Listener. Nil fields are skipped.
type ListenerFuncs struct {
	BufferChanged func(BufferEvent)
	Report        func(model.CleaningReport)
	Error         func(ErrorKind, string)
}

func (l ListenerFuncs) OnBufferChanged(ev BufferEvent) {
	if l.BufferChanged != nil {
		l.BufferChanged(ev)
	}
}

func (l ListenerFuncs) OnReport(r model.CleaningReport) {
	if l.Report != nil {
		l.Report(r)
	}
}

func (l ListenerFuncs) OnError(kind ErrorKind, msg string) {
	if l.Error != nil {
		l.Error(kind, msg)
	}
}

// Listeners fans every event out in order.
type Listeners []Listener

func (ls Listeners) OnBufferChanged(ev BufferEvent) {
	for _, l := range ls {
		l.OnBufferChanged(ev)
	}
}

func (ls Listeners) OnReport(r model.CleaningReport) {
	for _, l := range ls {
		l.OnReport(r)
	}
}

func (ls Listeners) OnError(kind ErrorKind, msg string) {
	for _, l := range ls {
		l.OnError(kind, msg)
	}
}
