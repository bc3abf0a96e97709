package pipeline

import "go-dataset-workflow/internal/model"

// DefaultPageSize matches the preview table of the dashboard.
const DefaultPageSize = 10

// PagedView pages over a dataset buffer. The buffer is replaced wholesale, never edited.
type PagedView struct {
	buf      *model.Dataset
	pageSize int
	current  int
}

// NewPagedView creates an empty view. pageSize must be positive.
func NewPagedView(pageSize int) (*PagedView, error) {
	if pageSize <= 0 {
		return nil, newError(KindValidation, "paged view", "page size must be positive, got %d", pageSize)
	}
	return &PagedView{pageSize: pageSize, current: 1}, nil
}

// SetBuffer swaps in a new buffer and rewinds to page 1.
func (v *PagedView) SetBuffer(ds *model.Dataset) {
	v.buf = ds
	v.current = 1
}

// Buffer returns the dataset being paged.
func (v *PagedView) Buffer() *model.Dataset { return v.buf }

// SetPageSize changes the page size and rewinds to page 1.
func (v *PagedView) SetPageSize(n int) error {
	if n <= 0 {
		return newError(KindValidation, "set page size", "page size must be positive, got %d", n)
	}
	v.pageSize = n
	v.current = 1
	return nil
}

// PageCount is ceil(len/pageSize), 0 for an empty buffer.
func (v *PagedView) PageCount() int {
	n := v.buf.Len()
	return (n + v.pageSize - 1) / v.pageSize
}

// Page moves to page k (1-indexed).
func (v *PagedView) Page(k int) error {
	last := max(v.PageCount(), 1)
	if k < 1 || k > last {
		return newError(KindOutOfRange, "page", "page %d outside 1..%d", k, last)
	}
	v.current = k
	return nil
}

// Next advances one page; at the last page it does nothing.
func (v *PagedView) Next() model.PageState {
	if v.current < v.PageCount() {
		v.current++
	}
	return v.State()
}

// Prev goes back one page; at page 1 it does nothing.
func (v *PagedView) Prev() model.PageState {
	if v.current > 1 {
		v.current--
	}
	return v.State()
}

// CurrentSlice returns the records of the current page. The slice aliases the buffer,
// which is safe because buffers are never modified.
func (v *PagedView) CurrentSlice() []model.Record {
	n := v.buf.Len()
	if n == 0 {
		return []model.Record{}
	}
	start := (v.current - 1) * v.pageSize
	end := min(v.current*v.pageSize, n)
	if start >= end {
		return []model.Record{}
	}
	return v.buf.Records[start:end:end]
}

// State snapshots the paging position.
func (v *PagedView) State() model.PageState {
	return model.PageState{
		CurrentPage: v.current,
		PageSize:    v.pageSize,
		TotalPages:  v.PageCount(),
		TotalRows:   v.buf.Len(),
	}
}
