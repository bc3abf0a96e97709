package pipeline

import (
	"errors"
	"testing"

	"go-dataset-workflow/internal/model"
)

func numbered(t *testing.T, n int) *model.Dataset {
	values := make([][]interface{}, n)
	for i := range values {
		values[i] = []interface{}{i + 1}
	}
	return rows(t, []string{"n"}, values...)
}

func TestNewPagedView_RejectsBadSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := NewPagedView(size); !errors.Is(err, ErrValidation) {
			t.Fatalf("size %d: got %v want validation error", size, err)
		}
	}
}

func TestPagedView_Paging(t *testing.T) {
	v, err := NewPagedView(10)
	if err != nil {
		t.Fatal(err)
	}
	v.SetBuffer(numbered(t, 25))

	if got := v.PageCount(); got != 3 {
		t.Fatalf("page count: got %d want 3", got)
	}
	if got := v.State(); got != (model.PageState{CurrentPage: 1, PageSize: 10, TotalPages: 3, TotalRows: 25}) {
		t.Fatalf("initial state: got %#v", got)
	}

	if err := v.Page(3); err != nil {
		t.Fatalf("page 3: %v", err)
	}
	slice := v.CurrentSlice()
	if len(slice) != 5 || slice[0]["n"] != 21 || slice[4]["n"] != 25 {
		t.Fatalf("last page: got %#v", slice)
	}

	for _, k := range []int{0, 4, -2} {
		if err := v.Page(k); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("page %d: got %v want out of range", k, err)
		}
		if v.State().CurrentPage != 3 {
			t.Fatalf("failed page move changed position to %d", v.State().CurrentPage)
		}
	}

	if st := v.Next(); st.CurrentPage != 3 {
		t.Fatalf("next on last page: got %d", st.CurrentPage)
	}
	v.Prev()
	v.Prev()
	if st := v.Prev(); st.CurrentPage != 1 || st.HasPrev() || !st.HasNext() {
		t.Fatalf("prev on first page: got %#v", st)
	}
}

func TestPagedView_ResetsOnChange(t *testing.T) {
	v, _ := NewPagedView(2)
	v.SetBuffer(numbered(t, 6))
	v.Page(3)

	if err := v.SetPageSize(4); err != nil {
		t.Fatal(err)
	}
	if st := v.State(); st.CurrentPage != 1 || st.TotalPages != 2 {
		t.Fatalf("after resize: got %#v", st)
	}
	if err := v.SetPageSize(0); !errors.Is(err, ErrValidation) {
		t.Fatalf("resize to 0: got %v", err)
	}

	v.Page(2)
	v.SetBuffer(numbered(t, 1))
	if st := v.State(); st.CurrentPage != 1 || st.TotalRows != 1 {
		t.Fatalf("after new buffer: got %#v", st)
	}
}

func TestPagedView_EmptyBuffer(t *testing.T) {
	v, _ := NewPagedView(10)

	if got := v.State(); got != (model.PageState{CurrentPage: 1, PageSize: 10}) {
		t.Fatalf("empty state: got %#v", got)
	}
	if s := v.CurrentSlice(); s == nil || len(s) != 0 {
		t.Fatalf("empty slice: got %#v", s)
	}
	if err := v.Page(1); err != nil {
		t.Fatalf("page 1 of empty buffer: %v", err)
	}
	if err := v.Page(2); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("page 2 of empty buffer: got %v", err)
	}
	if st := v.Next(); st.CurrentPage != 1 {
		t.Fatalf("next on empty buffer: got %d", st.CurrentPage)
	}
}

func TestPagedView_PagesCoverBuffer(t *testing.T) {
	for p := 1; p <= 7; p++ {
		for n := 0; n <= 23; n++ {
			v, err := NewPagedView(p)
			if err != nil {
				t.Fatal(err)
			}
			v.SetBuffer(numbered(t, n))

			if want := (n + p - 1) / p; v.PageCount() != want {
				t.Fatalf("n=%d p=%d: page count got %d want %d", n, p, v.PageCount(), want)
			}
			var got []model.Record
			for k := 1; k <= v.PageCount(); k++ {
				if err := v.Page(k); err != nil {
					t.Fatalf("n=%d p=%d: page %d: %v", n, p, k, err)
				}
				got = append(got, v.CurrentSlice()...)
			}
			if len(got) != n {
				t.Fatalf("n=%d p=%d: pages hold %d records", n, p, len(got))
			}
			for i, rec := range got {
				if rec["n"] != i+1 {
					t.Fatalf("n=%d p=%d: record %d got %#v", n, p, i, rec)
				}
			}
		}
	}
}
