package model

import "fmt"

// Stage is a workflow state. Stages are ordered; a later stage implies all earlier ones ran.
type Stage int

const (
	StageEmpty Stage = iota
	StageLoaded
	StageFiltered
	StageCleaned
)

var stageNames = [...]string{"empty", "loaded", "filtered", "cleaned"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a stage name.
func (s *Stage) UnmarshalText(b []byte) error {
	for i, name := range stageNames {
		if name == string(b) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", string(b))
}

// PageState is the paging position over the current buffer.
// 1 <= CurrentPage <= max(TotalPages, 1) always holds.
type PageState struct {
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
	TotalPages  int `json:"totalPages"`
	TotalRows   int `json:"totalRows"`
}

// HasPrev reports whether a previous page exists.
func (p PageState) HasPrev() bool { return p.CurrentPage > 1 }

// HasNext reports whether a following page exists.
func (p PageState) HasNext() bool { return p.CurrentPage < p.TotalPages }
