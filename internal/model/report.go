package model

// CleaningReport is the audit record of one cleaning run. Nothing reads it to make decisions.
type CleaningReport struct {
	Options CleaningOptions `json:"options"`

	RowsBefore int `json:"rowsBefore"`
	RowsAfter  int `json:"rowsAfter"`

	DuplicatesRemoved   int `json:"duplicatesRemoved"`
	RowsDroppedMissing  int `json:"rowsDroppedMissing"`
	RowsDroppedOutliers int `json:"rowsDroppedOutliers"`
	ValuesImputed       int `json:"valuesImputed"`
	ValuesClipped       int `json:"valuesClipped"`

	NullsBefore map[string]int `json:"nullsBefore"`
	NullsAfter  map[string]int `json:"nullsAfter"`
	Outliers    map[string]int `json:"outliers"`

	Normalized map[string]NormalizationMethod `json:"normalized"`
	Converted  []string                       `json:"converted"`
	Warnings   []string                       `json:"warnings,omitempty"`
}

// NewCleaningReport returns a report with its maps allocated.
func NewCleaningReport(opts CleaningOptions, rowsBefore int) *CleaningReport {
	return &CleaningReport{
		Options:     opts,
		RowsBefore:  rowsBefore,
		NullsBefore: make(map[string]int),
		NullsAfter:  make(map[string]int),
		Outliers:    make(map[string]int),
		Normalized:  make(map[string]NormalizationMethod),
		Converted:   []string{},
	}
}

// RowsRemoved is the total number of records the run dropped.
func (r *CleaningReport) RowsRemoved() int {
	return r.RowsBefore - r.RowsAfter
}

// ColumnSummary describes one column of a dataset for the preview panel.
type ColumnSummary struct {
	Field   string   `json:"field"`
	Count   int      `json:"count"`
	Nulls   int      `json:"nulls"`
	Numeric bool     `json:"numeric"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Mean    *float64 `json:"mean,omitempty"`
	Sum     *float64 `json:"sum,omitempty"`
}

// GroupSummary holds column summaries for the records sharing one group value.
type GroupSummary struct {
	GroupKey   string          `json:"groupKey"`
	GroupValue interface{}     `json:"groupValue"`
	Records    int             `json:"records"`
	Columns    []ColumnSummary `json:"columns"`
}
