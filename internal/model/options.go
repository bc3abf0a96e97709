package model

import (
	"errors"
	"fmt"
)

// MissingValueTreatment selects how null values are handled during cleaning.
type MissingValueTreatment string

const (
	MissingDrop   MissingValueTreatment = "drop"
	MissingMean   MissingValueTreatment = "mean"
	MissingMedian MissingValueTreatment = "median"
	MissingZero   MissingValueTreatment = "zero"
	MissingNone   MissingValueTreatment = "none"
)

// OutlierTreatment selects how values outside the IQR fences are handled.
type OutlierTreatment string

const (
	OutlierClip   OutlierTreatment = "clip"
	OutlierRemove OutlierTreatment = "remove"
	OutlierNone   OutlierTreatment = "none"
)

// NormalizationMethod selects how numeric columns are rescaled.
type NormalizationMethod string

const (
	NormalizeZScore NormalizationMethod = "zscore"
	NormalizeMinMax NormalizationMethod = "minmax"
	NormalizeNone   NormalizationMethod = "none"
)

// CleaningOptions configures one run of the cleaning stage. It is copied by value
// into the stage and into the report, so a run never sees it change.
type CleaningOptions struct {
	MissingValueTreatment MissingValueTreatment `json:"missingValueTreatment"`
	OutlierTreatment      OutlierTreatment      `json:"outlierTreatment"`
	NormalizationMethod   NormalizationMethod   `json:"normalizationMethod"`
	RemoveDuplicates      bool                  `json:"removeDuplicates"`
	ConvertDataTypes      bool                  `json:"convertDataTypes"`
}

// DefaultCleaningOptions leaves the data untouched.
func DefaultCleaningOptions() CleaningOptions {
	return CleaningOptions{
		MissingValueTreatment: MissingNone,
		OutlierTreatment:      OutlierNone,
		NormalizationMethod:   NormalizeNone,
	}
}

// WithDefaults fills unset enum fields with their defaults.
func (o CleaningOptions) WithDefaults() CleaningOptions {
	def := DefaultCleaningOptions()
	if o.MissingValueTreatment == "" {
		o.MissingValueTreatment = def.MissingValueTreatment
	}
	if o.OutlierTreatment == "" {
		o.OutlierTreatment = def.OutlierTreatment
	}
	if o.NormalizationMethod == "" {
		o.NormalizationMethod = def.NormalizationMethod
	}
	return o
}

// Validate rejects unknown enum values.
func (o CleaningOptions) Validate() error {
	switch o.MissingValueTreatment {
	case MissingDrop, MissingMean, MissingMedian, MissingZero, MissingNone:
	default:
		return fmt.Errorf("unknown missingValueTreatment %q", o.MissingValueTreatment)
	}
	switch o.OutlierTreatment {
	case OutlierClip, OutlierRemove, OutlierNone:
	default:
		return fmt.Errorf("unknown outlierTreatment %q", o.OutlierTreatment)
	}
	switch o.NormalizationMethod {
	case NormalizeZScore, NormalizeMinMax, NormalizeNone:
	default:
		return fmt.Errorf("unknown normalizationMethod %q", o.NormalizationMethod)
	}
	return nil
}

// FilterSpec narrows a dataset to a set of fields and an optional inclusive year range.
type FilterSpec struct {
	Table     string   `json:"table"`
	Fields    []string `json:"fields"`
	StartYear *int     `json:"startYear,omitempty"`
	EndYear   *int     `json:"endYear,omitempty"`
}

// HasYearRange reports whether either year bound is set.
func (s FilterSpec) HasYearRange() bool {
	return s.StartYear != nil || s.EndYear != nil
}

// InYearRange reports whether year lies within the bounds that are set.
func (s FilterSpec) InYearRange(year float64) bool {
	if s.StartYear != nil && year < float64(*s.StartYear) {
		return false
	}
	if s.EndYear != nil && year > float64(*s.EndYear) {
		return false
	}
	return true
}

// Validate checks the filter on its own; membership of fields in a schema is checked by the stage.
func (s FilterSpec) Validate() error {
	if len(s.Fields) == 0 {
		return errors.New("at least one field must be selected")
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f == "" {
			return errors.New("empty field name in selection")
		}
		if _, dup := seen[f]; dup {
			return fmt.Errorf("field %q selected twice", f)
		}
		seen[f] = struct{}{}
	}
	if s.StartYear != nil && s.EndYear != nil && *s.StartYear > *s.EndYear {
		return fmt.Errorf("start year %d is after end year %d", *s.StartYear, *s.EndYear)
	}
	return nil
}

// Year is a small helper for building year bounds.
func Year(y int) *int { return &y }
