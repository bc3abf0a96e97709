package pipeline

import (
	"strings"

	"golang.org/x/text/cases"

	"go-dataset-workflow/internal/model"
)

// SuggestMapping proposes a dataset field for each model variable.
//
// For every variable the dataset fields are scanned in the order given and the first
// field that contains the variable, or is contained by it, wins (case-insensitive).
// Variables with no such field are left unmapped. The result depends on field order:
// "age" maps to "Average" if that field comes before "Age_Years".
func SuggestMapping(modelVariables, datasetFields []string) model.FieldMapping {
	fold := cases.Fold()
	folded := make([]string, len(datasetFields))
	for i, f := range datasetFields {
		folded[i] = fold.String(f)
	}

	out := make(model.FieldMapping, len(modelVariables))
	for _, v := range modelVariables {
		fv := fold.String(v)
		out[v] = ""
		for i, ff := range folded {
			if strings.Contains(ff, fv) || strings.Contains(fv, ff) {
				out[v] = datasetFields[i]
				break
			}
		}
	}
	return out
}

// ApplyMapping validates a mapping against the available dataset fields and returns
// a copy. Unmapped entries are kept as they are.
func ApplyMapping(mapping model.FieldMapping, datasetFields []string) (model.FieldMapping, error) {
	known := make(map[string]struct{}, len(datasetFields))
	for _, f := range datasetFields {
		known[f] = struct{}{}
	}
	out := make(model.FieldMapping, len(mapping))
	for variable, field := range mapping {
		if variable == "" {
			return nil, newError(KindInvalidMapping, "apply mapping", "empty model variable name")
		}
		if field != "" {
			if _, ok := known[field]; !ok {
				return nil, newError(KindInvalidMapping, "apply mapping", "variable %q mapped to unknown field %q", variable, field)
			}
		}
		out[variable] = field
	}
	return out, nil
}
