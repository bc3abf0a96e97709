package pipeline

import (
	"go-dataset-workflow/internal/model"
)

// validateDataset checks a freshly loaded dataset before it may become the buffer.
func validateDataset(op string, ds *model.Dataset) error {
	if ds == nil {
		return newError(KindBackend, op, "source returned no dataset")
	}
	if err := ds.Validate(); err != nil {
		return &Error{Kind: KindBackend, Op: op, Message: "malformed dataset", Err: err}
	}
	return nil
}

// validateMappingKeys checks every mapped variable is a known model variable.
// With no known variables any key is accepted.
func validateMappingKeys(mapping model.FieldMapping, modelVariables []string) error {
	if len(modelVariables) == 0 {
		return nil
	}
	known := make(map[string]struct{}, len(modelVariables))
	for _, v := range modelVariables {
		known[v] = struct{}{}
	}
	for v := range mapping {
		if _, ok := known[v]; !ok {
			return newError(KindInvalidMapping, "map fields", "unknown model variable %q", v)
		}
	}
	return nil
}

// requireStage fails with a precondition error when the workflow has not reached want.
func requireStage(op string, have, want model.Stage) error {
	if have < want {
		return newError(KindPrecondition, op, "requires stage %s, workflow is %s", want, have)
	}
	return nil
}
