package pipeline

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"

	"github.com/zeebo/xxh3"

	"go-dataset-workflow/internal/model"
	"go-dataset-workflow/pkg/utils"
)

// Cleaner produces a cleaned dataset and its report. CleaningStage is the local
// implementation; the backend client provides a remote one.
type Cleaner interface {
	Clean(ctx context.Context, ds *model.Dataset, opts model.CleaningOptions) (*model.Dataset, *model.CleaningReport, error)
}

// CleaningStage applies the cleaning transforms in a fixed order:
// duplicates, missing values, outliers, normalization, type conversion.
type CleaningStage struct{}

// Clean implements Cleaner.
func (s CleaningStage) Clean(_ context.Context, ds *model.Dataset, opts model.CleaningOptions) (*model.Dataset, *model.CleaningReport, error) {
	return s.Apply(ds, opts)
}

// cleanRun carries the working copy through the steps.
type cleanRun struct {
	opts    model.CleaningOptions
	schema  []string
	records []model.Record
	report  *model.CleaningReport
}

func (r *cleanRun) dataset() *model.Dataset {
	return &model.Dataset{Schema: r.schema, Records: r.records}
}

// Apply runs the cleaning steps on a copy of ds. Per-row anomalies never fail the run.
func (s CleaningStage) Apply(ds *model.Dataset, opts model.CleaningOptions) (*model.Dataset, *model.CleaningReport, error) {
	const op = "clean"
	if ds.Len() == 0 {
		return nil, nil, newError(KindValidation, op, "dataset is empty")
	}
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, nil, &Error{Kind: KindValidation, Op: op, Err: err}
	}

	work := ds.Clone()
	run := &cleanRun{
		opts:    opts,
		schema:  work.Schema,
		records: work.Records,
		report:  model.NewCleaningReport(opts, ds.Len()),
	}
	run.report.NullsBefore = countNulls(work)

	steps := []struct {
		name string
		fn   func(*cleanRun)
	}{
		{"removeDuplicates", removeDuplicates},
		{"missingValues", treatMissing},
		{"outliers", treatOutliers},
		{"normalize", normalize},
		{"convertTypes", convertTypes},
	}
	for _, step := range steps {
		step.fn(run)
	}

	out := run.dataset()
	run.report.RowsAfter = out.Len()
	run.report.NullsAfter = countNulls(out)
	return out, run.report, nil
}

// removeDuplicates keeps the first of each group of structurally equal records.
func removeDuplicates(r *cleanRun) {
	if !r.opts.RemoveDuplicates {
		return
	}
	buckets := make(map[uint64][]model.Record, len(r.records))
	kept := r.records[:0:0]
	for _, rec := range r.records {
		h := recordHash(r.schema, rec)
		dup := false
		for _, prev := range buckets[h] {
			if recordsEqual(r.schema, prev, rec) {
				dup = true
				break
			}
		}
		if dup {
			r.report.DuplicatesRemoved++
			continue
		}
		buckets[h] = append(buckets[h], rec)
		kept = append(kept, rec)
	}
	r.records = kept
}

// treatMissing handles nulls, and non-numeric values in numeric columns, per the option.
func treatMissing(r *cleanRun) {
	treatment := r.opts.MissingValueTreatment
	if treatment == model.MissingNone {
		return
	}
	numeric := numericColumns(r.dataset())

	switch treatment {
	case model.MissingDrop:
		kept := r.records[:0:0]
		for _, rec := range r.records {
			drop := false
			for _, f := range r.schema {
				if isMissing(rec[f], numeric[f]) {
					drop = true
					break
				}
			}
			if drop {
				r.report.RowsDroppedMissing++
				continue
			}
			kept = append(kept, rec)
		}
		r.records = kept

	case model.MissingMean, model.MissingMedian:
		// Fill values come from the column as it stood before this step.
		fill := make(map[string]float64)
		for _, f := range r.schema {
			if !numeric[f] {
				continue
			}
			xs := numericValues(r.records, f)
			if treatment == model.MissingMean {
				fill[f] = mean(xs)
			} else {
				fill[f] = median(xs)
			}
		}
		for _, rec := range r.records {
			for f, v := range fill {
				if isMissing(rec[f], true) {
					rec[f] = v
					r.report.ValuesImputed++
				}
			}
		}

	case model.MissingZero:
		for _, rec := range r.records {
			for _, f := range r.schema {
				if isMissing(rec[f], numeric[f]) {
					rec[f] = float64(0)
					r.report.ValuesImputed++
				}
			}
		}
	}
}

// treatOutliers applies the IQR rule per numeric column.
func treatOutliers(r *cleanRun) {
	treatment := r.opts.OutlierTreatment
	if treatment == model.OutlierNone || len(r.records) == 0 {
		return
	}
	numeric := numericColumns(r.dataset())

	type fence struct{ lo, hi float64 }
	fences := make(map[string]fence)
	for _, f := range r.schema {
		if !numeric[f] {
			continue
		}
		lo, hi := iqrBounds(numericValues(r.records, f))
		fences[f] = fence{lo, hi}
		r.report.Outliers[f] = 0
	}

	kept := r.records[:0:0]
	for _, rec := range r.records {
		outlier := false
		for _, f := range r.schema {
			b, ok := fences[f]
			if !ok {
				continue
			}
			x, isNum := utils.Numeric(rec[f])
			if !isNum || (x >= b.lo && x <= b.hi) {
				continue
			}
			r.report.Outliers[f]++
			outlier = true
			if treatment == model.OutlierClip {
				rec[f] = math.Min(math.Max(x, b.lo), b.hi)
				r.report.ValuesClipped++
			}
		}
		if outlier && treatment == model.OutlierRemove {
			r.report.RowsDroppedOutliers++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
}

// normalize rescales numeric columns. Degenerate columns are left alone with a warning.
func normalize(r *cleanRun) {
	method := r.opts.NormalizationMethod
	if method == model.NormalizeNone || len(r.records) == 0 {
		return
	}
	numeric := numericColumns(r.dataset())

	for _, f := range r.schema {
		if !numeric[f] {
			continue
		}
		xs := numericValues(r.records, f)
		var scale func(float64) float64
		switch method {
		case model.NormalizeZScore:
			m, sd := mean(xs), stddev(xs)
			if sd == 0 || math.IsNaN(sd) {
				r.report.Warnings = append(r.report.Warnings, fmt.Sprintf("column %q has zero standard deviation; not normalized", f))
				continue
			}
			scale = func(x float64) float64 { return (x - m) / sd }
		case model.NormalizeMinMax:
			lo, hi := minMax(xs)
			if hi-lo == 0 || math.IsInf(hi-lo, 0) {
				r.report.Warnings = append(r.report.Warnings, fmt.Sprintf("column %q has a degenerate range; not normalized", f))
				continue
			}
			scale = func(x float64) float64 { return (x - lo) / (hi - lo) }
		}
		for _, rec := range r.records {
			if x, ok := utils.Numeric(rec[f]); ok {
				rec[f] = scale(x)
			}
		}
		r.report.Normalized[f] = method
	}
}

// convertTypes turns string columns whose values all look numeric into numbers.
func convertTypes(r *cleanRun) {
	if !r.opts.ConvertDataTypes {
		return
	}
	for _, f := range r.schema {
		texts, convertible := 0, true
		for _, rec := range r.records {
			switch v := rec[f].(type) {
			case nil:
			case string:
				if _, ok := utils.ParseNumber(v); !ok {
					convertible = false
				}
				texts++
			default:
				if _, ok := utils.Numeric(v); !ok {
					convertible = false
				}
			}
			if !convertible {
				break
			}
		}
		if !convertible || texts == 0 {
			continue
		}
		for _, rec := range r.records {
			if s, ok := rec[f].(string); ok {
				rec[f] = utils.ParseValue(s)
			}
		}
		r.report.Converted = append(r.report.Converted, f)
	}
}

// recordHash fingerprints a record's values in schema order. Numbers hash by their
// float64 value so 1 and 1.0 collide on purpose.
func recordHash(schema []string, rec model.Record) uint64 {
	buf := make([]byte, 0, 16*len(schema))
	for _, f := range schema {
		buf = appendValue(buf, rec[f])
	}
	return xxh3.Hash(buf)
}

func appendValue(buf []byte, v interface{}) []byte {
	if x, ok := utils.Numeric(v); ok {
		buf = append(buf, 'n')
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(x))
	}
	switch t := v.(type) {
	case nil:
		return append(buf, 0)
	case string:
		buf = append(buf, 's')
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t)))
		return append(buf, t...)
	case bool:
		if t {
			return append(buf, 'b', 1)
		}
		return append(buf, 'b', 0)
	default:
		s := fmt.Sprint(t)
		buf = append(buf, 'o')
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
		return append(buf, s...)
	}
}

func recordsEqual(schema []string, a, b model.Record) bool {
	for _, f := range schema {
		x, xok := utils.Numeric(a[f])
		y, yok := utils.Numeric(b[f])
		if xok || yok {
			if !(xok && yok && x == y) {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(a[f], b[f]) {
			return false
		}
	}
	return true
}

// Fingerprint hashes a whole dataset, schema included, for audit entries.
func Fingerprint(ds *model.Dataset) string {
	if ds == nil {
		return ""
	}
	h := xxh3.New()
	for _, f := range ds.Schema {
		_, _ = h.WriteString(f)
		_, _ = h.Write([]byte{0x1f})
	}
	var buf []byte
	for _, rec := range ds.Records {
		buf = buf[:0]
		for _, f := range ds.Schema {
			buf = appendValue(buf, rec[f])
		}
		_, _ = h.Write(buf)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
