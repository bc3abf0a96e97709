package pipeline

import (
	"math"
	"sort"

	"go-dataset-workflow/internal/model"
	"go-dataset-workflow/pkg/utils"
)

// numericColumns returns the fields whose non-null values are mostly numbers.
// In such a column any non-numeric value is treated as missing.
func numericColumns(ds *model.Dataset) map[string]bool {
	out := make(map[string]bool, len(ds.Schema))
	for _, f := range ds.Schema {
		var nonNull, numeric int
		for _, rec := range ds.Records {
			v := rec[f]
			if v == nil {
				continue
			}
			nonNull++
			if _, ok := utils.Numeric(v); ok {
				numeric++
			}
		}
		out[f] = numeric > 0 && numeric*2 > nonNull
	}
	return out
}

// numericValues collects the numeric values of one field.
func numericValues(records []model.Record, field string) []float64 {
	out := make([]float64, 0, len(records))
	for _, rec := range records {
		if f, ok := utils.Numeric(rec[field]); ok {
			out = append(out, f)
		}
	}
	return out
}

func isMissing(v interface{}, numericCol bool) bool {
	if v == nil {
		return true
	}
	if numericCol {
		_, ok := utils.Numeric(v)
		return !ok
	}
	return false
}

func countNulls(ds *model.Dataset) map[string]int {
	out := make(map[string]int, len(ds.Schema))
	for _, f := range ds.Schema {
		n := 0
		for _, rec := range ds.Records {
			if rec[f] == nil {
				n++
			}
		}
		out[f] = n
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

func sortedCopy(xs []float64) []float64 {
	out := append([]float64(nil), xs...)
	sort.Float64s(out)
	return out
}

// quantile uses linear interpolation between closest ranks on sorted input.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func median(xs []float64) float64 {
	return quantile(sortedCopy(xs), 0.5)
}

// iqrBounds returns the Tukey fences [Q1-1.5*IQR, Q3+1.5*IQR].
func iqrBounds(xs []float64) (lo, hi float64) {
	s := sortedCopy(xs)
	q1 := quantile(s, 0.25)
	q3 := quantile(s, 0.75)
	iqr := q3 - q1
	return q1 - 1.5*iqr, q3 + 1.5*iqr
}

func minMax(xs []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}
