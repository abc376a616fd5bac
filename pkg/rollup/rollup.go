// Package rollup aggregates the values of one source field across a set of
// tasks. The caller gathers the values; this package only reduces them.
package rollup

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jamsmac/MYDON-sub006/pkg/fields"
)

// Aggregation names a reduction.
type Aggregation string

// Aggregation values.
const (
	Sum    Aggregation = "sum"
	Avg    Aggregation = "avg"
	Count  Aggregation = "count"
	Min    Aggregation = "min"
	Max    Aggregation = "max"
	Concat Aggregation = "concat"
)

// ConcatDelimiter separates values joined by [Concat].
const ConcatDelimiter = ", "

var all = []Aggregation{Sum, Avg, Count, Min, Max, Concat}

// ErrUnknownAggregation is returned by [ParseAggregation].
var ErrUnknownAggregation = errors.New("unknown aggregation")

// Aggregations returns every aggregation in display order.
func Aggregations() []Aggregation {
	out := make([]Aggregation, len(all))
	copy(out, all)

	return out
}

// ParseAggregation parses a name case-insensitively. "average" is accepted as
// an alias for avg.
func ParseAggregation(s string) (Aggregation, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "average" {
		return Avg, nil
	}

	for _, a := range all {
		if string(a) == name {
			return a, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownAggregation, s)
}

// Evaluate reduces values with agg.
//
// sum, avg, min and max read only number values; everything else is skipped,
// never coerced. Over no numbers, sum is 0 while avg, min and max fail with
// #ERROR! since an empty set has no mean or extreme. count counts non-empty
// values of any kind. concat joins the display form of non-empty values with
// [ConcatDelimiter] in input order.
func Evaluate(agg Aggregation, values []fields.Value) fields.Result {
	switch agg {
	case Sum:
		total := 0.0
		for _, f := range numbers(values) {
			total += f
		}

		return fields.Success(fields.Number(total))
	case Avg:
		nums := numbers(values)
		if len(nums) == 0 {
			return fields.Failure(fields.ErrCodeError, "avg of an empty set")
		}

		total := 0.0
		for _, f := range nums {
			total += f
		}

		return fields.Success(fields.Number(total / float64(len(nums))))
	case Min, Max:
		nums := numbers(values)
		if len(nums) == 0 {
			return fields.Failure(fields.ErrCodeError, string(agg)+" of an empty set")
		}

		best := nums[0]
		for _, f := range nums[1:] {
			if (agg == Min && f < best) || (agg == Max && f > best) {
				best = f
			}
		}

		return fields.Success(fields.Number(best))
	case Count:
		n := 0

		for _, v := range values {
			if !v.IsEmpty() {
				n++
			}
		}

		return fields.Success(fields.Number(float64(n)))
	case Concat:
		parts := make([]string, 0, len(values))

		for _, v := range values {
			if !v.IsEmpty() {
				parts = append(parts, v.Display())
			}
		}

		return fields.Success(fields.Text(strings.Join(parts, ConcatDelimiter)))
	}

	return fields.Failure(fields.ErrCodeError, fmt.Sprintf("unknown aggregation %q", string(agg)))
}

func numbers(values []fields.Value) []float64 {
	out := make([]float64, 0, len(values))

	for _, v := range values {
		if f, ok := v.Num(); ok {
			out = append(out, f)
		}
	}

	return out
}
