package search

import (
	"cmp"
	"slices"
)

// Rank returns the results ordered by BIC ascending with skipped results
// last. Ties keep their input order. The input is not modified.
func Rank(results []Result) []Result {
	out := slices.Clone(results)
	slices.SortStableFunc(out, func(a, b Result) int {
		if a.Skipped != b.Skipped {
			if a.Skipped {
				return 1
			}
			return -1
		}
		if a.Skipped {
			return 0
		}
		return cmp.Compare(a.BIC, b.BIC)
	})
	return out
}

// Best returns the lowest-BIC result that was not skipped.
func Best(results []Result) (Result, bool) {
	ranked := Rank(results)
	if len(ranked) == 0 || ranked[0].Skipped {
		return Result{}, false
	}
	return ranked[0], true
}
