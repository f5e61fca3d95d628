package geometry

import "fmt"

// RowRange is a half-open range of output rows [Start, End).
type RowRange struct {
	Start int
	End   int
}

// Len returns the number of rows in the range.
func (r RowRange) Len() int {
	return r.End - r.Start
}

// String returns "[start,end)"
func (r RowRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Partition splits height rows between workers.
//
// Worker i gets [floor(i*height/workers), floor((i+1)*height/workers)).
// Ranges are contiguous, never overlap, and the last one ends at height.
// When workers does not divide height, the floor rounding gives earlier
// workers one row less than later ones; this is left as is. Ranges are
// empty only when workers > height.
//
// Computed once at startup; each worker keeps its own range for the run.
func Partition(height, workers int) ([]RowRange, error) {
	if workers < 1 {
		return nil, ErrNoWorkers
	}
	if height < 0 {
		return nil, fmt.Errorf("%w: height %d", ErrInvalidSize, height)
	}

	ranges := make([]RowRange, workers)
	for i := range ranges {
		ranges[i] = RowRange{
			Start: i * height / workers,
			End:   (i + 1) * height / workers,
		}
	}
	return ranges, nil
}
