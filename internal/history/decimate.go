package history

// appendScalar appends v to seq, retaining at most cap entries. Past cap it
// drops the oldest entry (index 0). Returns the updated slice and whether a
// drop happened this call.
func appendScalar(seq []float64, v float64, cap int) ([]float64, bool) {
	seq = append(seq, v)
	if len(seq) > cap {
		return seq[1:], true
	}
	return seq, false
}

// appendScalarLongMonthly appends v to seq, retaining at most cap entries
// using the M-timeframe's bi-sparse decimation: past cap, every second
// element starting at index 1 is dropped (even indices survive).
func appendScalarLongMonthly(seq []float64, v float64, cap int) ([]float64, bool) {
	seq = append(seq, v)
	if len(seq) > cap {
		kept := make([]float64, 0, len(seq)/2+1)
		for i, x := range seq {
			if i%2 == 0 {
				kept = append(kept, x)
			}
		}
		return kept, true
	}
	return seq, false
}

// appendVector appends v to seq, retaining at most cap entries (team
// inventory-vector analogue of appendScalar).
func appendVector(seq [][]float64, v []float64, cap int) ([][]float64, bool) {
	seq = append(seq, v)
	if len(seq) > cap {
		return seq[1:], true
	}
	return seq, false
}

// appendVectorLongMonthly is the vector analogue of appendScalarLongMonthly.
func appendVectorLongMonthly(seq [][]float64, v []float64, cap int) ([][]float64, bool) {
	seq = append(seq, v)
	if len(seq) > cap {
		kept := make([][]float64, 0, len(seq)/2+1)
		for i, x := range seq {
			if i%2 == 0 {
				kept = append(kept, x)
			}
		}
		return kept, true
	}
	return seq, false
}

// appendInt64 is the int64 analogue of appendScalar, used for the time log.
func appendInt64(seq []int64, v int64, cap int) ([]int64, bool) {
	seq = append(seq, v)
	if len(seq) > cap {
		return seq[1:], true
	}
	return seq, false
}

// appendInt64LongMonthly is the int64 analogue of appendScalarLongMonthly.
func appendInt64LongMonthly(seq []int64, v int64, cap int) ([]int64, bool) {
	seq = append(seq, v)
	if len(seq) > cap {
		kept := make([]int64, 0, len(seq)/2+1)
		for i, x := range seq {
			if i%2 == 0 {
				kept = append(kept, x)
			}
		}
		return kept, true
	}
	return seq, false
}
