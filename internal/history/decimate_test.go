package history

import "testing"

func TestAppendScalarRetentionCap(t *testing.T) {
	t.Parallel()
	seq := make([]float64, 60)
	got, dropped := appendScalar(seq, 1.0, 60)
	if !dropped {
		t.Error("expected a drop when appending past the cap")
	}
	if len(got) != 60 {
		t.Errorf("len = %d, want 60", len(got))
	}
}

func TestAppendScalarUnderCapNoDrop(t *testing.T) {
	t.Parallel()
	seq := make([]float64, 59)
	got, dropped := appendScalar(seq, 1.0, 60)
	if dropped {
		t.Error("unexpected drop under the cap")
	}
	if len(got) != 60 {
		t.Errorf("len = %d, want 60", len(got))
	}
}

func TestAppendScalarLongMonthlyDropsToOneMorePastHalf(t *testing.T) {
	t.Parallel()
	// A history at 120 that receives one more append (hitting 121) must drop
	// to 61 after bi-sparse decimation.
	seq := make([]float64, 120)
	got, dropped := appendScalarLongMonthly(seq, 1.0, 120)
	if !dropped {
		t.Error("expected a decimation drop when exceeding the M cap")
	}
	if len(got) != 61 {
		t.Errorf("len = %d, want 61", len(got))
	}
}

func TestAppendScalarLongMonthlyKeepsEvenIndices(t *testing.T) {
	t.Parallel()
	seq := make([]float64, 120)
	for i := range seq {
		seq[i] = float64(i)
	}
	got, dropped := appendScalarLongMonthly(seq, 120.0, 120)
	if !dropped {
		t.Fatal("expected a decimation drop")
	}
	// Original indices 0,2,4,...,120 survive (121 elements before decimation,
	// indices 0..120; even indices 0,2,...,120 is 61 entries).
	for i, v := range got {
		want := float64(2 * i)
		if v != want {
			t.Errorf("kept[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestAppendVectorRetentionCap(t *testing.T) {
	t.Parallel()
	seq := make([][]float64, 60)
	got, dropped := appendVector(seq, []float64{1, 2}, 60)
	if !dropped {
		t.Error("expected a drop when appending past the cap")
	}
	if len(got) != 60 {
		t.Errorf("len = %d, want 60", len(got))
	}
}

func TestAppendVectorLongMonthlyDecimation(t *testing.T) {
	t.Parallel()
	seq := make([][]float64, 120)
	got, dropped := appendVectorLongMonthly(seq, []float64{9, 9}, 120)
	if !dropped {
		t.Fatal("expected a decimation drop")
	}
	if len(got) != 61 {
		t.Errorf("len = %d, want 61", len(got))
	}
}

func TestAppendInt64RetentionCap(t *testing.T) {
	t.Parallel()
	seq := make([]int64, 60)
	got, dropped := appendInt64(seq, 42, 60)
	if !dropped {
		t.Error("expected a drop when appending past the cap")
	}
	if len(got) != 60 {
		t.Errorf("len = %d, want 60", len(got))
	}
	if got[len(got)-1] != 42 {
		t.Errorf("last = %v, want 42", got[len(got)-1])
	}
}

func TestAppendScalarLongMonthlySixtyOneTicksFromOneTwenty(t *testing.T) {
	t.Parallel()
	seq := make([]float64, 120)
	for i := 0; i < 61; i++ {
		seq, _ = appendScalarLongMonthly(seq, float64(i), 120)
	}
	if len(seq) != 61 {
		t.Errorf("len after 61 ticks from 120 = %d, want 61", len(seq))
	}
}

func TestAppendInt64LongMonthlyDecimation(t *testing.T) {
	t.Parallel()
	seq := make([]int64, 120)
	for i := range seq {
		seq[i] = int64(i)
	}
	got, dropped := appendInt64LongMonthly(seq, 9999, 120)
	if !dropped {
		t.Fatal("expected a decimation drop")
	}
	if len(got) != 61 {
		t.Errorf("len = %d, want 61", len(got))
	}
	// Last survivor is the new append at index 120 (even).
	if got[len(got)-1] != 9999 {
		t.Errorf("last kept = %v, want 9999", got[len(got)-1])
	}
}
