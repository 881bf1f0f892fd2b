package history

import (
	"reflect"
	"testing"

	"scoremarket/pkg/types"
)

func TestActiveTimeframesEveryOtherMinute(t *testing.T) {
	t.Parallel()
	active := ActiveTimeframes(2, 672)
	if !contains(active, types.TFHourly) {
		t.Errorf("t=2 should activate hourly, got %v", active)
	}
	if contains(active, types.TFDaily) {
		t.Errorf("t=2 should not activate daily, got %v", active)
	}
}

func TestActiveTimeframesHourlyBoundary(t *testing.T) {
	t.Parallel()
	active := ActiveTimeframes(60, 672)
	want := []types.Timeframe{types.TFHourly, types.TFDaily}
	if !reflect.DeepEqual(active, want) {
		t.Errorf("t=60 active = %v, want %v", active, want)
	}
}

func TestActiveTimeframesWeeklyBoundary(t *testing.T) {
	t.Parallel()
	active := ActiveTimeframes(60*24, 672)
	if !contains(active, types.TFWeekly) {
		t.Errorf("t=60*24 should activate weekly, got %v", active)
	}
}

func TestActiveTimeframesMonthlyBoundary(t *testing.T) {
	t.Parallel()
	active := ActiveTimeframes(60*24*7, 60*24*7)
	if !contains(active, types.TFMonthly) {
		t.Errorf("t=60*24*7 should activate monthly, got %v", active)
	}
}

func TestActiveTimeframesLongMonthlyUsesCurrentInterval(t *testing.T) {
	t.Parallel()
	active := ActiveTimeframes(672, 672)
	if !contains(active, types.TFLongMonthly) {
		t.Errorf("t==maxInterval should activate M, got %v", active)
	}

	active = ActiveTimeframes(672, 1344)
	if contains(active, types.TFLongMonthly) {
		t.Errorf("t=672 with doubled interval 1344 should not activate M, got %v", active)
	}
}

func TestActiveTimeframesOddMinuteOnlyNone(t *testing.T) {
	t.Parallel()
	active := ActiveTimeframes(1, 672)
	if len(active) != 0 {
		t.Errorf("t=1 (odd) should activate nothing, got %v", active)
	}
}

func contains(tfs []types.Timeframe, target types.Timeframe) bool {
	for _, tf := range tfs {
		if tf == target {
			return true
		}
	}
	return false
}
