package service

import (
	"testing"
	"time"

	"github.com/JaePyJs/CLMS-sub014/internal/policy"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOverdueUnits(t *testing.T) {
	t.Parallel()
	due := time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	var tests = []struct {
		name     string
		returnAt time.Time
		unit     time.Duration
		want     int
	}{
		{"on time", due, day, 0},
		{"early", due.Add(-3 * day), day, 0},
		{"one second late rounds up", due.Add(time.Second), day, 1},
		{"exactly one unit", due.Add(day), day, 1},
		{"two units", due.Add(2 * day), day, 2},
		{"partial second unit rounds up", due.Add(day + time.Hour), day, 2},
		{"minute granularity", due.Add(90 * time.Second), time.Minute, 2},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, OverdueUnits(due, tt.returnAt, tt.unit))
		})
	}
}

func TestFineCalculator_Amount(t *testing.T) {
	t.Parallel()
	f := NewFineCalculator(zap.NewNop())
	bands := []policy.Band{
		{MinUnits: 1, MaxUnits: 7, RateCents: 50},
		{MinUnits: 8, MaxUnits: 30, RateCents: 100},
		{MinUnits: 31, MaxUnits: 0, RateCents: 200},
	}

	var tests = []struct {
		name  string
		bands []policy.Band
		units int
		want  int64
	}{
		{"zero units", bands, 0, 0},
		{"negative units", bands, -3, 0},
		{"first band", bands, 2, 100},
		{"first band upper edge", bands, 7, 350},
		{"second band lower edge", bands, 8, 800},
		{"open-ended band", bands, 40, 8000},
		{"spec scenario rate five per unit", []policy.Band{{MinUnits: 1, MaxUnits: 0, RateCents: 5}}, 2, 10},
		{"no band matched is a configuration gap", []policy.Band{{MinUnits: 10, MaxUnits: 20, RateCents: 100}}, 5, 0},
		{"empty table", nil, 3, 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, f.Amount("BOOK", tt.bands, tt.units))
		})
	}
}

// Within a band the fine never decreases as overdue time grows.
func TestFineCalculator_Monotonic(t *testing.T) {
	t.Parallel()
	f := NewFineCalculator(zap.NewNop())
	bands := []policy.Band{{MinUnits: 1, MaxUnits: 0, RateCents: 35}}

	var prev int64
	for units := 0; units <= 100; units++ {
		got := f.Amount("EQUIPMENT", bands, units)
		require.GreaterOrEqual(t, got, prev, "units=%d", units)
		prev = got
	}
}
