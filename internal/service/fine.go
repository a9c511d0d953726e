package service

import (
	"time"

	"github.com/JaePyJs/CLMS-sub014/internal/policy"
	"go.uber.org/zap"
)

// FineCalculator is a pure lookup over the policy band table. The only
// side effect is a log line when no band matches a positive overdue
// count, which is a configuration gap rather than an error.
type FineCalculator struct {
	log *zap.Logger
}

func NewFineCalculator(log *zap.Logger) *FineCalculator {
	return &FineCalculator{log: log.Named("fines")}
}

// OverdueUnits is the ceiling of the late interval in unit granularity.
// Returning at or before the due time yields zero.
func OverdueUnits(dueTime, returnTime time.Time, unit time.Duration) int {
	if !returnTime.After(dueTime) {
		return 0
	}
	late := returnTime.Sub(dueTime)
	return int((late + unit - 1) / unit)
}

// Amount resolves the first band whose inclusive range contains
// overdueUnits and returns units × rate in minor currency units.
// No matching band defaults to zero.
func (f *FineCalculator) Amount(category string, bands []policy.Band, overdueUnits int) int64 {
	if overdueUnits <= 0 {
		return 0
	}
	for _, b := range bands {
		if overdueUnits >= b.MinUnits && (b.MaxUnits == 0 || overdueUnits <= b.MaxUnits) {
			return int64(overdueUnits) * b.RateCents
		}
	}
	f.log.Warn("no fine band matched, defaulting to zero",
		zap.String("category", category),
		zap.Int("overdueUnits", overdueUnits),
	)
	return 0
}
