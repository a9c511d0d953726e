// Package policy holds the read-only reference data for loan durations
// and overdue fine rates, loaded at startup and refreshable at runtime.
package policy

import (
	"sync"
	"time"
)

// Band maps an inclusive range of overdue units to a per-unit rate in
// minor currency units. MaxUnits == 0 means open-ended.
type Band struct {
	MinUnits  int
	MaxUnits  int
	RateCents int64
}

// Category bundles the per-resource-category knobs: how long a default
// loan runs and at which granularity overdue time is counted.
type Category struct {
	LoanDuration time.Duration
	UnitDuration time.Duration
	Bands        []Band
}

type Table struct {
	mu         sync.RWMutex
	categories map[string]Category
	fallback   Category
}

const (
	CategoryBook      = "BOOK"
	CategoryEquipment = "EQUIPMENT"
)

// New builds the default policy table. Books circulate on a day
// granularity, equipment sessions on minutes.
func New(loanDays, sessionMinutes int) *Table {
	book := Category{
		LoanDuration: time.Duration(loanDays) * 24 * time.Hour,
		UnitDuration: 24 * time.Hour,
		Bands: []Band{
			{MinUnits: 1, MaxUnits: 7, RateCents: 50},
			{MinUnits: 8, MaxUnits: 30, RateCents: 100},
			{MinUnits: 31, MaxUnits: 0, RateCents: 200},
		},
	}
	equipment := Category{
		LoanDuration: time.Duration(sessionMinutes) * time.Minute,
		UnitDuration: time.Minute,
		Bands: []Band{
			{MinUnits: 1, MaxUnits: 0, RateCents: 5},
		},
	}
	return &Table{
		categories: map[string]Category{
			CategoryBook:      book,
			CategoryEquipment: equipment,
		},
		fallback: book,
	}
}

// Lookup returns the category policy, falling back to the book policy
// for unknown categories.
func (t *Table) Lookup(category string) Category {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if c, ok := t.categories[category]; ok {
		return c
	}
	return t.fallback
}

// Replace swaps the whole table, supporting runtime refresh from the
// policy source.
func (t *Table) Replace(categories map[string]Category, fallback Category) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.categories = categories
	t.fallback = fallback
}
