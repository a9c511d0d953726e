package model

import (
	"time"
)

type ResourceKind string

const (
	KindPooled    ResourceKind = "POOLED"
	KindSingleton ResourceKind = "SINGLETON"
)

// Resource is one circulable thing: either a counted pool of identical
// copies or a single occupiable slot.
type Resource struct {
	ID                 int          `json:"-" db:"id"`
	ResourceID         string       `json:"resourceId" db:"resource_id"`
	Name               string       `json:"name" db:"name"`
	Kind               ResourceKind `json:"kind" db:"kind"`
	Category           string       `json:"category" db:"category"`
	TotalUnits         int          `json:"totalUnits" db:"total_units"`
	AvailableUnits     int          `json:"availableUnits" db:"available_units"`
	OccupantSessionUID *string      `json:"occupantSessionUid,omitempty" db:"occupant_session_uid"`
}

type SessionState string

const (
	StateOpen      SessionState = "OPEN"
	StateReturned  SessionState = "RETURNED"
	StateExpired   SessionState = "EXPIRED"
	StateCancelled SessionState = "CANCELLED"
)

// CheckoutRecord is one allocation episode. Once it reaches a terminal
// state it is immutable.
type CheckoutRecord struct {
	ID           int          `json:"-" db:"id"`
	SessionUID   string       `json:"sessionUid" db:"session_uid"`
	ResourceID   string       `json:"resourceId" db:"resource_id"`
	PatronID     string       `json:"patronId" db:"patron_id"`
	Category     string       `json:"category" db:"category"`
	State        SessionState `json:"state" db:"state"`
	StartTime    time.Time    `json:"startTime" db:"start_time"`
	DueTime      time.Time    `json:"dueTime" db:"due_time"`
	CloseTime    *time.Time   `json:"closeTime,omitempty" db:"close_time"`
	OverdueUnits int          `json:"overdueUnits" db:"overdue_units"`
	FineCents    *int64       `json:"fineCents,omitempty" db:"fine_cents"`
	CancelReason *string      `json:"cancelReason,omitempty" db:"cancel_reason"`
}

// PatronSnapshot is the eligibility view of a patron, read fresh at
// acquisition time and never cached across the acquire call.
type PatronSnapshot struct {
	PatronID         string     `db:"patron_id"`
	GradeBand        string     `db:"grade_band"`
	Banned           bool       `db:"banned"`
	BanExpiry        *time.Time `db:"ban_expiry"`
	FineBalanceCents int64      `db:"fine_balance_cents"`
	OpenSessions     int        `db:"open_sessions"`
}

type CheckoutRequest struct {
	PatronID        string `json:"patronId" validate:"required"`
	ResourceID      string `json:"resourceId" validate:"required"`
	DurationMinutes int    `json:"durationMinutes" validate:"omitempty,gt=0"`
}

type ReturnRequest struct {
	ReturnTime *time.Time `json:"returnTime"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type EventType string

const (
	EventCreated   EventType = "created"
	EventReturned  EventType = "returned"
	EventExpired   EventType = "expired"
	EventCancelled EventType = "cancelled"
)

// Event is the occupancy-change notification pushed to kiosk and
// dashboard subscribers.
type Event struct {
	Type       EventType `json:"type"`
	ResourceID string    `json:"resourceId"`
	PatronID   string    `json:"patronId"`
	SessionUID string    `json:"sessionUid"`
	Timestamp  time.Time `json:"timestamp"`
}
