package service

import (
	"time"

	"github.com/JaePyJs/CLMS-sub014/internal/errs"
	"github.com/JaePyJs/CLMS-sub014/internal/model"
)

type EligibilityConfig struct {
	MaxOpenSessions int
	FineCapCents    int64
}

// evaluateEligibility is the single gate in front of any ledger
// mutation: a pure predicate over a fresh patron snapshot. The first
// failing condition wins.
func evaluateEligibility(snap model.PatronSnapshot, now time.Time, cfg EligibilityConfig) *errs.PolicyViolationError {
	if snap.Banned && (snap.BanExpiry == nil || now.Before(*snap.BanExpiry)) {
		return &errs.PolicyViolationError{Reason: errs.ReasonBanned}
	}
	if snap.FineBalanceCents >= cfg.FineCapCents {
		return &errs.PolicyViolationError{Reason: errs.ReasonFineLimit}
	}
	if snap.OpenSessions >= cfg.MaxOpenSessions {
		return &errs.PolicyViolationError{Reason: errs.ReasonOpenLimit}
	}
	return nil
}
