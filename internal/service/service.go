package service

import (
	"context"
	"time"

	"github.com/JaePyJs/CLMS-sub014/internal/audit"
	"github.com/JaePyJs/CLMS-sub014/internal/broadcast"
	"github.com/JaePyJs/CLMS-sub014/internal/errs"
	"github.com/JaePyJs/CLMS-sub014/internal/model"
	"github.com/JaePyJs/CLMS-sub014/internal/policy"
	"github.com/JaePyJs/CLMS-sub014/internal/repository"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Config struct {
	MaxOpenSessions int
	FineCapCents    int64
	RequestTimeout  time.Duration
}

type Service struct {
	log      *zap.Logger
	repo     repository.Repository
	policies *policy.Table
	fines    *FineCalculator
	events   *broadcast.Broadcaster
	audit    audit.Recorder
	cfg      Config

	now func() time.Time
}

func NewService(repo repository.Repository, policies *policy.Table, events *broadcast.Broadcaster,
	auditSink audit.Recorder, cfg Config, log *zap.Logger) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		policies: policies,
		fines:    NewFineCalculator(log),
		events:   events,
		audit:    auditSink,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Checkout runs the eligibility gate, acquires ledger capacity and
// creates the OPEN record. If the record insert fails after the ledger
// was decremented, the acquisition is compensated with a release.
func (s *Service) Checkout(ctx context.Context, req model.CheckoutRequest) (model.CheckoutRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	now := s.now()
	snap, err := s.repo.PatronSnapshot(ctx, req.PatronID)
	if err != nil {
		return model.CheckoutRecord{}, errors.Wrap(err, "patron snapshot")
	}
	elig := EligibilityConfig{MaxOpenSessions: s.cfg.MaxOpenSessions, FineCapCents: s.cfg.FineCapCents}
	if pv := evaluateEligibility(snap, now, elig); pv != nil {
		return model.CheckoutRecord{}, pv
	}

	sessionUID := uuid.NewString()
	res, err := s.repo.AcquireResource(ctx, req.ResourceID, sessionUID)
	if err != nil {
		return model.CheckoutRecord{}, err
	}

	pol := s.policies.Lookup(res.Category)
	duration := pol.LoanDuration
	if req.DurationMinutes > 0 {
		duration = time.Duration(req.DurationMinutes) * time.Minute
	}

	rec := model.CheckoutRecord{
		SessionUID: sessionUID,
		ResourceID: res.ResourceID,
		PatronID:   req.PatronID,
		Category:   res.Category,
		State:      model.StateOpen,
		StartTime:  now,
		DueTime:    now.Add(duration),
	}
	created, err := s.repo.CreateRecord(ctx, rec)
	if err != nil {
		// Compensate the ledger decrement on a fresh context: the
		// request context may already be the reason the insert failed.
		if rerr := s.repo.ReleaseResource(context.Background(), res.ResourceID, sessionUID); rerr != nil {
			s.log.DPanic("ledger rollback failed, capacity leaked",
				zap.String("resource", res.ResourceID),
				zap.String("session", sessionUID),
				zap.Error(rerr),
			)
		}
		return model.CheckoutRecord{}, errors.Wrap(err, "create record")
	}

	s.notify(model.EventCreated, created)
	return created, nil
}

// Return closes an OPEN session at returnTime, computing the overdue
// fine. The close is a CAS on state, so a concurrent return or expiry
// on the same session resolves to exactly one winner.
func (s *Service) Return(ctx context.Context, sessionUID string, returnTime time.Time) (model.CheckoutRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	rec, err := s.repo.GetRecord(ctx, sessionUID)
	if err != nil {
		return model.CheckoutRecord{}, err
	}
	if rec.State != model.StateOpen {
		return model.CheckoutRecord{}, errs.ErrAlreadyClosed
	}

	pol := s.policies.Lookup(rec.Category)
	units := OverdueUnits(rec.DueTime, returnTime, pol.UnitDuration)
	fine := s.fines.Amount(rec.Category, pol.Bands, units)

	closed, err := s.closeSession(ctx, repository.CloseRequest{
		SessionUID:   sessionUID,
		State:        model.StateReturned,
		CloseTime:    returnTime,
		OverdueUnits: units,
		FineCents:    &fine,
	})
	if err != nil {
		return model.CheckoutRecord{}, err
	}
	s.notify(model.EventReturned, closed)
	return closed, nil
}

// Cancel is the administrative override: closes the session without a
// fine and records the reason.
func (s *Service) Cancel(ctx context.Context, sessionUID, reason string) (model.CheckoutRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	closed, err := s.closeSession(ctx, repository.CloseRequest{
		SessionUID:   sessionUID,
		State:        model.StateCancelled,
		CloseTime:    s.now(),
		CancelReason: &reason,
	})
	if err != nil {
		return model.CheckoutRecord{}, err
	}
	s.notify(model.EventCancelled, closed)
	return closed, nil
}

// Expire transitions an overdue session to EXPIRED, closing it as of
// the nominal due time so the outcome does not depend on sweep cadence.
// With closeTime == dueTime the overdue count is zero and no fine
// accrues; expiry only frees capacity.
func (s *Service) Expire(ctx context.Context, rec model.CheckoutRecord) (model.CheckoutRecord, error) {
	var zero int64
	closed, err := s.closeSession(ctx, repository.CloseRequest{
		SessionUID: rec.SessionUID,
		State:      model.StateExpired,
		CloseTime:  rec.DueTime,
		FineCents:  &zero,
	})
	if err != nil {
		return model.CheckoutRecord{}, err
	}
	s.notify(model.EventExpired, closed)
	return closed, nil
}

// closeSession applies the exclusive close and, only on winning the
// CAS, releases ledger capacity. Losers mutate nothing further.
func (s *Service) closeSession(ctx context.Context, req repository.CloseRequest) (model.CheckoutRecord, error) {
	closed, err := s.repo.CloseRecord(ctx, req)
	if err != nil {
		return model.CheckoutRecord{}, err
	}
	if rerr := s.repo.ReleaseResource(ctx, closed.ResourceID, closed.SessionUID); rerr != nil {
		s.log.Error("release after close",
			zap.String("resource", closed.ResourceID),
			zap.String("session", closed.SessionUID),
			zap.Error(rerr),
		)
	}
	return closed, nil
}

// ListOverdue returns OPEN records past due with the overdue unit count
// computed as of now.
func (s *Service) ListOverdue(ctx context.Context) ([]model.CheckoutRecord, error) {
	now := s.now()
	recs, err := s.repo.ListOverdue(ctx, now)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		pol := s.policies.Lookup(recs[i].Category)
		recs[i].OverdueUnits = OverdueUnits(recs[i].DueTime, now, pol.UnitDuration)
	}
	return recs, nil
}

func (s *Service) ListByPatron(ctx context.Context, patronID string) ([]model.CheckoutRecord, error) {
	return s.repo.ListByPatron(ctx, patronID)
}

func (s *Service) ListResources(ctx context.Context) ([]model.Resource, error) {
	return s.repo.ListResources(ctx)
}

func (s *Service) notify(evType model.EventType, rec model.CheckoutRecord) {
	ts := s.now()
	s.events.Publish(model.Event{
		Type:       evType,
		ResourceID: rec.ResourceID,
		PatronID:   rec.PatronID,
		SessionUID: rec.SessionUID,
		Timestamp:  ts,
	})
	s.audit.Record(audit.Event{
		Mutation:   string(evType),
		SessionUID: rec.SessionUID,
		ResourceID: rec.ResourceID,
		PatronID:   rec.PatronID,
		State:      string(rec.State),
		At:         ts,
	})
}
