package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/JaePyJs/CLMS-sub014/internal/errs"
	"github.com/JaePyJs/CLMS-sub014/internal/model"
	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type Repository interface {
	AcquireResource(ctx context.Context, resourceID, sessionUID string) (model.Resource, error)
	ReleaseResource(ctx context.Context, resourceID, sessionUID string) error
	CreateRecord(ctx context.Context, rec model.CheckoutRecord) (model.CheckoutRecord, error)
	GetRecord(ctx context.Context, sessionUID string) (model.CheckoutRecord, error)
	CloseRecord(ctx context.Context, close CloseRequest) (model.CheckoutRecord, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]model.CheckoutRecord, error)
	ListExpirable(ctx context.Context, cutoff time.Time) ([]model.CheckoutRecord, error)
	ListByPatron(ctx context.Context, patronID string) ([]model.CheckoutRecord, error)
	ListResources(ctx context.Context) ([]model.Resource, error)
	PatronSnapshot(ctx context.Context, patronID string) (model.PatronSnapshot, error)
}

// CloseRequest is the exclusive closing transition applied to an OPEN
// record: exactly one closer succeeds, the rest see ErrAlreadyClosed.
type CloseRequest struct {
	SessionUID   string
	State        model.SessionState
	CloseTime    time.Time
	OverdueUnits int
	FineCents    *int64
	CancelReason *string
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	resourcesTableName = `resources`
	recordsTableName   = `checkout_records`
	patronsTableName   = `patrons`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const recordColumns = `id, session_uid, resource_id, patron_id, category, state,
start_time, due_time, close_time, overdue_units, fine_cents, cancel_reason`

func (r *repository) CreateRecord(ctx context.Context, rec model.CheckoutRecord) (model.CheckoutRecord, error) {
	q, args, err := qb.Insert(recordsTableName).
		Columns("session_uid", "resource_id", "patron_id", "category", "state", "start_time", "due_time").
		Values(rec.SessionUID, rec.ResourceID, rec.PatronID, rec.Category, rec.State, rec.StartTime, rec.DueTime).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.CheckoutRecord{}, err
	}
	var created model.CheckoutRecord
	if err := r.db.GetContext(ctx, &created, q, args...); err != nil {
		r.log.Error("CreateRecord", zap.String("q", q), zap.Any("args", args))
		return model.CheckoutRecord{}, err
	}
	return created, nil
}

func (r *repository) GetRecord(ctx context.Context, sessionUID string) (model.CheckoutRecord, error) {
	q, args, err := qb.Select(recordColumns).
		From(recordsTableName).
		Where(sq.Eq{"session_uid": sessionUID}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.CheckoutRecord{}, err
	}
	var rec model.CheckoutRecord
	if err := r.db.GetContext(ctx, &rec, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CheckoutRecord{}, errs.ErrNotFound
		}
		return model.CheckoutRecord{}, err
	}
	return rec, nil
}

// CloseRecord is a compare-and-swap on state: the conditional update
// only matches while the record is still OPEN.
func (r *repository) CloseRecord(ctx context.Context, close CloseRequest) (model.CheckoutRecord, error) {
	q := `update checkout_records
	set state = $2, close_time = $3, overdue_units = $4, fine_cents = $5, cancel_reason = $6
	where session_uid = $1 and state = 'OPEN'
	returning ` + recordColumns

	var rec model.CheckoutRecord
	err := r.db.GetContext(ctx, &rec, q,
		close.SessionUID, close.State, close.CloseTime, close.OverdueUnits, close.FineCents, close.CancelReason)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.CheckoutRecord{}, err
	}
	// No OPEN row matched: distinguish a lost close race from an
	// unknown session.
	if _, gerr := r.GetRecord(ctx, close.SessionUID); gerr != nil {
		return model.CheckoutRecord{}, gerr
	}
	return model.CheckoutRecord{}, errs.ErrAlreadyClosed
}

func (r *repository) ListOverdue(ctx context.Context, asOf time.Time) ([]model.CheckoutRecord, error) {
	return r.listRecords(ctx, sq.And{
		sq.Eq{"state": model.StateOpen},
		sq.Lt{"due_time": asOf},
	})
}

func (r *repository) ListExpirable(ctx context.Context, cutoff time.Time) ([]model.CheckoutRecord, error) {
	return r.listRecords(ctx, sq.And{
		sq.Eq{"state": model.StateOpen},
		sq.Lt{"due_time": cutoff},
	})
}

func (r *repository) ListByPatron(ctx context.Context, patronID string) ([]model.CheckoutRecord, error) {
	return r.listRecords(ctx, sq.Eq{"patron_id": patronID})
}

func (r *repository) listRecords(ctx context.Context, pred interface{}) ([]model.CheckoutRecord, error) {
	q, args, err := qb.Select(recordColumns).
		From(recordsTableName).
		Where(pred).
		OrderBy("due_time asc").
		ToSql()
	if err != nil {
		return nil, err
	}
	var recs []model.CheckoutRecord
	if err := r.db.SelectContext(ctx, &recs, q, args...); err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *repository) ListResources(ctx context.Context) ([]model.Resource, error) {
	q, args, err := qb.Select("id", "resource_id", "name", "kind", "category",
		"total_units", "available_units", "occupant_session_uid").
		From(resourcesTableName).
		OrderBy("resource_id asc").
		ToSql()
	if err != nil {
		return nil, err
	}
	var res []model.Resource
	if err := r.db.SelectContext(ctx, &res, q, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *repository) PatronSnapshot(ctx context.Context, patronID string) (model.PatronSnapshot, error) {
	q := `
	select p.patron_id, p.grade_band, p.banned, p.ban_expiry, p.fine_balance_cents,
	       (select count(*) from checkout_records c
	        where c.patron_id = p.patron_id and c.state = 'OPEN') as open_sessions
	from patrons p
	where p.patron_id = $1
`
	var snap model.PatronSnapshot
	if err := r.db.GetContext(ctx, &snap, q, patronID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PatronSnapshot{}, errs.ErrNotFound
		}
		return model.PatronSnapshot{}, err
	}
	return snap, nil
}
