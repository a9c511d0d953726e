package repository

import (
	"context"
	"database/sql"

	"github.com/JaePyJs/CLMS-sub014/internal/errs"
	"github.com/JaePyJs/CLMS-sub014/internal/model"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// The ledger half of the repository. All capacity mutation goes through
// AcquireResource/ReleaseResource; nothing else touches the counters or
// the singleton occupant pointer.

// AcquireResource takes one unit of a pooled resource or occupies a
// singleton slot for sessionUID. The conditional update serializes
// concurrent acquires on the row: losers see zero rows matched.
func (r *repository) AcquireResource(ctx context.Context, resourceID, sessionUID string) (model.Resource, error) {
	res, err := r.getResource(ctx, resourceID)
	if err != nil {
		return model.Resource{}, err
	}

	var q string
	var args []interface{}
	switch res.Kind {
	case model.KindPooled:
		q = `update resources
		set available_units = available_units - 1
		where resource_id = $1 and kind = 'POOLED' and available_units > 0
		returning id, resource_id, name, kind, category, total_units, available_units, occupant_session_uid`
		args = []interface{}{resourceID}
	case model.KindSingleton:
		q = `update resources
		set occupant_session_uid = $2
		where resource_id = $1 and kind = 'SINGLETON' and occupant_session_uid is null
		returning id, resource_id, name, kind, category, total_units, available_units, occupant_session_uid`
		args = []interface{}{resourceID, sessionUID}
	default:
		return model.Resource{}, errors.Errorf("unknown resource kind %q", res.Kind)
	}

	var updated model.Resource
	if err := r.db.GetContext(ctx, &updated, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isCheckViolation(err) {
			if res.Kind == model.KindSingleton {
				return model.Resource{}, errs.ErrAlreadyCheckedOut
			}
			return model.Resource{}, errs.ErrResourceUnavailable
		}
		return model.Resource{}, err
	}
	return updated, nil
}

// ReleaseResource is idempotent: freeing an already-free resource
// matches no rows and is a no-op, which tolerates retried release
// calls after a crash.
func (r *repository) ReleaseResource(ctx context.Context, resourceID, sessionUID string) error {
	res, err := r.getResource(ctx, resourceID)
	if err != nil {
		return err
	}

	switch res.Kind {
	case model.KindPooled:
		q := `update resources
		set available_units = available_units + 1
		where resource_id = $1 and kind = 'POOLED' and available_units < total_units`
		if _, err := r.db.ExecContext(ctx, q, resourceID); err != nil {
			r.log.Error("ReleaseResource pooled", zap.String("resource", resourceID), zap.Error(err))
			return err
		}
	case model.KindSingleton:
		q := `update resources
		set occupant_session_uid = null
		where resource_id = $1 and kind = 'SINGLETON' and occupant_session_uid = $2`
		if _, err := r.db.ExecContext(ctx, q, resourceID, sessionUID); err != nil {
			r.log.Error("ReleaseResource singleton", zap.String("resource", resourceID), zap.Error(err))
			return err
		}
	default:
		return errors.Errorf("unknown resource kind %q", res.Kind)
	}
	return nil
}

func (r *repository) getResource(ctx context.Context, resourceID string) (model.Resource, error) {
	q := `select id, resource_id, name, kind, category, total_units, available_units, occupant_session_uid
	from resources where resource_id = $1`
	var res model.Resource
	if err := r.db.GetContext(ctx, &res, q, resourceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Resource{}, errs.ErrNotFound
		}
		return model.Resource{}, err
	}
	return res, nil
}

// available_units carries a range check constraint; a violation means a
// concurrent decrement got there first.
func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation
}
