package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/canteen-meal-service/internal/model"
)

// ConfirmationRepo owns the confirmation_logs table and is, after
// creation, the only writer of an order's dining_status and
// actual_dining_time.  Log rows are append-only: created exactly once
// per successful transition, never updated or deleted.
type ConfirmationRepo struct {
	db *sql.DB
}

// NewConfirmationRepo returns a new ConfirmationRepo bound to the given database.
func NewConfirmationRepo(db *sql.DB) *ConfirmationRepo { return &ConfirmationRepo{db: db} }

// Confirm atomically moves the log's order from ordered to dined and
// appends the confirmation log row.  The state guard is the UPDATE's
// WHERE clause, so of two concurrent confirmations exactly one finds
// the row in the ordered state; the loser is told why it lost
// (ErrAlreadyConfirmed, ErrOrderCancelled or ErrOrderNotFound).
func (r *ConfirmationRepo) Confirm(ctx context.Context, clog *model.ConfirmationLog, diningTime time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const upd = `UPDATE orders
	             SET dining_status = ?, actual_dining_time = ?, updated_at = ?
	             WHERE id = ? AND dining_status = ? AND status <> ?`
	res, err := tx.ExecContext(ctx, upd,
		string(model.DiningDined), diningTime.UTC(), diningTime.UTC(),
		clog.OrderID, string(model.DiningOrdered), string(model.OrderStatusCancelled),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var status, diningStatus string
		err := tx.QueryRowContext(ctx, `SELECT status, dining_status FROM orders WHERE id = ?`, clog.OrderID).
			Scan(&status, &diningStatus)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if diningStatus == string(model.DiningDined) {
			return ErrAlreadyConfirmed
		}
		return ErrOrderCancelled
	}

	const ins = `INSERT INTO confirmation_logs
		(id, order_id, user_id, user_name, confirmation_type, confirmation_time, confirmed_by, remark, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var confirmedBy any
	if clog.ConfirmedBy != nil {
		confirmedBy = *clog.ConfirmedBy
	}
	if _, err := tx.ExecContext(ctx, ins,
		clog.ID, clog.OrderID, clog.UserID, clog.UserName, string(clog.ConfirmationType),
		clog.ConfirmationTime.UTC(), confirmedBy, clog.Remark, clog.CreatedAt.UTC(),
	); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListByOrder returns the confirmation logs for an order, oldest first.
func (r *ConfirmationRepo) ListByOrder(ctx context.Context, orderID string) ([]model.ConfirmationLog, error) {
	const q = `SELECT id, order_id, user_id, user_name, confirmation_type,
	                  confirmation_time, confirmed_by, remark, created_at
	           FROM confirmation_logs
	           WHERE order_id = ?
	           ORDER BY confirmation_time`
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	logs := make([]model.ConfirmationLog, 0)
	for rows.Next() {
		var l model.ConfirmationLog
		var confirmedBy sql.NullInt64
		var remark sql.NullString
		if err := rows.Scan(&l.ID, &l.OrderID, &l.UserID, &l.UserName, &l.ConfirmationType,
			&l.ConfirmationTime, &confirmedBy, &remark, &l.CreatedAt); err != nil {
			return nil, err
		}
		if confirmedBy.Valid {
			by := uint64(confirmedBy.Int64)
			l.ConfirmedBy = &by
		}
		l.Remark = remark.String
		l.ConfirmationTime = l.ConfirmationTime.UTC()
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
