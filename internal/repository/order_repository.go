package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/canteen-meal-service/internal/mealtime"
	"github.com/iliyamo/canteen-meal-service/internal/model"
)

// OrderRepo owns the orders and order_members tables.  Each mutating
// method runs inside its own transaction, acquired per logical
// operation and released immediately after commit or rollback; the
// duplicate-booking read and the insert execute in the same transaction
// because the read-then-insert pair is the critical race of batch
// creation.  The uq_member_meal unique key on order_members backs the
// read: a concurrent writer that slips past it fails on insert and is
// reported as a DuplicateBookingError.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `id, department_id, department_name, registrant_id, registrant_name,
	dining_date, meal_type, status, dining_status, total_amount, actual_dining_time,
	remark, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*model.Order, error) {
	var o model.Order
	var diningDate sql.NullTime
	var actual sql.NullTime
	var remark sql.NullString
	err := row.Scan(
		&o.ID, &o.DepartmentID, &o.DepartmentName, &o.RegistrantID, &o.RegistrantName,
		&diningDate, &o.MealType, &o.Status, &o.DiningStatus, &o.TotalAmount, &actual,
		&remark, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if diningDate.Valid {
		o.DiningDate = diningDate.Time.Format(mealtime.DateLayout)
	}
	if actual.Valid {
		t := actual.Time.UTC()
		o.ActualDiningTime = &t
	}
	o.Remark = remark.String
	o.Members = []model.OrderMember{}
	return &o, nil
}

// Create persists a new order and its member rows atomically.  The
// order must arrive fully populated (id, snapshots, status fields,
// total).  When any member already holds a non-cancelled booking for
// the same date and meal type, a DuplicateBookingError naming the
// offending user ids is returned and nothing is written.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
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

	booked, err := bookedMemberIDsTx(ctx, tx, o.DiningDate, o.MealType)
	if err != nil {
		return err
	}
	if hits := FindAlreadyBooked(o.MemberIDs(), booked); len(hits) > 0 {
		return &DuplicateBookingError{UserIDs: hits}
	}

	const insOrder = `INSERT INTO orders
		(id, department_id, department_name, registrant_id, registrant_name,
		 dining_date, meal_type, status, dining_status, total_amount, remark,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insOrder,
		o.ID, o.DepartmentID, o.DepartmentName, o.RegistrantID, o.RegistrantName,
		o.DiningDate, string(o.MealType), string(o.Status), string(o.DiningStatus),
		o.TotalAmount, o.Remark, o.CreatedAt, o.UpdatedAt,
	); err != nil {
		return err
	}

	if err := insertMembersTx(ctx, tx, o); err != nil {
		if isDuplicateEntry(err) {
			// A concurrent creation won the race between our read and
			// this insert; surface it as the same conflict the read
			// would have produced.
			return &DuplicateBookingError{}
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// bookedMemberIDsTx reads the user ids holding a live booking for the
// given date and meal type.  Rows are locked so a concurrent creation
// for the same slot serializes behind this transaction.
func bookedMemberIDsTx(ctx context.Context, tx *sql.Tx, date string, meal mealtime.MealType) (map[uint64]struct{}, error) {
	const q = `SELECT user_id FROM order_members
	           WHERE dining_date = ? AND meal_type = ? AND active = 1
	           FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, date, string(meal))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	booked := make(map[uint64]struct{})
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		booked[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return booked, nil
}

// insertMembersTx bulk-inserts the order's member rows in a single
// statement, marking each as active so the uniqueness key applies.
func insertMembersTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	if len(o.Members) == 0 {
		return nil
	}
	query := `INSERT INTO order_members (order_id, user_id, user_name, dining_date, meal_type, active) VALUES `
	args := make([]any, 0, len(o.Members)*6)
	for i, m := range o.Members {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, 1)"
		args = append(args, o.ID, m.UserID, m.UserName, o.DiningDate, string(o.MealType))
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetByID returns the order with the given id and its members, or
// ErrOrderNotFound.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	o, err := scanOrder(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadMembers(ctx, []*model.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// Cancel moves an order from ordered to cancelled and releases its
// member rows' booking slots by clearing the active flag.  Cancelling
// an order that is already dined or cancelled fails with the matching
// sentinel; both states are terminal.
func (r *OrderRepo) Cancel(ctx context.Context, id string, now time.Time) (*model.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const upd = `UPDATE orders
	             SET status = ?, dining_status = ?, updated_at = ?
	             WHERE id = ? AND dining_status = ?`
	res, err := tx.ExecContext(ctx, upd,
		string(model.OrderStatusCancelled), string(model.DiningCancelled), now,
		id, string(model.DiningOrdered),
	)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Distinguish absent from terminal.
		var diningStatus string
		err := tx.QueryRowContext(ctx, `SELECT dining_status FROM orders WHERE id = ?`, id).Scan(&diningStatus)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		if err != nil {
			return nil, err
		}
		if diningStatus == string(model.DiningDined) {
			return nil, ErrAlreadyConfirmed
		}
		return nil, ErrOrderCancelled
	}

	const release = `UPDATE order_members SET active = NULL WHERE order_id = ?`
	if _, err := tx.ExecContext(ctx, release, id); err != nil {
		return nil, err
	}

	const sel = `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	o, err := scanOrder(tx.QueryRowContext(ctx, sel, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	if err := r.loadMembers(ctx, []*model.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// OrderFilter narrows List results.  Zero values mean "no filter".
type OrderFilter struct {
	DiningDate   string
	MealType     mealtime.MealType
	DepartmentID uint64
	Limit        int
}

// List returns orders matching the filter, newest first, with members
// populated.  The default limit is 100.
func (r *OrderRepo) List(ctx context.Context, f OrderFilter) ([]*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []any{}
	if f.DiningDate != "" {
		q += ` AND dining_date = ?`
		args = append(args, f.DiningDate)
	}
	if f.MealType != "" {
		q += ` AND meal_type = ?`
		args = append(args, string(f.MealType))
	}
	if f.DepartmentID != 0 {
		q += ` AND department_id = ?`
		args = append(args, f.DepartmentID)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := make([]*model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadMembers(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadMembers populates Members for all given orders in one query.
func (r *OrderRepo) loadMembers(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	index := make(map[string]*model.Order, len(orders))
	ids := make([]any, 0, len(orders))
	placeholders := make([]string, 0, len(orders))
	for _, o := range orders {
		index[o.ID] = o
		ids = append(ids, o.ID)
		placeholders = append(placeholders, "?")
	}
	q := `SELECT id, order_id, user_id, user_name FROM order_members
	      WHERE order_id IN (` + strings.Join(placeholders, ",") + `)
	      ORDER BY order_id, id`
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var m model.OrderMember
		if err := rows.Scan(&m.ID, &m.OrderID, &m.UserID, &m.UserName); err != nil {
			return err
		}
		if o, ok := index[m.OrderID]; ok {
			o.Members = append(o.Members, m)
		}
	}
	return rows.Err()
}

// UserMealStatus is one row of a user's per-meal registration state for
// a given date, read by the reporting layer.
type UserMealStatus struct {
	OrderID          string
	MealType         mealtime.MealType
	DiningStatus     model.DiningStatus
	ActualDiningTime *time.Time
	TotalAmount      decimal.Decimal
}

// UserMealStatuses returns the user's non-cancelled bookings for the
// given date, at most one per meal type.
func (r *OrderRepo) UserMealStatuses(ctx context.Context, userID uint64, date string) ([]UserMealStatus, error) {
	const q = `SELECT o.id, o.meal_type, o.dining_status, o.actual_dining_time, o.total_amount
	           FROM orders o
	           JOIN order_members m ON m.order_id = o.id
	           WHERE m.user_id = ? AND o.dining_date = ? AND o.status <> ?`
	rows, err := r.db.QueryContext(ctx, q, userID, date, string(model.OrderStatusCancelled))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	statuses := make([]UserMealStatus, 0, len(mealtime.All))
	for rows.Next() {
		var s UserMealStatus
		var actual sql.NullTime
		if err := rows.Scan(&s.OrderID, &s.MealType, &s.DiningStatus, &actual, &s.TotalAmount); err != nil {
			return nil, err
		}
		if actual.Valid {
			t := actual.Time.UTC()
			s.ActualDiningTime = &t
		}
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return statuses, nil
}

// DepartmentStatRow is one aggregation bucket: the number of booked
// members in one department, meal type and dining status for a date.
type DepartmentStatRow struct {
	DepartmentID   uint64
	DepartmentName string
	MealType       mealtime.MealType
	DiningStatus   model.DiningStatus
	MemberCount    int
}

// DepartmentStats aggregates booked member counts for a date, grouped
// by department, meal type and dining status.  When departmentID is
// non-zero the aggregation is restricted to that department.
func (r *OrderRepo) DepartmentStats(ctx context.Context, date string, departmentID uint64) ([]DepartmentStatRow, error) {
	q := `SELECT o.department_id, o.department_name, o.meal_type, o.dining_status, COUNT(m.id)
	      FROM orders o
	      JOIN order_members m ON m.order_id = o.id
	      WHERE o.dining_date = ? AND o.status <> ?`
	args := []any{date, string(model.OrderStatusCancelled)}
	if departmentID != 0 {
		q += ` AND o.department_id = ?`
		args = append(args, departmentID)
	}
	q += ` GROUP BY o.department_id, o.department_name, o.meal_type, o.dining_status
	       ORDER BY o.department_id, o.meal_type`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stats := make([]DepartmentStatRow, 0)
	for rows.Next() {
		var s DepartmentStatRow
		if err := rows.Scan(&s.DepartmentID, &s.DepartmentName, &s.MealType, &s.DiningStatus, &s.MemberCount); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}
