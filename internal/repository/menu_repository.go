package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/canteen-meal-service/internal/mealtime"
	"github.com/iliyamo/canteen-meal-service/internal/model"
)

// MenuRepo provides read access to the published menu catalog.  Menu
// CRUD is owned by an external catalog service; the order ledger only
// needs to resolve the priced dish list for a date and meal type so it
// can compute an order's total at creation time.
type MenuRepo struct {
	db *sql.DB
}

// NewMenuRepo returns a new MenuRepo bound to the given database.
func NewMenuRepo(db *sql.DB) *MenuRepo { return &MenuRepo{db: db} }

// GetPublished returns the published menu for the given date and meal
// type with its dishes, or ErrMenuNotFound when none exists.  A menu
// still in draft is treated as absent.
func (r *MenuRepo) GetPublished(ctx context.Context, date string, meal mealtime.MealType) (*model.Menu, error) {
	const q = `SELECT id, menu_date, meal_type, status, created_at, updated_at
	           FROM menus
	           WHERE menu_date = ? AND meal_type = ? AND status = ?`
	var m model.Menu
	var menuDate sql.NullTime
	err := r.db.QueryRowContext(ctx, q, date, string(meal), model.MenuStatusPublished).Scan(
		&m.ID, &menuDate, &m.MealType, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMenuNotFound
	}
	if err != nil {
		return nil, err
	}
	if menuDate.Valid {
		m.MenuDate = menuDate.Time.Format(mealtime.DateLayout)
	}
	const dishQ = `SELECT id, menu_id, name, price FROM menu_dishes WHERE menu_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, dishQ, m.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var d model.MenuDish
		if err := rows.Scan(&d.ID, &d.MenuID, &d.Name, &d.Price); err != nil {
			return nil, err
		}
		m.Dishes = append(m.Dishes, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &m, nil
}
