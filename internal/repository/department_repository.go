package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/canteen-meal-service/internal/model"
)

// DepartmentRepo provides read access to the department directory.
// Like users, departments are administered externally.
type DepartmentRepo struct {
	db *sql.DB
}

// NewDepartmentRepo returns a new DepartmentRepo bound to the given database.
func NewDepartmentRepo(db *sql.DB) *DepartmentRepo { return &DepartmentRepo{db: db} }

// GetByID returns the department with the given id, or
// ErrDepartmentNotFound.
func (r *DepartmentRepo) GetByID(ctx context.Context, id uint64) (*model.Department, error) {
	const q = `SELECT id, name, created_at, updated_at FROM departments WHERE id = ?`
	var d model.Department
	err := r.db.QueryRowContext(ctx, q, id).Scan(&d.ID, &d.Name, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDepartmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
