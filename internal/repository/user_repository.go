package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/canteen-meal-service/internal/model"
)

// UserRepo provides read access to the user directory.  The directory
// is owned by an external administration system; this service only
// resolves users and department rosters and never writes rows.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, name, department_id, role, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Name, &u.DepartmentID, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns the user with the given id, or ErrUserNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByIDs resolves a batch of user ids in one query and returns the
// found users keyed by id.  Missing ids are simply absent from the map;
// the caller decides whether absence is an error.
func (r *UserRepo) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]*model.User, error) {
	users := make(map[uint64]*model.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	q := `SELECT ` + userColumns + ` FROM users WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// ListDepartmentMembers returns the members of a department ordered by
// name.  Inactive accounts are excluded unless includeInactive is set;
// keyword, when non-empty, filters by a case-insensitive name substring.
func (r *UserRepo) ListDepartmentMembers(ctx context.Context, departmentID uint64, includeInactive bool, keyword string) ([]*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE department_id = ?`
	args := []any{departmentID}
	if !includeInactive {
		q += ` AND is_active = 1`
	}
	if kw := strings.TrimSpace(keyword); kw != "" {
		q += ` AND name LIKE ?`
		args = append(args, "%"+kw+"%")
	}
	q += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	members := make([]*model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}
