package model

import "time"

// Role names stored in users.role.  Booking and proxy confirmation
// require RoleDeptAdmin or RoleSysAdmin; RoleVerifier identifies the
// QR scanning stations' service accounts.
const (
	RoleUser      = "user"
	RoleDeptAdmin = "dept_admin"
	RoleSysAdmin  = "sys_admin"
	RoleVerifier  = "verifier"
)

// IsAdminRole reports whether the role may create department orders and
// confirm on behalf of members.
func IsAdminRole(role string) bool {
	return role == RoleDeptAdmin || role == RoleSysAdmin
}

// User mirrors a row of the `users` table.  The directory is a pure
// read dependency: this service never writes user rows.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – display name, snapshotted into orders at booking time.
//  DepartmentID – owning department.
//  Role         – one of the Role* constants.
//  IsActive     – whether the account is active; inactive users cannot
//                 be booked or act.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	DepartmentID uint64    // users.department_id
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Department mirrors a row of the `departments` table.
type Department struct {
	ID        uint64    // departments.id
	Name      string    // departments.name
	CreatedAt time.Time // departments.created_at
	UpdatedAt time.Time // departments.updated_at
}
