package domain

type UserID string

type UserRole string

const (
	RoleDriver     UserRole = "driver"
	RoleDispatcher UserRole = "dispatcher"
	RoleAdmin      UserRole = "admin"
)

// Level orders roles for permission checks. Unknown roles rank lowest.
func (r UserRole) Level() int {
	switch r {
	case RoleDriver:
		return 1
	case RoleDispatcher:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}
