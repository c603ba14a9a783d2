package domain

// StaffRole represents the back-office role of a staff member.
type StaffRole string

const (
	StaffRoleAdmin StaffRole = "admin"
	StaffRoleStaff StaffRole = "staff"
)

// Staff represents an operator account authorized for admin operations
// and ticket scanning.
type Staff struct {
	ID     string
	UserID string
	Role   StaffRole
	Active bool
}

// IsAdmin reports whether the staff member may perform admin-only mutations.
func (s *Staff) IsAdmin() bool {
	return s.Active && s.Role == StaffRoleAdmin
}

// CanScan reports whether the staff member may validate tickets.
func (s *Staff) CanScan() bool {
	return s.Active && (s.Role == StaffRoleAdmin || s.Role == StaffRoleStaff)
}
