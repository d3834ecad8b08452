package auth

// Role is the caller's role as asserted by the identity provider.
type Role string

const (
	RoleStaff         Role = "staff"
	RoleBusinessAdmin Role = "business_admin"
	RoleSuperAdmin    Role = "super_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStaff, RoleBusinessAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Action names a protected operation. Public customer operations (booking,
// lookup, queue join) are not actions; they need no token.
type Action string

const (
	ActionViewBusiness      Action = "business.view"
	ActionViewAppointments  Action = "appointments.view"
	ActionUpdateAppointment Action = "appointments.update_status"
	ActionViewQueue         Action = "queue.view"
	ActionManageQueue       Action = "queue.manage"
	ActionManageServices    Action = "services.manage"
	ActionManageStaff       Action = "staff.manage"
	ActionManageSettings    Action = "settings.manage"
	ActionManageBusinesses  Action = "businesses.manage"
	ActionRunReminders      Action = "reminders.run"
)

var permissions = map[Role]map[Action]bool{
	RoleStaff: {
		ActionViewBusiness:      true,
		ActionViewAppointments:  true,
		ActionUpdateAppointment: true,
		ActionViewQueue:         true,
		ActionManageQueue:       true,
	},
	RoleBusinessAdmin: {
		ActionViewBusiness:      true,
		ActionViewAppointments:  true,
		ActionUpdateAppointment: true,
		ActionViewQueue:         true,
		ActionManageQueue:       true,
		ActionManageServices:    true,
		ActionManageStaff:       true,
		ActionManageSettings:    true,
	},
	RoleSuperAdmin: {
		ActionViewBusiness:      true,
		ActionViewAppointments:  true,
		ActionUpdateAppointment: true,
		ActionViewQueue:         true,
		ActionManageQueue:       true,
		ActionManageServices:    true,
		ActionManageStaff:       true,
		ActionManageSettings:    true,
		ActionManageBusinesses:  true,
		ActionRunReminders:      true,
	},
}

// Allowed is the single authorization table. Unknown roles and actions are denied.
func Allowed(role Role, action Action) bool {
	return permissions[role][action]
}

// CanAccessBusiness reports whether claims may act on the given tenant.
func CanAccessBusiness(c *Claims, businessID string) bool {
	if c == nil {
		return false
	}
	if c.Role == RoleSuperAdmin {
		return true
	}
	return c.BusinessID != "" && c.BusinessID == businessID
}
