package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowed(t *testing.T) {
	cases := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleStaff, ActionManageQueue, true},
		{RoleStaff, ActionViewBusiness, true},
		{RoleStaff, ActionUpdateAppointment, true},
		{RoleStaff, ActionManageServices, false},
		{RoleStaff, ActionManageSettings, false},
		{RoleBusinessAdmin, ActionManageStaff, true},
		{RoleBusinessAdmin, ActionManageBusinesses, false},
		{RoleBusinessAdmin, ActionRunReminders, false},
		{RoleSuperAdmin, ActionManageBusinesses, true},
		{RoleSuperAdmin, ActionRunReminders, true},
		{Role("customer"), ActionViewQueue, false},
		{RoleSuperAdmin, Action("unknown"), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Allowed(tc.role, tc.action), "%s %s", tc.role, tc.action)
	}
}

func TestCanAccessBusiness(t *testing.T) {
	assert.True(t, CanAccessBusiness(&Claims{Role: RoleSuperAdmin}, "b1"))
	assert.True(t, CanAccessBusiness(&Claims{Role: RoleStaff, BusinessID: "b1"}, "b1"))
	assert.False(t, CanAccessBusiness(&Claims{Role: RoleStaff, BusinessID: "b1"}, "b2"))
	assert.False(t, CanAccessBusiness(&Claims{Role: RoleBusinessAdmin}, ""))
	assert.False(t, CanAccessBusiness(nil, "b1"))
}
