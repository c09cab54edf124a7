package permission

import (
	"fmt"
)

// Permission is a named capability checked per account. The set is closed and
// mirrors the app_permissions enum in the database schema.
type Permission string

const (
	RolesManage     Permission = "roles.manage"
	BillingManage   Permission = "billing.manage"
	SettingsManage  Permission = "settings.manage"
	MembersManage   Permission = "members.manage"
	InvitesManage   Permission = "invites.manage"
	LicensesView    Permission = "licenses.view"
	LicensesCreate  Permission = "licenses.create"
	LicensesUpdate  Permission = "licenses.update"
	LicensesDelete  Permission = "licenses.delete"
	AssetsView      Permission = "assets.view"
	AssetsCreate    Permission = "assets.create"
	AssetsUpdate    Permission = "assets.update"
	AssetsDelete    Permission = "assets.delete"
	AssetsManage    Permission = "assets.manage"
	DashboardView   Permission = "dashboard.view"
	DashboardManage Permission = "dashboard.manage"
)

var all = []Permission{
	RolesManage,
	BillingManage,
	SettingsManage,
	MembersManage,
	InvitesManage,
	LicensesView,
	LicensesCreate,
	LicensesUpdate,
	LicensesDelete,
	AssetsView,
	AssetsCreate,
	AssetsUpdate,
	AssetsDelete,
	AssetsManage,
	DashboardView,
	DashboardManage,
}

var known = func() map[Permission]bool {
	m := make(map[Permission]bool, len(all))
	for _, p := range all {
		m[p] = true
	}
	return m
}()

// All returns every permission in declaration order.
func All() []Permission {
	out := make([]Permission, len(all))
	copy(out, all)
	return out
}

// Valid reports whether p is one of the declared permissions.
func (p Permission) Valid() bool {
	return known[p]
}

func (p Permission) String() string {
	return string(p)
}

// Parse converts a permission name into a Permission.
func Parse(name string) (Permission, error) {
	p := Permission(name)
	if !p.Valid() {
		return "", fmt.Errorf("unknown permission %q", name)
	}
	return p, nil
}
