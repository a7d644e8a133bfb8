// Package access holds the session value and the role-based visibility rules.
package access

import (
	"context"
	"strings"
	"time"

	"github.com/thunderdz19/sero-est/internal/models"
)

// DefaultMainAdmin is the name of the distinguished administrator account.
const DefaultMainAdmin = "Akram"

// Session is the authenticated user of one login. It is created by login,
// discarded by logout, and passed to every operation that needs authorization.
type Session struct {
	User     models.User
	TokenID  string
	IssuedAt time.Time
}

// Permission names an operation class.
type Permission string

const (
	PermSubmitReport       Permission = "submit_report"
	PermViewOwnReports     Permission = "view_own_reports"
	PermBrowseProjects     Permission = "browse_projects"
	PermViewDashboard      Permission = "view_dashboard"
	PermViewReports        Permission = "view_reports"
	PermUpdateReportStatus Permission = "update_report_status"
	PermExportReports      Permission = "export_reports"
	PermManageUsers        Permission = "manage_users"
	PermManageProjects     Permission = "manage_projects"
	PermManageSettings     Permission = "manage_settings"
	PermViewLogs           Permission = "view_logs"
)

// Tab is a section of the administrative shell.
type Tab string

const (
	TabDashboard Tab = "dashboard"
	TabReports   Tab = "reports"
	TabUsers     Tab = "users"
	TabProjects  Tab = "projects"
	TabSettings  Tab = "settings"
	TabLogs      Tab = "logs"
)

var (
	fieldPerms = []Permission{PermSubmitReport, PermViewOwnReports, PermBrowseProjects}
	staffPerms = []Permission{PermBrowseProjects, PermViewDashboard, PermViewReports, PermUpdateReportStatus, PermExportReports}
	mainPerms  = []Permission{PermManageUsers, PermManageProjects, PermManageSettings, PermViewLogs}
)

// rolePerms maps each role to what it may do without the main-admin flag.
// responsable and admin are identical here.
var rolePerms = map[models.Role][]Permission{
	models.RoleTopographe:  fieldPerms,
	models.RoleResponsable: staffPerms,
	models.RoleAdmin:       staffPerms,
}

// Policy evaluates permissions.
type Policy struct {
	// MainAdminName is compared case-insensitively with admin user names.
	MainAdminName string
}

// NewPolicy returns a Policy; an empty name falls back to DefaultMainAdmin.
func NewPolicy(mainAdminName string) Policy {
	if strings.TrimSpace(mainAdminName) == "" {
		mainAdminName = DefaultMainAdmin
	}
	return Policy{MainAdminName: mainAdminName}
}

// IsMainAdmin reports whether u is the distinguished administrator.
func (p Policy) IsMainAdmin(u models.User) bool {
	return u.Role == models.RoleAdmin &&
		strings.EqualFold(strings.TrimSpace(u.Nom), strings.TrimSpace(p.MainAdminName))
}

// Allows reports whether u holds perm.
func (p Policy) Allows(u models.User, perm Permission) bool {
	for _, have := range rolePerms[u.Role] {
		if have == perm {
			return true
		}
	}
	if p.IsMainAdmin(u) {
		for _, have := range mainPerms {
			if have == perm {
				return true
			}
		}
	}
	return false
}

// Tabs lists the administrative tabs u can open. Topographes get none: they
// use the survey interface.
func (p Policy) Tabs(u models.User) []Tab {
	if u.Role == models.RoleTopographe || !u.Role.Valid() {
		return []Tab{}
	}
	tabs := []Tab{TabDashboard, TabReports}
	if p.IsMainAdmin(u) {
		tabs = append(tabs, TabUsers, TabProjects, TabSettings, TabLogs)
	}
	return tabs
}

// CanDeleteUser reports whether the session user may delete target: never
// oneself, never an admin.
func (p Policy) CanDeleteUser(s Session, target models.User) bool {
	return target.ID != s.User.ID && target.Role != models.RoleAdmin
}

type ctxKey string

const sessionKey ctxKey = "session"

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext returns the session stored in ctx.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}
