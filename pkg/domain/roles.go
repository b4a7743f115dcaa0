package domain

// Capability names a role-gated operation. All handlers consult the single
// table below instead of ad hoc role switches.
type Capability string

const (
	CapManageQueue        Capability = "queue.manage"
	CapManualCheckin      Capability = "checkin.manual"
	CapCreateNotification Capability = "notification.create"
	CapViewDashboard      Capability = "dashboard.view"
	CapManageUsers        Capability = "users.manage"
	CapPrescribe          Capability = "remedy.prescribe"
	CapManageTemplates    Capability = "remedy.templates"
	CapViewAudit          Capability = "audit.view"
	CapViewMetrics        Capability = "metrics.view"
)

var roleCapabilities = map[UserRole]map[Capability]bool{
	RoleUser: {},
	RoleCoordinator: {
		CapManageQueue:        true,
		CapManualCheckin:      true,
		CapCreateNotification: true,
		CapViewDashboard:      true,
	},
	RoleGuruji: {
		CapManageQueue:     true,
		CapPrescribe:       true,
		CapManageTemplates: true,
	},
	RoleAdmin: {
		CapManageQueue:        true,
		CapManualCheckin:      true,
		CapCreateNotification: true,
		CapViewDashboard:      true,
		CapManageUsers:        true,
		CapPrescribe:          true,
		CapManageTemplates:    true,
		CapViewAudit:          true,
		CapViewMetrics:        true,
	},
}

// Can reports whether the role holds the capability.
func Can(role UserRole, cap Capability) bool {
	return roleCapabilities[role][cap]
}

// Staff reports whether the role is any non-visitor role.
func Staff(role UserRole) bool {
	return role == RoleCoordinator || role == RoleGuruji || role == RoleAdmin
}

// ParseRole maps a wire value to a known role.
func ParseRole(raw string) (UserRole, bool) {
	switch UserRole(raw) {
	case RoleUser, RoleCoordinator, RoleGuruji, RoleAdmin:
		return UserRole(raw), true
	default:
		return "", false
	}
}
