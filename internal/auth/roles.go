package auth

// Role is one of a fixed, closed set defined at compile time.
type Role string

const (
	RoleAdministrator Role = "Administrator"
	RoleRadiologist   Role = "Radiologist"
	RoleClinician     Role = "Clinician"
	RoleTechnician    Role = "Technician"
	RoleViewer        Role = "Viewer"
)

// Permission strings follow the "{Action}{Resource}" convention. The literal
// values are a fixed protocol: tokens and audit entries already minted carry
// them.
const (
	PermViewPatients        = "ViewPatients"
	PermEditPatients        = "EditPatients"
	PermDeletePatients      = "DeletePatients"
	PermViewMedicalImages   = "ViewMedicalImages"
	PermUploadMedicalImages = "UploadMedicalImages"
	PermDeleteMedicalImages = "DeleteMedicalImages"
	PermRequestAnalysis     = "RequestAnalysis"
	PermViewAnalysisResults = "ViewAnalysisResults"
	PermManageUsers         = "ManageUsers"
	PermViewAuditLogs       = "ViewAuditLogs"

	// PermWildcard satisfies any permission check when present in a set.
	PermWildcard = "*"
)

// AllRoles enumerates the closed role set.
var AllRoles = []Role{RoleAdministrator, RoleRadiologist, RoleClinician, RoleTechnician, RoleViewer}

// rolePermissions is the total role->permission table. Administrator holds
// the union of all domain permissions.
var rolePermissions = map[Role][]string{
	RoleAdministrator: {
		PermViewPatients, PermEditPatients, PermDeletePatients,
		PermViewMedicalImages, PermUploadMedicalImages, PermDeleteMedicalImages,
		PermRequestAnalysis, PermViewAnalysisResults,
		PermManageUsers, PermViewAuditLogs,
	},
	RoleRadiologist: {
		PermViewPatients, PermEditPatients,
		PermViewMedicalImages, PermUploadMedicalImages,
		PermRequestAnalysis, PermViewAnalysisResults,
	},
	RoleClinician: {
		PermViewPatients, PermEditPatients,
		PermViewMedicalImages, PermUploadMedicalImages,
		PermRequestAnalysis, PermViewAnalysisResults,
	},
	RoleTechnician: {
		PermViewPatients,
		PermViewMedicalImages, PermUploadMedicalImages,
	},
	RoleViewer: {
		PermViewPatients,
		PermViewMedicalImages, PermViewAnalysisResults,
	},
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Permissions resolves the role's permission set. Unknown roles resolve to
// the empty set. The returned slice is a copy.
func (r Role) Permissions() []string {
	perms := rolePermissions[r]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// HasPermission reports whether required is in the set, honoring the
// wildcard.
func HasPermission(set []string, required string) bool {
	for _, p := range set {
		if p == required || p == PermWildcard {
			return true
		}
	}
	return false
}
