package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRolePermissionsTotalAndStable(t *testing.T) {
	for _, role := range AllRoles {
		require.True(t, role.Valid())
		first := role.Permissions()
		second := role.Permissions()
		require.Equal(t, first, second, "resolution must be deterministic for %s", role)
		require.NotEmpty(t, first, "no enumerated role has an empty set")
	}
}

func TestAdministratorIsSuperset(t *testing.T) {
	adminSet := make(map[string]struct{})
	for _, p := range RoleAdministrator.Permissions() {
		adminSet[p] = struct{}{}
	}
	for _, role := range AllRoles {
		for _, p := range role.Permissions() {
			_, ok := adminSet[p]
			require.True(t, ok, "Administrator must hold %s granted to %s", p, role)
		}
	}
}

func TestPermissionsReturnsCopy(t *testing.T) {
	perms := RoleViewer.Permissions()
	perms[0] = "Mutated"
	require.NotContains(t, RoleViewer.Permissions(), "Mutated")
}

func TestUnknownRoleResolvesEmpty(t *testing.T) {
	require.False(t, Role("Intruder").Valid())
	require.Empty(t, Role("Intruder").Permissions())
}

func TestHasPermission(t *testing.T) {
	set := []string{PermViewPatients, PermEditPatients}
	require.True(t, HasPermission(set, "ViewPatients"))
	require.False(t, HasPermission(set, "DeletePatients"))
	require.True(t, HasPermission([]string{PermWildcard}, "DeletePatients"))
	require.False(t, HasPermission(nil, "ViewPatients"))
}
