// internal/app/system/authz/roles.go
package authz

// Role values. The role is a flat enum on the user document; there is no
// hierarchy. What a role may do is defined solely by the capability table
// in capabilities.go.
const (
	RoleDirector     = "director"
	RoleAdmin        = "admin"
	RoleAuxAdmin     = "auxadmin"
	RoleObra         = "obra"
	RoleArquitectura = "arquitectura"
	RoleInteriorismo = "interiorismo"
	RolePaisajismo   = "paisajismo"
)

// AllRoles lists every assignable role, in display order.
func AllRoles() []string {
	return []string{
		RoleDirector,
		RoleAdmin,
		RoleAuxAdmin,
		RoleObra,
		RoleArquitectura,
		RoleInteriorismo,
		RolePaisajismo,
	}
}

// IsValidRole reports whether role is one of the assignable roles.
func IsValidRole(role string) bool {
	_, ok := capabilityTable[role]
	return ok
}
