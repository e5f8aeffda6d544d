package common

const (
	// AuthorizationHeaderName carries the bearer token on inbound requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix is the scheme prefix expected in the Authorization header.
	BearerPrefix = "Bearer "

	// RoleAdmin and RoleUser are the only roles a stored user may hold.
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleUser
}
