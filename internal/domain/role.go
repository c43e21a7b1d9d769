package domain

// Role is carried in the bearer token issued by the auth service.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)
