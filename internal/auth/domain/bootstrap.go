package domain

// SeedCatalog describes what bootstrap seeding guarantees exists.
type SeedCatalog struct {
	Modules  []string
	Defaults []RoleDefaults
	Admin    AdminSeed
}

// RoleDefaults is the default matrix row for a role, applied to every module.
type RoleDefaults struct {
	Role   RoleName
	Grants Grants
}

// AdminSeed is the default administrative account.
type AdminSeed struct {
	Email    string
	Name     string
	Password string
}
