package utils

// SettingsCachePrefix namespaces settings entries in the shared Redis cache.
const SettingsCachePrefix = "settings:"

// Roles carried in access tokens.
const (
	RoleInstaller = "installer"
	RoleCustomer  = "customer"
	RoleAdmin     = "admin"
)
