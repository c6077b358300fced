package config

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// IsProductionLike reports whether the given environment needs production-grade settings.
func IsProductionLike(environment string) bool {
	return environment == EnvStaging || environment == EnvProduction
}
