package config

import "fmt"

// Category constants for module organization.
const (
	CategoryOTel    = "otel"
	CategoryLogging = "logging"
	CategoryHealth  = "health"
	CategoryHTTP    = "http"
	CategoryDB      = "db"
	CategoryEngine  = "engine"
)

// DefaultInstanceName is the default instance name for modules.
const DefaultInstanceName = "default"

// ModulePath generates the config path for a module instance.
// Example: ModulePath("db", "ispyb", "default") -> "modules.db.ispyb.default"
func ModulePath(category, moduleType, instance string) string {
	if instance == "" {
		instance = DefaultInstanceName
	}
	return fmt.Sprintf("modules.%s.%s.%s", category, moduleType, instance)
}
