package config

import "strings"

// ConfigurationError reports every constraint an invalid Config violates.
// It is fatal: engines refuse to run with it.
type ConfigurationError struct {
	Violations []string
}

func (e *ConfigurationError) Error() string {
	return "invalid config: " + strings.Join(e.Violations, "; ")
}
