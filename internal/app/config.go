package app

import "github.com/payflow/server/internal/shared/config"

// LoadConfig loads the application configuration.
func LoadConfig() (*config.Config, error) {
	return config.Load()
}
