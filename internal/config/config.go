// Package config loads runtime settings from the environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alexanderramin/cronograma/internal/domain"
)

// Config holds everything the CLI needs to wire the service.
type Config struct {
	// DBPath is the SQLite file backing all schedules.
	DBPath string
	// Role is the caller role used when --role is not given.
	Role domain.Role
	// StatusRoles may edit task progress and status after approval.
	StatusRoles []domain.Role
	// LogUseCases enables slog output for every service use case.
	LogUseCases bool
}

// DefaultConfig returns a Config with sensible defaults: a database under
// the user's home directory, the planner role, and the default status roles.
func DefaultConfig() Config {
	return Config{
		DBPath:      defaultDBPath(),
		Role:        domain.RolePlanner,
		StatusRoles: []domain.Role{domain.RolePlanner, domain.RoleExecutor, domain.RoleAdmin},
	}
}

// LoadConfig reads configuration from environment variables, falling back
// to defaults for any unset or invalid values.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("CRONOGRAMA_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CRONOGRAMA_ROLE"); v != "" {
		if role := domain.Role(strings.TrimSpace(v)); domain.ValidRoles[role] {
			cfg.Role = role
		}
	}
	if v := os.Getenv("CRONOGRAMA_STATUS_ROLES"); v != "" {
		if roles := parseRoles(v); len(roles) > 0 {
			cfg.StatusRoles = roles
		}
	}
	if v := os.Getenv("CRONOGRAMA_LOG_USE_CASES"); v != "" {
		cfg.LogUseCases, _ = strconv.ParseBool(v)
	}

	return cfg
}

// parseRoles splits a comma-separated role list, dropping unknown entries.
func parseRoles(s string) []domain.Role {
	var roles []domain.Role
	for _, part := range strings.Split(s, ",") {
		role := domain.Role(strings.TrimSpace(part))
		if domain.ValidRoles[role] {
			roles = append(roles, role)
		}
	}
	return roles
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cronograma.db"
	}
	return filepath.Join(home, ".cronograma", "cronograma.db")
}
