package enums

import "fmt"

// ServerStatus maps to the server_status_enum enum in Postgres.
type ServerStatus string

const (
	ServerStatusActive    ServerStatus = "active"
	ServerStatusSuspended ServerStatus = "suspended"
	ServerStatusDeleted   ServerStatus = "deleted"
)

var validServerStatuses = []ServerStatus{
	ServerStatusActive,
	ServerStatusSuspended,
	ServerStatusDeleted,
}

// IsValid reports whether the value matches the canonical server status enum.
func (s ServerStatus) IsValid() bool {
	for _, candidate := range validServerStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no lifecycle pass may transition out of s.
func (s ServerStatus) IsTerminal() bool {
	return s == ServerStatusDeleted
}

// ParseServerStatus converts raw input into ServerStatus.
func ParseServerStatus(value string) (ServerStatus, error) {
	for _, candidate := range validServerStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid server status %q", value)
}
