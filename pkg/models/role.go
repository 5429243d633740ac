package models

import (
	"strings"

	"github.com/Gobusters/ectolinq"
)

// Role is a caller role forwarded by the gateway.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// Capability is a single permission checked at the API boundary.
type Capability string

const (
	CapabilityBlacklistRead  Capability = "blacklist:read"
	CapabilityBlacklistWrite Capability = "blacklist:write"
	CapabilityDetectionRead  Capability = "detection:read"
	CapabilityDetectionRun   Capability = "detection:run"
)

var roleCapabilities = map[Role][]Capability{
	RoleViewer: {
		CapabilityBlacklistRead,
		CapabilityDetectionRead,
	},
	RoleOperator: {
		CapabilityBlacklistRead,
		CapabilityDetectionRead,
		CapabilityDetectionRun,
	},
	RoleAdmin: {
		CapabilityBlacklistRead,
		CapabilityBlacklistWrite,
		CapabilityDetectionRead,
		CapabilityDetectionRun,
	},
}

// ParseRole accepts a role name case-insensitively.
func ParseRole(s string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	_, ok := roleCapabilities[role]
	return role, ok
}

func (r Role) Can(capability Capability) bool {
	return ectolinq.Contains(roleCapabilities[r], capability)
}
