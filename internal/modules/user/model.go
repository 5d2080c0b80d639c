// README: User and vehicle aggregates with role helpers.
package user

import (
	"strings"
	"time"

	"metrosync/internal/types"
)

type Role string

const (
	RoleRider  Role = "RIDER"
	RoleDriver Role = "DRIVER"
	RoleAdmin  Role = "ADMIN"
)

type User struct {
	ID       types.ID
	Username string
	FullName string
	Email    string
	Phone    string
	// PasswordHash is written by the auth boundary and treated as opaque
	// here; this service never hashes or verifies passwords.
	PasswordHash    string
	Roles           []Role
	Rating          float64
	TotalRatings    int
	Active          bool
	Verified        bool
	CurrentLocation *types.Point
	LastLogin       *time.Time
	CreatedAt       time.Time
}

func (u *User) HasRole(r Role) bool {
	for _, have := range u.Roles {
		if have == r {
			return true
		}
	}
	return false
}

func (u *User) IsRider() bool  { return u.HasRole(RoleRider) }
func (u *User) IsDriver() bool { return u.HasRole(RoleDriver) }

type VehicleType string

const (
	VehicleSedan     VehicleType = "SEDAN"
	VehicleSUV       VehicleType = "SUV"
	VehicleVan       VehicleType = "VAN"
	VehicleBus       VehicleType = "BUS"
	VehicleMotorbike VehicleType = "MOTORBIKE"
)

type Vehicle struct {
	ID           types.ID
	OwnerID      types.ID
	Make         string
	Model        string
	Year         int
	Color        string
	LicensePlate string
	Capacity     int
	Type         VehicleType
	Active       bool
	Verified     bool
	CreatedAt    time.Time
}

// rolesToString and parseRoles keep the comma-joined storage format stable.
func rolesToString(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

func parseRoles(s string) []Role {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	roles := make([]Role, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roles = append(roles, Role(p))
		}
	}
	return roles
}
