package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of roles a principal can hold. The zero value is not
// a valid role.
type Role int

const (
	RoleAdmin Role = iota + 1
	RoleDoctor
	RolePatient
)

// Roles lists every valid role in id order.
var Roles = []Role{RoleAdmin, RoleDoctor, RolePatient}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleDoctor:
		return "Doctor"
	case RolePatient:
		return "Patient"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// ID returns the role's primary key in the roles table.
func (r Role) ID() int64 { return int64(r) }

func (r Role) Valid() bool {
	return r >= RoleAdmin && r <= RolePatient
}

// ParseRole maps a role name to a Role, ignoring case and surrounding space.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "doctor":
		return RoleDoctor, nil
	case "patient":
		return RolePatient, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// RoleFromID maps a roles table id to a Role.
func RoleFromID(id int64) (Role, error) {
	r := Role(id)
	if !r.Valid() {
		return 0, fmt.Errorf("unknown role id %d", id)
	}
	return r, nil
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
