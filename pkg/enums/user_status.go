package enums

import "fmt"

// UserStatus maps to the single-letter user_status column.
type UserStatus string

const (
	UserStatusActive     UserStatus = "A"
	UserStatusInactive   UserStatus = "I"
	UserStatusTerminated UserStatus = "T"
)

var validUserStatuses = []UserStatus{
	UserStatusActive,
	UserStatusInactive,
	UserStatusTerminated,
}

// String implements fmt.Stringer.
func (s UserStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is one of the canonical status codes.
func (s UserStatus) IsValid() bool {
	for _, candidate := range validUserStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Label returns the human readable name of the status.
func (s UserStatus) Label() string {
	switch s {
	case UserStatusActive:
		return "Active"
	case UserStatusInactive:
		return "Inactive"
	case UserStatusTerminated:
		return "Terminated"
	default:
		return ""
	}
}

// ParseUserStatus converts raw input into UserStatus.
func ParseUserStatus(value string) (UserStatus, error) {
	for _, candidate := range validUserStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user status %q", value)
}
