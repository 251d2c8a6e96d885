package domain

import "time"

// Status of an administrator account.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Administrator is a panel account, separate from GoTrue users. The device
// fingerprint is stored as a SHA-256 hash; empty means the account is not yet
// bound to a device.
type Administrator struct {
	ID              string
	Username        string
	PasswordHash    string
	FingerprintHash string
	Status          Status
	LastLoginAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Active reports whether the account may sign in.
func (a *Administrator) Active() bool {
	return a.Status == StatusActive
}

// Bound reports whether the account is tied to a device fingerprint.
func (a *Administrator) Bound() bool {
	return a.FingerprintHash != ""
}
