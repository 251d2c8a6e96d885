package domain

import "time"

// Record is one refresh token in the ledger, stored by hash only.
// ParentTokenHash links a rotated token to the token it replaced; empty for
// tokens minted at login. Records are never deleted, only revoked.
type Record struct {
	ID              string
	OwnerID         string
	TokenHash       string
	IssuedAt        time.Time
	ExpiresAt       time.Time
	Revoked         bool
	ParentTokenHash string // empty when minted at login
}

// Expired reports whether the record's token lifetime has passed at now.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
