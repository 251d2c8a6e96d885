package domain

import "time"

// Entry is one successful-login origin record. Geo fields are empty when the
// lookup failed; the entry is still written.
type Entry struct {
	ID        string
	UserID    string
	IPAddress string
	UserAgent string
	Country   string
	City      string
	Region    string
	Latitude  float64
	Longitude float64
	Timestamp time.Time
}
