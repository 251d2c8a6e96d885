package domain

import "time"

// Entry is one recorded API request. UserID and AdminID come from the bearer
// token when one was presented; at most one of them is set.
type Entry struct {
	ID               string
	Method           string
	Path             string
	StatusCode       int
	ClientHost       string
	UserAgent        string
	UserID           string
	AdminID          string
	ProcessingTimeMS float64
	Tags             []string
	Timestamp        time.Time
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Method       string
	StatusCode   int
	PathContains string
	UserID       string
	AdminID      string
	Skip         int
	Limit        int
}
