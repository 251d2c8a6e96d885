package domain

// User is the projection of a GoTrue account consumed by this service.
// The account itself lives in Supabase; this service never stores credentials.
type User struct {
	ID       string
	Email    string
	Role     string
	IsActive bool
	Metadata map[string]any
}
