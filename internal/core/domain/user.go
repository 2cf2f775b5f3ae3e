package domain

import "time"

// User models one human account. Email and username are each globally
// unique across all users; the storage layer enforces both with unique
// indexes, the service only pre-checks them for friendlier errors.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
