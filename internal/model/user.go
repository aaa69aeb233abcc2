package model

import "time"

// User represents a customer or administrator record as stored in the
// `users` table. Emails are unique and normalized to lower case.
type User struct {
	ID        uint64    `json:"id"`        // users.id
	Email     string    `json:"email"`     // users.email
	Name      string    `json:"name"`      // users.name
	LastName  string    `json:"lastName"`  // users.last_name
	IsAdmin   bool      `json:"isAdmin"`   // users.is_admin
	CreatedAt time.Time `json:"createdAt"` // users.created_at
	UpdatedAt time.Time `json:"updatedAt"` // users.updated_at
}
