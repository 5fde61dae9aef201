package user

import (
	"time"
)

type (
	User struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		FirstName string    `json:"first_name"`
		LastName  string    `json:"last_name"`
		CreatedAt time.Time `json:"created_at"`
	}
	// SyncRequest supplements the token claims; every field is optional.
	SyncRequest struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
)
