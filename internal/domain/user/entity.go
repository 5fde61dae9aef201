package user

import (
	"time"
)

type (
	// ID is the identity provider's subject; opaque to this service.
	ID   = string
	User struct {
		ID        ID
		Email     string
		FirstName string
		LastName  string

		CreatedAt time.Time
		UpdatedAt time.Time
	}
	Users []*User
)
