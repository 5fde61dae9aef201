package user

import (
	"file-manager-api/internal/domain/user"
)

func ToResponseUser(uDomain user.User) User {
	var u = User{
		ID:        uDomain.ID,
		Email:     uDomain.Email,
		FirstName: uDomain.FirstName,
		LastName:  uDomain.LastName,
		CreatedAt: uDomain.CreatedAt,
	}

	return u
}

func ToDomainUser(id, email string, req SyncRequest) user.User {
	return user.User{
		ID:        id,
		Email:     email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
}
