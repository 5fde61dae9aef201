package user

const (
	SelectUserByID = `
		SELECT id, email, first_name, last_name, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	// UpsertUser keeps stored profile fields the caller leaves empty.
	UpsertUser = `
		INSERT INTO users (id, email, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
		    first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), users.first_name),
		    last_name = COALESCE(NULLIF(EXCLUDED.last_name, ''), users.last_name),
		    updated_at = now()
		RETURNING
		  id, email, first_name, last_name, created_at, updated_at
	`
)
