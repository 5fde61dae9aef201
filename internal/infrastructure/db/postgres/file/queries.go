package file

// LiveNameIndex is the partial unique index closing the same-name upload race.
const LiveNameIndex = "files_owner_live_name_uidx"

const (
	SelectFileByID = `
		SELECT id, owner_id, storage_bucket, storage_key, name, content_type, mime_type, size_bytes, size_mb, content_hash, status, error_message, uploaded_at
		FROM files
		WHERE id = $1 AND owner_id = $2
	`
	SelectFileByIDAndStatus = `
		SELECT id, owner_id, storage_bucket, storage_key, name, content_type, mime_type, size_bytes, size_mb, content_hash, status, error_message, uploaded_at
		FROM files
		WHERE id = $1 AND owner_id = $2 AND status = $3
	`
	SelectFilesByOwner = `
		SELECT id, owner_id, storage_bucket, storage_key, name, content_type, mime_type, size_bytes, size_mb, content_hash, status, error_message, uploaded_at
		FROM files
		WHERE owner_id = $1
		ORDER BY uploaded_at DESC
	`
	SelectFileByName = `
		SELECT id, owner_id, storage_bucket, storage_key, name, content_type, mime_type, size_bytes, size_mb, content_hash, status, error_message, uploaded_at
		FROM files
		WHERE owner_id = $1 AND name = $2 AND status = $3
		LIMIT 1
	`
	SumSizeMBByOwner = `
		SELECT COALESCE(SUM(size_mb), 0)::float8
		FROM files
		WHERE owner_id = $1 AND status = $2
	`
	InsertFile = `
		INSERT INTO files (id, owner_id, storage_bucket, storage_key, name, content_type, mime_type, size_bytes, size_mb, content_hash, status, error_message, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING
		  id, owner_id, storage_bucket, storage_key, name, content_type, mime_type, size_bytes, size_mb, content_hash, status, error_message, uploaded_at
	`
	UpsertCompletedFile = `
		INSERT INTO files (id, owner_id, storage_bucket, storage_key, name, content_type, mime_type, size_bytes, size_mb, content_hash, status, error_message, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'COMPLETED', NULL, $11)
		ON CONFLICT (id) DO UPDATE
		SET status = 'COMPLETED',
		    error_message = NULL
	`
	UpdateFileStatus = `
		UPDATE files
		SET status = $3,
		    error_message = NULL
		WHERE id = $1 AND owner_id = $2 AND status = ANY($4)
		RETURNING
		  id, owner_id, storage_bucket, storage_key, name, content_type, mime_type, size_bytes, size_mb, content_hash, status, error_message, uploaded_at
	`
	MarkFileFailed = `
		UPDATE files
		SET status = 'FAILED',
		    error_message = $3
		WHERE id = $1 AND owner_id = $2
	`
	DeleteFileByID = `DELETE FROM files WHERE id = $1 AND owner_id = $2`
)
