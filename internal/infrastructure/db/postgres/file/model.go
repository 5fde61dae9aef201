package file

import (
	"time"

	"github.com/google/uuid"
)

type (
	File struct {
		ID      uuid.UUID
		OwnerID string

		StorageBucket string
		StorageKey    string
		Name          string
		ContentType   string
		MimeType      string
		SizeBytes     int64
		SizeMB        float64
		ContentHash   string

		Status       string
		ErrorMessage *string

		UploadedAt time.Time
	}
	Files []*File
)
