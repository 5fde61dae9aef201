package file

import (
	"time"

	"github.com/google/uuid"
)

type (
	File struct {
		ID           uuid.UUID `json:"id"`
		Name         string    `json:"name"`
		ContentType  string    `json:"content_type"`
		MimeType     string    `json:"mime_type"`
		SizeMB       float64   `json:"size_mb"`
		Status       string    `json:"status"`
		ErrorMessage *string   `json:"error_message,omitempty"`
		SHA256       string    `json:"sha256"`
		UploadedAt   time.Time `json:"uploaded_at"`
	}
	Files        []File
	ResponseData struct {
		Data Files `json:"data"`
	}
	DownloadURL struct {
		URL       string `json:"url"`
		ExpiresIn int64  `json:"expires_in"`
	}
)
