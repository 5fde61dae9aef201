package ports

import (
	"context"
	"time"

	"file-manager-api/internal/domain/file"
)

type (
	UploadInput struct {
		Data     []byte
		FileName string
		MimeType string
		OwnerID  string
	}
	DownloadURL struct {
		URL       string
		ExpiresIn time.Duration
	}
)

type FileService interface {
	UploadFile(ctx context.Context, in UploadInput) (*file.File, error)
	ListFiles(ctx context.Context, ownerID string) (file.Files, error)
	GetFileMetadata(ctx context.Context, id file.ID, ownerID string) (*file.File, error)
	GetDownloadURL(ctx context.Context, id file.ID, ownerID string) (*DownloadURL, error)
	DeleteFile(ctx context.Context, id file.ID, ownerID string) error
}
