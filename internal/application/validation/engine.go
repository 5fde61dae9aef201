// Package validation decides whether an upload payload may enter the
// store: size, name, true content type and structure, then duplicates.
package validation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"file-manager-api/internal/domain/apperror"
	"file-manager-api/internal/domain/file"
)

const MaxFileSize = 10 << 20

const TooLargeMessage = "file too large, maximum size is 10MB"

type Result struct {
	OK            bool
	DetectedType  file.ContentType
	MimeType      string
	SanitizedName string
	ContentHash   string
	SizeBytes     int64
	Err           *apperror.Error
}

func reject(err *apperror.Error) Result { return Result{Err: err} }

// Inspect runs every check that needs nothing but the payload. It is
// pure: the same input always gives the same result.
func Inspect(data []byte, claimedMime, claimedName string) Result {
	if len(data) == 0 {
		return reject(apperror.Validation("empty file not allowed"))
	}
	if len(data) > MaxFileSize {
		return reject(apperror.Validation(TooLargeMessage))
	}

	name, ok := SanitizeFileName(claimedName)
	if !ok {
		return reject(apperror.Validation("invalid or dangerous filename"))
	}

	sig, ok := detect(data)
	if !ok {
		return reject(apperror.Validation("file type could not be verified, file may be corrupted or unsupported"))
	}

	if claimed := NormalizeMime(claimedMime); claimed != sig.mime {
		return reject(apperror.Validation(fmt.Sprintf(
			"file extension doesn't match content: detected %s, claimed %s", sig.mime, claimedMime,
		)))
	}

	if reason := checkStructure(data, sig.mime); reason != "" {
		return reject(apperror.Validation(reason))
	}

	sum := sha256.Sum256(data)

	return Result{
		OK:            true,
		DetectedType:  sig.kind,
		MimeType:      sig.mime,
		SanitizedName: name,
		ContentHash:   hex.EncodeToString(sum[:]),
		SizeBytes:     int64(len(data)),
	}
}

type DuplicateFinder interface {
	FetchFileByName(ctx context.Context, ownerID, name string, status file.Status) (*file.File, error)
}

type Engine struct {
	files  DuplicateFinder
	logger *zap.Logger
}

func NewEngine(files DuplicateFinder, logger *zap.Logger) *Engine {
	return &Engine{files: files, logger: logger}
}

// Validate is Inspect plus the owner scoped duplicate check. Duplicates
// are decided by sanitised name among COMPLETED records; the hash only
// travels with the result.
func (e *Engine) Validate(ctx context.Context, data []byte, claimedMime, claimedName, ownerID string) Result {
	res := Inspect(data, claimedMime, claimedName)
	if !res.OK {
		return res
	}

	existing, err := e.files.FetchFileByName(ctx, ownerID, res.SanitizedName, file.StatusCompleted)
	if err != nil {
		e.logger.Error("FetchFileByName() error", zap.String("owner_id", ownerID), zap.Error(err))
		return reject(apperror.Internal("duplicate check failed", err))
	}
	if existing != nil {
		return reject(apperror.Conflict("file already exists (duplicate content detected)"))
	}

	e.logger.Debug("file validation passed",
		zap.String("owner_id", ownerID),
		zap.String("name", res.SanitizedName),
		zap.String("mime_type", res.MimeType),
	)

	return res
}
