package validator

import (
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"file-manager-api/internal/application/validation"
	"file-manager-api/internal/interface/api/rest/dto/user"
)

const maxNameLen = 64

var ErrEmptyUpload = errors.New("no file uploaded")

func IsUUID(s string) (bool, uuid.UUID) {
	id, err := uuid.Parse(s)
	return err == nil, id
}

// ValidateSyncRequest checks the optional profile fields. Empty is fine.
func ValidateSyncRequest(r user.SyncRequest) map[string]string {
	errs := make(map[string]string)

	for field, v := range map[string]string{
		"first_name": strings.TrimSpace(r.FirstName),
		"last_name":  strings.TrimSpace(r.LastName),
	} {
		if v == "" {
			continue
		}
		if l := utf8.RuneCountInString(v); l > maxNameLen {
			errs[field] = field + " must be at most 64 characters"
		} else if !isHumanName(v) {
			errs[field] = "allowed characters: letters, space, '-', '''"
		}
	}

	if len(errs) == 0 {
		return nil
	}

	return errs
}

func isHumanName(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || r == ' ' || r == '-' || r == '\'' {
			continue
		}
		return false
	}
	return true
}

// ReadUpload loads the multipart part into memory. It reads one byte past
// the size ceiling so the content engine can reject oversize payloads.
func ReadUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh == nil || fh.Size == 0 {
		return nil, ErrEmptyUpload
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, validation.MaxFileSize+1))
}
