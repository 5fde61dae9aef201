package file

import (
	"file-manager-api/internal/domain/file"
)

func ToResponseFile(fDomain file.File) File {
	var f = File{
		ID:           fDomain.ID,
		Name:         fDomain.Name,
		ContentType:  string(fDomain.ContentType),
		MimeType:     fDomain.MimeType,
		SizeMB:       fDomain.SizeMB,
		Status:       string(fDomain.Status),
		ErrorMessage: fDomain.ErrorMessage,
		SHA256:       fDomain.ContentHash,
		UploadedAt:   fDomain.UploadedAt,
	}

	return f
}

func ToResponseFiles(fsDomain file.Files) Files {
	fs := make(Files, len(fsDomain))
	for idx, f := range fsDomain {
		fs[idx] = ToResponseFile(*f)
	}

	return fs
}
