package file

import (
	domain "file-manager-api/internal/domain/file"
)

func fromDBModel(model *File) *domain.File {
	var f = &domain.File{
		ID:      model.ID,
		OwnerID: model.OwnerID,

		StorageBucket: model.StorageBucket,
		StorageKey:    model.StorageKey,
		Name:          model.Name,
		ContentType:   domain.ContentType(model.ContentType),
		MimeType:      model.MimeType,
		SizeBytes:     model.SizeBytes,
		SizeMB:        model.SizeMB,
		ContentHash:   model.ContentHash,

		Status:       domain.Status(model.Status),
		ErrorMessage: model.ErrorMessage,

		UploadedAt: model.UploadedAt,
	}

	return f
}

func fromDBModels(models *Files) domain.Files {
	fs := make(domain.Files, len(*models))
	for idx, f := range *models {
		fs[idx] = fromDBModel(f)
	}

	return fs
}

func insertArgs(f *domain.File) []any {
	return []any{
		f.ID, f.OwnerID, f.StorageBucket, f.StorageKey, f.Name, string(f.ContentType), f.MimeType,
		f.SizeBytes, f.SizeMB, f.ContentHash, string(f.Status), f.ErrorMessage, f.UploadedAt,
	}
}

func statusStrings(ss []domain.Status) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}
