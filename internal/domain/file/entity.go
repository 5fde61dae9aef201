package file

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type (
	ID     = uuid.UUID
	Status string
	// ContentType is the closed set of formats accepted by the pipeline.
	ContentType string

	File struct {
		ID      ID
		OwnerID string

		StorageBucket string
		StorageKey    string
		Name          string
		ContentType   ContentType
		MimeType      string
		SizeBytes     int64
		SizeMB        float64
		ContentHash   string

		Status       Status
		ErrorMessage *string

		UploadedAt time.Time
	}
	Files []*File
)

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusDeleting  Status = "DELETING"
	StatusFailed    Status = "FAILED"
)

const (
	ContentTypePDF ContentType = "PDF"
	ContentTypePNG ContentType = "PNG"
	ContentTypeJPG ContentType = "JPG"
	ContentTypeMP3 ContentType = "MP3"
)

const bytesPerMB = 1 << 20

// SizeMBFromBytes rounds to two decimals, matching the numeric(10,2) column.
func SizeMBFromBytes(n int64) float64 {
	return math.Round(float64(n)/bytesPerMB*100) / 100
}

// BytesFromMB converts a stored size back to bytes for quota arithmetic.
func BytesFromMB(mb float64) int64 {
	return int64(math.Round(mb * bytesPerMB))
}

// CanTransition guards the lifecycle PENDING -> COMPLETED -> DELETING.
// FAILED is reachable from PENDING and DELETING.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusCompleted || to == StatusFailed
	case StatusCompleted:
		return to == StatusDeleting
	case StatusDeleting:
		return to == StatusFailed
	}
	return false
}

var statuses = []Status{StatusPending, StatusCompleted, StatusDeleting, StatusFailed}

// SourcesOf lists the statuses a record may be in to move to to.
func SourcesOf(to Status) []Status {
	var out []Status
	for _, s := range statuses {
		if s.CanTransition(to) {
			out = append(out, s)
		}
	}
	return out
}
