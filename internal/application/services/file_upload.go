package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"file-manager-api/internal/application/ports"
	"file-manager-api/internal/application/saga"
	"file-manager-api/internal/application/validation"
	"file-manager-api/internal/domain/apperror"
	"file-manager-api/internal/domain/file"
	"file-manager-api/internal/infrastructure/mq"
)

const failedWriteTimeout = saga.DefaultTimeout

var ownerSafeRe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// UploadFile admits, validates and stores one file. The metadata row is
// created PENDING inside a transaction and only committed as COMPLETED
// once the object is verified in the store.
func (fs *FileService) UploadFile(ctx context.Context, in ports.UploadInput) (*file.File, error) {
	u, err := fs.users.FetchUserByID(ctx, in.OwnerID)
	if err != nil {
		return nil, apperror.Classify(err, apperror.KindInternal, "failed to resolve owner")
	}
	if u == nil {
		return nil, apperror.NotFound("user not found")
	}

	if _, err = fs.limiter.CheckAndReserve(ctx, in.OwnerID, int64(len(in.Data))); err != nil {
		return nil, err
	}

	res := fs.validator.Validate(ctx, in.Data, in.MimeType, in.FileName, in.OwnerID)
	if !res.OK {
		return nil, res.Err
	}

	pending, err := fs.files.FetchFileByName(ctx, in.OwnerID, res.SanitizedName, file.StatusPending)
	if err != nil {
		return nil, apperror.Classify(err, apperror.KindInternal, "failed to check pending uploads")
	}
	if pending != nil {
		return nil, errUploadInProgress()
	}

	return fs.storeFile(ctx, in, res)
}

func (fs *FileService) storeFile(ctx context.Context, in ports.UploadInput, res validation.Result) (*file.File, error) {
	rec := &file.File{
		ID:            uuid.New(),
		OwnerID:       in.OwnerID,
		StorageBucket: fs.store.Bucket(),
		Name:          res.SanitizedName,
		ContentType:   res.DetectedType,
		MimeType:      res.MimeType,
		SizeBytes:     res.SizeBytes,
		SizeMB:        file.SizeMBFromBytes(res.SizeBytes),
		ContentHash:   res.ContentHash,
		Status:        file.StatusPending,
		UploadedAt:    fs.now().UTC(),
	}
	rec.StorageKey = storageKey(rec)

	log := fs.fileLogger(rec)
	comp := saga.New("upload", fs.logger, fs.sagaCounter).WithTimeout(fs.cfg.CompensationTimeout)
	comp.With(
		zap.String("file_id", rec.ID.String()),
		zap.String("owner_id", rec.OwnerID),
		zap.String("storage_key", rec.StorageKey),
	)

	inserted := false
	abort := func(err error) (*file.File, error) {
		_ = comp.Unwind(ctx)
		if inserted && fs.cfg.RetainFailed {
			fs.retainFailed(ctx, rec, err)
		}
		return nil, err
	}

	tx, err := fs.files.Begin(ctx)
	if err != nil {
		log.Error("Begin() error", zap.Error(err))
		return nil, apperror.Classify(err, apperror.KindInternal, "failed to open transaction")
	}
	comp.Push("rollback metadata tx", tx.Rollback)

	if _, err = tx.CreateFile(ctx, rec); err != nil {
		if errors.Is(err, file.ErrDuplicateName) {
			return abort(errUploadInProgress())
		}
		log.Error("CreateFile() error", zap.Error(err))
		return abort(apperror.Classify(err, apperror.KindInternal, "failed to create file record"))
	}
	inserted = true

	metadata := map[string]string{
		"owner-id":       rec.OwnerID,
		"original-name":  url.PathEscape(in.FileName),
		"content-sha256": rec.ContentHash,
	}
	if err = fs.store.Put(ctx, rec.StorageKey, in.Data, rec.MimeType, metadata); err != nil {
		log.Error("Put() error", zap.Error(err))
		return abort(apperror.Classify(err, apperror.KindStorage, "failed to store file"))
	}
	comp.Push("delete stored object", func(ctx context.Context) error {
		return fs.store.Delete(ctx, rec.StorageKey)
	})

	if !fs.store.Exists(ctx, rec.StorageKey) {
		log.Error("stored object failed verification")
		return abort(apperror.Storage("failed to verify stored file", nil))
	}

	done, err := tx.UpdateStatus(ctx, rec.ID, rec.OwnerID, file.StatusCompleted)
	if err != nil {
		log.Error("UpdateStatus() error", zap.Error(err))
		return abort(apperror.Classify(err, apperror.KindInternal, "failed to complete file record"))
	}
	if done == nil {
		return abort(apperror.Internal("file record vanished before completion", nil))
	}

	if err = tx.Commit(ctx); err != nil {
		log.Error("Commit() error", zap.Error(err))
		return abort(apperror.Classify(err, apperror.KindInternal, "failed to commit file record"))
	}
	comp.Discard()

	fs.publish(ctx, mq.EventFileUploaded, done)
	fs.mCounter.WithLabelValues("user_files_created_total").Inc()

	log.Info("file uploaded", zap.Float64("size_mb", done.SizeMB))

	return done, nil
}

// retainFailed writes the aborted record as FAILED outside the rolled back
// transaction. It references no object.
func (fs *FileService) retainFailed(ctx context.Context, rec *file.File, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failedWriteTimeout)
	defer cancel()

	msg := "upload failed"
	if ae, ok := apperror.As(cause); ok {
		msg = ae.Message
	}

	failed := *rec
	failed.Status = file.StatusFailed
	failed.ErrorMessage = &msg

	if _, err := fs.files.CreateFile(ctx, &failed); err != nil {
		fs.fileLogger(rec).Error("retain FAILED record error", zap.Error(err))
	}
}

func errUploadInProgress() error {
	return apperror.Conflict("an upload with this file name is already in progress")
}

// storageKey: "files/<owner>/YYYY/MM/DD/<file-id>/<name>"
func storageKey(f *file.File) string {
	owner := strings.Trim(ownerSafeRe.ReplaceAllString(f.OwnerID, "-"), "-")
	if owner == "" {
		owner = "owner"
	}

	t := f.UploadedAt
	return fmt.Sprintf(
		"files/%s/%04d/%02d/%02d/%s/%s",
		owner,
		t.Year(), int(t.Month()), t.Day(),
		f.ID.String(),
		f.Name,
	)
}
