package services

import (
	"context"

	"go.uber.org/zap"

	"file-manager-api/internal/application/saga"
	"file-manager-api/internal/domain/apperror"
	"file-manager-api/internal/domain/file"
	"file-manager-api/internal/infrastructure/mq"
)

const commitFailedMessage = "object deleted, metadata commit failed"

// DeleteFile removes a COMPLETED file. The row is marked DELETING and
// removed inside a transaction that is only committed after the object is
// gone; a store failure rolls it back so the row reads COMPLETED again.
func (fs *FileService) DeleteFile(ctx context.Context, id file.ID, ownerID string) error {
	rec, err := fs.files.FetchFileByStatus(ctx, id, ownerID, file.StatusCompleted)
	if err != nil {
		return apperror.Classify(err, apperror.KindInternal, "failed to fetch file")
	}
	if rec == nil {
		return apperror.NotFound("file not found")
	}

	log := fs.fileLogger(rec)
	comp := saga.New("delete", fs.logger, fs.sagaCounter).WithTimeout(fs.cfg.CompensationTimeout)
	comp.With(
		zap.String("file_id", rec.ID.String()),
		zap.String("owner_id", rec.OwnerID),
		zap.String("storage_key", rec.StorageKey),
	)
	abort := func(err error) error {
		_ = comp.Unwind(ctx)
		return err
	}

	tx, err := fs.files.Begin(ctx)
	if err != nil {
		log.Error("Begin() error", zap.Error(err))
		return apperror.Classify(err, apperror.KindInternal, "failed to open transaction")
	}
	comp.Push("restore metadata", func(ctx context.Context) error {
		rbErr := tx.Rollback(ctx)
		if rbErr == nil {
			return nil
		}
		log.Warn("rollback failed, re-saving record", zap.Error(rbErr))
		return fs.files.RestoreFile(ctx, rec)
	})

	marked, err := tx.UpdateStatus(ctx, rec.ID, ownerID, file.StatusDeleting)
	if err != nil {
		log.Error("UpdateStatus() error", zap.Error(err))
		return abort(apperror.Classify(err, apperror.KindInternal, "failed to mark file for deletion"))
	}
	if marked == nil {
		// a concurrent delete won
		return abort(apperror.NotFound("file not found"))
	}

	if err = tx.RemoveFile(ctx, rec.ID, ownerID); err != nil {
		log.Error("RemoveFile() error", zap.Error(err))
		return abort(apperror.Classify(err, apperror.KindInternal, "failed to remove file record"))
	}

	if err = fs.store.Delete(ctx, rec.StorageKey); err != nil {
		log.Error("Delete() error", zap.Error(err))
		return abort(apperror.Classify(err, apperror.KindStorage, "failed to delete file"))
	}

	if err = tx.Commit(ctx); err != nil {
		// The object is gone, so restoring COMPLETED would point at nothing.
		comp.Discard()
		log.Error("Commit() error after object delete", zap.Error(err))
		fs.markFailed(ctx, rec)
		return apperror.Classify(err, apperror.KindInternal, "failed to commit file deletion")
	}
	comp.Discard()

	fs.publish(ctx, mq.EventFileDeleted, rec)
	fs.mCounter.WithLabelValues("user_files_deleted_total").Inc()

	log.Info("file deleted")

	return nil
}

func (fs *FileService) markFailed(ctx context.Context, rec *file.File) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failedWriteTimeout)
	defer cancel()

	if err := fs.files.MarkFailed(ctx, rec.ID, rec.OwnerID, commitFailedMessage); err != nil {
		fs.fileLogger(rec).Error("MarkFailed() error", zap.Error(err))
	}
}
