package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"file-manager-api/internal/application/ports"
	"file-manager-api/internal/application/saga"
	"file-manager-api/internal/application/validation"
	"file-manager-api/internal/domain/apperror"
	"file-manager-api/internal/domain/file"
	"file-manager-api/internal/domain/user"
	"file-manager-api/internal/infrastructure/mq"
	dto "file-manager-api/internal/interface/api/rest/dto/file"
)

type FileServiceConfig struct {
	// RetainFailed keeps a FAILED diagnostic row after an aborted upload.
	RetainFailed        bool
	CompensationTimeout time.Duration
}

type FileService struct {
	files       file.Repository
	users       user.Repository
	store       ports.ObjectStore
	limiter     ports.UploadLimiter
	validator   *validation.Engine
	events      ports.EventPublisher
	mCounter    *prometheus.CounterVec
	sagaCounter *prometheus.CounterVec
	logger      *zap.Logger
	cfg         FileServiceConfig
	now         func() time.Time
}

func NewFileService(
	files file.Repository,
	users user.Repository,
	store ports.ObjectStore,
	limiter ports.UploadLimiter,
	events ports.EventPublisher,
	mCounter *prometheus.CounterVec,
	sagaCounter *prometheus.CounterVec,
	logger *zap.Logger,
	cfg FileServiceConfig,
) ports.FileService {
	if cfg.CompensationTimeout <= 0 {
		cfg.CompensationTimeout = saga.DefaultTimeout
	}

	return &FileService{
		files:       files,
		users:       users,
		store:       store,
		limiter:     limiter,
		validator:   validation.NewEngine(files, logger),
		events:      events,
		mCounter:    mCounter,
		sagaCounter: sagaCounter,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

func (fs *FileService) ListFiles(ctx context.Context, ownerID string) (file.Files, error) {
	fls, err := fs.files.FetchFiles(ctx, ownerID)
	if err != nil {
		return nil, apperror.Classify(err, apperror.KindInternal, "failed to list files")
	}

	return fls, nil
}

func (fs *FileService) GetFileMetadata(ctx context.Context, id file.ID, ownerID string) (*file.File, error) {
	f, err := fs.files.FetchFile(ctx, id, ownerID)
	if err != nil {
		return nil, apperror.Classify(err, apperror.KindInternal, "failed to fetch file")
	}
	if f == nil {
		return nil, apperror.NotFound("file not found")
	}

	return f, nil
}

// GetDownloadURL presigns a read for a COMPLETED file. A missing object is
// reported as NotFound so callers never see a dangling link.
func (fs *FileService) GetDownloadURL(ctx context.Context, id file.ID, ownerID string) (*ports.DownloadURL, error) {
	f, err := fs.files.FetchFileByStatus(ctx, id, ownerID, file.StatusCompleted)
	if err != nil {
		return nil, apperror.Classify(err, apperror.KindInternal, "failed to fetch file")
	}
	if f == nil {
		return nil, apperror.NotFound("file not found")
	}

	if !fs.store.Exists(ctx, f.StorageKey) {
		fs.logger.Warn("completed file has no object",
			zap.String("file_id", f.ID.String()),
			zap.String("owner_id", ownerID),
			zap.String("storage_key", f.StorageKey),
		)
		return nil, apperror.NotFound("file content not found")
	}

	url, expiresIn, err := fs.store.PresignGet(ctx, f.StorageKey)
	if err != nil {
		return nil, apperror.Classify(err, apperror.KindStorage, "failed to presign download")
	}

	return &ports.DownloadURL{URL: url, ExpiresIn: expiresIn}, nil
}

func (fs *FileService) publish(ctx context.Context, eventType string, f *file.File) {
	fs.events.Publish(ctx, mq.NewEvent(eventType, f.OwnerID, dto.ToResponseFile(*f)))
}

func (fs *FileService) fileLogger(f *file.File) *zap.Logger {
	return fs.logger.With(
		zap.String("file_id", f.ID.String()),
		zap.String("owner_id", f.OwnerID),
		zap.String("storage_key", f.StorageKey),
	)
}
