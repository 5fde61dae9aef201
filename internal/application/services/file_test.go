package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"file-manager-api/internal/application/ports"
	"file-manager-api/internal/application/quota"
	"file-manager-api/internal/domain/apperror"
	"file-manager-api/internal/domain/file"
	"file-manager-api/internal/infrastructure/mq"
)

const owner = "owner-1"

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func pdf(body string) []byte {
	return []byte("%PDF-1.7\n" + body + "\n%%EOF\n")
}

type harness struct {
	repo     *memRepo
	users    *memUsers
	store    *memStore
	events   *memEvents
	counter  *prometheus.CounterVec
	sagaCtr  *prometheus.CounterVec
	svc      *FileService
	limiter  *quota.UploadLimiter
	limitCfg quota.Limits
}

func newHarness(t *testing.T, cfg FileServiceConfig) *harness {
	t.Helper()

	h := &harness{
		repo:     newMemRepo(),
		users:    newMemUsers(owner, "owner-2"),
		store:    newMemStore(),
		events:   &memEvents{},
		counter:  newTestCounter(),
		sagaCtr:  newTestSagaCounter(),
		limitCfg: quota.DefaultLimits(),
	}
	h.limiter = quota.NewUploadLimiter(h.limitCfg, h.repo)

	svc := NewFileService(h.repo, h.users, h.store, h.limiter, h.events, h.counter, h.sagaCtr, zap.NewNop(), cfg)
	h.svc = svc.(*FileService)
	h.svc.now = func() time.Time { return fixedNow }

	return h
}

func (h *harness) upload(t *testing.T, name string) (*file.File, error) {
	t.Helper()
	return h.svc.UploadFile(context.Background(), ports.UploadInput{
		Data:     pdf(name),
		FileName: name,
		MimeType: "application/pdf",
		OwnerID:  owner,
	})
}

func (h *harness) assertCompletedHaveObjects(t *testing.T) {
	t.Helper()
	for _, f := range h.repo.byStatus(file.StatusCompleted) {
		assert.True(t, h.store.has(f.StorageKey), "COMPLETED %s has no object", f.Name)
	}
}

func TestUploadFile_Success(t *testing.T) {
	h := newHarness(t, FileServiceConfig{})

	f, err := h.upload(t, "../Annual Report.pdf")
	require.NoError(t, err)

	assert.Equal(t, file.StatusCompleted, f.Status)
	assert.Equal(t, "Annual_Report.pdf", f.Name)
	assert.Equal(t, file.ContentTypePDF, f.ContentType)
	assert.Equal(t, "application/pdf", f.MimeType)
	assert.Equal(t, "uploads", f.StorageBucket)
	assert.Len(t, f.ContentHash, 64)
	assert.Equal(t,
		fmt.Sprintf("files/owner-1/2026/03/14/%s/Annual_Report.pdf", f.ID),
		f.StorageKey,
	)

	stored, err := h.repo.FetchFile(context.Background(), f.ID, owner)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, file.StatusCompleted, stored.Status)

	require.True(t, h.store.has(f.StorageKey))
	meta := h.store.metadata[f.StorageKey]
	assert.Equal(t, owner, meta["owner-id"])
	assert.Equal(t, "..%2FAnnual%20Report.pdf", meta["original-name"])
	assert.Equal(t, f.ContentHash, meta["content-sha256"])

	assert.Equal(t, []string{mq.EventFileUploaded}, h.events.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.counter.WithLabelValues("user_files_created_total")))
}

func TestUploadFile_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(h *harness)
		in       ports.UploadInput
		wantKind apperror.Kind
	}{
		{
			name:     "unknown owner",
			in:       ports.UploadInput{Data: pdf("x"), FileName: "a.pdf", MimeType: "application/pdf", OwnerID: "ghost"},
			wantKind: apperror.KindNotFound,
		},
		{
			name:     "owner lookup failure",
			prepare:  func(h *harness) { h.users.err = errors.New("db down") },
			in:       ports.UploadInput{Data: pdf("x"), FileName: "a.pdf", MimeType: "application/pdf", OwnerID: owner},
			wantKind: apperror.KindInternal,
		},
		{
			name:     "claimed type mismatch",
			in:       ports.UploadInput{Data: pdf("x"), FileName: "a.png", MimeType: "image/png", OwnerID: owner},
			wantKind: apperror.KindValidation,
		},
		{
			name: "pending upload exists",
			prepare: func(h *harness) {
				_, _ = h.repo.CreateFile(context.Background(), &file.File{
					ID: uuid.New(), OwnerID: owner, Name: "a.pdf", Status: file.StatusPending,
				})
			},
			in:       ports.UploadInput{Data: pdf("x"), FileName: "a.pdf", MimeType: "application/pdf", OwnerID: owner},
			wantKind: apperror.KindConflict,
		},
		{
			name: "completed duplicate name",
			prepare: func(h *harness) {
				_, _ = h.repo.CreateFile(context.Background(), &file.File{
					ID: uuid.New(), OwnerID: owner, Name: "a.pdf", Status: file.StatusCompleted,
				})
			},
			in:       ports.UploadInput{Data: pdf("x"), FileName: "a.pdf", MimeType: "application/pdf", OwnerID: owner},
			wantKind: apperror.KindConflict,
		},
		{
			name: "storage ceiling",
			prepare: func(h *harness) {
				_, _ = h.repo.CreateFile(context.Background(), &file.File{
					ID: uuid.New(), OwnerID: owner, Name: "big.pdf", Status: file.StatusCompleted, SizeMB: 500,
				})
			},
			in:       ports.UploadInput{Data: pdf("x"), FileName: "a.pdf", MimeType: "application/pdf", OwnerID: owner},
			wantKind: apperror.KindQuota,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, FileServiceConfig{})
			if tt.prepare != nil {
				tt.prepare(h)
			}
			before := h.repo.count()

			f, err := h.svc.UploadFile(context.Background(), tt.in)
			require.Error(t, err)
			assert.Nil(t, f)
			assert.Equal(t, tt.wantKind, apperror.KindOf(err))

			assert.Equal(t, before, h.repo.count())
			assert.Zero(t, h.store.count())
			assert.Empty(t, h.events.types())
		})
	}
}

func TestUploadFile_QuotaWindow(t *testing.T) {
	h := newHarness(t, FileServiceConfig{})

	for i := 0; i < 20; i++ {
		_, err := h.upload(t, fmt.Sprintf("doc-%d.pdf", i))
		require.NoError(t, err)
	}

	_, err := h.upload(t, "doc-20.pdf")
	require.Error(t, err)
	ae, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindQuota, ae.Kind)
	assert.True(t, ae.ResetAt.After(time.Now()))
}

func TestUploadFile_SagaFailures(t *testing.T) {
	tests := []struct {
		name     string
		inject   func(h *harness)
		wantKind apperror.Kind
	}{
		{"store put fails", func(h *harness) { h.store.putErr = errors.New("s3 unavailable") }, apperror.KindStorage},
		{"bucket missing", func(h *harness) { h.store.putErr = fmt.Errorf("put: %w", ports.ErrBucketNotFound) }, apperror.KindStorage},
		{"verification fails", func(h *harness) { h.store.hide = true }, apperror.KindStorage},
		{"status update fails", func(h *harness) { h.repo.updateErr = errors.New("deadlock") }, apperror.KindInternal},
		{"commit fails", func(h *harness) { h.repo.commitErr = errors.New("connection reset") }, apperror.KindInternal},
		{"begin fails", func(h *harness) { h.repo.beginErr = errors.New("pool exhausted") }, apperror.KindInternal},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, FileServiceConfig{})
			tt.inject(h)

			f, err := h.upload(t, "report.pdf")
			require.Error(t, err)
			assert.Nil(t, f)
			assert.Equal(t, tt.wantKind, apperror.KindOf(err))

			assert.Zero(t, h.repo.count(), "no record may survive an aborted upload")
			assert.Zero(t, h.store.count(), "no orphan object may survive an aborted upload")
			assert.Empty(t, h.events.types())
			assert.Empty(t, h.repo.reserved)
		})
	}
}

func TestUploadFile_RetainFailed(t *testing.T) {
	h := newHarness(t, FileServiceConfig{RetainFailed: true})
	h.store.putErr = errors.New("s3 unavailable")

	_, err := h.upload(t, "report.pdf")
	require.Error(t, err)

	failed := h.repo.byStatus(file.StatusFailed)
	require.Len(t, failed, 1)
	require.NotNil(t, failed[0].ErrorMessage)
	assert.Equal(t, "failed to store file", *failed[0].ErrorMessage)
	assert.Zero(t, h.store.count())

	// a FAILED row does not block a retry under the same name
	h.store.putErr = nil
	f, err := h.upload(t, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, file.StatusCompleted, f.Status)
}

func TestUploadFile_TimeoutStillCompensates(t *testing.T) {
	h := newHarness(t, FileServiceConfig{})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := h.svc.UploadFile(ctx, ports.UploadInput{
		Data: pdf("x"), FileName: "a.pdf", MimeType: "application/pdf", OwnerID: owner,
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindTimeout, apperror.KindOf(err))
	assert.Zero(t, h.repo.count())
	assert.Empty(t, h.repo.reserved)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.sagaCtr.WithLabelValues("upload", "rollback metadata tx", "ok")))
}

func TestUploadFile_ConcurrentSameName(t *testing.T) {
	h := newHarness(t, FileServiceConfig{})

	const n = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.upload(t, "same.pdf")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	for _, err := range errs {
		assert.Equal(t, apperror.KindConflict, apperror.KindOf(err), err.Error())
	}
	assert.Len(t, h.repo.byStatus(file.StatusCompleted), 1)
	assert.Equal(t, 1, h.store.count())
	h.assertCompletedHaveObjects(t)
}

func TestDeleteFile(t *testing.T) {
	h := newHarness(t, FileServiceConfig{})
	f, err := h.upload(t, "report.pdf")
	require.NoError(t, err)

	require.NoError(t, h.svc.DeleteFile(context.Background(), f.ID, owner))

	assert.Zero(t, h.repo.count())
	assert.False(t, h.store.has(f.StorageKey))
	assert.Equal(t, []string{mq.EventFileUploaded, mq.EventFileDeleted}, h.events.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.counter.WithLabelValues("user_files_deleted_total")))

	err = h.svc.DeleteFile(context.Background(), f.ID, owner)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestDeleteFile_NotOwned(t *testing.T) {
	h := newHarness(t, FileServiceConfig{})
	f, err := h.upload(t, "report.pdf")
	require.NoError(t, err)

	err = h.svc.DeleteFile(context.Background(), f.ID, "owner-2")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.True(t, h.store.has(f.StorageKey))
}

func TestDeleteFile_StoreFailureRestores(t *testing.T) {
	tests := []struct {
		name         string
		rollbackErr  error
		wantRestored int
	}{
		{name: "rollback restores", wantRestored: 0},
		{name: "rollback fails, record re-saved", rollbackErr: errors.New("conn lost"), wantRestored: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, FileServiceConfig{})
			f, err := h.upload(t, "report.pdf")
			require.NoError(t, err)

			h.store.deleteErr = errors.New("s3 unavailable")
			h.repo.rollbackErr = tt.rollbackErr

			err = h.svc.DeleteFile(context.Background(), f.ID, owner)
			require.Error(t, err)
			assert.Equal(t, apperror.KindStorage, apperror.KindOf(err))

			got, err := h.repo.FetchFile(context.Background(), f.ID, owner)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, file.StatusCompleted, got.Status)
			assert.True(t, h.store.has(f.StorageKey))
			assert.Equal(t, tt.wantRestored, h.repo.restored)
			assert.Equal(t, []string{mq.EventFileUploaded}, h.events.types())
		})
	}
}

func TestDeleteFile_CommitFailureMarksFailed(t *testing.T) {
	h := newHarness(t, FileServiceConfig{})
	f, err := h.upload(t, "report.pdf")
	require.NoError(t, err)

	h.repo.commitErr = errors.New("connection reset")

	err = h.svc.DeleteFile(context.Background(), f.ID, owner)
	require.Error(t, err)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))

	got, err := h.repo.FetchFile(context.Background(), f.ID, owner)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, file.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, commitFailedMessage, *got.ErrorMessage)
	assert.False(t, h.store.has(f.StorageKey))
	h.assertCompletedHaveObjects(t)
}

func TestGetDownloadURL(t *testing.T) {
	h := newHarness(t, FileServiceConfig{})
	f, err := h.upload(t, "report.pdf")
	require.NoError(t, err)

	dl, err := h.svc.GetDownloadURL(context.Background(), f.ID, owner)
	require.NoError(t, err)
	assert.True(t, strings.Contains(dl.URL, f.StorageKey))
	assert.Equal(t, time.Hour, dl.ExpiresIn)

	_, err = h.svc.GetDownloadURL(context.Background(), f.ID, "owner-2")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	h.store.hide = true
	_, err = h.svc.GetDownloadURL(context.Background(), f.ID, owner)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	h.store.hide = false
	h.store.presignErr = errors.New("signing failed")
	_, err = h.svc.GetDownloadURL(context.Background(), f.ID, owner)
	assert.Equal(t, apperror.KindStorage, apperror.KindOf(err))
}

func TestGetDownloadURL_PendingIsNotFound(t *testing.T) {
	h := newHarness(t, FileServiceConfig{})
	id := uuid.New()
	_, err := h.repo.CreateFile(context.Background(), &file.File{
		ID: id, OwnerID: owner, Name: "a.pdf", StorageKey: "k", Status: file.StatusPending,
	})
	require.NoError(t, err)

	_, err = h.svc.GetDownloadURL(context.Background(), id, owner)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestListAndMetadata(t *testing.T) {
	h := newHarness(t, FileServiceConfig{})

	first, err := h.upload(t, "one.pdf")
	require.NoError(t, err)
	h.svc.now = func() time.Time { return fixedNow.Add(time.Minute) }
	second, err := h.upload(t, "two.pdf")
	require.NoError(t, err)

	fls, err := h.svc.ListFiles(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, fls, 2)
	assert.Equal(t, second.ID, fls[0].ID)
	assert.Equal(t, first.ID, fls[1].ID)

	other, err := h.svc.ListFiles(context.Background(), "owner-2")
	require.NoError(t, err)
	assert.Empty(t, other)

	got, err := h.svc.GetFileMetadata(context.Background(), first.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "one.pdf", got.Name)

	_, err = h.svc.GetFileMetadata(context.Background(), first.ID, "owner-2")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

// Whatever fails along the way, a COMPLETED record always has its object.
func TestCompletedImpliesObject(t *testing.T) {
	h := newHarness(t, FileServiceConfig{RetainFailed: true})
	ctx := context.Background()

	var kept []*file.File
	for i := 0; i < 12; i++ {
		h.store.putErr, h.store.deleteErr, h.repo.commitErr = nil, nil, nil
		switch i % 4 {
		case 1:
			h.store.putErr = errors.New("flaky put")
		case 2:
			h.repo.commitErr = errors.New("flaky commit")
		}

		f, err := h.upload(t, fmt.Sprintf("f-%d.pdf", i))
		if err == nil {
			kept = append(kept, f)
		}
		h.assertCompletedHaveObjects(t)
	}

	for i, f := range kept {
		h.store.deleteErr, h.repo.commitErr = nil, nil
		if i%2 == 0 {
			h.store.deleteErr = errors.New("flaky delete")
		}
		_ = h.svc.DeleteFile(ctx, f.ID, owner)
		h.assertCompletedHaveObjects(t)
	}
}
