package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"file-manager-api/internal/application/ports"
	"file-manager-api/internal/application/quota"
	"file-manager-api/internal/domain/apperror"
	domainFile "file-manager-api/internal/domain/file"
	domainUser "file-manager-api/internal/domain/user"
	jwtSvc "file-manager-api/internal/infrastructure/jwt"
)

const testSecret = "test-secret"

type FakeFileService struct {
	UploadFileFunc      func(ctx context.Context, in ports.UploadInput) (*domainFile.File, error)
	ListFilesFunc       func(ctx context.Context, ownerID string) (domainFile.Files, error)
	GetFileMetadataFunc func(ctx context.Context, id domainFile.ID, ownerID string) (*domainFile.File, error)
	GetDownloadURLFunc  func(ctx context.Context, id domainFile.ID, ownerID string) (*ports.DownloadURL, error)
	DeleteFileFunc      func(ctx context.Context, id domainFile.ID, ownerID string) error
}

func (f *FakeFileService) UploadFile(ctx context.Context, in ports.UploadInput) (*domainFile.File, error) {
	if f.UploadFileFunc == nil {
		return nil, errors.New("not used")
	}
	return f.UploadFileFunc(ctx, in)
}
func (f *FakeFileService) ListFiles(ctx context.Context, ownerID string) (domainFile.Files, error) {
	if f.ListFilesFunc == nil {
		return nil, errors.New("not used")
	}
	return f.ListFilesFunc(ctx, ownerID)
}
func (f *FakeFileService) GetFileMetadata(ctx context.Context, id domainFile.ID, ownerID string) (*domainFile.File, error) {
	if f.GetFileMetadataFunc == nil {
		return nil, errors.New("not used")
	}
	return f.GetFileMetadataFunc(ctx, id, ownerID)
}
func (f *FakeFileService) GetDownloadURL(ctx context.Context, id domainFile.ID, ownerID string) (*ports.DownloadURL, error) {
	if f.GetDownloadURLFunc == nil {
		return nil, errors.New("not used")
	}
	return f.GetDownloadURLFunc(ctx, id, ownerID)
}
func (f *FakeFileService) DeleteFile(ctx context.Context, id domainFile.ID, ownerID string) error {
	if f.DeleteFileFunc == nil {
		return errors.New("not used")
	}
	return f.DeleteFileFunc(ctx, id, ownerID)
}

type FakeUserService struct {
	SyncUserFunc func(ctx context.Context, u domainUser.User) (*domainUser.User, error)
	FindUserFunc func(ctx context.Context, id domainUser.ID) (*domainUser.User, error)
}

func (f *FakeUserService) SyncUser(ctx context.Context, u domainUser.User) (*domainUser.User, error) {
	if f.SyncUserFunc == nil {
		return nil, errors.New("not used")
	}
	return f.SyncUserFunc(ctx, u)
}
func (f *FakeUserService) FindUser(ctx context.Context, id domainUser.ID) (*domainUser.User, error) {
	if f.FindUserFunc == nil {
		return &domainUser.User{ID: id}, nil
	}
	return f.FindUserFunc(ctx, id)
}

type FakeLimiter struct {
	AllowFunc func(ctx context.Context, key string) (quota.Decision, error)
	keys      []string
}

func (f *FakeLimiter) Allow(ctx context.Context, key string) (quota.Decision, error) {
	f.keys = append(f.keys, key)
	if f.AllowFunc == nil {
		return quota.Decision{Allowed: true, Remaining: 10}, nil
	}
	return f.AllowFunc(ctx, key)
}

func setupRouter(t *testing.T, fs ports.FileService, us ports.UserService, limiter ports.RequestLimiter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	logger := zap.NewNop()
	j := jwtSvc.New(testSecret)

	if us == nil {
		us = &FakeUserService{}
	}
	if fs != nil {
		NewFileController(r, fs, us, logger, j, limiter)
	}
	NewUserController(r, us, logger, j, limiter)

	return r
}

func bearer(t *testing.T, secret, userID string) map[string]string {
	t.Helper()
	tok, err := jwtSvc.New(secret).GenerateJWT(userID, userID+"@example.com", time.Hour)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + tok}
}

func doReq(t *testing.T, r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		b, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func doUpload(t *testing.T, r *gin.Engine, fileName, mime string, content []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	if fileName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
		h.Set("Content-Type", mime)
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, _ = pw.Write(content)
	}
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, RouteFiles, &b)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	return m
}

func completedFile(owner string) *domainFile.File {
	return &domainFile.File{
		ID:          domainFile.ID{1},
		OwnerID:     owner,
		StorageKey:  "files/" + owner + "/2026/01/02/x/doc.pdf",
		Name:        "doc.pdf",
		ContentType: domainFile.ContentTypePDF,
		MimeType:    "application/pdf",
		SizeMB:      0.5,
		ContentHash: "deadbeef",
		Status:      domainFile.StatusCompleted,
		UploadedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

var errNotFound = apperror.NotFound("file not found")
