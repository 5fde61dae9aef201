package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"file-manager-api/internal/application/ports"
	"file-manager-api/internal/application/validation"
	"file-manager-api/internal/interface/api/rest/dto/file"
	"file-manager-api/internal/interface/api/rest/middleware"
	"file-manager-api/internal/interface/api/rest/validator"
)

// multipart framing on top of the largest accepted payload
const maxUploadBody = int64(validation.MaxFileSize) + 1<<20

type FileController struct {
	fileService ports.FileService
	logger      *zap.Logger
}

func NewFileController(
	r *gin.Engine,
	fileService ports.FileService,
	userService ports.UserService,
	logger *zap.Logger,
	verifier ports.TokenVerifier,
	limiter ports.RequestLimiter,
) *FileController {
	fc := &FileController{
		fileService: fileService,
		logger:      logger,
	}

	auth := middleware.AuthMiddleware(verifier)
	limit := middleware.RateLimit(limiter, logger)

	// uploads carry their own quota
	r.POST(RouteFiles, auth, middleware.ProvisionUser(userService, logger), fc.UploadFileHandler)
	r.GET(RouteFiles, auth, limit, fc.GetFilesHandler)
	r.GET(RouteFile, auth, limit, fc.GetFileHandler)
	r.GET(RouteFileDownload, auth, limit, fc.GetDownloadURLHandler)
	r.DELETE(RouteFile, auth, limit, fc.DeleteFileHandler)

	return fc
}

func (fc *FileController) UploadFileHandler(c *gin.Context) {
	ownerID, ok := middleware.UserID(c)
	if !ok {
		writeError(c, fc.logger, "UploadFile", errNoIdentity)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.TooLargeMessage})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	data, err := validator.ReadUpload(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}

	f, err := fc.fileService.UploadFile(c.Request.Context(), ports.UploadInput{
		Data:     data,
		FileName: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		OwnerID:  ownerID,
	})
	if err != nil {
		writeError(c, fc.logger, "UploadFile", err)
		return
	}

	c.JSON(http.StatusCreated, file.ToResponseFile(*f))
}

func (fc *FileController) GetFilesHandler(c *gin.Context) {
	ownerID, ok := middleware.UserID(c)
	if !ok {
		writeError(c, fc.logger, "ListFiles", errNoIdentity)
		return
	}

	files, err := fc.fileService.ListFiles(c.Request.Context(), ownerID)
	if err != nil {
		writeError(c, fc.logger, "ListFiles", err)
		return
	}

	c.JSON(http.StatusOK, file.ResponseData{
		Data: file.ToResponseFiles(files),
	})
}

func (fc *FileController) GetFileHandler(c *gin.Context) {
	ownerID, ok := middleware.UserID(c)
	if !ok {
		writeError(c, fc.logger, "GetFileMetadata", errNoIdentity)
		return
	}
	ok, id := validator.IsUUID(c.Param("file_id"))
	if !ok {
		c.JSON(
			http.StatusBadRequest,
			gin.H{"error": "file_id must be a valid UUID"},
		)
		return
	}

	f, err := fc.fileService.GetFileMetadata(c.Request.Context(), id, ownerID)
	if err != nil {
		writeError(c, fc.logger, "GetFileMetadata", err)
		return
	}

	c.JSON(http.StatusOK, file.ToResponseFile(*f))
}

func (fc *FileController) GetDownloadURLHandler(c *gin.Context) {
	ownerID, ok := middleware.UserID(c)
	if !ok {
		writeError(c, fc.logger, "GetDownloadURL", errNoIdentity)
		return
	}
	ok, id := validator.IsUUID(c.Param("file_id"))
	if !ok {
		c.JSON(
			http.StatusBadRequest,
			gin.H{"error": "file_id must be a valid UUID"},
		)
		return
	}

	d, err := fc.fileService.GetDownloadURL(c.Request.Context(), id, ownerID)
	if err != nil {
		writeError(c, fc.logger, "GetDownloadURL", err)
		return
	}

	c.JSON(http.StatusOK, file.DownloadURL{
		URL:       d.URL,
		ExpiresIn: int64(d.ExpiresIn.Seconds()),
	})
}

func (fc *FileController) DeleteFileHandler(c *gin.Context) {
	ownerID, ok := middleware.UserID(c)
	if !ok {
		writeError(c, fc.logger, "DeleteFile", errNoIdentity)
		return
	}
	ok, id := validator.IsUUID(c.Param("file_id"))
	if !ok {
		c.JSON(
			http.StatusBadRequest,
			gin.H{"error": "file_id must be a valid UUID"},
		)
		return
	}

	if err := fc.fileService.DeleteFile(c.Request.Context(), id, ownerID); err != nil {
		writeError(c, fc.logger, "DeleteFile", err)
		return
	}

	c.Status(http.StatusNoContent)
}
