package rest

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"file-manager-api/internal/application/ports"
	"file-manager-api/internal/interface/api/rest/dto/user"
	"file-manager-api/internal/interface/api/rest/middleware"
	"file-manager-api/internal/interface/api/rest/validator"
)

type UserController struct {
	userService ports.UserService
	logger      *zap.Logger
}

func NewUserController(
	r *gin.Engine,
	userService ports.UserService,
	logger *zap.Logger,
	verifier ports.TokenVerifier,
	limiter ports.RequestLimiter,
) *UserController {
	uc := &UserController{
		userService: userService,
		logger:      logger,
	}

	auth := middleware.AuthMiddleware(verifier)
	limit := middleware.RateLimit(limiter, logger)

	r.POST(RouteUserSync, auth, limit, uc.SyncUserHandler)
	r.GET(RouteUserMe, auth, limit, uc.GetMeHandler)

	return uc
}

func (uc *UserController) SyncUserHandler(c *gin.Context) {
	id, ok := middleware.UserID(c)
	if !ok {
		writeError(c, uc.logger, "SyncUser", errNoIdentity)
		return
	}

	var req user.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(
			http.StatusBadRequest,
			gin.H{"error": "invalid JSON body"},
		)
		return
	}
	if errs := validator.ValidateSyncRequest(req); errs != nil {
		c.JSON(
			http.StatusBadRequest,
			gin.H{"error": "validation failed", "fields": errs},
		)
		return
	}

	u, err := uc.userService.SyncUser(c.Request.Context(), user.ToDomainUser(id, c.GetString(middleware.CtxUserEmail), req))
	if err != nil {
		writeError(c, uc.logger, "SyncUser", err)
		return
	}

	c.JSON(http.StatusOK, user.ToResponseUser(*u))
}

func (uc *UserController) GetMeHandler(c *gin.Context) {
	id, ok := middleware.UserID(c)
	if !ok {
		writeError(c, uc.logger, "FindUser", errNoIdentity)
		return
	}

	u, err := uc.userService.FindUser(c.Request.Context(), id)
	if err != nil {
		writeError(c, uc.logger, "FindUser", err)
		return
	}

	c.JSON(http.StatusOK, user.ToResponseUser(*u))
}
