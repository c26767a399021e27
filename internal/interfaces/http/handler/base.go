package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/promosync/backend/internal/domain/sync"
	"github.com/promosync/backend/internal/infrastructure/logger"
	"github.com/promosync/backend/internal/interfaces/http/dto"
	"github.com/promosync/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := middleware.GetRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// parseIDParam parses the :id path parameter as a UUID
func parseIDParam(c *gin.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("id"))
}

// HandleDomainError converts sync domain errors to HTTP responses. Conflicts
// carry the in-flight execution ID so the caller can watch or cancel it.
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	requestID := middleware.GetRequestID(c)

	var conflictErr *sync.ConflictError
	if errors.As(err, &conflictErr) {
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeConflict, conflictErr.Error(), requestID)
		resp.Data = gin.H{"execution_id": conflictErr.ExecutionID}
		c.JSON(http.StatusConflict, resp)
		return
	}

	var configErr *sync.ConfigurationError
	if errors.As(err, &configErr) {
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeConfiguration, configErr.Error())
		return
	}

	switch {
	case errors.Is(err, sync.ErrRunLockHeld):
		h.Error(c, http.StatusConflict, dto.ErrCodeConflict, err.Error())

	case errors.Is(err, sync.ErrConfigurationNotFound),
		errors.Is(err, sync.ErrIntegrationNotFound),
		errors.Is(err, sync.ErrStoreNotFound),
		errors.Is(err, sync.ErrChannelNotFound),
		errors.Is(err, sync.ErrExecutionNotFound):
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, err.Error())

	case errors.Is(err, sync.ErrExecutionNotRunning),
		errors.Is(err, sync.ErrExecutionAlreadyFinalized),
		errors.Is(err, sync.ErrInvalidStatusTransition):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState, err.Error())

	case errors.Is(err, sync.ErrSourceUnavailable),
		errors.Is(err, sync.ErrTargetUnavailable):
		h.Error(c, http.StatusBadGateway, dto.ErrCodeUpstreamUnavailable, err.Error())

	default:
		logger.FromContext(c.Request.Context()).Error("Unhandled domain error", zap.Error(err))
		h.InternalError(c, "An unexpected error occurred")
	}
}
