package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/marketplace-service/internal/authz"
	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/services"
	"github.com/SAP-F-2025/marketplace-service/internal/utils"
)

type ErrorResponse = models.ErrorResponse
type SuccessResponse = models.SuccessResponse

// BaseHandler carries the logger and the shared error mapping.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	l := utils.GetLogger(c, h.logger)
	if p, ok := authz.FromContext(c.Request.Context()); ok {
		args = append(args, "user_id", p.UserID)
	}
	l.Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	l := utils.GetLogger(c, h.logger)
	args = append(args, "error", err, "path", c.Request.URL.Path)
	l.Error(msg, args...)
}

// principal returns the authenticated caller, or nil on public routes.
func (h *BaseHandler) principal(c *gin.Context) *authz.Principal {
	p, _ := authz.FromContext(c.Request.Context())
	return p
}

// bindJSON decodes the body and answers 400 on malformed input.
func (h *BaseHandler) bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return false
	}
	return true
}

func (h *BaseHandler) bindQuery(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindQuery(dest); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return false
	}
	return true
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.ResourceType,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	var courseNotFound *services.CourseNotFoundError
	if errors.As(err, &courseNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Course not found",
			Details: map[string]interface{}{"course_id": courseNotFound.CourseID},
		})
		return
	}

	switch {
	case services.IsValidationError(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	case services.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: err.Error()})
	case services.IsAuthenticationError(err):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: err.Error()})
	case services.IsPermissionError(err):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: err.Error()})
	case services.IsConflictError(err):
		c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error()})
	case services.IsPaymentRequiredError(err):
		c.JSON(http.StatusPaymentRequired, ErrorResponse{Message: rootMessage(err)})
	case errors.Is(err, services.ErrLocalAuthDisabled):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: err.Error()})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}

// rootMessage hides provider details wrapped around payment sentinels.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		services.ErrPaymentNotVerified,
		services.ErrAmountMismatch,
		services.ErrEnrollmentRequiresPayment,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func parseBoolQuery(c *gin.Context, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseDateQuery accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseDateQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
