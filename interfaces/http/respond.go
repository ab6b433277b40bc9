package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"social-hub/domain/dto"
	"social-hub/domain/model"
	"social-hub/infrastructure/logger"
)

// respondError maps domain error types onto HTTP statuses and the shared
// response envelope. Unknown errors become 500 without leaking detail.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	var authErr *model.AuthenticationError
	var valErr *model.ValidationError
	var notFound *model.NotFoundError
	var rateLimit *model.RateLimitError
	var platformErr *model.PlatformError

	switch {
	case errors.As(err, &authErr):
		status = http.StatusUnauthorized
		message = authErr.Error()
	case errors.As(err, &valErr):
		status = http.StatusBadRequest
		message = valErr.Error()
	case errors.As(err, &notFound):
		status = http.StatusNotFound
		message = notFound.Error()
	case errors.As(err, &rateLimit):
		status = http.StatusTooManyRequests
		message = rateLimit.Error()
	case errors.As(err, &platformErr):
		status = http.StatusBadGateway
		message = platformErr.Error()
	default:
		logger.GetLogger().WithField("error", err).Error("unhandled error")
	}

	c.JSON(status, dto.Res{
		ResponseCode:    strconv.Itoa(status),
		ResponseMessage: message,
	})
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.Res{
		ResponseCode:    "200",
		ResponseMessage: "Success",
		Data:            data,
	})
}

// userID returns the authenticated caller set by the auth middleware.
func userID(c *gin.Context) string {
	return c.GetString("user_id")
}
