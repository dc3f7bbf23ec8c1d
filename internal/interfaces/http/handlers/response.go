// Package handlers implements the HTTP endpoints of the risk service.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/credicefi/crediface/internal/application/dto"
	"github.com/credicefi/crediface/internal/infrastructure/monitoring"
	"github.com/credicefi/crediface/pkg/constants"
	"github.com/credicefi/crediface/pkg/errors"
)

// traceID prefers the OpenTelemetry trace id and falls back to the request id.
func traceID(c *gin.Context) string {
	if id := monitoring.TraceID(c.Request.Context()); id != "" {
		return id
	}
	return c.GetString(string(constants.ContextKeyRequestID))
}

func sendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, dto.SuccessResponse(data, traceID(c)))
}

func sendError(c *gin.Context, err error) {
	monitoring.RecordError(c.Request.Context(), err)
	status, body := dto.ErrorResponse(err, traceID(c))
	c.AbortWithStatusJSON(status, body)
}

// tenantID reads the tenant header. Handlers behind the rate limiter rely on it too.
func tenantID(c *gin.Context) (string, error) {
	id := c.GetHeader(constants.HeaderTenantID)
	if id == "" {
		return "", errors.ErrMissingRequiredParameter(constants.HeaderTenantID)
	}
	return id, nil
}

func bindError(err error) error {
	return errors.ErrInvalidRequest("malformed JSON body").WithCause(err)
}
