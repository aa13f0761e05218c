package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/agentmux/core"
)

// StatusClientClosedRequest is the non-standard status for canceled requests.
const StatusClientClosedRequest = 499

// StatusFor maps an error code to an HTTP status.
func StatusFor(code core.Code) int {
	switch code {
	case core.CodeInvalidInput, core.CodeToolInputInvalid:
		return http.StatusUnprocessableEntity
	case core.CodeUnknownAgent, core.CodeUnknownWorkflow:
		return http.StatusNotFound
	case core.CodeProviderTimeout:
		return http.StatusGatewayTimeout
	case core.CodeProviderUnavailable, core.CodeToolExecutionFailed, core.CodeWorkflowStageFailed:
		return http.StatusBadGateway
	case core.CodeCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	var e *core.Error
	if !errors.As(err, &e) {
		e = core.NewError("INTERNAL", "", err.Error(), nil)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(StatusFor(e.Code), gin.H{"error": e})
}

func errorBody(code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}
