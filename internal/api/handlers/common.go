package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/yoockh/voicedesk/internal/providers"
	"github.com/yoockh/voicedesk/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	if status >= http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
		captureError(c, err)
	}
	_ = c.Error(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.JSON(status, APIError{
			Code:    ae.Code,
			Message: ae.Message,
		})
		return
	}

	c.JSON(status, APIError{
		Code:    utils.CodeOf(err),
		Message: http.StatusText(status),
	})
}

// writeUpstreamError relays a non-2xx upstream response with its status and
// body. Transport failures become 502.
func writeUpstreamError(c *gin.Context, err error, msg string) {
	var ue *providers.UpstreamError
	if errors.As(err, &ue) {
		_ = c.Error(err)
		c.JSON(ue.StatusCode, gin.H{"error": ue.Body})
		return
	}
	var ae *utils.AppError
	if errors.As(err, &ae) {
		writeError(c, err)
		return
	}
	writeError(c, utils.E(utils.CodeBadGateway, "Proxy", msg, err))
}

func captureError(c *gin.Context, err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(c.Request)
		scope.SetTag("route", c.FullPath())
		if rid := c.GetString("request_id"); rid != "" {
			scope.SetTag("request_id", rid)
		}
		sentry.CaptureException(err)
	})
}

func writeRawJSON(c *gin.Context, status int, raw []byte) {
	c.Data(status, "application/json; charset=utf-8", raw)
}
