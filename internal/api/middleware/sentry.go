package middleware

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/voicedesk/internal/utils"
)

// Recovery turns panics into a 500 and reports them to Sentry. Without a
// configured Sentry client the report is a no-op.
func Recovery(l *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(c.Request)
				hub.RecoverWithContext(c.Request.Context(), err)
				hub.Flush(2 * time.Second)

				l.WithFields(logrus.Fields{
					"request_id": c.GetString("request_id"),
					"path":       c.FullPath(),
					"panic":      err,
				}).Error("panic recovered")
				abort(c, http.StatusInternalServerError, utils.CodeInternal, "internal server error")
			}
		}()
		c.Next()
	}
}
