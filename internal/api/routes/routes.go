package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/voicedesk/internal/api/handlers"
	"github.com/yoockh/voicedesk/internal/api/middleware"
)

type Deps struct {
	Health   *handlers.HealthHandler
	Analysis *handlers.AnalysisHandler
	Proxy    *handlers.ProxyHandler
	History  *handlers.HistoryHandler
	WS       *handlers.WSHandler

	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Auth is applied to /api and /ws when Secret is set.
	Auth middleware.JWTConfig
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", d.Health.Ping)
	r.GET("/healthz", d.Health.Healthz)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	api := r.Group("/api")
	ws := r.Group("/ws")
	admin := []gin.HandlerFunc{}
	if d.Auth.Secret != "" {
		api.Use(middleware.JWTAuth(d.Auth))
		ws.Use(middleware.JWTAuth(d.Auth))
		admin = append(admin, middleware.RequireAdmin())
	}

	api.POST("/chatkit/session", d.Proxy.CreateSession)
	api.POST("/create-session", d.Proxy.CreateSessionWithWorkflow)
	api.GET("/chatkit/threads", d.Proxy.ListThreads)
	api.GET("/chatkit/threads/:threadId/messages", d.Proxy.ListMessages)
	api.POST("/voice-agents/conversations/list", d.Proxy.ListConversations)
	api.GET("/voice-agents/conversation/:id", d.Proxy.GetConversation)

	api.GET("/history", d.History.List)

	api.GET("/analysis/:id", d.Analysis.Get)
	api.POST("/analysis/:id/prefetch", d.Analysis.Prefetch)
	api.GET("/analysis", append(admin, d.Analysis.List)...)
	api.POST("/analysis/:id/export", append(admin, d.Analysis.Export)...)

	ws.GET("/analysis/:id", d.WS.AnalysisStatusWS)
}
