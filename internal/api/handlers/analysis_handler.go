package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/voicedesk/internal/models"
	"github.com/yoockh/voicedesk/internal/repositories"
	"github.com/yoockh/voicedesk/internal/services"
	"github.com/yoockh/voicedesk/internal/utils"
	"github.com/yoockh/voicedesk/internal/workers"
)

type AnalysisEnqueuer interface {
	Enqueue(ctx context.Context, job workers.AnalysisJob) error
}

type AnalysisHandler struct {
	analysis    services.AnalysisService
	transcripts services.TranscriptService
	archive     services.ArchiveService
	queue       AnalysisEnqueuer
}

// NewAnalysisHandler accepts a nil queue; prefetch then answers 503.
func NewAnalysisHandler(analysis services.AnalysisService, transcripts services.TranscriptService, archive services.ArchiveService, queue AnalysisEnqueuer) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysis, transcripts: transcripts, archive: archive, queue: queue}
}

// GET /api/analysis/:id?type=voice_call|chat&messageCount=N
func (h *AnalysisHandler) Get(c *gin.Context) {
	const op = "AnalysisHandler.Get"

	id := c.Param("id")
	kind := models.ConversationKind(c.Query("type"))
	n, err := strconv.Atoi(c.Query("messageCount"))
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "messageCount must be an integer", err))
		return
	}

	resp, err := h.analysis.GetOrCompute(c.Request.Context(), id, kind, n, h.transcripts.ProviderFor(kind, id))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type prefetchReq struct {
	Type         models.ConversationKind `json:"type"`
	MessageCount *int                    `json:"messageCount"`
}

// POST /api/analysis/:id/prefetch
func (h *AnalysisHandler) Prefetch(c *gin.Context) {
	const op = "AnalysisHandler.Prefetch"

	if h.queue == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "background analysis is not available", nil))
		return
	}

	var req prefetchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid json", err))
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	switch {
	case id == "":
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "id is required", nil))
		return
	case !req.Type.Valid():
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "type must be voice_call or chat", nil))
		return
	case req.MessageCount == nil || *req.MessageCount < 0:
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "messageCount must be >= 0", nil))
		return
	}

	job := workers.AnalysisJob{ID: id, Kind: req.Type, MessageCount: *req.MessageCount}
	if err := h.queue.Enqueue(c.Request.Context(), job); err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "failed to enqueue analysis", err))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status":  "queued",
		"channel": workers.StatusChannel(id),
	})
}

// GET /api/analysis?type=&outcome=&sentiment=&tag=&limit=
func (h *AnalysisHandler) List(c *gin.Context) {
	const op = "AnalysisHandler.List"

	f := repositories.AnalysisFilter{
		Kind:      models.ConversationKind(c.Query("type")),
		Outcome:   c.Query("outcome"),
		Sentiment: c.Query("sentiment"),
		Tag:       c.Query("tag"),
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "limit must be a positive integer", err))
			return
		}
		f.Limit = n
	}

	rows, err := h.archive.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

// POST /api/analysis/:id/export
func (h *AnalysisHandler) Export(c *gin.Context) {
	out, err := h.archive.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
