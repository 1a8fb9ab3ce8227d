package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/voicedesk/internal/utils"
)

type ChatKitAPI interface {
	CreateSession(ctx context.Context, workflowID string) (json.RawMessage, error)
	ThreadsRaw(ctx context.Context, user string) (json.RawMessage, error)
	ThreadItemsRaw(ctx context.Context, threadID string) (json.RawMessage, error)
	DemoUser() string
}

type VoiceAgentAPI interface {
	ConversationRaw(ctx context.Context, id string) (json.RawMessage, error)
	ListConversationsRaw(ctx context.Context, body map[string]any) (json.RawMessage, error)
}

// ProxyHandler relays ChatKit and voice agent calls so API keys stay
// server side. Either client may be nil.
type ProxyHandler struct {
	chat  ChatKitAPI
	voice VoiceAgentAPI
}

func NewProxyHandler(chat ChatKitAPI, voice VoiceAgentAPI) *ProxyHandler {
	return &ProxyHandler{chat: chat, voice: voice}
}

func (h *ProxyHandler) chatOK(c *gin.Context, op string) bool {
	if h.chat == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "chat API is not configured", nil))
		return false
	}
	return true
}

func (h *ProxyHandler) voiceOK(c *gin.Context, op string) bool {
	if h.voice == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "voice agent API is not configured", nil))
		return false
	}
	return true
}

// POST /api/chatkit/session
func (h *ProxyHandler) CreateSession(c *gin.Context) {
	if !h.chatOK(c, "ProxyHandler.CreateSession") {
		return
	}
	raw, err := h.chat.CreateSession(c.Request.Context(), "")
	if err != nil {
		writeUpstreamError(c, err, "failed to create session")
		return
	}
	writeRawJSON(c, http.StatusOK, raw)
}

type createSessionReq struct {
	WorkflowID string `json:"workflow_id"`
}

// POST /api/create-session; an empty body uses the configured workflow.
func (h *ProxyHandler) CreateSessionWithWorkflow(c *gin.Context) {
	const op = "ProxyHandler.CreateSessionWithWorkflow"
	if !h.chatOK(c, op) {
		return
	}

	var req createSessionReq
	if err := bindOptionalJSON(c, &req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid json", err))
		return
	}

	raw, err := h.chat.CreateSession(c.Request.Context(), strings.TrimSpace(req.WorkflowID))
	if err != nil {
		writeUpstreamError(c, err, "failed to create session")
		return
	}
	writeRawJSON(c, http.StatusOK, raw)
}

// GET /api/chatkit/threads?user=
func (h *ProxyHandler) ListThreads(c *gin.Context) {
	if !h.chatOK(c, "ProxyHandler.ListThreads") {
		return
	}
	user := c.Query("user")
	if user == "" {
		user = h.chat.DemoUser()
	}
	raw, err := h.chat.ThreadsRaw(c.Request.Context(), user)
	if err != nil {
		writeUpstreamError(c, err, "failed to fetch threads")
		return
	}
	writeRawJSON(c, http.StatusOK, raw)
}

// GET /api/chatkit/threads/:threadId/messages
func (h *ProxyHandler) ListMessages(c *gin.Context) {
	if !h.chatOK(c, "ProxyHandler.ListMessages") {
		return
	}
	raw, err := h.chat.ThreadItemsRaw(c.Request.Context(), c.Param("threadId"))
	if err != nil {
		writeUpstreamError(c, err, "failed to fetch messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": raw})
}

// POST /api/voice-agents/conversations/list
func (h *ProxyHandler) ListConversations(c *gin.Context) {
	const op = "ProxyHandler.ListConversations"
	if !h.voiceOK(c, op) {
		return
	}

	body := map[string]any{}
	if err := bindOptionalJSON(c, &body); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid json", err))
		return
	}

	raw, err := h.voice.ListConversationsRaw(c.Request.Context(), body)
	if err != nil {
		writeUpstreamError(c, err, "failed to fetch conversations")
		return
	}
	writeRawJSON(c, http.StatusOK, raw)
}

// GET /api/voice-agents/conversation/:id
func (h *ProxyHandler) GetConversation(c *gin.Context) {
	if !h.voiceOK(c, "ProxyHandler.GetConversation") {
		return
	}
	raw, err := h.voice.ConversationRaw(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeUpstreamError(c, err, "failed to fetch conversation details")
		return
	}
	writeRawJSON(c, http.StatusOK, raw)
}

// bindOptionalJSON treats an empty body as an empty object.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
