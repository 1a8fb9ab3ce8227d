package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/voicedesk/internal/services"
	"github.com/yoockh/voicedesk/internal/utils"
)

const defaultHistoryTake = 10

type HistoryHandler struct {
	history  services.HistoryService
	demoUser string
}

func NewHistoryHandler(history services.HistoryService, demoUser string) *HistoryHandler {
	return &HistoryHandler{history: history, demoUser: demoUser}
}

// GET /api/history?user=&take=
func (h *HistoryHandler) List(c *gin.Context) {
	const op = "HistoryHandler.List"

	user := c.Query("user")
	if user == "" {
		user = h.demoUser
	}
	take := defaultHistoryTake
	if v := c.Query("take"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "take must be a positive integer", err))
			return
		}
		take = n
	}

	items, err := h.history.List(c.Request.Context(), user, take)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}
