package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/voicedesk/internal/utils"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
	wsWriteWait  = 10 * time.Second
)

// StatusSubscriber delivers the status payloads of one conversation until the
// returned close func runs.
type StatusSubscriber interface {
	Subscribe(ctx context.Context, id string) (<-chan string, func() error, error)
}

type WSHandler struct {
	feed     StatusSubscriber
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler accepts a nil feed; the endpoint then answers 503.
func NewWSHandler(feed StatusSubscriber, log *logrus.Logger) *WSHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WSHandler{
		feed: feed,
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) write(kind int, b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.c.WriteMessage(kind, b)
}

// AnalysisStatusWS streams the prefetch status messages of one conversation.
// GET /ws/analysis/:id
func (h *WSHandler) AnalysisStatusWS(c *gin.Context) {
	const op = "WSHandler.AnalysisStatusWS"

	if h.feed == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "status streaming is not available", nil))
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing id", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	msgs, unsubscribe, err := h.feed.Subscribe(ctx, id)
	if err != nil {
		h.log.WithError(err).WithField("analysis_id", id).Warn("status subscribe failed")
		_ = wc.write(websocket.TextMessage, []byte(`{"type":"error","code":"UNAVAILABLE","message":"failed to subscribe"}`))
		return
	}
	defer unsubscribe()

	// Clients only send control frames; the read loop keeps deadlines fresh
	// and notices when the socket closes.
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := wc.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case payload, ok := <-msgs:
			if !ok {
				return
			}
			if err := wc.write(websocket.TextMessage, []byte(payload)); err != nil {
				return
			}
		}
	}
}
