package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"heartrisk/ml"
)

const websocketPathPrefix = "/api/ws/"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// 单条消息大小上限
	maxMessageSize = 4096
	// 单次预测超时
	livePredictTimeout = 5 * time.Second
)

// liveMessage 实时预览推送消息
type liveMessage struct {
	ID             string         `json:"id"`
	Seq            int            `json:"seq"`
	VerdictText    string         `json:"verdict_text,omitempty"`
	ConfidenceText string         `json:"confidence_text,omitempty"`
	Assessment     *ml.Assessment `json:"assessment,omitempty"`
	Error          string         `json:"error,omitempty"`
}

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			// 同源始终允许
			if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
				return true
			}
			return originAllowed(allowedOrigins, origin)
		},
	}
}

// handleLivePredict 表单变更时通过WebSocket实时返回预测结果
func (h *Handler) handleLivePredict(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sessionID := uuid.NewString()
	logger := h.logger.With(zap.String("session", sessionID))
	logger.Debug("live preview connected")

	ctx, cancel := context.WithCancel(r.Context())
	send := make(chan liveMessage, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		writePump(conn, send, logger)
	}()

	h.readPump(ctx, conn, r, sessionID, send, logger)
	cancel()
	close(send)
	<-done
	logger.Debug("live preview disconnected")
}

// readPump 读取观测值并完成预测
func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, r *http.Request, sessionID string, send chan<- liveMessage, logger *zap.Logger) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for seq := 1; ; seq++ {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		msg := liveMessage{ID: sessionID, Seq: seq}
		var obs ml.RawObservation
		if err := json.Unmarshal(payload, &obs); err != nil {
			msg.Error = "invalid json: " + err.Error()
			send <- msg
			continue
		}

		predictCtx, cancel := context.WithTimeout(ctx, livePredictTimeout)
		assessment, err := h.assess(predictCtx, obs)
		cancel()
		if err != nil {
			msg.Error = err.Error()
		} else {
			localized := localize(r, assessment)
			msg.VerdictText = localized.VerdictText
			msg.ConfidenceText = localized.ConfidenceText
			msg.Assessment = &assessment
		}
		send <- msg
	}
}

// writePump 写出消息并定时发送ping
func writePump(conn *websocket.Conn, send <-chan liveMessage, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warn("websocket write error", zap.Error(err))
				conn.Close()
				drain(send)
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				conn.Close()
				drain(send)
				return
			}
		}
	}
}

// drain 连接关闭后继续消费，直到读端退出
func drain(send <-chan liveMessage) {
	for range send {
	}
}
