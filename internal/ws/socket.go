package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"github.com/pushtisonawala/chat-app/internal/auth"
	"github.com/pushtisonawala/chat-app/internal/models"
	"github.com/pushtisonawala/chat-app/internal/observability"
	"github.com/pushtisonawala/chat-app/internal/repositories"
)

const membershipCheckTimeout = 5 * time.Second

// SocketHandler upgrades client connections and feeds connection events into
// the hub.
type SocketHandler struct {
	hub    *Hub
	tokens *auth.TokenManager
	groups repositories.GroupRepository
}

// NewSocketHandler constructs a SocketHandler.
func NewSocketHandler(hub *Hub, tokens *auth.TokenManager, groups repositories.GroupRepository) *SocketHandler {
	return &SocketHandler{hub: hub, tokens: tokens, groups: groups}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates the handshake, upgrades the connection and registers
// it with the hub. The connection then lives in a read loop consuming
// joinGroup/leaveGroup frames until the transport closes.
func (h *SocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chat-app/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	userID, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	conn := NewConn(userID, sock)
	conn.DeviceID = observability.DeviceIDFromRequest(c.Request)
	conn.IP = observability.IPFromRequest(c.Request)
	conn.RequestID = observability.RequestIDFromRequest(c.Request)
	conn.TraceID = span.SpanContext().TraceID().String()

	h.hub.Register(conn)
	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	publishWSEvent(conn, "ws_connect", "")

	go h.readLoop(conn, sock)
}

func (h *SocketHandler) readLoop(conn *Conn, sock *websocket.Conn) {
	var closeReason string
	defer func() {
		h.hub.Unregister(conn.ID)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		publishWSEvent(conn, "ws_disconnect", closeReason)
		_ = sock.Close()
	}()

	for {
		_, data, err := sock.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				publishWSEvent(conn, "ws_error", closeReason)
			}
			return
		}

		var frame models.ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Printf("invalid client frame conn=%s: %v", conn.ID, err)
			continue
		}
		h.handleFrame(conn, frame)
	}
}

func (h *SocketHandler) handleFrame(conn *Conn, frame models.ClientFrame) {
	switch frame.Type {
	case models.FrameJoinGroup:
		ctx, cancel := context.WithTimeout(context.Background(), membershipCheckTimeout)
		defer cancel()
		member, err := h.groups.IsMember(ctx, frame.GroupID, conn.UserID)
		if err != nil || !member {
			log.Printf("join group %d denied user=%d: member=%t err=%v", frame.GroupID, conn.UserID, member, err)
			return
		}
		h.hub.JoinGroup(frame.GroupID, conn)
		observability.IncWSEvent("join_group")
	case models.FrameLeaveGroup:
		h.hub.LeaveGroup(frame.GroupID, conn.ID)
		observability.IncWSEvent("leave_group")
	default:
		log.Printf("unknown frame type %q conn=%s", frame.Type, conn.ID)
	}
}

func (h *SocketHandler) validateToken(header string) (int, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.tokens.Validate(parts[1])
	}
	return 0, auth.ErrInvalidToken
}
