package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pushtisonawala/chat-app/internal/models"
	"github.com/pushtisonawala/chat-app/internal/repositories"
)

// Dispatcher is the fan-out surface handlers emit through after a
// successful persistence write.
type Dispatcher interface {
	DispatchDirect(msg models.Message)
	DispatchGroup(msg models.Message)
}

// MessageHandler manages direct-message endpoints.
type MessageHandler struct {
	users      repositories.UserRepository
	messages   repositories.MessageRepository
	dispatcher Dispatcher
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(users repositories.UserRepository, messages repositories.MessageRepository, dispatcher Dispatcher) *MessageHandler {
	return &MessageHandler{users: users, messages: messages, dispatcher: dispatcher}
}

// GetSidebarUsers returns every other user for the contact sidebar.
func (h *MessageHandler) GetSidebarUsers(c *gin.Context) {
	userID := c.GetInt("userID")

	users, err := h.users.ListUsersExcept(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetDirectMessages returns the conversation with another user in timestamp
// order.
func (h *MessageHandler) GetDirectMessages(c *gin.Context) {
	otherID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	userID := c.GetInt("userID")
	msgs, err := h.messages.GetDirectMessages(c.Request.Context(), userID, otherID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendDirectMessage persists a direct message and fans it out to the
// recipient's and the sender's live connections. A persistence failure is
// surfaced to the sender only; no fan-out happens.
func (h *MessageHandler) SendDirectMessage(c *gin.Context) {
	receiverID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	userID := c.GetInt("userID")
	if receiverID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot message yourself"})
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.users.GetUserByID(c.Request.Context(), receiverID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "recipient not found"})
		return
	}

	msg, err := h.messages.CreateDirectMessage(c.Request.Context(), userID, receiverID, req.Text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.dispatcher.DispatchDirect(msg)
	c.JSON(http.StatusCreated, msg)
}
