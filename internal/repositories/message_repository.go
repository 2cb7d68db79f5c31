package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/pushtisonawala/chat-app/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for direct and group messages.
type MessageRepository interface {
	CreateDirectMessage(ctx context.Context, senderID, receiverID int, text string) (models.Message, error)
	CreateGroupMessage(ctx context.Context, senderID, groupID int, text string, mentionedAI bool) (models.Message, error)
	CreateAIMessage(ctx context.Context, groupID int, text string) (models.Message, error)
	GetDirectMessages(ctx context.Context, userID, otherID int) ([]models.Message, error)
	ListGroupMessages(ctx context.Context, groupID int) ([]models.Message, error)
	RecentGroupMessages(ctx context.Context, groupID, limit int) ([]models.Message, error)
}

const messageColumns = `id, sender_id, receiver_id, group_id, text, is_group_message, is_ai_message, mentioned_ai, created_at`

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateDirectMessage stores a message between two users.
func (r *MessageRepo) CreateDirectMessage(ctx context.Context, senderID, receiverID int, text string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (sender_id, receiver_id, text) VALUES ($1, $2, $3)
         RETURNING `+messageColumns,
		senderID, receiverID, text).StructScan(&msg)
	return msg, err
}

// CreateGroupMessage stores a human-authored message in a group.
func (r *MessageRepo) CreateGroupMessage(ctx context.Context, senderID, groupID int, text string, mentionedAI bool) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (sender_id, group_id, text, is_group_message, mentioned_ai)
         VALUES ($1, $2, $3, TRUE, $4)
         RETURNING `+messageColumns,
		senderID, groupID, text, mentionedAI).StructScan(&msg)
	return msg, err
}

// CreateAIMessage stores an assistant-authored message in a group. The sender
// column stays NULL; the assistant identity is substituted at emit time.
func (r *MessageRepo) CreateAIMessage(ctx context.Context, groupID int, text string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (group_id, text, is_group_message, is_ai_message)
         VALUES ($1, $2, TRUE, TRUE)
         RETURNING `+messageColumns,
		groupID, text).StructScan(&msg)
	return msg, err
}

// GetDirectMessages returns the conversation between two users in
// creation-timestamp order.
func (r *MessageRepo) GetDirectMessages(ctx context.Context, userID, otherID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages
         WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
         ORDER BY created_at ASC`,
		userID, otherID)
	return msgs, err
}

// ListGroupMessages returns all messages in a group in creation order.
func (r *MessageRepo) ListGroupMessages(ctx context.Context, groupID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages WHERE group_id=$1 ORDER BY created_at ASC`, groupID)
	return msgs, err
}

// RecentGroupMessages returns the newest messages of a group in creation
// order, used as assistant conversation context.
func (r *MessageRepo) RecentGroupMessages(ctx context.Context, groupID, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM (
            SELECT `+messageColumns+` FROM messages WHERE group_id=$1 ORDER BY created_at DESC LIMIT $2
         ) recent ORDER BY created_at ASC`,
		groupID, limit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return msgs, err
}
