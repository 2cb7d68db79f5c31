package models

import "time"

// Group represents a chat group.
type Group struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	AdminID   int       `db:"admin_id" json:"admin_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// GroupMember links a user to a group.
type GroupMember struct {
	GroupID int `db:"group_id" json:"group_id"`
	UserID  int `db:"user_id" json:"user_id"`
}
