package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/pushtisonawala/chat-app/internal/models"
)

var ErrGroupNotFound = errors.New("group not found")

// GroupRepository abstracts group persistence.
type GroupRepository interface {
	CreateGroup(ctx context.Context, adminID int, name string, memberIDs []int) (models.Group, error)
	ListGroups(ctx context.Context) ([]models.Group, error)
	GetGroup(ctx context.Context, groupID int) (models.Group, error)
	AddMember(ctx context.Context, groupID, userID int) error
	IsMember(ctx context.Context, groupID, userID int) (bool, error)
	MemberIDs(ctx context.Context, groupID int) ([]int, error)
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// CreateGroup creates a group with the admin and the given members. The admin
// is always a member.
func (r *GroupRepo) CreateGroup(ctx context.Context, adminID int, name string, memberIDs []int) (models.Group, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Group{}, err
	}
	defer tx.Rollback()

	var group models.Group
	if err := tx.QueryRowxContext(ctx,
		`INSERT INTO groups (name, admin_id) VALUES ($1, $2)
         RETURNING id, name, admin_id, created_at`,
		name, adminID).StructScan(&group); err != nil {
		return models.Group{}, err
	}

	members := lo.Uniq(append(memberIDs, adminID))
	for _, userID := range members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			group.ID, userID); err != nil {
			return models.Group{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Group{}, err
	}
	return group, nil
}

// ListGroups returns every group.
func (r *GroupRepo) ListGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups,
		`SELECT id, name, admin_id, created_at FROM groups ORDER BY created_at DESC`)
	return groups, err
}

// GetGroup fetches a group by id.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID int) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group,
		`SELECT id, name, admin_id, created_at FROM groups WHERE id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}

// AddMember adds a user to the group; adding an existing member is a no-op.
func (r *GroupRepo) AddMember(ctx context.Context, groupID, userID int) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id)
         SELECT $1, $2 WHERE EXISTS (SELECT 1 FROM groups WHERE id=$1)
         ON CONFLICT DO NOTHING`,
		groupID, userID)
	if err != nil {
		return err
	}
	if count, err := res.RowsAffected(); err == nil && count == 0 {
		exists, err := r.groupExists(ctx, groupID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrGroupNotFound
		}
	}
	return nil
}

// IsMember checks whether a user belongs to the group.
func (r *GroupRepo) IsMember(ctx context.Context, groupID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)`, groupID, userID)
	return exists, err
}

// MemberIDs returns the user ids belonging to the group.
func (r *GroupRepo) MemberIDs(ctx context.Context, groupID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM group_members WHERE group_id=$1 ORDER BY user_id`, groupID)
	return ids, err
}

func (r *GroupRepo) groupExists(ctx context.Context, groupID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM groups WHERE id=$1)`, groupID)
	return exists, err
}
