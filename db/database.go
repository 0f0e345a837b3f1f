package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/quillhub/quillhub-be/model"

	_ "github.com/go-sql-driver/mysql"
)

type Database interface {
	CommentDatabase
	PostDatabase
	UserDatabase
	Close() error
}

// vote values stored in the per-user vote ledger. Absence of a row means the
// user holds no vote, so a user can never hold a like and a dislike at once.
const (
	VoteLike    int8 = 1
	VoteDislike int8 = -1
)

type CurationField string

const (
	CurationPinned        CurationField = "is_pinned"
	CurationHighlighted   CurationField = "is_highlighted"
	CurationStaffResponse CurationField = "is_staff_response"
)

type CreateComment struct {
	PostId      int64
	AuthorId    string
	ParentId    *int64
	Content     string
	Attachments json.RawMessage
	Mentions    []string
	Metadata    json.RawMessage
	IpAddress   string
}

// UpdateComment carries a partial edit. Nil fields are retained as-is. A
// non-nil Content pushes the previous content onto the edit history.
type UpdateComment struct {
	EditorId    string
	Content     *string
	Attachments json.RawMessage
	Mentions    []string
	Metadata    json.RawMessage
}

type CommentsQuery struct {
	Status        *model.CommentStatus
	IsReply       *bool
	AuthorId      *string
	PostId        *int64
	IsFlagged     *bool
	IsPinned      *bool
	IsHighlighted *bool
	FromDate      *time.Time
	ToDate        *time.Time
	Page          int
	Limit         int
}

type CreatePost struct {
	Title  string
	Status model.PostStatus
}

type CommentDatabase interface {
	CreateComment(ctx context.Context, req *CreateComment) (commentId int64, err error)
	// GetCommentById returns nil, nil when no such comment exists
	GetCommentById(ctx context.Context, id int64) (*model.Comment, error)
	// GetComments returns one newest-first page of matches plus the total
	// match count
	GetComments(ctx context.Context, query *CommentsQuery) ([]*model.Comment, int64, error)
	// GetReplies returns direct children of a comment, oldest first. A limit
	// <= 0 disables pagination.
	GetReplies(ctx context.Context, parentId int64, page, limit int) ([]*model.Comment, int64, error)
	UpdateComment(ctx context.Context, id int64, req *UpdateComment) error
	// VoteComment applies one toggle of the given vote value for the user,
	// clearing any opposite vote, in a single transaction
	VoteComment(ctx context.Context, id int64, userId string, value int8) error
	// FlagComment is idempotent per user; a repeated flag is a no-op
	FlagComment(ctx context.Context, id int64, userId string, reason *string) error
	ModerateComment(ctx context.Context, id int64, status model.CommentStatus, moderatorId string, reason *string) error
	// BulkModerateComments silently skips ids that do not exist
	BulkModerateComments(ctx context.Context, ids []int64, status model.CommentStatus, moderatorId string) error
	ToggleCommentCuration(ctx context.Context, id int64, field CurationField) error
	SoftDeleteComment(ctx context.Context, id int64) error
	// DeleteComment permanently removes a comment; deleting a missing id is a
	// no-op
	DeleteComment(ctx context.Context, id int64) error
	GetCommentStats(ctx context.Context, postId int64) (*model.CommentStats, error)
}

type PostDatabase interface {
	CreatePost(ctx context.Context, req *CreatePost) (postId int64, err error)
	// GetPostById returns nil, nil when no such post exists
	GetPostById(ctx context.Context, id int64) (*model.Post, error)
}

type UserDatabase interface {
	CreateUser(context.Context, *model.User) error
	// GetUser returns nil, nil when no such user exists
	GetUser(context.Context, string) (*model.User, error)
}
