package model

import (
	"encoding/json"
	"time"
)

type CommentStatus string

const (
	CommentStatusActive        CommentStatus = "ACTIVE"
	CommentStatusHidden        CommentStatus = "HIDDEN"
	CommentStatusDeleted       CommentStatus = "DELETED"
	CommentStatusPendingReview CommentStatus = "PENDING_REVIEW"
)

func (cs CommentStatus) Valid() bool {
	switch cs {
	case CommentStatusActive, CommentStatusHidden, CommentStatusDeleted, CommentStatusPendingReview:
		return true
	}
	return false
}

// EditRecord is one entry of a comment's append-only edit history. Entries are
// ordered oldest edit first.
type EditRecord struct {
	Timestamp       time.Time `json:"timestamp"`
	EditorId        string    `json:"editorId"`
	PreviousContent string    `json:"previousContent"`
}

type Comment struct {
	Id      int64  `json:"id"`
	PostId  int64  `json:"postId"`
	Author  *User  `json:"author"`
	Content string `json:"content"`

	// OriginalContent is the content snapshot taken at creation and never
	// touched again
	OriginalContent string `json:"originalContent"`
	IsEdited        bool   `json:"isEdited"`

	// ParentId is nil for top-level comments. IsReply is true iff ParentId is
	// set; a comment with IsReply true can never be a parent itself.
	ParentId *int64     `json:"parentId,omitempty"`
	IsReply  bool       `json:"isReply"`
	Replies  []*Comment `json:"replies,omitempty"`

	Likes      int      `json:"likes"`
	Dislikes   int      `json:"dislikes"`
	LikedBy    []string `json:"likedBy"`
	DislikedBy []string `json:"dislikedBy"`

	Status           CommentStatus `json:"status"`
	IsFlagged        bool          `json:"isFlagged"`
	FlagCount        int           `json:"flagCount"`
	FlaggedBy        []string      `json:"flaggedBy"`
	ModerationReason string        `json:"moderationReason,omitempty"`
	ModeratedBy      *string       `json:"moderatedBy,omitempty"`

	IsPinned        bool `json:"isPinned"`
	IsHighlighted   bool `json:"isHighlighted"`
	IsStaffResponse bool `json:"isStaffResponse"`

	// opaque payloads captured at creation/update, never interpreted
	Attachments json.RawMessage `json:"attachments,omitempty"`
	Mentions    []string        `json:"mentions,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	IpAddress   string          `json:"-"`

	EditHistory []EditRecord `json:"editHistory,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

type PaginationMetadata struct {
	Total       int64 `json:"total"`
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

// BuildPaginationMetadata computes the page envelope for an offset query.
func BuildPaginationMetadata(total int64, page, limit int) PaginationMetadata {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PaginationMetadata{
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}

type PaginatedComments struct {
	Items    []*Comment         `json:"items"`
	Metadata PaginationMetadata `json:"metadata"`
}

// CommentStats aggregates over every comment of a post, any status, any depth.
// AverageLikes is 0 when the post has no comments.
type CommentStats struct {
	TotalComments    int64   `json:"totalComments"`
	TopLevelComments int64   `json:"topLevelComments"`
	Replies          int64   `json:"replies"`
	FlaggedComments  int64   `json:"flaggedComments"`
	DeletedComments  int64   `json:"deletedComments"`
	AverageLikes     float64 `json:"averageLikes"`
}
