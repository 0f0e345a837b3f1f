package model

import (
	"time"
)

type PostStatus string

const (
	PostStatusPublished PostStatus = "PUBLISHED"
	PostStatusArchived  PostStatus = "ARCHIVED"
)

func (ps PostStatus) Valid() bool {
	return ps == PostStatusPublished || ps == PostStatusArchived
}

// Post is the handle comments attach to. The wider post lifecycle (drafts,
// revisions, slugs) is owned by the posts service.
type Post struct {
	Id        int64      `db:"id" json:"id"`
	Title     string     `db:"title" json:"title"`
	Status    PostStatus `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}
