// Package memdb implements db.Database in memory. It backs the test suite and
// local development without a MySQL instance, mirroring the transactional
// semantics of the mysql implementation.
package memdb

import (
	"context"
	"sort"
	"sync"
	"time"

	db2 "github.com/quillhub/quillhub-be/db"
	"github.com/quillhub/quillhub-be/model"
	"github.com/quillhub/quillhub-be/util"
)

type commentRecord struct {
	comment   model.Comment
	votes     map[string]int8
	voteOrder []string
	flags     map[string]string
	flagOrder []string
}

type Store struct {
	mu            sync.Mutex
	lastCommentId int64
	lastPostId    int64
	comments      map[int64]*commentRecord
	posts         map[int64]*model.Post
	users         map[string]*model.User
}

func New() *Store {
	return &Store{
		comments: make(map[int64]*commentRecord),
		posts:    make(map[int64]*model.Post),
		users:    make(map[string]*model.User),
	}
}

func (db *Store) Close() error {
	return nil
}

func (db *Store) CreateComment(ctx context.Context, req *db2.CreateComment) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.lastCommentId++
	now := time.Now().UTC()
	var parentId *int64
	if req.ParentId != nil {
		v := *req.ParentId
		parentId = &v
	}
	db.comments[db.lastCommentId] = &commentRecord{
		comment: model.Comment{
			Id:              db.lastCommentId,
			PostId:          req.PostId,
			Author:          &model.User{Id: req.AuthorId},
			Content:         req.Content,
			OriginalContent: req.Content,
			ParentId:        parentId,
			IsReply:         parentId != nil,
			Status:          model.CommentStatusActive,
			Attachments:     req.Attachments,
			Mentions:        req.Mentions,
			Metadata:        req.Metadata,
			IpAddress:       req.IpAddress,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		votes: make(map[string]int8),
		flags: make(map[string]string),
	}
	return db.lastCommentId, nil
}

func (db *Store) GetCommentById(ctx context.Context, id int64) (*model.Comment, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rec, ok := db.comments[id]
	if !ok {
		return nil, nil
	}
	return db.buildComment(rec), nil
}

func (db *Store) GetComments(ctx context.Context, query *db2.CommentsQuery) ([]*model.Comment, int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var matches []*commentRecord
	for _, rec := range db.comments {
		if matchesQuery(rec, query) {
			matches = append(matches, rec)
		}
	}
	// newest first
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i].comment, matches[j].comment
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Id > b.Id
	})
	total := int64(len(matches))
	return db.buildPage(matches, query.Page, query.Limit), total, nil
}

func (db *Store) GetReplies(ctx context.Context, parentId int64, page, limit int) ([]*model.Comment, int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var matches []*commentRecord
	for _, rec := range db.comments {
		if rec.comment.ParentId != nil && *rec.comment.ParentId == parentId {
			matches = append(matches, rec)
		}
	}
	// oldest first
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i].comment, matches[j].comment
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Id < b.Id
	})
	total := int64(len(matches))
	return db.buildPage(matches, page, limit), total, nil
}

func (db *Store) UpdateComment(ctx context.Context, id int64, req *db2.UpdateComment) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	rec, ok := db.comments[id]
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	if req.Content != nil {
		rec.comment.EditHistory = append(rec.comment.EditHistory, model.EditRecord{
			Timestamp:       now,
			EditorId:        req.EditorId,
			PreviousContent: rec.comment.Content,
		})
		rec.comment.Content = *req.Content
		rec.comment.IsEdited = true
	}
	if req.Attachments != nil {
		rec.comment.Attachments = req.Attachments
	}
	if req.Mentions != nil {
		rec.comment.Mentions = req.Mentions
	}
	if req.Metadata != nil {
		rec.comment.Metadata = req.Metadata
	}
	rec.comment.UpdatedAt = now
	return nil
}

func (db *Store) VoteComment(ctx context.Context, id int64, userId string, value int8) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	rec, ok := db.comments[id]
	if !ok {
		return nil
	}
	previous := rec.votes[userId]
	switch previous {
	case value:
		delete(rec.votes, userId)
		rec.voteOrder = removeId(rec.voteOrder, userId)
	case 0:
		rec.votes[userId] = value
		rec.voteOrder = append(rec.voteOrder, userId)
	default:
		rec.votes[userId] = value
	}
	rec.comment.UpdatedAt = time.Now().UTC()
	return nil
}

func (db *Store) FlagComment(ctx context.Context, id int64, userId string, reason *string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	rec, ok := db.comments[id]
	if !ok {
		return nil
	}
	if _, alreadyFlagged := rec.flags[userId]; alreadyFlagged {
		return nil
	}
	flagReason := ""
	if reason != nil {
		flagReason = *reason
	}
	rec.flags[userId] = flagReason
	rec.flagOrder = append(rec.flagOrder, userId)
	rec.comment.FlagCount++
	rec.comment.IsFlagged = true
	if reason != nil {
		rec.comment.ModerationReason = *reason
	}
	rec.comment.UpdatedAt = time.Now().UTC()
	return nil
}

func (db *Store) ModerateComment(ctx context.Context, id int64, status model.CommentStatus, moderatorId string, reason *string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	rec, ok := db.comments[id]
	if !ok {
		return nil
	}
	db.applyModeration(rec, status, moderatorId, reason)
	return nil
}

func (db *Store) BulkModerateComments(ctx context.Context, ids []int64, status model.CommentStatus, moderatorId string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, id := range ids {
		rec, ok := db.comments[id]
		if !ok {
			// nonexistent ids are skipped silently
			continue
		}
		db.applyModeration(rec, status, moderatorId, nil)
	}
	return nil
}

func (db *Store) applyModeration(rec *commentRecord, status model.CommentStatus, moderatorId string, reason *string) {
	now := time.Now().UTC()
	rec.comment.Status = status
	moderator := moderatorId
	rec.comment.ModeratedBy = &moderator
	if reason != nil {
		rec.comment.ModerationReason = *reason
	}
	if status == model.CommentStatusDeleted {
		rec.comment.DeletedAt = &now
	}
	rec.comment.UpdatedAt = now
}

func (db *Store) ToggleCommentCuration(ctx context.Context, id int64, field db2.CurationField) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	rec, ok := db.comments[id]
	if !ok {
		return nil
	}
	switch field {
	case db2.CurationPinned:
		rec.comment.IsPinned = !rec.comment.IsPinned
	case db2.CurationHighlighted:
		rec.comment.IsHighlighted = !rec.comment.IsHighlighted
	case db2.CurationStaffResponse:
		rec.comment.IsStaffResponse = !rec.comment.IsStaffResponse
	}
	rec.comment.UpdatedAt = time.Now().UTC()
	return nil
}

func (db *Store) SoftDeleteComment(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	rec, ok := db.comments[id]
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	rec.comment.Status = model.CommentStatusDeleted
	rec.comment.DeletedAt = &now
	rec.comment.UpdatedAt = now
	return nil
}

func (db *Store) DeleteComment(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.comments[id]; !ok {
		return nil
	}
	delete(db.comments, id)
	// cascade to direct replies, as the schema's foreign keys do
	for replyId, rec := range db.comments {
		if rec.comment.ParentId != nil && *rec.comment.ParentId == id {
			delete(db.comments, replyId)
		}
	}
	return nil
}

func (db *Store) GetCommentStats(ctx context.Context, postId int64) (*model.CommentStats, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var stats model.CommentStats
	var likesSum int64
	for _, rec := range db.comments {
		if rec.comment.PostId != postId {
			continue
		}
		stats.TotalComments++
		if rec.comment.IsReply {
			stats.Replies++
		} else {
			stats.TopLevelComments++
		}
		if rec.comment.IsFlagged {
			stats.FlaggedComments++
		}
		if rec.comment.Status == model.CommentStatusDeleted {
			stats.DeletedComments++
		}
		likesSum += int64(countVotes(rec, db2.VoteLike))
	}
	if stats.TotalComments > 0 {
		stats.AverageLikes = float64(likesSum) / float64(stats.TotalComments)
	}
	return &stats, nil
}

func (db *Store) CreatePost(ctx context.Context, req *db2.CreatePost) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.lastPostId++
	now := time.Now().UTC()
	db.posts[db.lastPostId] = &model.Post{
		Id:        db.lastPostId,
		Title:     req.Title,
		Status:    req.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return db.lastPostId, nil
}

func (db *Store) GetPostById(ctx context.Context, id int64) (*model.Post, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	post, ok := db.posts[id]
	if !ok {
		return nil, nil
	}
	v := *post
	return &v, nil
}

func (db *Store) CreateUser(ctx context.Context, user *model.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	v := *user
	db.users[user.Id] = &v
	return nil
}

func (db *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	user, ok := db.users[id]
	if !ok {
		return nil, nil
	}
	v := *user
	return &v, nil
}

// buildComment projects a record into a detached model.Comment. Counters are
// derived from the vote ledger, so they always equal the set cardinalities.
func (db *Store) buildComment(rec *commentRecord) *model.Comment {
	comment := rec.comment

	likedBy := []string{}
	dislikedBy := []string{}
	for _, userId := range rec.voteOrder {
		switch rec.votes[userId] {
		case db2.VoteLike:
			likedBy = append(likedBy, userId)
		case db2.VoteDislike:
			dislikedBy = append(dislikedBy, userId)
		}
	}
	comment.LikedBy = likedBy
	comment.DislikedBy = dislikedBy
	comment.Likes = len(likedBy)
	comment.Dislikes = len(dislikedBy)
	comment.FlaggedBy = append([]string{}, rec.flagOrder...)
	comment.EditHistory = append([]model.EditRecord(nil), rec.comment.EditHistory...)

	if user, ok := db.users[rec.comment.Author.Id]; ok {
		comment.Author = &model.User{
			Id:          user.Id,
			DisplayName: user.DisplayName,
			IsAdmin:     user.IsAdmin,
			Avatar:      util.Avatar(user.Id),
		}
	} else {
		author := *rec.comment.Author
		comment.Author = &author
	}
	return &comment
}

func (db *Store) buildPage(matches []*commentRecord, page, limit int) []*model.Comment {
	start, end := 0, len(matches)
	if limit > 0 {
		pageIndex := page - 1
		if pageIndex < 0 {
			pageIndex = 0
		}
		start = pageIndex * limit
		if start > len(matches) {
			start = len(matches)
		}
		end = start + limit
		if end > len(matches) {
			end = len(matches)
		}
	}
	comments := make([]*model.Comment, 0, end-start)
	for _, rec := range matches[start:end] {
		comments = append(comments, db.buildComment(rec))
	}
	return comments
}

func matchesQuery(rec *commentRecord, query *db2.CommentsQuery) bool {
	c := &rec.comment
	if query.IsReply != nil && c.IsReply != *query.IsReply {
		return false
	}
	if query.Status != nil && c.Status != *query.Status {
		return false
	}
	if query.AuthorId != nil && c.Author.Id != *query.AuthorId {
		return false
	}
	if query.PostId != nil && c.PostId != *query.PostId {
		return false
	}
	if query.IsFlagged != nil && c.IsFlagged != *query.IsFlagged {
		return false
	}
	if query.IsPinned != nil && c.IsPinned != *query.IsPinned {
		return false
	}
	if query.IsHighlighted != nil && c.IsHighlighted != *query.IsHighlighted {
		return false
	}
	if query.FromDate != nil && c.CreatedAt.Before(*query.FromDate) {
		return false
	}
	if query.ToDate != nil && c.CreatedAt.After(*query.ToDate) {
		return false
	}
	return true
}

func countVotes(rec *commentRecord, value int8) int {
	count := 0
	for _, v := range rec.votes {
		if v == value {
			count++
		}
	}
	return count
}

func removeId(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
