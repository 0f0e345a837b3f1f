package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	db2 "github.com/quillhub/quillhub-be/db"
	"github.com/quillhub/quillhub-be/db/dao"
	"github.com/quillhub/quillhub-be/model"
	"github.com/quillhub/quillhub-be/util"
	"github.com/upper/db/v4"
)

type CommentDB struct {
	sess db.Session
}

func getCommentDB(sess db.Session) *CommentDB {
	return &CommentDB{sess}
}

type flattenedComment struct {
	Id                int64               `db:"id"`
	PostId            int64               `db:"post_id"`
	AuthorId          string              `db:"author_id"`
	AuthorDisplayName string              `db:"display_name"`
	AuthorIsAdmin     bool                `db:"is_admin"`
	ParentId          dao.NullInt64       `db:"parent_id"`
	IsReply           bool                `db:"is_reply"`
	Content           string              `db:"content"`
	OriginalContent   string              `db:"original_content"`
	IsEdited          bool                `db:"is_edited"`
	Likes             int                 `db:"likes"`
	Dislikes          int                 `db:"dislikes"`
	Status            model.CommentStatus `db:"status"`
	IsFlagged         bool                `db:"is_flagged"`
	FlagCount         int                 `db:"flag_count"`
	ModerationReason  dao.NullString      `db:"moderation_reason"`
	ModeratedBy       dao.NullString      `db:"moderated_by"`
	IsPinned          bool                `db:"is_pinned"`
	IsHighlighted     bool                `db:"is_highlighted"`
	IsStaffResponse   bool                `db:"is_staff_response"`
	Attachments       dao.NullString      `db:"attachments"`
	Mentions          dao.NullString      `db:"mentions"`
	Metadata          dao.NullString      `db:"metadata"`
	IpAddress         dao.NullString      `db:"ip_address"`
	EditHistory       dao.NullString      `db:"edit_history"`
	LikedBy           dao.NullString      `db:"liked_by"`
	DislikedBy        dao.NullString      `db:"disliked_by"`
	FlaggedBy         dao.NullString      `db:"flagged_by"`
	CreatedAt         time.Time           `db:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at"`
	DeletedAt         dao.NullTime        `db:"deleted_at"`
}

var commentColumns = []interface{}{
	"c.id",
	"c.post_id",
	"c.author_id",
	"person.display_name",
	"person.is_admin",
	"c.parent_id",
	"c.is_reply",
	"c.content",
	"c.original_content",
	"c.is_edited",
	"c.likes",
	"c.dislikes",
	"c.status",
	"c.is_flagged",
	"c.flag_count",
	"c.moderation_reason",
	"c.moderated_by",
	"c.is_pinned",
	"c.is_highlighted",
	"c.is_staff_response",
	"c.attachments",
	"c.mentions",
	"c.metadata",
	"c.ip_address",
	"c.edit_history",
	"c.created_at",
	"c.updated_at",
	"c.deleted_at",
	db.Raw("(SELECT JSON_ARRAYAGG(v.user_id) FROM comment_vote AS v WHERE v.comment_id = c.id AND v.value = 1) AS liked_by"),
	db.Raw("(SELECT JSON_ARRAYAGG(v.user_id) FROM comment_vote AS v WHERE v.comment_id = c.id AND v.value = -1) AS disliked_by"),
	db.Raw("(SELECT JSON_ARRAYAGG(f.user_id) FROM comment_flag AS f WHERE f.comment_id = c.id) AS flagged_by"),
}

func (cdb *CommentDB) CreateComment(ctx context.Context, req *db2.CreateComment) (int64, error) {
	mentions, err := marshalMentions(req.Mentions)
	if err != nil {
		return 0, err
	}
	res, err := cdb.sess.SQL().
		InsertInto("comment").
		Columns("post_id", "author_id", "parent_id", "is_reply", "content", "original_content",
			"status", "attachments", "mentions", "metadata", "ip_address").
		Values(req.PostId, req.AuthorId, req.ParentId, req.ParentId != nil, req.Content, req.Content,
			model.CommentStatusActive, rawOrNil(req.Attachments), mentions, rawOrNil(req.Metadata), nullIfEmpty(req.IpAddress)).
		ExecContext(ctx)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (cdb *CommentDB) GetCommentById(ctx context.Context, id int64) (*model.Comment, error) {
	var comment flattenedComment
	if err := cdb.sess.SQL().
		Select(commentColumns...).
		From("comment AS c").
		Join("person").On("c.author_id = person.firebase_id").
		Where("c.id = ?", id).
		IteratorContext(ctx).
		One(&comment); err != nil {
		if err == db.ErrNoMoreRows {
			return nil, nil
		}
		return nil, err
	}
	return buildCommentFromFlattened(&comment)
}

func commentFilters(query *db2.CommentsQuery) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if query.IsReply != nil {
		conds = append(conds, "c.is_reply = ?")
		args = append(args, *query.IsReply)
	}
	if query.Status != nil {
		conds = append(conds, "c.status = ?")
		args = append(args, *query.Status)
	}
	if query.AuthorId != nil {
		conds = append(conds, "c.author_id = ?")
		args = append(args, *query.AuthorId)
	}
	if query.PostId != nil {
		conds = append(conds, "c.post_id = ?")
		args = append(args, *query.PostId)
	}
	if query.IsFlagged != nil {
		conds = append(conds, "c.is_flagged = ?")
		args = append(args, *query.IsFlagged)
	}
	if query.IsPinned != nil {
		conds = append(conds, "c.is_pinned = ?")
		args = append(args, *query.IsPinned)
	}
	if query.IsHighlighted != nil {
		conds = append(conds, "c.is_highlighted = ?")
		args = append(args, *query.IsHighlighted)
	}
	if query.FromDate != nil {
		conds = append(conds, "c.created_at >= ?")
		args = append(args, *query.FromDate)
	}
	if query.ToDate != nil {
		conds = append(conds, "c.created_at <= ?")
		args = append(args, *query.ToDate)
	}
	return strings.Join(conds, " AND "), args
}

func (cdb *CommentDB) GetComments(ctx context.Context, query *db2.CommentsQuery) ([]*model.Comment, int64, error) {
	where, args := commentFilters(query)

	countSel := cdb.sess.SQL().
		Select(db.Raw("COUNT(*) AS total")).
		From("comment AS c")
	if where != "" {
		countSel = countSel.Where(append([]interface{}{where}, args...)...)
	}
	var count struct {
		Total int64 `db:"total"`
	}
	if err := countSel.IteratorContext(ctx).One(&count); err != nil {
		return nil, 0, err
	}

	sel := cdb.sess.SQL().
		Select(commentColumns...).
		From("comment AS c").
		Join("person").On("c.author_id = person.firebase_id")
	if where != "" {
		sel = sel.Where(append([]interface{}{where}, args...)...)
	}
	sel = sel.OrderBy("c.created_at DESC", "c.id DESC")
	if query.Limit > 0 {
		sel = sel.Offset((query.Page - 1) * query.Limit).Limit(query.Limit)
	}

	var flattened []flattenedComment
	if err := sel.IteratorContext(ctx).All(&flattened); err != nil {
		return nil, 0, err
	}
	comments, err := buildCommentsFromFlattened(flattened)
	return comments, count.Total, err
}

func (cdb *CommentDB) GetReplies(ctx context.Context, parentId int64, page, limit int) ([]*model.Comment, int64, error) {
	var count struct {
		Total int64 `db:"total"`
	}
	if err := cdb.sess.SQL().
		Select(db.Raw("COUNT(*) AS total")).
		From("comment AS c").
		Where("c.parent_id = ?", parentId).
		IteratorContext(ctx).
		One(&count); err != nil {
		return nil, 0, err
	}

	sel := cdb.sess.SQL().
		Select(commentColumns...).
		From("comment AS c").
		Join("person").On("c.author_id = person.firebase_id").
		Where("c.parent_id = ?", parentId).
		OrderBy("c.created_at ASC", "c.id ASC")
	if limit > 0 {
		sel = sel.Offset((page - 1) * limit).Limit(limit)
	}

	var flattened []flattenedComment
	if err := sel.IteratorContext(ctx).All(&flattened); err != nil {
		return nil, 0, err
	}
	replies, err := buildCommentsFromFlattened(flattened)
	return replies, count.Total, err
}

func (cdb *CommentDB) UpdateComment(ctx context.Context, id int64, req *db2.UpdateComment) error {
	now := time.Now().UTC()
	var assignments []string
	var args []interface{}
	if req.Content != nil {
		// the history append must precede the content overwrite: MySQL
		// evaluates SET clauses left to right, so `content` here still refers
		// to the previous value
		assignments = append(assignments,
			"edit_history = JSON_ARRAY_APPEND(COALESCE(edit_history, JSON_ARRAY()), '$', "+
				"JSON_OBJECT('timestamp', ?, 'editorId', ?, 'previousContent', content))")
		args = append(args, now.Format(time.RFC3339), req.EditorId)
		assignments = append(assignments, "content = ?", "is_edited = TRUE")
		args = append(args, *req.Content)
	}
	if req.Attachments != nil {
		assignments = append(assignments, "attachments = ?")
		args = append(args, string(req.Attachments))
	}
	if req.Mentions != nil {
		mentions, err := marshalMentions(req.Mentions)
		if err != nil {
			return err
		}
		assignments = append(assignments, "mentions = ?")
		args = append(args, mentions)
	}
	if req.Metadata != nil {
		assignments = append(assignments, "metadata = ?")
		args = append(args, string(req.Metadata))
	}
	assignments = append(assignments, "updated_at = ?")
	args = append(args, now)

	_, err := cdb.sess.SQL().
		Update("comment").
		Set(append([]interface{}{strings.Join(assignments, ", ")}, args...)...).
		Where("id = ?", id).
		ExecContext(ctx)
	return err
}

func (cdb *CommentDB) VoteComment(ctx context.Context, id int64, userId string, value int8) error {
	return cdb.sess.TxContext(ctx, func(sess db.Session) error {
		row, err := sess.SQL().QueryRowContext(ctx, `SELECT value FROM comment_vote
															WHERE comment_id = ? AND user_id = ?
														FOR UPDATE`, id, userId)
		if err != nil {
			return err
		}
		var previous int8
		if err := row.Scan(&previous); err != nil {
			if err != sql.ErrNoRows {
				return err
			}
		}

		var likesChange, dislikesChange int8
		switch previous {
		case value:
			// same vote again cancels it
			if _, err := sess.SQL().
				DeleteFrom("comment_vote").
				Where("comment_id = ? AND user_id = ?", id, userId).
				ExecContext(ctx); err != nil {
				return err
			}
			if value == db2.VoteLike {
				likesChange = -1
			} else {
				dislikesChange = -1
			}
		case 0:
			if _, err := sess.SQL().
				InsertInto("comment_vote").
				Columns("comment_id", "user_id", "value").
				Values(id, userId, value).
				ExecContext(ctx); err != nil {
				return err
			}
			if value == db2.VoteLike {
				likesChange = 1
			} else {
				dislikesChange = 1
			}
		default:
			// the user switches sides
			if _, err := sess.SQL().
				Update("comment_vote").
				Set("value", value).
				Where("comment_id = ? AND user_id = ?", id, userId).
				ExecContext(ctx); err != nil {
				return err
			}
			if value == db2.VoteLike {
				likesChange, dislikesChange = 1, -1
			} else {
				likesChange, dislikesChange = -1, 1
			}
		}

		_, err = sess.SQL().
			Update("comment").
			Set("likes = likes + ?, dislikes = dislikes + ?, updated_at = ?",
				likesChange, dislikesChange, time.Now().UTC()).
			Where("id = ?", id).
			ExecContext(ctx)
		return err
	}, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
}

func (cdb *CommentDB) FlagComment(ctx context.Context, id int64, userId string, reason *string) error {
	return cdb.sess.TxContext(ctx, func(sess db.Session) error {
		flagReason := ""
		if reason != nil {
			flagReason = *reason
		}
		if _, err := sess.SQL().
			InsertInto("comment_flag").
			Columns("comment_id", "user_id", "reason").
			Values(id, userId, flagReason).
			ExecContext(ctx); err != nil {
			if db2.IsDupKeyErr(err) {
				// the user already flagged this comment
				return nil
			}
			return err
		}

		var reasonArg interface{}
		if reason != nil {
			reasonArg = *reason
		}
		_, err := sess.SQL().
			Update("comment").
			Set("flag_count = flag_count + 1, is_flagged = TRUE, moderation_reason = COALESCE(?, moderation_reason), updated_at = ?",
				reasonArg, time.Now().UTC()).
			Where("id = ?", id).
			ExecContext(ctx)
		return err
	}, &sql.TxOptions{})
}

func (cdb *CommentDB) ModerateComment(ctx context.Context, id int64, status model.CommentStatus, moderatorId string, reason *string) error {
	now := time.Now().UTC()
	assignments := []string{"status = ?", "moderated_by = ?", "updated_at = ?"}
	args := []interface{}{status, moderatorId, now}
	if reason != nil {
		assignments = append(assignments, "moderation_reason = ?")
		args = append(args, *reason)
	}
	if status == model.CommentStatusDeleted {
		assignments = append(assignments, "deleted_at = ?")
		args = append(args, now)
	}
	_, err := cdb.sess.SQL().
		Update("comment").
		Set(append([]interface{}{strings.Join(assignments, ", ")}, args...)...).
		Where("id = ?", id).
		ExecContext(ctx)
	return err
}

func (cdb *CommentDB) BulkModerateComments(ctx context.Context, ids []int64, status model.CommentStatus, moderatorId string) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC()
	assignments := "status = ?, moderated_by = ?, updated_at = ?"
	args := []interface{}{status, moderatorId, now}
	if status == model.CommentStatusDeleted {
		assignments += ", deleted_at = ?"
		args = append(args, now)
	}
	_, err := cdb.sess.SQL().
		Update("comment").
		Set(append([]interface{}{assignments}, args...)...).
		Where("id IN ?", ids).
		ExecContext(ctx)
	return err
}

func (cdb *CommentDB) ToggleCommentCuration(ctx context.Context, id int64, field db2.CurationField) error {
	_, err := cdb.sess.SQL().
		Update("comment").
		Set(fmt.Sprintf("%s = NOT %s, updated_at = ?", field, field), time.Now().UTC()).
		Where("id = ?", id).
		ExecContext(ctx)
	return err
}

func (cdb *CommentDB) SoftDeleteComment(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	_, err := cdb.sess.SQL().
		Update("comment").
		Set("status = ?, deleted_at = ?, updated_at = ?", model.CommentStatusDeleted, now, now).
		Where("id = ?", id).
		ExecContext(ctx)
	return err
}

// DeleteComment relies on the schema's ON DELETE CASCADE to take the votes,
// flags, and direct replies with the row.
func (cdb *CommentDB) DeleteComment(ctx context.Context, id int64) error {
	_, err := cdb.sess.SQL().
		DeleteFrom("comment").
		Where("id = ?", id).
		ExecContext(ctx)
	return err
}

func (cdb *CommentDB) GetCommentStats(ctx context.Context, postId int64) (*model.CommentStats, error) {
	row, err := cdb.sess.SQL().QueryRowContext(ctx, `SELECT COUNT(*),
			COALESCE(SUM(is_reply = 0), 0),
			COALESCE(SUM(is_reply = 1), 0),
			COALESCE(SUM(is_flagged = 1), 0),
			COALESCE(SUM(status = 'DELETED'), 0),
			COALESCE(AVG(likes), 0)
		FROM comment WHERE post_id = ?`, postId)
	if err != nil {
		return nil, err
	}
	var stats model.CommentStats
	if err := row.Scan(&stats.TotalComments, &stats.TopLevelComments, &stats.Replies,
		&stats.FlaggedComments, &stats.DeletedComments, &stats.AverageLikes); err != nil {
		return nil, err
	}
	return &stats, nil
}

func buildCommentsFromFlattened(flattened []flattenedComment) ([]*model.Comment, error) {
	comments := make([]*model.Comment, len(flattened))
	for i := range flattened {
		comment, err := buildCommentFromFlattened(&flattened[i])
		if err != nil {
			return nil, err
		}
		comments[i] = comment
	}
	return comments, nil
}

func buildCommentFromFlattened(comment *flattenedComment) (*model.Comment, error) {
	likedBy, err := unmarshalUserIds(&comment.LikedBy)
	if err != nil {
		return nil, err
	}
	dislikedBy, err := unmarshalUserIds(&comment.DislikedBy)
	if err != nil {
		return nil, err
	}
	flaggedBy, err := unmarshalUserIds(&comment.FlaggedBy)
	if err != nil {
		return nil, err
	}

	var mentions []string
	if comment.Mentions.Valid {
		if err := json.Unmarshal([]byte(comment.Mentions.String), &mentions); err != nil {
			return nil, err
		}
	}
	var editHistory []model.EditRecord
	if comment.EditHistory.Valid {
		if err := json.Unmarshal([]byte(comment.EditHistory.String), &editHistory); err != nil {
			return nil, err
		}
	}

	return &model.Comment{
		Id:     comment.Id,
		PostId: comment.PostId,
		Author: &model.User{
			Id:          comment.AuthorId,
			DisplayName: comment.AuthorDisplayName,
			IsAdmin:     comment.AuthorIsAdmin,
			Avatar:      util.Avatar(comment.AuthorId),
		},
		Content:          comment.Content,
		OriginalContent:  comment.OriginalContent,
		IsEdited:         comment.IsEdited,
		ParentId:         comment.ParentId.AsPtr(),
		IsReply:          comment.IsReply,
		Likes:            comment.Likes,
		Dislikes:         comment.Dislikes,
		LikedBy:          likedBy,
		DislikedBy:       dislikedBy,
		Status:           comment.Status,
		IsFlagged:        comment.IsFlagged,
		FlagCount:        comment.FlagCount,
		FlaggedBy:        flaggedBy,
		ModerationReason: comment.ModerationReason.AsString(),
		ModeratedBy:      comment.ModeratedBy.AsPtr(),
		IsPinned:         comment.IsPinned,
		IsHighlighted:    comment.IsHighlighted,
		IsStaffResponse:  comment.IsStaffResponse,
		Attachments:      rawFromNullable(&comment.Attachments),
		Mentions:         mentions,
		Metadata:         rawFromNullable(&comment.Metadata),
		IpAddress:        comment.IpAddress.AsString(),
		EditHistory:      editHistory,
		CreatedAt:        comment.CreatedAt,
		UpdatedAt:        comment.UpdatedAt,
		DeletedAt:        comment.DeletedAt.AsPtr(),
	}, nil
}

func unmarshalUserIds(raw *dao.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" || raw.String == "null" {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw.String), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func rawFromNullable(raw *dao.NullString) json.RawMessage {
	if !raw.Valid {
		return nil
	}
	return json.RawMessage(raw.String)
}

func rawOrNil(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func marshalMentions(mentions []string) (interface{}, error) {
	if mentions == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(mentions)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

func nullIfEmpty(val string) interface{} {
	if val == "" {
		return nil
	}
	return val
}
