package controllers

import (
	"context"

	"github.com/quillhub/quillhub-be/config"
	"github.com/quillhub/quillhub-be/db"
	"github.com/quillhub/quillhub-be/model"
	"github.com/quillhub/quillhub-be/util"
)

type CommentController struct {
	db db.Database
}

func NewCommentController(database db.Database) *CommentController {
	return &CommentController{db: database}
}

func (cc *CommentController) Create(c context.Context, req *db.CreateComment) (*model.Comment, *util.HTTPError) {
	author, err := cc.db.GetUser(c, req.AuthorId)
	if err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	if author == nil {
		return nil, util.BuildNotFoundErr("user")
	}

	post, err := cc.db.GetPostById(c, req.PostId)
	if err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	if post == nil {
		return nil, util.BuildNotFoundErr("post")
	}

	if req.ParentId != nil {
		parent, err := cc.db.GetCommentById(c, *req.ParentId)
		if err != nil {
			return nil, util.BuildDbHTTPErr(err)
		}
		if parent == nil {
			return nil, util.BuildNotFoundErr("parent comment")
		}
		// threading is exactly one level deep
		if parent.IsReply {
			return nil, util.BuildValidationErr("cannot reply to a reply")
		}
	}

	commentId, err := cc.db.CreateComment(c, req)
	if err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	return cc.fetch(c, commentId)
}

func (cc *CommentController) FindAll(c context.Context, query *db.CommentsQuery) (*model.PaginatedComments, *util.HTTPError) {
	query.Page, query.Limit = clampPagination(query.Page, query.Limit)
	if query.IsReply == nil {
		topLevelOnly := false
		query.IsReply = &topLevelOnly
	}

	comments, total, err := cc.db.GetComments(c, query)
	if err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	return buildPage(comments, total, query.Page, query.Limit), nil
}

// FindOne returns the comment with its direct replies embedded (oldest first)
func (cc *CommentController) FindOne(c context.Context, id int64) (*model.Comment, *util.HTTPError) {
	comment, err := cc.db.GetCommentById(c, id)
	if err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	if comment == nil {
		return nil, util.BuildNotFoundErr("comment")
	}
	if !comment.IsReply {
		replies, _, err := cc.db.GetReplies(c, id, 1, 0)
		if err != nil {
			return nil, util.BuildDbHTTPErr(err)
		}
		comment.Replies = replies
	}
	return comment, nil
}

func (cc *CommentController) GetReplies(c context.Context, parentId int64, page, limit int) (*model.PaginatedComments, *util.HTTPError) {
	parent, err := cc.db.GetCommentById(c, parentId)
	if err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	if parent == nil {
		return nil, util.BuildNotFoundErr("comment")
	}

	page, limit = clampPagination(page, limit)
	replies, total, err := cc.db.GetReplies(c, parentId, page, limit)
	if err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	return buildPage(replies, total, page, limit), nil
}

func (cc *CommentController) Update(c context.Context, id int64, req *db.UpdateComment) (*model.Comment, *util.HTTPError) {
	if httpErr := cc.mustExist(c, id); httpErr != nil {
		return nil, httpErr
	}
	if err := cc.db.UpdateComment(c, id, req); err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	return cc.fetch(c, id)
}

func (cc *CommentController) Like(c context.Context, id int64, userId string) (*model.Comment, *util.HTTPError) {
	return cc.vote(c, id, userId, db.VoteLike)
}

func (cc *CommentController) Dislike(c context.Context, id int64, userId string) (*model.Comment, *util.HTTPError) {
	return cc.vote(c, id, userId, db.VoteDislike)
}

func (cc *CommentController) vote(c context.Context, id int64, userId string, value int8) (*model.Comment, *util.HTTPError) {
	if httpErr := cc.mustExist(c, id); httpErr != nil {
		return nil, httpErr
	}
	user, err := cc.db.GetUser(c, userId)
	if err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	if user == nil {
		return nil, util.BuildNotFoundErr("user")
	}

	if err := cc.db.VoteComment(c, id, userId, value); err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	return cc.fetch(c, id)
}

func (cc *CommentController) Flag(c context.Context, id int64, userId string, reason *string) (*model.Comment, *util.HTTPError) {
	if httpErr := cc.mustExist(c, id); httpErr != nil {
		return nil, httpErr
	}
	if err := cc.db.FlagComment(c, id, userId, reason); err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	return cc.fetch(c, id)
}

func (cc *CommentController) Moderate(c context.Context, id int64, status model.CommentStatus, moderatorId string, reason *string) (*model.Comment, *util.HTTPError) {
	if !status.Valid() {
		return nil, util.BuildValidationErr("invalid status")
	}
	if httpErr := cc.mustExist(c, id); httpErr != nil {
		return nil, httpErr
	}
	if err := cc.db.ModerateComment(c, id, status, moderatorId, reason); err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	return cc.fetch(c, id)
}

// BulkModerate moderates every listed comment that exists. Unknown ids are
// skipped, not errors.
func (cc *CommentController) BulkModerate(c context.Context, ids []int64, status model.CommentStatus, moderatorId string) *util.HTTPError {
	if !status.Valid() {
		return util.BuildValidationErr("invalid status")
	}
	if err := cc.db.BulkModerateComments(c, ids, status, moderatorId); err != nil {
		return util.BuildDbHTTPErr(err)
	}
	return nil
}

func (cc *CommentController) Pin(c context.Context, id int64) (*model.Comment, *util.HTTPError) {
	return cc.toggleCuration(c, id, db.CurationPinned)
}

func (cc *CommentController) Highlight(c context.Context, id int64) (*model.Comment, *util.HTTPError) {
	return cc.toggleCuration(c, id, db.CurationHighlighted)
}

func (cc *CommentController) MarkAsStaffResponse(c context.Context, id int64) (*model.Comment, *util.HTTPError) {
	return cc.toggleCuration(c, id, db.CurationStaffResponse)
}

func (cc *CommentController) toggleCuration(c context.Context, id int64, field db.CurationField) (*model.Comment, *util.HTTPError) {
	if httpErr := cc.mustExist(c, id); httpErr != nil {
		return nil, httpErr
	}
	if err := cc.db.ToggleCommentCuration(c, id, field); err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	return cc.fetch(c, id)
}

func (cc *CommentController) GetStats(c context.Context, postId int64) (*model.CommentStats, *util.HTTPError) {
	post, err := cc.db.GetPostById(c, postId)
	if err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	if post == nil {
		return nil, util.BuildNotFoundErr("post")
	}

	stats, err := cc.db.GetCommentStats(c, postId)
	if err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	return stats, nil
}

func (cc *CommentController) SoftDelete(c context.Context, id int64) *util.HTTPError {
	if httpErr := cc.mustExist(c, id); httpErr != nil {
		return httpErr
	}
	if err := cc.db.SoftDeleteComment(c, id); err != nil {
		return util.BuildDbHTTPErr(err)
	}
	return nil
}

// HardDelete permanently removes the comment and its replies. Deleting an
// unknown id succeeds.
func (cc *CommentController) HardDelete(c context.Context, id int64) *util.HTTPError {
	if err := cc.db.DeleteComment(c, id); err != nil {
		return util.BuildDbHTTPErr(err)
	}
	return nil
}

func (cc *CommentController) mustExist(c context.Context, id int64) *util.HTTPError {
	comment, err := cc.db.GetCommentById(c, id)
	if err != nil {
		return util.BuildDbHTTPErr(err)
	}
	if comment == nil {
		return util.BuildNotFoundErr("comment")
	}
	return nil
}

func (cc *CommentController) fetch(c context.Context, id int64) (*model.Comment, *util.HTTPError) {
	comment, err := cc.db.GetCommentById(c, id)
	if err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	if comment == nil {
		return nil, util.BuildNotFoundErr("comment")
	}
	return comment, nil
}

func clampPagination(page, limit int) (int, int) {
	if page < 1 {
		page = config.DefaultPage
	}
	if limit <= 0 {
		limit = config.DefaultLimit
	} else if limit > config.MaxLimit {
		limit = config.MaxLimit
	}
	return page, limit
}

func buildPage(comments []*model.Comment, total int64, page, limit int) *model.PaginatedComments {
	if comments == nil {
		comments = []*model.Comment{} // DON'T return nil slice
	}
	return &model.PaginatedComments{
		Items:    comments,
		Metadata: model.BuildPaginationMetadata(total, page, limit),
	}
}
