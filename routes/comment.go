package routes

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quillhub/quillhub-be/controllers"
	"github.com/quillhub/quillhub-be/db"
	"github.com/quillhub/quillhub-be/middleware"
	"github.com/quillhub/quillhub-be/model"
	"github.com/quillhub/quillhub-be/util"
)

type commentRoutes struct {
	controller *controllers.CommentController
}

func AddCommentRoutes(group *gin.RouterGroup, database db.Database, verifier middleware.TokenVerifier) {
	routes := commentRoutes{controllers.NewCommentController(database)}

	public := group.Group("/comments", middleware.Auth(database, verifier, &middleware.AuthConfig{
		SessionNotRequired: true,
		ProfileNotRequired: true,
	}))
	public.GET("", util.HandlerWrapper(routes.findAll, &util.HandlerOpts{}))
	public.GET("/:id", util.HandlerWrapper(routes.findOne, &util.HandlerOpts{}))
	public.GET("/:id/replies", util.HandlerWrapper(routes.getReplies, &util.HandlerOpts{}))

	authed := group.Group("/comments", middleware.Auth(database, verifier, &middleware.AuthConfig{}))
	authed.PUT("", util.HandlerWrapper(routes.create, &util.HandlerOpts{}))
	authed.PUT("/:id", util.HandlerWrapper(routes.update, &util.HandlerOpts{}))
	authed.POST("/:id/like", util.HandlerWrapper(routes.like, &util.HandlerOpts{}))
	authed.POST("/:id/dislike", util.HandlerWrapper(routes.dislike, &util.HandlerOpts{}))
	authed.POST("/:id/flag", util.HandlerWrapper(routes.flag, &util.HandlerOpts{}))
	authed.DELETE("/:id", util.HandlerWrapper(routes.softDelete, &util.HandlerOpts{}))

	admin := group.Group("/comments", middleware.Auth(database, verifier, &middleware.AuthConfig{
		AdminRequired: true,
	}))
	admin.POST("/:id/moderate", util.HandlerWrapper(routes.moderate, &util.HandlerOpts{}))
	admin.POST("/:id/pin", util.HandlerWrapper(routes.pin, &util.HandlerOpts{}))
	admin.POST("/:id/highlight", util.HandlerWrapper(routes.highlight, &util.HandlerOpts{}))
	admin.POST("/:id/staff-response", util.HandlerWrapper(routes.markAsStaffResponse, &util.HandlerOpts{}))
	admin.DELETE("/:id/hard", util.HandlerWrapper(routes.hardDelete, &util.HandlerOpts{}))

	// a static sibling of /comments/:id would collide with the wildcard, so
	// bulk moderation lives on its own prefix
	moderation := group.Group("/moderation", middleware.Auth(database, verifier, &middleware.AuthConfig{
		AdminRequired: true,
	}))
	moderation.POST("/comments", util.HandlerWrapper(routes.bulkModerate, &util.HandlerOpts{}))
}

type createCommentReq struct {
	PostId      int64           `json:"postId" binding:"required"`
	Content     string          `json:"content" binding:"required"`
	ParentId    *int64          `json:"parentId"`
	Attachments json.RawMessage `json:"attachments"`
	Mentions    []string        `json:"mentions"`
	Metadata    json.RawMessage `json:"metadata"`
}

func (cr *commentRoutes) create(c *gin.Context) (interface{}, *util.HTTPError) {
	var req createCommentReq
	if err := c.BindJSON(&req); err != nil {
		return nil, util.BuildJSONBindHTTPErr(err)
	}
	return cr.controller.Create(c, &db.CreateComment{
		PostId:      req.PostId,
		AuthorId:    middleware.GetUser(c).Id,
		ParentId:    req.ParentId,
		Content:     util.XSSSanitize(req.Content),
		Attachments: req.Attachments,
		Mentions:    req.Mentions,
		Metadata:    req.Metadata,
		IpAddress:   c.ClientIP(),
	})
}

func (cr *commentRoutes) findAll(c *gin.Context) (interface{}, *util.HTTPError) {
	query, httpErr := parseCommentsQuery(c)
	if httpErr != nil {
		return nil, httpErr
	}
	return cr.controller.FindAll(c, query)
}

func (cr *commentRoutes) findOne(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	return cr.controller.FindOne(c, id)
}

func (cr *commentRoutes) getReplies(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	page, limit := parsePageParams(c)
	return cr.controller.GetReplies(c, id, page, limit)
}

type updateCommentReq struct {
	Content     *string         `json:"content"`
	Attachments json.RawMessage `json:"attachments"`
	Mentions    []string        `json:"mentions"`
	Metadata    json.RawMessage `json:"metadata"`
}

func (cr *commentRoutes) update(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	var req updateCommentReq
	if err := c.BindJSON(&req); err != nil {
		return nil, util.BuildJSONBindHTTPErr(err)
	}
	if req.Content != nil {
		sanitized := util.XSSSanitize(*req.Content)
		req.Content = &sanitized
	}
	return cr.controller.Update(c, id, &db.UpdateComment{
		EditorId:    middleware.GetUser(c).Id,
		Content:     req.Content,
		Attachments: req.Attachments,
		Mentions:    req.Mentions,
		Metadata:    req.Metadata,
	})
}

func (cr *commentRoutes) like(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	return cr.controller.Like(c, id, middleware.GetUser(c).Id)
}

func (cr *commentRoutes) dislike(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	return cr.controller.Dislike(c, id, middleware.GetUser(c).Id)
}

type flagCommentReq struct {
	Reason *string `json:"reason"`
}

func (cr *commentRoutes) flag(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	var req flagCommentReq
	if err := c.BindJSON(&req); err != nil {
		return nil, util.BuildJSONBindHTTPErr(err)
	}
	return cr.controller.Flag(c, id, middleware.GetUser(c).Id, req.Reason)
}

type moderateCommentReq struct {
	Status model.CommentStatus `json:"status" binding:"required"`
	Reason *string             `json:"reason"`
}

func (cr *commentRoutes) moderate(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	var req moderateCommentReq
	if err := c.BindJSON(&req); err != nil {
		return nil, util.BuildJSONBindHTTPErr(err)
	}
	return cr.controller.Moderate(c, id, req.Status, middleware.GetUser(c).Id, req.Reason)
}

type bulkModerateReq struct {
	Ids    []int64             `json:"ids" binding:"required"`
	Status model.CommentStatus `json:"status" binding:"required"`
}

func (cr *commentRoutes) bulkModerate(c *gin.Context) (interface{}, *util.HTTPError) {
	var req bulkModerateReq
	if err := c.BindJSON(&req); err != nil {
		return nil, util.BuildJSONBindHTTPErr(err)
	}
	if httpErr := cr.controller.BulkModerate(c, req.Ids, req.Status, middleware.GetUser(c).Id); httpErr != nil {
		return nil, httpErr
	}
	return nil, nil
}

func (cr *commentRoutes) pin(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	return cr.controller.Pin(c, id)
}

func (cr *commentRoutes) highlight(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	return cr.controller.Highlight(c, id)
}

func (cr *commentRoutes) markAsStaffResponse(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	return cr.controller.MarkAsStaffResponse(c, id)
}

func (cr *commentRoutes) softDelete(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	if httpErr := cr.controller.SoftDelete(c, id); httpErr != nil {
		return nil, httpErr
	}
	return nil, nil
}

func (cr *commentRoutes) hardDelete(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	if httpErr := cr.controller.HardDelete(c, id); httpErr != nil {
		return nil, httpErr
	}
	return nil, nil
}

func parseCommentsQuery(c *gin.Context) (*db.CommentsQuery, *util.HTTPError) {
	query := &db.CommentsQuery{}
	query.Page, query.Limit = parsePageParams(c)

	if val := c.Query("status"); val != "" {
		status := model.CommentStatus(val)
		if !status.Valid() {
			return nil, util.BuildValidationErr("invalid status")
		}
		query.Status = &status
	}
	if val := c.Query("authorId"); val != "" {
		query.AuthorId = &val
	}
	if val := c.Query("postId"); val != "" {
		postId, httpErr := util.ParseId(val)
		if httpErr != nil {
			return nil, httpErr
		}
		query.PostId = &postId
	}
	var httpErr *util.HTTPError
	if query.IsReply, httpErr = parseBoolParam(c, "isReply"); httpErr != nil {
		return nil, httpErr
	}
	if query.IsFlagged, httpErr = parseBoolParam(c, "isFlagged"); httpErr != nil {
		return nil, httpErr
	}
	if query.IsPinned, httpErr = parseBoolParam(c, "isPinned"); httpErr != nil {
		return nil, httpErr
	}
	if query.IsHighlighted, httpErr = parseBoolParam(c, "isHighlighted"); httpErr != nil {
		return nil, httpErr
	}
	if val := c.Query("fromDate"); val != "" {
		fromDate, err := util.ParseTime(val)
		if err != nil {
			return nil, util.BuildValidationErr("fromDate malformed")
		}
		query.FromDate = &fromDate
	}
	if val := c.Query("toDate"); val != "" {
		toDate, err := util.ParseTime(val)
		if err != nil {
			return nil, util.BuildValidationErr("toDate malformed")
		}
		query.ToDate = &toDate
	}
	return query, nil
}

func parsePageParams(c *gin.Context) (page int, limit int) {
	page, _ = strconv.Atoi(c.Query("page"))
	limit, _ = strconv.Atoi(c.Query("limit"))
	return page, limit
}

func parseBoolParam(c *gin.Context, name string) (*bool, *util.HTTPError) {
	val := c.Query(name)
	if val == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return nil, util.BuildValidationErr(name + " malformed")
	}
	return &parsed, nil
}
