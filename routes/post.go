package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/quillhub/quillhub-be/controllers"
	"github.com/quillhub/quillhub-be/db"
	"github.com/quillhub/quillhub-be/middleware"
	"github.com/quillhub/quillhub-be/model"
	"github.com/quillhub/quillhub-be/util"
)

type postRoutes struct {
	db                db.Database
	commentController *controllers.CommentController
}

func AddPostRoutes(group *gin.RouterGroup, database db.Database, verifier middleware.TokenVerifier) {
	routes := postRoutes{database, controllers.NewCommentController(database)}

	posts := group.Group("/posts")
	posts.GET("/:id", util.HandlerWrapper(routes.getPostById, &util.HandlerOpts{}))
	posts.GET("/:id/comments/stats", util.HandlerWrapper(routes.getCommentStats, &util.HandlerOpts{}))

	admin := group.Group("/posts", middleware.Auth(database, verifier, &middleware.AuthConfig{
		AdminRequired: true,
	}))
	admin.PUT("", util.HandlerWrapper(routes.createPost, &util.HandlerOpts{}))
}

type createPostReq struct {
	Title  string           `json:"title" binding:"required"`
	Status model.PostStatus `json:"status"`
}

func (pr *postRoutes) createPost(c *gin.Context) (interface{}, *util.HTTPError) {
	var req createPostReq
	if err := c.BindJSON(&req); err != nil {
		return nil, util.BuildJSONBindHTTPErr(err)
	}
	status := req.Status
	if status == "" {
		status = model.PostStatusPublished
	}
	if !status.Valid() {
		return nil, util.BuildValidationErr("invalid status")
	}
	id, err := pr.db.CreatePost(c, &db.CreatePost{
		Title:  util.XSSSanitize(req.Title),
		Status: status,
	})
	if err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	return gin.H{"id": id}, nil
}

func (pr *postRoutes) getPostById(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	post, err := pr.db.GetPostById(c, id)
	if err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	if post == nil {
		return nil, util.BuildNotFoundErr("post")
	}
	return post, nil
}

func (pr *postRoutes) getCommentStats(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	return pr.commentController.GetStats(c, id)
}
