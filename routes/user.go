package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/quillhub/quillhub-be/db"
	"github.com/quillhub/quillhub-be/middleware"
	"github.com/quillhub/quillhub-be/model"
	"github.com/quillhub/quillhub-be/util"
)

type userRoutes struct {
	db db.Database
}

func AddUserRoutes(group *gin.RouterGroup, database db.Database, verifier middleware.TokenVerifier) {
	routes := userRoutes{database}
	users := group.Group("/users", middleware.Auth(database, verifier, &middleware.AuthConfig{
		ProfileNotRequired: true,
	}))
	users.PUT("", util.HandlerWrapper(routes.createUser, &util.HandlerOpts{}))
}

type createUserReq struct {
	DisplayName string `json:"displayName" binding:"required"`
}

func (ur userRoutes) createUser(c *gin.Context) (interface{}, *util.HTTPError) {
	var req createUserReq
	if err := c.BindJSON(&req); err != nil {
		return nil, util.BuildJSONBindHTTPErr(err)
	}
	userId := middleware.GetToken(c).UID
	user := &model.User{
		Id:          userId,
		DisplayName: util.XSSSanitize(req.DisplayName),
		Avatar:      util.Avatar(userId),
	}
	if err := ur.db.CreateUser(c, user); err != nil {
		return nil, util.BuildDbHTTPErr(err)
	}
	return user, nil
}
