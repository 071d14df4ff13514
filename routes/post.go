package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nutriscan/nutriscan-be/app"
	"github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/middleware"
	"github.com/nutriscan/nutriscan-be/services"
	"github.com/nutriscan/nutriscan-be/util"
)

type postRoutes struct {
	community *app.Community
}

func AddPostRoutes(group *gin.RouterGroup, userDB db.UserDatabase, identity services.Identity, community *app.Community) {
	routes := postRoutes{community}

	public := group.Group("/posts", middleware.GenAuth(userDB, identity, &middleware.AuthConfig{SessionNotRequired: true}))
	public.GET("/:id", util.HandlerWrapper(routes.getPostById, &util.HandlerOpts{}))
	public.GET("/:id/comments", util.HandlerWrapper(routes.getComments, &util.HandlerOpts{}))

	posts := group.Group("/posts",
		middleware.GenAuth(userDB, identity, &middleware.AuthConfig{}),
		middleware.RequireAccount())
	posts.POST("", util.HandlerWrapper(routes.createPost, &util.HandlerOpts{SuccessStatus: http.StatusCreated}))
	posts.DELETE("/:id", util.HandlerWrapper(routes.deletePost, &util.HandlerOpts{}))
	posts.PUT("/:id/like", util.HandlerWrapper(routes.likePost, &util.HandlerOpts{}))
	posts.DELETE("/:id/like", util.HandlerWrapper(routes.unlikePost, &util.HandlerOpts{}))
	posts.POST("/:id/comments", util.HandlerWrapper(routes.createComment, &util.HandlerOpts{SuccessStatus: http.StatusCreated}))
	posts.DELETE("/:id/comments/:commentId", util.HandlerWrapper(routes.deleteComment, &util.HandlerOpts{}))
}

func (pr *postRoutes) createPost(c *gin.Context) (interface{}, *util.HTTPError) {
	var req app.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, util.BuildJSONBindHTTPErr(err)
	}
	post, err := pr.community.CreatePost(c, middleware.MustGetUser(c), &req)
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return post, nil
}

func (pr *postRoutes) getPostById(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	post, err := pr.community.GetPost(c, id, middleware.GetUserIdMaybe(c))
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return post, nil
}

func (pr *postRoutes) deletePost(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	if err := pr.community.DeletePost(c, middleware.MustGetUser(c), id); err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return nil, nil
}

func (pr *postRoutes) likePost(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	result, err := pr.community.LikePost(c, middleware.MustGetUser(c), id)
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return result, nil
}

func (pr *postRoutes) unlikePost(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	result, err := pr.community.UnlikePost(c, middleware.MustGetUser(c), id)
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return result, nil
}

func (pr *postRoutes) getComments(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	comments, err := pr.community.GetComments(c, id)
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return comments, nil
}

func (pr *postRoutes) createComment(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	var req app.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, util.BuildJSONBindHTTPErr(err)
	}
	comment, err := pr.community.CreateComment(c, middleware.MustGetUser(c), id, &req)
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return comment, nil
}

func (pr *postRoutes) deleteComment(c *gin.Context) (interface{}, *util.HTTPError) {
	postId, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	commentId, httpErr := util.ParseId(c.Param("commentId"))
	if httpErr != nil {
		return nil, httpErr
	}
	if err := pr.community.DeleteComment(c, middleware.MustGetUser(c), postId, commentId); err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return nil, nil
}
