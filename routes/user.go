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

type userRoutes struct {
	profiles *app.Profiles
}

func AddUserRoutes(group *gin.RouterGroup, userDB db.UserDatabase, identity services.Identity, profiles *app.Profiles) {
	routes := userRoutes{profiles}
	users := group.Group("/users", middleware.GenAuth(userDB, identity, &middleware.AuthConfig{}))
	users.POST("", util.HandlerWrapper(routes.createProfile, &util.HandlerOpts{SuccessStatus: http.StatusCreated}))

	me := users.Group("/me", middleware.RequireAccount())
	me.GET("", util.HandlerWrapper(routes.getMe, &util.HandlerOpts{}))
	me.PATCH("", util.HandlerWrapper(routes.updateMe, &util.HandlerOpts{}))
	me.PUT("/avatar", util.HandlerWrapper(routes.uploadAvatar, &util.HandlerOpts{}))
}

func (ur *userRoutes) createProfile(c *gin.Context) (interface{}, *util.HTTPError) {
	var req app.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, util.BuildJSONBindHTTPErr(err)
	}
	user, err := ur.profiles.CreateProfile(c, middleware.MustGetToken(c), &req)
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return user, nil
}

func (ur *userRoutes) getMe(c *gin.Context) (interface{}, *util.HTTPError) {
	return middleware.MustGetUser(c), nil
}

func (ur *userRoutes) updateMe(c *gin.Context) (interface{}, *util.HTTPError) {
	var req app.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, util.BuildJSONBindHTTPErr(err)
	}
	user, err := ur.profiles.UpdateProfile(c, middleware.MustGetUser(c).Id, &req)
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return user, nil
}

type uploadAvatarReq struct {
	Image string `json:"image" binding:"required"`
}

func (ur *userRoutes) uploadAvatar(c *gin.Context) (interface{}, *util.HTTPError) {
	var req uploadAvatarReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, util.BuildJSONBindHTTPErr(err)
	}
	user, err := ur.profiles.UploadAvatar(c, middleware.MustGetUser(c).Id, req.Image)
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return user, nil
}
