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

type authRoutes struct {
	profiles *app.Profiles
}

func AddAuthRoutes(group *gin.RouterGroup, userDB db.UserDatabase, identity services.Identity, profiles *app.Profiles) {
	routes := authRoutes{profiles}
	auth := group.Group("/auth")
	auth.POST("/signup", util.HandlerWrapper(routes.signUp, &util.HandlerOpts{SuccessStatus: http.StatusCreated}))
	auth.POST("/signin", util.HandlerWrapper(routes.signIn, &util.HandlerOpts{}))

	session := auth.Group("", middleware.GenAuth(userDB, identity, &middleware.AuthConfig{}))
	session.POST("/signout", util.HandlerWrapper(routes.signOut, &util.HandlerOpts{}))
	session.PUT("/password", util.HandlerWrapper(routes.changePassword, &util.HandlerOpts{}))
	session.DELETE("/account", util.HandlerWrapper(routes.deleteAccount, &util.HandlerOpts{}))
}

type signUpReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	app.ProfileRequest
}

func (ar *authRoutes) signUp(c *gin.Context) (interface{}, *util.HTTPError) {
	var req signUpReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, util.BuildJSONBindHTTPErr(err)
	}
	result, err := ar.profiles.SignUp(c, &app.SignUpRequest{
		Email:          req.Email,
		Password:       req.Password,
		ProfileRequest: req.ProfileRequest,
	})
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return result, nil
}

type signInReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (ar *authRoutes) signIn(c *gin.Context) (interface{}, *util.HTTPError) {
	var req signInReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, util.BuildJSONBindHTTPErr(err)
	}
	result, err := ar.profiles.SignIn(c, req.Email, req.Password)
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return result, nil
}

func (ar *authRoutes) signOut(c *gin.Context) (interface{}, *util.HTTPError) {
	if err := ar.profiles.SignOut(c, middleware.MustGetToken(c).UserId); err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return nil, nil
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func (ar *authRoutes) changePassword(c *gin.Context) (interface{}, *util.HTTPError) {
	var req changePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, util.BuildJSONBindHTTPErr(err)
	}
	if err := ar.profiles.ChangePassword(c, middleware.MustGetToken(c).UserId, req.CurrentPassword, req.NewPassword); err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return nil, nil
}

func (ar *authRoutes) deleteAccount(c *gin.Context) (interface{}, *util.HTTPError) {
	if err := ar.profiles.DeleteAccount(c, middleware.MustGetToken(c).UserId); err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return nil, nil
}
