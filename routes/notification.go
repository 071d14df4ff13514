package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nutriscan/nutriscan-be/app"
	"github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/middleware"
	"github.com/nutriscan/nutriscan-be/services"
	"github.com/nutriscan/nutriscan-be/util"
)

type notificationRoutes struct {
	notifier *app.Notifier
}

func AddNotificationRoutes(group *gin.RouterGroup, userDB db.UserDatabase, identity services.Identity, notifier *app.Notifier) {
	routes := notificationRoutes{notifier}
	notifications := group.Group("/notifications",
		middleware.GenAuth(userDB, identity, &middleware.AuthConfig{}),
		middleware.RequireAccount())
	notifications.GET("", util.HandlerWrapper(routes.list, &util.HandlerOpts{}))
	notifications.GET("/unread", util.HandlerWrapper(routes.unreadCount, &util.HandlerOpts{}))
	notifications.POST("/read", util.HandlerWrapper(routes.markAllRead, &util.HandlerOpts{}))
	notifications.POST("/:id/read", util.HandlerWrapper(routes.markRead, &util.HandlerOpts{}))
}

// list groups by day in the zone named by ?tz= (an IANA name), UTC by default.
func (nr *notificationRoutes) list(c *gin.Context) (interface{}, *util.HTTPError) {
	loc := time.UTC
	if tz := c.Query("tz"); tz != "" {
		var err error
		if loc, err = time.LoadLocation(tz); err != nil {
			return nil, &util.HTTPError{Status: http.StatusBadRequest, Message: "unknown time zone", Err: err}
		}
	}
	sections, err := nr.notifier.List(c, middleware.MustGetUser(c).Id, loc)
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return sections, nil
}

func (nr *notificationRoutes) unreadCount(c *gin.Context) (interface{}, *util.HTTPError) {
	count, err := nr.notifier.UnreadCount(c, middleware.MustGetUser(c).Id)
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return gin.H{"unread": count}, nil
}

func (nr *notificationRoutes) markRead(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	if err := nr.notifier.MarkRead(c, middleware.MustGetUser(c).Id, id); err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return nil, nil
}

func (nr *notificationRoutes) markAllRead(c *gin.Context) (interface{}, *util.HTTPError) {
	marked, err := nr.notifier.MarkAllRead(c, middleware.MustGetUser(c).Id)
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return gin.H{"marked": marked}, nil
}
