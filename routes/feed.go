package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/nutriscan/nutriscan-be/app"
	"github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/middleware"
	"github.com/nutriscan/nutriscan-be/services"
	"github.com/nutriscan/nutriscan-be/util"
)

type feedRoutes struct {
	community *app.Community
}

func AddFeedRoutes(group *gin.RouterGroup, userDB db.UserDatabase, identity services.Identity, community *app.Community) {
	routes := feedRoutes{community}
	feeds := group.Group("/feeds",
		middleware.GenAuth(userDB, identity, &middleware.AuthConfig{SessionNotRequired: true}))
	feeds.POST("", util.HandlerWrapper(routes.getFeed, &util.HandlerOpts{}))
}

// getFeedReq starts a feed from orderBy and byUser, or continues one from the cursor
// returned with the previous page.
type getFeedReq struct {
	OrderBy app.PostCursorType     `json:"orderBy"`
	ByUser  string                 `json:"byUser"`
	Cursor  *app.TaggedUnionCursor `json:"cursor"`
}

func (fr *feedRoutes) getFeed(c *gin.Context) (interface{}, *util.HTTPError) {
	var req getFeedReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, util.BuildJSONBindHTTPErr(err)
	}
	cursor := req.Cursor
	if cursor == nil {
		var err error
		if cursor, err = app.NewTaggedUnionCursor(req.OrderBy, req.ByUser); err != nil {
			return nil, buildAppHTTPErr(err)
		}
	}
	page, err := fr.community.Feed(c, middleware.GetUserIdMaybe(c), cursor)
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return page, nil
}
