package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/middleware"
	"github.com/nutriscan/nutriscan-be/realtime"
	"github.com/nutriscan/nutriscan-be/services"
	"go.uber.org/zap"
)

type realtimeRoutes struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// AddRealtimeRoutes serves the websocket. Anonymous clients only get public topics.
func AddRealtimeRoutes(group *gin.RouterGroup, userDB db.UserDatabase, identity services.Identity, hub *realtime.Hub, origins []string, log *zap.Logger) {
	allowed := make(map[string]bool, len(origins))
	for _, origin := range origins {
		allowed[origin] = true
	}
	routes := realtimeRoutes{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// native clients send no origin
				return origin == "" || allowed[origin]
			},
		},
		log: log,
	}
	group.GET("/ws",
		middleware.GenAuth(userDB, identity, &middleware.AuthConfig{SessionNotRequired: true}),
		routes.serve)
}

func (rr *realtimeRoutes) serve(c *gin.Context) {
	conn, err := rr.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already wrote the error response
		rr.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	rr.hub.Serve(conn, middleware.GetUserIdMaybe(c))
}
