package routes

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nutriscan/nutriscan-be/util"
)

type healthRoutes struct {
	sqlDB *sql.DB
}

func AddHealthCheckRoutes(group *gin.RouterGroup, sqlDB *sql.DB) {
	routes := healthRoutes{sqlDB}
	health := group.Group("/health")
	health.GET("", util.HandlerWrapper(AliveCheck, &util.HandlerOpts{}))
	health.GET("/ready", util.HandlerWrapper(routes.readyCheck, &util.HandlerOpts{}))
}

func AliveCheck(c *gin.Context) (interface{}, *util.HTTPError) {
	return nil, nil
}

func (hr *healthRoutes) readyCheck(c *gin.Context) (interface{}, *util.HTTPError) {
	if err := hr.sqlDB.PingContext(c); err != nil {
		return nil, &util.HTTPError{Status: http.StatusServiceUnavailable, Message: "database unavailable", Err: err}
	}
	return nil, nil
}
