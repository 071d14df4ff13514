package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/middleware"
	"github.com/nutriscan/nutriscan-be/model"
	"github.com/nutriscan/nutriscan-be/services"
	"github.com/nutriscan/nutriscan-be/util"
)

type DeviceRegistrar interface {
	RegisterDevice(ctx context.Context, userId string, platform string, token string) (*model.Device, error)
}

type deviceRoutes struct {
	devices DeviceRegistrar
}

// AddDeviceRoutes registers push tokens. devices is nil when push is disabled.
func AddDeviceRoutes(group *gin.RouterGroup, userDB db.UserDatabase, identity services.Identity, devices DeviceRegistrar) {
	routes := deviceRoutes{devices}
	group.Group("/devices",
		middleware.GenAuth(userDB, identity, &middleware.AuthConfig{}),
		middleware.RequireAccount()).
		POST("", util.HandlerWrapper(routes.register, &util.HandlerOpts{SuccessStatus: http.StatusCreated}))
}

type registerDeviceReq struct {
	Platform string `json:"platform" binding:"required"`
	Token    string `json:"token" binding:"required"`
}

func (dr *deviceRoutes) register(c *gin.Context) (interface{}, *util.HTTPError) {
	if dr.devices == nil {
		return nil, util.NewHTTPError(http.StatusServiceUnavailable, "push notifications are not enabled")
	}
	var req registerDeviceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, util.BuildJSONBindHTTPErr(err)
	}
	device, err := dr.devices.RegisterDevice(c, middleware.MustGetUser(c).Id, req.Platform, req.Token)
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return device, nil
}
