package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/nutriscan/nutriscan-be/app"
	"github.com/nutriscan/nutriscan-be/db"
	"github.com/nutriscan/nutriscan-be/realtime"
	"github.com/nutriscan/nutriscan-be/services"
	"go.uber.org/zap"
)

type Deps struct {
	DB        db.Database
	Identity  services.Identity
	Profiles  *app.Profiles
	Community *app.Community
	Products  *app.Products
	Notifier  *app.Notifier
	// Devices is nil when push is disabled
	Devices DeviceRegistrar
	Hub     *realtime.Hub
	Origins []string
	Log     *zap.Logger
}

// Register mounts every route group on group.
func Register(group *gin.RouterGroup, deps *Deps) {
	AddHealthCheckRoutes(group, deps.DB.GetSQLDB())
	AddOptionsRoutes(group)
	AddAuthRoutes(group, deps.DB, deps.Identity, deps.Profiles)
	AddUserRoutes(group, deps.DB, deps.Identity, deps.Profiles)
	AddPostRoutes(group, deps.DB, deps.Identity, deps.Community)
	AddFeedRoutes(group, deps.DB, deps.Identity, deps.Community)
	AddProductRoutes(group, deps.DB, deps.Identity, deps.Products)
	AddNotificationRoutes(group, deps.DB, deps.Identity, deps.Notifier)
	AddDeviceRoutes(group, deps.DB, deps.Identity, deps.Devices)
	AddRealtimeRoutes(group, deps.DB, deps.Identity, deps.Hub, deps.Origins, deps.Log)
}
