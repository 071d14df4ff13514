package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/nutriscan/nutriscan-be/model"
	"github.com/nutriscan/nutriscan-be/util"
)

func AddOptionsRoutes(group *gin.RouterGroup) {
	options := group.Group("/options")
	options.GET("", util.HandlerWrapper(getOptions, &util.HandlerOpts{}))
	options.GET("/allergies", util.HandlerWrapper(searchAllergies, &util.HandlerOpts{}))
}

func getOptions(c *gin.Context) (interface{}, *util.HTTPError) {
	return gin.H{
		"avatars":   model.AvatarOptions,
		"allergies": model.AllergyOptions,
	}, nil
}

func searchAllergies(c *gin.Context) (interface{}, *util.HTTPError) {
	return model.FilterAllergyOptions(c.Query("q")), nil
}
