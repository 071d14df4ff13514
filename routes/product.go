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

type productRoutes struct {
	products *app.Products
}

func AddProductRoutes(group *gin.RouterGroup, userDB db.UserDatabase, identity services.Identity, products *app.Products) {
	routes := productRoutes{products}

	public := group.Group("/products", middleware.GenAuth(userDB, identity, &middleware.AuthConfig{SessionNotRequired: true}))
	public.GET("", util.HandlerWrapper(routes.search, &util.HandlerOpts{}))
	public.GET("/barcode/:barcode", util.HandlerWrapper(routes.scan, &util.HandlerOpts{}))
	public.GET("/:id", util.HandlerWrapper(routes.getProductById, &util.HandlerOpts{}))

	contributors := group.Group("/products",
		middleware.GenAuth(userDB, identity, &middleware.AuthConfig{}),
		middleware.RequireAccount())
	contributors.POST("", util.HandlerWrapper(routes.contribute, &util.HandlerOpts{SuccessStatus: http.StatusCreated}))

	admins := group.Group("/admin/products",
		middleware.GenAuth(userDB, identity, &middleware.AuthConfig{}),
		middleware.RequireAdmin())
	admins.GET("/pending", util.HandlerWrapper(routes.listPending, &util.HandlerOpts{}))
	admins.POST("/:id/approve", util.HandlerWrapper(routes.approve, &util.HandlerOpts{}))
}

func (pr *productRoutes) search(c *gin.Context) (interface{}, *util.HTTPError) {
	limit := util.ParseLimit(c.Query("limit"), app.DefaultSearchLimit, app.MaxSearchLimit)
	return pr.products.Search(c.Query("q"), limit), nil
}

func (pr *productRoutes) scan(c *gin.Context) (interface{}, *util.HTTPError) {
	view, err := pr.products.Scan(c, middleware.GetUserMaybe(c), c.Param("barcode"))
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return view, nil
}

func (pr *productRoutes) getProductById(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	view, err := pr.products.GetProduct(c, middleware.GetUserMaybe(c), id)
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return view, nil
}

func (pr *productRoutes) contribute(c *gin.Context) (interface{}, *util.HTTPError) {
	var req app.ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, util.BuildJSONBindHTTPErr(err)
	}
	product, err := pr.products.Contribute(c, middleware.MustGetUser(c), &req)
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return product, nil
}

func (pr *productRoutes) listPending(c *gin.Context) (interface{}, *util.HTTPError) {
	products, err := pr.products.ListPending(c)
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return products, nil
}

func (pr *productRoutes) approve(c *gin.Context) (interface{}, *util.HTTPError) {
	id, httpErr := util.ParseId(c.Param("id"))
	if httpErr != nil {
		return nil, httpErr
	}
	product, err := pr.products.Approve(c, middleware.MustGetUser(c), id)
	if err != nil {
		return nil, buildAppHTTPErr(err)
	}
	return product, nil
}
