package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/Alejandro-Bernal-M/tienda-back/internal/http/handlers"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/http/middleware"
)

// RouterDeps carries every constructed handler plus the shared
// middleware config.
type RouterDeps struct {
	Logger  *slog.Logger
	SessCfg middleware.SessionCfg

	Auth         *handlers.AuthHandlers
	Products     *handlers.ProductHandlers
	Categories   *handlers.CategoryHandlers
	HomeSections *handlers.HomeSectionHandlers
	Cart         *handlers.CartHandlers
	Orders       *handlers.OrderHandlers
	Checkout     *handlers.CheckoutHandlers
	Webhooks     *handlers.WebhookHandlers

	// LocalUploadsDir, when set, is served under /uploads for the local
	// storage driver.
	LocalUploadsDir string
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.ErrorHandler(d.Logger))
	r.Use(middleware.SessionMiddleware(d.SessCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if d.LocalUploadsDir != "" {
		r.Static("/uploads", d.LocalUploadsDir)
	}

	api := r.Group("/api")

	// Webhooks are unauthenticated by design; each provider adapter does
	// its own verification.
	api.POST("/webhooks/payments", d.Webhooks.Receive)

	auth := api.Group("/auth")
	{
		auth.POST("/register", d.Auth.Register)
		auth.POST("/login", d.Auth.Login)
		auth.POST("/logout", middleware.RequireAuth(), d.Auth.Logout)
		auth.GET("/me", middleware.RequireAuth(), d.Auth.Me)
	}

	api.GET("/products", d.Products.List)
	api.GET("/products/:id", d.Products.Get)
	api.GET("/categories", d.Categories.List)
	api.GET("/home-sections", d.HomeSections.List)

	api.POST("/checkout", d.Checkout.Create)

	cart := api.Group("/cart", middleware.RequireAuth())
	{
		cart.GET("", d.Cart.Get)
		cart.POST("/items", d.Cart.AddItem)
		cart.PATCH("/items/:itemID", d.Cart.UpdateItem)
		cart.DELETE("/items/:itemID", d.Cart.RemoveItem)
		cart.DELETE("", d.Cart.Clear)
	}

	orders := api.Group("/orders", middleware.RequireAuth())
	{
		orders.GET("", d.Orders.ListMine)
		orders.GET("/:id", d.Orders.GetMine)
	}

	admin := api.Group("/admin", middleware.RequireAuth(), middleware.RequireAdmin())
	{
		admin.POST("/products", d.Products.Create)
		admin.PATCH("/products/:id", d.Products.Update)
		admin.DELETE("/products/:id", d.Products.Delete)
		admin.POST("/products/:id/images", d.Products.UploadImage)
		admin.DELETE("/products/:id/images/:imageID", d.Products.DeleteImage)

		admin.POST("/categories", d.Categories.Create)
		admin.PATCH("/categories/:id", d.Categories.Update)
		admin.DELETE("/categories/:id", d.Categories.Delete)

		admin.POST("/home-sections", d.HomeSections.Create)
		admin.DELETE("/home-sections/:id", d.HomeSections.Delete)

		admin.GET("/orders", d.Orders.AdminList)
		admin.GET("/orders/:id", d.Orders.AdminGet)
		admin.POST("/orders/:id/transition", d.Orders.AdminTransition)
	}

	return r
}
