package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vintagebeauty/storefront-backend/config"
	"github.com/vintagebeauty/storefront-backend/internal/app/controller"
	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/internal/middleware"
)

type Router struct {
	authController      *controller.AuthController
	productController   *controller.ProductController
	categoryController  *controller.CategoryController
	heroSlideController *controller.HeroSlideController
	orderController     *controller.OrderController
	uploadController    *controller.UploadController
	authMiddleware      *middleware.AuthMiddleware
	config              *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	productController *controller.ProductController,
	categoryController *controller.CategoryController,
	heroSlideController *controller.HeroSlideController,
	orderController *controller.OrderController,
	uploadController *controller.UploadController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:      authController,
		productController:   productController,
		categoryController:  categoryController,
		heroSlideController: heroSlideController,
		orderController:     orderController,
		uploadController:    uploadController,
		authMiddleware:      authMiddleware,
		config:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Vintage Beauty API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authenticated := r.authMiddleware.Authenticate()
	admin := []gin.HandlerFunc{authenticated, r.authMiddleware.RequireRole(model.RoleAdmin)}

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/logout", authenticated, r.authController.Logout)
			auth.GET("/me", authenticated, r.authController.GetMe)
			auth.PUT("/me", authenticated, r.authController.UpdateMe)
		}

		products := v1.Group("/products")
		{
			products.GET("", r.productController.ListProducts)
			products.GET("/slug/:slug", r.productController.GetProductBySlug)
			products.GET("/:id", r.productController.GetProductByID)

			managed := products.Group("", admin...)
			managed.POST("", r.productController.CreateProduct)
			managed.PUT("/:id", r.productController.UpdateProduct)
			managed.DELETE("/:id", r.productController.DeleteProduct)
			managed.POST("/:id/reprice", r.productController.RepriceProduct)
			managed.POST("/import", r.productController.ImportProducts)
			managed.GET("/export", r.productController.ExportProducts)
			managed.GET("/audit/gift-sets", r.productController.AuditGiftSets)
		}

		categories := v1.Group("/categories")
		{
			categories.GET("", r.authMiddleware.OptionalAuthenticate(), r.categoryController.ListCategories)
			categories.GET("/:id", r.categoryController.GetCategory)

			managed := categories.Group("", admin...)
			managed.POST("", r.categoryController.CreateCategory)
			managed.PUT("/:id", r.categoryController.UpdateCategory)
			managed.DELETE("/:id", r.categoryController.DeleteCategory)
		}

		slides := v1.Group("/hero-slides")
		{
			slides.GET("", r.heroSlideController.ListActiveSlides)

			managed := slides.Group("", admin...)
			managed.GET("/all", r.heroSlideController.ListAllSlides)
			managed.GET("/:id", r.heroSlideController.GetSlide)
			managed.POST("", r.heroSlideController.CreateSlide)
			managed.PUT("/:id", r.heroSlideController.UpdateSlide)
			managed.DELETE("/:id", r.heroSlideController.DeleteSlide)
		}

		orders := v1.Group("/orders")
		{
			orders.POST("", r.authMiddleware.OptionalAuthenticate(), r.orderController.CreateOrder)
			orders.GET("/track/:number", r.orderController.TrackOrder)
			orders.GET("", authenticated, r.orderController.GetMyOrders)

			managed := orders.Group("", admin...)
			managed.GET("/all", r.orderController.ListAllOrders)
			managed.PUT("/:id/status", r.orderController.UpdateOrderStatus)
		}

		upload := v1.Group("/upload", admin...)
		{
			upload.POST("/presigned-url", r.uploadController.GeneratePresignedURL)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
