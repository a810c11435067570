// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/checkout"
	"github.com/your-org/marketplace-backend/internal/domain/notification"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/payment"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/domain/review"
	"github.com/your-org/marketplace-backend/internal/domain/shop"
	"github.com/your-org/marketplace-backend/internal/domain/user"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/handlers"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
	"github.com/your-org/marketplace-backend/internal/pkg/auth"
	"github.com/your-org/marketplace-backend/internal/pkg/pdf"
	"gorm.io/gorm"
)

// SetupRoutes wires services, handlers and route groups onto the API group
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config, gateway payment.Gateway, logger *logrus.Logger) {
	jwtManager := auth.NewJWTManager(cfg)
	revocation := auth.NewRevocationStore(redisClient)

	userService := user.NewService(db, cfg, jwtManager, revocation, logger)
	addressService := user.NewAddressService(db)
	shopService := shop.NewService(db, cfg, gateway, logger)
	productService := product.NewService(db, cfg, gateway)
	categoryService := product.NewCategoryService(db)
	cartService := cart.NewService(db, cfg)
	orderService := order.NewService(db, cfg, logger)
	checkoutService := checkout.NewService(db, cfg, gateway, logger)
	reconciler := payment.NewReconciler(db, cfg, gateway, logger)
	notificationService := notification.NewService(db, logger)
	reviewService := review.NewService(db)
	pdfService := pdf.NewService(cfg)

	authHandler := handlers.NewAuthHandler(userService)
	addressHandler := handlers.NewAddressHandler(addressService)
	shopHandler := handlers.NewShopHandler(shopService)
	productHandler := handlers.NewProductHandler(productService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	cartHandler := handlers.NewCartHandler(cartService)
	orderHandler := handlers.NewOrderHandler(orderService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	webhookHandler := handlers.NewWebhookHandler(reconciler)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	invoiceHandler := handlers.NewInvoiceHandler(orderService, pdfService)

	authenticated := middleware.AuthMiddleware(jwtManager, revocation)

	// Auth
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.RefreshToken)

		protected := authGroup.Group("")
		protected.Use(authenticated)
		{
			protected.POST("/logout", authHandler.Logout)
			protected.GET("/profile", authHandler.GetProfile)
			protected.PUT("/profile", authHandler.UpdateProfile)
		}
	}

	// Address book
	addresses := rg.Group("/addresses")
	addresses.Use(authenticated)
	{
		addresses.GET("", addressHandler.ListAddresses)
		addresses.POST("", addressHandler.CreateAddress)
		addresses.PUT("/:id", addressHandler.UpdateAddress)
		addresses.DELETE("/:id", addressHandler.DeleteAddress)
	}

	// Public catalog
	products := rg.Group("/products")
	{
		products.GET("", productHandler.ListProducts)
		products.GET("/:id", productHandler.GetProduct)
		products.GET("/:id/reviews", reviewHandler.ListProductReviews)
	}

	categories := rg.Group("/categories")
	{
		categories.GET("", categoryHandler.ListCategories)
		categories.GET("/:slug", categoryHandler.GetCategory)
	}

	// Shops: application is open to any authenticated user, the rest of the
	// seller surface requires the seller role.
	shops := rg.Group("/shops")
	{
		shops.GET("/:id", shopHandler.GetShop)

		shops.POST("", authenticated, shopHandler.CreateShop)
		shops.GET("/me", authenticated, shopHandler.GetMyShop)

		seller := shops.Group("")
		seller.Use(authenticated, middleware.SellerMiddleware())
		{
			seller.POST("/me/onboarding", shopHandler.StartOnboarding)
			seller.GET("/me/onboarding", shopHandler.GetOnboardingStatus)
		}
	}

	// Seller catalog management
	sellerProducts := rg.Group("/seller/products")
	sellerProducts.Use(authenticated, middleware.SellerMiddleware())
	{
		sellerProducts.GET("", productHandler.ListMyProducts)
		sellerProducts.POST("", productHandler.CreateProduct)
		sellerProducts.GET("/low-stock", productHandler.ListLowStock)
		sellerProducts.GET("/:id", productHandler.GetMyProduct)
		sellerProducts.PUT("/:id", productHandler.UpdateProduct)
		sellerProducts.DELETE("/:id", productHandler.DeleteProduct)
	}

	// Seller order management
	sellerOrders := rg.Group("/seller/orders")
	sellerOrders.Use(authenticated, middleware.SellerMiddleware())
	{
		sellerOrders.GET("", orderHandler.ListShopOrders)
		sellerOrders.PUT("/:id/status", orderHandler.UpdateStatus)
	}

	// Cart
	cartGroup := rg.Group("/cart")
	cartGroup.Use(authenticated)
	{
		cartGroup.GET("", cartHandler.GetCart)
		cartGroup.POST("/items", cartHandler.AddItem)
		cartGroup.PUT("/items/:id", cartHandler.UpdateItem)
		cartGroup.DELETE("/items/:id", cartHandler.RemoveItem)
		cartGroup.DELETE("", cartHandler.ClearCart)
	}

	// Orders
	orders := rg.Group("/orders")
	orders.Use(authenticated)
	{
		orders.POST("", orderHandler.PlaceOrder)
		orders.GET("", orderHandler.ListOrders)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.PUT("/:id/cancel", orderHandler.CancelOrder)
		orders.GET("/:id/invoice", invoiceHandler.DownloadInvoice)
	}

	// Checkout
	checkoutGroup := rg.Group("/checkout")
	checkoutGroup.Use(authenticated)
	{
		checkoutGroup.POST("/sessions", checkoutHandler.CreateSession)
	}

	// Webhooks: no auth middleware, verification is by signature over the
	// raw body.
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/stripe", webhookHandler.HandleStripeWebhook)
	}

	// Notifications
	notifications := rg.Group("/notifications")
	notifications.Use(authenticated)
	{
		notifications.GET("", notificationHandler.ListNotifications)
		notifications.PUT("/:id/read", notificationHandler.MarkRead)
		notifications.PUT("/read-all", notificationHandler.MarkAllRead)
	}

	// Reviews
	reviews := rg.Group("/reviews")
	reviews.Use(authenticated)
	{
		reviews.POST("", reviewHandler.CreateReview)
		reviews.DELETE("/:id", reviewHandler.DeleteReview)
	}

	// Admin
	admin := rg.Group("/admin")
	admin.Use(authenticated, middleware.AdminMiddleware())
	{
		adminShops := admin.Group("/shops")
		{
			adminShops.GET("/pending", shopHandler.ListPendingShops)
			adminShops.PUT("/:id/approve", shopHandler.ApproveShop)
			adminShops.PUT("/:id/reject", shopHandler.RejectShop)
			adminShops.PUT("/:id/suspend", shopHandler.SuspendShop)
		}

		adminProducts := admin.Group("/products")
		{
			adminProducts.GET("/pending", productHandler.ListPendingProducts)
			adminProducts.PUT("/:id/approve", productHandler.ApproveProduct)
			adminProducts.PUT("/:id/reject", productHandler.RejectProduct)
		}

		adminCategories := admin.Group("/categories")
		{
			adminCategories.POST("", categoryHandler.CreateCategory)
			adminCategories.DELETE("/:id", categoryHandler.DeleteCategory)
		}

		adminOrders := admin.Group("/orders")
		{
			adminOrders.PUT("/:id/status", orderHandler.UpdateStatus)
			adminOrders.DELETE("/:id", orderHandler.DeleteOrder)
		}

		adminUsers := admin.Group("/users")
		{
			adminUsers.PUT("/:id/deactivate", authHandler.DeactivateUser)
		}
	}
}
