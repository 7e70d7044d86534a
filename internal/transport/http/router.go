package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shahid0mer/shopease/internal/handlers"
	mwauth "github.com/shahid0mer/shopease/internal/middleware/auth"
	"github.com/shahid0mer/shopease/internal/models"
)

type Deps struct {
	DB             *gorm.DB
	JWTSecret      []byte
	AuthHandler    *handlers.AuthHandler
	AddressHandler *handlers.AddressHandler
	ProductHandler *handlers.ProductHandler
	CartHandler    *handlers.CartHandler
	OrderHandler   *handlers.OrderHandler
	PaymentHandler *handlers.PaymentHandler
	SearchHandler  *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	anyRole := mwauth.RequireRoles(d.DB, d.JWTSecret)
	shopper := mwauth.RequireRoles(d.DB, d.JWTSecret, models.RoleUser, models.RoleSeller)
	userOnly := mwauth.RequireRoles(d.DB, d.JWTSecret, models.RoleUser)
	seller := mwauth.RequireRoles(d.DB, d.JWTSecret, models.RoleSeller, models.RoleAdmin)

	user := e.Group("/api/user")
	user.POST("/register", d.AuthHandler.Register)
	user.POST("/login", d.AuthHandler.Login)
	user.POST("/logout", d.AuthHandler.Logout)
	user.POST("/forgot-password", d.AuthHandler.ForgotPassword)
	user.POST("/reset-password", d.AuthHandler.ResetPassword)
	user.GET("/is-auth", d.AuthHandler.IsAuth, anyRole)
	user.GET("/profile", d.AuthHandler.Profile, anyRole)
	user.POST("/become-seller", d.AuthHandler.BecomeSeller, userOnly)

	address := e.Group("/api/address", shopper)
	address.POST("/add", d.AddressHandler.Add)
	address.GET("/list", d.AddressHandler.List)
	address.PUT("/:id", d.AddressHandler.Update)
	address.DELETE("/:id", d.AddressHandler.Delete)
	address.PUT("/:id/default", d.AddressHandler.SetDefault)

	product := e.Group("/api/product")
	product.GET("/list", d.ProductHandler.List)
	product.GET("/search", d.SearchHandler.Search)
	product.GET("/:id", d.ProductHandler.Get)
	product.GET("/:id/effective-price", d.ProductHandler.EffectivePrice)
	product.POST("/add", d.ProductHandler.Create, seller)
	product.PUT("/:id", d.ProductHandler.Update, seller)
	product.PATCH("/:id/stock", d.ProductHandler.SetStock, seller)
	product.DELETE("/:id", d.ProductHandler.Delete, seller)
	e.GET("/api/seller/products", d.ProductHandler.SellerList, seller)

	cart := e.Group("/api/cart", shopper)
	cart.GET("", d.CartHandler.Get)
	cart.POST("/add", d.CartHandler.Add)
	cart.PUT("/update/:itemId", d.CartHandler.UpdateQuantity)
	cart.DELETE("/remove/:itemId", d.CartHandler.Remove)

	order := e.Group("/api/order")
	order.POST("/cod", d.OrderHandler.PlaceCOD, userOnly)
	order.GET("/user", d.OrderHandler.ListUser, shopper)
	order.GET("/seller", d.OrderHandler.ListSeller, seller)
	order.PUT("/:id/status", d.OrderHandler.UpdateStatus, seller)
	order.PUT("/:id/cancel", d.OrderHandler.Cancel, shopper)

	payment := e.Group("/api/payment", userOnly)
	payment.POST("/create", d.PaymentHandler.CreateIntent)
	payment.POST("/cart", d.PaymentHandler.CreateCartIntent)
	payment.POST("/verify", d.PaymentHandler.Verify)

	e.GET("/api/key/razorkey", d.PaymentHandler.RazorKey, shopper)
}
