package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/food_delivery/internal/fakeapi"
	"github.com/Skotchmaster/food_delivery/internal/models"
	"github.com/Skotchmaster/food_delivery/pkg/logging"
	authmw "github.com/Skotchmaster/food_delivery/pkg/middleware/auth"
	loggingmw "github.com/Skotchmaster/food_delivery/pkg/middleware/logging"
)

type Deps struct {
	API    *fakeapi.Server
	Logger *slog.Logger
}

// New returns an echo instance serving d.API with the standard middleware.
func New(d *Deps) *echo.Echo {
	log := d.Logger
	if log == nil {
		log = logging.Discard()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.Secure(), loggingmw.RequestLogger(log))

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	api := d.API
	bearer := authmw.NewBearer(api)

	auth := e.Group("/auth")

	auth.POST("/register", api.Register)
	auth.POST("/login", api.Login)
	auth.GET("/logout", api.Logout, bearer.RequireAuth)
	auth.POST("/refresh-token", api.RefreshToken)
	auth.POST("/reset-password", api.ResetPassword, bearer.RequireAuth)
	auth.POST("/forgot-password", api.ForgotPassword)
	auth.POST("/reset-forgot-password", api.ResetForgotPassword)

	user := e.Group("/user")

	user.GET("", api.ListUsers, bearer.RequireRole(models.RoleAdmin))
	user.GET("/:id", api.GetUser, bearer.RequireAuth)
	user.PUT("/:id", api.UpdateUser, bearer.RequireAuth)
	user.DELETE("/:id", api.DeleteUser, bearer.RequireAuth)
	user.GET("/:id/get-location", api.UserLocation)

	restaurant := e.Group("/restaurant")

	restaurant.POST("", api.CreateRestaurant, bearer.RequireRole(models.RoleRestaurantAdmin))
	restaurant.GET("/:restaurant_id", api.GetRestaurant)
	restaurant.PUT("/:restaurant_id", api.UpdateRestaurant, bearer.RequireAuth)
	restaurant.GET("", api.ListRestaurants)
	restaurant.GET("/:restaurant_id/menu", api.Menu)
	restaurant.GET("/:restaurant_id/menu/:id", api.GetMenuItem)
	restaurant.POST("/:restaurant_id/menu", api.CreateMenuItem, bearer.RequireAuth)
	restaurant.PUT("/:restaurant_id/menu/:id", api.UpdateMenuItem, bearer.RequireAuth)
	restaurant.DELETE("/:restaurant_id/menu/:id", api.DeleteMenuItem, bearer.RequireAuth)

	order := e.Group("/order", bearer.RequireAuth)

	order.POST("", api.CreateOrder, bearer.RequireRole(models.RoleCustomer))
	order.GET("/:id", api.GetOrder)
	order.POST("/:id", api.UpdateOrderStatus)
	order.GET("/customer/:customer_id", api.OrdersByCustomer)
	order.GET("/restaurant/:restaurant_id", api.OrdersByRestaurant)
	order.GET("/shipper/:shipper_id", api.OrdersByShipper)

	shipper := e.Group("/shipper")

	shipper.GET("/:id", api.GetShipper)
	shipper.PUT("/:id", api.UpdateShipperStatus)
	shipper.GET("", api.ListShippers)
	shipper.PUT("/:id/location", api.UpdateShipperLocation)
	shipper.GET("/:id/location", api.GetShipperLocation)
}
