// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"metrosync/internal/http/handlers"
	"metrosync/internal/http/middleware"
	"metrosync/internal/infra"
	"metrosync/internal/modules/booking"
	"metrosync/internal/modules/location"
	"metrosync/internal/modules/route"
	"metrosync/internal/modules/user"
)

type RouterDeps struct {
	Users    *user.Service
	Routes   *route.Service
	Matcher  *route.Matcher
	Bookings *booking.Service
	Location *location.Service
	Verifier infra.TokenVerifier
	Log      *slog.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log))
	r.Use(middleware.RequestLogger(deps.Log))

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	userHandler := handlers.NewUserHandler(deps.Users)
	api.POST("/users", userHandler.Register)
	api.GET("/users/me", userHandler.Me)
	api.GET("/users/:id", userHandler.Get)
	api.POST("/vehicles", userHandler.AddVehicle)
	api.GET("/vehicles", userHandler.Vehicles)

	routeHandler := handlers.NewRouteHandler(deps.Routes, deps.Matcher)
	api.POST("/routes", routeHandler.Create)
	api.GET("/routes/mine", routeHandler.Mine)
	api.GET("/routes/nearby", routeHandler.Nearby)
	api.GET("/routes/heading-to", routeHandler.HeadingTo)
	api.GET("/routes/:id", routeHandler.Get)
	api.POST("/routes/:id/publish", routeHandler.Publish)
	api.POST("/routes/:id/deactivate", routeHandler.Deactivate)
	api.DELETE("/routes/:id", routeHandler.Delete)
	api.POST("/routes/:id/stops", routeHandler.AddStop)
	api.GET("/routes/:id/stops", routeHandler.Stops)
	api.GET("/routes/:id/validate-pickup", routeHandler.ValidatePickup)

	bookingHandler := handlers.NewBookingHandler(deps.Bookings)
	api.POST("/bookings", bookingHandler.Create)
	api.GET("/bookings/mine", bookingHandler.Mine)
	api.GET("/bookings/upcoming", bookingHandler.Upcoming)
	api.GET("/bookings/pending", bookingHandler.PendingForDriver)
	api.GET("/bookings/completed", bookingHandler.CompletedInRange)
	api.GET("/bookings/driver/stats", bookingHandler.DriverStats)
	api.GET("/bookings/ref/:ref", bookingHandler.GetByReference)
	api.GET("/bookings/:id", bookingHandler.Get)
	api.POST("/bookings/:id/confirm", bookingHandler.Confirm)
	api.POST("/bookings/:id/start", bookingHandler.Start)
	api.POST("/bookings/:id/complete", bookingHandler.Complete)
	api.POST("/bookings/:id/cancel", bookingHandler.Cancel)
	api.POST("/bookings/:id/rate", bookingHandler.Rate)
	api.GET("/routes/:id/bookings", bookingHandler.ActiveByRoute)

	locationHandler := handlers.NewLocationHandler(deps.Location, deps.Users)
	api.PUT("/location", locationHandler.Update)
	api.POST("/location/offline", locationHandler.Offline)
	api.GET("/location/drivers", locationHandler.NearbyDrivers)
	api.GET("/location/history", locationHandler.History)

	return r
}
