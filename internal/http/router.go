// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"droptaxi/internal/http/handlers"
	"droptaxi/internal/http/middleware"
)

func NewRouter(deps ServerDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api")

	if deps.Places != nil {
		placeHandler := handlers.NewPlaceHandler(deps.Places)
		api.GET("/places/autocomplete", placeHandler.Autocomplete)
		api.GET("/places/:placeId", placeHandler.Details)
	}

	fareHandler := handlers.NewFareHandler(deps.Booking, deps.Pricing)
	api.GET("/fares/rates", fareHandler.Rates)
	api.POST("/fares/estimate", fareHandler.Estimate)

	bookingHandler := handlers.NewBookingHandler(deps.Booking)
	api.POST("/bookings", middleware.OptionalAuth(deps.Verifier), bookingHandler.Create)
	authed := api.Group("", middleware.Auth(deps.Verifier))
	authed.GET("/bookings/mine", bookingHandler.Mine)
	authed.GET("/bookings", bookingHandler.ByPhone)

	adminHandler := handlers.NewAdminHandler(deps.Booking, deps.Settlement)
	admin := api.Group("/admin", middleware.Auth(deps.Verifier), middleware.RequireAdmin())
	admin.GET("/bookings", adminHandler.List)
	admin.GET("/bookings/:id", adminHandler.Get)
	admin.GET("/bookings/:id/events", adminHandler.Events)
	admin.POST("/bookings/:id/status", adminHandler.UpdateStatus)
	admin.PUT("/bookings/:id/charges", adminHandler.UpdateCharges)
	admin.DELETE("/bookings/:id", adminHandler.Delete)

	return r
}
