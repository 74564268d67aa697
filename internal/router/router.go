package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/evencore/seat-reservation/internal/config"
	"github.com/evencore/seat-reservation/internal/handler"
	"github.com/evencore/seat-reservation/internal/middleware"
)

// RegisterRoutes registers the routes that carry no middleware beyond
// the global ones.  Currently it exposes only a health check used by
// load balancers and monitoring systems.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterSeats registers the public reservation endpoints under
// /v1/events/:id/seats.  Identity and tenant resolution run on the
// whole group; the reserve endpoint additionally gets the Redis
// token-bucket limiter and the availability endpoint the response
// cache, both disabled automatically when Redis is not configured.
func RegisterSeats(e *echo.Echo, s *handler.SeatHandler, live *handler.LiveHandler, jwtSecret string, rdb *redis.Client) {
	g := e.Group("/v1/events/:id")
	g.Use(middleware.ResolveTenant())
	g.Use(middleware.ResolveIdentity(jwtSecret))

	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	g.POST("/seats/reserve", s.ReserveSeats, rl)
	g.DELETE("/seats/reserve", s.ReleaseSeats)
	// Confirmation is called by the registration/payment flow, not by
	// seat-map clients, so it is neither rate limited nor cached.
	g.POST("/seats/confirm", s.ConfirmSeats)

	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	g.GET("/seats/availability", s.Availability, cache)
	g.GET("/seats/live", live.Stream)

	g.GET("/reservations", s.ListReservations)
}

// RegisterAdmin registers the floor-plan administration endpoints.
// Access control for these lives in the surrounding platform (gateway
// or ingress); the core only resolves the tenant for row stamping.
func RegisterAdmin(e *echo.Echo, a *handler.AdminSeatHandler) {
	g := e.Group("/v1/events/:id")
	g.Use(middleware.ResolveTenant())
	g.POST("/seats/generate", a.GenerateSeats)
	g.PATCH("/seats/:seatId", a.SetSeatAvailability)
}
