package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"hoteldesk/internal/infra/config"
	"hoteldesk/internal/infra/obs"
)

type AvailabilityHTTP interface {
	Occupied(c *gin.Context)
	Range(c *gin.Context)
	Calendar(c *gin.Context)
}

type RoomHTTP interface {
	Reconcile(c *gin.Context)
	Sweep(c *gin.Context)
}

type ReservationHTTP interface {
	Create(c *gin.Context)
	UpdateDates(c *gin.Context)
	ChangeStatus(c *gin.Context)
	Delete(c *gin.Context)
}

type Handlers struct {
	Availability AvailabilityHTTP
	Rooms        RoomHTTP
	Reservations ReservationHTTP
	// Live upgrades /ws connections to the dashboard feed.
	Live http.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Availability != nil {
		api.GET("/availability/occupied", h.Availability.Occupied)
		api.GET("/availability/range", h.Availability.Range)
		api.GET("/availability/calendar", h.Availability.Calendar)
	}
	if h.Rooms != nil {
		api.POST("/rooms/sweep", h.Rooms.Sweep)
		api.POST("/rooms/:id/reconcile", h.Rooms.Reconcile)
	}
	if h.Reservations != nil {
		api.POST("/reservations", h.Reservations.Create)
		api.PUT("/reservations/:id/dates", h.Reservations.UpdateDates)
		api.POST("/reservations/:id/status", h.Reservations.ChangeStatus)
		api.DELETE("/reservations/:id", h.Reservations.Delete)
	}
	if h.Live != nil {
		api.GET("/ws", gin.WrapF(h.Live))
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", "X-Request-ID"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev", "local":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
