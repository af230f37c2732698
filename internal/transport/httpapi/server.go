// Package httpapi отдаёт REST API ядра записи на echo.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Leganyst/clinic-scheduling/internal/service"
)

// Deps — сервисы, которые обслуживает API.
type Deps struct {
	Availability *service.AvailabilityService
	Booking      *service.BookingService
	Orchestrator *service.Orchestrator
	Schedules    *service.ScheduleService
	Users        *service.UserService
	Generator    *service.SlotGenerator
}

type Options struct {
	JWTSecret   []byte
	RateLimiter *RateLimiter // nil отключает ограничение
}

type handler struct {
	Deps
	log zerolog.Logger
}

// New собирает echo с middleware и маршрутами /api/v1.
func New(deps Deps, opts Options, log zerolog.Logger) *echo.Echo {
	log = log.With().Str("component", "http").Logger()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{v: validator.New()}
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(Recovery(log))
	e.Use(RequestID())
	e.Use(Logger(log))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, envelope{Success: true, Data: "ok"})
	})

	h := &handler{Deps: deps, log: log}

	api := e.Group("/api/v1", JWTAuth(opts.JWTSecret))
	if opts.RateLimiter != nil {
		api.Use(opts.RateLimiter.Middleware())
	}

	api.GET("/me", h.me)

	appts := api.Group("/appointments")
	appts.GET("/availability", h.queryAvailability)
	appts.GET("/availability/all", h.allAvailability)
	appts.GET("/availability/city/:city", h.availabilityByCity)
	appts.GET("/availability/specialty/:specialty/city/:city", h.availabilityBySpecialtyAndCity)
	appts.GET("/cities", h.cities)
	appts.GET("/stats", h.stats)
	appts.GET("/doctors", h.doctors)
	appts.GET("/specialties", h.specialties)
	appts.POST("", h.book)
	appts.POST("/complete-booking", h.completeBooking)
	appts.POST("/chat/schedule", h.chatSchedule)
	appts.GET("/my-appointments", h.myAppointments)
	appts.GET("/:id", h.appointmentDetails)
	appts.DELETE("/:id", h.cancel)

	admin := api.Group("/admin", RequireRole(RoleAdmin))
	admin.POST("/slots/generate", h.generateSlots)
	admin.POST("/schedules", h.createSchedule)
	admin.DELETE("/schedules/:id", h.deactivateSchedule)
	admin.GET("/doctors/:id/schedules", h.doctorSchedules)
	admin.POST("/users", h.registerUser)

	return e
}

// NewHTTPServer оборачивает echo в otelhttp.
func NewHTTPServer(addr string, e *echo.Echo) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(e, "clinic-scheduling-http"),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
