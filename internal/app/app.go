// Package app assembles services, handlers and the router from a storage backend.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-api/internal/config"
	adminHandler "github.com/jwalitptl/hospital-api/internal/handler/admin"
	appointmentHandler "github.com/jwalitptl/hospital-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/hospital-api/internal/handler/auth"
	departmentHandler "github.com/jwalitptl/hospital-api/internal/handler/department"
	doctorHandler "github.com/jwalitptl/hospital-api/internal/handler/doctor"
	"github.com/jwalitptl/hospital-api/internal/handler/health"
	promHandler "github.com/jwalitptl/hospital-api/internal/handler/prometheus"
	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/router"
	adminService "github.com/jwalitptl/hospital-api/internal/service/admin"
	authService "github.com/jwalitptl/hospital-api/internal/service/auth"
	availabilityService "github.com/jwalitptl/hospital-api/internal/service/availability"
	blacklistService "github.com/jwalitptl/hospital-api/internal/service/blacklist"
	bookingService "github.com/jwalitptl/hospital-api/internal/service/booking"
	departmentService "github.com/jwalitptl/hospital-api/internal/service/department"
	"github.com/jwalitptl/hospital-api/internal/service/slot"
	"github.com/jwalitptl/hospital-api/pkg/auth"
	"github.com/jwalitptl/hospital-api/pkg/lock"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
	"github.com/jwalitptl/hospital-api/pkg/security"
	"github.com/jwalitptl/hospital-api/pkg/validator"
)

const metricsNamespace = "hospital"

// Registry is where the application and HTTP metrics are registered and served from.
type Registry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

type Deps struct {
	Store repository.Store
	// Locker guards a slot across API instances. Nil means an in-process lock.
	Locker lock.Locker
	// Registry defaults to the global prometheus registry.
	Registry Registry
	// Hasher defaults to bcrypt at the default cost.
	Hasher security.PasswordHasher
	Checks map[string]health.Checker
}

type App struct {
	Router  *router.Router
	Auth    *authService.Service
	Booking *bookingService.Service
	Metrics *metrics.Metrics
	store   repository.Store
}

func New(cfg *config.Config, deps Deps) (*App, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	loc, err := cfg.Booking.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid booking timezone: %w", err)
	}
	if err := validator.RegisterGin(); err != nil {
		return nil, err
	}

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocal()
	}
	if deps.Hasher == nil {
		deps.Hasher = security.NewBcryptHasher(0)
	}

	m := metrics.NewMetrics(registerer, metricsNamespace)
	store := deps.Store

	// Services
	departmentSvc := departmentService.NewService(store.Departments(), cfg.Cache.DepartmentTTL)
	resolver := slot.NewResolver(store.Availability(), store.Appointments(), store.Blacklist()).
		WithMetrics(m).
		WithClock(time.Now, loc)
	bookingSvc := bookingService.NewService(
		bookingService.Repositories{
			Patients:     store.Patients(),
			Doctors:      store.Doctors(),
			Appointments: store.Appointments(),
			Blacklist:    store.Blacklist(),
		},
		resolver,
		departmentSvc,
		deps.Locker,
		m,
		bookingService.Config{SlotLockTTL: cfg.Booking.SlotLockTTL, Location: loc},
	)
	availabilitySvc := availabilityService.NewService(store.Availability(), cfg.Booking.HorizonDays, loc)
	blacklistSvc := blacklistService.NewService(store.Blacklist(), store.Patients(), store.Doctors())
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authSvc := authService.NewService(authService.Repositories{
		Admins:    store.Admins(),
		Doctors:   store.Doctors(),
		Patients:  store.Patients(),
		Blacklist: store.Blacklist(),
	}, jwtSvc, deps.Hasher)
	adminSvc := adminService.NewService(adminService.Repositories{
		Doctors:      store.Doctors(),
		Patients:     store.Patients(),
		Appointments: store.Appointments(),
		Blacklist:    store.Blacklist(),
	}, departmentSvc)

	// Handlers
	handlers := router.Handlers{
		Health:      health.NewHandler(deps.Checks),
		Metrics:     promHandler.New(gatherer),
		Auth:        authHandler.NewHandler(authSvc),
		Department:  departmentHandler.NewHandler(departmentSvc),
		Doctor:      doctorHandler.NewHandler(resolver, availabilitySvc, bookingSvc),
		Appointment: appointmentHandler.NewHandler(bookingSvc),
		Admin:       adminHandler.NewHandler(adminSvc, blacklistSvc),
	}

	r := router.NewRouter(middleware.NewAuthMiddleware(authSvc), handlers, router.RouterConfig{
		Mode:       cfg.Server.Mode,
		RateLimit:  cfg.RateLimit.RequestsPerSecond,
		RateBurst:  cfg.RateLimit.Burst,
		Timeout:    time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		CORSConfig: middleware.DefaultCORSConfig(),
		Registerer: registerer,
	})
	r.Setup()

	return &App{
		Router:  r,
		Auth:    authSvc,
		Booking: bookingSvc,
		Metrics: m,
		store:   store,
	}, nil
}

type departmentSeeder interface {
	SeedDepartments(ctx context.Context) error
}

// Seed creates the default admin and the configured doctors. Departments are
// loaded only into stores that do not get them from migrations.
func (a *App) Seed(ctx context.Context, cfg *config.Config) error {
	if s, ok := a.store.(departmentSeeder); ok && cfg.Seed.Departments {
		if err := s.SeedDepartments(ctx); err != nil {
			return err
		}
	}

	created, err := a.Auth.SeedAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password)
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	if created {
		log.Warn().Str("username", cfg.Admin.Username).Msg("default admin created, change its password")
	}

	for _, d := range cfg.Seed.Doctors {
		acc := model.DoctorAccount{
			FullName:        d.FullName,
			Email:           d.Email,
			Password:        d.Password,
			ExperienceYears: d.ExperienceYears,
		}
		if d.DepartmentID != "" {
			id, err := uuid.Parse(d.DepartmentID)
			if err != nil {
				return fmt.Errorf("invalid department for doctor %s: %w", d.Email, err)
			}
			acc.DepartmentID = id
		}
		if _, err := a.Auth.SeedDoctor(ctx, acc); err != nil {
			return fmt.Errorf("failed to seed doctor %s: %w", d.Email, err)
		}
	}
	return nil
}
