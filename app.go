package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/labtest-api/config"
	"github.com/kendall-kelly/labtest-api/controllers"
	"github.com/kendall-kelly/labtest-api/metrics"
	"github.com/kendall-kelly/labtest-api/middleware"
	"github.com/kendall-kelly/labtest-api/models"
	"github.com/kendall-kelly/labtest-api/services"
	"github.com/kendall-kelly/labtest-api/store"
	"github.com/kendall-kelly/labtest-api/web"
	"github.com/rs/zerolog/log"
)

// application holds everything a request handler needs
type application struct {
	cfg      *config.Config
	store    store.Store
	storage  services.ReportStorage
	metrics  *metrics.Metrics
	sessions *middleware.Sessions
	auth     *services.AuthService
	bookings *services.BookingService
	reports  *services.ReportService
}

// newStorage picks S3 when a bucket is configured, otherwise the upload directory
func newStorage(ctx context.Context, cfg *config.Config) (services.ReportStorage, error) {
	if cfg.UsesS3() {
		log.Info().Str("bucket", cfg.AWSS3Bucket).Str("region", cfg.AWSRegion).Msg("Storing reports in S3")
		return services.NewS3Storage(ctx, cfg)
	}
	log.Info().Str("dir", cfg.UploadDir).Msg("Storing reports on local disk")
	return services.NewLocalStorage(cfg.UploadDir)
}

func newApplication(cfg *config.Config, st store.Store, storage services.ReportStorage, m *metrics.Metrics, passwordCost int) (*application, error) {
	sessions, err := middleware.NewSessions(cfg.SecretKey, cfg.SessionTTL, cfg.IsProduction())
	if err != nil {
		return nil, err
	}

	auth := services.NewAuthService(st.Users(), services.NewBcryptHasher(passwordCost), m)
	bookings := services.NewBookingService(st.Bookings(), st.Reports(), cfg.StrictWorkflow, m)
	reports := services.NewReportService(bookings, st.Reports(), storage, cfg.MaxUploadBytes(), m)

	return &application{
		cfg:      cfg,
		store:    st,
		storage:  storage,
		metrics:  m,
		sessions: sessions,
		auth:     auth,
		bookings: bookings,
		reports:  reports,
	}, nil
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	if len(cfg.CORSAllowedOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.CORSAllowedOrigins
	}
	c.AllowMethods = []string{"GET", "OPTIONS"}
	c.MaxAge = 12 * time.Hour
	return c
}

// setupRouter builds the Gin engine with every route registered
func (a *application) setupRouter() (*gin.Engine, error) {
	switch {
	case a.cfg.IsProduction():
		gin.SetMode(gin.ReleaseMode)
	case a.cfg.IsTest():
		gin.SetMode(gin.TestMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery())
	router.MaxMultipartMemory = a.cfg.MaxUploadBytes()

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	authController := controllers.NewAuthController(a.auth, a.sessions)
	bookingController := controllers.NewBookingController(a.bookings)
	reportController := controllers.NewReportController(a.reports)
	profileController := controllers.NewProfileController(a.auth)
	healthController := controllers.NewHealthController(a.store)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(cors.New(corsConfig(a.cfg)))
	{
		v1.GET("/health", healthController.Health)
		v1.GET("/database/status", healthController.DatabaseStatus)
	}
	router.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	router.GET("/", authController.Index)
	router.GET("/login", authController.ShowLogin)
	router.POST("/login", authController.Login)
	router.GET("/register", authController.ShowRegister)
	router.POST("/register", authController.Register)

	authed := router.Group("/")
	authed.Use(middleware.RequireLogin(a.sessions, a.auth))
	{
		authed.GET("/logout", authController.Logout)
		authed.GET("/dashboard", bookingController.Dashboard)
		authed.GET("/profile", profileController.Show)
		authed.POST("/profile", profileController.Update)
		authed.GET("/download_report/:filename", reportController.Download)
	}

	patient := authed.Group("/")
	patient.Use(middleware.RequireRole(models.RolePatient))
	{
		patient.GET("/book-test", bookingController.ShowBookTest)
		patient.POST("/book", bookingController.Book)
		patient.GET("/history", bookingController.History)
	}

	technician := authed.Group("/")
	technician.Use(middleware.RequireRole(models.RoleTechnician))
	{
		technician.GET("/accept_booking/:id", bookingController.Accept)
		technician.GET("/collect_sample/:id", bookingController.Collect)
		technician.POST("/upload_report", reportController.Upload)
	}

	return router, nil
}
