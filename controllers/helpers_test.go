package controllers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/labtest-api/metrics"
	"github.com/kendall-kelly/labtest-api/middleware"
	"github.com/kendall-kelly/labtest-api/models"
	"github.com/kendall-kelly/labtest-api/services"
	"github.com/kendall-kelly/labtest-api/store"
	"github.com/kendall-kelly/labtest-api/testutil"
	"github.com/kendall-kelly/labtest-api/web"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type controllerEnv struct {
	store    store.Store
	auth     *services.AuthService
	bookings *services.BookingService
	reports  *services.ReportService
	storage  *services.MockReportStorage
	sessions *middleware.Sessions
}

func setupControllers(t *testing.T, strict bool) *controllerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := testutil.OpenStore(t)
	m := metrics.New()
	storage := services.NewMockReportStorage()
	bookings := services.NewBookingService(s.Bookings(), s.Reports(), strict, m)
	sessions, err := middleware.NewSessions("controller-test-secret", time.Hour, false)
	require.NoError(t, err)

	return &controllerEnv{
		store:    s,
		auth:     services.NewAuthService(s.Users(), services.NewBcryptHasher(bcrypt.MinCost), m),
		bookings: bookings,
		reports:  services.NewReportService(bookings, s.Reports(), storage, 1024*1024, m),
		storage:  storage,
		sessions: sessions,
	}
}

// mockAuthMiddleware stands in for RequireLogin: it loads the user fresh on
// every request and sets the context exactly as the real middleware does
func (e *controllerEnv) mockAuthMiddleware(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := e.auth.Load(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		principal, err := models.PrincipalFor(user)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(middleware.ContextUser, user)
		c.Set(middleware.ContextPrincipal, principal)
		c.Next()
	}
}

// router registers every page. When userID is empty the protected routes
// are not registered.
func (e *controllerEnv) router(t *testing.T, userID string) *gin.Engine {
	t.Helper()

	router := gin.New()
	tmpl, err := web.Templates()
	require.NoError(t, err)
	router.SetHTMLTemplate(tmpl)

	ac := NewAuthController(e.auth, e.sessions)
	bc := NewBookingController(e.bookings)
	rc := NewReportController(e.reports)
	pc := NewProfileController(e.auth)
	hc := NewHealthController(e.store)

	router.GET("/api/v1/health", hc.Health)
	router.GET("/api/v1/database/status", hc.DatabaseStatus)
	router.GET("/", ac.Index)
	router.GET("/login", ac.ShowLogin)
	router.POST("/login", ac.Login)
	router.GET("/register", ac.ShowRegister)
	router.POST("/register", ac.Register)

	if userID == "" {
		return router
	}

	authed := router.Group("/", e.mockAuthMiddleware(userID))
	authed.GET("/logout", ac.Logout)
	authed.GET("/dashboard", bc.Dashboard)
	authed.GET("/profile", pc.Show)
	authed.POST("/profile", pc.Update)
	authed.GET("/download_report/:filename", rc.Download)

	patient := authed.Group("/", middleware.RequireRole(models.RolePatient))
	patient.GET("/book-test", bc.ShowBookTest)
	patient.POST("/book", bc.Book)
	patient.GET("/history", bc.History)

	tech := authed.Group("/", middleware.RequireRole(models.RoleTechnician))
	tech.GET("/accept_booking/:id", bc.Accept)
	tech.GET("/collect_sample/:id", bc.Collect)
	tech.POST("/upload_report", rc.Upload)

	return router
}

func fullProfile() models.Profile {
	return models.Profile{
		FullName: "Asha Rao",
		Phone:    "555-0100",
		DOB:      "1990-04-12",
		Address:  "12 Lake Road",
		Gender:   "female",
	}
}

func (e *controllerEnv) register(t *testing.T, email string, role models.Role, profile *models.Profile) *models.User {
	t.Helper()
	ctx := context.Background()
	u, err := e.auth.Register(ctx, services.RegisterInput{Username: string(role), Email: email, Password: "secret-pw", Role: string(role)})
	require.NoError(t, err)
	if profile != nil {
		u, err = e.auth.UpdateProfile(ctx, u.ID, *profile)
		require.NoError(t, err)
	}
	return u
}

func (e *controllerEnv) principal(t *testing.T, u *models.User) models.Principal {
	t.Helper()
	p, err := models.PrincipalFor(u)
	require.NoError(t, err)
	return p
}

func (e *controllerEnv) booking(t *testing.T, patient *models.User) *models.Booking {
	t.Helper()
	b, err := e.bookings.Create(context.Background(), e.principal(t, patient), services.BookingInput{
		TestName: "Complete Blood Count (CBC)", Date: "2025-01-01", Time: "10:00",
	})
	require.NoError(t, err)
	return b
}
