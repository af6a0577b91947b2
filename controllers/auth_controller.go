package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/labtest-api/middleware"
	"github.com/kendall-kelly/labtest-api/services"
	"github.com/rs/zerolog/log"
)

// LoginRequest is the login form
type LoginRequest struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

// AuthController handles registration, login and logout
type AuthController struct {
	auth     *services.AuthService
	sessions *middleware.Sessions
}

// NewAuthController creates an auth controller
func NewAuthController(auth *services.AuthService, sessions *middleware.Sessions) *AuthController {
	return &AuthController{auth: auth, sessions: sessions}
}

// Index handles GET / - landing page
func (ac *AuthController) Index(c *gin.Context) {
	render(c, "index.html", nil)
}

// ShowLogin handles GET /login
func (ac *AuthController) ShowLogin(c *gin.Context) {
	render(c, "login.html", gin.H{"Title": "Login"})
}

// Login handles POST /login - checks credentials and starts a session
func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWith(c, middleware.FlashError, services.ErrInvalidCredentials.Message, "/login")
		return
	}

	user, err := ac.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			middleware.FlashErrorMessage(c, err.Error())
			render(c, "login.html", gin.H{"Title": "Login", "Email": req.Email})
			return
		}
		redirectError(c, err, "/login")
		return
	}

	if err := ac.sessions.Issue(c, user); err != nil {
		redirectError(c, err, "/login")
		return
	}

	log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("User logged in")
	c.Redirect(http.StatusFound, "/dashboard")
}

// ShowRegister handles GET /register
func (ac *AuthController) ShowRegister(c *gin.Context) {
	render(c, "register.html", gin.H{"Title": "Register"})
}

// Register handles POST /register - creates a user and sends them to login
func (ac *AuthController) Register(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBind(&in); err != nil {
		redirectWith(c, middleware.FlashError, "Please fill in every field", "/register")
		return
	}

	if _, err := ac.auth.Register(c.Request.Context(), in); err != nil {
		redirectError(c, err, "/register")
		return
	}

	redirectWith(c, middleware.FlashSuccess, "Registration successful. Please login.", "/login")
}

// Logout handles GET /logout
func (ac *AuthController) Logout(c *gin.Context) {
	ac.sessions.Clear(c)
	c.Redirect(http.StatusFound, "/")
}
