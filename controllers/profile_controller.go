package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/labtest-api/middleware"
	"github.com/kendall-kelly/labtest-api/models"
	"github.com/kendall-kelly/labtest-api/services"
)

// ProfileController shows and updates the logged-in user's profile
type ProfileController struct {
	auth *services.AuthService
}

// NewProfileController creates a profile controller
func NewProfileController(auth *services.AuthService) *ProfileController {
	return &ProfileController{auth: auth}
}

// Show handles GET /profile
func (pc *ProfileController) Show(c *gin.Context) {
	user, err := middleware.GetUser(c)
	if err != nil {
		redirectError(c, err, "/login")
		return
	}
	render(c, "profile.html", gin.H{"Title": "Profile", "User": user})
}

// Update handles POST /profile
func (pc *ProfileController) Update(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var profile models.Profile
	if err := c.ShouldBind(&profile); err != nil {
		redirectWith(c, middleware.FlashError, services.ErrValidation.Message, "/profile")
		return
	}

	if _, err := pc.auth.UpdateProfile(c.Request.Context(), principal.UserID(), profile); err != nil {
		redirectError(c, err, "/profile")
		return
	}

	redirectWith(c, middleware.FlashSuccess, "Profile updated successfully!", "/dashboard")
}
