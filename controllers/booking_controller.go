package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/labtest-api/middleware"
	"github.com/kendall-kelly/labtest-api/models"
	"github.com/kendall-kelly/labtest-api/services"
)

// BookingController handles the dashboard and the booking lifecycle pages
type BookingController struct {
	bookings *services.BookingService
}

// NewBookingController creates a booking controller
func NewBookingController(bookings *services.BookingService) *BookingController {
	return &BookingController{bookings: bookings}
}

// Dashboard handles GET /dashboard. Technicians see the pending queue and
// their own accepted and collected bookings.
func (bc *BookingController) Dashboard(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)
	data := gin.H{"Title": "Dashboard"}

	switch p := principal.(type) {
	case *models.Patient:
		data["ProfileComplete"] = p.ProfileComplete()
	case *models.Technician:
		pending, err := bc.bookings.Queue(c.Request.Context())
		if err != nil {
			middleware.FlashErrorMessage(c, errorMessage(c, err))
		}
		tasks, err := bc.bookings.Worklist(c.Request.Context(), p)
		if err != nil {
			middleware.FlashErrorMessage(c, errorMessage(c, err))
		}
		data["Pending"] = pending
		data["Tasks"] = tasks
	}

	render(c, "dashboard.html", data)
}

// ShowBookTest handles GET /book-test - the booking form, pre-filled from the profile
func (bc *BookingController) ShowBookTest(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)
	render(c, "book_test.html", gin.H{"Title": "Book a test", "Patient": principal})
}

// Book handles POST /book - creates a pending booking
func (bc *BookingController) Book(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var in services.BookingInput
	if err := c.ShouldBind(&in); err != nil {
		redirectWith(c, middleware.FlashError, services.ErrValidation.Message, "/book-test")
		return
	}

	if _, err := bc.bookings.Create(c.Request.Context(), principal, in); err != nil {
		switch {
		case errors.Is(err, services.ErrProfileIncomplete):
			redirectError(c, err, "/profile")
		case errors.Is(err, services.ErrForbidden):
			c.Redirect(http.StatusFound, "/dashboard")
		default:
			redirectError(c, err, "/book-test")
		}
		return
	}

	redirectWith(c, middleware.FlashSuccess, "Lab test booked successfully!", "/dashboard")
}

// Accept handles GET /accept_booking/:id
func (bc *BookingController) Accept(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)
	if _, err := bc.bookings.Accept(c.Request.Context(), principal, c.Param("id")); err != nil {
		redirectError(c, err, "/dashboard")
		return
	}
	redirectWith(c, middleware.FlashSuccess, "Order accepted! Please proceed to collection.", "/dashboard")
}

// Collect handles GET /collect_sample/:id
func (bc *BookingController) Collect(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)
	if _, err := bc.bookings.Collect(c.Request.Context(), principal, c.Param("id")); err != nil {
		redirectError(c, err, "/dashboard")
		return
	}
	redirectWith(c, middleware.FlashSuccess, "Sample collected successfully! Proceed to lab testing.", "/dashboard")
}

// History handles GET /history - the patient's bookings and reports, newest first
func (bc *BookingController) History(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)
	history, err := bc.bookings.History(c.Request.Context(), principal)
	if err != nil {
		redirectError(c, err, "/dashboard")
		return
	}
	render(c, "history.html", gin.H{
		"Title":    "History",
		"Bookings": history.Bookings,
		"Reports":  history.Reports,
	})
}
