package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/labtest-api/middleware"
	"github.com/kendall-kelly/labtest-api/services"
	"github.com/kendall-kelly/labtest-api/utils"
	"github.com/rs/zerolog/log"
)

const genericErrorMessage = "Something went wrong. Please try again."

// render executes a page with the logged-in principal and pending notices added to data
func render(c *gin.Context, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if principal, ok := middleware.GetPrincipal(c); ok {
		data["Principal"] = principal
	}
	data["Flashes"] = middleware.Flashes(c)
	c.HTML(http.StatusOK, name, data)
}

// redirectWith flashes a notice and redirects
func redirectWith(c *gin.Context, kind, message, location string) {
	middleware.AddFlash(c, kind, message)
	c.Redirect(http.StatusFound, location)
}

// errorMessage maps an error to the notice shown to the user. Unexpected
// errors are logged and replaced with a generic message.
func errorMessage(c *gin.Context, err error) string {
	var domainErr *services.Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	var uploadErr *utils.FileUploadError
	if errors.As(err, &uploadErr) {
		return uploadErr.Message
	}

	log.Error().Err(err).Str("path", c.Request.URL.Path).
		Str("request_id", c.GetString(middleware.ContextRequestID)).
		Msg("Request failed")
	_ = c.Error(err)
	return genericErrorMessage
}

// redirectError flashes the message for err and redirects
func redirectError(c *gin.Context, err error, location string) {
	redirectWith(c, middleware.FlashError, errorMessage(c, err), location)
}
