package middleware

import (
	"context"
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/labtest-api/models"
	"github.com/rs/zerolog/log"
)

const (
	ContextPrincipal = "principal"
	ContextUser      = "user"
	ContextClaims    = "validated_claims"

	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// UserLoader resolves the user named by a session
type UserLoader interface {
	Load(ctx context.Context, id string) (*models.User, error)
}

// RequireLogin checks the session cookie, loads the user it names and stores
// the principal in the Gin context. Requests without a valid session, or
// whose user no longer exists, are redirected to the login page.
func RequireLogin(sessions *Sessions, users UserLoader) gin.HandlerFunc {
	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("No valid session, redirecting to login")
		sessions.clearCookie(w)
		http.Redirect(w, r, LoginPath, http.StatusFound)
	}

	middleware := jwtmiddleware.New(
		sessions.validator.ValidateToken,
		jwtmiddleware.WithTokenExtractor(jwtmiddleware.CookieTokenExtractor(SessionCookie)),
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		authenticated := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			if !ok {
				errorHandler(w, r, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"})
				return
			}

			user, err := users.Load(r.Context(), claims.RegisteredClaims.Subject)
			if err != nil {
				errorHandler(w, r, err)
				return
			}
			principal, err := models.PrincipalFor(user)
			if err != nil {
				errorHandler(w, r, err)
				return
			}

			c.Set(ContextClaims, claims)
			c.Set(ContextUser, user)
			c.Set(ContextPrincipal, principal)
			authenticated = true
			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !authenticated {
			c.Abort()
		}
	}
}

// RequireRole sends principals of any other role back to the dashboard
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		if principal.Role() != role {
			log.Debug().Str("user_id", principal.UserID()).Str("required_role", string(role)).
				Str("path", c.Request.URL.Path).Msg("Role mismatch, redirecting to dashboard")
			c.Redirect(http.StatusFound, DashboardPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the logged-in principal
func GetPrincipal(c *gin.Context) (models.Principal, bool) {
	value, exists := c.Get(ContextPrincipal)
	if !exists {
		return nil, false
	}
	principal, ok := value.(models.Principal)
	return principal, ok
}

// GetUser returns the logged-in user record
func GetUser(c *gin.Context) (*models.User, error) {
	value, exists := c.Get(ContextUser)
	if !exists {
		return nil, &AuthError{Code: "MISSING_USER", Message: "User not found in context"}
	}

	user, ok := value.(*models.User)
	if !ok {
		return nil, &AuthError{Code: "INVALID_USER", Message: "User is not in the expected format"}
	}

	return user, nil
}

// GetClaims extracts the validated session claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(ContextClaims)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
