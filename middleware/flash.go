package middleware

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	// FlashCookie carries notices across a redirect
	FlashCookie = "flash"

	FlashSuccess = "success"
	FlashError   = "error"

	contextFlashes = "flashes"
)

// Flash is a one-shot notice shown on the next rendered page
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// AddFlash queues a notice for the next rendered page
func AddFlash(c *gin.Context, kind, message string) {
	pending := append(pendingFlashes(c), Flash{Kind: kind, Message: message})
	c.Set(contextFlashes, pending)

	raw, err := json.Marshal(pending)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode flash messages")
		return
	}
	setFlashCookie(c, base64.RawURLEncoding.EncodeToString(raw), 0)
}

// FlashSuccessMessage queues a success notice
func FlashSuccessMessage(c *gin.Context, message string) {
	AddFlash(c, FlashSuccess, message)
}

// FlashErrorMessage queues an error notice
func FlashErrorMessage(c *gin.Context, message string) {
	AddFlash(c, FlashError, message)
}

// Flashes returns and consumes every queued notice, including ones added
// during this request.
func Flashes(c *gin.Context) []Flash {
	flashes := append(cookieFlashes(c), contextFlashesOf(c)...)
	c.Set(contextFlashes, []Flash{})
	if len(flashes) > 0 {
		setFlashCookie(c, "", -1)
	}
	return flashes
}

// pendingFlashes is what the outgoing cookie should hold: anything the
// request arrived with that has not been consumed, plus what was added
func pendingFlashes(c *gin.Context) []Flash {
	if _, seen := c.Get(contextFlashes); seen {
		return contextFlashesOf(c)
	}
	return cookieFlashes(c)
}

func contextFlashesOf(c *gin.Context) []Flash {
	value, exists := c.Get(contextFlashes)
	if !exists {
		return nil
	}
	flashes, _ := value.([]Flash)
	return flashes
}

func cookieFlashes(c *gin.Context) []Flash {
	if _, seen := c.Get(contextFlashes); seen {
		return nil
	}
	value, err := c.Cookie(FlashCookie)
	if err != nil || value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return nil
	}
	return flashes
}

func setFlashCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(FlashCookie, value, maxAge, "/", "", false, true)
}
