// Challenge and intent HTTP handlers.
//
//   - GET  /challenge           (browser script configuration)
//   - POST /challenge/refresh   (rotate the token when stale)
//   - POST /intent              (issue a single-use login intent token)
//   - GET  /honeypot            (current honeypot field name)
//   - POST /honeypot/regenerate (admin: replace the honeypot field name)
//
// The router serves these through middleware.NoStore; regeneration also sits
// behind the admin key.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-form-guard/internal/http/middleware"
	"github.com/tbourn/go-form-guard/internal/services"
)

//
// DTOs
//

// RefreshResponse is the configuration after a refresh attempt.
type RefreshResponse struct {
	services.ClientConfig
	// Rotated reports whether a new token was issued.
	Rotated bool `json:"rotated" example:"false"`
}

// IntentResponse describes a newly issued intent token.
type IntentResponse struct {
	Token     string    `json:"token" example:"3f2a9c1e5b7d4e8f9a0b1c2d3e4f5a6b0011223344556677"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HoneypotResponse names the hidden field forms must render empty.
type HoneypotResponse struct {
	Field string `json:"field" example:"hp_k3j9x2qa"`
}

//
// Handlers
//

// GetChallenge godoc
// @ID          getChallenge
// @Summary     Challenge configuration
// @Description Returns the object consumed by the browser script: the current key,
// @Description the hidden input name, the form selectors and the refresh endpoint.
// @Tags        Challenge
// @Produce     json
// @Success     200  {object}  services.ClientConfig
// @Failure     503  {object}  handlers.ErrorResponse  "Token store unavailable"
// @Router      /challenge [get]
func (h *Handlers) GetChallenge(c *gin.Context) {
	cfg, err := h.chalSvc.ClientConfig(c.Request.Context())
	if err != nil {
		failErr(c, http.StatusServiceUnavailable, ErrCodeTokenUnavailable, "challenge unavailable", err)
		return
	}
	ok(c, http.StatusOK, cfg)
}

// RefreshChallenge godoc
// @ID          refreshChallenge
// @Summary     Refresh a stale challenge key
// @Description Rotates the key only when it has reached its maximum age; otherwise
// @Description the current key is returned unchanged.
// @Tags        Challenge
// @Produce     json
// @Success     200  {object}  handlers.RefreshResponse
// @Failure     503  {object}  handlers.ErrorResponse  "Token store unavailable"
// @Router      /challenge/refresh [post]
func (h *Handlers) RefreshChallenge(c *gin.Context) {
	cfg, rotated, err := h.chalSvc.Refresh(c.Request.Context())
	if err != nil {
		failErr(c, http.StatusServiceUnavailable, ErrCodeTokenUnavailable, "challenge unavailable", err)
		return
	}
	ok(c, http.StatusOK, RefreshResponse{ClientConfig: cfg, Rotated: rotated})
}

// IssueIntent godoc
// @ID          issueIntent
// @Summary     Issue a login intent token
// @Description Creates a single-use token, sets it as an HttpOnly cookie and returns it.
// @Description A login submission carrying a live token is accepted even when the
// @Description challenge key is missing.
// @Tags        Challenge
// @Produce     json
// @Success     201  {object}  handlers.IntentResponse
// @Failure     503  {object}  handlers.ErrorResponse  "Token store unavailable"
// @Router      /intent [post]
func (h *Handlers) IssueIntent(c *gin.Context) {
	it, err := h.chalSvc.IssueIntent(c.Request.Context())
	if err != nil {
		failErr(c, http.StatusServiceUnavailable, ErrCodeTokenUnavailable, "intent unavailable", err)
		return
	}
	maxAge := int(time.Until(it.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.intentCookie, it.Value, maxAge, "/", "", h.secureCookie, true)
	ok(c, http.StatusCreated, IntentResponse{Token: it.Value, ExpiresAt: it.ExpiresAt})
}

// GetHoneypot godoc
// @ID          getHoneypot
// @Summary     Honeypot field name
// @Description Returns the hidden field name forms must render and leave empty.
// @Tags        Challenge
// @Produce     json
// @Success     200  {object}  handlers.HoneypotResponse
// @Failure     503  {object}  handlers.ErrorResponse  "Token store unavailable"
// @Router      /honeypot [get]
func (h *Handlers) GetHoneypot(c *gin.Context) {
	name, err := h.chalSvc.Honeypot(c.Request.Context())
	if err != nil {
		failErr(c, http.StatusServiceUnavailable, ErrCodeTokenUnavailable, "honeypot unavailable", err)
		return
	}
	ok(c, http.StatusOK, HoneypotResponse{Field: name})
}

// RegenerateHoneypot godoc
// @ID          regenerateHoneypot
// @Summary     Regenerate the honeypot field name
// @Description Replaces the hidden field name. Pages cached with the old name
// @Description fail the honeypot check until they are re-rendered.
// @Tags        Challenge
// @Produce     json
// @Param       X-Admin-Key  header  string  true  "Admin key"
// @Success     200  {object}  handlers.HoneypotResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     409  {object}  handlers.ErrorResponse  "Name pinned by configuration"
// @Failure     503  {object}  handlers.ErrorResponse  "Token store unavailable"
// @Router      /honeypot/regenerate [post]
func (h *Handlers) RegenerateHoneypot(c *gin.Context) {
	name, err := h.chalSvc.RegenerateHoneypot(c.Request.Context())
	switch {
	case errors.Is(err, services.ErrHoneypotPinned):
		fail(c, http.StatusConflict, ErrCodeHoneypotPinned, "honeypot field is pinned by configuration")
		return
	case err != nil:
		failErr(c, http.StatusServiceUnavailable, ErrCodeTokenUnavailable, "honeypot unavailable", err)
		return
	}
	middleware.LoggerFrom(c).Info().Str("field", name).Msg("honeypot field regenerated")
	ok(c, http.StatusOK, HoneypotResponse{Field: name})
}
