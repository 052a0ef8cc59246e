// Submission HTTP handler.
//
//   - POST /submissions   (check a form submission and return the verdict)
//
// Host integrations forward the raw form fields. The client address comes
// from the ClientIP middleware, so hosts relaying submissions must be listed
// in TRUSTED_PROXIES and forward the visitor address in a forwarding header.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-form-guard/internal/detect"
	"github.com/tbourn/go-form-guard/internal/http/middleware"
	"github.com/tbourn/go-form-guard/internal/services"
)

//
// DTOs
//

// CheckSubmissionRequest is the JSON payload of POST /submissions.
type CheckSubmissionRequest struct {
	// SourceType is one of comment, registration, login, contact-form, generic.
	SourceType string `json:"source_type" example:"comment"`
	// Fields holds every submitted form field; values keep their order.
	Fields map[string][]string `json:"fields" binding:"required"`
	// UserAgent overrides the request User-Agent (for relaying hosts).
	UserAgent string `json:"user_agent,omitempty" example:"Mozilla/5.0"`
	// Cookies forwarded by a relaying host, e.g. the intent cookie.
	Cookies map[string]string `json:"cookies,omitempty"`
}

// VerdictResponse is the outcome of a submission check.
type VerdictResponse struct {
	// Verdict is "accept" or "reject".
	Verdict string `json:"verdict" example:"reject"`
	// Reason is the failure that decided a rejection.
	Reason string `json:"reason,omitempty" example:"honeypot"`
	// Message is the text to show the submitter.
	Message string `json:"message,omitempty" example:"There was a problem processing your submission."`
}

//
// Handlers
//

// CheckSubmission godoc
// @ID          checkSubmission
// @Summary     Check a form submission
// @Description Runs the detection pipeline. Accepts return 200. A blocked client
// @Description address returns 403; any other rejection returns 422.
// @Tags        Submissions
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.CheckSubmissionRequest  true  "Submission"
// @Success     200   {object}  handlers.VerdictResponse  "Accepted"
// @Failure     400   {object}  handlers.ErrorResponse    "Bad request"
// @Failure     403   {object}  handlers.VerdictResponse  "Blocked address"
// @Failure     422   {object}  handlers.VerdictResponse  "Rejected"
// @Failure     429   {object}  handlers.ErrorResponse    "Rate limited"
// @Router      /submissions [post]
func (h *Handlers) CheckSubmission(c *gin.Context) {
	var req CheckSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "fields required")
		return
	}

	ua := req.UserAgent
	if ua == "" {
		ua = c.Request.UserAgent()
	}
	cookies := make(map[string]string, len(req.Cookies)+1)
	for k, v := range req.Cookies {
		cookies[k] = v
	}
	if v, err := c.Cookie(h.intentCookie); err == nil && v != "" {
		cookies[h.intentCookie] = v
	}

	v, err := h.subSvc.Check(c.Request.Context(), services.SubmissionInput{
		Source:    req.SourceType,
		Fields:    req.Fields,
		ClientIP:  middleware.ClientIPFrom(c),
		UserAgent: ua,
		Cookies:   cookies,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidSource) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown source_type")
			return
		}
		failErr(c, http.StatusInternalServerError, ErrCodeCheckFailed, "submission could not be checked", err)
		return
	}

	if v.Accepted() {
		ok(c, http.StatusOK, VerdictResponse{Verdict: "accept"})
		return
	}
	status := http.StatusUnprocessableEntity
	if v.Reason == detect.ReasonBlockedIP {
		status = http.StatusForbidden
	}
	ok(c, status, VerdictResponse{Verdict: "reject", Reason: string(v.Reason), Message: v.Message})
}
