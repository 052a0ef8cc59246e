// Detection log HTTP handler.
//
//   - GET /detections   (paginated, newest first, optional ip filter, ETag)
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-form-guard/internal/domain"
	"github.com/tbourn/go-form-guard/internal/services"
	"github.com/tbourn/go-form-guard/internal/utils"
)

// ListDetectionsResponse wraps a page of detections.
type ListDetectionsResponse struct {
	Detections []domain.Detection `json:"detections"`
	Pagination Pagination         `json:"pagination"`
}

// ListDetections godoc
// @ID          listDetections
// @Summary     List detections
// @Description Returns rejected submissions, newest first. Supports If-None-Match.
// @Tags        Detections
// @Produce     json
// @Param       X-Admin-Key  header  string  true   "Admin key"
// @Param       ip           query   string  false  "Filter by client address"
// @Param       page         query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size    query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListDetectionsResponse
// @Success     304  "Not modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /detections [get]
func (h *Handlers) ListDetections(c *gin.Context) {
	ctx := c.Request.Context()
	ip := c.Query("ip")
	page, pageSize := utils.Page(c.Query("page"), c.Query("page_size"), 20, 100)

	// ETag pre-check (best effort).
	count, latest, err := h.detSvc.Stats(ctx, ip)
	if errors.Is(err, services.ErrInvalidIP) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ip must be an IP address")
		return
	}
	if err == nil {
		var ts int64
		if latest != nil {
			ts = latest.UnixNano()
		}
		etag := fmt.Sprintf(`W/"detections:%s:%d:%d:%d:%d"`, ip, count, ts, page, pageSize)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.detSvc.ListPage(ctx, ip, page, pageSize)
	if err != nil {
		failErr(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list detections", err)
		return
	}
	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListDetectionsResponse{
		Detections: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
