// Block administration HTTP handlers.
//
//   - GET    /blocks       (list, paginated)
//   - GET    /blocks/{ip}  (fetch one entry)
//   - PUT    /blocks/{ip}  (create or replace)
//   - DELETE /blocks/{ip}  (remove)
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-form-guard/internal/domain"
	"github.com/tbourn/go-form-guard/internal/policy"
	"github.com/tbourn/go-form-guard/internal/services"
	"github.com/tbourn/go-form-guard/internal/utils"
)

//
// DTOs
//

// PutBlockRequest is the JSON payload of PUT /blocks/{ip}.
type PutBlockRequest struct {
	// Kind is "temporary" (default) or "permanent".
	Kind string `json:"kind" example:"temporary"`
	// StartsAt and EndsAt bound a temporary block; either may be omitted.
	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
	Reason   string     `json:"reason" binding:"max=255" example:"comment spam wave"`
}

// ListBlocksResponse wraps a page of block entries.
type ListBlocksResponse struct {
	Blocks     []domain.BlockEntry `json:"blocks"`
	Pagination Pagination          `json:"pagination"`
}

func (h *Handlers) failBlock(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrBlockNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "block not found")
	case errors.Is(err, services.ErrInvalidIP):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ip must be an IP address")
	case errors.Is(err, services.ErrInvalidBlock):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "kind must be temporary or permanent and ends_at must not precede starts_at")
	default:
		failErr(c, http.StatusInternalServerError, ErrCodeBlockFailed, "block operation failed", err)
	}
}

//
// Handlers
//

// ListBlocks godoc
// @ID          listBlocks
// @Summary     List block entries
// @Tags        Blocks
// @Produce     json
// @Param       X-Admin-Key  header  string  true   "Admin key"
// @Param       page         query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size    query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListBlocksResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /blocks [get]
func (h *Handlers) ListBlocks(c *gin.Context) {
	page, pageSize := utils.Page(c.Query("page"), c.Query("page_size"), 20, 100)
	items, total, err := h.blockSvc.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		failErr(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list blocks", err)
		return
	}
	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListBlocksResponse{
		Blocks: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetBlock godoc
// @ID          getBlock
// @Summary     Get the block entry of an address
// @Tags        Blocks
// @Produce     json
// @Param       X-Admin-Key  header  string  true  "Admin key"
// @Param       ip           path    string  true  "Client address"
// @Success     200  {object}  domain.BlockEntry
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /blocks/{ip} [get]
func (h *Handlers) GetBlock(c *gin.Context) {
	e, err := h.blockSvc.Get(c.Request.Context(), c.Param("ip"))
	if err != nil {
		h.failBlock(c, err)
		return
	}
	ok(c, http.StatusOK, e)
}

// PutBlock godoc
// @ID          putBlock
// @Summary     Create or replace the block entry of an address
// @Tags        Blocks
// @Accept      json
// @Produce     json
// @Param       X-Admin-Key  header  string                    true  "Admin key"
// @Param       ip           path    string                    true  "Client address"
// @Param       body         body    handlers.PutBlockRequest  true  "Block"
// @Success     200  {object}  domain.BlockEntry
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /blocks/{ip} [put]
func (h *Handlers) PutBlock(c *gin.Context) {
	var req PutBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid block body")
		return
	}
	e, err := h.blockSvc.Put(c.Request.Context(), policy.BlockRequest{
		IP:       c.Param("ip"),
		Kind:     req.Kind,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Reason:   req.Reason,
	})
	if err != nil {
		h.failBlock(c, err)
		return
	}
	ok(c, http.StatusOK, e)
}

// DeleteBlock godoc
// @ID          deleteBlock
// @Summary     Remove the block entry of an address
// @Tags        Blocks
// @Param       X-Admin-Key  header  string  true  "Admin key"
// @Param       ip           path    string  true  "Client address"
// @Success     204  "Deleted"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /blocks/{ip} [delete]
func (h *Handlers) DeleteBlock(c *gin.Context) {
	if err := h.blockSvc.Delete(c.Request.Context(), c.Param("ip")); err != nil {
		h.failBlock(c, err)
		return
	}
	noContent(c)
}
