package handler

import (
	"github.com/gin-gonic/gin"

	formsapp "github.com/formbox/backend/internal/application/forms"
)

// SubmissionHandler handles form submission and query requests
type SubmissionHandler struct {
	BaseHandler
	submissionService *formsapp.SubmissionService
}

// NewSubmissionHandler creates a new SubmissionHandler
func NewSubmissionHandler(submissionService *formsapp.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

// Submit handles POST /forms/:table/submissions. The payload is standard
// form encoding, the way a browser posts an HTML form.
func (h *SubmissionHandler) Submit(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		h.BadRequest(c, "request body is not valid form data")
		return
	}

	resp, err := h.submissionService.Submit(c.Request.Context(), c.Param("table"), c.Request.PostForm)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// List handles GET /forms/:table/submissions. Filters, sorting, and paging
// all come from the query string (field__op/field__value suffixes, sort_by,
// page, page_size).
func (h *SubmissionHandler) List(c *gin.Context) {
	resp, err := h.submissionService.List(c.Request.Context(), c.Param("table"), c.Request.URL.Query())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, resp.Submissions, resp.Total, resp.Page, resp.PageSize)
}
