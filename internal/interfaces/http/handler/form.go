package handler

import (
	"github.com/gin-gonic/gin"

	formsapp "github.com/formbox/backend/internal/application/forms"
	"github.com/formbox/backend/internal/application/forms/dto"
)

// FormHandler handles schema registration and lookup requests
type FormHandler struct {
	BaseHandler
	formService *formsapp.FormService
}

// NewFormHandler creates a new FormHandler
func NewFormHandler(formService *formsapp.FormService) *FormHandler {
	return &FormHandler{formService: formService}
}

// Register handles POST /schemas. The body carries the table name and the
// JSON definition object; registering the same definition twice is a no-op.
func (h *FormHandler) Register(c *gin.Context) {
	var req dto.RegisterSchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "request body must contain table_name and definition")
		return
	}

	resp, err := h.formService.RegisterSchema(c.Request.Context(), req.TableName, req.Definition)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// List handles GET /schemas
func (h *FormHandler) List(c *gin.Context) {
	resp, err := h.formService.ListSchemas(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Get handles GET /schemas/:table
func (h *FormHandler) Get(c *gin.Context) {
	resp, err := h.formService.DescribeSchema(c.Request.Context(), c.Param("table"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
