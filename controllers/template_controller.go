// controllers/template_controller.go
package controllers

import (
	"memorybox/models"
	"memorybox/services"
	"memorybox/utils"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type TemplateController struct {
	templateService *services.TemplateService
}

func NewTemplateController(templateService *services.TemplateService) *TemplateController {
	return &TemplateController{
		templateService: templateService,
	}
}

// CreateTemplate creates a new message template
// @Summary Create template
// @Description Create a new message template with placeholder validation
// @Tags Templates
// @Accept json
// @Produce json
// @Param request body models.CreateTemplateRequest true "Template data"
// @Success 201 {object} models.APIResponse{data=models.Template}
// @Failure 400 {object} models.APIResponse
// @Router /templates [post]
func (tc *TemplateController) CreateTemplate(c *gin.Context) {
	var req models.CreateTemplateRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	template, err := tc.templateService.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Template created successfully", template)
}

// GetTemplates lists templates
// @Summary List templates
// @Description List templates with optional type and category filters
// @Tags Templates
// @Produce json
// @Param type query string false "Template type"
// @Param category query string false "Template category"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} models.APIResponse{data=[]models.Template}
// @Router /templates [get]
func (tc *TemplateController) GetTemplates(c *gin.Context) {
	req := models.GetTemplatesRequest{
		Type:     c.Query("type"),
		Category: c.Query("category"),
	}
	req.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	req.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	templates, total, err := tc.templateService.GetTemplates(c.Request.Context(), req)
	if err != nil {
		logrus.Errorf("Failed to list templates: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	meta := utils.CreatePaginationMeta(req.Page, req.PageSize, total)
	utils.SuccessResponseWithMeta(c, "Templates retrieved", templates, meta)
}

// GetTemplate fetches a single template
// @Summary Get template
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} models.APIResponse{data=models.Template}
// @Failure 404 {object} models.APIResponse
// @Router /templates/{id} [get]
func (tc *TemplateController) GetTemplate(c *gin.Context) {
	template, err := tc.templateService.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Template retrieved", template)
}

// UpdateTemplate updates template fields
// @Summary Update template
// @Description Update template content; variables are re-derived from the result
// @Tags Templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param request body models.UpdateTemplateRequest true "Fields to update"
// @Success 200 {object} models.APIResponse{data=models.Template}
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /templates/{id} [put]
func (tc *TemplateController) UpdateTemplate(c *gin.Context) {
	var req models.UpdateTemplateRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	template, err := tc.templateService.UpdateTemplate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Template updated successfully", template)
}

// DeleteTemplate removes a template
// @Summary Delete template
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /templates/{id} [delete]
func (tc *TemplateController) DeleteTemplate(c *gin.Context) {
	if err := tc.templateService.DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Template deleted successfully", nil)
}

// DuplicateTemplate clones a template
// @Summary Duplicate template
// @Description Create an inactive copy of a template under a new name
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 201 {object} models.APIResponse{data=models.Template}
// @Failure 404 {object} models.APIResponse
// @Router /templates/{id}/duplicate [post]
func (tc *TemplateController) DuplicateTemplate(c *gin.Context) {
	template, err := tc.templateService.DuplicateTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Template duplicated successfully", template)
}

// PreviewTemplate renders a template with sample data
// @Summary Preview template
// @Description Render a template using canned sample data or caller-provided variables. Inactive templates are previewable.
// @Tags Templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param request body models.PreviewTemplateRequest false "Preview options"
// @Success 200 {object} models.APIResponse{data=models.TemplatePreview}
// @Failure 404 {object} models.APIResponse
// @Router /templates/{id}/preview [post]
func (tc *TemplateController) PreviewTemplate(c *gin.Context) {
	var req models.PreviewTemplateRequest
	// Body is optional; an empty body previews with the template's own category
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	template, err := tc.templateService.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	var preview *models.TemplatePreview
	if len(req.Variables) > 0 {
		preview = &models.TemplatePreview{
			Subject:    tc.templateService.Render(template.Subject, req.Variables),
			Body:       tc.templateService.Render(template.Body, req.Variables),
			HTML:       tc.templateService.Render(template.HTML, req.Variables),
			SampleData: req.Variables,
		}
	} else {
		category := req.Category
		if category == "" {
			category = template.Category
		}
		preview = tc.templateService.PreviewContent(template, category)
	}

	utils.SuccessResponse(c, "Template preview generated", preview)
}

// ValidateTemplate validates template content without saving it
// @Summary Validate template content
// @Description Check placeholder syntax and report discovered variables
// @Tags Templates
// @Accept json
// @Produce json
// @Param request body models.ValidateTemplateRequest true "Content to validate"
// @Success 200 {object} models.APIResponse{data=models.TemplateValidation}
// @Failure 400 {object} models.APIResponse
// @Router /templates/validate [post]
func (tc *TemplateController) ValidateTemplate(c *gin.Context) {
	var req models.ValidateTemplateRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	validation := tc.templateService.Validate(req.Content)
	utils.SuccessResponse(c, "Template validated", validation)
}
