package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"memorybox/config"
	"memorybox/models"
	"memorybox/repositories"
	"memorybox/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

// TemplateService owns template CRUD plus the {{variable}} render engine.
// Rendering is fail open: an unresolved token stays verbatim in the output so
// a partially-configured template still sends.
type TemplateService struct {
	templateRepo *repositories.TemplateRepository
	messagingCfg *config.MessagingConfig
	validator    *utils.ValidationService
}

func NewTemplateService(
	templateRepo *repositories.TemplateRepository,
	messagingCfg *config.MessagingConfig,
	validator *utils.ValidationService,
) *TemplateService {
	return &TemplateService{
		templateRepo: templateRepo,
		messagingCfg: messagingCfg,
		validator:    validator,
	}
}

// commonPersonalizationVars is the soft-nudge set: a template using variables
// but none of these gets an authoring warning.
var commonPersonalizationVars = []string{"firstName", "email", "appName"}

// sampleData holds the canned preview records per template category.
var sampleData = map[string]map[string]string{
	"general": {
		"firstName": "Alex",
		"lastName":  "Morgan",
		"email":     "alex@example.com",
	},
	"welcome": {
		"firstName": "Alex",
		"lastName":  "Morgan",
		"email":     "alex@example.com",
		"plan":      "free",
	},
	"reminder": {
		"firstName":     "Alex",
		"memoriesCount": "127",
		"storageUsed":   "2.4 GB",
		"lastVisit":     "3 weeks ago",
	},
	"campaign": {
		"firstName":   "Alex",
		"plan":        "premium",
		"memberSince": "January 2024",
		"discount":    "20%",
	},
}

// CRUD

func (ts *TemplateService) CreateTemplate(ctx context.Context, req models.CreateTemplateRequest) (*models.Template, error) {
	if errs := ts.validator.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.NewValidationError(errs[0].Message)
	}

	validation := ts.ValidateContent(req.Subject, req.Body, req.HTML)
	if !validation.IsValid {
		return nil, utils.NewValidationError(strings.Join(validation.Errors, "; "))
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	template := &models.Template{
		Name:      req.Name,
		Type:      req.Type,
		Category:  req.Category,
		Subject:   req.Subject,
		Body:      req.Body,
		HTML:      req.HTML,
		Variables: validation.Variables,
		Active:    active,
	}

	if err := ts.templateRepo.Create(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	logrus.Infof("Template created: %s (%s/%s)", template.Name, template.Type, template.Category)
	return template, nil
}

func (ts *TemplateService) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	return ts.templateRepo.GetByID(ctx, id)
}

func (ts *TemplateService) GetTemplates(ctx context.Context, req models.GetTemplatesRequest) ([]models.Template, int64, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	return ts.templateRepo.List(ctx, req)
}

func (ts *TemplateService) UpdateTemplate(ctx context.Context, id string, req models.UpdateTemplateRequest) (*models.Template, error) {
	update := bson.M{}

	if req.Name != nil {
		update["name"] = *req.Name
	}
	if req.Subject != nil {
		update["subject"] = *req.Subject
	}
	if req.Body != nil {
		validation := ts.Validate(*req.Body)
		if !validation.IsValid {
			return nil, utils.NewValidationError(strings.Join(validation.Errors, "; "))
		}
		update["body"] = *req.Body
	}
	if req.HTML != nil {
		update["html"] = *req.HTML
	}
	if req.Active != nil {
		update["active"] = *req.Active
	}

	if len(update) == 0 {
		return nil, utils.NewValidationError("no fields to update")
	}

	if err := ts.templateRepo.Update(ctx, id, update); err != nil {
		return nil, err
	}

	updated, err := ts.templateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Re-derive the variable set from the full content after any content edit
	if req.Subject != nil || req.Body != nil || req.HTML != nil {
		validation := ts.ValidateContent(updated.Subject, updated.Body, updated.HTML)
		if err := ts.templateRepo.Update(ctx, id, bson.M{"variables": validation.Variables}); err != nil {
			logrus.Warnf("Failed to refresh variables for template %s: %v", id, err)
		} else {
			updated.Variables = validation.Variables
		}
	}

	return updated, nil
}

// DeleteTemplate hard-deletes the template. Existing delivery records keep
// their templateId back-reference.
func (ts *TemplateService) DeleteTemplate(ctx context.Context, id string) error {
	if err := ts.templateRepo.Delete(ctx, id); err != nil {
		return err
	}

	logrus.Infof("Template deleted: %s", id)
	return nil
}

func (ts *TemplateService) DuplicateTemplate(ctx context.Context, id string) (*models.Template, error) {
	return ts.templateRepo.Duplicate(ctx, id)
}

// Render substitutes every {{name}} token using, in priority order: explicit
// variables, configured defaults, computed values (currentDate, currentTime,
// currentYear). Unmatched tokens stay untouched.
func (ts *TemplateService) Render(content string, variables map[string]string) string {
	if content == "" {
		return content
	}

	resolved := ts.resolveVariables(variables)

	var b strings.Builder
	b.Grow(len(content))

	for i := 0; i < len(content); {
		open := strings.Index(content[i:], "{{")
		if open < 0 {
			b.WriteString(content[i:])
			break
		}
		open += i

		b.WriteString(content[i:open])

		end := strings.Index(content[open+2:], "}}")
		if end < 0 {
			// Unclosed token, leave the tail as-is
			b.WriteString(content[open:])
			break
		}
		end += open + 2

		name := strings.TrimSpace(content[open+2 : end])
		if value, ok := resolved[name]; ok {
			b.WriteString(value)
		} else {
			// Fail open: keep the token verbatim
			b.WriteString(content[open : end+2])
		}

		i = end + 2
	}

	return b.String()
}

// resolveVariables layers explicit variables over configured defaults over
// computed values.
func (ts *TemplateService) resolveVariables(variables map[string]string) map[string]string {
	now := time.Now()
	resolved := map[string]string{
		"currentDate": now.Format("January 2, 2006"),
		"currentTime": now.Format("3:04 PM"),
		"currentYear": now.Format("2006"),
	}

	if ts.messagingCfg != nil {
		for name, value := range ts.messagingCfg.DefaultVariables {
			resolved[name] = value
		}
	}

	for name, value := range variables {
		resolved[name] = value
	}

	return resolved
}

// Validate checks template syntax. Errors block saving; warnings are advisory.
// The returned variable list is de-duplicated.
func (ts *TemplateService) Validate(content string) models.TemplateValidation {
	result := models.TemplateValidation{
		IsValid:   true,
		Errors:    []string{},
		Warnings:  []string{},
		Variables: []string{},
	}

	if strings.TrimSpace(content) == "" {
		result.IsValid = false
		result.Errors = append(result.Errors, "template content is empty")
		return result
	}

	seen := map[string]bool{}

	for i := 0; i < len(content); {
		open := strings.Index(content[i:], "{{")
		if open < 0 {
			break
		}
		open += i

		end := strings.Index(content[open+2:], "}}")
		if end < 0 {
			result.IsValid = false
			result.Errors = append(result.Errors, fmt.Sprintf("unclosed variable at position %d", open))
			break
		}
		end += open + 2

		inner := content[open+2 : end]
		if strings.Contains(inner, "{{") {
			result.IsValid = false
			result.Errors = append(result.Errors, "nested variables are not allowed")
			break
		}

		name := strings.TrimSpace(inner)
		if name != "" && !seen[name] {
			seen[name] = true
			result.Variables = append(result.Variables, name)
		}

		i = end + 2
	}

	if len(result.Variables) > 0 {
		hasCommon := false
		for _, common := range commonPersonalizationVars {
			if seen[common] {
				hasCommon = true
				break
			}
		}
		if !hasCommon {
			result.Warnings = append(result.Warnings,
				"template uses no common personalization variable (firstName, email, appName)")
		}
	}

	return result
}

// ValidateContent validates a template's full content. The returned variable
// set is the union of tokens found in subject, body and html. Body is the
// only required part.
func (ts *TemplateService) ValidateContent(subject, body, html string) models.TemplateValidation {
	result := ts.Validate(body)

	for _, part := range []string{subject, html} {
		if strings.TrimSpace(part) == "" {
			continue
		}

		partial := ts.Validate(part)
		if !partial.IsValid {
			result.IsValid = false
			result.Errors = append(result.Errors, partial.Errors...)
		}
		for _, name := range partial.Variables {
			found := false
			for _, existing := range result.Variables {
				if existing == name {
					found = true
					break
				}
			}
			if !found {
				result.Variables = append(result.Variables, name)
			}
		}
	}

	// Warning recomputed over the union
	result.Warnings = result.Warnings[:0]
	if len(result.Variables) > 0 {
		seen := map[string]bool{}
		for _, name := range result.Variables {
			seen[name] = true
		}

		hasCommon := false
		for _, common := range commonPersonalizationVars {
			if seen[common] {
				hasCommon = true
				break
			}
		}
		if !hasCommon {
			result.Warnings = append(result.Warnings,
				"template uses no common personalization variable (firstName, email, appName)")
		}
	}

	return result
}

// Preview renders a stored template against the canned sample record for its
// category. Inactive templates are previewable; they just cannot be sent.
func (ts *TemplateService) Preview(ctx context.Context, id string) (*models.TemplatePreview, error) {
	template, err := ts.templateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return ts.PreviewContent(template, template.Category), nil
}

// PreviewContent renders a template (stored or unsaved) with the sample data
// for the given category, falling back to the general record.
func (ts *TemplateService) PreviewContent(template *models.Template, category string) *models.TemplatePreview {
	sample, ok := sampleData[category]
	if !ok {
		sample = sampleData["general"]
	}

	return &models.TemplatePreview{
		Subject:    ts.Render(template.Subject, sample),
		Body:       ts.Render(template.Body, sample),
		HTML:       ts.Render(template.HTML, sample),
		SampleData: sample,
	}
}

// RenderTemplate renders a stored template for an actual send. Inactive
// templates are treated as missing on this path.
func (ts *TemplateService) RenderTemplate(ctx context.Context, id string, variables map[string]string) (*models.Template, *models.TemplatePreview, error) {
	template, err := ts.templateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if !template.Active {
		return nil, nil, utils.NewNotFoundError("Active template")
	}

	rendered := &models.TemplatePreview{
		Subject: ts.Render(template.Subject, variables),
		Body:    ts.Render(template.Body, variables),
		HTML:    ts.Render(template.HTML, variables),
	}

	return template, rendered, nil
}

// RecordUsage bumps the template's usage counter, best effort.
func (ts *TemplateService) RecordUsage(ctx context.Context, template *models.Template) {
	if err := ts.templateRepo.IncrementUsage(ctx, template.ID); err != nil {
		logrus.Warnf("Failed to record template usage for %s: %v", template.ID.Hex(), err)
	}
}
