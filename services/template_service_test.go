// services/template_service_test.go
package services

import (
	"strings"
	"testing"

	"memorybox/config"
	"memorybox/models"
	"memorybox/utils"
)

func newTestTemplateService() *TemplateService {
	cfg := &config.MessagingConfig{
		DefaultVariables: map[string]string{
			"appName":      "Memory Box",
			"supportEmail": "support@memorybox.app",
		},
	}
	return NewTemplateService(nil, cfg, utils.NewValidationService())
}

func TestRenderSubstitutesVariables(t *testing.T) {
	ts := newTestTemplateService()

	got := ts.Render("Hello {{firstName}} {{lastName}}!", map[string]string{
		"firstName": "Sam",
		"lastName":  "Rivera",
	})

	if got != "Hello Sam Rivera!" {
		t.Errorf("Render() = %q, want %q", got, "Hello Sam Rivera!")
	}
}

func TestRenderFailsOpenOnUnknownVariable(t *testing.T) {
	ts := newTestTemplateService()

	got := ts.Render("Hi {{firstName}}, your code is {{otpCode}}", map[string]string{
		"firstName": "Ana",
	})

	want := "Hi Ana, your code is {{otpCode}}"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRenderUsesConfiguredDefaults(t *testing.T) {
	ts := newTestTemplateService()

	got := ts.Render("Welcome to {{appName}}", nil)
	if got != "Welcome to Memory Box" {
		t.Errorf("Render() = %q, want %q", got, "Welcome to Memory Box")
	}
}

func TestRenderExplicitVariablesWinOverDefaults(t *testing.T) {
	ts := newTestTemplateService()

	got := ts.Render("{{appName}}", map[string]string{"appName": "Other App"})
	if got != "Other App" {
		t.Errorf("Render() = %q, want %q", got, "Other App")
	}
}

func TestRenderComputedVariables(t *testing.T) {
	ts := newTestTemplateService()

	got := ts.Render("(c) {{currentYear}}", nil)
	if strings.Contains(got, "{{") {
		t.Errorf("Render() left computed variable unresolved: %q", got)
	}
	if !strings.HasPrefix(got, "(c) 2") {
		t.Errorf("Render() = %q, want a year after the prefix", got)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	ts := newTestTemplateService()
	vars := map[string]string{"firstName": "Sam", "plan": "premium"}
	content := "{{firstName}} is on {{plan}} ({{missing}})"

	first := ts.Render(content, vars)
	for i := 0; i < 5; i++ {
		if got := ts.Render(content, vars); got != first {
			t.Fatalf("Render() not deterministic: %q vs %q", got, first)
		}
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	ts := newTestTemplateService()
	vars := map[string]string{"firstName": "Sam"}
	content := "Hi {{firstName}}, code {{otpCode}}, from {{appName}}"

	once := ts.Render(content, vars)
	twice := ts.Render(once, vars)
	if twice != once {
		t.Errorf("re-rendering changed the output: %q vs %q", twice, once)
	}
	// The unresolved token survives both passes verbatim.
	if !strings.Contains(twice, "{{otpCode}}") {
		t.Errorf("Render() = %q, want {{otpCode}} left in place", twice)
	}
}

func TestRenderUnclosedTokenKeepsTail(t *testing.T) {
	ts := newTestTemplateService()

	got := ts.Render("Hello {{firstName", map[string]string{"firstName": "Sam"})
	if got != "Hello {{firstName" {
		t.Errorf("Render() = %q, want the unclosed tail verbatim", got)
	}
}

func TestValidateEmptyContent(t *testing.T) {
	ts := newTestTemplateService()

	result := ts.Validate("   ")
	if result.IsValid {
		t.Error("Validate() accepted empty content")
	}
	if len(result.Errors) == 0 {
		t.Error("Validate() returned no errors for empty content")
	}
}

func TestValidateUnclosedVariable(t *testing.T) {
	ts := newTestTemplateService()

	result := ts.Validate("Hello {{firstName")
	if result.IsValid {
		t.Error("Validate() accepted unclosed variable")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "unclosed variable") {
		t.Errorf("Validate() errors = %v, want unclosed variable error", result.Errors)
	}
}

func TestValidateNestedVariables(t *testing.T) {
	ts := newTestTemplateService()

	result := ts.Validate("Hello {{a{{b}}}}")
	if result.IsValid {
		t.Error("Validate() accepted nested variables")
	}
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], "nested") {
		t.Errorf("Validate() errors = %v, want nested variable error", result.Errors)
	}
}

func TestValidateDeduplicatesVariables(t *testing.T) {
	ts := newTestTemplateService()

	result := ts.Validate("{{firstName}} and {{firstName}} and {{email}}")
	if !result.IsValid {
		t.Fatalf("Validate() errors = %v", result.Errors)
	}
	if len(result.Variables) != 2 {
		t.Errorf("Validate() variables = %v, want [firstName email]", result.Variables)
	}
}

func TestValidateWarnsWithoutPersonalization(t *testing.T) {
	ts := newTestTemplateService()

	result := ts.Validate("Your code is {{otpCode}}")
	if !result.IsValid {
		t.Fatalf("Validate() errors = %v", result.Errors)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("Validate() warnings = %v, want one personalization warning", result.Warnings)
	}

	// A common variable silences the warning
	result = ts.Validate("Hi {{firstName}}, your code is {{otpCode}}")
	if len(result.Warnings) != 0 {
		t.Errorf("Validate() warnings = %v, want none", result.Warnings)
	}
}

func TestValidateContentUnionsVariables(t *testing.T) {
	ts := newTestTemplateService()

	result := ts.ValidateContent("Hello {{firstName}}", "Body with {{plan}}", "<p>{{firstName}} {{discount}}</p>")
	if !result.IsValid {
		t.Fatalf("ValidateContent() errors = %v", result.Errors)
	}

	want := map[string]bool{"firstName": true, "plan": true, "discount": true}
	if len(result.Variables) != len(want) {
		t.Errorf("ValidateContent() variables = %v, want keys %v", result.Variables, want)
	}
	for _, name := range result.Variables {
		if !want[name] {
			t.Errorf("ValidateContent() unexpected variable %q", name)
		}
	}
	if len(result.Warnings) != 0 {
		t.Errorf("ValidateContent() warnings = %v, want none", result.Warnings)
	}
}

func TestPreviewContentUsesSampleData(t *testing.T) {
	ts := newTestTemplateService()

	template := &models.Template{
		Subject:  "Welcome {{firstName}}",
		Body:     "Hi {{firstName}}, welcome to {{appName}}",
		Category: models.TemplateCategoryWelcome,
	}

	preview := ts.PreviewContent(template, template.Category)
	if preview.Subject != "Welcome Alex" {
		t.Errorf("preview subject = %q, want %q", preview.Subject, "Welcome Alex")
	}
	if preview.Body != "Hi Alex, welcome to Memory Box" {
		t.Errorf("preview body = %q, want %q", preview.Body, "Hi Alex, welcome to Memory Box")
	}
	if preview.SampleData["firstName"] != "Alex" {
		t.Errorf("sample data = %v, want Alex persona", preview.SampleData)
	}
}

func TestPreviewContentFallsBackToGeneral(t *testing.T) {
	ts := newTestTemplateService()

	template := &models.Template{Body: "Hi {{firstName}}"}

	preview := ts.PreviewContent(template, "nonexistent-category")
	if preview.Body != "Hi Alex" {
		t.Errorf("preview body = %q, want %q", preview.Body, "Hi Alex")
	}
}

func TestWelcomeEmailEndToEnd(t *testing.T) {
	ts := newTestTemplateService()

	subject := ts.Render("Welcome {{firstName}}", map[string]string{"firstName": "Sam"})
	body := ts.Render("Hi {{firstName}}, welcome to {{appName}}", map[string]string{"firstName": "Sam"})

	if subject != "Welcome Sam" {
		t.Errorf("subject = %q, want %q", subject, "Welcome Sam")
	}
	if body != "Hi Sam, welcome to Memory Box" {
		t.Errorf("body = %q, want %q", body, "Hi Sam, welcome to Memory Box")
	}
}
