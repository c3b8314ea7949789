package notification

import (
	"fmt"
	"strings"
	"sync"
)

// Template defines a reusable notification template. Placeholders use the
// {{key}} form.
type Template struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Title       string           `json:"title"`
	Body        string           `json:"body"`
	Type        NotificationType `json:"type"`
	MessageType string           `json:"message_type,omitempty"`
}

// Built-in template ids.
const (
	TemplateMedicationReminder  = "medication-reminder"
	TemplateAppointmentReminder = "appointment-reminder"
	TemplateHealthCheckReminder = "health-check-reminder"
	TemplateCustomReminder      = "custom-reminder"
	TemplateEmergencyAlert      = "emergency-alert"
	TemplateBenefitClaimUpdate  = "benefit-claim-update"
)

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:          TemplateMedicationReminder,
			Name:        "Medication Reminder",
			Title:       "Time for your medicine",
			Body:        "Hi {{name}}, it's time to take {{title}}. {{message}}",
			Type:        TypePush,
			MessageType: MessageReminder,
		},
		{
			ID:          TemplateAppointmentReminder,
			Name:        "Appointment Reminder",
			Title:       "Upcoming appointment: {{title}}",
			Body:        "Hi {{name}}, you have an appointment on {{date}} at {{time}}. {{message}}",
			Type:        TypePush,
			MessageType: MessageAppointment,
		},
		{
			ID:          TemplateHealthCheckReminder,
			Name:        "Health Check Reminder",
			Title:       "Health check: {{title}}",
			Body:        "Hi {{name}}, please record your {{title}} today. {{message}}",
			Type:        TypePush,
			MessageType: MessageReminder,
		},
		{
			ID:          TemplateCustomReminder,
			Name:        "Reminder",
			Title:       "{{title}}",
			Body:        "{{message}}",
			Type:        TypePush,
			MessageType: MessageReminder,
		},
		{
			ID:          TemplateEmergencyAlert,
			Name:        "Emergency Alert",
			Title:       "Emergency alert from {{name}}",
			Body:        "{{message}}",
			Type:        TypeSMS,
			MessageType: MessageEmergency,
		},
		{
			ID:          TemplateBenefitClaimUpdate,
			Name:        "Benefit Claim Update",
			Title:       "Benefit claim {{status}}",
			Body:        "Your claim for {{benefit}} (ref {{reference}}) is now {{status}}.",
			Type:        TypePush,
			MessageType: MessageBenefit,
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Get returns a copy of the template with the given id.
func (e *TemplateEngine) Get(templateID string) (Template, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.templates[templateID]
	if !ok {
		return Template{}, false
	}
	return *t, true
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are
// removed, and the result is trimmed.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (title, body string, err error) {
	t, ok := e.Get(templateID)
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	title, body = t.Title, t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		title = strings.ReplaceAll(title, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return cleanup(title), cleanup(body), nil
}

// cleanup drops unfilled placeholders and collapses the whitespace they leave.
func cleanup(s string) string {
	for {
		start := strings.Index(s, "{{")
		if start < 0 {
			break
		}
		end := strings.Index(s[start:], "}}")
		if end < 0 {
			break
		}
		s = s[:start] + s[start+end+2:]
	}
	return strings.Join(strings.Fields(s), " ")
}
