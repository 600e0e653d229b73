// Package email renders notification bodies for the delivery API.
package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"taskpulse/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// dueDateLayout is how due dates appear in notification bodies.
const dueDateLayout = "Mon, Jan 2 2006 at 15:04 MST"

// Rendered is a notification ready to hand to the delivery API.
type Rendered struct {
	Subject string
	Body    string
	IsHTML  bool
}

type templateData struct {
	Subject       string
	RecipientName string
	Title         string
	Description   string
	DueDate       string
	Pattern       string
}

var subjectPrefixes = map[types.EventType]string{
	types.EventTaskCreated:      "New task",
	types.EventTaskUpdated:      "Task updated",
	types.EventTaskCompleted:    "Task completed",
	types.EventTaskDeleted:      "Task deleted",
	types.EventTaskDueSoon:      "Due soon",
	types.EventRecurringTaskDue: "Recurring task due",
}

// Renderer renders notification bodies with html/template from embedded
// files: templates/base.html plus one "content" block per event type.
type Renderer struct {
	templates map[types.EventType]*template.Template
	location  *time.Location
}

// NewRenderer parses the embedded templates. Due dates are shown in loc
// (UTC when nil).
func NewRenderer(loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.UTC
	}
	r := &Renderer{
		templates: make(map[types.EventType]*template.Template, len(types.AllEventTypes)),
		location:  loc,
	}

	baseHTML, err := templateFS.ReadFile("templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to read base.html: %w", err)
	}

	for _, et := range types.AllEventTypes {
		name := string(et)
		content, err := templateFS.ReadFile(fmt.Sprintf("templates/%s.html", name))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to read %s.html: %w", name, err)
		}
		tmpl, err := template.New("base").Parse(string(baseHTML))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to parse base.html: %w", err)
		}
		if _, err := tmpl.Parse(string(content)); err != nil {
			return nil, fmt.Errorf("renderer: failed to parse %s.html: %w", name, err)
		}
		r.templates[et] = tmpl
	}

	return r, nil
}

// Render produces the subject and HTML body for an event addressed to
// recipient. User-supplied fields are escaped by html/template.
func (r *Renderer) Render(eventType types.EventType, payload types.TaskPayload, recipient types.Recipient) (*Rendered, error) {
	tmpl, ok := r.templates[eventType]
	if !ok {
		return nil, fmt.Errorf("renderer: no template for event type %q", eventType)
	}

	data := r.buildTemplateData(eventType, payload, recipient)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("renderer: failed to render %q: %w", eventType, err)
	}

	return &Rendered{
		Subject: data.Subject,
		Body:    buf.String(),
		IsHTML:  true,
	}, nil
}

func (r *Renderer) buildTemplateData(eventType types.EventType, payload types.TaskPayload, recipient types.Recipient) templateData {
	name := recipient.Name
	if name == "" {
		name = "there"
	}

	var due string
	if payload.DueDate != nil {
		due = payload.DueDate.In(r.location).Format(dueDateLayout)
	}

	pattern := string(payload.Pattern)
	if pattern == "" {
		pattern = "recurring"
	}

	return templateData{
		Subject:       fmt.Sprintf("%s: %s", subjectPrefixes[eventType], payload.Title),
		RecipientName: name,
		Title:         payload.Title,
		Description:   payload.Description,
		DueDate:       due,
		Pattern:       pattern,
	}
}
