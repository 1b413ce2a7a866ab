package courier

import "strings"

// TemplateRenderer is an optional capability that renders notification
// content through project-specific templates. When supplied to the
// processor, it replaces the plain rendering strategy entirely.
//
// An accessor may return an empty string to leave the corresponding field
// absent; that is not an error.
type TemplateRenderer interface {
	// Subject renders the email subject for the notification.
	Subject(n Notification) (string, error)
	// HTML renders the HTML body for the notification.
	HTML(n Notification) (string, error)
	// Text renders the plain-text body for the notification.
	Text(n Notification) (string, error)
}

// renderer produces the transport-agnostic parts of the outgoing mail.
// The strategy is fixed at processor construction: plain when no
// TemplateRenderer was supplied, template otherwise.
type renderer interface {
	render(n Notification) (subject, html, text string, err error)
}

// newRenderer selects the rendering strategy for the given capability.
func newRenderer(tmpl TemplateRenderer) renderer {
	if tmpl == nil {
		return plainRenderer{}
	}
	return templateRenderer{tmpl: tmpl}
}

// plainRenderer assembles bodies directly from the notification payload.
type plainRenderer struct{}

func (plainRenderer) render(n Notification) (string, string, string, error) {
	var parts []string
	if n.Payload.Description != "" {
		parts = append(parts, n.Payload.Description)
	}
	if n.Payload.Link != "" {
		parts = append(parts, n.Payload.Link)
	}

	var html string
	if len(parts) > 0 {
		html = "<p>" + strings.Join(parts, "<br/>") + "</p>"
	}
	text := strings.Join(parts, "\n\n")

	return n.Payload.Title, html, text, nil
}

// templateRenderer delegates every field to the injected capability.
type templateRenderer struct {
	tmpl TemplateRenderer
}

func (r templateRenderer) render(n Notification) (string, string, string, error) {
	subject, err := r.tmpl.Subject(n)
	if err != nil {
		return "", "", "", err
	}
	html, err := r.tmpl.HTML(n)
	if err != nil {
		return "", "", "", err
	}
	text, err := r.tmpl.Text(n)
	if err != nil {
		return "", "", "", err
	}
	return subject, html, text, nil
}
