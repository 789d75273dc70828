package mail

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"

	"gorm.io/gorm"

	"github.com/fanlink/fanlink/app/models"
	"github.com/fanlink/fanlink/app/repository"
)

// ErrTemplateNotFound is returned when no template row matches the name.
var ErrTemplateNotFound = errors.New("email template not found")

// Renderer renders DB-stored email templates. Subject and body both run
// through html/template so placeholders like {{.Username}} work in either.
type Renderer struct {
	templates repository.EmailTemplateRepository
}

// NewRenderer creates a renderer backed by the email template repository.
func NewRenderer(templates repository.EmailTemplateRepository) *Renderer {
	return &Renderer{templates: templates}
}

// Render resolves the named template and executes it with the given data.
func (r *Renderer) Render(name string, data map[string]any) (subject, body string, err error) {
	tpl, err := r.templates.GetByName(name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
		}
		return "", "", err
	}
	return RenderTemplate(tpl, data)
}

// RenderTemplate executes an already-loaded template with the given data.
func RenderTemplate(tpl *models.EmailTemplate, data map[string]any) (subject, body string, err error) {
	subject, err = execute("subject", tpl.Subject, data)
	if err != nil {
		return "", "", fmt.Errorf("render subject of %s: %w", tpl.Name, err)
	}
	body, err = execute("body", tpl.Body, data)
	if err != nil {
		return "", "", fmt.Errorf("render body of %s: %w", tpl.Name, err)
	}
	return subject, body, nil
}

// SendTemplate renders the named template and sends the result.
func (r *Renderer) SendTemplate(to, name string, data map[string]any) error {
	subject, body, err := r.Render(name, data)
	if err != nil {
		return err
	}
	return SendMail(to, subject, body)
}

func execute(what, text string, data map[string]any) (string, error) {
	t, err := template.New(what).Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
