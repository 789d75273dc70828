package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanlink/fanlink/app/models"
)

func TestRenderTemplate(t *testing.T) {
	tpl := &models.EmailTemplate{
		Name:    "welcome",
		Subject: "Welcome, {{.Username}}!",
		Body:    "<p>Hi {{.Username}}, confirm at <a href=\"{{.Link}}\">this link</a>.</p>",
	}

	subject, body, err := RenderTemplate(tpl, map[string]any{
		"Username": "alice",
		"Link":     "https://example.com/confirm",
	})
	require.NoError(t, err)
	assert.Equal(t, "Welcome, alice!", subject)
	assert.Contains(t, body, "Hi alice")
	assert.Contains(t, body, "https://example.com/confirm")
}

func TestRenderTemplateEscapesHTML(t *testing.T) {
	tpl := &models.EmailTemplate{
		Name:    "welcome",
		Subject: "Hello {{.Username}}",
		Body:    "<p>{{.Username}}</p>",
	}

	_, body, err := RenderTemplate(tpl, map[string]any{
		"Username": "<script>alert(1)</script>",
	})
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
}

func TestRenderTemplateBadSyntax(t *testing.T) {
	tpl := &models.EmailTemplate{
		Name:    "broken",
		Subject: "ok",
		Body:    "{{.Unclosed",
	}

	_, _, err := RenderTemplate(tpl, nil)
	assert.Error(t, err)
}
