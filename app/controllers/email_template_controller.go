package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/fanlink/fanlink/app/models"
	"github.com/fanlink/fanlink/app/repository"
	"github.com/fanlink/fanlink/internal/pkg/mail"
)

type emailTemplateRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=100"`
	Subject string `json:"subject" validate:"required,min=1,max=255"`
	Body    string `json:"body" validate:"required"`
}

type emailTemplatePreviewRequest struct {
	Data map[string]any `json:"data"`
}

// HandleListEmailTemplates returns all templates. Admin only.
func HandleListEmailTemplates(c *fiber.Ctx) error {
	templates, err := repository.GetGlobalRepositories().EmailTemplate.GetAll()
	if err != nil {
		return internalError(c, "Failed to load templates")
	}
	return c.JSON(fiber.Map{"templates": templates})
}

// HandleGetEmailTemplate returns one template by id. Admin only.
func HandleGetEmailTemplate(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	tpl, err := repository.GetGlobalRepositories().EmailTemplate.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Template not found")
		}
		return internalError(c, "Failed to load template")
	}
	return c.JSON(tpl)
}

// HandleCreateEmailTemplate creates a template. Names are unique. Admin only.
func HandleCreateEmailTemplate(c *fiber.Ctx) error {
	var req emailTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	repos := repository.GetGlobalRepositories()
	exists, err := repos.EmailTemplate.NameExists(req.Name)
	if err != nil {
		return internalError(c, "Failed to create template")
	}
	if exists {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Template name already exists"})
	}

	tpl := &models.EmailTemplate{Name: req.Name, Subject: req.Subject, Body: req.Body}
	if err := repos.EmailTemplate.Create(tpl); err != nil {
		return internalError(c, "Failed to create template")
	}
	return c.Status(fiber.StatusCreated).JSON(tpl)
}

// HandleUpdateEmailTemplate updates a template. Admin only.
func HandleUpdateEmailTemplate(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	var req emailTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	repos := repository.GetGlobalRepositories()
	tpl, err := repos.EmailTemplate.GetByID(id)
	if err != nil {
		return notFound(c, "Template not found")
	}

	taken, err := repos.EmailTemplate.NameExistsExceptID(req.Name, id)
	if err != nil {
		return internalError(c, "Failed to update template")
	}
	if taken {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Template name already exists"})
	}

	tpl.Name = req.Name
	tpl.Subject = req.Subject
	tpl.Body = req.Body
	if err := repos.EmailTemplate.Update(tpl); err != nil {
		return internalError(c, "Failed to update template")
	}
	return c.JSON(tpl)
}

// HandleDeleteEmailTemplate removes a template. Admin only.
func HandleDeleteEmailTemplate(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	repos := repository.GetGlobalRepositories()
	if _, err := repos.EmailTemplate.GetByID(id); err != nil {
		return notFound(c, "Template not found")
	}
	if err := repos.EmailTemplate.Delete(id); err != nil {
		return internalError(c, "Failed to delete template")
	}
	return c.JSON(fiber.Map{"message": "Template deleted"})
}

// HandlePreviewEmailTemplate renders a template with sample data without
// sending anything. Admin only.
func HandlePreviewEmailTemplate(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, err)
	}
	var req emailTemplatePreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	tpl, err := repository.GetGlobalRepositories().EmailTemplate.GetByID(id)
	if err != nil {
		return notFound(c, "Template not found")
	}

	subject, body, err := mail.RenderTemplate(tpl, req.Data)
	if err != nil {
		return badRequest(c, "Template render failed: "+err.Error())
	}
	return c.JSON(fiber.Map{"subject": subject, "body": body})
}
