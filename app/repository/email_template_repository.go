package repository

import (
	"github.com/fanlink/fanlink/app/models"
	"gorm.io/gorm"
)

// emailTemplateRepository implements the EmailTemplateRepository interface
type emailTemplateRepository struct {
	db *gorm.DB
}

// NewEmailTemplateRepository creates a new email template repository instance
func NewEmailTemplateRepository(db *gorm.DB) EmailTemplateRepository {
	return &emailTemplateRepository{db: db}
}

// Create creates a new email template
func (r *emailTemplateRepository) Create(template *models.EmailTemplate) error {
	return r.db.Create(template).Error
}

// GetByID retrieves a template by its ID
func (r *emailTemplateRepository) GetByID(id uint) (*models.EmailTemplate, error) {
	var template models.EmailTemplate
	err := r.db.First(&template, id).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// GetByName retrieves a template by its unique name
func (r *emailTemplateRepository) GetByName(name string) (*models.EmailTemplate, error) {
	var template models.EmailTemplate
	err := r.db.Where("name = ?", name).First(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// GetAll retrieves all templates ordered by name
func (r *emailTemplateRepository) GetAll() ([]models.EmailTemplate, error) {
	var templates []models.EmailTemplate
	err := r.db.Order("name ASC").Find(&templates).Error
	return templates, err
}

// Update updates an existing template
func (r *emailTemplateRepository) Update(template *models.EmailTemplate) error {
	return r.db.Save(template).Error
}

// Delete removes a template by its ID
func (r *emailTemplateRepository) Delete(id uint) error {
	return r.db.Delete(&models.EmailTemplate{}, id).Error
}

// NameExists checks if a template with the given name exists
func (r *emailTemplateRepository) NameExists(name string) (bool, error) {
	var count int64
	err := r.db.Model(&models.EmailTemplate{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

// NameExistsExceptID checks if the name is taken by a different template
func (r *emailTemplateRepository) NameExistsExceptID(name string, id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.EmailTemplate{}).
		Where("name = ? AND id != ?", name, id).Count(&count).Error
	return count > 0, err
}
