package models

import "time"

// Known template names seeded by the migrations.
const (
	EmailTemplateWelcome       = "welcome"
	EmailTemplatePasswordReset = "password_reset"
	EmailTemplatePaymentDone   = "payment_succeeded"
	EmailTemplateSubCanceled   = "subscription_canceled"
)

// EmailTemplate holds an HTML body with Go template placeholders
// ({{.Username}}, {{.Link}} and friends). Templates are editable at
// runtime through the admin endpoints.
type EmailTemplate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(64);uniqueIndex" json:"name" validate:"required,min=1,max=64"`
	Subject   string    `gorm:"type:varchar(255)" json:"subject" validate:"required,min=1,max=255"`
	Body      string    `gorm:"type:text" json:"body" validate:"required"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
