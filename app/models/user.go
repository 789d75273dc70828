package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// ResetTokenTTL limits how long a password reset link stays usable.
const ResetTokenTTL = 5 * time.Hour

type User struct {
	ID                     uint           `gorm:"primaryKey" json:"id"`
	Name                   string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email                  string         `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Password               string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role                   string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status                 string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	Bio                    string         `gorm:"type:text;default:null" json:"bio" validate:"max=1000"`
	AvatarURL              string         `gorm:"type:varchar(255);default:null" json:"avatar_url" validate:"max=255"`
	StripeCustomerID       string         `gorm:"type:varchar(191);default:null;index" json:"-"`
	StripeAccountID        string         `gorm:"type:varchar(191);default:null" json:"-"`
	ResetPasswordToken     string         `gorm:"type:varchar(100);default:null;index" json:"-"`
	ResetPasswordExpiresAt *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	LastLoginAt            *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt              time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func CreateUser(name string, email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:     name,
		Email:    email,
		Password: pw,
		Role:     ROLE_USER,
		Status:   STATUS_ACTIVE,
	}

	err = u.Validate()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// GenerateResetPasswordToken creates a reset token, stores only its SHA-256
// hash on the user, and returns the plaintext token for the reset link.
func (u *User) GenerateResetPasswordToken() string {
	token := uuid.NewString()
	u.ResetPasswordToken = HashResetToken(token)
	expiry := time.Now().Add(ResetTokenTTL)
	u.ResetPasswordExpiresAt = &expiry
	return token
}

// HashResetToken hashes a plaintext reset token the way it is stored.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IsResetTokenValid checks the presented token against the stored hash and expiry.
func (u *User) IsResetTokenValid(token string) bool {
	if u.ResetPasswordToken == "" || u.ResetPasswordExpiresAt == nil {
		return false
	}
	if u.ResetPasswordToken != HashResetToken(token) {
		return false
	}
	return time.Now().Before(*u.ResetPasswordExpiresAt)
}

// ClearResetToken removes a pending password reset request.
func (u *User) ClearResetToken() {
	u.ResetPasswordToken = ""
	u.ResetPasswordExpiresAt = nil
}
