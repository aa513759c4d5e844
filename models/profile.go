package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Roles a profile can hold.
const (
	RoleOwner      = "owner"
	RoleAdmin      = "admin"
	RoleTechnician = "technician"
	RoleSuperAdmin = "super_admin"
)

// Profile is a team member login. Lives in the public schema.
type Profile struct {
	Id        string    `json:"id" gorm:"primaryKey"`
	CompanyID string    `json:"company_id" gorm:"index"` // empty for super admins
	FirstName string    `json:"first_name" gorm:"not null"`
	LastName  string    `json:"last_name" gorm:"not null"`
	Email     string    `json:"email" gorm:"unique;not null"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role" gorm:"size:20;not null"`
	Password  []byte    `json:"-" gorm:"not null"`
	Active    bool      `json:"active" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (profile *Profile) BeforeCreate(tx *gorm.DB) (err error) {
	if profile.Id == "" {
		profile.Id = uuid.NewString()
	}
	return
}

// FullName joins first and last name.
func (profile *Profile) FullName() string {
	return profile.FirstName + " " + profile.LastName
}

func (profile *Profile) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return err
	}
	profile.Password = hashed
	return nil
}

func (profile *Profile) ComparePassword(password string) error {
	return bcrypt.CompareHashAndPassword(profile.Password, []byte(password))
}
