package models

import "time"

type Customer struct {
	Id          uint       `json:"id" gorm:"primaryKey"`
	FirstName   string     `json:"first_name" gorm:"not null"`
	LastName    string     `json:"last_name" gorm:"not null"`
	CompanyName string     `json:"company_name"`
	Email       string     `json:"email" gorm:"index"`
	Phone       string     `json:"phone"`
	Address     string     `json:"address"`
	City        string     `json:"city"`
	Zip         string     `json:"zip"`
	Notes       string     `json:"notes"`
	ArchivedAt  *time.Time `json:"archived_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// DisplayName is the name used in customer-facing messages.
func (c *Customer) DisplayName() string {
	if c.FirstName == "" && c.LastName == "" {
		return c.CompanyName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
