package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is a registered tenant. Every review and insight belongs to a company.
type Company struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	Name         string    `db:"name"          json:"name"`
	Email        string    `db:"email"         json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Description  string    `db:"description"   json:"description"`
	Industry     string    `db:"industry"      json:"industry"`
	Products     []string  `db:"products"      json:"products"`
	Slug         string    `db:"slug"          json:"slug"`
	APIKey       string    `db:"api_key"       json:"api_key"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updated_at"`
}

// Context returns the prompt-injection view of the company profile.
func (c *Company) Context() TenantContext {
	return TenantContext{
		Name:        c.Name,
		Description: c.Description,
		Industry:    c.Industry,
		Products:    c.Products,
	}
}
