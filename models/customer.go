package models

import "time"

// Customer is a contact or organization that owns zero or more leads.
// The (name, email) pair is unique.
type Customer struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"size:100;not null;uniqueIndex:idx_customers_name_email" json:"name"`
	Email   string `gorm:"size:254;not null;uniqueIndex:idx_customers_name_email" json:"email"`
	Phone   string `gorm:"size:20" json:"phone"`
	Company string `gorm:"size:100" json:"company"`

	CreatedAt time.Time `gorm:"<-:create" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Leads []Lead `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"leads,omitempty"`
}

// DisplayName is the company when known, the name otherwise.
func (c Customer) DisplayName() string {
	if c.Company != "" {
		return c.Company
	}
	return c.Name
}
