package domain

import "time"

// Contact represents a CRM contact owned by a real-estate agent.
// EmailNorm and PhoneNorm hold the normalized identity values used for
// import matching; they are maintained alongside the raw values on every write.
type Contact struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	OwnerID   string    `gorm:"type:text;not null;index;uniqueIndex:idx_contacts_owner_email,where:email_norm <> ''" json:"owner_id"`
	FirstName string    `gorm:"type:text" json:"first_name"`
	LastName  string    `gorm:"type:text" json:"last_name"`
	Email     string    `gorm:"type:text" json:"email"`
	EmailNorm string    `gorm:"type:text;uniqueIndex:idx_contacts_owner_email,where:email_norm <> ''" json:"-"`
	Phone     string    `gorm:"type:text" json:"phone"`
	PhoneNorm string    `gorm:"type:text;index:idx_contacts_phone" json:"-"`
	Company   string    `gorm:"type:text" json:"company"`
	Address   string    `gorm:"type:text" json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Contact.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Contact) TableName() string {
	return "contacts"
}

// FieldValue returns the contact's current value for a canonical import field.
// Parameters:
//   - field: canonical field name (FieldFirstName, FieldEmail, ...).
// Returns:
//   - string: current value, empty if the field is unknown.
func (c *Contact) FieldValue(field string) string {
	switch field {
	case FieldFirstName:
		return c.FirstName
	case FieldLastName:
		return c.LastName
	case FieldEmail:
		return c.Email
	case FieldPhone:
		return c.Phone
	case FieldCompany:
		return c.Company
	case FieldAddress:
		return c.Address
	}
	return ""
}

// SetFieldValue writes a canonical import field onto the contact.
// Unknown fields are ignored.
// Parameters:
//   - field: canonical field name.
//   - value: new value.
// Returns: none.
func (c *Contact) SetFieldValue(field, value string) {
	switch field {
	case FieldFirstName:
		c.FirstName = value
	case FieldLastName:
		c.LastName = value
	case FieldEmail:
		c.Email = value
	case FieldPhone:
		c.Phone = value
	case FieldCompany:
		c.Company = value
	case FieldAddress:
		c.Address = value
	}
}
