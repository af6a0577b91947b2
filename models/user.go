package models

import (
	"strings"
	"time"
)

// Role is the kind of account a user holds
type Role string

const (
	RolePatient    Role = "patient"
	RoleTechnician Role = "technician"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleTechnician
}

// ParseRole converts a form value into a Role. An empty value defaults to patient.
func ParseRole(s string) (Role, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RolePatient, true
	}
	r := Role(s)
	return r, r.Valid()
}

// Profile holds the personal details a patient must fill in before booking
type Profile struct {
	FullName string `gorm:"column:full_name" bson:"full_name,omitempty" json:"full_name" form:"full_name"`
	Phone    string `gorm:"column:phone" bson:"phone,omitempty" json:"phone" form:"phone"`
	DOB      string `gorm:"column:dob" bson:"dob,omitempty" json:"dob" form:"dob"`
	Address  string `gorm:"column:address" bson:"address,omitempty" json:"address" form:"address"`
	Gender   string `gorm:"column:gender" bson:"gender,omitempty" json:"gender" form:"gender"`
}

// Complete reports whether every profile field is non-empty after trimming
func (p Profile) Complete() bool {
	for _, field := range []string{p.FullName, p.Phone, p.DOB, p.Address, p.Gender} {
		if strings.TrimSpace(field) == "" {
			return false
		}
	}
	return true
}

// User represents an account in the system (patient or technician)
type User struct {
	ID           string    `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Username     string    `gorm:"not null" bson:"username" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" bson:"email" json:"email"`
	PasswordHash string    `gorm:"column:password;not null" bson:"password" json:"-"`
	Role         Role      `gorm:"not null;default:'patient'" bson:"role" json:"role"`
	Profile      Profile   `gorm:"embedded" bson:",inline" json:"profile"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsProfileComplete is true for non-patients, and for patients whose
// five profile fields are all filled in
func (u *User) IsProfileComplete() bool {
	if u.Role != RolePatient {
		return true
	}
	return u.Profile.Complete()
}
