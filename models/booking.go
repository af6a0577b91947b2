package models

import "time"

// BookingStatus is the lifecycle state of a booking
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusAccepted  BookingStatus = "accepted"
	StatusCollected BookingStatus = "collected"
	StatusCompleted BookingStatus = "completed"
)

// Next returns the status that follows s, or false when s is terminal or unknown
func (s BookingStatus) Next() (BookingStatus, bool) {
	switch s {
	case StatusPending:
		return StatusAccepted, true
	case StatusAccepted:
		return StatusCollected, true
	case StatusCollected:
		return StatusCompleted, true
	}
	return "", false
}

// CanTransition reports whether moving from s to to follows the linear lifecycle
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	next, ok := s.Next()
	return ok && next == to
}

// Booking is a patient's request for a lab test home visit
type Booking struct {
	ID           string        `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	PatientID    string        `gorm:"not null;index" bson:"patient_id" json:"patient_id"`
	PatientName  string        `bson:"patient_name" json:"patient_name"`
	PatientEmail string        `bson:"patient_email" json:"patient_email"`
	PatientDOB   string        `gorm:"column:patient_dob" bson:"patient_dob" json:"patient_dob"`
	TestName     string        `gorm:"not null" bson:"test_name" json:"test_name"`
	Date         string        `gorm:"not null" bson:"date" json:"date"`
	Time         string        `gorm:"not null" bson:"time" json:"time"`
	Address      string        `bson:"address" json:"address"`
	Notes        string        `bson:"notes" json:"notes"`
	Status       BookingStatus `gorm:"not null;index;default:'pending'" bson:"status" json:"status"`
	TechID       *string       `gorm:"column:tech_id;index" bson:"tech_id,omitempty" json:"tech_id"`
	CreatedAt    time.Time     `gorm:"index" bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"updated_at"`
}

// TableName specifies the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}

// AssignedTo reports whether the booking is bound to the given technician
func (b *Booking) AssignedTo(techID string) bool {
	return b.TechID != nil && *b.TechID == techID
}
