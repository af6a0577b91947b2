package models

import "time"

// Report is the PDF result document attached to a completed booking
type Report struct {
	ID           string    `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	BookingID    string    `gorm:"not null;uniqueIndex" bson:"booking_id" json:"booking_id"`
	PatientID    string    `gorm:"not null;index" bson:"patient_id" json:"patient_id"`
	TechnicianID string    `gorm:"not null;index" bson:"technician_id" json:"technician_id"`
	Description  string    `bson:"description" json:"description"`
	FileName     string    `gorm:"column:pdf_url;not null;index" bson:"pdf_url" json:"pdf_url"`
	Timestamp    time.Time `gorm:"index" bson:"timestamp" json:"timestamp"`
}

// TableName specifies the table name for the Report model
func (Report) TableName() string {
	return "reports"
}
