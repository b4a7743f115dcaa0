package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"index"`
	Phone     string `gorm:"index"`
	Role      string `gorm:"not null"`
	Active    bool
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time
}

type AppointmentModel struct {
	ID          string    `gorm:"primaryKey"`
	UserID      string    `gorm:"not null;index"`
	GurujiID    string    `gorm:"not null;index"`
	Date        time.Time `gorm:"not null;index"`
	StartTime   time.Time `gorm:"not null"`
	EndTime     time.Time
	Status      string `gorm:"not null;index"`
	Priority    string
	Reason      string
	QRCode      string `gorm:"type:text"`
	CheckinCode string `gorm:"uniqueIndex"`
	CheckedInAt *time.Time
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type QueueEntryModel struct {
	ID                   string `gorm:"primaryKey"`
	AppointmentID        string `gorm:"not null;uniqueIndex"`
	UserID               string `gorm:"not null;index"`
	GurujiID             string `gorm:"not null;index"`
	Position             int    `gorm:"not null"`
	Status               string `gorm:"not null;index"`
	Priority             string
	EstimatedWaitMinutes int
	CheckedInAt          time.Time `gorm:"not null"`
	StartedAt            *time.Time
	CompletedAt          *time.Time
	CreatedAt            time.Time `gorm:"not null;index"`
	UpdatedAt            time.Time `gorm:"not null"`
}

type ConsultationSessionModel struct {
	ID            string    `gorm:"primaryKey"`
	AppointmentID string    `gorm:"not null;uniqueIndex"`
	PatientID     string    `gorm:"not null;index"`
	GurujiID      string    `gorm:"not null;index"`
	StartTime     time.Time `gorm:"not null"`
	EndTime       *time.Time
	Notes         string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

type RemedyTemplateModel struct {
	ID           string `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Category     string
	Instructions string `gorm:"type:text;not null"`
	Dosage       string
	Duration     string
	Active       bool
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

type RemedyDocumentModel struct {
	ID                 string `gorm:"primaryKey"`
	SessionID          string `gorm:"not null;index"`
	TemplateID         string `gorm:"not null;index"`
	UserID             string `gorm:"not null;index"`
	GurujiID           string `gorm:"not null;index"`
	CustomInstructions string `gorm:"type:text"`
	PDFKey             string
	EmailSent          bool
	SMSSent            bool
	DeliveredAt        *time.Time
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

type NotificationModel struct {
	ID        string         `gorm:"primaryKey"`
	UserID    string         `gorm:"not null;index"`
	Title     string         `gorm:"not null"`
	Message   string         `gorm:"type:text;not null"`
	Type      string         `gorm:"not null"`
	Read      bool           `gorm:"index"`
	Data      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null;index"`
}

type AuditLogModel struct {
	ID         string         `gorm:"primaryKey"`
	UserID     string         `gorm:"not null;index"`
	Action     string         `gorm:"not null"`
	Resource   string         `gorm:"not null;index"`
	ResourceID string         `gorm:"index"`
	OldValues  datatypes.JSON `gorm:"type:jsonb"`
	NewValues  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"not null;index"`
}
