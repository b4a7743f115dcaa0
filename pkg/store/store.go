package store

import (
	"errors"
	"time"

	"darshanline/pkg/domain"
)

var (
	// ErrDuplicateQueueEntry is returned when an appointment already holds a
	// queue entry.
	ErrDuplicateQueueEntry = errors.New("appointment already has a queue entry")
	// ErrIllegalTransition is returned when a queue status change is not
	// allowed from the entry's current status.
	ErrIllegalTransition = errors.New("illegal queue status transition")
	// ErrNotFound is returned by transactional operations when the target row
	// does not exist.
	ErrNotFound = errors.New("record not found")
)

// Store defines persistence operations for users, appointments, the darshan
// queue, consultations, remedies, notifications, and audit logs.
type Store interface {
	// users
	SaveUser(domain.User) error
	GetUserByID(id string) (domain.User, bool, error)
	GetUserByContact(contact string) (domain.User, bool, error)
	ListUsers() ([]domain.User, error)
	ListGurujis() ([]domain.User, error)
	UserCount() (int, error)

	// appointments
	SaveAppointment(domain.Appointment) error
	GetAppointment(id string) (domain.Appointment, bool, error)
	GetAppointmentByCheckinCode(code string) (domain.Appointment, bool, error)
	ListAppointmentsByUser(userID string) ([]domain.Appointment, error)
	ListAppointmentsByGuruji(gurujiID string, day time.Time) ([]domain.Appointment, error)
	HasSlotConflict(gurujiID string, start time.Time) (bool, error)
	SetAppointmentStatus(id string, status domain.AppointmentStatus) error

	// queue. AdmitToQueue and TransitionQueueEntry are single transactions:
	// the count-then-insert on admission locks the rows it counts, and a
	// transition updates entry, appointment, consultation session,
	// notification, and audit row together.
	AdmitToQueue(entry domain.QueueEntry, note domain.Notification, audit domain.AuditLog) (domain.QueueEntry, error)
	TransitionQueueEntry(entryID string, target domain.QueueStatus, note domain.Notification, audit domain.AuditLog) (domain.QueueEntry, error)
	GetQueueEntry(id string) (domain.QueueEntry, bool, error)
	GetQueueEntryByAppointment(appointmentID string) (domain.QueueEntry, bool, error)
	GetActiveQueueEntryByUser(userID string) (domain.QueueEntry, bool, error)
	ListActiveQueueByGuruji(gurujiID string) ([]domain.QueueEntry, error)
	WaitingAheadCount(gurujiID string, position int) (int, error)
	AvgServiceMinutes(gurujiID string, day time.Time) (int, error)
	SetEstimatedWait(entryID string, minutes int) error

	// consultations
	GetConsultationByAppointment(appointmentID string) (domain.ConsultationSession, bool, error)
	SetConsultationNotes(id, notes string) error

	// remedies
	SaveRemedyTemplate(domain.RemedyTemplate) error
	GetRemedyTemplate(id string) (domain.RemedyTemplate, bool, error)
	ListRemedyTemplates() ([]domain.RemedyTemplate, error)
	SaveRemedyDocument(domain.RemedyDocument) error
	GetRemedyDocument(id string) (domain.RemedyDocument, bool, error)
	ListRemedyDocumentsByUser(userID string) ([]domain.RemedyDocument, error)
	MarkRemedyDelivered(id string, email, sms bool, at time.Time) error

	// notifications
	SaveNotification(domain.Notification) error
	GetNotification(id string) (domain.Notification, bool, error)
	ListNotificationsByUser(userID string, unreadOnly bool) ([]domain.Notification, error)
	SetNotificationRead(id string, read bool) error
	MarkAllNotificationsRead(userID string) (int, error)
	DeleteNotification(id string) error

	// audit
	AppendAuditLog(domain.AuditLog) error
	ListAuditLogs(limit int) ([]domain.AuditLog, error)

	// dashboard
	DayStats(day time.Time) (domain.DayStats, error)
	GurujiQueueSummaries() ([]domain.GurujiQueueSummary, error)
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
