package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"darshanline/pkg/domain"
)

const migrateLockID int64 = 52415241

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock
// so that concurrent instances do not race the schema.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		return tx.AutoMigrate(
			&UserModel{},
			&AppointmentModel{},
			&QueueEntryModel{},
			&ConsultationSessionModel{},
			&RemedyTemplateModel{},
			&RemedyDocumentModel{},
			&NotificationModel{},
			&AuditLogModel{},
		)
	}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// queueLockID derives a stable advisory lock key for a practitioner's queue.
// Admissions for the same practitioner serialize on it; different
// practitioners hash to independent keys.
func queueLockID(gurujiID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(gurujiID))
	return int64(h.Sum64())
}

// users

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "phone", "role", "active", "updated_at"}),
	}).Create(&model).Error
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByContact looks up a user by phone or email.
func (s *GormStore) GetUserByContact(contact string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("phone = ? OR email = ?", contact, contact).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListUsers returns all users ordered by created_at.
func (s *GormStore) ListUsers() ([]domain.User, error) {
	return s.listUsers(nil)
}

// ListGurujis returns active practitioners.
func (s *GormStore) ListGurujis() ([]domain.User, error) {
	return s.listUsers(map[string]any{"role": string(domain.RoleGuruji), "active": true})
}

func (s *GormStore) listUsers(conds map[string]any) ([]domain.User, error) {
	var models []UserModel
	tx := s.db.Order("created_at ASC")
	if len(conds) > 0 {
		tx = tx.Where(conds)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// UserCount returns number of users.
func (s *GormStore) UserCount() (int, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// appointments

// SaveAppointment stores or updates an appointment.
func (s *GormStore) SaveAppointment(a domain.Appointment) error {
	model := appointmentToModel(a)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "priority", "reason", "checked_in_at", "updated_at"}),
	}).Create(&model).Error
}

// GetAppointment retrieves an appointment.
func (s *GormStore) GetAppointment(id string) (domain.Appointment, bool, error) {
	var model AppointmentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Appointment{}, false, nil
		}
		return domain.Appointment{}, false, err
	}
	return appointmentFromModel(model), true, nil
}

// GetAppointmentByCheckinCode resolves the short code used for staff-assisted
// check-in.
func (s *GormStore) GetAppointmentByCheckinCode(code string) (domain.Appointment, bool, error) {
	var model AppointmentModel
	if err := s.db.First(&model, "checkin_code = ?", code).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Appointment{}, false, nil
		}
		return domain.Appointment{}, false, err
	}
	return appointmentFromModel(model), true, nil
}

// ListAppointmentsByUser returns a user's appointments, newest first.
func (s *GormStore) ListAppointmentsByUser(userID string) ([]domain.Appointment, error) {
	var models []AppointmentModel
	if err := s.db.Where("user_id = ?", userID).Order("start_time DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return appointmentsFromModels(models), nil
}

// ListAppointmentsByGuruji returns a practitioner's appointments for a day.
func (s *GormStore) ListAppointmentsByGuruji(gurujiID string, day time.Time) ([]domain.Appointment, error) {
	start, end := dayRange(day)
	var models []AppointmentModel
	if err := s.db.Where("guruji_id = ? AND start_time >= ? AND start_time < ?", gurujiID, start, end).
		Order("start_time ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return appointmentsFromModels(models), nil
}

// HasSlotConflict reports whether the practitioner already has a non-terminal
// appointment at the start time.
func (s *GormStore) HasSlotConflict(gurujiID string, start time.Time) (bool, error) {
	var count int64
	err := s.db.Model(&AppointmentModel{}).
		Where("guruji_id = ? AND start_time = ? AND status NOT IN ?",
			gurujiID, start.UTC(),
			[]string{string(domain.AppointmentCancelled), string(domain.AppointmentCompleted), string(domain.AppointmentNoShow)}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetAppointmentStatus updates only the status column.
func (s *GormStore) SetAppointmentStatus(id string, status domain.AppointmentStatus) error {
	return s.db.Model(&AppointmentModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		}).Error
}

// queue

// AdmitToQueue inserts a queue entry with position assigned from the current
// active depth for the practitioner. The count, insert, appointment update,
// notification, and audit row share one transaction. Admissions for the same
// practitioner serialize on a per-guruji advisory lock held for the
// transaction, so concurrent check-ins cannot claim the same position even
// when the queue is empty and there are no rows to lock.
func (s *GormStore) AdmitToQueue(entry domain.QueueEntry, note domain.Notification, audit domain.AuditLog) (domain.QueueEntry, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", queueLockID(entry.GurujiID)).Error; err != nil {
			return err
		}
		var existing int64
		if err := tx.Model(&QueueEntryModel{}).
			Where("appointment_id = ?", entry.AppointmentID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateQueueEntry
		}

		var active []QueueEntryModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("guruji_id = ? AND status IN ?", entry.GurujiID,
				[]string{string(domain.QueueWaiting), string(domain.QueueInProgress)}).
			Find(&active).Error; err != nil {
			return err
		}
		entry.Position = len(active) + 1
		entry.EstimatedWaitMinutes = entry.Position * domain.ServiceSlotMinutes
		entry.Status = domain.QueueWaiting

		model := queueEntryToModel(entry)
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		if err := tx.Model(&AppointmentModel{}).
			Where("id = ?", entry.AppointmentID).
			Updates(map[string]any{
				"status":        string(domain.AppointmentCheckedIn),
				"checked_in_at": entry.CheckedInAt,
				"updated_at":    time.Now().UTC(),
			}).Error; err != nil {
			return err
		}
		noteModel := notificationToModel(note)
		if err := tx.Create(&noteModel).Error; err != nil {
			return err
		}
		audit.NewValues = entry
		auditModel := auditToModel(audit)
		return tx.Create(&auditModel).Error
	})
	if err != nil {
		return domain.QueueEntry{}, err
	}
	return entry, nil
}

// TransitionQueueEntry moves an entry between statuses, mirrors the linked
// appointment, opens/closes the consultation session, and records the
// notification and audit row, all in one transaction.
func (s *GormStore) TransitionQueueEntry(entryID string, target domain.QueueStatus, note domain.Notification, audit domain.AuditLog) (domain.QueueEntry, error) {
	var result domain.QueueEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model QueueEntryModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", entryID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNotFound
			}
			return err
		}
		before := queueEntryFromModel(model)
		if !domain.CanTransitionQueue(before.Status, target) {
			return ErrIllegalTransition
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":     string(target),
			"updated_at": now,
		}
		switch target {
		case domain.QueueInProgress:
			updates["started_at"] = now
		case domain.QueueCompleted:
			updates["completed_at"] = now
		}
		if err := tx.Model(&QueueEntryModel{}).Where("id = ?", entryID).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Model(&AppointmentModel{}).
			Where("id = ?", model.AppointmentID).
			Updates(map[string]any{
				"status":     string(domain.AppointmentStatusFor(target)),
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		switch target {
		case domain.QueueInProgress:
			session := ConsultationSessionModel{
				ID:            uuid.NewString(),
				AppointmentID: model.AppointmentID,
				PatientID:     model.UserID,
				GurujiID:      model.GurujiID,
				StartTime:     now,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "appointment_id"}},
				DoNothing: true,
			}).Create(&session).Error; err != nil {
				return err
			}
		case domain.QueueCompleted:
			if err := tx.Model(&ConsultationSessionModel{}).
				Where("appointment_id = ? AND end_time IS NULL", model.AppointmentID).
				Updates(map[string]any{"end_time": now, "updated_at": now}).Error; err != nil {
				return err
			}
		}

		noteModel := notificationToModel(note)
		if err := tx.Create(&noteModel).Error; err != nil {
			return err
		}

		var after QueueEntryModel
		if err := tx.First(&after, "id = ?", entryID).Error; err != nil {
			return err
		}
		result = queueEntryFromModel(after)

		audit.OldValues = before
		audit.NewValues = result
		auditModel := auditToModel(audit)
		return tx.Create(&auditModel).Error
	})
	if err != nil {
		return domain.QueueEntry{}, err
	}
	return result, nil
}

// GetQueueEntry retrieves one entry.
func (s *GormStore) GetQueueEntry(id string) (domain.QueueEntry, bool, error) {
	var model QueueEntryModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.QueueEntry{}, false, nil
		}
		return domain.QueueEntry{}, false, err
	}
	return queueEntryFromModel(model), true, nil
}

// GetQueueEntryByAppointment retrieves the entry linked to an appointment.
func (s *GormStore) GetQueueEntryByAppointment(appointmentID string) (domain.QueueEntry, bool, error) {
	var model QueueEntryModel
	if err := s.db.First(&model, "appointment_id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.QueueEntry{}, false, nil
		}
		return domain.QueueEntry{}, false, err
	}
	return queueEntryFromModel(model), true, nil
}

// GetActiveQueueEntryByUser returns the user's open entry, if any.
func (s *GormStore) GetActiveQueueEntryByUser(userID string) (domain.QueueEntry, bool, error) {
	var model QueueEntryModel
	err := s.db.Where("user_id = ? AND status IN ?", userID,
		[]string{string(domain.QueueWaiting), string(domain.QueueInProgress)}).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.QueueEntry{}, false, nil
		}
		return domain.QueueEntry{}, false, err
	}
	return queueEntryFromModel(model), true, nil
}

// ListActiveQueueByGuruji returns open entries in FIFO position order.
func (s *GormStore) ListActiveQueueByGuruji(gurujiID string) ([]domain.QueueEntry, error) {
	var models []QueueEntryModel
	if err := s.db.Where("guruji_id = ? AND status IN ?", gurujiID,
		[]string{string(domain.QueueWaiting), string(domain.QueueInProgress)}).
		Order("position ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.QueueEntry, 0, len(models))
	for _, m := range models {
		res = append(res, queueEntryFromModel(m))
	}
	return res, nil
}

// WaitingAheadCount counts WAITING entries ahead of the given position.
func (s *GormStore) WaitingAheadCount(gurujiID string, position int) (int, error) {
	var count int64
	err := s.db.Model(&QueueEntryModel{}).
		Where("guruji_id = ? AND status = ? AND position < ?",
			gurujiID, string(domain.QueueWaiting), position).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// AvgServiceMinutes averages completed consultation durations for the
// practitioner on the given day. Returns 0 when no entry completed yet.
func (s *GormStore) AvgServiceMinutes(gurujiID string, day time.Time) (int, error) {
	start, end := dayRange(day)
	var avg sql.NullFloat64
	err := s.db.Model(&QueueEntryModel{}).
		Select("AVG(EXTRACT(EPOCH FROM (completed_at - started_at)) / 60)").
		Where("guruji_id = ? AND status = ? AND started_at IS NOT NULL AND completed_at >= ? AND completed_at < ?",
			gurujiID, string(domain.QueueCompleted), start, end).
		Scan(&avg).Error
	if err != nil {
		return 0, err
	}
	if !avg.Valid || avg.Float64 <= 0 {
		return 0, nil
	}
	return int(avg.Float64 + 0.5), nil
}

// SetEstimatedWait writes back a refreshed estimate.
func (s *GormStore) SetEstimatedWait(entryID string, minutes int) error {
	return s.db.Model(&QueueEntryModel{}).
		Where("id = ?", entryID).
		Updates(map[string]any{
			"estimated_wait_minutes": minutes,
			"updated_at":             time.Now().UTC(),
		}).Error
}

// consultations

// GetConsultationByAppointment returns the session linked to an appointment.
func (s *GormStore) GetConsultationByAppointment(appointmentID string) (domain.ConsultationSession, bool, error) {
	var model ConsultationSessionModel
	if err := s.db.First(&model, "appointment_id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ConsultationSession{}, false, nil
		}
		return domain.ConsultationSession{}, false, err
	}
	return consultationFromModel(model), true, nil
}

// SetConsultationNotes updates the practitioner's notes.
func (s *GormStore) SetConsultationNotes(id, notes string) error {
	return s.db.Model(&ConsultationSessionModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"notes": notes, "updated_at": time.Now().UTC()}).Error
}

// remedies

// SaveRemedyTemplate stores or updates a template.
func (s *GormStore) SaveRemedyTemplate(t domain.RemedyTemplate) error {
	model := remedyTemplateToModel(t)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "category", "instructions", "dosage", "duration", "active", "updated_at"}),
	}).Create(&model).Error
}

// GetRemedyTemplate retrieves a template.
func (s *GormStore) GetRemedyTemplate(id string) (domain.RemedyTemplate, bool, error) {
	var model RemedyTemplateModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.RemedyTemplate{}, false, nil
		}
		return domain.RemedyTemplate{}, false, err
	}
	return remedyTemplateFromModel(model), true, nil
}

// ListRemedyTemplates returns active templates, name order.
func (s *GormStore) ListRemedyTemplates() ([]domain.RemedyTemplate, error) {
	var models []RemedyTemplateModel
	if err := s.db.Where("active = ?", true).Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.RemedyTemplate, 0, len(models))
	for _, m := range models {
		res = append(res, remedyTemplateFromModel(m))
	}
	return res, nil
}

// SaveRemedyDocument stores a prescribed document.
func (s *GormStore) SaveRemedyDocument(d domain.RemedyDocument) error {
	model := remedyDocumentToModel(d)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"custom_instructions", "pdf_key", "email_sent", "sms_sent", "delivered_at", "updated_at"}),
	}).Create(&model).Error
}

// GetRemedyDocument retrieves one document with template/practitioner names
// resolved.
func (s *GormStore) GetRemedyDocument(id string) (domain.RemedyDocument, bool, error) {
	var model RemedyDocumentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.RemedyDocument{}, false, nil
		}
		return domain.RemedyDocument{}, false, err
	}
	docs := []domain.RemedyDocument{remedyDocumentFromModel(model)}
	if err := s.enrichRemedyDocs(docs); err != nil {
		return domain.RemedyDocument{}, false, err
	}
	return docs[0], true, nil
}

// ListRemedyDocumentsByUser returns the user's prescriptions, newest first,
// with template and practitioner names resolved.
func (s *GormStore) ListRemedyDocumentsByUser(userID string) ([]domain.RemedyDocument, error) {
	var models []RemedyDocumentModel
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	docs := make([]domain.RemedyDocument, 0, len(models))
	for _, m := range models {
		docs = append(docs, remedyDocumentFromModel(m))
	}
	if err := s.enrichRemedyDocs(docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *GormStore) enrichRemedyDocs(docs []domain.RemedyDocument) error {
	for i := range docs {
		var tmpl RemedyTemplateModel
		if err := s.db.First(&tmpl, "id = ?", docs[i].TemplateID).Error; err == nil {
			docs[i].TemplateName = tmpl.Name
		}
		var guruji UserModel
		if err := s.db.First(&guruji, "id = ?", docs[i].GurujiID).Error; err == nil {
			docs[i].GurujiName = guruji.Name
		}
	}
	return nil
}

// MarkRemedyDelivered flips delivery flags.
func (s *GormStore) MarkRemedyDelivered(id string, email, sms bool, at time.Time) error {
	return s.db.Model(&RemedyDocumentModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"email_sent":   email,
			"sms_sent":     sms,
			"delivered_at": at.UTC(),
			"updated_at":   time.Now().UTC(),
		}).Error
}

// notifications

// SaveNotification stores one notification.
func (s *GormStore) SaveNotification(n domain.Notification) error {
	model := notificationToModel(n)
	return s.db.Create(&model).Error
}

// GetNotification retrieves one notification.
func (s *GormStore) GetNotification(id string) (domain.Notification, bool, error) {
	var model NotificationModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Notification{}, false, nil
		}
		return domain.Notification{}, false, err
	}
	return notificationFromModel(model), true, nil
}

// ListNotificationsByUser returns the user's notifications, newest first.
func (s *GormStore) ListNotificationsByUser(userID string, unreadOnly bool) ([]domain.Notification, error) {
	tx := s.db.Where("user_id = ?", userID)
	if unreadOnly {
		tx = tx.Where("read = ?", false)
	}
	var models []NotificationModel
	if err := tx.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Notification, 0, len(models))
	for _, m := range models {
		res = append(res, notificationFromModel(m))
	}
	return res, nil
}

// SetNotificationRead toggles the read flag.
func (s *GormStore) SetNotificationRead(id string, read bool) error {
	return s.db.Model(&NotificationModel{}).Where("id = ?", id).Update("read", read).Error
}

// MarkAllNotificationsRead marks every unread notification of the user and
// returns how many were updated.
func (s *GormStore) MarkAllNotificationsRead(userID string) (int, error) {
	res := s.db.Model(&NotificationModel{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

// DeleteNotification removes a notification.
func (s *GormStore) DeleteNotification(id string) error {
	return s.db.Delete(&NotificationModel{}, "id = ?", id).Error
}

// audit

// AppendAuditLog records one audit row.
func (s *GormStore) AppendAuditLog(a domain.AuditLog) error {
	model := auditToModel(a)
	return s.db.Create(&model).Error
}

// ListAuditLogs returns recent audit rows, newest first.
func (s *GormStore) ListAuditLogs(limit int) ([]domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var models []AuditLogModel
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.AuditLog, 0, len(models))
	for _, m := range models {
		res = append(res, auditFromModel(m))
	}
	return res, nil
}

// dashboard

// DayStats fans out the independent same-day count queries concurrently.
func (s *GormStore) DayStats(day time.Time) (domain.DayStats, error) {
	start, end := dayRange(day)
	var stats domain.DayStats
	g, _ := errgroup.WithContext(context.Background())

	countAppointments := func(dst *int, statuses ...string) func() error {
		return func() error {
			tx := s.db.Model(&AppointmentModel{}).
				Where("start_time >= ? AND start_time < ?", start, end)
			if len(statuses) > 0 {
				tx = tx.Where("status IN ?", statuses)
			}
			var count int64
			if err := tx.Count(&count).Error; err != nil {
				return err
			}
			*dst = int(count)
			return nil
		}
	}

	g.Go(countAppointments(&stats.TotalAppointments))
	g.Go(countAppointments(&stats.CheckedIn, string(domain.AppointmentCheckedIn), string(domain.AppointmentInProgress)))
	g.Go(countAppointments(&stats.Completed, string(domain.AppointmentCompleted)))
	g.Go(countAppointments(&stats.Pending, string(domain.AppointmentBooked), string(domain.AppointmentConfirmed)))
	g.Go(countAppointments(&stats.Cancelled, string(domain.AppointmentCancelled), string(domain.AppointmentNoShow)))
	g.Go(func() error {
		var count int64
		if err := s.db.Model(&QueueEntryModel{}).
			Where("status = ? AND checked_in_at >= ? AND checked_in_at < ?",
				string(domain.QueueWaiting), start, end).
			Count(&count).Error; err != nil {
			return err
		}
		stats.Waiting = int(count)
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.DayStats{}, err
	}
	return stats, nil
}

// GurujiQueueSummaries groups active entries per practitioner.
func (s *GormStore) GurujiQueueSummaries() ([]domain.GurujiQueueSummary, error) {
	type row struct {
		GurujiID   string
		Waiting    int
		InProgress int
		AvgWait    float64
	}
	var rows []row
	err := s.db.Model(&QueueEntryModel{}).
		Select(`guruji_id,
			COUNT(*) FILTER (WHERE status = 'WAITING') AS waiting,
			COUNT(*) FILTER (WHERE status = 'IN_PROGRESS') AS in_progress,
			COALESCE(AVG(estimated_wait_minutes) FILTER (WHERE status = 'WAITING'), 0) AS avg_wait`).
		Where("status IN ?", []string{string(domain.QueueWaiting), string(domain.QueueInProgress)}).
		Group("guruji_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.GurujiQueueSummary, 0, len(rows))
	for _, r := range rows {
		summary := domain.GurujiQueueSummary{
			GurujiID:       r.GurujiID,
			Waiting:        r.Waiting,
			InProgress:     r.InProgress,
			AvgWaitMinutes: int(r.AvgWait + 0.5),
		}
		var guruji UserModel
		if err := s.db.First(&guruji, "id = ?", r.GurujiID).Error; err == nil {
			summary.GurujiName = guruji.Name
		}
		res = append(res, summary)
	}
	return res, nil
}

// converters

func dayRange(day time.Time) (time.Time, time.Time) {
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

func toJSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      string(u.Role),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Phone:     m.Phone,
		Role:      domain.UserRole(m.Role),
		Active:    m.Active,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func appointmentToModel(a domain.Appointment) AppointmentModel {
	return AppointmentModel{
		ID:          a.ID,
		UserID:      a.UserID,
		GurujiID:    a.GurujiID,
		Date:        a.Date,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		Status:      string(a.Status),
		Priority:    a.Priority,
		Reason:      a.Reason,
		QRCode:      a.QRCode,
		CheckinCode: a.CheckinCode,
		CheckedInAt: a.CheckedInAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func appointmentFromModel(m AppointmentModel) domain.Appointment {
	return domain.Appointment{
		ID:          m.ID,
		UserID:      m.UserID,
		GurujiID:    m.GurujiID,
		Date:        m.Date,
		StartTime:   m.StartTime,
		EndTime:     m.EndTime,
		Status:      domain.AppointmentStatus(m.Status),
		Priority:    m.Priority,
		Reason:      m.Reason,
		QRCode:      m.QRCode,
		CheckinCode: m.CheckinCode,
		CheckedInAt: m.CheckedInAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func appointmentsFromModels(models []AppointmentModel) []domain.Appointment {
	res := make([]domain.Appointment, 0, len(models))
	for _, m := range models {
		res = append(res, appointmentFromModel(m))
	}
	return res
}

func queueEntryToModel(e domain.QueueEntry) QueueEntryModel {
	return QueueEntryModel{
		ID:                   e.ID,
		AppointmentID:        e.AppointmentID,
		UserID:               e.UserID,
		GurujiID:             e.GurujiID,
		Position:             e.Position,
		Status:               string(e.Status),
		Priority:             e.Priority,
		EstimatedWaitMinutes: e.EstimatedWaitMinutes,
		CheckedInAt:          e.CheckedInAt,
		StartedAt:            e.StartedAt,
		CompletedAt:          e.CompletedAt,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

func queueEntryFromModel(m QueueEntryModel) domain.QueueEntry {
	return domain.QueueEntry{
		ID:                   m.ID,
		AppointmentID:        m.AppointmentID,
		UserID:               m.UserID,
		GurujiID:             m.GurujiID,
		Position:             m.Position,
		Status:               domain.QueueStatus(m.Status),
		Priority:             m.Priority,
		EstimatedWaitMinutes: m.EstimatedWaitMinutes,
		CheckedInAt:          m.CheckedInAt,
		StartedAt:            m.StartedAt,
		CompletedAt:          m.CompletedAt,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func consultationFromModel(m ConsultationSessionModel) domain.ConsultationSession {
	return domain.ConsultationSession{
		ID:            m.ID,
		AppointmentID: m.AppointmentID,
		PatientID:     m.PatientID,
		GurujiID:      m.GurujiID,
		StartTime:     m.StartTime,
		EndTime:       m.EndTime,
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func remedyTemplateToModel(t domain.RemedyTemplate) RemedyTemplateModel {
	return RemedyTemplateModel{
		ID:           t.ID,
		Name:         t.Name,
		Category:     t.Category,
		Instructions: t.Instructions,
		Dosage:       t.Dosage,
		Duration:     t.Duration,
		Active:       t.Active,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func remedyTemplateFromModel(m RemedyTemplateModel) domain.RemedyTemplate {
	return domain.RemedyTemplate{
		ID:           m.ID,
		Name:         m.Name,
		Category:     m.Category,
		Instructions: m.Instructions,
		Dosage:       m.Dosage,
		Duration:     m.Duration,
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func remedyDocumentToModel(d domain.RemedyDocument) RemedyDocumentModel {
	return RemedyDocumentModel{
		ID:                 d.ID,
		SessionID:          d.SessionID,
		TemplateID:         d.TemplateID,
		UserID:             d.UserID,
		GurujiID:           d.GurujiID,
		CustomInstructions: d.CustomInstructions,
		PDFKey:             d.PDFKey,
		EmailSent:          d.EmailSent,
		SMSSent:            d.SMSSent,
		DeliveredAt:        d.DeliveredAt,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

func remedyDocumentFromModel(m RemedyDocumentModel) domain.RemedyDocument {
	return domain.RemedyDocument{
		ID:                 m.ID,
		SessionID:          m.SessionID,
		TemplateID:         m.TemplateID,
		UserID:             m.UserID,
		GurujiID:           m.GurujiID,
		CustomInstructions: m.CustomInstructions,
		PDFKey:             m.PDFKey,
		EmailSent:          m.EmailSent,
		SMSSent:            m.SMSSent,
		DeliveredAt:        m.DeliveredAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func notificationToModel(n domain.Notification) NotificationModel {
	return NotificationModel{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		Read:      n.Read,
		Data:      toJSON(n.Data),
		CreatedAt: n.CreatedAt,
	}
}

func notificationFromModel(m NotificationModel) domain.Notification {
	var data map[string]string
	if len(m.Data) > 0 {
		_ = json.Unmarshal(m.Data, &data)
	}
	return domain.Notification{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		Message:   m.Message,
		Type:      domain.NotificationType(m.Type),
		Read:      m.Read,
		Data:      data,
		CreatedAt: m.CreatedAt,
	}
}

func auditToModel(a domain.AuditLog) AuditLogModel {
	return AuditLogModel{
		ID:         a.ID,
		UserID:     a.UserID,
		Action:     a.Action,
		Resource:   a.Resource,
		ResourceID: a.ResourceID,
		OldValues:  toJSON(a.OldValues),
		NewValues:  toJSON(a.NewValues),
		CreatedAt:  a.CreatedAt,
	}
}

func auditFromModel(m AuditLogModel) domain.AuditLog {
	var oldVals, newVals any
	if len(m.OldValues) > 0 {
		_ = json.Unmarshal(m.OldValues, &oldVals)
	}
	if len(m.NewValues) > 0 {
		_ = json.Unmarshal(m.NewValues, &newVals)
	}
	return domain.AuditLog{
		ID:         m.ID,
		UserID:     m.UserID,
		Action:     m.Action,
		Resource:   m.Resource,
		ResourceID: m.ResourceID,
		OldValues:  oldVals,
		NewValues:  newVals,
		CreatedAt:  m.CreatedAt,
	}
}
