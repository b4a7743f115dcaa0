package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"darshanline/pkg/domain"
)

// MemoryStore is an in-memory Store used in tests and local development.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]domain.User
	appointments  map[string]domain.Appointment
	queue         map[string]domain.QueueEntry
	consultations map[string]domain.ConsultationSession
	templates     map[string]domain.RemedyTemplate
	remedies      map[string]domain.RemedyDocument
	notifications map[string]domain.Notification
	audit         []domain.AuditLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]domain.User),
		appointments:  make(map[string]domain.Appointment),
		queue:         make(map[string]domain.QueueEntry),
		consultations: make(map[string]domain.ConsultationSession),
		templates:     make(map[string]domain.RemedyTemplate),
		remedies:      make(map[string]domain.RemedyDocument),
		notifications: make(map[string]domain.Notification),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) SaveUser(u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok, nil
}

func (s *MemoryStore) GetUserByContact(contact string) (domain.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Phone == contact || u.Email == contact {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

func (s *MemoryStore) ListUsers() ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (s *MemoryStore) ListGurujis() ([]domain.User, error) {
	all, _ := s.ListUsers()
	res := make([]domain.User, 0)
	for _, u := range all {
		if u.Role == domain.RoleGuruji && u.Active {
			res = append(res, u)
		}
	}
	return res, nil
}

func (s *MemoryStore) UserCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *MemoryStore) SaveAppointment(a domain.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments[a.ID] = a
	return nil
}

func (s *MemoryStore) GetAppointment(id string) (domain.Appointment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	return a, ok, nil
}

func (s *MemoryStore) GetAppointmentByCheckinCode(code string) (domain.Appointment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.appointments {
		if a.CheckinCode == code {
			return a, true, nil
		}
	}
	return domain.Appointment{}, false, nil
}

func (s *MemoryStore) ListAppointmentsByUser(userID string) ([]domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]domain.Appointment, 0)
	for _, a := range s.appointments {
		if a.UserID == userID {
			res = append(res, a)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].StartTime.After(res[j].StartTime) })
	return res, nil
}

func (s *MemoryStore) ListAppointmentsByGuruji(gurujiID string, day time.Time) ([]domain.Appointment, error) {
	start, end := dayRange(day)
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]domain.Appointment, 0)
	for _, a := range s.appointments {
		if a.GurujiID == gurujiID && !a.StartTime.Before(start) && a.StartTime.Before(end) {
			res = append(res, a)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].StartTime.Before(res[j].StartTime) })
	return res, nil
}

func (s *MemoryStore) HasSlotConflict(gurujiID string, start time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.appointments {
		if a.GurujiID != gurujiID || !a.StartTime.Equal(start) {
			continue
		}
		switch a.Status {
		case domain.AppointmentCancelled, domain.AppointmentCompleted, domain.AppointmentNoShow:
		default:
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) SetAppointmentStatus(id string, status domain.AppointmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	s.appointments[id] = a
	return nil
}

func (s *MemoryStore) AdmitToQueue(entry domain.QueueEntry, note domain.Notification, audit domain.AuditLog) (domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.queue {
		if e.AppointmentID == entry.AppointmentID {
			return domain.QueueEntry{}, ErrDuplicateQueueEntry
		}
	}
	active := 0
	for _, e := range s.queue {
		if e.GurujiID == entry.GurujiID && e.Active() {
			active++
		}
	}
	entry.Position = active + 1
	entry.EstimatedWaitMinutes = entry.Position * domain.ServiceSlotMinutes
	entry.Status = domain.QueueWaiting
	s.queue[entry.ID] = entry

	a, ok := s.appointments[entry.AppointmentID]
	if ok {
		a.Status = domain.AppointmentCheckedIn
		checkedIn := entry.CheckedInAt
		a.CheckedInAt = &checkedIn
		a.UpdatedAt = time.Now().UTC()
		s.appointments[a.ID] = a
	}
	s.notifications[note.ID] = note
	audit.NewValues = entry
	s.audit = append(s.audit, audit)
	return entry, nil
}

func (s *MemoryStore) TransitionQueueEntry(entryID string, target domain.QueueStatus, note domain.Notification, audit domain.AuditLog) (domain.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.queue[entryID]
	if !ok {
		return domain.QueueEntry{}, ErrNotFound
	}
	if !domain.CanTransitionQueue(e.Status, target) {
		return domain.QueueEntry{}, ErrIllegalTransition
	}
	before := e
	now := time.Now().UTC()
	e.Status = target
	e.UpdatedAt = now
	switch target {
	case domain.QueueInProgress:
		e.StartedAt = &now
	case domain.QueueCompleted:
		e.CompletedAt = &now
	}
	s.queue[entryID] = e

	if a, ok := s.appointments[e.AppointmentID]; ok {
		a.Status = domain.AppointmentStatusFor(target)
		a.UpdatedAt = now
		s.appointments[a.ID] = a
	}

	switch target {
	case domain.QueueInProgress:
		exists := false
		for _, c := range s.consultations {
			if c.AppointmentID == e.AppointmentID {
				exists = true
				break
			}
		}
		if !exists {
			session := domain.ConsultationSession{
				ID:            uuid.NewString(),
				AppointmentID: e.AppointmentID,
				PatientID:     e.UserID,
				GurujiID:      e.GurujiID,
				StartTime:     now,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			s.consultations[session.ID] = session
		}
	case domain.QueueCompleted:
		for id, c := range s.consultations {
			if c.AppointmentID == e.AppointmentID && c.EndTime == nil {
				end := now
				c.EndTime = &end
				c.UpdatedAt = now
				s.consultations[id] = c
			}
		}
	}

	s.notifications[note.ID] = note
	audit.OldValues = before
	audit.NewValues = e
	s.audit = append(s.audit, audit)
	return e, nil
}

func (s *MemoryStore) GetQueueEntry(id string) (domain.QueueEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.queue[id]
	return e, ok, nil
}

func (s *MemoryStore) GetQueueEntryByAppointment(appointmentID string) (domain.QueueEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.queue {
		if e.AppointmentID == appointmentID {
			return e, true, nil
		}
	}
	return domain.QueueEntry{}, false, nil
}

func (s *MemoryStore) GetActiveQueueEntryByUser(userID string) (domain.QueueEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.queue {
		if e.UserID == userID && e.Active() {
			return e, true, nil
		}
	}
	return domain.QueueEntry{}, false, nil
}

func (s *MemoryStore) ListActiveQueueByGuruji(gurujiID string) ([]domain.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]domain.QueueEntry, 0)
	for _, e := range s.queue {
		if e.GurujiID == gurujiID && e.Active() {
			res = append(res, e)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Position < res[j].Position })
	return res, nil
}

func (s *MemoryStore) WaitingAheadCount(gurujiID string, position int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, e := range s.queue {
		if e.GurujiID == gurujiID && e.Status == domain.QueueWaiting && e.Position < position {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) AvgServiceMinutes(gurujiID string, day time.Time) (int, error) {
	start, end := dayRange(day)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total time.Duration
	n := 0
	for _, e := range s.queue {
		if e.GurujiID != gurujiID || e.Status != domain.QueueCompleted {
			continue
		}
		if e.StartedAt == nil || e.CompletedAt == nil {
			continue
		}
		if e.CompletedAt.Before(start) || !e.CompletedAt.Before(end) {
			continue
		}
		total += e.CompletedAt.Sub(*e.StartedAt)
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return int(total.Minutes()/float64(n) + 0.5), nil
}

func (s *MemoryStore) SetEstimatedWait(entryID string, minutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.queue[entryID]
	if !ok {
		return ErrNotFound
	}
	e.EstimatedWaitMinutes = minutes
	e.UpdatedAt = time.Now().UTC()
	s.queue[entryID] = e
	return nil
}

func (s *MemoryStore) GetConsultationByAppointment(appointmentID string) (domain.ConsultationSession, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.consultations {
		if c.AppointmentID == appointmentID {
			return c, true, nil
		}
	}
	return domain.ConsultationSession{}, false, nil
}

func (s *MemoryStore) SetConsultationNotes(id, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.consultations[id]
	if !ok {
		return ErrNotFound
	}
	c.Notes = notes
	c.UpdatedAt = time.Now().UTC()
	s.consultations[id] = c
	return nil
}

func (s *MemoryStore) SaveRemedyTemplate(t domain.RemedyTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = t
	return nil
}

func (s *MemoryStore) GetRemedyTemplate(id string) (domain.RemedyTemplate, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	return t, ok, nil
}

func (s *MemoryStore) ListRemedyTemplates() ([]domain.RemedyTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]domain.RemedyTemplate, 0)
	for _, t := range s.templates {
		if t.Active {
			res = append(res, t)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (s *MemoryStore) SaveRemedyDocument(d domain.RemedyDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remedies[d.ID] = d
	return nil
}

func (s *MemoryStore) GetRemedyDocument(id string) (domain.RemedyDocument, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.remedies[id]
	if !ok {
		return domain.RemedyDocument{}, false, nil
	}
	s.enrich(&d)
	return d, true, nil
}

func (s *MemoryStore) ListRemedyDocumentsByUser(userID string) ([]domain.RemedyDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]domain.RemedyDocument, 0)
	for _, d := range s.remedies {
		if d.UserID == userID {
			s.enrich(&d)
			res = append(res, d)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

// enrich resolves display names; callers hold the lock.
func (s *MemoryStore) enrich(d *domain.RemedyDocument) {
	if t, ok := s.templates[d.TemplateID]; ok {
		d.TemplateName = t.Name
	}
	if g, ok := s.users[d.GurujiID]; ok {
		d.GurujiName = g.Name
	}
}

func (s *MemoryStore) MarkRemedyDelivered(id string, email, sms bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.remedies[id]
	if !ok {
		return ErrNotFound
	}
	d.EmailSent = email
	d.SMSSent = sms
	delivered := at.UTC()
	d.DeliveredAt = &delivered
	d.UpdatedAt = time.Now().UTC()
	s.remedies[id] = d
	return nil
}

func (s *MemoryStore) SaveNotification(n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = n
	return nil
}

func (s *MemoryStore) GetNotification(id string) (domain.Notification, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[id]
	return n, ok, nil
}

func (s *MemoryStore) ListNotificationsByUser(userID string, unreadOnly bool) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]domain.Notification, 0)
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		res = append(res, n)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (s *MemoryStore) SetNotificationRead(id string, read bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return ErrNotFound
	}
	n.Read = read
	s.notifications[id] = n
	return nil
}

func (s *MemoryStore) MarkAllNotificationsRead(userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			s.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) DeleteNotification(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notifications, id)
	return nil
}

func (s *MemoryStore) AppendAuditLog(a domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, a)
	return nil
}

func (s *MemoryStore) ListAuditLogs(limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	res := make([]domain.AuditLog, 0, limit)
	for i := len(s.audit) - 1; i >= 0 && len(res) < limit; i-- {
		res = append(res, s.audit[i])
	}
	return res, nil
}

func (s *MemoryStore) DayStats(day time.Time) (domain.DayStats, error) {
	start, end := dayRange(day)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats domain.DayStats
	for _, a := range s.appointments {
		if a.StartTime.Before(start) || !a.StartTime.Before(end) {
			continue
		}
		stats.TotalAppointments++
		switch a.Status {
		case domain.AppointmentCheckedIn, domain.AppointmentInProgress:
			stats.CheckedIn++
		case domain.AppointmentCompleted:
			stats.Completed++
		case domain.AppointmentBooked, domain.AppointmentConfirmed:
			stats.Pending++
		case domain.AppointmentCancelled, domain.AppointmentNoShow:
			stats.Cancelled++
		}
	}
	for _, e := range s.queue {
		if e.Status == domain.QueueWaiting && !e.CheckedInAt.Before(start) && e.CheckedInAt.Before(end) {
			stats.Waiting++
		}
	}
	return stats, nil
}

func (s *MemoryStore) GurujiQueueSummaries() ([]domain.GurujiQueueSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byGuruji := make(map[string]*domain.GurujiQueueSummary)
	waitTotals := make(map[string]int)
	for _, e := range s.queue {
		if !e.Active() {
			continue
		}
		summary, ok := byGuruji[e.GurujiID]
		if !ok {
			summary = &domain.GurujiQueueSummary{GurujiID: e.GurujiID}
			if g, found := s.users[e.GurujiID]; found {
				summary.GurujiName = g.Name
			}
			byGuruji[e.GurujiID] = summary
		}
		if e.Status == domain.QueueWaiting {
			summary.Waiting++
			waitTotals[e.GurujiID] += e.EstimatedWaitMinutes
		} else {
			summary.InProgress++
		}
	}
	res := make([]domain.GurujiQueueSummary, 0, len(byGuruji))
	for id, summary := range byGuruji {
		if summary.Waiting > 0 {
			summary.AvgWaitMinutes = waitTotals[id] / summary.Waiting
		}
		res = append(res, *summary)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].GurujiID < res[j].GurujiID })
	return res, nil
}
