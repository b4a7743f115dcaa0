package domain

import "time"

type UserRole string

const (
	RoleUser        UserRole = "USER"
	RoleCoordinator UserRole = "COORDINATOR"
	RoleGuruji      UserRole = "GURUJI"
	RoleAdmin       UserRole = "ADMIN"
)

type AppointmentStatus string

const (
	AppointmentBooked     AppointmentStatus = "BOOKED"
	AppointmentConfirmed  AppointmentStatus = "CONFIRMED"
	AppointmentCheckedIn  AppointmentStatus = "CHECKED_IN"
	AppointmentInProgress AppointmentStatus = "IN_PROGRESS"
	AppointmentCompleted  AppointmentStatus = "COMPLETED"
	AppointmentCancelled  AppointmentStatus = "CANCELLED"
	AppointmentNoShow     AppointmentStatus = "NO_SHOW"
)

type QueueStatus string

const (
	QueueWaiting    QueueStatus = "WAITING"
	QueueInProgress QueueStatus = "IN_PROGRESS"
	QueueCompleted  QueueStatus = "COMPLETED"
	QueueCancelled  QueueStatus = "CANCELLED"
)

type NotificationType string

const (
	NotifyCheckin     NotificationType = "checkin"
	NotifyQueueUpdate NotificationType = "queue_update"
	NotifyRemedy      NotificationType = "remedy"
	NotifySystem      NotificationType = "system"
)

// Queue arithmetic constants. The per-visit slot is a fixed planning figure,
// not a measured value; the read path refines it from same-day history.
const (
	ServiceSlotMinutes        = 15
	CheckinWindow             = 24 * time.Hour
	CheckinCooldown           = 10 * time.Second
	WaitWriteBackThresholdMin = 5
)

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Role      UserRole  `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Contact returns the preferred delivery address for the user.
func (u User) Contact() string {
	if u.Phone != "" {
		return u.Phone
	}
	return u.Email
}

type Appointment struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	GurujiID  string            `json:"gurujiId"`
	Date      time.Time         `json:"date"`
	StartTime time.Time         `json:"startTime"`
	EndTime   time.Time         `json:"endTime"`
	Status    AppointmentStatus `json:"status"`
	Priority  string            `json:"priority,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	// QRCode is the opaque signed payload encoded into the check-in QR image.
	QRCode      string     `json:"-"`
	CheckinCode string     `json:"checkinCode,omitempty"`
	CheckedInAt *time.Time `json:"checkedInAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type QueueEntry struct {
	ID            string      `json:"id"`
	AppointmentID string      `json:"appointmentId"`
	UserID        string      `json:"userId"`
	GurujiID      string      `json:"gurujiId"`
	Position      int         `json:"position"`
	Status        QueueStatus `json:"status"`
	// Priority is a display label only; ordering is FIFO by position.
	Priority             string     `json:"priority,omitempty"`
	EstimatedWaitMinutes int        `json:"estimatedWaitMinutes"`
	CheckedInAt          time.Time  `json:"checkedInAt"`
	StartedAt            *time.Time `json:"startedAt,omitempty"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// Active reports whether the entry still occupies the queue.
func (e QueueEntry) Active() bool {
	return e.Status == QueueWaiting || e.Status == QueueInProgress
}

type ConsultationSession struct {
	ID            string     `json:"id"`
	AppointmentID string     `json:"appointmentId"`
	PatientID     string     `json:"patientId"`
	GurujiID      string     `json:"gurujiId"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       *time.Time `json:"endTime,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type RemedyTemplate struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category,omitempty"`
	Instructions string    `json:"instructions"`
	Dosage       string    `json:"dosage,omitempty"`
	Duration     string    `json:"duration,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type RemedyDocument struct {
	ID                 string     `json:"id"`
	SessionID          string     `json:"sessionId"`
	TemplateID         string     `json:"templateId"`
	UserID             string     `json:"userId"`
	GurujiID           string     `json:"gurujiId"`
	TemplateName       string     `json:"templateName"`
	GurujiName         string     `json:"gurujiName"`
	CustomInstructions string     `json:"customInstructions,omitempty"`
	PDFKey             string     `json:"-"`
	EmailSent          bool       `json:"emailSent"`
	SMSSent            bool       `json:"smsSent"`
	DeliveredAt        *time.Time `json:"deliveredAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Type      NotificationType  `json:"type"`
	Read      bool              `json:"read"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

type AuditLog struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resourceId"`
	OldValues  any       `json:"oldValues,omitempty"`
	NewValues  any       `json:"newValues,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DayStats is the same-day dashboard aggregate.
type DayStats struct {
	TotalAppointments int `json:"totalAppointments"`
	CheckedIn         int `json:"checkedIn"`
	Completed         int `json:"completed"`
	Waiting           int `json:"waiting"`
	Pending           int `json:"pending"`
	Cancelled         int `json:"cancelled"`
}

// GurujiQueueSummary aggregates active queue entries per practitioner.
type GurujiQueueSummary struct {
	GurujiID       string `json:"gurujiId"`
	GurujiName     string `json:"gurujiName"`
	Waiting        int    `json:"waiting"`
	InProgress     int    `json:"inProgress"`
	AvgWaitMinutes int    `json:"avgWaitMinutes"`
}

// CanTransitionQueue reports whether a queue entry may move from one status to
// another. Terminal states never reverse.
func CanTransitionQueue(from, to QueueStatus) bool {
	switch from {
	case QueueWaiting:
		return to == QueueInProgress || to == QueueCancelled
	case QueueInProgress:
		return to == QueueCompleted || to == QueueCancelled
	default:
		return false
	}
}

// AppointmentStatusFor mirrors a queue status onto the linked appointment.
func AppointmentStatusFor(s QueueStatus) AppointmentStatus {
	switch s {
	case QueueInProgress:
		return AppointmentInProgress
	case QueueCompleted:
		return AppointmentCompleted
	case QueueCancelled:
		return AppointmentCancelled
	default:
		return AppointmentCheckedIn
	}
}
