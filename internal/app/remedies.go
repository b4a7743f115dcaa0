package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"darshanline/internal/notify"
	"darshanline/internal/util"
	"darshanline/pkg/domain"
	"darshanline/pkg/remedypdf"
)

// ListRemedyTemplates returns active templates for prescribers.
func (a *App) ListRemedyTemplates(actor domain.User) ([]domain.RemedyTemplate, error) {
	if !domain.Can(actor.Role, domain.CapPrescribe) && !domain.Can(actor.Role, domain.CapManageTemplates) {
		return nil, ErrForbidden
	}
	return a.store.ListRemedyTemplates()
}

// SaveRemedyTemplate creates or updates a template.
func (a *App) SaveRemedyTemplate(actor domain.User, t domain.RemedyTemplate) (domain.RemedyTemplate, error) {
	if !domain.Can(actor.Role, domain.CapManageTemplates) {
		return domain.RemedyTemplate{}, ErrForbidden
	}
	t.Name = strings.TrimSpace(t.Name)
	t.Instructions = strings.TrimSpace(t.Instructions)
	if t.Name == "" || t.Instructions == "" {
		return domain.RemedyTemplate{}, fmt.Errorf("name and instructions required")
	}
	now := time.Now().UTC()
	if t.ID == "" {
		t.ID = util.NewID()
		t.CreatedAt = now
		t.Active = true
	}
	t.UpdatedAt = now
	if err := a.store.SaveRemedyTemplate(t); err != nil {
		return domain.RemedyTemplate{}, fmt.Errorf("save template: %w", err)
	}
	return t, nil
}

// Prescribe attaches a remedy document to a consultation, renders the PDF
// into object storage, notifies the devotee, and queues delivery.
func (a *App) Prescribe(ctx context.Context, actor domain.User, appointmentID, templateID, customInstructions string) (domain.RemedyDocument, error) {
	if !domain.Can(actor.Role, domain.CapPrescribe) {
		return domain.RemedyDocument{}, ErrForbidden
	}
	if strings.TrimSpace(templateID) == "" {
		return domain.RemedyDocument{}, ErrTemplateRequired
	}
	session, ok, err := a.store.GetConsultationByAppointment(appointmentID)
	if err != nil {
		return domain.RemedyDocument{}, fmt.Errorf("fetch consultation: %w", err)
	}
	if !ok {
		return domain.RemedyDocument{}, ErrNotFound
	}
	if actor.Role == domain.RoleGuruji && session.GurujiID != actor.ID {
		return domain.RemedyDocument{}, ErrForbidden
	}
	tmpl, ok, err := a.store.GetRemedyTemplate(templateID)
	if err != nil {
		return domain.RemedyDocument{}, fmt.Errorf("fetch template: %w", err)
	}
	if !ok || !tmpl.Active {
		return domain.RemedyDocument{}, ErrNotFound
	}
	patient, ok, err := a.store.GetUserByID(session.PatientID)
	if err != nil {
		return domain.RemedyDocument{}, fmt.Errorf("fetch patient: %w", err)
	}
	if !ok {
		return domain.RemedyDocument{}, ErrNotFound
	}

	now := time.Now().UTC()
	doc := domain.RemedyDocument{
		ID:                 util.NewID(),
		SessionID:          session.ID,
		TemplateID:         tmpl.ID,
		UserID:             session.PatientID,
		GurujiID:           session.GurujiID,
		TemplateName:       tmpl.Name,
		GurujiName:         actor.Name,
		CustomInstructions: strings.TrimSpace(customInstructions),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	pdfBytes, err := remedypdf.Render(remedypdf.Document{
		PatientName:        patient.Name,
		GurujiName:         actor.Name,
		TemplateName:       tmpl.Name,
		Category:           tmpl.Category,
		Instructions:       tmpl.Instructions,
		Dosage:             tmpl.Dosage,
		Duration:           tmpl.Duration,
		CustomInstructions: doc.CustomInstructions,
		PrescribedAt:       now,
	})
	if err != nil {
		return domain.RemedyDocument{}, err
	}
	doc.PDFKey = fmt.Sprintf("remedies/%s/%s.pdf", doc.UserID, doc.ID)
	if err := a.objects.Put(ctx, doc.PDFKey, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), "application/pdf"); err != nil {
		return domain.RemedyDocument{}, fmt.Errorf("store pdf: %w", err)
	}
	if err := a.store.SaveRemedyDocument(doc); err != nil {
		return domain.RemedyDocument{}, fmt.Errorf("save remedy: %w", err)
	}

	_ = a.store.SaveNotification(domain.Notification{
		ID:        util.NewID(),
		UserID:    doc.UserID,
		Title:     "Remedy prescribed",
		Message:   fmt.Sprintf("%s prescribed %s for you.", actor.Name, tmpl.Name),
		Type:      domain.NotifyRemedy,
		Data:      map[string]string{"remedyId": doc.ID},
		CreatedAt: now,
	})
	_ = a.store.AppendAuditLog(domain.AuditLog{
		ID:         util.NewID(),
		UserID:     actor.ID,
		Action:     "REMEDY_PRESCRIBE",
		Resource:   "remedy_document",
		ResourceID: doc.ID,
		NewValues:  doc,
		CreatedAt:  now,
	})

	if a.deliveries != nil {
		if _, err := a.deliveries.Enqueue(ctx, doc.ID); err != nil {
			// delivery retries are best-effort; the document itself is saved
			_ = a.DeliverRemedy(ctx, doc.ID)
		}
	} else {
		_ = a.DeliverRemedy(ctx, doc.ID)
	}
	return doc, nil
}

// DeliverRemedy sends the remedy to the devotee's contact channel and marks
// delivery flags. It is the handler behind the delivery queue.
func (a *App) DeliverRemedy(ctx context.Context, remedyID string) error {
	doc, ok, err := a.store.GetRemedyDocument(remedyID)
	if err != nil {
		return fmt.Errorf("fetch remedy: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	user, ok, err := a.store.GetUserByID(doc.UserID)
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return ErrNotFound
	}

	url, err := a.objects.PresignGet(ctx, doc.PDFKey, 24*time.Hour)
	if err != nil {
		return fmt.Errorf("presign remedy pdf: %w", err)
	}
	channel := "sms"
	if user.Phone == "" {
		channel = "email"
	}
	if err := a.sender.Send(ctx, notify.Message{
		Channel:   channel,
		Recipient: user.Contact(),
		Subject:   "Your remedy document",
		Body:      fmt.Sprintf("Your remedy %s is ready: %s", doc.TemplateName, url),
		Data:      map[string]string{"remedyId": doc.ID},
	}); err != nil {
		return fmt.Errorf("send remedy: %w", err)
	}
	return a.store.MarkRemedyDelivered(doc.ID, channel == "email", channel == "sms", time.Now().UTC())
}

// MyRemedies returns the caller's prescriptions.
func (a *App) MyRemedies(actor domain.User) ([]domain.RemedyDocument, error) {
	return a.store.ListRemedyDocumentsByUser(actor.ID)
}

// RemedyPDF streams the stored PDF. Only the devotee, the prescribing
// practitioner, or staff may read it.
func (a *App) RemedyPDF(ctx context.Context, actor domain.User, id string) (io.ReadCloser, error) {
	doc, ok, err := a.store.GetRemedyDocument(id)
	if err != nil {
		return nil, fmt.Errorf("fetch remedy: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	if actor.ID != doc.UserID && actor.ID != doc.GurujiID && !domain.Staff(actor.Role) {
		return nil, ErrForbidden
	}
	return a.objects.Get(ctx, doc.PDFKey)
}

// SetConsultationNotes records the practitioner's notes on a session.
func (a *App) SetConsultationNotes(actor domain.User, appointmentID, notes string) (domain.ConsultationSession, error) {
	if !domain.Can(actor.Role, domain.CapPrescribe) {
		return domain.ConsultationSession{}, ErrForbidden
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return domain.ConsultationSession{}, ErrNotesRequired
	}
	session, ok, err := a.store.GetConsultationByAppointment(appointmentID)
	if err != nil {
		return domain.ConsultationSession{}, fmt.Errorf("fetch consultation: %w", err)
	}
	if !ok {
		return domain.ConsultationSession{}, ErrNotFound
	}
	if actor.Role == domain.RoleGuruji && session.GurujiID != actor.ID {
		return domain.ConsultationSession{}, ErrForbidden
	}
	if err := a.store.SetConsultationNotes(session.ID, notes); err != nil {
		return domain.ConsultationSession{}, fmt.Errorf("save notes: %w", err)
	}
	session.Notes = notes
	return session, nil
}
