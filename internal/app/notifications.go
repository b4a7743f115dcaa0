package app

import (
	"fmt"
	"strings"
	"time"

	"darshanline/internal/util"
	"darshanline/pkg/domain"
)

// ListNotifications returns the caller's notifications, newest first.
func (a *App) ListNotifications(actor domain.User, unreadOnly bool) ([]domain.Notification, error) {
	return a.store.ListNotificationsByUser(actor.ID, unreadOnly)
}

// MarkNotificationRead flips the read flag on one of the caller's
// notifications.
func (a *App) MarkNotificationRead(actor domain.User, id string) (domain.Notification, error) {
	note, ok, err := a.store.GetNotification(id)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("fetch notification: %w", err)
	}
	if !ok {
		return domain.Notification{}, ErrNotFound
	}
	if note.UserID != actor.ID {
		return domain.Notification{}, ErrForbidden
	}
	if err := a.store.SetNotificationRead(id, true); err != nil {
		return domain.Notification{}, fmt.Errorf("mark read: %w", err)
	}
	note.Read = true
	return note, nil
}

// MarkAllNotificationsRead marks everything unread for the caller and
// returns the count.
func (a *App) MarkAllNotificationsRead(actor domain.User) (int, error) {
	return a.store.MarkAllNotificationsRead(actor.ID)
}

// DeleteNotification removes a notification. Owners may delete their own;
// admins may delete anyone's.
func (a *App) DeleteNotification(actor domain.User, id string) error {
	note, ok, err := a.store.GetNotification(id)
	if err != nil {
		return fmt.Errorf("fetch notification: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	if note.UserID != actor.ID && actor.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	return a.store.DeleteNotification(id)
}

// CreateNotification lets staff push an announcement to a devotee.
func (a *App) CreateNotification(actor domain.User, userID, title, message string) (domain.Notification, error) {
	if !domain.Can(actor.Role, domain.CapCreateNotification) {
		return domain.Notification{}, ErrForbidden
	}
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if title == "" || message == "" {
		return domain.Notification{}, ErrTitleRequired
	}
	if _, ok, err := a.store.GetUserByID(userID); err != nil {
		return domain.Notification{}, fmt.Errorf("fetch user: %w", err)
	} else if !ok {
		return domain.Notification{}, ErrNotFound
	}
	note := domain.Notification{
		ID:        util.NewID(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      domain.NotifySystem,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.SaveNotification(note); err != nil {
		return domain.Notification{}, fmt.Errorf("save notification: %w", err)
	}
	return note, nil
}
