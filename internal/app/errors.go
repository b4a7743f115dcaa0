package app

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	ErrContactRequired  = errors.New("phone or email required")
	ErrGurujiRequired   = errors.New("gurujiId required")
	ErrStartTimeInvalid = errors.New("startTime must be in the future")
	// ErrSlotTaken is returned when the practitioner already has a booking at
	// the requested time.
	ErrSlotTaken = errors.New("slot already booked")

	ErrAlreadyCheckedIn     = errors.New("appointment already checked in")
	ErrOutsideCheckinWindow = errors.New("check-in is only allowed within 24 hours of the appointment")
	ErrCheckinCooldown      = errors.New("please wait a moment before retrying check-in")
	ErrAppointmentNotOpen   = errors.New("appointment is not open for check-in")

	ErrTemplateRequired = errors.New("templateId required")
	ErrNotesRequired    = errors.New("notes text required")

	ErrTitleRequired = errors.New("title and message required")
	ErrNameRequired  = errors.New("name required")
	ErrUnknownRole   = errors.New("unknown role")
)
