// Package source reads scheduled appointments from the clinical scheduling
// database and projects the ultrasound ones into worklist entries. It never
// writes to the scheduling database.
package source

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAppointmentNotFound is returned when the scheduling store has no
	// appointment with the requested id.
	ErrAppointmentNotFound = errors.New("source: appointment not found")

	// ErrOutOfScope is returned by ExtractOne for appointments that exist but
	// do not belong on the worklist.
	ErrOutOfScope = errors.New("source: appointment not in worklist scope")
)

// Patient is the subset of the patient record the worklist needs.
type Patient struct {
	Name       string
	ExternalID *string
	BirthDate  *time.Time
	Sex        *string
}

// Appointment is a booking in the scheduling store.
type Appointment struct {
	ID            int64
	ScheduledAt   time.Time
	ProcedureText string // service name, or the raw service type when no service is linked
	Status        string
	DoctorName    *string
	Patient       Patient
}

// Reader is the read-only view of the scheduling store.
type Reader interface {
	// ListAppointments returns appointments whose status is one of statuses.
	ListAppointments(ctx context.Context, statuses []string) ([]Appointment, error)
	// GetAppointment returns ErrAppointmentNotFound for unknown ids.
	GetAppointment(ctx context.Context, id int64) (*Appointment, error)
}
