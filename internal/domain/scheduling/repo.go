package scheduling

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Common errors returned by the scheduling store.
var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotAlreadyBooked   = errors.New("slot is already booked")
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	// FindActiveBySlot returns the non-cancelled appointment occupying the
	// given slot, or nil when the slot is free. A non-nil excludeID leaves
	// that appointment out of the check so a reschedule can land on its own
	// slot.
	FindActiveBySlot(ctx context.Context, providerID, date, timeOfDay string, excludeID uuid.UUID) (*Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error)
	ListActiveByProviderDate(ctx context.Context, providerID, date string) ([]*Appointment, error)
	// CompletePastAppointments flips scheduled appointments whose slot lies
	// before the given date and time to completed, returning how many rows
	// changed.
	CompletePastAppointments(ctx context.Context, date, timeOfDay string) (int64, error)
}
