package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Appointment maps to the appointments table. ProviderID, Date and TimeOfDay
// together name the slot the visit occupies; Date and TimeOfDay are the
// canonical zero-padded YYYY-MM-DD and HH:MM forms.
type Appointment struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	ProviderID string    `db:"provider_id" json:"provider_id"`
	Date       string    `db:"date" json:"date"`
	TimeOfDay  string    `db:"time_of_day" json:"time"`
	Status     string    `db:"status" json:"status"`
	Notes      string    `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Active reports whether the appointment still occupies its slot. Cancelled
// rows keep their history but free the slot.
func (a *Appointment) Active() bool {
	return a.Status != StatusCancelled
}
