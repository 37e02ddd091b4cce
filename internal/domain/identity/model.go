package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Canonical wire formats for calendar dates and slot times.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Patient maps to the patients table. The (name, dob) pair is the natural
// identity; ID is the surrogate key handed out at registration.
type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	DOB       string    `db:"dob" json:"dob"`
	Contact   string    `db:"contact" json:"contact,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AvailabilityWindow is one recurring block in a provider's weekly calendar.
// Day is a lowercase weekday name; Start and End are 24-hour HH:MM times.
type AvailabilityWindow struct {
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Provider maps to the providers table. IDs are caller-supplied opaque
// strings (the seeded roster uses doc1..doc20); a UUID is generated when
// none is given.
type Provider struct {
	ID            string               `db:"id" json:"id"`
	Name          string               `db:"name" json:"name"`
	Department    string               `db:"department" json:"department,omitempty"`
	Experience    int                  `db:"experience" json:"experience"`
	SuccessRate   float64              `db:"success_rate" json:"success_rate"`
	Qualification string               `db:"qualification" json:"qualification,omitempty"`
	Room          string               `db:"room" json:"room,omitempty"`
	Availability  []AvailabilityWindow `db:"availability" json:"availability,omitempty"`
	CreatedAt     time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time            `db:"updated_at" json:"updated_at"`
}

// CoversSlot reports whether a slot falls inside the provider's posted weekly
// availability. Availability is advisory and never blocks a booking; a
// provider with no posted windows covers everything.
func (p *Provider) CoversSlot(date, timeOfDay string) bool {
	if len(p.Availability) == 0 {
		return true
	}
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	day := strings.ToLower(d.Weekday().String())
	for _, w := range p.Availability {
		// Zero-padded HH:MM strings order lexicographically.
		if w.Day == day && w.Start <= timeOfDay && timeOfDay < w.End {
			return true
		}
	}
	return false
}
