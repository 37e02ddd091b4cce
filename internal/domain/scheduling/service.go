package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/schedula/schedula/internal/domain/identity"
	"github.com/schedula/schedula/internal/platform/db"
	"github.com/schedula/schedula/internal/platform/middleware"
	"github.com/schedula/schedula/internal/platform/slotlock"
)

// Directory resolves the people on either side of an appointment. It is
// satisfied by identity.Service.
type Directory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	GetProvider(ctx context.Context, id string) (*identity.Provider, error)
}

type Service struct {
	repo   Repository
	dir    Directory
	db     db.Beginner
	log    zerolog.Logger
	locker slotlock.Locker
}

func NewService(repo Repository, dir Directory, beginner db.Beginner) *Service {
	return &Service{repo: repo, dir: dir, db: beginner, log: zerolog.Nop()}
}

// SetLogger attaches a logger for advisory warnings. The default discards
// them.
func (s *Service) SetLogger(log zerolog.Logger) {
	s.log = log
}

// SetLocker attaches a distributed lock that serializes concurrent bookings
// of the same slot. Without one the database's unique index alone arbitrates
// races.
func (s *Service) SetLocker(l slotlock.Locker) {
	s.locker = l
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.db == nil {
		return fn(ctx)
	}
	return db.RunInTx(ctx, s.db, fn)
}

// BookingRequest carries everything needed to place an appointment.
type BookingRequest struct {
	PatientID  uuid.UUID `json:"patient_id"`
	ProviderID string    `json:"provider_id"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Notes      string    `json:"notes"`
}

// Book places an appointment if the requested slot is free. The slot check
// and the insert run in one transaction; the partial unique index on active
// slots backstops the check, so a concurrent booking that slips past it still
// comes back as ErrSlotAlreadyBooked.
func (s *Service) Book(ctx context.Context, req *BookingRequest) (*Appointment, error) {
	if req.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if req.ProviderID == "" {
		return nil, fmt.Errorf("provider_id is required")
	}
	date, timeOfDay, err := normalizeSlot(req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	notes := middleware.SanitizeString(req.Notes)

	if s.locker != nil {
		key := slotlock.Key(req.ProviderID, date, timeOfDay)
		token, err := s.locker.Acquire(ctx, key)
		switch {
		case errors.Is(err, slotlock.ErrSlotHeld):
			return nil, ErrSlotAlreadyBooked
		case err != nil:
			s.log.Warn().Err(err).Str("slot", key).
				Msg("slot lock unavailable, relying on database constraint")
		default:
			defer func() {
				if rerr := s.locker.Release(ctx, key, token); rerr != nil {
					s.log.Warn().Err(rerr).Str("slot", key).Msg("slot lock release failed")
				}
			}()
		}
	}

	var appt *Appointment
	err = s.inTx(ctx, func(ctx context.Context) error {
		if _, err := s.dir.GetPatient(ctx, req.PatientID); err != nil {
			return err
		}
		prov, err := s.dir.GetProvider(ctx, req.ProviderID)
		if err != nil {
			return err
		}
		if !prov.CoversSlot(date, timeOfDay) {
			s.log.Warn().
				Str("provider_id", prov.ID).
				Str("date", date).
				Str("time", timeOfDay).
				Msg("booking outside provider's declared availability")
		}

		existing, err := s.repo.FindActiveBySlot(ctx, req.ProviderID, date, timeOfDay, uuid.Nil)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrSlotAlreadyBooked
		}

		appt = &Appointment{
			PatientID:  req.PatientID,
			ProviderID: req.ProviderID,
			Date:       date,
			TimeOfDay:  timeOfDay,
			Status:     StatusScheduled,
			Notes:      notes,
		}
		return s.repo.Create(ctx, appt)
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// Reschedule moves an appointment to a new slot, leaving its status alone. The
// appointment's own slot is excluded from the conflict check, so moving to the
// slot it already holds succeeds.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, date, timeOfDay string) (*Appointment, error) {
	date, timeOfDay, err := normalizeSlot(date, timeOfDay)
	if err != nil {
		return nil, err
	}

	var appt *Appointment
	err = s.inTx(ctx, func(ctx context.Context) error {
		var err error
		appt, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		existing, err := s.repo.FindActiveBySlot(ctx, appt.ProviderID, date, timeOfDay, appt.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrSlotAlreadyBooked
		}

		appt.Date = date
		appt.TimeOfDay = timeOfDay
		return s.repo.Update(ctx, appt)
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// Cancel marks an appointment cancelled and returns the record. The row keeps
// its history; the slot it held becomes bookable again. Cancelling an already
// cancelled appointment rewrites it unchanged.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	appt.Status = StatusCancelled
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// ListForPatient returns the patient's full visit history, cancelled
// appointments included, ordered by slot.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	if _, err := s.dir.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListByPatient(ctx, patientID)
}

// ListActiveForProvider returns the provider's booked day: non-cancelled
// appointments on the given date, ordered by time.
func (s *Service) ListActiveForProvider(ctx context.Context, providerID, date string) ([]*Appointment, error) {
	if date == "" {
		return nil, fmt.Errorf("date is required")
	}
	if _, err := time.Parse(identity.DateLayout, date); err != nil {
		return nil, fmt.Errorf("date must be in YYYY-MM-DD form")
	}
	if _, err := s.dir.GetProvider(ctx, providerID); err != nil {
		return nil, err
	}
	return s.repo.ListActiveByProviderDate(ctx, providerID, date)
}

// normalizeSlot validates a date/time pair and returns it in the canonical
// zero-padded form slot identity is defined on.
func normalizeSlot(date, timeOfDay string) (string, string, error) {
	if date == "" {
		return "", "", fmt.Errorf("date is required")
	}
	d, err := time.Parse(identity.DateLayout, date)
	if err != nil {
		return "", "", fmt.Errorf("date must be in YYYY-MM-DD form")
	}
	if timeOfDay == "" {
		return "", "", fmt.Errorf("time is required")
	}
	t, err := time.Parse(identity.TimeLayout, timeOfDay)
	if err != nil {
		return "", "", fmt.Errorf("time must be in HH:MM form")
	}
	return d.Format(identity.DateLayout), t.Format(identity.TimeLayout), nil
}
