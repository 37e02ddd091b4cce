package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	patients  PatientRepository
	providers ProviderRepository
}

func NewService(patients PatientRepository, providers ProviderRepository) *Service {
	return &Service{patients: patients, providers: providers}
}

// -- Patient --

// RegisterPatient registers a new patient. The (name, dob) pair must be
// unused; registering it twice returns ErrPatientExists.
func (s *Service) RegisterPatient(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.DOB == "" {
		return fmt.Errorf("dob is required")
	}
	if _, err := time.Parse(DateLayout, p.DOB); err != nil {
		return fmt.Errorf("dob must be in YYYY-MM-DD form")
	}
	if _, err := s.patients.GetByIdentity(ctx, p.Name, p.DOB); err == nil {
		return ErrPatientExists
	} else if !errors.Is(err, ErrPatientNotFound) {
		return err
	}
	// The unique index on (name, dob) backstops this check under concurrent
	// registration; Create surfaces the violation as ErrPatientExists.
	return s.patients.Create(ctx, p)
}

// ResolvePatient looks a patient up by the (name, dob) natural key.
func (s *Service) ResolvePatient(ctx context.Context, name, dob string) (*Patient, error) {
	if name == "" || dob == "" {
		return nil, fmt.Errorf("name and dob are required")
	}
	return s.patients.GetByIdentity(ctx, name, dob)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

// -- Provider --

var validDays = map[string]bool{
	"monday":    true,
	"tuesday":   true,
	"wednesday": true,
	"thursday":  true,
	"friday":    true,
	"saturday":  true,
	"sunday":    true,
}

func (s *Service) AddProvider(ctx context.Context, prov *Provider) error {
	if prov.Name == "" {
		return fmt.Errorf("name is required")
	}
	if prov.Experience < 0 {
		return fmt.Errorf("experience cannot be negative")
	}
	if prov.SuccessRate < 0 || prov.SuccessRate > 100 {
		return fmt.Errorf("success_rate must be between 0 and 100")
	}
	for i, w := range prov.Availability {
		day := strings.ToLower(w.Day)
		if !validDays[day] {
			return fmt.Errorf("invalid availability day: %s", w.Day)
		}
		start, err := time.Parse(TimeLayout, w.Start)
		if err != nil {
			return fmt.Errorf("invalid availability start time: %s", w.Start)
		}
		end, err := time.Parse(TimeLayout, w.End)
		if err != nil {
			return fmt.Errorf("invalid availability end time: %s", w.End)
		}
		// The layout accepts unpadded hours; store canonical forms so window
		// comparisons stay lexicographic.
		prov.Availability[i] = AvailabilityWindow{
			Day:   day,
			Start: start.Format(TimeLayout),
			End:   end.Format(TimeLayout),
		}
		if prov.Availability[i].Start >= prov.Availability[i].End {
			return fmt.Errorf("availability window must start before it ends")
		}
	}
	return s.providers.Create(ctx, prov)
}

func (s *Service) GetProvider(ctx context.Context, id string) (*Provider, error) {
	return s.providers.GetByID(ctx, id)
}

// ResolveProviderByName looks a provider up by exact name. Names are unique,
// so at most one provider matches.
func (s *Service) ResolveProviderByName(ctx context.Context, name string) (*Provider, error) {
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	return s.providers.GetByName(ctx, name)
}

func (s *Service) SearchProviders(ctx context.Context, name string, limit, offset int) ([]*Provider, int, error) {
	if name == "" {
		return nil, 0, fmt.Errorf("name is required")
	}
	return s.providers.SearchByName(ctx, name, limit, offset)
}

func (s *Service) ListProviders(ctx context.Context, limit, offset int) ([]*Provider, int, error) {
	return s.providers.List(ctx, limit, offset)
}

func (s *Service) RemoveProvider(ctx context.Context, id string) error {
	return s.providers.Delete(ctx, id)
}

// ProviderCount reports how many providers are on the roster. The seeder
// uses it to refuse to seed into a non-empty table.
func (s *Service) ProviderCount(ctx context.Context) (int, error) {
	return s.providers.Count(ctx)
}
