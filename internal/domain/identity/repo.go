package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Common errors returned by the identity store.
var (
	ErrPatientNotFound  = errors.New("patient not found")
	ErrPatientExists    = errors.New("patient already registered")
	ErrProviderNotFound = errors.New("provider not found")
	ErrProviderExists   = errors.New("provider already exists")
	ErrProviderInUse    = errors.New("provider has appointments on file")
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByIdentity(ctx context.Context, name, dob string) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}

type ProviderRepository interface {
	Create(ctx context.Context, prov *Provider) error
	GetByID(ctx context.Context, id string) (*Provider, error)
	GetByName(ctx context.Context, name string) (*Provider, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*Provider, int, error)
	SearchByName(ctx context.Context, name string, limit, offset int) ([]*Provider, int, error)
	Count(ctx context.Context) (int, error)
}
