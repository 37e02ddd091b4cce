package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schedula/schedula/internal/platform/db"
)

// -- Patient Repository --

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, name, dob, contact, created_at, updated_at`

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, name, dob, contact)
		VALUES ($1, $2, $3, $4)`,
		p.ID, p.Name, p.DOB, p.Contact,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "patients_identity_key" {
			return ErrPatientExists
		}
		return err
	}
	return nil
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByIdentity(ctx context.Context, name, dob string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE name = $1 AND dob = $2`, name, dob))
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatientRows(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.DOB, &p.Contact, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPatientRows(rows pgx.Rows) (*Patient, error) {
	var p Patient
	if err := rows.Scan(&p.ID, &p.Name, &p.DOB, &p.Contact, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// -- Provider Repository --

type providerRepoPG struct {
	pool *pgxpool.Pool
}

func NewProviderRepo(pool *pgxpool.Pool) ProviderRepository {
	return &providerRepoPG{pool: pool}
}

func (r *providerRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const providerCols = `id, name, department, experience, success_rate, qualification, room, availability, created_at, updated_at`

func (r *providerRepoPG) Create(ctx context.Context, prov *Provider) error {
	if prov.ID == "" {
		prov.ID = uuid.New().String()
	}
	if prov.Availability == nil {
		prov.Availability = []AvailabilityWindow{}
	}
	avail, err := json.Marshal(prov.Availability)
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO providers (id, name, department, experience, success_rate, qualification, room, availability)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		prov.ID, prov.Name, prov.Department, prov.Experience, prov.SuccessRate, prov.Qualification, prov.Room, avail,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// providers_pkey or providers_name_key
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrProviderExists
		}
		return err
	}
	return nil
}

func (r *providerRepoPG) GetByID(ctx context.Context, id string) (*Provider, error) {
	return scanProvider(r.conn(ctx).QueryRow(ctx, `SELECT `+providerCols+` FROM providers WHERE id = $1`, id))
}

func (r *providerRepoPG) GetByName(ctx context.Context, name string) (*Provider, error) {
	return scanProvider(r.conn(ctx).QueryRow(ctx, `SELECT `+providerCols+` FROM providers WHERE name = $1`, name))
}

func (r *providerRepoPG) Delete(ctx context.Context, id string) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM providers WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrProviderInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProviderNotFound
	}
	return nil
}

func (r *providerRepoPG) List(ctx context.Context, limit, offset int) ([]*Provider, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM providers`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+providerCols+` FROM providers ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectProviders(rows, total)
}

func (r *providerRepoPG) SearchByName(ctx context.Context, name string, limit, offset int) ([]*Provider, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM providers WHERE name ILIKE '%' || $1 || '%'`, name).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+providerCols+` FROM providers WHERE name ILIKE '%' || $1 || '%' ORDER BY name LIMIT $2 OFFSET $3`,
		name, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectProviders(rows, total)
}

func (r *providerRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM providers`).Scan(&n)
	return n, err
}

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	var avail []byte
	err := row.Scan(&p.ID, &p.Name, &p.Department, &p.Experience, &p.SuccessRate,
		&p.Qualification, &p.Room, &avail, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProviderNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(avail) > 0 {
		if err := json.Unmarshal(avail, &p.Availability); err != nil {
			return nil, fmt.Errorf("decode availability: %w", err)
		}
	}
	return &p, nil
}

func collectProviders(rows pgx.Rows, total int) ([]*Provider, int, error) {
	var providers []*Provider
	for rows.Next() {
		var p Provider
		var avail []byte
		if err := rows.Scan(&p.ID, &p.Name, &p.Department, &p.Experience, &p.SuccessRate,
			&p.Qualification, &p.Room, &avail, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if len(avail) > 0 {
			if err := json.Unmarshal(avail, &p.Availability); err != nil {
				return nil, 0, fmt.Errorf("decode availability: %w", err)
			}
		}
		providers = append(providers, &p)
	}
	return providers, total, rows.Err()
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
