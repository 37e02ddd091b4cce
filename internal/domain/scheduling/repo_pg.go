package scheduling

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schedula/schedula/internal/domain/identity"
	"github.com/schedula/schedula/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const apptCols = `id, patient_id, provider_id, date, time_of_day, status, notes, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, patient_id, provider_id, date, time_of_day, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.PatientID, a.ProviderID, a.Date, a.TimeOfDay, a.Status, a.Notes,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch {
			case pgErr.Code == "23505" && pgErr.ConstraintName == "appointments_active_slot_key":
				return ErrSlotAlreadyBooked
			case pgErr.Code == "23503" && pgErr.ConstraintName == "appointments_patient_id_fkey":
				return identity.ErrPatientNotFound
			case pgErr.Code == "23503" && pgErr.ConstraintName == "appointments_provider_id_fkey":
				return identity.ErrProviderNotFound
			}
		}
		return err
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments
		SET date = $2, time_of_day = $3, status = $4, notes = $5, updated_at = now()
		WHERE id = $1`,
		a.ID, a.Date, a.TimeOfDay, a.Status, a.Notes,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "appointments_active_slot_key" {
			return ErrSlotAlreadyBooked
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *repoPG) FindActiveBySlot(ctx context.Context, providerID, date, timeOfDay string, excludeID uuid.UUID) (*Appointment, error) {
	query := `SELECT ` + apptCols + ` FROM appointments
		WHERE provider_id = $1 AND date = $2 AND time_of_day = $3 AND status <> $4`
	args := []interface{}{providerID, date, timeOfDay, StatusCancelled}
	if excludeID != uuid.Nil {
		query += ` AND id <> $5`
		args = append(args, excludeID)
	}

	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, query, args...))
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointments
		WHERE patient_id = $1
		ORDER BY date, time_of_day`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *repoPG) ListActiveByProviderDate(ctx context.Context, providerID, date string) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointments
		WHERE provider_id = $1 AND date = $2 AND status <> $3
		ORDER BY time_of_day`, providerID, date, StatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *repoPG) CompletePastAppointments(ctx context.Context, date, timeOfDay string) (int64, error) {
	// Zero-padded date and time strings order lexicographically.
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments
		SET status = $1, updated_at = now()
		WHERE status = $2 AND (date < $3 OR (date = $3 AND time_of_day < $4))`,
		StatusCompleted, StatusScheduled, date, timeOfDay,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.ProviderID, &a.Date, &a.TimeOfDay,
		&a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]*Appointment, error) {
	appts := []*Appointment{}
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.ProviderID, &a.Date, &a.TimeOfDay,
			&a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		appts = append(appts, &a)
	}
	return appts, rows.Err()
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
