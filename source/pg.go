package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// NewPool opens a pgx pool to the scheduling database and pings it.
func NewPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// PGReader reads appointments from the scheduling database.
type PGReader struct {
	db queryable
}

// NewPGReader creates a reader over a pool (or a single connection/tx).
func NewPGReader(db queryable) *PGReader {
	return &PGReader{db: db}
}

// The service name wins over the free-text service type when both exist.
const appointmentSelect = `SELECT a.id, a.appointment_time,
	COALESCE(NULLIF(s.name, ''), a.service_type, ''), a.status,
	d.full_name,
	p.full_name, p.patient_code, p.date_of_birth, p.gender
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	LEFT JOIN services s ON s.id = a.service_id
	LEFT JOIN doctors d ON d.id = a.doctor_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.ScheduledAt, &a.ProcedureText, &a.Status,
		&a.DoctorName,
		&a.Patient.Name, &a.Patient.ExternalID, &a.Patient.BirthDate, &a.Patient.Sex)
	return &a, err
}

// ListAppointments returns appointments with one of statuses (case-insensitive), ordered by id.
func (r *PGReader) ListAppointments(ctx context.Context, statuses []string) ([]Appointment, error) {
	lowered := make([]string, len(statuses))
	for i, s := range statuses {
		lowered[i] = strings.ToLower(s)
	}

	rows, err := r.db.Query(ctx, appointmentSelect+` WHERE lower(a.status) = ANY($1) ORDER BY a.id`, lowered)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return out, nil
}

// GetAppointment returns one appointment regardless of status.
func (r *PGReader) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	a, err := scanAppointment(r.db.QueryRow(ctx, appointmentSelect+` WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("query appointment %d: %w", id, err)
	}
	return a, nil
}
