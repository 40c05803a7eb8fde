package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/practice-booking/internal/db"
	"github.com/hackgods/practice-booking/internal/notify"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `id, therapist_id, client_id, start_time, end_time, duration_minutes, buffer_minutes,
	service_type, location, meeting_url, notes, summary, payment_amount::float8,
	status, cancellation_reason, cancelled_by,
	is_recurring, recurring_frequency, recurring_end_date, series_id,
	created_at, updated_at, confirmed_at, completed_at, cancelled_at, no_show_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	var frequency *string
	var endDate *time.Time

	err := row.Scan(
		&a.ID,
		&a.TherapistID,
		&a.ClientID,
		&a.StartTime,
		&a.EndTime,
		&a.Duration,
		&a.BufferMinutes,
		&a.ServiceType,
		&a.Location,
		&a.MeetingURL,
		&a.Notes,
		&a.Summary,
		&a.PaymentAmount,
		&status,
		&a.CancellationReason,
		&a.CancelledBy,
		&a.IsRecurring,
		&frequency,
		&endDate,
		&a.SeriesID,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.ConfirmedAt,
		&a.CompletedAt,
		&a.CancelledAt,
		&a.NoShowAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Status = Status(status)
	if frequency != nil {
		p := &RecurringPattern{Frequency: Frequency(*frequency)}
		if endDate != nil {
			p.EndDate = endDate.Format(time.DateOnly)
		}
		a.RecurringPattern = p
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanClient(row pgx.Row) (*Client, error) {
	var c Client

	err := row.Scan(
		&c.ID,
		&c.TherapistID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &c, nil
}

func recurringColumns(a Appointment) (*string, *time.Time) {
	if a.RecurringPattern == nil {
		return nil, nil
	}
	freq := string(a.RecurringPattern.Frequency)
	var end *time.Time
	if d, err := time.Parse(time.DateOnly, a.RecurringPattern.EndDate); err == nil {
		end = &d
	}
	return &freq, end
}

func nullableID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func activeStatuses() []string {
	return []string{string(StatusPending), string(StatusConfirmed)}
}

// Interface methods

func (r *PgRepository) GetAppointmentByID(ctx context.Context, therapistID, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND therapist_id = $2
	`, id, therapistID)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, int, error) {
	where := []string{"therapist_id = $1"}
	args := []any{f.TherapistID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.From != nil {
		add("start_time >= $%d", *f.From)
	}
	if f.To != nil {
		add("start_time < $%d", *f.To)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		add("status = ANY($%d)", statuses)
	}
	if f.ClientID != nil {
		add("client_id = $%d", *f.ClientID)
	}
	if f.ServiceType != "" {
		add("lower(service_type) = lower($%d)", f.ServiceType)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM appointments WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	order := "start_time ASC, id"
	switch f.Sort {
	case SortStartDesc:
		order = "start_time DESC, id"
	case SortCreatedDesc:
		order = "created_at DESC, id"
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM appointments
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, appointmentColumns, cond, order, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}

	items, err := collectAppointments(rows)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []Appointment{}
	}
	return items, total, nil
}

func (r *PgRepository) ListActiveInRange(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE therapist_id = $1
		  AND status = ANY($4)
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`, therapistID, from, to, activeStatuses())
	if err != nil {
		return nil, fmt.Errorf("list active appointments: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) CountActiveInRange(ctx context.Context, therapistID uuid.UUID, from, to time.Time, exclude uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE therapist_id = $1
		  AND status = ANY($4)
		  AND start_time >= $2
		  AND start_time < $3
		  AND ($5::uuid IS NULL OR id <> $5)
	`, therapistID, from, to, activeStatuses(), nullableID(exclude)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active appointments: %w", err)
	}
	return n, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	freq, endDate := recurringColumns(a)

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, therapist_id, client_id, start_time, end_time, duration_minutes, buffer_minutes, occupied_until,
			service_type, location, meeting_url, notes, summary, payment_amount, status,
			is_recurring, recurring_frequency, recurring_end_date, series_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, now(), now())
		RETURNING `+appointmentColumns,
		a.ID, a.TherapistID, a.ClientID, a.StartTime, a.EndTime, a.Duration, a.BufferMinutes, a.OccupiedUntil(),
		a.ServiceType, a.Location, a.MeetingURL, a.Notes, a.Summary, a.PaymentAmount, string(a.Status),
		a.IsRecurring, freq, endDate, a.SeriesID,
	)

	created, err := scanAppointment(row)
	if err != nil {
		if db.IsExclusionViolation(err) {
			return nil, ErrOverlap
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET client_id = $3,
		    start_time = $4,
		    end_time = $5,
		    duration_minutes = $6,
		    buffer_minutes = $7,
		    occupied_until = $8,
		    service_type = $9,
		    location = $10,
		    meeting_url = $11,
		    notes = $12,
		    summary = $13,
		    payment_amount = $14,
		    updated_at = now()
		WHERE id = $1 AND therapist_id = $2
		RETURNING `+appointmentColumns,
		a.ID, a.TherapistID, a.ClientID, a.StartTime, a.EndTime, a.Duration, a.BufferMinutes, a.OccupiedUntil(),
		a.ServiceType, a.Location, a.MeetingURL, a.Notes, a.Summary, a.PaymentAmount,
	)

	updated, err := scanAppointment(row)
	if err != nil {
		if db.IsExclusionViolation(err) {
			return nil, ErrOverlap
		}
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	return updated, nil
}

func (r *PgRepository) TransitionAppointment(ctx context.Context, a Appointment, from Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3,
		    summary = $4,
		    cancellation_reason = $5,
		    cancelled_by = $6,
		    confirmed_at = $7,
		    completed_at = $8,
		    cancelled_at = $9,
		    no_show_at = $10,
		    updated_at = now()
		WHERE id = $1
		  AND therapist_id = $2
		  AND status = $11
		RETURNING `+appointmentColumns,
		a.ID, a.TherapistID, string(a.Status), a.Summary, a.CancellationReason, a.CancelledBy,
		a.ConfirmedAt, a.CompletedAt, a.CancelledAt, a.NoShowAt, string(from),
	)

	updated, err := scanAppointment(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, ErrAppointmentNotFound) {
		return nil, fmt.Errorf("transition appointment: %w", err)
	}

	// Nothing matched: either the row is gone or someone else moved it first.
	if _, getErr := r.GetAppointmentByID(ctx, a.TherapistID, a.ID); getErr != nil {
		return nil, getErr
	}
	return nil, ErrInvalidTransition
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, therapistID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM appointments
		WHERE id = $1 AND therapist_id = $2
	`, id, therapistID)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) CountByStatus(ctx context.Context, therapistID uuid.UUID, from, to *time.Time) (map[Status]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, count(*)
		FROM appointments
		WHERE therapist_id = $1
		  AND ($2::timestamptz IS NULL OR start_time >= $2)
		  AND ($3::timestamptz IS NULL OR start_time < $3)
		GROUP BY status
	`, therapistID, from, to)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	out := make(map[Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[Status(status)] = n
	}
	return out, rows.Err()
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, therapist_id, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`, ev.EventType, ev.TherapistID, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

// ProcessUnpublished locks a batch with SKIP LOCKED so several relays can run side by side,
// and marks it published in the same transaction once publish succeeds.
func (r *PgRepository) ProcessUnpublished(ctx context.Context, limit int, publish func(context.Context, []notify.Event) error) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, event_type, therapist_id, appointment_id, payload, created_at
		FROM event_logs
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return 0, fmt.Errorf("select unpublished events: %w", err)
	}

	var batch []notify.Event
	var ids []int64
	for rows.Next() {
		var ev EventLog
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.TherapistID, &ev.AppointmentID, &ev.Payload, &ev.CreatedAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan event: %w", err)
		}
		batch = append(batch, toNotifyEvent(ev))
		ids = append(ids, ev.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, tx.Commit(ctx)
	}

	if err := publish(ctx, batch); err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, `UPDATE event_logs SET published_at = now() WHERE id = ANY($1)`, ids); err != nil {
		return 0, fmt.Errorf("mark events published: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(batch), nil
}

func (r *PgRepository) GetClient(ctx context.Context, therapistID, id uuid.UUID) (*Client, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, therapist_id, name, email, phone, created_at, updated_at
		FROM clients
		WHERE id = $1 AND therapist_id = $2
	`, id, therapistID)
	return scanClient(row)
}

func (r *PgRepository) ResolveClient(ctx context.Context, therapistID uuid.UUID, name string, email, phone *string) (*Client, error) {
	if email == nil {
		row := r.pool.QueryRow(ctx, `
			INSERT INTO clients (id, therapist_id, name, email, phone, created_at, updated_at)
			VALUES ($1, $2, $3, NULL, $4, now(), now())
			RETURNING id, therapist_id, name, email, phone, created_at, updated_at
		`, uuid.New(), therapistID, name, phone)
		return scanClient(row)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO clients (id, therapist_id, name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (therapist_id, lower(email)) WHERE email IS NOT NULL
		DO UPDATE SET name = COALESCE(NULLIF(EXCLUDED.name, ''), clients.name),
		              phone = COALESCE(EXCLUDED.phone, clients.phone),
		              updated_at = now()
		RETURNING id, therapist_id, name, email, phone, created_at, updated_at
	`, uuid.New(), therapistID, name, email, phone)
	return scanClient(row)
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
