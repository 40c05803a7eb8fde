package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	var schedule []byte

	err := row.Scan(
		&p.TherapistID,
		&p.Timezone,
		&schedule,
		&p.BufferTime,
		&p.MaxDailyAppointments,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &p.WeeklySchedule); err != nil {
			return nil, fmt.Errorf("decode weekly schedule: %w", err)
		}
	}
	return &p, nil
}

func scanBlockedTime(row pgx.Row) (*BlockedTime, error) {
	var b BlockedTime

	err := row.Scan(
		&b.ID,
		&b.TherapistID,
		&b.StartTime,
		&b.EndTime,
		&b.Reason,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockedTimeNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *PgStore) Profile(ctx context.Context, therapistID uuid.UUID) (*Profile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT therapist_id, timezone, weekly_schedule, buffer_minutes, max_daily_appointments, created_at, updated_at
		FROM availability_profiles
		WHERE therapist_id = $1
	`, therapistID)
	return scanProfile(row)
}

func (s *PgStore) WeeklyWindows(ctx context.Context, therapistID uuid.UUID, date Date) ([]Window, error) {
	return weeklyWindows(ctx, s, therapistID, date)
}

func (s *PgStore) BlockedIntervals(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]BlockedTime, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, therapist_id, start_time, end_time, reason, created_at
		FROM blocked_times
		WHERE therapist_id = $1
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`, therapistID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query blocked times: %w", err)
	}
	defer rows.Close()

	var out []BlockedTime
	for rows.Next() {
		b, err := scanBlockedTime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PgStore) SaveProfile(ctx context.Context, p Profile) (*Profile, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	schedule, err := json.Marshal(p.WeeklySchedule)
	if err != nil {
		return nil, fmt.Errorf("encode weekly schedule: %w", err)
	}
	tz := p.Timezone
	if tz == "" {
		tz = "UTC"
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO availability_profiles
			(therapist_id, timezone, weekly_schedule, buffer_minutes, max_daily_appointments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (therapist_id) DO UPDATE
		SET timezone = EXCLUDED.timezone,
		    weekly_schedule = EXCLUDED.weekly_schedule,
		    buffer_minutes = EXCLUDED.buffer_minutes,
		    max_daily_appointments = EXCLUDED.max_daily_appointments,
		    updated_at = now()
		RETURNING therapist_id, timezone, weekly_schedule, buffer_minutes, max_daily_appointments, created_at, updated_at
	`, p.TherapistID, tz, schedule, p.BufferTime, p.MaxDailyAppointments)
	return scanProfile(row)
}

func (s *PgStore) CreateBlockedTime(ctx context.Context, b BlockedTime) (*BlockedTime, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO blocked_times (id, therapist_id, start_time, end_time, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, therapist_id, start_time, end_time, reason, created_at
	`, b.ID, b.TherapistID, b.StartTime, b.EndTime, b.Reason)
	return scanBlockedTime(row)
}

func (s *PgStore) DeleteBlockedTime(ctx context.Context, therapistID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM blocked_times
		WHERE id = $1 AND therapist_id = $2
	`, id, therapistID)
	if err != nil {
		return fmt.Errorf("delete blocked time: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockedTimeNotFound
	}
	return nil
}
