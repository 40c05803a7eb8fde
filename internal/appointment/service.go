package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hackgods/practice-booking/internal/apperr"
	"github.com/hackgods/practice-booking/internal/availability"
	redisclient "github.com/hackgods/practice-booking/internal/redis"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentUpdated   = "APPOINTMENT_UPDATED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentNoShow    = "APPOINTMENT_NO_SHOW"
	EventAppointmentDeleted   = "APPOINTMENT_DELETED"
	EventSeriesCreated        = "SERIES_CREATED"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Options are the scheduler defaults, normally built from config.
type Options struct {
	SlotStep             time.Duration
	DefaultBufferMinutes int
	DefaultLocation      *time.Location
	MaxSeriesOccurrences int
	Now                  func() time.Time
}

type Service struct {
	repo    Repository
	clients ClientDirectory
	avail   availability.Store
	locker  redisclient.Locker
	checker *ConflictChecker
	slots   *SlotGenerator
	opts    Options
	logger  zerolog.Logger
	tracer  trace.Tracer
}

func NewService(repo Repository, clients ClientDirectory, avail availability.Store, locker redisclient.Locker, logger zerolog.Logger, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultLocation == nil {
		opts.DefaultLocation = time.UTC
	}
	if opts.MaxSeriesOccurrences <= 0 {
		opts.MaxSeriesOccurrences = 104
	}
	checker := NewConflictChecker(repo, avail, opts.DefaultBufferMinutes, opts.DefaultLocation)
	return &Service{
		repo:    repo,
		clients: clients,
		avail:   avail,
		locker:  locker,
		checker: checker,
		slots:   NewSlotGenerator(checker, repo, opts.SlotStep, opts.Now),
		opts:    opts,
		logger:  logger.With().Str("component", "appointment-service").Logger(),
		tracer:  otel.Tracer("github.com/hackgods/practice-booking/internal/appointment"),
	}
}

// CreateInput is a booking request. Either EndTime or Duration may be omitted; when both
// are given they must agree.
type CreateInput struct {
	TherapistID      uuid.UUID
	ClientID         uuid.UUID
	StartTime        time.Time
	EndTime          time.Time
	Duration         int
	ServiceType      string
	Location         string
	MeetingURL       string
	Notes            string
	PaymentAmount    float64
	IsRecurring      bool
	RecurringPattern *RecurringPattern
}

// SkippedOccurrence is a series candidate that was not booked.
type SkippedOccurrence struct {
	StartTime time.Time  `json:"startTime"`
	EndTime   time.Time  `json:"endTime"`
	Reason    string     `json:"reason"`
	Conflicts []Conflict `json:"conflicts"`
}

type SeriesResult struct {
	SeriesID uuid.UUID           `json:"seriesId"`
	Created  []Appointment       `json:"created"`
	Skipped  []SkippedOccurrence `json:"skipped"`
}

// normalizeTimes fills in EndTime or Duration and enforces duration == end - start.
func normalizeTimes(start, end time.Time, duration int) (time.Time, int, error) {
	if start.IsZero() {
		return time.Time{}, 0, apperr.Validation("missing_start_time", "startTime is required")
	}
	if duration < 0 || duration > MaxDurationMinutes {
		return time.Time{}, 0, ErrInvalidDuration
	}
	if end.IsZero() {
		if duration == 0 {
			return time.Time{}, 0, apperr.Validation("missing_end_time", "endTime or a positive duration is required")
		}
		end = start.Add(time.Duration(duration) * time.Minute)
	}
	if !end.After(start) {
		return time.Time{}, 0, ErrInvalidTimeRange
	}

	span := end.Sub(start)
	if span%time.Minute != 0 {
		return time.Time{}, 0, apperr.Validation("invalid_time_range", "appointment length must be a whole number of minutes")
	}
	minutes := int(span / time.Minute)
	if minutes > MaxDurationMinutes {
		return time.Time{}, 0, ErrInvalidDuration
	}
	if duration != 0 && duration != minutes {
		return time.Time{}, 0, ErrDurationMismatch
	}
	return end, minutes, nil
}

func (s *Service) validateCreate(ctx context.Context, in *CreateInput) error {
	if in.TherapistID == uuid.Nil {
		return apperr.Validation("missing_therapist_id", "therapistId is required")
	}
	if in.ClientID == uuid.Nil {
		return apperr.Validation("missing_client_id", "clientId is required")
	}
	if in.PaymentAmount < 0 {
		return apperr.Validation("invalid_payment_amount", "paymentAmount must be >= 0")
	}

	end, minutes, err := normalizeTimes(in.StartTime, in.EndTime, in.Duration)
	if err != nil {
		return err
	}
	in.EndTime, in.Duration = end, minutes

	if _, err := s.clients.GetClient(ctx, in.TherapistID, in.ClientID); err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return apperr.Validation("unknown_client", "clientId does not belong to this therapist")
		}
		return fmt.Errorf("load client: %w", err)
	}
	return nil
}

func (s *Service) withTherapistLock(ctx context.Context, therapistID uuid.UUID, fn func(ctx context.Context) error) error {
	err := s.locker.WithLock(ctx, redisclient.TherapistLockKey(therapistID), fn)
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrTherapistBusy
	}
	return err
}

func (s *Service) startSpan(ctx context.Context, name string, therapistID uuid.UUID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("therapist.id", therapistID.String())))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func conflictError(conflicts []Conflict) error {
	for _, c := range conflicts {
		if c.Kind == ConflictDailyCap {
			return ErrDailyCapReached.WithDetails(conflicts)
		}
	}
	return ErrOverlap.WithDetails(conflicts)
}

// Create books a single appointment in pending state. The conflict and cap checks and the
// insert run under the therapist lock.
func (s *Service) Create(ctx context.Context, in CreateInput) (_ *Appointment, err error) {
	ctx, span := s.startSpan(ctx, "appointment.Create", in.TherapistID)
	defer func() { endSpan(span, err) }()

	if err := s.validateCreate(ctx, &in); err != nil {
		return nil, err
	}
	return s.commitSingle(ctx, in)
}

func (s *Service) commitSingle(ctx context.Context, in CreateInput) (*Appointment, error) {
	var created *Appointment

	err := s.withTherapistLock(ctx, in.TherapistID, func(lockCtx context.Context) error {
		st, err := s.checker.Settings(lockCtx, in.TherapistID)
		if err != nil {
			return err
		}

		conflicts, err := s.conflictsFor(lockCtx, in.TherapistID, st, in.StartTime, in.EndTime, uuid.Nil)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return conflictError(conflicts)
		}

		appt, err := s.repo.CreateAppointment(lockCtx, newAppointment(in, st, nil))
		if err != nil {
			return err
		}
		created = appt

		s.logEvent(lockCtx, appt, EventAppointmentCreated, map[string]any{
			"clientId":  appt.ClientID.String(),
			"startTime": appt.StartTime,
			"endTime":   appt.EndTime,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// conflictsFor runs the full commit-time check: appointments, blocks and the daily cap.
func (s *Service) conflictsFor(ctx context.Context, therapistID uuid.UUID, st Settings, start, end time.Time, exclude uuid.UUID) ([]Conflict, error) {
	occ, err := s.checker.Occupancy(ctx, therapistID, st, start, end)
	if err != nil {
		return nil, err
	}
	conflicts := occ.Conflicts(Interval{Start: start, End: end}, exclude)

	capConflict, err := s.checker.DailyCapConflict(ctx, therapistID, st, start, exclude)
	if err != nil {
		return nil, err
	}
	if capConflict != nil {
		conflicts = append(conflicts, *capConflict)
	}
	return conflicts, nil
}

func newAppointment(in CreateInput, st Settings, series *uuid.UUID) Appointment {
	a := Appointment{
		ID:            uuid.New(),
		ClientID:      in.ClientID,
		TherapistID:   in.TherapistID,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		Duration:      in.Duration,
		ServiceType:   strings.TrimSpace(in.ServiceType),
		Location:      strings.TrimSpace(in.Location),
		MeetingURL:    strings.TrimSpace(in.MeetingURL),
		Notes:         in.Notes,
		PaymentAmount: in.PaymentAmount,
		Status:        StatusPending,
		BufferMinutes: int(st.Buffer / time.Minute),
	}
	if series != nil {
		a.IsRecurring = true
		a.SeriesID = series
		a.RecurringPattern = in.RecurringPattern
	}
	return a
}

// CreateSeries expands a recurring request and books every candidate that passes conflict
// and cap checks. Candidates that fail are reported, not fatal; if none can be booked the
// call fails with ErrSeriesConflict carrying the skipped list.
func (s *Service) CreateSeries(ctx context.Context, in CreateInput) (_ *SeriesResult, err error) {
	ctx, span := s.startSpan(ctx, "appointment.CreateSeries", in.TherapistID)
	defer func() { endSpan(span, err) }()

	if in.RecurringPattern == nil {
		return nil, apperr.Validation("missing_recurring_pattern", "recurringPattern is required for recurring appointments")
	}
	if err := s.validateCreate(ctx, &in); err != nil {
		return nil, err
	}

	result := &SeriesResult{SeriesID: uuid.New(), Created: []Appointment{}, Skipped: []SkippedOccurrence{}}

	err = s.withTherapistLock(ctx, in.TherapistID, func(lockCtx context.Context) error {
		st, err := s.checker.Settings(lockCtx, in.TherapistID)
		if err != nil {
			return err
		}

		occurrences, err := Expand(in.StartTime, in.EndTime, *in.RecurringPattern, st.Location, s.opts.MaxSeriesOccurrences)
		if err != nil {
			return err
		}
		endDate, _ := ParseEndDate(in.RecurringPattern.EndDate, st.Location)
		pattern := &RecurringPattern{Frequency: in.RecurringPattern.Frequency, EndDate: endDate.String()}

		last := occurrences[len(occurrences)-1]
		occ, err := s.checker.Occupancy(lockCtx, in.TherapistID, st, occurrences[0].StartTime, last.EndTime)
		if err != nil {
			return err
		}

		for _, o := range occurrences {
			conflicts := occ.Conflicts(Interval{Start: o.StartTime, End: o.EndTime}, uuid.Nil)
			capConflict, err := s.checker.DailyCapConflict(lockCtx, in.TherapistID, st, o.StartTime, uuid.Nil)
			if err != nil {
				return err
			}
			if capConflict != nil {
				conflicts = append(conflicts, *capConflict)
			}
			if len(conflicts) > 0 {
				result.Skipped = append(result.Skipped, skipped(o, conflicts))
				continue
			}

			one := in
			one.StartTime, one.EndTime = o.StartTime, o.EndTime
			one.RecurringPattern = pattern

			appt, err := s.repo.CreateAppointment(lockCtx, newAppointment(one, st, &result.SeriesID))
			if err != nil {
				if errors.Is(err, ErrOverlap) {
					result.Skipped = append(result.Skipped, skipped(o, nil))
					continue
				}
				return err
			}
			occ.Add(*appt)
			result.Created = append(result.Created, *appt)
		}

		if len(result.Created) == 0 {
			return ErrSeriesConflict.WithDetails(result.Skipped)
		}

		s.logEvent(lockCtx, &result.Created[0], EventSeriesCreated, map[string]any{
			"seriesId":  result.SeriesID.String(),
			"frequency": pattern.Frequency,
			"endDate":   pattern.EndDate,
			"created":   len(result.Created),
			"skipped":   len(result.Skipped),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Skipped) > 0 {
		s.logger.Info().
			Str("therapist_id", in.TherapistID.String()).
			Str("series_id", result.SeriesID.String()).
			Int("created", len(result.Created)).
			Int("skipped", len(result.Skipped)).
			Msg("recurring series partially booked")
	}
	return result, nil
}

func skipped(o Occurrence, conflicts []Conflict) SkippedOccurrence {
	reason := string(ConflictAppointment)
	if len(conflicts) > 0 {
		reason = string(conflicts[0].Kind)
	} else {
		conflicts = []Conflict{}
	}
	return SkippedOccurrence{StartTime: o.StartTime, EndTime: o.EndTime, Reason: reason, Conflicts: conflicts}
}

// UpdateInput holds the fields of an edit; nil fields are left unchanged.
type UpdateInput struct {
	ClientID      *uuid.UUID
	StartTime     *time.Time
	EndTime       *time.Time
	Duration      *int
	ServiceType   *string
	Location      *string
	MeetingURL    *string
	Notes         *string
	Summary       *string
	PaymentAmount *float64
}

func (u UpdateInput) changesTime() bool {
	return u.StartTime != nil || u.EndTime != nil || u.Duration != nil
}

// Update edits an appointment. Changing its time re-runs the conflict and cap checks with
// the appointment itself excluded.
func (s *Service) Update(ctx context.Context, therapistID, id uuid.UUID, in UpdateInput) (_ *Appointment, err error) {
	ctx, span := s.startSpan(ctx, "appointment.Update", therapistID)
	defer func() { endSpan(span, err) }()

	var updated *Appointment
	err = s.withTherapistLock(ctx, therapistID, func(lockCtx context.Context) error {
		cur, err := s.repo.GetAppointmentByID(lockCtx, therapistID, id)
		if err != nil {
			return err
		}

		next := *cur
		if err := s.applyUpdate(lockCtx, &next, in); err != nil {
			return err
		}

		if in.changesTime() {
			if !cur.Status.Active() {
				return ErrNotEditable
			}
			st, err := s.checker.Settings(lockCtx, therapistID)
			if err != nil {
				return err
			}
			conflicts, err := s.conflictsFor(lockCtx, therapistID, st, next.StartTime, next.EndTime, id)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return conflictError(conflicts)
			}
			next.BufferMinutes = int(st.Buffer / time.Minute)
		}

		updated, err = s.repo.UpdateAppointment(lockCtx, next)
		if err != nil {
			return err
		}

		s.logEvent(lockCtx, updated, EventAppointmentUpdated, map[string]any{
			"timeChanged": in.changesTime(),
			"startTime":   updated.StartTime,
			"endTime":     updated.EndTime,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) applyUpdate(ctx context.Context, a *Appointment, in UpdateInput) error {
	if in.ClientID != nil && *in.ClientID != a.ClientID {
		if _, err := s.clients.GetClient(ctx, a.TherapistID, *in.ClientID); err != nil {
			if errors.Is(err, ErrClientNotFound) {
				return apperr.Validation("unknown_client", "clientId does not belong to this therapist")
			}
			return err
		}
		a.ClientID = *in.ClientID
	}

	if in.changesTime() {
		start := a.StartTime
		if in.StartTime != nil {
			start = *in.StartTime
		}
		var end time.Time
		duration := 0
		switch {
		case in.EndTime != nil:
			end = *in.EndTime
			if in.Duration != nil {
				duration = *in.Duration
			}
		case in.Duration != nil:
			duration = *in.Duration
		default:
			// only the start moved: keep the length
			duration = a.Duration
		}
		end, minutes, err := normalizeTimes(start, end, duration)
		if err != nil {
			return err
		}
		a.StartTime, a.EndTime, a.Duration = start, end, minutes
	}

	if in.ServiceType != nil {
		a.ServiceType = strings.TrimSpace(*in.ServiceType)
	}
	if in.Location != nil {
		a.Location = strings.TrimSpace(*in.Location)
	}
	if in.MeetingURL != nil {
		a.MeetingURL = strings.TrimSpace(*in.MeetingURL)
	}
	if in.Notes != nil {
		a.Notes = *in.Notes
	}
	if in.Summary != nil {
		a.Summary = *in.Summary
	}
	if in.PaymentAmount != nil {
		if *in.PaymentAmount < 0 {
			return apperr.Validation("invalid_payment_amount", "paymentAmount must be >= 0")
		}
		a.PaymentAmount = *in.PaymentAmount
	}
	return nil
}

// Delete removes an appointment outright. Callers must have checked the privileged role.
func (s *Service) Delete(ctx context.Context, therapistID, id uuid.UUID) error {
	appt, err := s.repo.GetAppointmentByID(ctx, therapistID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAppointment(ctx, therapistID, id); err != nil {
		return err
	}

	s.logEvent(ctx, appt, EventAppointmentDeleted, map[string]any{
		"status":    appt.Status,
		"startTime": appt.StartTime,
	})
	s.logger.Warn().
		Str("therapist_id", therapistID.String()).
		Str("appointment_id", id.String()).
		Msg("appointment hard-deleted")
	return nil
}

func (s *Service) Confirm(ctx context.Context, therapistID, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, therapistID, id, ActionConfirm, TransitionInput{}, EventAppointmentConfirmed)
}

func (s *Service) Cancel(ctx context.Context, therapistID, id uuid.UUID, reason, cancelledBy string) (*Appointment, error) {
	return s.transition(ctx, therapistID, id, ActionCancel,
		TransitionInput{Reason: reason, CancelledBy: cancelledBy}, EventAppointmentCancelled)
}

func (s *Service) Complete(ctx context.Context, therapistID, id uuid.UUID, summary string) (*Appointment, error) {
	return s.transition(ctx, therapistID, id, ActionComplete, TransitionInput{Summary: summary}, EventAppointmentCompleted)
}

func (s *Service) MarkNoShow(ctx context.Context, therapistID, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, therapistID, id, ActionNoShow, TransitionInput{}, EventAppointmentNoShow)
}

// transition relies on the repository's conditional update instead of the therapist lock:
// of two racing transitions from the same status only one can match.
func (s *Service) transition(ctx context.Context, therapistID, id uuid.UUID, action Action, in TransitionInput, eventType string) (_ *Appointment, err error) {
	ctx, span := s.startSpan(ctx, "appointment.Transition", therapistID)
	span.SetAttributes(attribute.String("appointment.action", string(action)))
	defer func() { endSpan(span, err) }()

	appt, err := s.repo.GetAppointmentByID(ctx, therapistID, id)
	if err != nil {
		return nil, err
	}

	from := appt.Status
	next := *appt
	if err := Apply(&next, action, in, s.opts.Now()); err != nil {
		return nil, err
	}

	updated, err := s.repo.TransitionAppointment(ctx, next, from)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{"from": from, "to": updated.Status}
	if action == ActionCancel {
		payload["reason"] = updated.CancellationReason
		payload["cancelledBy"] = updated.CancelledBy
	}
	s.logEvent(ctx, updated, eventType, payload)

	return updated, nil
}

func (s *Service) Get(ctx context.Context, therapistID, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, therapistID, id)
}

type ListResult struct {
	Items []Appointment `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func (s *Service) List(ctx context.Context, f ListFilter) (*ListResult, error) {
	if f.From != nil && f.To != nil && !f.To.After(*f.From) {
		return nil, apperr.Validation("invalid_date_range", "endDate must be after startDate")
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	switch f.Sort {
	case "":
		f.Sort = SortStartAsc
	case SortStartAsc, SortStartDesc, SortCreatedDesc:
	default:
		return nil, apperr.Validation("invalid_sort", fmt.Sprintf("sort must be one of %s, %s, %s", SortStartAsc, SortStartDesc, SortCreatedDesc))
	}

	items, total, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, err
	}
	return &ListResult{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *Service) Summarize(ctx context.Context, therapistID uuid.UUID, from, to *time.Time) (Stats, error) {
	if from != nil && to != nil && !to.After(*from) {
		return Stats{}, apperr.Validation("invalid_date_range", "endDate must be after startDate")
	}
	raw, err := s.repo.CountByStatus(ctx, therapistID, from, to)
	if err != nil {
		return Stats{}, err
	}
	return newStats(raw), nil
}

type ConflictReport struct {
	HasConflict bool       `json:"hasConflict"`
	Conflicts   []Conflict `json:"conflicts"`
}

// CheckConflicts is the dry-run form of the commit-time check. It takes no lock.
func (s *Service) CheckConflicts(ctx context.Context, therapistID uuid.UUID, start, end time.Time, duration int, exclude uuid.UUID) (*ConflictReport, error) {
	end, _, err := normalizeTimes(start, end, duration)
	if err != nil {
		return nil, err
	}
	st, err := s.checker.Settings(ctx, therapistID)
	if err != nil {
		return nil, err
	}
	conflicts, err := s.conflictsFor(ctx, therapistID, st, start, end, exclude)
	if err != nil {
		return nil, err
	}
	if conflicts == nil {
		conflicts = []Conflict{}
	}
	return &ConflictReport{HasConflict: len(conflicts) > 0, Conflicts: conflicts}, nil
}

func (s *Service) Slots(ctx context.Context, therapistID uuid.UUID, date availability.Date, durationMinutes int) ([]Slot, error) {
	return s.slots.Generate(ctx, therapistID, date, durationMinutes)
}

// PublicBookingInput is a booking made from the public page. The client is identified by
// ClientID or by contact details.
type PublicBookingInput struct {
	TherapistID uuid.UUID
	ClientID    *uuid.UUID
	Name        string
	Email       *string
	Phone       *string
	StartTime   time.Time
	EndTime     time.Time
	Duration    int
	ServiceType string
	Notes       string
}

// PublicBook commits a booking from the public page. Unlike practitioner bookings it must be
// in the future and inside one of the therapist's weekly windows.
func (s *Service) PublicBook(ctx context.Context, in PublicBookingInput) (_ *Appointment, err error) {
	ctx, span := s.startSpan(ctx, "appointment.PublicBook", in.TherapistID)
	defer func() { endSpan(span, err) }()

	if in.TherapistID == uuid.Nil {
		return nil, apperr.Validation("missing_therapist_id", "therapistId is required")
	}
	end, minutes, err := normalizeTimes(in.StartTime, in.EndTime, in.Duration)
	if err != nil {
		return nil, err
	}
	if in.StartTime.Before(s.opts.Now()) {
		return nil, apperr.Validation("start_in_past", "startTime must be in the future")
	}
	if err := s.validateWithinAvailability(ctx, in.TherapistID, in.StartTime, end); err != nil {
		return nil, err
	}

	clientID, err := s.resolvePublicClient(ctx, in)
	if err != nil {
		return nil, err
	}

	return s.commitSingle(ctx, CreateInput{
		TherapistID: in.TherapistID,
		ClientID:    clientID,
		StartTime:   in.StartTime,
		EndTime:     end,
		Duration:    minutes,
		ServiceType: in.ServiceType,
		Notes:       in.Notes,
	})
}

func (s *Service) validateWithinAvailability(ctx context.Context, therapistID uuid.UUID, start, end time.Time) error {
	st, err := s.checker.Settings(ctx, therapistID)
	if err != nil {
		return err
	}
	if st.Profile == nil {
		return ErrOutsideAvailability
	}

	date := availability.DateOf(start.In(st.Location))
	windows, err := s.avail.WeeklyWindows(ctx, therapistID, date)
	if err != nil {
		return err
	}
	for _, w := range windows {
		ws, we := w.On(date, st.Location)
		if !start.Before(ws) && !end.After(we) {
			return nil
		}
	}
	return ErrOutsideAvailability
}

func (s *Service) resolvePublicClient(ctx context.Context, in PublicBookingInput) (uuid.UUID, error) {
	if in.ClientID != nil {
		c, err := s.clients.GetClient(ctx, in.TherapistID, *in.ClientID)
		if err != nil {
			if errors.Is(err, ErrClientNotFound) {
				return uuid.Nil, apperr.Validation("unknown_client", "clientId does not belong to this therapist")
			}
			return uuid.Nil, err
		}
		return c.ID, nil
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return uuid.Nil, apperr.Validation("missing_client", "clientId or name is required")
	}
	if in.Email == nil && in.Phone == nil {
		return uuid.Nil, apperr.Validation("missing_contact", "email or phone is required")
	}
	if in.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*in.Email))
		if !strings.Contains(e, "@") {
			return uuid.Nil, apperr.Validation("invalid_email", "email is not valid")
		}
		in.Email = &e
	}

	c, err := s.clients.ResolveClient(ctx, in.TherapistID, name, in.Email, in.Phone)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve client: %w", err)
	}
	return c.ID, nil
}

// logEvent records a committed change for the relay. Failures are logged and swallowed:
// the booking itself already succeeded.
func (s *Service) logEvent(ctx context.Context, appt *Appointment, eventType string, payload map[string]any) {
	payload["appointmentId"] = appt.ID.String()
	payload["therapistId"] = appt.TherapistID.String()
	if appt.SeriesID != nil {
		payload["seriesId"] = appt.SeriesID.String()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appt.ID
	therapistID := appt.TherapistID

	ev := EventLog{
		EventType:     eventType,
		TherapistID:   &therapistID,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.opts.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appt.ID.String()).
			Msg("failed to insert event log")
	}
}
