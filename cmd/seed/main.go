package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/practice-booking/internal/appointment"
	"github.com/hackgods/practice-booking/internal/availability"
	"github.com/hackgods/practice-booking/internal/config"
	"github.com/hackgods/practice-booking/internal/db"
	"github.com/hackgods/practice-booking/internal/logging"
	redisclient "github.com/hackgods/practice-booking/internal/redis"
)

var timezones = []string{"UTC", "Europe/London", "Europe/Berlin", "America/New_York", "Asia/Jerusalem"}

var serviceTypes = []string{"intake", "individual", "couples", "family", "follow-up"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("seed", "dev")
		bootLogger.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New("seed", cfg.Env)
	if cfg.Storage != config.StoragePostgres {
		logger.Fatal().Msg("seed writes to Postgres; set STORAGE=postgres")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if seed := os.Getenv("SEED_RANDOM_SEED"); seed != "" {
		n, _ := strconv.ParseInt(seed, 10, 64)
		gofakeit.Seed(n)
	}

	s := &seeder{
		repo:   appointment.NewPgRepository(pool),
		avail:  availability.NewPgStore(pool),
		logger: logger,
	}
	s.svc = appointment.NewService(s.repo, s.repo, s.avail, redisclient.NewLocalLocker(cfg.LockWait), zerolog.Nop(), appointment.Options{
		SlotStep:             cfg.SlotStep,
		DefaultBufferMinutes: cfg.DefaultBufferMinutes,
		MaxSeriesOccurrences: cfg.MaxSeriesOccurrences,
	})

	therapists := envInt("SEED_THERAPISTS", 10)
	clientsPer := envInt("SEED_CLIENTS_PER_THERAPIST", 30)
	bookingsPer := envInt("SEED_BOOKINGS_PER_THERAPIST", 15)

	for i := 0; i < therapists; i++ {
		id, err := s.seedTherapist(ctx, clientsPer, bookingsPer)
		if err != nil {
			logger.Fatal().Err(err).Msg("seed therapist")
		}
		logger.Info().Str("therapist_id", id.String()).Int("n", i+1).Int("of", therapists).Msg("therapist seeded")
	}
	logger.Info().Msg("seed complete")
}

type seeder struct {
	repo   *appointment.PgRepository
	avail  *availability.PgStore
	svc    *appointment.Service
	logger zerolog.Logger
}

func (s *seeder) seedTherapist(ctx context.Context, clients, bookings int) (uuid.UUID, error) {
	therapist := uuid.New()

	profile, err := s.svc.SaveProfile(ctx, randomProfile(therapist))
	if err != nil {
		return uuid.Nil, fmt.Errorf("save profile: %w", err)
	}

	clientIDs := make([]uuid.UUID, 0, clients)
	for i := 0; i < clients; i++ {
		email := gofakeit.Email()
		phone := gofakeit.Phone()
		c, err := s.repo.ResolveClient(ctx, therapist, gofakeit.Name(), &email, &phone)
		if err != nil {
			return uuid.Nil, fmt.Errorf("create client: %w", err)
		}
		clientIDs = append(clientIDs, c.ID)
	}

	loc, err := profile.Location(time.UTC)
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := s.svc.CreateBlockedTime(ctx, randomBlock(therapist, loc)); err != nil {
		return uuid.Nil, fmt.Errorf("create blocked time: %w", err)
	}

	// Book through the service so seeded data obeys buffers, caps and blocks.
	booked := 0
	today := availability.DateOf(time.Now().In(loc))
	for day := 1; day <= 21 && booked < bookings; day++ {
		date := today.AddDays(day)
		duration := []int{45, 50, 60}[gofakeit.Number(0, 2)]

		slots, err := s.svc.Slots(ctx, therapist, date, duration)
		if err != nil {
			return uuid.Nil, fmt.Errorf("slots for %s: %w", date, err)
		}
		if len(slots) == 0 {
			continue
		}
		slot := slots[gofakeit.Number(0, len(slots)-1)]

		_, err = s.svc.Create(ctx, appointment.CreateInput{
			TherapistID: therapist,
			ClientID:    clientIDs[gofakeit.Number(0, len(clientIDs)-1)],
			StartTime:   slot.StartTime,
			EndTime:     slot.EndTime,
			ServiceType: serviceTypes[gofakeit.Number(0, len(serviceTypes)-1)],
			Location:    gofakeit.RandomString([]string{"office", "online"}),
			Notes:       gofakeit.Phrase(),
		})
		if errors.Is(err, appointment.ErrOverlap) || errors.Is(err, appointment.ErrDailyCapReached) {
			continue
		}
		if err != nil {
			return uuid.Nil, fmt.Errorf("book appointment: %w", err)
		}
		booked++
	}
	return therapist, nil
}

func randomProfile(therapist uuid.UUID) availability.Profile {
	schedule := make([]availability.DaySchedule, 0, 7)
	for dow := 0; dow < 7; dow++ {
		working := dow >= 1 && dow <= 5 && gofakeit.Number(0, 9) > 0
		ds := availability.DaySchedule{DayOfWeek: dow, IsAvailable: working}
		if working {
			startHour := gofakeit.Number(8, 10)
			ds.TimeSlots = []availability.TimeWindow{
				{StartTime: clock(startHour, 0), EndTime: clock(12, 30)},
				{StartTime: clock(13, 30), EndTime: clock(startHour+8, 0)},
			}
		}
		schedule = append(schedule, ds)
	}

	return availability.Profile{
		TherapistID:          therapist,
		Timezone:             timezones[gofakeit.Number(0, len(timezones)-1)],
		WeeklySchedule:       schedule,
		BufferTime:           []int{0, 10, 15}[gofakeit.Number(0, 2)],
		MaxDailyAppointments: gofakeit.Number(0, 8),
	}
}

func randomBlock(therapist uuid.UUID, loc *time.Location) availability.BlockedTime {
	day := availability.DateOf(time.Now().In(loc)).AddDays(gofakeit.Number(2, 20))
	start := day.Midnight(loc).Add(time.Duration(gofakeit.Number(9, 14)) * time.Hour)
	return availability.BlockedTime{
		TherapistID: therapist,
		StartTime:   start,
		EndTime:     start.Add(time.Duration(gofakeit.Number(1, 3)) * time.Hour),
		Reason:      gofakeit.RandomString([]string{"supervision", "training", "personal", "conference"}),
	}
}

func clock(h, m int) string {
	return fmt.Sprintf("%02d:%02d", h, m)
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
