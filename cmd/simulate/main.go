package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/hackgods/practice-booking/internal/db"
	"github.com/hackgods/practice-booking/internal/logging"
)

// SimConfig drives a load run against a live api-server. Therapists and clients are
// read from Postgres, typically after cmd/seed.
type SimConfig struct {
	APIBaseURL      string        `envconfig:"API_BASE_URL" default:"http://localhost:8080"`
	Duration        time.Duration `envconfig:"DURATION" default:"30s"`
	Workers         int           `envconfig:"WORKERS" default:"10"`
	RaceSize        int           `envconfig:"RACE_SIZE" default:"8"` // concurrent requests per contested slot
	BookingRatio    float64       `envconfig:"BOOKING_RATIO" default:"0.4"`
	TransitionRatio float64       `envconfig:"TRANSITION_RATIO" default:"0.2"`
	ReadRatio       float64       `envconfig:"READ_RATIO" default:"0.4"`
	TherapistLimit  int           `envconfig:"THERAPIST_LIMIT" default:"50"`
	JWTSecret       string        `envconfig:"JWT_SECRET"` // empty: use dev auth headers
	PostgresDSN     string        `envconfig:"POSTGRES_DSN" required:"true"`
}

type therapist struct {
	ID      uuid.UUID
	Clients []uuid.UUID
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err == nil && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case err == nil && (status == http.StatusConflict || status == http.StatusBadRequest):
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	latencies := append([]time.Duration(nil), om.Latencies...)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	pct := func(p int) time.Duration {
		idx := len(latencies) * p / 100
		if idx >= len(latencies) {
			idx = len(latencies) - 1
		}
		return latencies[idx]
	}
	return sum / time.Duration(len(latencies)), pct(50), pct(95), latencies[len(latencies)-1]
}

type Metrics struct {
	Slots      OperationMetrics
	Booking    OperationMetrics
	Transition OperationMetrics
	List       OperationMetrics

	racesRun       int64
	racesDoubled   int64 // races where more than one request got 201
	racesUncleared int64 // races where nobody got 201
}

type Simulator struct {
	config     SimConfig
	therapists []therapist
	client     *http.Client
	metrics    Metrics
	logger     zerolog.Logger

	mu     sync.Mutex
	booked map[uuid.UUID][]uuid.UUID // therapist -> appointment ids
}

func main() {
	logger := logging.New("simulate", "dev")
	_ = godotenv.Load()

	var cfg SimConfig
	if err := envconfig.Process("SIM", &cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	if cfg.Workers <= 0 || cfg.Duration <= 0 || cfg.RaceSize <= 0 {
		logger.Fatal().Msg("SIM_WORKERS, SIM_DURATION and SIM_RACE_SIZE must be positive")
	}
	total := cfg.BookingRatio + cfg.TransitionRatio + cfg.ReadRatio
	if total <= 0 {
		logger.Fatal().Msg("operation ratios must sum to a positive number")
	}
	cfg.BookingRatio /= total
	cfg.TransitionRatio /= total

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	therapists, err := loadTherapists(ctx, pool, cfg.TherapistLimit)
	cancel()
	pool.Close()
	if err != nil {
		logger.Fatal().Err(err).Msg("load therapists")
	}
	logger.Info().Int("therapists", len(therapists)).Msg("data loaded")

	sim := &Simulator{
		config:     cfg,
		therapists: therapists,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		booked:     make(map[uuid.UUID][]uuid.UUID),
	}
	sim.Run()

	overlaps := sim.VerifyNoOverlaps(context.Background())
	sim.PrintReport(overlaps)
}

func loadTherapists(ctx context.Context, pool *pgxpool.Pool, limit int) ([]therapist, error) {
	rows, err := pool.Query(ctx, `
		SELECT p.therapist_id, array_agg(c.id)
		FROM availability_profiles p
		JOIN clients c ON c.therapist_id = p.therapist_id
		GROUP BY p.therapist_id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []therapist
	for rows.Next() {
		var t therapist
		if err := rows.Scan(&t.ID, &t.Clients); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no therapists with clients found; run cmd/seed first")
	}
	return out, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		t := s.therapists[rng.Intn(len(s.therapists))]
		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doContestedBooking(ctx, rng, t)
		case r < s.config.BookingRatio+s.config.TransitionRatio:
			s.doTransition(ctx, rng, t)
		default:
			s.doList(ctx, t)
		}
	}
}

type slot struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// doContestedBooking picks one open slot and fires RaceSize simultaneous bookings at it.
// Exactly one should win.
func (s *Simulator) doContestedBooking(ctx context.Context, rng *rand.Rand, t therapist) {
	date := time.Now().AddDate(0, 0, 1+rng.Intn(14)).Format(time.DateOnly)
	var slots struct {
		Slots []slot `json:"slots"`
	}
	status, err := s.call(ctx, &s.metrics.Slots, http.MethodGet,
		fmt.Sprintf("/public/availability/slots?therapistId=%s&date=%s&duration=50", t.ID, date), uuid.Nil, nil, &slots)
	if err != nil || status != http.StatusOK || len(slots.Slots) == 0 {
		return
	}
	target := slots.Slots[rng.Intn(len(slots.Slots))]

	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < s.config.RaceSize; i++ {
		wg.Add(1)
		go func(client uuid.UUID) {
			defer wg.Done()
			var created struct {
				ID uuid.UUID `json:"id"`
			}
			status, err := s.call(ctx, &s.metrics.Booking, http.MethodPost, "/appointments", t.ID, map[string]any{
				"clientId":    client,
				"startTime":   target.StartTime,
				"endTime":     target.EndTime,
				"serviceType": "individual",
			}, &created)
			if err == nil && status == http.StatusCreated {
				atomic.AddInt64(&wins, 1)
				s.remember(t.ID, created.ID)
			}
		}(t.Clients[rng.Intn(len(t.Clients))])
	}
	wg.Wait()

	if ctx.Err() != nil {
		return
	}
	atomic.AddInt64(&s.metrics.racesRun, 1)
	switch {
	case wins > 1:
		atomic.AddInt64(&s.metrics.racesDoubled, 1)
	case wins == 0:
		atomic.AddInt64(&s.metrics.racesUncleared, 1)
	}
}

func (s *Simulator) doTransition(ctx context.Context, rng *rand.Rand, t therapist) {
	id, ok := s.randomBooked(rng, t.ID)
	if !ok {
		return
	}
	action := []string{"confirm", "confirm", "cancel", "complete", "no-show"}[rng.Intn(5)]
	var body any
	if action == "cancel" {
		body = map[string]string{"reason": "simulated", "cancelledBy": "client"}
	}
	_, _ = s.call(ctx, &s.metrics.Transition, http.MethodPost,
		fmt.Sprintf("/appointments/%s/%s", id, action), t.ID, body, nil)
}

func (s *Simulator) doList(ctx context.Context, t therapist) {
	_, _ = s.call(ctx, &s.metrics.List, http.MethodGet, "/appointments?status=pending,confirmed&limit=20", t.ID, nil, nil)
}

type listedAppointment struct {
	ID        uuid.UUID `json:"id"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// VerifyNoOverlaps lists every therapist's active appointments and counts pairs whose
// raw intervals intersect. Any non-zero result is a double booking.
func (s *Simulator) VerifyNoOverlaps(ctx context.Context) int {
	overlaps := 0
	for _, t := range s.therapists {
		var all []listedAppointment
		for page := 1; ; page++ {
			var res struct {
				Items []listedAppointment `json:"items"`
				Total int                 `json:"total"`
			}
			status, err := s.call(ctx, nil, http.MethodGet,
				fmt.Sprintf("/appointments?status=pending,confirmed&limit=100&page=%d", page), t.ID, nil, &res)
			if err != nil || status != http.StatusOK {
				s.logger.Warn().Err(err).Int("status", status).Str("therapist_id", t.ID.String()).Msg("verify: list failed")
				break
			}
			all = append(all, res.Items...)
			if len(res.Items) == 0 || len(all) >= res.Total {
				break
			}
		}

		sort.Slice(all, func(i, j int) bool { return all[i].StartTime.Before(all[j].StartTime) })
		for i := 1; i < len(all); i++ {
			if all[i].StartTime.Before(all[i-1].EndTime) {
				overlaps++
				s.logger.Error().
					Str("therapist_id", t.ID.String()).
					Str("a", all[i-1].ID.String()).
					Str("b", all[i].ID.String()).
					Msg("overlapping active appointments")
			}
		}
	}
	return overlaps
}

func (s *Simulator) remember(therapistID, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.booked[therapistID] = append(s.booked[therapistID], id)
}

func (s *Simulator) randomBooked(rng *rand.Rand, therapistID uuid.UUID) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.booked[therapistID]
	if len(ids) == 0 {
		return uuid.Nil, false
	}
	return ids[rng.Intn(len(ids))], true
}

// call performs one request, authenticating as therapistID when it is set, and decodes
// a 2xx body into out.
func (s *Simulator) call(ctx context.Context, om *OperationMetrics, method, path string, therapistID uuid.UUID, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if therapistID != uuid.Nil {
		if err := s.authenticate(req, therapistID); err != nil {
			return 0, err
		}
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if om != nil && ctx.Err() == nil {
			om.Record(latency, 0, err)
		}
		return 0, err
	}
	defer resp.Body.Close()

	if om != nil {
		om.Record(latency, resp.StatusCode, nil)
	}
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (s *Simulator) authenticate(req *http.Request, therapistID uuid.UUID) error {
	if s.config.JWTSecret == "" {
		req.Header.Set("X-Therapist-Id", therapistID.String())
		return nil
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  therapistID.String(),
		"role": "therapist",
		"exp":  time.Now().Add(5 * time.Minute).Unix(),
	}).SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (s *Simulator) PrintReport(overlaps int) {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d  Race size: %d\n", s.config.Workers, s.config.RaceSize)
	fmt.Println()

	printOperationReport("Slot listing", &s.metrics.Slots)
	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Transition", &s.metrics.Transition)
	printOperationReport("List", &s.metrics.List)

	fmt.Println("Contested slots:")
	fmt.Printf("  Races: %d\n", atomic.LoadInt64(&s.metrics.racesRun))
	fmt.Printf("  Double-booked races: %d\n", atomic.LoadInt64(&s.metrics.racesDoubled))
	fmt.Printf("  Races with no winner: %d\n", atomic.LoadInt64(&s.metrics.racesUncleared))
	fmt.Printf("  Overlapping active appointments after run: %d\n", overlaps)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	rejected := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)
	avg, p50, p95, max := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if rejected > 0 {
		fmt.Printf("  Rejected (409/400): %d (%.1f%%)\n", rejected, float64(rejected)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), max.Round(time.Millisecond))
	fmt.Println()
}
