package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes events to the log. It is the default when no broker is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) Publish(_ context.Context, events []Event) error {
	for _, ev := range events {
		n.logger.Info().
			Int64("event_id", ev.ID).
			Str("event_type", ev.Type).
			Str("therapist_id", ev.TherapistID).
			Str("appointment_id", ev.AppointmentID).
			RawJSON("payload", payloadOrNull(ev.Payload)).
			Msg("booking event")
	}
	return nil
}

func (n *LogNotifier) Close() error { return nil }

func payloadOrNull(p []byte) []byte {
	if len(p) == 0 {
		return []byte("null")
	}
	return p
}
