package notify

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hackgods/practice-booking/internal/config"
)

// New builds the notifier selected by NOTIFIER.
func New(cfg config.Config, logger zerolog.Logger) (Notifier, error) {
	switch cfg.Notifier {
	case config.NotifierKafka:
		return NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopicPrefix), nil
	case config.NotifierAMQP:
		return NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange)
	case config.NotifierLog, "":
		return NewLogNotifier(logger), nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
	}
}
