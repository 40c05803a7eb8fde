package notify

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/practice-booking/internal/config"
)

func TestNew(t *testing.T) {
	n, err := New(config.Config{Notifier: config.NotifierLog}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &LogNotifier{}, n)

	n, err = New(config.Config{Notifier: config.NotifierKafka, KafkaBrokers: "localhost:9092", KafkaTopicPrefix: "booking."}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &KafkaNotifier{}, n)
	require.NoError(t, n.Close())

	_, err = New(config.Config{Notifier: "smtp"}, zerolog.Nop())
	assert.Error(t, err)
}
