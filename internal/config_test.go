package internal

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "INFO")
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "8080")
	t.Setenv("GRPC_PORT", "9090")
	t.Setenv("BADGER_FILEPATH", "/tmp/badger")
	t.Setenv("BLUGE_FILEPATH", "/tmp/bluge")
	t.Setenv("JWT_SECRET", "0123456789abcdef")
	t.Setenv("CONNECTION_BUFFER_SIZE", "64")
	t.Setenv("SINK_TIMEOUT", "250ms")
	t.Setenv("MAX_CONTENT_LENGTH", "2000")
	t.Setenv("NUMBER_OF_RESPONDERS", "2")
	t.Setenv("TRIGGER_QUEUE_SIZE", "32")
	t.Setenv("PROVIDER_TIMEOUT", "30s")
	t.Setenv("RESTART_INTERVAL", "1s")
}

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	setRequired(t)

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)
	req.NoError(config.Validate())

	req.Equal("account", config.BroadcastScope)
	req.Equal(8081, config.DebugPort)
	req.Equal(10*time.Second, config.ShutdownTimeout)
	req.Equal(20, config.HistoryLimit)
	req.Equal(1024, config.HistoryBufferSize)
	req.Equal("http://localhost:11434", config.OllamaURL)
	req.Equal(250*time.Millisecond, config.SinkTimeout)
}

func TestConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "Unknown log level", key: "LOG_LEVEL", value: "TRACE"},
		{name: "Short secret", key: "JWT_SECRET", value: "short"},
		{name: "Same ports", key: "GRPC_PORT", value: "8080"},
		{name: "Unknown scope", key: "BROADCAST_SCOPE", value: "room"},
		{name: "No responders", key: "NUMBER_OF_RESPONDERS", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			var config Config
			_, err := env.UnmarshalFromEnviron(&config)
			req.NoError(err)

			req.Error(config.Validate())
		})
	}
}
