package internal

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	LogLevel        string        `env:"LOG_LEVEL,required=true" validate:"oneof=DEBUG INFO WARN ERROR"`
	Host            string        `env:"HOST,required=true" validate:"required"`
	Port            int           `env:"PORT,required=true" validate:"min=1,max=65535"`
	GrpcPort        int           `env:"GRPC_PORT,required=true" validate:"min=1,max=65535,nefield=Port"`
	DebugPort       int           `env:"DEBUG_PORT,default=8081" validate:"min=1,max=65535"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH,required=true" validate:"required"`
	BlugeFilepath   string        `env:"BLUGE_FILEPATH,required=true" validate:"required"`
	JwtSecret       string        `env:"JWT_SECRET,required=true" validate:"min=16"`
	BroadcastScope  string        `env:"BROADCAST_SCOPE,default=account" validate:"oneof=account all"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true" validate:"min=1"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,required=true" validate:"gt=0"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,required=true" validate:"min=1"`
	InboundRate          float64       `env:"INBOUND_RATE,default=5" validate:"gt=0"`
	InboundBurst         int           `env:"INBOUND_BURST,default=10" validate:"min=1"`

	NumberOfResponders int           `env:"NUMBER_OF_RESPONDERS,required=true" validate:"min=1"`
	TriggerQueueSize   int           `env:"TRIGGER_QUEUE_SIZE,required=true" validate:"min=1"`
	HistoryBufferSize  int           `env:"HISTORY_BUFFER_SIZE,default=1024" validate:"min=1"`
	HistoryLimit       int           `env:"HISTORY_LIMIT,default=20" validate:"min=0,max=200"`
	ProviderTimeout    time.Duration `env:"PROVIDER_TIMEOUT,required=true" validate:"gt=0"`
	RestartInterval    time.Duration `env:"RESTART_INTERVAL,required=true" validate:"gt=0"`
	MetricInterval     time.Duration `env:"METRIC_INTERVAL,default=15s" validate:"gt=0"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL,default=gemini-2.0-flash"`
	OllamaURL    string `env:"OLLAMA_URL,default=http://localhost:11434" validate:"omitempty,url"`
	OllamaModel  string `env:"OLLAMA_MODEL,default=llama3.2"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIURL    string `env:"OPENAI_URL,default=https://api.openai.com/v1" validate:"omitempty,url"`
	OpenAIModel  string `env:"OPENAI_MODEL,default=gpt-4o-mini"`
	ClaudeAPIKey string `env:"CLAUDE_API_KEY"`
	ClaudeURL    string `env:"CLAUDE_URL,default=https://api.anthropic.com/v1" validate:"omitempty,url"`
	ClaudeModel  string `env:"CLAUDE_MODEL,default=claude-3-haiku-20240307"`
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
