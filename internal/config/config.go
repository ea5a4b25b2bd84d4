// Package config loads the runtime configuration of the listener from a YAML
// file, the process environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/prompts"
	"github.com/koscakluka/ema-realtime/core/realtime"
	"github.com/koscakluka/ema-realtime/internal/utils"
	"gopkg.in/yaml.v3"
)

const (
	EnvAPIKey     = "OPENAI_API_KEY"
	EnvConfigFile = "EMA_CONFIG"
)

type Config struct {
	// APIKey is never read from the YAML file.
	APIKey string `yaml:"-"`

	Realtime    RealtimeConfig    `yaml:"realtime"`
	Session     SessionConfig     `yaml:"session"`
	Capture     CaptureConfig     `yaml:"capture"`
	Microphone  MicrophoneConfig  `yaml:"microphone"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type RealtimeConfig struct {
	Endpoint           string        `yaml:"endpoint"`
	Model              string        `yaml:"model"`
	TranscriptionModel string        `yaml:"transcription_model"`
	TurnDetection      string        `yaml:"turn_detection"`
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout"`
	WriteWait          time.Duration `yaml:"write_wait"`
}

type SessionConfig struct {
	Profile            string `yaml:"profile"`
	Language           string `yaml:"language"`
	CustomInstructions string `yaml:"custom_instructions"`
}

type CaptureConfig struct {
	Enabled       bool          `yaml:"enabled"`
	ResourcesDir  string        `yaml:"resources_dir"`
	BinaryPath    string        `yaml:"binary_path"`
	FrameDuration time.Duration `yaml:"frame_duration"`

	// KillStaleProcesses is a pointer so an explicit false in the file is
	// distinguishable from an omitted key.
	KillStaleProcesses *bool `yaml:"kill_stale_processes"`
}

type MicrophoneConfig struct {
	Enabled bool `yaml:"enabled"`
}

type PersistenceConfig struct {
	Webhook   WebhookConfig   `yaml:"webhook"`
	Firestore FirestoreConfig `yaml:"firestore"`
}

type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Timeout time.Duration     `yaml:"timeout"`
}

type FirestoreConfig struct {
	Enabled         bool   `yaml:"enabled"`
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
	Collection      string `yaml:"collection"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type TelemetryConfig struct {
	// Endpoint is an OTLP/HTTP traces URL. Tracing is off when empty.
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`

	// Output is "stderr", "stdout" or a file path. Logging is off when empty.
	Output string `yaml:"output"`
}

func Default() Config {
	return Config{
		Realtime: RealtimeConfig{
			Endpoint:           realtime.DefaultEndpoint,
			Model:              realtime.DefaultModel,
			TranscriptionModel: realtime.DefaultTranscriptionModel,
			TurnDetection:      realtime.DefaultTurnDetection,
			HandshakeTimeout:   10 * time.Second,
			WriteWait:          10 * time.Second,
		},
		Session: SessionConfig{
			Profile: string(prompts.DefaultProfile),
		},
		Capture: CaptureConfig{
			ResourcesDir:       ".",
			FrameDuration:      100 * time.Millisecond,
			KillStaleProcesses: utils.Ptr(true),
		},
		Persistence: PersistenceConfig{
			Webhook:   WebhookConfig{Timeout: 10 * time.Second},
			Firestore: FirestoreConfig{Collection: "sessions"},
		},
		Metrics: MetricsConfig{
			Address: "127.0.0.1:9464",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "ema-listen",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// any) and the environment. Variables from envFiles are loaded first and
// never override variables that are already set; missing env files are
// ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	config := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	config.APIKey = strings.TrimSpace(os.Getenv(EnvAPIKey))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate checks every section. A missing api key is not an error here, it
// is only needed once a session starts.
func (c *Config) Validate() error {
	if err := c.Realtime.Validate(); err != nil {
		return fmt.Errorf("realtime config: %w", err)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}
	if err := c.Persistence.Validate(); err != nil {
		return fmt.Errorf("persistence config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

func (r *RealtimeConfig) Validate() error {
	endpoint, err := url.Parse(r.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint is not a valid url: %w", err)
	}
	if endpoint.Scheme != "ws" && endpoint.Scheme != "wss" {
		return fmt.Errorf("endpoint must use ws or wss, got %q", endpoint.Scheme)
	}
	if r.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if r.HandshakeTimeout <= 0 {
		return fmt.Errorf("handshake_timeout must be positive, got %s", r.HandshakeTimeout)
	}
	if r.WriteWait <= 0 {
		return fmt.Errorf("write_wait must be positive, got %s", r.WriteWait)
	}
	return nil
}

// SessionConfig converts the section into the session.update parameters.
func (r *RealtimeConfig) SessionConfig() realtime.SessionConfig {
	config := realtime.DefaultSessionConfig()
	config.Model = r.Model
	if r.TranscriptionModel != "" {
		config.TranscriptionModel = r.TranscriptionModel
	}
	if r.TurnDetection != "" {
		config.TurnDetection = r.TurnDetection
	}
	return config
}

func (s *SessionConfig) Validate() error {
	if _, err := prompts.ParseProfile(s.Profile); err != nil {
		return err
	}
	return nil
}

func (c *CaptureConfig) Validate() error {
	if c.FrameDuration < 10*time.Millisecond || c.FrameDuration > audio.MaxFrameDuration {
		return fmt.Errorf("frame_duration must be between 10ms and %s, got %s", audio.MaxFrameDuration, c.FrameDuration)
	}
	if c.Enabled && c.BinaryPath == "" && c.ResourcesDir == "" {
		return fmt.Errorf("resources_dir or binary_path is required when capture is enabled")
	}
	return nil
}

// StaleProcessCleanup reports whether leftover capture processes should be
// killed before starting a new one. Defaults to true.
func (c *CaptureConfig) StaleProcessCleanup() bool {
	if c.KillStaleProcesses == nil {
		return true
	}
	return *c.KillStaleProcesses
}

func (p *PersistenceConfig) Validate() error {
	if p.Webhook.URL != "" {
		webhookURL, err := url.Parse(p.Webhook.URL)
		if err != nil {
			return fmt.Errorf("webhook url is not valid: %w", err)
		}
		if webhookURL.Scheme != "http" && webhookURL.Scheme != "https" {
			return fmt.Errorf("webhook url must use http or https, got %q", webhookURL.Scheme)
		}
		if p.Webhook.Timeout <= 0 {
			return fmt.Errorf("webhook timeout must be positive, got %s", p.Webhook.Timeout)
		}
	}
	if p.Firestore.Enabled && p.Firestore.Collection == "" {
		return fmt.Errorf("firestore collection cannot be empty when firestore is enabled")
	}
	return nil
}

func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Address == "" {
		return fmt.Errorf("address cannot be empty when metrics are enabled")
	}
	return nil
}

func (t *TelemetryConfig) Validate() error {
	if t.Endpoint != "" && t.ServiceName == "" {
		return fmt.Errorf("service_name cannot be empty when an endpoint is set")
	}
	return nil
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(l.Level)] {
		return fmt.Errorf("level must be one of debug, info, warn, error, got %q", l.Level)
	}
	return nil
}
