// Package config defines detector configuration structures and loading hooks.
//
// Conventions:
// - Keys are flat and snake_case so one env var maps to one field.
// - New() builds a Config holding every default; Load layers file and env on top.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Line sources.
const (
	LineGPIO       = "gpio"
	LineFile       = "file"
	LineSim        = "sim"
	LinePredefined = "predefined"
)

// Store backends.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Players.
const (
	PlayerNone   = "none"
	PlayerBuzzer = "buzzer"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// MaxEventsLimit caps GET /events?limit.
	MaxEventsLimit int `koanf:"max_events_limit"`

	// LineSource is one of gpio, file, sim, predefined.
	LineSource string `koanf:"line_source"`
	GPIOPin    string `koanf:"gpio_pin"`
	SignalFile string `koanf:"signal_file"`

	PollInterval time.Duration `koanf:"poll_interval"`
	// MinPulse rejects shorter pulses as glitches; zero disables debouncing.
	MinPulse time.Duration `koanf:"min_pulse"`
	// MaxPulse abandons a HIGH that lasts longer; zero disables the check.
	MaxPulse time.Duration `koanf:"max_pulse"`

	// Simulator bounds, used by line_source=sim and cmd/ray-sim.
	SimMinGap    time.Duration `koanf:"sim_min_gap"`
	SimMaxGap    time.Duration `koanf:"sim_max_gap"`
	SimMinEnergy float64       `koanf:"sim_min_energy"`
	SimMaxEnergy float64       `koanf:"sim_max_energy"`
	SimSeed      int64         `koanf:"sim_seed"`

	// CalibrationKind is one of linear, identity, table.
	CalibrationKind   string  `koanf:"calibration_kind"`
	CalibrationScale  float64 `koanf:"calibration_scale"`
	CalibrationOffset float64 `koanf:"calibration_offset"`
	// CalibrationPoints lists "seconds:energy" pairs, comma separated.
	CalibrationPoints string `koanf:"calibration_points"`

	RefHz         float64 `koanf:"ref_hz"`
	RefEnergy     float64 `koanf:"ref_energy"`
	SemitonesPerE float64 `koanf:"semitones_per_e"`
	NoteMin       int     `koanf:"note_min"`
	NoteMax       int     `koanf:"note_max"`
	Quantize      bool    `koanf:"quantize"`

	// Player is one of none, buzzer.
	Player       string        `koanf:"player"`
	BuzzerPin    string        `koanf:"buzzer_pin"`
	BuzzDuration time.Duration `koanf:"buzz_duration"`
	ToneDuration time.Duration `koanf:"tone_duration"`
	SampleRate   int           `koanf:"sample_rate"`

	// Store is one of file, memory, postgres.
	Store        string `koanf:"store"`
	LogPath      string `koanf:"log_path"`
	PostgresDSN  string `koanf:"postgres_dsn"`
	RecentEvents int    `koanf:"recent_events"`

	// EventQueueSize bounds the in-memory pulse queue.
	EventQueueSize  int           `koanf:"queue_size"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	MQTTBroker   string `koanf:"mqtt_broker"`
	MQTTTopic    string `koanf:"mqtt_topic"`
	MQTTClientID string `koanf:"mqtt_client_id"`
	KafkaBrokers string `koanf:"kafka_brokers"`
	KafkaTopic   string `koanf:"kafka_topic"`

	ArchiveEndpoint  string `koanf:"archive_endpoint"`
	ArchiveBucket    string `koanf:"archive_bucket"`
	ArchiveAccessKey string `koanf:"archive_access_key"`
	ArchiveSecretKey string `koanf:"archive_secret_key"`
	ArchiveSecure    bool   `koanf:"archive_secure"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		MaxEventsLimit:    500,
		LineSource:        LineGPIO,
		GPIOPin:           "GPIO23",
		SignalFile:        "ray_signal.txt",
		PollInterval:      time.Millisecond,
		MinPulse:          0,
		MaxPulse:          10 * time.Second,
		SimMinGap:         2 * time.Second,
		SimMaxGap:         5 * time.Second,
		SimMinEnergy:      1,
		SimMaxEnergy:      10,
		CalibrationKind:   "linear",
		CalibrationScale:  1e6,
		CalibrationOffset: 0,
		RefHz:             440,
		RefEnergy:         1,
		SemitonesPerE:     1,
		NoteMin:           21,
		NoteMax:           108,
		Player:            PlayerNone,
		BuzzerPin:         "GPIO24",
		BuzzDuration:      100 * time.Millisecond,
		ToneDuration:      500 * time.Millisecond,
		SampleRate:        44100,
		Store:             StoreFile,
		LogPath:           "event_log.txt",
		RecentEvents:      1024,
		EventQueueSize:    1024,
		ShutdownTimeout:   5 * time.Second,
		MQTTTopic:         "parakeet/events",
		MQTTClientID:      "parakeet",
		KafkaTopic:        "parakeet.events",
		ArchiveBucket:     "parakeet",
	}
}

// KafkaBrokerList splits KafkaBrokers on commas, dropping blanks.
func (c *Config) KafkaBrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LineSource != LineGPIO && c.LineSource != LineFile && c.LineSource != LineSim &&
		c.LineSource != LinePredefined:
		return fmt.Errorf("%w: unknown line_source %q", ErrInvalidConfig, c.LineSource)
	case c.Store != StoreFile && c.Store != StoreMemory && c.Store != StorePostgres:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	case c.Player != PlayerNone && c.Player != PlayerBuzzer:
		return fmt.Errorf("%w: unknown player %q", ErrInvalidConfig, c.Player)
	case c.Store == StorePostgres && c.PostgresDSN == "":
		return fmt.Errorf("%w: postgres_dsn is required for store=postgres", ErrInvalidConfig)
	case c.PollInterval <= 0:
		return fmt.Errorf("%w: poll_interval must be positive", ErrInvalidConfig)
	case c.MinPulse < 0 || c.MaxPulse < 0:
		return fmt.Errorf("%w: pulse bounds must not be negative", ErrInvalidConfig)
	case c.MaxPulse > 0 && c.MinPulse >= c.MaxPulse:
		return fmt.Errorf("%w: min_pulse must be below max_pulse", ErrInvalidConfig)
	case c.SimMinGap < 0 || c.SimMaxGap < c.SimMinGap:
		return fmt.Errorf("%w: sim gap bounds are inverted", ErrInvalidConfig)
	case c.SimMinEnergy <= 0 || c.SimMaxEnergy < c.SimMinEnergy:
		return fmt.Errorf("%w: sim energy bounds must be positive and ordered", ErrInvalidConfig)
	case math.IsNaN(c.SemitonesPerE) || math.IsInf(c.SemitonesPerE, 0):
		return fmt.Errorf("%w: semitones_per_e must be finite", ErrInvalidConfig)
	case c.RefHz <= 0 || c.RefEnergy <= 0:
		return fmt.Errorf("%w: ref_hz and ref_energy must be positive", ErrInvalidConfig)
	case c.NoteMin < 0 || c.NoteMax > 127 || c.NoteMin > c.NoteMax:
		return fmt.Errorf("%w: note range must lie within 0..127", ErrInvalidConfig)
	case c.EventQueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.MaxEventsLimit <= 0 || c.RecentEvents <= 0:
		return fmt.Errorf("%w: event limits must be positive", ErrInvalidConfig)
	case c.SampleRate <= 0 || c.ToneDuration <= 0:
		return fmt.Errorf("%w: sample_rate and tone_duration must be positive", ErrInvalidConfig)
	case c.ArchiveEndpoint != "" && c.ArchiveBucket == "":
		return fmt.Errorf("%w: archive_bucket is required with archive_endpoint", ErrInvalidConfig)
	}
	return nil
}
