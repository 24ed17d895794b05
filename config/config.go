// Package config loads the YAML document that describes the capture device
// and the Redis channels. The configuration is read once at startup and never
// mutated afterwards.
package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Recording describes the capture.
type Recording struct {
	// Device is an index, an ID or a (partial) device name. Nil or empty means
	// the system default. YAML may carry it as a number or a string.
	Device any `yaml:"device"`
	// SampleRate in Hz.
	SampleRate int `yaml:"sample_rate"`
	// NumChannels is the interleaved channel count.
	NumChannels int `yaml:"num_channels"`
	// MaxDuration is the capture length in seconds.
	MaxDuration float64 `yaml:"max_duration"`
}

// Redis holds the bus connection and channel names.
type Redis struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password,omitempty"`
	// ChannelIn is a PSUBSCRIBE pattern for transcript fragments.
	ChannelIn string `yaml:"channel_in"`
	// ChannelOut receives the encoded WAV clips.
	ChannelOut string `yaml:"channel_out"`
}

type Config struct {
	Recording Recording `yaml:"recording"`
	Redis     Redis     `yaml:"redis"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse unmarshals and validates a YAML document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every missing or malformed field at once.
func (c *Config) Validate() error {
	var problems []string

	r := c.Recording
	if r.SampleRate <= 0 {
		problems = append(problems, "recording.sample_rate must be a positive integer")
	}
	if r.NumChannels <= 0 {
		problems = append(problems, "recording.num_channels must be a positive integer")
	}
	if !(r.MaxDuration > 0) || math.IsInf(r.MaxDuration, 0) {
		problems = append(problems, "recording.max_duration must be a positive number")
	}
	if r.SampleRate > 0 && r.MaxDuration > 0 && c.Frames() < 1 {
		problems = append(problems, "recording.max_duration is shorter than one sample")
	}
	switch r.Device.(type) {
	case nil, string, int, int64, uint64, float64:
	default:
		problems = append(problems, "recording.device must be a string or an integer")
	}

	b := c.Redis
	if strings.TrimSpace(b.Host) == "" {
		problems = append(problems, "redis.host is required")
	}
	if b.Port <= 0 || b.Port > 65535 {
		problems = append(problems, "redis.port must be between 1 and 65535")
	}
	if b.DB < 0 {
		problems = append(problems, "redis.db must not be negative")
	}
	if b.ChannelIn == "" {
		problems = append(problems, "redis.channel_in is required")
	}
	if b.ChannelOut == "" {
		problems = append(problems, "redis.channel_out is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Frames is the number of frames per channel in one recording.
func (c *Config) Frames() int {
	return int(math.Round(float64(c.Recording.SampleRate) * c.Recording.MaxDuration))
}

// DeviceID returns the configured device as a string, "" for the default.
func (r Recording) DeviceID() string {
	switch v := r.Device.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Addr is the host:port of the Redis server.
func (r Redis) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}
