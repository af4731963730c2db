package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/logger"
)

// Config holds the security system settings.
type Config struct {
	// Name is the display name of the security system.
	Name string `yaml:"name"`
	// DefaultModeName is the mode used when no state is restored.
	DefaultModeName string `yaml:"default_mode"`
	// DisabledModeNames lists modes that may never be requested.
	DisabledModeNames []string `yaml:"disabled_modes,omitempty"`
	// ArmSeconds is the arm delay.
	ArmSeconds int `yaml:"arm_seconds"`
	// TriggerSeconds is the delay between a sensor activation and the alarm.
	TriggerSeconds int `yaml:"trigger_seconds"`
	// SirenSensorSeconds is the interval of the siren motion sensor pulse.
	// Nil means the default; an explicit 0 is kept and runs the pulse at the
	// engine's 1.5s floor.
	SirenSensorSeconds *int `yaml:"siren_sensor_seconds"`
	// ResetMinutes is how long the alarm sounds before resetting. Nil means
	// the default; 0 resets on the next tick.
	ResetMinutes *int `yaml:"reset_minutes"`
	// IgnoreOffMode lets sensors trigger the alarm while the system is off.
	IgnoreOffMode bool `yaml:"ignore_off_mode"`
	// OverrideOff is the legacy name of IgnoreOffMode.
	OverrideOff bool `yaml:"override_off,omitempty"`
	// SaveState restores the state saved at the previous shutdown.
	SaveState bool `yaml:"save_state"`

	Storage  StorageConfig  `yaml:"storage"`
	Audio    AudioConfig    `yaml:"audio"`
	Commands TableConfig    `yaml:"commands,omitempty"`
	Webhook  WebhookConfig  `yaml:"webhook,omitempty"`
	Script   ScriptConfig   `yaml:"script,omitempty"`
	Server   ServerConfig   `yaml:"server"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Log      LogConfig      `yaml:"log"`

	// DefaultMode is parsed from DefaultModeName by Validate.
	DefaultMode security.Mode `yaml:"-"`
	// DisabledModes is parsed from DisabledModeNames by Validate.
	DisabledModes []security.Mode `yaml:"-"`
}

// StorageConfig selects where the state is saved.
type StorageConfig struct {
	// Driver is "file" or "bolt".
	Driver string `yaml:"driver"`
	// Path is the state file or database location.
	Path string `yaml:"path"`
}

// AudioConfig configures sound playback.
type AudioConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Language    string `yaml:"language"`
	Directory   string `yaml:"directory"`
	AlertLooped bool   `yaml:"alert_looped"`
	Player      string `yaml:"player"`
}

// TableConfig maps notification names to values for current and target notifications.
type TableConfig struct {
	Current map[string]string `yaml:"current,omitempty"`
	Target  map[string]string `yaml:"target,omitempty"`
}

// WebhookConfig configures HTTP notifications.
type WebhookConfig struct {
	// Host is the URL prefix of every path, for example "http://localhost:1880".
	Host string `yaml:"host,omitempty"`
	// Current maps current notifications to request paths.
	Current map[string]string `yaml:"current,omitempty"`
	// Target maps target notifications to request paths.
	Target map[string]string `yaml:"target,omitempty"`
	// Timeout bounds each request.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Paths returns the webhook path table.
func (w WebhookConfig) Paths() TableConfig {
	return TableConfig{Current: w.Current, Target: w.Target}
}

// ScriptConfig configures the Lua notification hook.
type ScriptConfig struct {
	// Path is the Lua script defining on_notify.
	Path string `yaml:"path,omitempty"`
}

// ServerConfig configures the control surfaces of the daemon.
type ServerConfig struct {
	// GRPCAddr is the gRPC listen address, also dialled by the control client.
	GRPCAddr string `yaml:"grpc_addr,omitempty"`
	// HTTPAddr is the HTTP listen address for mode endpoints and the event stream.
	HTTPAddr string `yaml:"http_addr,omitempty"`
	// ArmDelay applies the arm delay to requests made through the servers.
	ArmDelay *bool `yaml:"arm_delay,omitempty"`
	// Timeout bounds control client calls.
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// AllowedOrigins lists websocket origin patterns. Empty means same origin only.
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// MQTTConfig configures the Home Assistant MQTT bridge.
type MQTTConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Broker          string `yaml:"broker,omitempty"`
	Username        string `yaml:"username,omitempty"`
	Password        string `yaml:"password,omitempty"`
	TopicPrefix     string `yaml:"topic_prefix"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn, error or fatal.
	Level string `yaml:"level"`
	// Format is console or json.
	Format string `yaml:"format"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "security-system.yaml"

	// DefaultStateFilename is the default filename for the saved state.
	DefaultStateFilename = "security-system-state.json"

	// DefaultName is the default display name.
	DefaultName = "Security system"

	// DefaultSirenSensorSeconds is the default siren pulse interval.
	DefaultSirenSensorSeconds = 5

	// DefaultResetMinutes is the default alarm duration.
	DefaultResetMinutes = 10

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// Defaults for the remaining sections.
const (
	DefaultStorageDriver       = "file"
	DefaultAudioLanguage       = "en-US"
	DefaultAudioDirectory      = "sounds"
	DefaultAudioPlayer         = "ffplay"
	DefaultMQTTTopicPrefix     = "securitysystem"
	DefaultMQTTDiscoveryPrefix = "homeassistant"
	DefaultLogLevel            = "info"
	DefaultLogFormat           = logger.FormatConsole
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
)

//nolint:gochecknoglobals // Read-only lookup tables.
var (
	currentNames = []string{"home", "away", "night", "off", "triggered", security.AlertName}
	targetNames  = []string{"home", "away", "night", "off"}
)

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := new(Config)
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may hold broker credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate applies defaults and checks the settings.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applyDefaults(cfg)

	if err := validateModes(cfg); err != nil {
		return err
	}

	if cfg.ArmSeconds < 0 || cfg.TriggerSeconds < 0 || *cfg.SirenSensorSeconds < 0 || *cfg.ResetMinutes < 0 {
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidConfig)
	}

	switch cfg.Storage.Driver {
	case "file", "bolt":
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, cfg.Storage.Driver)
	}

	if err := validateTable("commands", cfg.Commands); err != nil {
		return err
	}

	if err := validateTable("webhook", cfg.Webhook.Paths()); err != nil {
		return err
	}

	if cfg.Webhook.Host != "" {
		if u, err := url.ParseRequestURI(cfg.Webhook.Host); err != nil || u.Host == "" {
			return fmt.Errorf("%w: webhook host %q is not an absolute URL", ErrInvalidConfig, cfg.Webhook.Host)
		}
	}

	if err := validateAddress("server.grpc_addr", cfg.Server.GRPCAddr); err != nil {
		return err
	}

	if err := validateAddress("server.http_addr", cfg.Server.HTTPAddr); err != nil {
		return err
	}

	if cfg.MQTT.Enabled && cfg.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt.broker is required when mqtt is enabled", ErrInvalidConfig)
	}

	if _, ok := logger.ParseLogLevel(cfg.Log.Level); !ok {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, cfg.Log.Level)
	}

	if cfg.Log.Format != logger.FormatConsole && cfg.Log.Format != logger.FormatJSON {
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, cfg.Log.Format)
	}

	return nil
}

// ArmDelay returns the arm delay.
func (c *Config) ArmDelay() time.Duration {
	return time.Duration(c.ArmSeconds) * time.Second
}

// TriggerDelay returns the trigger delay.
func (c *Config) TriggerDelay() time.Duration {
	return time.Duration(c.TriggerSeconds) * time.Second
}

// SirenPulseInterval returns the siren pulse interval.
func (c *Config) SirenPulseInterval() time.Duration {
	return time.Duration(valueOr(c.SirenSensorSeconds, DefaultSirenSensorSeconds)) * time.Second
}

// ResetDelay returns how long the alarm sounds.
func (c *Config) ResetDelay() time.Duration {
	return time.Duration(valueOr(c.ResetMinutes, DefaultResetMinutes)) * time.Minute
}

func valueOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}

	return *v
}

// ServerArmDelay reports whether server requests use the arm delay.
func (c *Config) ServerArmDelay() bool {
	return c.Server.ArmDelay == nil || *c.Server.ArmDelay
}

func applyDefaults(cfg *Config) {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}

	if cfg.DefaultModeName == "" {
		cfg.DefaultModeName = security.ModeOff.String()
	}

	if cfg.SirenSensorSeconds == nil {
		seconds := DefaultSirenSensorSeconds
		cfg.SirenSensorSeconds = &seconds
	}

	if cfg.ResetMinutes == nil {
		minutes := DefaultResetMinutes
		cfg.ResetMinutes = &minutes
	}

	// The legacy name wins only when set.
	if cfg.OverrideOff {
		cfg.IgnoreOffMode = true
		cfg.OverrideOff = false
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DefaultStorageDriver
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStateFilename
	}

	if cfg.Audio.Language == "" {
		cfg.Audio.Language = DefaultAudioLanguage
	}

	if cfg.Audio.Directory == "" {
		cfg.Audio.Directory = DefaultAudioDirectory
	}

	if cfg.Audio.Player == "" {
		cfg.Audio.Player = DefaultAudioPlayer
	}

	if cfg.Webhook.Timeout <= 0 {
		cfg.Webhook.Timeout = DefaultTimeout
	}

	if cfg.Server.ArmDelay == nil {
		armDelay := true
		cfg.Server.ArmDelay = &armDelay
	}

	if cfg.Server.Timeout <= 0 {
		cfg.Server.Timeout = DefaultTimeout
	}

	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = DefaultMQTTTopicPrefix
	}

	if cfg.MQTT.DiscoveryPrefix == "" {
		cfg.MQTT.DiscoveryPrefix = DefaultMQTTDiscoveryPrefix
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}

	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

func validateModes(cfg *Config) error {
	defaultMode, err := security.ParseMode(cfg.DefaultModeName)
	if err != nil {
		return fmt.Errorf("%w: default_mode: %w", ErrInvalidConfig, err)
	}

	if !defaultMode.IsTarget() {
		return fmt.Errorf("%w: default_mode %s cannot be requested", ErrInvalidConfig, defaultMode)
	}

	disabled := make([]security.Mode, 0, len(cfg.DisabledModeNames))

	for _, name := range cfg.DisabledModeNames {
		mode, err := security.ParseMode(name)
		if err != nil {
			return fmt.Errorf("%w: disabled_modes: %w", ErrInvalidConfig, err)
		}

		if !mode.IsTarget() {
			return fmt.Errorf("%w: disabled_modes: %s cannot be disabled", ErrInvalidConfig, mode)
		}

		if mode == defaultMode {
			return fmt.Errorf("%w: default_mode %s is disabled", ErrInvalidConfig, mode)
		}

		disabled = append(disabled, mode)
	}

	cfg.DefaultMode = defaultMode
	cfg.DisabledModes = disabled

	return nil
}

func validateTable(section string, table TableConfig) error {
	for name := range table.Current {
		if !slices.Contains(currentNames, name) {
			return fmt.Errorf("%w: %s.current.%s is not a notification", ErrInvalidConfig, section, name)
		}
	}

	for name := range table.Target {
		if !slices.Contains(targetNames, name) {
			return fmt.Errorf("%w: %s.target.%s is not a notification", ErrInvalidConfig, section, name)
		}
	}

	return nil
}

func validateAddress(key, address string) error {
	if address == "" {
		return nil
	}

	if _, err := net.ResolveTCPAddr("tcp", address); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}

	return nil
}
