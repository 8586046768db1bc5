package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTimeout  = time.Second
	DefaultRetries  = 3
	DefaultUnit     = 1
	DefaultPort     = 502
	DefaultBaud     = 38400
	DefaultParity   = "N"
	DefaultStopBits = 1
	DefaultDataBits = 8
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "5s" or "1m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Mode selects the transport of a connection.
type Mode string

const (
	ModeRTU Mode = "rtu"
	ModeTCP Mode = "tcp"
	ModeUDP Mode = "udp"
)

// Framer overrides the default framing of a connection: "rtu" frames over a
// TCP or UDP socket, "ascii" frames over a serial line, "socket" is the
// MBAP framing of TCP and UDP.
type Framer string

const (
	FramerDefault Framer = ""
	FramerRTU     Framer = "rtu"
	FramerASCII   Framer = "ascii"
	FramerSocket  Framer = "socket"
)

// SerialConfig holds the line settings of an RTU connection.
type SerialConfig struct {
	Device   string `yaml:"device"`
	Baud     int    `yaml:"baud,omitempty"`
	DataBits int    `yaml:"data_bits,omitempty"`
	Parity   string `yaml:"parity,omitempty"`
	StopBits int    `yaml:"stop_bits,omitempty"`
}

// NetConfig holds the endpoint of a TCP or UDP connection.
type NetConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port,omitempty"`
}

// Address renders host:port.
func (n NetConfig) Address() string {
	return fmt.Sprintf("%s:%d", n.Host, n.Port)
}

// ConnectionConfig describes how to reach a unit. Mode decides which of
// Serial (rtu) or Net (tcp, udp) is set; the other must be nil.
type ConnectionConfig struct {
	Mode    Mode          `yaml:"mode"`
	Serial  *SerialConfig `yaml:"serial,omitempty"`
	Net     *NetConfig    `yaml:"net,omitempty"`
	Unit    uint8         `yaml:"unit,omitempty"`
	Timeout Duration      `yaml:"timeout,omitempty"`
	Retries int           `yaml:"retries,omitempty"`
	Framer  Framer        `yaml:"framer,omitempty"`
}

// RTU returns a serial connection config.
func RTU(serial SerialConfig) ConnectionConfig {
	return ConnectionConfig{Mode: ModeRTU, Serial: &serial}
}

// TCP returns a TCP connection config.
func TCP(host string, port int) ConnectionConfig {
	return ConnectionConfig{Mode: ModeTCP, Net: &NetConfig{Host: host, Port: port}}
}

// UDP returns a UDP connection config.
func UDP(host string, port int) ConnectionConfig {
	return ConnectionConfig{Mode: ModeUDP, Net: &NetConfig{Host: host, Port: port}}
}

// SerialDefaults are the line settings used when a config leaves them empty.
type SerialDefaults struct {
	Baud     int
	Parity   string
	StopBits int
}

// WithDefaults fills unset fields. Serial defaults come from the device model.
func (c ConnectionConfig) WithDefaults(serial SerialDefaults) ConnectionConfig {
	out := c
	out.Mode = Mode(strings.ToLower(string(c.Mode)))
	if out.Unit == 0 {
		out.Unit = DefaultUnit
	}
	if out.Timeout.Duration <= 0 {
		out.Timeout.Duration = DefaultTimeout
	}
	if out.Retries <= 0 {
		out.Retries = DefaultRetries
	}
	if c.Serial != nil {
		s := *c.Serial
		if s.Baud == 0 {
			s.Baud = serial.Baud
			if s.Baud == 0 {
				s.Baud = DefaultBaud
			}
		}
		if s.DataBits == 0 {
			s.DataBits = DefaultDataBits
		}
		s.Parity = normalizeParity(s.Parity, serial.Parity)
		if s.StopBits == 0 {
			s.StopBits = serial.StopBits
			if s.StopBits == 0 {
				s.StopBits = DefaultStopBits
			}
		}
		out.Serial = &s
	}
	if c.Net != nil {
		n := *c.Net
		if n.Port == 0 {
			n.Port = DefaultPort
		}
		out.Net = &n
	}
	return out
}

// unknown parities fall back to no parity, the way the meters ship
func normalizeParity(p, def string) string {
	switch strings.ToUpper(strings.TrimSpace(p)) {
	case "N", "E", "O":
		return strings.ToUpper(strings.TrimSpace(p))
	case "":
		if def != "" {
			return def
		}
		return DefaultParity
	default:
		return "N"
	}
}

// Validate checks the tagged union and the parameter ranges.
func (c ConnectionConfig) Validate() error {
	switch c.Mode {
	case ModeRTU:
		if c.Serial == nil || c.Serial.Device == "" {
			return fmt.Errorf("rtu connection requires serial.device")
		}
		if c.Net != nil {
			return fmt.Errorf("rtu connection must not set net")
		}
		switch c.Framer {
		case FramerDefault, FramerRTU, FramerASCII:
		default:
			return fmt.Errorf("framer %q not supported on serial lines", c.Framer)
		}
	case ModeTCP, ModeUDP:
		if c.Net == nil || c.Net.Host == "" {
			return fmt.Errorf("%s connection requires net.host", c.Mode)
		}
		if c.Serial != nil {
			return fmt.Errorf("%s connection must not set serial", c.Mode)
		}
		if c.Net.Port < 0 || c.Net.Port > 0xFFFF {
			return fmt.Errorf("port %d out of range", c.Net.Port)
		}
		switch c.Framer {
		case FramerDefault, FramerRTU, FramerSocket:
		default:
			return fmt.Errorf("framer %q not supported on %s", c.Framer, c.Mode)
		}
	case "":
		return fmt.Errorf("connection mode is required")
	default:
		return fmt.Errorf("unknown connection mode %q", c.Mode)
	}
	if c.Unit < 1 || c.Unit > 247 {
		return fmt.Errorf("unit %d out of range 1-247", c.Unit)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative")
	}
	return nil
}

// PollConfig configures the adapter's read loop.
type PollConfig struct {
	Interval Duration `yaml:"interval,omitempty"`
	Bank     string   `yaml:"bank,omitempty"`
	// Raw publishes unscaled register values.
	Raw bool `yaml:"raw,omitempty"`
}

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	URL         string `yaml:"url"`
	ClientID    string `yaml:"client_id,omitempty"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TLS         bool   `yaml:"tls,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
}

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `yaml:"level"`
	Format string     `yaml:"format"`
	Loki   LokiConfig `yaml:"loki"`
}

// MetricsConfig enables the Prometheus endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

// Config is the root configuration structure of the commands.
type Config struct {
	DeviceID   string           `yaml:"device_id"`
	Model      string           `yaml:"model"`
	Area       string           `yaml:"area,omitempty"`
	Connection ConnectionConfig `yaml:"connection"`
	Poll       PollConfig       `yaml:"poll"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.DeviceID == "" {
		c.DeviceID = "ws100.meter"
	}
	if c.Model == "" {
		c.Model = "ws100_19xx"
	}
	if c.Area == "" {
		c.Area = "lab"
	}
	if c.Connection.Mode == "" && c.Connection.Serial == nil && c.Connection.Net == nil {
		c.Connection.Mode = ModeRTU
		c.Connection.Serial = &SerialConfig{Device: "/dev/ttyUSB0"}
	}
	if c.Poll.Interval.Duration <= 0 {
		c.Poll.Interval.Duration = 5 * time.Second
	}
	if c.Poll.Bank == "" {
		c.Poll.Bank = "input"
	}
	if c.MQTT.URL == "" {
		c.MQTT.URL = "tcp://mqtt:1883"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "smh"
	}
}

// Load reads and decodes the configuration file from disk. An empty path
// returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// PollInterval returns the configured read interval.
func (c *Config) PollInterval() time.Duration {
	if c == nil || c.Poll.Interval.Duration <= 0 {
		return 5 * time.Second
	}
	return c.Poll.Interval.Duration
}

// Topic joins the MQTT topic prefix, the device id and path.
func (c *Config) Topic(path string) string {
	prefix := c.MQTT.TopicPrefix
	if prefix == "" {
		prefix = "smh"
	}
	return prefix + "/" + c.DeviceID + path
}
