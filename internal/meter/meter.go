// Package meter binds a transport session, a unit address and a register
// table into one addressable device.
package meter

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	clientModbus "github.com/tetragramaton/smh-meter/internal/client/modbus"
	"github.com/tetragramaton/smh-meter/internal/config"
	"github.com/tetragramaton/smh-meter/internal/engine"
	modbusIface "github.com/tetragramaton/smh-meter/internal/interface/modbus"
	"github.com/tetragramaton/smh-meter/internal/register"
	"github.com/tetragramaton/smh-meter/internal/telemetry"
)

// ErrUnknownKey is returned for keys missing from the model's catalog.
var ErrUnknownKey = errors.New("unknown register key")

// Meter is one device on a bus. Meters sharing a session through Child are
// not synchronized; callers serialize access across them.
type Meter struct {
	model   *Model
	conn    config.ConnectionConfig
	session modbusIface.Session
	engine  *engine.Engine
	opts    options
}

type options struct {
	logger     zerolog.Logger
	telemetry  telemetry.Collector
	session    modbusIface.Session
	engineOpts []engine.Option
}

// Option customises a Meter.
type Option func(*options)

// WithLogger attaches a logger to the meter and its transactions.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTelemetry reports bus transactions to c.
func WithTelemetry(c telemetry.Collector) Option {
	return func(o *options) {
		o.telemetry = c
	}
}

// WithSession uses s instead of opening a session from the connection config.
func WithSession(s modbusIface.Session) Option {
	return func(o *options) {
		o.session = s
	}
}

// WithEngineOptions passes extra options to the access engine.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *options) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

// New builds a meter of model reachable through cfg. The session is opened
// right away; a failed connect is logged and retried by the first read.
func New(cfg config.ConnectionConfig, model *Model, opts ...Option) (*Meter, error) {
	if model == nil {
		return nil, fmt.Errorf("meter model is required")
	}
	o := options{logger: zerolog.Nop(), telemetry: telemetry.Noop()}
	for _, opt := range opts {
		opt(&o)
	}
	conn := cfg.WithDefaults(model.Serial)
	if err := conn.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", model.Name, err)
	}
	o.logger = o.logger.With().Str("model", model.Name).Logger()

	session := o.session
	if session == nil {
		var err error
		session, err = clientModbus.NewSession(conn, o.logger)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", model.Name, err)
		}
	}

	m := newMeter(model, conn, session, o)
	if err := session.Connect(); err != nil {
		o.logger.Warn().Err(err).Str("session", session.Describe()).Msg("initial connect failed")
	}
	return m, nil
}

func newMeter(model *Model, conn config.ConnectionConfig, session modbusIface.Session, o options) *Meter {
	engineOpts := append([]engine.Option{
		engine.WithRetries(conn.Retries),
		engine.WithOrder(model.Order),
		engine.WithLogger(o.logger),
		engine.WithTelemetry(o.telemetry),
	}, o.engineOpts...)
	return &Meter{
		model:   model,
		conn:    conn,
		session: session,
		engine:  engine.New(session, conn.Unit, engineOpts...),
		opts:    o,
	}
}

// Child returns a meter sharing this meter's session. A nil model keeps the
// parent's model, a zero unit keeps the parent's unit.
func (m *Meter) Child(model *Model, unit uint8) *Meter {
	if model == nil {
		model = m.model
	}
	conn := m.conn
	if unit != 0 {
		conn.Unit = unit
	}
	o := m.opts
	o.logger = o.logger.With().Str("model", model.Name).Logger()
	return newMeter(model, conn, m.session, o)
}

// Model returns the device model.
func (m *Meter) Model() *Model {
	return m.model
}

// Catalog returns the model's register table.
func (m *Meter) Catalog() *register.Catalog {
	return m.model.Catalog
}

// Unit returns the addressed unit.
func (m *Meter) Unit() uint8 {
	return m.conn.Unit
}

// Config returns the effective connection config.
func (m *Meter) Config() config.ConnectionConfig {
	return m.conn
}

func (m *Meter) lookup(key string) (register.Descriptor, error) {
	d, ok := m.model.Catalog.Lookup(key)
	if !ok {
		return register.Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return d, nil
}

// GetScaling returns the scale of key, nil when the value is not scalable.
func (m *Meter) GetScaling(key string) (*register.Scale, error) {
	d, err := m.lookup(key)
	if err != nil {
		return nil, err
	}
	return d.Scale, nil
}

// Read reads one value. With scaled set the result is a float64 in
// engineering units.
func (m *Meter) Read(key string, scaled bool) (any, error) {
	d, err := m.lookup(key)
	if err != nil {
		return nil, err
	}
	v, err := m.engine.ReadOne(d, scaled)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

// Write stores value, given in engineering units, into the holding register
// of key.
func (m *Meter) Write(key string, value float64) error {
	d, err := m.lookup(key)
	if err != nil {
		return err
	}
	if err := m.engine.Write(d, value, true); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// ReadAll reads every batched value of bank.
func (m *Meter) ReadAll(bank register.Bank, scaled bool) engine.Readings {
	return m.engine.ReadAll(m.model.Catalog, bank, scaled)
}

// Connect opens the session if it is closed.
func (m *Meter) Connect() error {
	return m.session.Connect()
}

// Disconnect closes the session, for every meter sharing it.
func (m *Meter) Disconnect() error {
	return m.session.Close()
}

// IsConnected reports whether the session is open.
func (m *Meter) IsConnected() bool {
	return m.session.IsConnected()
}

func (m *Meter) String() string {
	framer := string(m.conn.Framer)
	if framer == "" {
		framer = "default"
	}
	switch m.conn.Mode {
	case config.ModeRTU:
		s := m.conn.Serial
		return fmt.Sprintf("%s(%s, %s: stopbits=%d, parity=%s, baud=%d, timeout=%s, retries=%d, unit=0x%x, framer=%s)",
			m.model.Name, s.Device, m.conn.Mode, s.StopBits, s.Parity, s.Baud, m.conn.Timeout.Duration, m.conn.Retries, m.conn.Unit, framer)
	default:
		return fmt.Sprintf("%s(%s, %s: timeout=%s, retries=%d, unit=0x%x, framer=%s)",
			m.model.Name, m.conn.Net.Address(), m.conn.Mode, m.conn.Timeout.Duration, m.conn.Retries, m.conn.Unit, framer)
	}
}
