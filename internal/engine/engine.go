// Package engine turns register descriptors into retried, coalesced bus
// transactions and decodes the returned words.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tetragramaton/smh-meter/internal/codec"
	"github.com/tetragramaton/smh-meter/internal/config"
	"github.com/tetragramaton/smh-meter/internal/interface/modbus"
	"github.com/tetragramaton/smh-meter/internal/register"
	"github.com/tetragramaton/smh-meter/internal/telemetry"
)

var (
	// ErrTransportUnavailable is returned when the session cannot be opened.
	ErrTransportUnavailable = errors.New("transport unavailable")
	// ErrTransactionFailed is returned when every attempt of a read was rejected.
	ErrTransactionFailed = errors.New("transaction failed")
	// ErrScalingUndefined is returned when scaling is requested for a
	// descriptor without a scale.
	ErrScalingUndefined = errors.New("scaling undefined")
)

// DefaultReconnectDelay is the pause after every reconnect attempt.
const DefaultReconnectDelay = 100 * time.Millisecond

// Engine performs register transactions against one unit of a session.
type Engine struct {
	session        modbus.Session
	unit           uint8
	retries        int
	reconnectDelay time.Duration
	order          codec.Order
	logger         zerolog.Logger
	telemetry      telemetry.Collector
	sleep          func(time.Duration)
}

// Option customises an Engine.
type Option func(*Engine)

// WithRetries sets the number of attempts per read. Values below one fall
// back to the default.
func WithRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.retries = n
		}
	}
}

// WithReconnectDelay sets the pause inserted after a reconnect attempt.
func WithReconnectDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.reconnectDelay = d
		}
	}
}

// WithOrder sets the byte and word order of multi-word values.
func WithOrder(order codec.Order) Option {
	return func(e *Engine) {
		e.order = order
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTelemetry attaches a metrics collector.
func WithTelemetry(c telemetry.Collector) Option {
	return func(e *Engine) {
		if c != nil {
			e.telemetry = c
		}
	}
}

// WithSleep replaces time.Sleep for the reconnect delay.
func WithSleep(sleep func(time.Duration)) Option {
	return func(e *Engine) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// New creates an engine addressing unit over session.
func New(session modbus.Session, unit uint8, opts ...Option) *Engine {
	e := &Engine{
		session:        session,
		unit:           unit,
		retries:        config.DefaultRetries,
		reconnectDelay: DefaultReconnectDelay,
		logger:         zerolog.Nop(),
		telemetry:      telemetry.Noop(),
		sleep:          time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Uint8("unit", unit).Logger()
	return e
}

// Session returns the underlying session.
func (e *Engine) Session() modbus.Session {
	return e.session
}

// Unit returns the addressed unit.
func (e *Engine) Unit() uint8 {
	return e.unit
}

// Retries returns the number of attempts per read.
func (e *Engine) Retries() int {
	return e.retries
}

// Order returns the configured byte and word order.
func (e *Engine) Order() codec.Order {
	return e.order
}

// ReadWords reads quantity words at address from bank. Disconnected sessions
// are reopened inside the retry loop; a reconnect consumes one attempt just
// like a rejected response does.
func (e *Engine) ReadWords(bank register.Bank, address, quantity uint16) ([]uint16, error) {
	if bank != register.Input && bank != register.Holding {
		return nil, fmt.Errorf("read %s: unknown bank", bank)
	}
	if quantity == 0 {
		return nil, fmt.Errorf("read %s 0x%04X: zero quantity", bank, address)
	}
	var (
		lastErr     error
		connectFail bool
	)
	for attempt := 1; attempt <= e.retries; attempt++ {
		if !e.session.IsConnected() {
			err := e.session.Connect()
			if err != nil {
				e.logger.Debug().Err(err).Int("attempt", attempt).Msg("reconnect failed")
				lastErr = err
				connectFail = true
			} else {
				e.logger.Debug().Int("attempt", attempt).Msg("reconnected")
				lastErr = errors.New("session was disconnected")
				connectFail = false
			}
			e.telemetry.IncRetry("disconnected")
			e.sleep(e.reconnectDelay)
			continue
		}
		connectFail = false

		words, err := e.transact(bank, address, quantity)
		if err != nil {
			e.logger.Debug().Err(err).Int("attempt", attempt).Stringer("bank", bank).
				Uint16("address", address).Uint16("quantity", quantity).Msg("read attempt failed")
			e.telemetry.IncRetry("error")
			lastErr = err
			continue
		}
		if len(words) != int(quantity) {
			e.logger.Debug().Int("attempt", attempt).Int("got", len(words)).Uint16("want", quantity).Msg("short response")
			e.telemetry.IncRetry("length")
			lastErr = fmt.Errorf("got %d words, want %d", len(words), quantity)
			continue
		}
		e.telemetry.ObserveTransaction(bank.String(), "ok")
		return words, nil
	}

	e.telemetry.ObserveTransaction(bank.String(), "failed")
	if lastErr == nil {
		lastErr = errors.New("no attempts")
	}
	if connectFail {
		return nil, fmt.Errorf("read %s 0x%04X+%d after %d attempts: %w: %w: %v",
			bank, address, quantity, e.retries, ErrTransactionFailed, ErrTransportUnavailable, lastErr)
	}
	return nil, fmt.Errorf("read %s 0x%04X+%d after %d attempts: %w: %v",
		bank, address, quantity, e.retries, ErrTransactionFailed, lastErr)
}

func (e *Engine) transact(bank register.Bank, address, quantity uint16) ([]uint16, error) {
	if bank == register.Holding {
		return e.session.ReadHoldingRegisters(e.unit, address, quantity)
	}
	return e.session.ReadInputRegisters(e.unit, address, quantity)
}

// ReadOne reads and decodes a single descriptor. With scaled set the value is
// converted with the descriptor's scale and returned as float64.
func (e *Engine) ReadOne(d register.Descriptor, scaled bool) (any, error) {
	if scaled && d.Scale == nil {
		return nil, ErrScalingUndefined
	}
	words, err := e.ReadWords(d.Bank, d.Address, d.Length)
	if err != nil {
		return nil, err
	}
	value, err := codec.Decode(words, int(d.Length), d.DataType, d.ValueType, e.order)
	if err != nil {
		return nil, err
	}
	if !scaled {
		return value, nil
	}
	return Scale(value, d.Scale)
}

// Write encodes value with the descriptor's type and writes it to the
// holding bank. With scaled set the value is divided by the descriptor's
// scale first. Writes are not retried.
func (e *Engine) Write(d register.Descriptor, value float64, scaled bool) error {
	if d.Bank != register.Holding {
		return fmt.Errorf("%w: %s registers are read only", codec.ErrUnsupportedType, d.Bank)
	}
	if !codec.Encodable(d.DataType) {
		return fmt.Errorf("%w: cannot write %s", codec.ErrUnsupportedType, d.DataType)
	}
	raw := value
	if scaled {
		var err error
		raw, err = Unscale(value, d.Scale)
		if err != nil {
			return err
		}
	}
	words, err := codec.Encode(raw, d.DataType, e.order)
	if err != nil {
		return err
	}
	if len(words) != int(d.Length) {
		return fmt.Errorf("%w: %s encodes to %d words, register holds %d", codec.ErrEncode, d.DataType, len(words), d.Length)
	}
	if !e.session.IsConnected() {
		if err := e.session.Connect(); err != nil {
			return fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
		}
	}
	if err := e.session.WriteHoldingRegisters(e.unit, d.Address, words); err != nil {
		e.telemetry.ObserveTransaction("write", "failed")
		return fmt.Errorf("write holding 0x%04X: %w", d.Address, err)
	}
	e.telemetry.ObserveTransaction("write", "ok")
	return nil
}
