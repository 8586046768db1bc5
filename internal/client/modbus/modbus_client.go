package modbus

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/goburrow/modbus"
	"github.com/rs/zerolog"
	smodbus "github.com/simonvetter/modbus"

	"github.com/tetragramaton/smh-meter/internal/codec"
	"github.com/tetragramaton/smh-meter/internal/config"
	modbusIface "github.com/tetragramaton/smh-meter/internal/interface/modbus"
)

// NewSession builds the transport session for cfg without opening it.
//
// Serial lines and plain Modbus/TCP use goburrow handlers; UDP and RTU
// framing over sockets use URL based clients.
func NewSession(cfg config.ConnectionConfig, logger zerolog.Logger) (modbusIface.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logger.With().Str("transport", string(cfg.Mode)).Logger()

	switch cfg.Mode {
	case config.ModeRTU:
		s := cfg.Serial
		if cfg.Framer == config.FramerASCII {
			h := modbus.NewASCIIClientHandler(s.Device)
			h.BaudRate = s.Baud
			h.DataBits = s.DataBits
			h.Parity = s.Parity
			h.StopBits = s.StopBits
			h.Timeout = cfg.Timeout.Duration
			return newHandlerSession(h, &h.SlaveId, modbus.NewClient(h), describeSerial(cfg), logger), nil
		}
		h := modbus.NewRTUClientHandler(s.Device)
		h.BaudRate = s.Baud
		h.DataBits = s.DataBits
		h.Parity = s.Parity
		h.StopBits = s.StopBits
		h.Timeout = cfg.Timeout.Duration
		return newHandlerSession(h, &h.SlaveId, modbus.NewClient(h), describeSerial(cfg), logger), nil

	case config.ModeTCP:
		if cfg.Framer == config.FramerRTU {
			return newURLSession("rtuovertcp://"+cfg.Net.Address(), cfg, logger)
		}
		h := modbus.NewTCPClientHandler(cfg.Net.Address())
		h.Timeout = cfg.Timeout.Duration
		return newHandlerSession(h, &h.SlaveId, modbus.NewClient(h), "tcp://"+cfg.Net.Address(), logger), nil

	case config.ModeUDP:
		if cfg.Framer == config.FramerRTU {
			return newURLSession("rtuoverudp://"+cfg.Net.Address(), cfg, logger)
		}
		return newURLSession("udp://"+cfg.Net.Address(), cfg, logger)
	}
	return nil, fmt.Errorf("unsupported connection mode %q", cfg.Mode)
}

func describeSerial(cfg config.ConnectionConfig) string {
	s := cfg.Serial
	framer := "rtu"
	if cfg.Framer == config.FramerASCII {
		framer = "ascii"
	}
	return fmt.Sprintf("%s %s %d%s%d@%d", framer, s.Device, s.DataBits, s.Parity, s.StopBits, s.Baud)
}

type connector interface {
	Connect() error
	Close() error
}

// handlerSession drives a goburrow handler. The unit address is written into
// the handler's slave id before every transaction, so one session serves
// every unit on the bus.
type handlerSession struct {
	conn      connector
	slaveID   *byte
	api       modbusIface.API
	describe  string
	connected bool
	logger    zerolog.Logger
}

func newHandlerSession(conn connector, slaveID *byte, api modbusIface.API, describe string, logger zerolog.Logger) *handlerSession {
	return &handlerSession{
		conn:     conn,
		slaveID:  slaveID,
		api:      api,
		describe: describe,
		logger:   logger,
	}
}

func (s *handlerSession) Connect() error {
	if s.connected {
		return nil
	}
	if err := s.conn.Connect(); err != nil {
		return fmt.Errorf("connect %s: %w", s.describe, err)
	}
	s.connected = true
	s.logger.Debug().Str("session", s.describe).Msg("connected")
	return nil
}

func (s *handlerSession) Close() error {
	s.connected = false
	return s.conn.Close()
}

func (s *handlerSession) IsConnected() bool {
	return s.connected
}

func (s *handlerSession) Describe() string {
	return s.describe
}

func (s *handlerSession) ReadInputRegisters(unit uint8, address, quantity uint16) ([]uint16, error) {
	*s.slaveID = unit
	res, err := s.api.ReadInputRegisters(address, quantity)
	if err != nil {
		return nil, s.fail(err)
	}
	return codec.WordsFromBytes(res)
}

func (s *handlerSession) ReadHoldingRegisters(unit uint8, address, quantity uint16) ([]uint16, error) {
	*s.slaveID = unit
	res, err := s.api.ReadHoldingRegisters(address, quantity)
	if err != nil {
		return nil, s.fail(err)
	}
	return codec.WordsFromBytes(res)
}

func (s *handlerSession) WriteHoldingRegisters(unit uint8, address uint16, values []uint16) error {
	*s.slaveID = unit
	if _, err := s.api.WriteMultipleRegisters(address, uint16(len(values)), codec.BytesFromWords(values)); err != nil {
		return s.fail(err)
	}
	return nil
}

func (s *handlerSession) fail(err error) error {
	if linkDown(err) {
		s.logger.Debug().Err(err).Str("session", s.describe).Msg("link down")
		s.connected = false
		_ = s.conn.Close()
	}
	return err
}

// urlSession drives a URL based client for UDP and RTU-over-socket framing.
type urlSession struct {
	client    *smodbus.ModbusClient
	url       string
	connected bool
	logger    zerolog.Logger
}

func newURLSession(url string, cfg config.ConnectionConfig, logger zerolog.Logger) (*urlSession, error) {
	client, err := smodbus.NewClient(&smodbus.ClientConfiguration{
		URL:     url,
		Timeout: cfg.Timeout.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("create client %s: %w", url, err)
	}
	return &urlSession{client: client, url: url, logger: logger}, nil
}

func (s *urlSession) Connect() error {
	if s.connected {
		return nil
	}
	if err := s.client.Open(); err != nil {
		return fmt.Errorf("connect %s: %w", s.url, err)
	}
	s.connected = true
	s.logger.Debug().Str("session", s.url).Msg("connected")
	return nil
}

func (s *urlSession) Close() error {
	s.connected = false
	return s.client.Close()
}

func (s *urlSession) IsConnected() bool {
	return s.connected
}

func (s *urlSession) Describe() string {
	return s.url
}

func (s *urlSession) ReadInputRegisters(unit uint8, address, quantity uint16) ([]uint16, error) {
	return s.read(unit, address, quantity, smodbus.INPUT_REGISTER)
}

func (s *urlSession) ReadHoldingRegisters(unit uint8, address, quantity uint16) ([]uint16, error) {
	return s.read(unit, address, quantity, smodbus.HOLDING_REGISTER)
}

func (s *urlSession) read(unit uint8, address, quantity uint16, regType smodbus.RegType) ([]uint16, error) {
	s.client.SetUnitId(unit)
	words, err := s.client.ReadRegisters(address, quantity, regType)
	if err != nil {
		return nil, s.fail(err)
	}
	return words, nil
}

func (s *urlSession) WriteHoldingRegisters(unit uint8, address uint16, values []uint16) error {
	s.client.SetUnitId(unit)
	if err := s.client.WriteRegisters(address, values); err != nil {
		return s.fail(err)
	}
	return nil
}

func (s *urlSession) fail(err error) error {
	if linkDown(err) {
		s.logger.Debug().Err(err).Str("session", s.url).Msg("link down")
		s.connected = false
		_ = s.client.Close()
	}
	return err
}

// linkDown reports whether err means the connection itself is unusable, as
// opposed to an exception answered by the unit.
func linkDown(err error) bool {
	var exception *modbus.ModbusError
	if errors.As(err, &exception) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	switch {
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, smodbus.ErrRequestTimedOut):
		return true
	}
	return strings.Contains(err.Error(), "broken pipe") || strings.Contains(err.Error(), "connection reset")
}
