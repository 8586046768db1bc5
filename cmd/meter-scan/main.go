// Command meter-scan probes a bus for meters of one model and optionally dumps
// their values. With -model auto it probes with the SDM630 table and works
// out each unit's model.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/tetragramaton/smh-meter/internal/config"
	"github.com/tetragramaton/smh-meter/internal/logging"
	"github.com/tetragramaton/smh-meter/internal/meter"
	"github.com/tetragramaton/smh-meter/internal/register"
)

type scanFlags struct {
	mode     string
	device   string
	baud     int
	parity   string
	stopBits int
	host     string
	port     int
	framer   string
	timeout  time.Duration
	retries  int
	model    string
	from     uint
	to       uint
	pause    time.Duration
	read     bool
	logLevel string
}

func parseFlags(args []string) (scanFlags, error) {
	var f scanFlags
	fs := flag.NewFlagSet("meter-scan", flag.ContinueOnError)
	fs.StringVar(&f.mode, "mode", "rtu", "Transport: rtu, tcp or udp")
	fs.StringVar(&f.device, "device", "/dev/ttyUSB0", "Serial device (rtu)")
	fs.IntVar(&f.baud, "baud", 0, "Baud rate, model default when 0 (rtu)")
	fs.StringVar(&f.parity, "parity", "", "Parity N, E or O (rtu)")
	fs.IntVar(&f.stopBits, "stopbits", 0, "Stop bits, model default when 0 (rtu)")
	fs.StringVar(&f.host, "host", "", "Host (tcp, udp)")
	fs.IntVar(&f.port, "port", config.DefaultPort, "Port (tcp, udp)")
	fs.StringVar(&f.framer, "framer", "", "Framer override: rtu, ascii or socket")
	fs.DurationVar(&f.timeout, "timeout", 200*time.Millisecond, "Per request timeout")
	fs.IntVar(&f.retries, "retries", 1, "Attempts per probe")
	fs.StringVar(&f.model, "model", "ws100_19xx", "Meter model: auto, "+strings.Join(meter.Models(), ", "))
	fs.UintVar(&f.from, "from", 1, "First unit address")
	fs.UintVar(&f.to, "to", 247, "Last unit address")
	fs.DurationVar(&f.pause, "pause", 50*time.Millisecond, "Pause between found units")
	fs.BoolVar(&f.read, "read", false, "Print the scaled input values of every unit found")
	fs.StringVar(&f.logLevel, "log-level", "warn", "Log level")
	if err := fs.Parse(args); err != nil {
		return scanFlags{}, err
	}
	if f.from == 0 || f.to > 247 || f.from > f.to {
		return scanFlags{}, fmt.Errorf("invalid unit range %d-%d", f.from, f.to)
	}
	return f, nil
}

const autoModel = "auto"

func (f scanFlags) auto() bool {
	return strings.EqualFold(strings.TrimSpace(f.model), autoModel)
}

// scanModel is the model whose probe key is read. Auto detection probes with
// the SDM630 table.
func (f scanFlags) scanModel() (*meter.Model, error) {
	if f.auto() {
		return meter.SDM630, nil
	}
	return meter.Lookup(f.model)
}

func (f scanFlags) connection() (config.ConnectionConfig, error) {
	var conn config.ConnectionConfig
	switch config.Mode(strings.ToLower(f.mode)) {
	case config.ModeRTU:
		baud := f.baud
		if baud == 0 && f.auto() {
			// mixed buses run at the lowest common rate
			baud = 9600
		}
		conn = config.RTU(config.SerialConfig{
			Device:   f.device,
			Baud:     baud,
			Parity:   f.parity,
			StopBits: f.stopBits,
		})
	case config.ModeTCP:
		conn = config.TCP(f.host, f.port)
	case config.ModeUDP:
		conn = config.UDP(f.host, f.port)
	default:
		return config.ConnectionConfig{}, fmt.Errorf("unknown mode %q", f.mode)
	}
	conn.Unit = uint8(f.from)
	conn.Timeout.Duration = f.timeout
	conn.Retries = f.retries
	conn.Framer = config.Framer(strings.ToLower(f.framer))
	return conn, nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "meter-scan: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	model, err := f.scanModel()
	if err != nil {
		return err
	}
	conn, err := f.connection()
	if err != nil {
		return err
	}
	logger, closeLogs, err := logging.Setup(config.LoggingConfig{Level: f.logLevel, Format: "text"}, "meter-scan", "")
	if err != nil {
		return err
	}
	defer closeLogs()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m, err := meter.New(conn, model, meter.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		_ = m.Disconnect()
	}()

	fmt.Fprintf(out, "scanning %s units %d-%d\n", m, f.from, f.to)
	found, err := meter.Scan(ctx, m, model, uint8(f.from), uint8(f.to), f.pause)
	report(out, m, found, f)
	return err
}

func report(out io.Writer, m *meter.Meter, found []uint8, f scanFlags) {
	for _, unit := range found {
		model := m.Model()
		if f.auto() {
			identified, err := meter.Identify(m.Child(nil, unit))
			if err != nil {
				fmt.Fprintf(out, "unit %d: unidentified: %v\n", unit, err)
				continue
			}
			model = identified
		}
		fmt.Fprintf(out, "unit %d: %s\n", unit, model.Name)
		if f.read {
			printReadings(out, m.Child(model, unit))
		}
	}
	if len(found) == 0 {
		fmt.Fprintln(out, "no devices found")
	}
}

func printReadings(out io.Writer, m *meter.Meter) {
	readings := m.ReadAll(register.Input, true)
	keys := make([]string, 0, len(readings.Values))
	for k := range readings.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d, _ := m.Catalog().Lookup(k)
		fmt.Fprintf(out, "  %-32s %v %s\n", k, readings.Values[k], d.Unit)
	}
	for k, err := range readings.Failed {
		fmt.Fprintf(out, "  %-32s error: %v\n", k, err)
	}
}
