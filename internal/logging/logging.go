package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/grafana/loki-client-go/loki"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"

	"github.com/tetragramaton/smh-meter/internal/config"
)

// Setup builds the process logger. Every line carries the service name and,
// when set, the device id. The returned cleanup flushes the Loki client.
func Setup(cfg config.LoggingConfig, service, deviceID string) (zerolog.Logger, func(), error) {
	return setup(os.Stdout, cfg, service, deviceID)
}

func setup(out io.Writer, cfg config.LoggingConfig, service, deviceID string) (zerolog.Logger, func(), error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	stdout := out
	if strings.EqualFold(cfg.Format, "text") {
		stdout = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: out != os.Stdout}
	}

	writers := []io.Writer{stdout}
	cleanup := func() {}

	if cfg.Loki.Enabled {
		lokiWriter, closer, err := newLokiWriter(cfg.Loki, service, deviceID)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		writers = append(writers, lokiWriter)
		cleanup = closer
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp()
	if service != "" {
		ctx = ctx.Str("service", service)
	}
	if deviceID != "" {
		ctx = ctx.Str("device_id", deviceID)
	}
	return ctx.Logger().Level(level), cleanup, nil
}

func newLokiWriter(cfg config.LokiConfig, service, deviceID string) (io.Writer, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("loki url is required")
	}
	lokiCfg, err := loki.NewDefaultConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("prepare loki config: %w", err)
	}
	client, err := loki.New(lokiCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create loki client: %w", err)
	}
	writer := &lokiWriter{client: client, labels: lokiLabels(cfg.Labels, service, deviceID)}
	return writer, client.Stop, nil
}

func lokiLabels(extra map[string]string, service, deviceID string) model.LabelSet {
	labels := model.LabelSet{}
	for k, v := range extra {
		labels[model.LabelName(k)] = model.LabelValue(v)
	}
	if _, ok := labels["app"]; !ok {
		app := service
		if app == "" {
			app = "smh-meter"
		}
		labels["app"] = model.LabelValue(app)
	}
	if _, ok := labels["device"]; !ok && deviceID != "" {
		labels["device"] = model.LabelValue(deviceID)
	}
	return labels
}

type lokiWriter struct {
	client *loki.Client
	labels model.LabelSet
}

func (l *lokiWriter) Write(p []byte) (int, error) {
	entry := strings.TrimSpace(string(p))
	if entry == "" {
		return len(p), nil
	}
	err := l.client.Handle(l.labels, time.Now(), entry)
	return len(p), err
}
