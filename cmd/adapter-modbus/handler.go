package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tetragramaton/smh-meter/internal/client/mqtt"
	"github.com/tetragramaton/smh-meter/internal/config"
	"github.com/tetragramaton/smh-meter/internal/engine"
	mqttIface "github.com/tetragramaton/smh-meter/internal/interface/mqtt"
	"github.com/tetragramaton/smh-meter/internal/meter"
	"github.com/tetragramaton/smh-meter/internal/register"
	"github.com/tetragramaton/smh-meter/internal/telemetry"
)

const serviceName = "adapter-modbus"

// Reader is the part of a meter the adapter polls.
type Reader interface {
	ReadAll(bank register.Bank, scaled bool) engine.Readings
	Catalog() *register.Catalog
	String() string
}

type MainHandler struct {
	MQQTClient mqttIface.Client
	Meter      Reader
	Cfg        *config.Config
	Logger     zerolog.Logger
}

func NewMainHandler(
	mqttClient mqttIface.Client,
	reader Reader,
	cfg *config.Config,
	logger zerolog.Logger,
) *MainHandler {
	return &MainHandler{
		MQQTClient: mqttClient,
		Meter:      reader,
		Cfg:        cfg,
		Logger:     logger,
	}
}

func ProvideModel(cfg *config.Config) (*meter.Model, error) {
	return meter.Lookup(cfg.Model)
}

func ProvideTelemetry(cfg *config.Config) (telemetry.Collector, error) {
	if cfg.Metrics.Listen == "" {
		return telemetry.Noop(), nil
	}
	return telemetry.NewPrometheusCollector(prometheus.DefaultRegisterer)
}

func ProvideMeter(cfg *config.Config, model *meter.Model, logger zerolog.Logger, collector telemetry.Collector) (Reader, func(), error) {
	m, err := meter.New(cfg.Connection, model, meter.WithLogger(logger), meter.WithTelemetry(collector))
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := m.Disconnect(); err != nil {
			logger.Warn().Err(err).Msg("modbus close")
		}
	}
	return m, cleanup, nil
}

func ProvideMqttClient(cfg *config.Config, logger zerolog.Logger) (mqttIface.Client, func(), error) {
	client, err := mqtt.NewClient(cfg.MQTT, serviceName, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close(250)
	}
	return client, cleanup, nil
}
