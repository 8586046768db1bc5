package main

import (
	"github.com/rs/zerolog"

	"github.com/tetragramaton/smh-meter/internal/client/mqtt"
	"github.com/tetragramaton/smh-meter/internal/config"
	mqttIface "github.com/tetragramaton/smh-meter/internal/interface/mqtt"
)

const serviceName = "smh-core"

type MainHandler struct {
	MQQTClient mqttIface.Client
	Cfg        *config.Config
	Logger     zerolog.Logger
}

func NewMainHandler(
	mqttClient mqttIface.Client,
	cfg *config.Config,
	logger zerolog.Logger,
) *MainHandler {
	return &MainHandler{
		MQQTClient: mqttClient,
		Cfg:        cfg,
		Logger:     logger,
	}
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
