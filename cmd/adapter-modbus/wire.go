//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/tetragramaton/smh-meter/internal/config"
)

func InitMainHandler(cfg *config.Config, logger zerolog.Logger) (*MainHandler, func(), error) {
	wire.Build(
		NewMainHandler,
		ProvideModel,
		ProvideTelemetry,
		ProvideMeter,
		ProvideMqttClient,
	)
	return nil, nil, nil // wire will generate the result
}
