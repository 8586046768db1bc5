package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mq "github.com/eclipse/paho.mqtt.golang"

	"github.com/tetragramaton/smh-meter/internal/config"
	"github.com/tetragramaton/smh-meter/internal/ha"
	"github.com/tetragramaton/smh-meter/internal/interface/mqtt"
	"github.com/tetragramaton/smh-meter/internal/logging"
)

func main() {
	cfgPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.ApplyEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "environment: %v\n", err)
		os.Exit(1)
	}
	logger, closeLogs, err := logging.Setup(cfg.Logging, serviceName, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLogs()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	handler, cleanup, err := InitMainHandler(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("init core")
		closeLogs()
		os.Exit(1)
	}
	defer cleanup()

	if err := handler.Handle(ctx); err != nil {
		logger.Error().Err(err).Msg("core stopped")
	}
}

// MetaTopic matches the announcements of every adapter.
func (h *MainHandler) MetaTopic() string {
	prefix := h.Cfg.MQTT.TopicPrefix
	if prefix == "" {
		prefix = "smh"
	}
	return prefix + "/+/meta"
}

// Handle subscribes to adapter announcements and blocks until ctx is done.
func (h *MainHandler) Handle(ctx context.Context) error {
	subscription := mqtt.Subscription{
		Topic: h.MetaTopic(),
		QoS:   mqtt.DefaultQoS,
		Callback: func(_ mq.Client, m mq.Message) {
			if err := h.HandleMeta(m.Payload()); err != nil {
				h.Logger.Warn().Err(err).Str("topic", m.Topic()).Msg("bad meta")
			}
		},
	}
	if err := h.MQQTClient.SubscribeToTopic(subscription); err != nil {
		return fmt.Errorf("subscribe %s: %w", subscription.Topic, err)
	}
	h.Logger.Info().Str("topic", subscription.Topic).Msg("smh-core up; waiting for meta")
	<-ctx.Done()
	return nil
}

// HandleMeta publishes the discovery configs of one announcement.
func (h *MainHandler) HandleMeta(payload []byte) error {
	var meta ha.Meta
	if err := json.Unmarshal(payload, &meta); err != nil {
		return err
	}
	if meta.DeviceID == "" {
		return fmt.Errorf("meta without device_id")
	}
	published := 0
	for _, a := range ha.Discovery(meta) {
		b, err := a.Config.Marshal()
		if err != nil {
			h.Logger.Warn().Err(err).Str("topic", a.Topic).Msg("marshal cfg")
			continue
		}
		if err := h.MQQTClient.PublishEvent(mqtt.Message{
			Topic:   a.Topic,
			Payload: b,
			QoS:     mqtt.DefaultQoS,
			Retain:  true,
		}); err != nil {
			h.Logger.Warn().Err(err).Str("topic", a.Topic).Msg("publish cfg")
			continue
		}
		published++
	}
	h.Logger.Info().Str("device_id", meta.DeviceID).Int("sensors", published).Msg("HA discovery published")
	return nil
}
