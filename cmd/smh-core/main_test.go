package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tetragramaton/smh-meter/internal/config"
	"github.com/tetragramaton/smh-meter/internal/ha"
	mqttIface "github.com/tetragramaton/smh-meter/internal/interface/mqtt"
	"github.com/tetragramaton/smh-meter/internal/interface/mqtt/mock"
)

func newHandler(t *testing.T) (*MainHandler, *mock.MockClient) {
	ctrl := gomock.NewController(t)
	client := mock.NewMockClient(ctrl)
	cfg := config.Default()
	cfg.MQTT.TopicPrefix = "home"
	return NewMainHandler(client, cfg, zerolog.Nop()), client
}

func TestHandleMetaPublishesRetainedConfigs(t *testing.T) {
	h, client := newHandler(t)
	meta := ha.Meta{
		DeviceID:   "ws100.kitchen",
		Model:      "ws100_19xx",
		StateTopic: "home/ws100.kitchen/state",
		Sensors: []ha.Sensor{
			{Key: "voltage", Label: "Voltage", Unit: "V"},
			{Key: "active_energy", Label: "Active energy", Unit: "kWh"},
		},
	}
	payload, err := json.Marshal(meta)
	require.NoError(t, err)

	var sent []mqttIface.Message
	client.EXPECT().PublishEvent(gomock.Any()).DoAndReturn(func(m mqttIface.Message) error {
		sent = append(sent, m)
		return nil
	}).Times(2)

	require.NoError(t, h.HandleMeta(payload))
	require.Equal(t, "homeassistant/sensor/ws100_kitchen/voltage/config", sent[0].Topic)
	require.Equal(t, "homeassistant/sensor/ws100_kitchen/active_energy/config", sent[1].Topic)
	for _, m := range sent {
		require.True(t, m.Retain)
	}

	var cfg map[string]any
	require.NoError(t, json.Unmarshal(sent[1].Payload, &cfg))
	require.Equal(t, "energy", cfg["device_class"])
	require.Equal(t, "total_increasing", cfg["state_class"])
	require.Equal(t, "home/ws100.kitchen/state", cfg["state_topic"])
}

func TestHandleMetaRejectsGarbage(t *testing.T) {
	h, _ := newHandler(t)
	require.Error(t, h.HandleMeta([]byte("{")))
	require.Error(t, h.HandleMeta([]byte(`{"sensors":[]}`)))
}

func TestHandleSubscribesToAnnouncements(t *testing.T) {
	h, client := newHandler(t)
	client.EXPECT().SubscribeToTopic(gomock.Any()).DoAndReturn(func(s mqttIface.Subscription) error {
		require.Equal(t, "home/+/meta", s.Topic)
		require.NotNil(t, s.Callback)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.Handle(ctx))
}

func TestHandleReturnsSubscribeError(t *testing.T) {
	h, client := newHandler(t)
	client.EXPECT().SubscribeToTopic(gomock.Any()).Return(errors.New("not authorized"))
	require.Error(t, h.Handle(context.Background()))
}
