package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tetragramaton/smh-meter/internal/config"
	mqttIface "github.com/tetragramaton/smh-meter/internal/interface/mqtt"
)

type mqttClient struct {
	mqttIface.API
	context.Context
}

// ClientOptions translates cfg into paho options. An empty client id gets a
// random one prefixed with service.
func ClientOptions(cfg config.MQTTConfig, service string, logger zerolog.Logger) (*mqtt.ClientOptions, error) {
	if cfg.URL == "" {
		return nil, errors.New("missing MQTT url")
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = service + "-" + uuid.NewString()
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(clientID).
		SetKeepAlive(30 * time.Second).
		SetConnectTimeout(5 * time.Second).
		SetPingTimeout(3 * time.Second).
		SetOrderMatters(false).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn().Err(err).Msg("mqtt connection lost")
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Info().Str("broker", cfg.URL).Str("client_id", clientID).Msg("mqtt connected")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.TLS {
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})
	}
	return opts, nil
}

// NewClient connects to the broker described by cfg.
func NewClient(cfg config.MQTTConfig, service string, logger zerolog.Logger) (mqttIface.Client, error) {
	opts, err := ClientOptions(cfg, service, logger)
	if err != nil {
		return nil, err
	}

	client := mqtt.NewClient(opts)
	t := client.Connect()
	if ok := t.WaitTimeout(10 * time.Second); !ok {
		return nil, fmt.Errorf("mqtt connect %s: timeout", cfg.URL)
	}
	if err := t.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.URL, err)
	}
	return &mqttClient{
		API:     client,
		Context: context.Background(),
	}, nil
}

func (c mqttClient) PublishEvent(message mqttIface.Message) error {
	t := c.API.Publish(message.Topic, message.QoS, message.Retain, message.Payload)
	t.Wait()
	return t.Error()
}

func (c mqttClient) SubscribeToTopic(sub mqttIface.Subscription) error {
	t := c.API.Subscribe(sub.Topic, sub.QoS, sub.Callback)
	t.Wait()
	return t.Error()
}

func (c mqttClient) Close(quiesce uint) error {
	if c.IsConnectionOpen() {
		c.Disconnect(quiesce)
	}
	return nil
}
