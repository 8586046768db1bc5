package mqtt

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

//go:generate mockgen -destination=mock/mock_mqtt.go -package=mock github.com/tetragramaton/smh-meter/internal/interface/mqtt Client

// DefaultQoS is used for every state, meta and discovery message.
const DefaultQoS byte = 1

type Message struct {
	Topic   string `json:"topic"`
	Payload []byte `json:"payload"`
	QoS     byte   `json:"qos"`
	Retain  bool   `json:"retain"`
}

// JSONMessage marshals payload into a message for topic.
func JSONMessage(topic string, payload any, retain bool) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	return Message{Topic: topic, Payload: data, QoS: DefaultQoS, Retain: retain}, nil
}

type Subscription struct {
	Topic    string              `json:"topic"`
	QoS      byte                `json:"qos"`
	Callback mqtt.MessageHandler `json:"-"`
}

// Client publishes adapter events and subscribes to announcements.
type Client interface {
	API
	PublishEvent(message Message) error
	SubscribeToTopic(subscription Subscription) error
	Close(quiesce uint) error
}

// API is the subset of the paho client the wrappers use.
type API interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Disconnect(quiesce uint)
	IsConnectionOpen() bool
}
