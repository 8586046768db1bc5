package mqtt

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tetragramaton/smh-meter/internal/config"
	mqttIface "github.com/tetragramaton/smh-meter/internal/interface/mqtt"
	"github.com/tetragramaton/smh-meter/internal/interface/mqtt/mock"
)

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

func TestClientOptionsDefaultsClientID(t *testing.T) {
	opts, err := ClientOptions(config.MQTTConfig{URL: "tcp://broker:1883"}, "adapter-modbus", zerolog.Nop())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(opts.ClientID, "adapter-modbus-"))
	require.Len(t, opts.Servers, 1)
	require.Equal(t, "broker:1883", opts.Servers[0].Host)
	require.Nil(t, opts.TLSConfig)

	opts, err = ClientOptions(config.MQTTConfig{URL: "ssl://broker:8883", ClientID: "fixed", Username: "u", Password: "p", TLS: true}, "x", zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, "fixed", opts.ClientID)
	require.Equal(t, "u", opts.Username)
	require.NotNil(t, opts.TLSConfig)
}

func TestClientOptionsRequiresURL(t *testing.T) {
	_, err := ClientOptions(config.MQTTConfig{}, "x", zerolog.Nop())
	require.Error(t, err)
}

func TestPublishEventForwardsToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockClient(ctrl)
	api.EXPECT().Publish("smh/a/state", byte(1), false, []byte("{}")).Return(doneToken{})
	api.EXPECT().Publish("smh/a/meta", byte(1), true, []byte("{}")).Return(doneToken{err: errors.New("not connected")})

	c := mqttClient{API: api}
	require.NoError(t, c.PublishEvent(mqttIface.Message{Topic: "smh/a/state", Payload: []byte("{}"), QoS: 1}))
	require.Error(t, c.PublishEvent(mqttIface.Message{Topic: "smh/a/meta", Payload: []byte("{}"), QoS: 1, Retain: true}))
}

func TestCloseDisconnectsOpenClient(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mock.NewMockClient(ctrl)
	api.EXPECT().IsConnectionOpen().Return(true)
	api.EXPECT().Disconnect(uint(250))

	require.NoError(t, mqttClient{API: api}.Close(250))
}
