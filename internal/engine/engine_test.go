package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/tetragramaton/smh-meter/internal/codec"
	"github.com/tetragramaton/smh-meter/internal/interface/modbus/mock"
	"github.com/tetragramaton/smh-meter/internal/register"
)

func entry(key string, addr, length uint16, bank register.Bank, dt register.DataType, vt register.ValueType, group int, scale *register.Scale) register.Entry {
	return register.Entry{Key: key, Descriptor: register.Descriptor{
		Address:    addr,
		Length:     length,
		Bank:       bank,
		DataType:   dt,
		ValueType:  vt,
		BatchGroup: group,
		Scale:      scale,
	}}
}

func newTestEngine(session *fakeSession, opts ...Option) *Engine {
	opts = append([]Option{WithReconnectDelay(0), WithSleep(func(time.Duration) {})}, opts...)
	return New(session, 1, opts...)
}

func TestReadBatchCoalescesIntoOneBlock(t *testing.T) {
	session := newFakeSession()
	session.load(session.input, 100, 0x4366, 0x8000)
	session.load(session.input, 104, 0x0001, 0x1170)
	session.load(session.input, 110, 0, 0, 0, 5)

	entries := []register.Entry{
		entry("energy", 110, 4, register.Input, register.Uint64, register.IntValue, 1, nil),
		entry("voltage", 100, 2, register.Input, register.Float32, register.FloatValue, 1, nil),
		entry("counter", 104, 2, register.Input, register.Uint32, register.IntValue, 1, nil),
	}
	eng := newTestEngine(session)

	readings, err := eng.ReadBatch(register.Input, entries)
	require.NoError(t, err)
	require.Equal(t, []readInvocation{{bank: register.Input, unit: 1, address: 100, quantity: 14}}, session.reads)
	require.Empty(t, readings.Failed)
	require.Equal(t, 230.5, readings.Values["voltage"])
	require.Equal(t, int64(70000), readings.Values["counter"])
	require.Equal(t, int64(5), readings.Values["energy"])
}

func TestReadBatchIsolatesDecodeFailure(t *testing.T) {
	session := newFakeSession()
	session.load(session.holding, 0, 0x4366, 0x8000, 0x1234, 0x00FF)

	entries := []register.Entry{
		entry("voltage", 0, 2, register.Holding, register.Float32, register.FloatValue, 1, nil),
		entry("broken", 2, 1, register.Holding, register.Float32, register.FloatValue, 1, nil),
		entry("flags", 3, 1, register.Holding, register.Uint16, register.IntValue, 1, nil),
	}
	readings, err := newTestEngine(session).ReadBatch(register.Holding, entries)
	require.NoError(t, err)
	require.Len(t, session.reads, 1)
	require.Equal(t, 230.5, readings.Values["voltage"])
	require.Equal(t, int64(0xFF), readings.Values["flags"])
	require.NotContains(t, readings.Values, "broken")
	require.ErrorIs(t, readings.Failed["broken"], codec.ErrDecode)
}

func TestReadBatchFailedBlockIsEmpty(t *testing.T) {
	session := newFakeSession()
	session.readErrs = []error{errors.New("timeout"), errors.New("timeout"), errors.New("timeout")}

	entries := []register.Entry{
		entry("a", 0, 1, register.Input, register.Uint16, register.IntValue, 1, nil),
		entry("b", 1, 1, register.Input, register.Uint16, register.IntValue, 1, nil),
	}
	readings, err := newTestEngine(session).ReadBatch(register.Input, entries)
	require.ErrorIs(t, err, ErrTransactionFailed)
	require.Empty(t, readings.Values)
	require.Empty(t, readings.Failed)
	require.Len(t, session.reads, 3)
}

func TestReadBatchRejectsForeignBank(t *testing.T) {
	session := newFakeSession()
	entries := []register.Entry{
		entry("a", 0, 1, register.Input, register.Uint16, register.IntValue, 1, nil),
		entry("b", 1, 1, register.Holding, register.Uint16, register.IntValue, 1, nil),
	}
	readings, err := newTestEngine(session).ReadBatch(register.Input, entries)
	require.NoError(t, err)
	require.Contains(t, readings.Values, "a")
	require.Error(t, readings.Failed["b"])
	require.Equal(t, uint16(1), session.reads[0].quantity)
}

func TestReadOneExhaustsRetriesOnDisconnectedTransport(t *testing.T) {
	ctrl := gomock.NewController(t)
	session := mock.NewMockSession(ctrl)
	session.EXPECT().IsConnected().Return(false).Times(3)
	session.EXPECT().Connect().Return(errors.New("no such device")).Times(3)

	var sleeps []time.Duration
	eng := New(session, 1, WithRetries(3), WithSleep(func(d time.Duration) { sleeps = append(sleeps, d) }))

	d := register.Descriptor{Address: 0x10, Length: 2, Bank: register.Input, DataType: register.Float32, ValueType: register.FloatValue}
	value, err := eng.ReadOne(d, false)
	require.Nil(t, value)
	require.ErrorIs(t, err, ErrTransactionFailed)
	require.ErrorIs(t, err, ErrTransportUnavailable)
	require.Equal(t, []time.Duration{DefaultReconnectDelay, DefaultReconnectDelay, DefaultReconnectDelay}, sleeps)
}

func TestReadOneReconnectConsumesAttempt(t *testing.T) {
	ctrl := gomock.NewController(t)
	session := mock.NewMockSession(ctrl)
	gomock.InOrder(
		session.EXPECT().IsConnected().Return(false),
		session.EXPECT().Connect().Return(nil),
		session.EXPECT().IsConnected().Return(true),
		session.EXPECT().ReadInputRegisters(uint8(4), uint16(0x10), uint16(1)).Return([]uint16{0x0901}, nil),
	)
	eng := New(session, 4, WithRetries(2), WithSleep(func(time.Duration) {}))

	d := register.Descriptor{Address: 0x10, Length: 1, Bank: register.Input, DataType: register.Uint16, ValueType: register.IntValue}
	value, err := eng.ReadOne(d, false)
	require.NoError(t, err)
	require.Equal(t, int64(2305), value)
}

func TestReadOneRetriesRejectedResponses(t *testing.T) {
	session := newFakeSession()
	session.load(session.holding, 7, 0x0901)
	session.readErrs = []error{errors.New("exception 4"), nil}

	d := register.Descriptor{Address: 7, Length: 1, Bank: register.Holding, DataType: register.Int16, ValueType: register.IntValue}
	value, err := newTestEngine(session).ReadOne(d, false)
	require.NoError(t, err)
	require.Equal(t, int64(2305), value)
	require.Len(t, session.reads, 2)
}

func TestReadOneRejectsShortResponses(t *testing.T) {
	session := newFakeSession()
	session.truncate = 1

	d := register.Descriptor{Address: 0, Length: 2, Bank: register.Input, DataType: register.Int32, ValueType: register.IntValue}
	_, err := newTestEngine(session, WithRetries(2)).ReadOne(d, false)
	require.ErrorIs(t, err, ErrTransactionFailed)
	require.NotErrorIs(t, err, ErrTransportUnavailable)
	require.Len(t, session.reads, 2)
}

func TestReadOneScaledRequiresScale(t *testing.T) {
	ctrl := gomock.NewController(t)
	session := mock.NewMockSession(ctrl)
	eng := New(session, 1)

	d := register.Descriptor{Address: 0, Length: 8, Bank: register.Input, DataType: register.String, ValueType: register.StringValue}
	_, err := eng.ReadOne(d, true)
	require.ErrorIs(t, err, ErrScalingUndefined)
}

func TestWriteThenScaledReadIsInverse(t *testing.T) {
	session := newFakeSession()
	eng := newTestEngine(session)
	d := register.Descriptor{Address: 0x20, Length: 1, Bank: register.Holding, DataType: register.Int16, ValueType: register.IntValue, Scale: register.Factor(0.1)}

	require.NoError(t, eng.Write(d, 230.5, true))
	require.Equal(t, uint16(2305), session.holding[0x20])

	value, err := eng.ReadOne(d, true)
	require.NoError(t, err)
	require.InDelta(t, 230.5, value, 1e-9)
}

func TestWriteFloat32WordOrder(t *testing.T) {
	session := newFakeSession()
	eng := newTestEngine(session, WithOrder(codec.Order{Word: codec.LittleEndian}))
	d := register.Descriptor{Address: 0, Length: 2, Bank: register.Holding, DataType: register.Float32, ValueType: register.FloatValue, Scale: register.Factor(1)}

	require.NoError(t, eng.Write(d, 230.5, false))
	require.Equal(t, uint16(0x8000), session.holding[0])
	require.Equal(t, uint16(0x4366), session.holding[1])

	value, err := eng.ReadOne(d, false)
	require.NoError(t, err)
	require.Equal(t, 230.5, value)
}

func TestWriteRejectsBeforeIO(t *testing.T) {
	ctrl := gomock.NewController(t)
	session := mock.NewMockSession(ctrl)
	eng := New(session, 1)

	input := register.Descriptor{Address: 0, Length: 2, Bank: register.Input, DataType: register.Float32, ValueType: register.FloatValue, Scale: register.Factor(1)}
	require.ErrorIs(t, eng.Write(input, 1, false), codec.ErrUnsupportedType)

	uint64Holding := register.Descriptor{Address: 0, Length: 4, Bank: register.Holding, DataType: register.Uint64, ValueType: register.IntValue, Scale: register.Factor(1)}
	require.ErrorIs(t, eng.Write(uint64Holding, 1, false), codec.ErrUnsupportedType)

	unscaled := register.Descriptor{Address: 0, Length: 1, Bank: register.Holding, DataType: register.Int16, ValueType: register.IntValue}
	require.ErrorIs(t, eng.Write(unscaled, 1, true), ErrScalingUndefined)

	require.ErrorIs(t, eng.Write(unscaled, 40000, false), codec.ErrEncode)
}

func TestWriteReportsTransportUnavailable(t *testing.T) {
	session := newFakeSession()
	session.connected = false
	session.connectErr = errors.New("refused")
	d := register.Descriptor{Address: 0, Length: 1, Bank: register.Holding, DataType: register.Int16, ValueType: register.IntValue}

	err := newTestEngine(session).Write(d, 1, false)
	require.ErrorIs(t, err, ErrTransportUnavailable)
	require.Equal(t, 1, session.connects)
	require.Empty(t, session.writes)
}

func TestReadAllWalksGroupsUntilGap(t *testing.T) {
	session := newFakeSession()
	session.load(session.input, 0, 2305, 100)
	session.load(session.input, 10, 0x4366, 0x8000)
	session.load(session.input, 40, 7)
	session.load(session.input, 50, 'A'<<8|'B', 0)

	catalog := register.MustCatalog([]register.Entry{
		entry("voltage", 0, 1, register.Input, register.Uint16, register.IntValue, 1, register.Factor(0.1)),
		entry("current", 1, 1, register.Input, register.Uint16, register.IntValue, 1, register.Shifted(1, 2)),
		entry("power", 10, 2, register.Input, register.Float32, register.FloatValue, 2, register.Factor(1)),
		entry("orphan", 40, 1, register.Input, register.Uint16, register.IntValue, 4, register.Factor(1)),
		entry("serial", 50, 2, register.Input, register.String, register.StringValue, 2, nil),
		entry("single", 60, 1, register.Input, register.Uint16, register.IntValue, 0, register.Factor(1)),
		entry("setpoint", 0, 1, register.Holding, register.Uint16, register.IntValue, 1, register.Factor(1)),
	})
	eng := newTestEngine(session)

	raw := eng.ReadAll(catalog, register.Input, false)
	require.Empty(t, raw.Failed)
	require.Equal(t, map[string]any{
		"voltage": int64(2305),
		"current": int64(100),
		"power":   230.5,
		"serial":  "AB",
	}, raw.Values)
	require.Equal(t, []readInvocation{
		{bank: register.Input, unit: 1, address: 0, quantity: 2},
		{bank: register.Input, unit: 1, address: 10, quantity: 42},
	}, session.reads)

	scaled := eng.ReadAll(catalog, register.Input, true)
	require.InDelta(t, 230.5, scaled.Values["voltage"], 1e-9)
	require.InDelta(t, 1.0, scaled.Values["current"], 1e-9)
	require.InDelta(t, 230.5, scaled.Values["power"], 1e-9)
	require.NotContains(t, scaled.Values, "serial")
	require.ErrorIs(t, scaled.Failed["serial"], ErrScalingUndefined)
}

func TestReadAllReportsFailedGroup(t *testing.T) {
	session := newFakeSession()
	session.readErrs = []error{errors.New("crc"), errors.New("crc")}
	session.load(session.input, 10, 9)

	catalog := register.MustCatalog([]register.Entry{
		entry("a", 0, 1, register.Input, register.Uint16, register.IntValue, 1, nil),
		entry("b", 10, 1, register.Input, register.Uint16, register.IntValue, 2, nil),
	})
	readings := newTestEngine(session, WithRetries(2)).ReadAll(catalog, register.Input, false)
	require.ErrorIs(t, readings.Failed["a"], ErrTransactionFailed)
	require.Equal(t, map[string]any{"b": int64(9)}, readings.Values)
}

func TestScaleAndUnscale(t *testing.T) {
	v, err := Scale(int64(23050), register.Shifted(1, 2))
	require.NoError(t, err)
	require.Equal(t, 230.5, v)

	v, err = Scale(int64(2305), register.Factor(0.1))
	require.NoError(t, err)
	require.Equal(t, 230.5, v)

	raw, err := Unscale(230.5, register.Shifted(1, 2))
	require.NoError(t, err)
	require.Equal(t, 23050.0, raw)

	_, err = Scale("AB", register.Factor(1))
	require.ErrorIs(t, err, ErrScalingUndefined)
	_, err = Scale(int64(1), nil)
	require.ErrorIs(t, err, ErrScalingUndefined)
	_, err = Unscale(1, nil)
	require.ErrorIs(t, err, ErrScalingUndefined)
}
