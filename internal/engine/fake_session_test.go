package engine

import (
	"errors"
	"fmt"

	"github.com/tetragramaton/smh-meter/internal/register"
)

type readInvocation struct {
	bank     register.Bank
	unit     uint8
	address  uint16
	quantity uint16
}

// fakeSession models a unit's register memory.
type fakeSession struct {
	connected  bool
	connectErr error
	connects   int

	input   map[uint16]uint16
	holding map[uint16]uint16

	// readErrs are returned by the next reads, one per call.
	readErrs []error
	// truncate drops this many words from every response.
	truncate int

	reads  []readInvocation
	writes []readInvocation
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		connected: true,
		input:     make(map[uint16]uint16),
		holding:   make(map[uint16]uint16),
	}
}

func (f *fakeSession) Connect() error {
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeSession) Close() error {
	f.connected = false
	return nil
}

func (f *fakeSession) IsConnected() bool { return f.connected }

func (f *fakeSession) Describe() string { return "fake" }

func (f *fakeSession) ReadInputRegisters(unit uint8, address, quantity uint16) ([]uint16, error) {
	return f.read(register.Input, f.input, unit, address, quantity)
}

func (f *fakeSession) ReadHoldingRegisters(unit uint8, address, quantity uint16) ([]uint16, error) {
	return f.read(register.Holding, f.holding, unit, address, quantity)
}

func (f *fakeSession) read(bank register.Bank, mem map[uint16]uint16, unit uint8, address, quantity uint16) ([]uint16, error) {
	f.reads = append(f.reads, readInvocation{bank: bank, unit: unit, address: address, quantity: quantity})
	if len(f.readErrs) > 0 {
		err := f.readErrs[0]
		f.readErrs = f.readErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	n := int(quantity) - f.truncate
	if n < 0 {
		n = 0
	}
	words := make([]uint16, n)
	for i := range words {
		words[i] = mem[address+uint16(i)]
	}
	return words, nil
}

func (f *fakeSession) WriteHoldingRegisters(unit uint8, address uint16, values []uint16) error {
	if !f.connected {
		return errors.New("not connected")
	}
	if len(values) == 0 {
		return fmt.Errorf("empty write")
	}
	f.writes = append(f.writes, readInvocation{bank: register.Holding, unit: unit, address: address, quantity: uint16(len(values))})
	for i, v := range values {
		f.holding[address+uint16(i)] = v
	}
	return nil
}

func (f *fakeSession) load(mem map[uint16]uint16, address uint16, words ...uint16) {
	for i, w := range words {
		mem[address+uint16(i)] = w
	}
}
