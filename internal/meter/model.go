package meter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tetragramaton/smh-meter/internal/codec"
	"github.com/tetragramaton/smh-meter/internal/config"
	"github.com/tetragramaton/smh-meter/internal/register"
)

// Model is a device type: its register table and the line settings it ships
// with.
type Model struct {
	Name    string
	Catalog *register.Catalog
	Serial  config.SerialDefaults
	Order   codec.Order
	// ProbeKey is read to detect the device during a scan.
	ProbeKey string
}

var models = map[string]*Model{}

func registerModel(m *Model) *Model {
	if _, ok := m.Catalog.Lookup(m.ProbeKey); !ok {
		panic(fmt.Sprintf("model %s: probe key %q not in catalog", m.Name, m.ProbeKey))
	}
	models[modelKey(m.Name)] = m
	return m
}

// modelKey folds case and treats "-" like "_", so SDM54-2T finds SDM54_2T.
func modelKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
}

// Lookup returns the model registered under name, ignoring case.
func Lookup(name string) (*Model, error) {
	m, ok := models[modelKey(name)]
	if !ok {
		return nil, fmt.Errorf("unknown meter model %q (known: %s)", name, strings.Join(Models(), ", "))
	}
	return m, nil
}

// Models lists the registered model names.
func Models() []string {
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

func input(addr, length uint16, dt register.DataType, vt register.ValueType, label, unit string, group int, scale *register.Scale) register.Descriptor {
	return reg(addr, length, register.Input, dt, vt, label, unit, group, scale)
}

func holding(addr, length uint16, dt register.DataType, vt register.ValueType, label, unit string, group int, scale *register.Scale) register.Descriptor {
	return reg(addr, length, register.Holding, dt, vt, label, unit, group, scale)
}

func reg(addr, length uint16, bank register.Bank, dt register.DataType, vt register.ValueType, label, unit string, group int, scale *register.Scale) register.Descriptor {
	return register.Descriptor{
		Address:    addr,
		Length:     length,
		Bank:       bank,
		DataType:   dt,
		ValueType:  vt,
		Label:      label,
		Unit:       unit,
		BatchGroup: group,
		Scale:      scale,
	}
}
