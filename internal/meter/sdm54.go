package meter

import (
	"github.com/tetragramaton/smh-meter/internal/config"
	"github.com/tetragramaton/smh-meter/internal/register"
)

// SDM54_2T is the Eastron two tariff three phase meter. It shares the SDM630
// measurement block but has no demand registers, which is how Identify tells
// the two apart.
var SDM54_2T = registerModel(&Model{
	Name:     "SDM54_2T",
	Serial:   config.SerialDefaults{Baud: 9600, Parity: "N", StopBits: 1},
	ProbeKey: "l1_voltage",
	Catalog: register.MustCatalog(entries(
		eastronPhases(1),
		eastronTotals(2),
		[]register.Entry{
			{Key: "meter_id", Descriptor: eastronSetting(0x0014, register.IntValue, "Meter ID", "", 1)},
			{Key: "baud", Descriptor: eastronSetting(0x001C, register.IntValue, "Baud Rate", "", 1)},
			eastronSerialNumber(2),
		},
	)),
})
