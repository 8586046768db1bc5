package meter

import (
	"github.com/tetragramaton/smh-meter/internal/config"
	"github.com/tetragramaton/smh-meter/internal/register"
)

// SDM120 is the Eastron single phase meter.
var SDM120 = registerModel(&Model{
	Name:     "SDM120",
	Serial:   config.SerialDefaults{Baud: 2400, Parity: "N", StopBits: 1},
	ProbeKey: "voltage",
	Catalog: register.MustCatalog([]register.Entry{
		{Key: "voltage", Descriptor: eastron(0x0000, "Voltage", "V", 1)},
		{Key: "current", Descriptor: eastron(0x0006, "Current", "A", 1)},
		{Key: "power_active", Descriptor: eastron(0x000C, "Power (Active)", "W", 1)},
		{Key: "power_apparent", Descriptor: eastron(0x0012, "Power (Apparent)", "VA", 1)},
		{Key: "power_reactive", Descriptor: eastron(0x0018, "Power (Reactive)", "VAr", 1)},
		{Key: "power_factor", Descriptor: eastron(0x001E, "Power Factor", "", 1)},
		{Key: "phase_angle", Descriptor: eastron(0x0024, "Phase Angle", "°", 1)},
		{Key: "frequency", Descriptor: eastron(0x0046, "Frequency", "Hz", 1)},
		{Key: "import_energy_active", Descriptor: eastron(0x0048, "Imported Energy (Active)", "kWh", 1)},
		{Key: "export_energy_active", Descriptor: eastron(0x004A, "Exported Energy (Active)", "kWh", 1)},
		{Key: "import_energy_reactive", Descriptor: eastron(0x004C, "Imported Energy (Reactive)", "kVArh", 1)},
		{Key: "export_energy_reactive", Descriptor: eastron(0x004E, "Exported Energy (Reactive)", "kVArh", 1)},

		{Key: "total_demand_power_active", Descriptor: eastron(0x0054, "Total Demand Power (Active)", "W", 2)},
		{Key: "maximum_total_demand_power_active", Descriptor: eastron(0x0056, "Maximum Total Demand Power (Active)", "W", 2)},
		{Key: "import_demand_power_active", Descriptor: eastron(0x0058, "Import Demand Power (Active)", "W", 2)},
		{Key: "maximum_import_demand_power_active", Descriptor: eastron(0x005A, "Maximum Import Demand Power (Active)", "W", 2)},
		{Key: "export_demand_power_active", Descriptor: eastron(0x005C, "Export Demand Power (Active)", "W", 2)},
		{Key: "maximum_export_demand_power_active", Descriptor: eastron(0x005E, "Maximum Export Demand Power (Active)", "W", 2)},

		{Key: "total_demand_current", Descriptor: eastron(0x0102, "Total Demand Current", "A", 3)},
		{Key: "maximum_total_demand_current", Descriptor: eastron(0x0108, "Maximum Total Demand Current", "A", 3)},

		{Key: "total_energy_active", Descriptor: eastron(0x0156, "Total Energy (Active)", "kWh", 4)},
		{Key: "total_energy_reactive", Descriptor: eastron(0x0158, "Total Energy (Reactive)", "kVArh", 4)},

		{Key: "relay_pulse_width", Descriptor: eastronSetting(0x000C, register.IntValue, "Relay Pulse Width", "ms", 1)},
		{Key: "network_parity_stop", Descriptor: eastronSetting(0x0012, register.IntValue, "Network Parity Stop", "", 1)},
		{Key: "meter_id", Descriptor: eastronSetting(0x0014, register.IntValue, "Meter ID", "", 1)},
		{Key: "baud", Descriptor: eastronSetting(0x001C, register.IntValue, "Baud Rate", "", 1)},
		{Key: "serial_number", Descriptor: holding(0xFC00, 2, register.Uint32, register.IntValue, "Serial Number", "", 2, nil)},
	}),
})
