package meter

import (
	"github.com/tetragramaton/smh-meter/internal/config"
	"github.com/tetragramaton/smh-meter/internal/register"
)

func eastron(addr uint16, label, unit string, group int) register.Descriptor {
	return input(addr, 2, register.Float32, register.FloatValue, label, unit, group, register.Factor(1))
}

func eastronSetting(addr uint16, vt register.ValueType, label, unit string, group int) register.Descriptor {
	return holding(addr, 2, register.Float32, vt, label, unit, group, register.Factor(1))
}

// eastronPhases is the three phase measurement block shared by the Eastron
// DIN rail meters, input registers 0x00 to 0x4E.
func eastronPhases(group int) []register.Entry {
	return []register.Entry{
		{Key: "l1_voltage", Descriptor: eastron(0x0000, "L1 Voltage", "V", group)},
		{Key: "l2_voltage", Descriptor: eastron(0x0002, "L2 Voltage", "V", group)},
		{Key: "l3_voltage", Descriptor: eastron(0x0004, "L3 Voltage", "V", group)},
		{Key: "l1_current", Descriptor: eastron(0x0006, "L1 Current", "A", group)},
		{Key: "l2_current", Descriptor: eastron(0x0008, "L2 Current", "A", group)},
		{Key: "l3_current", Descriptor: eastron(0x000A, "L3 Current", "A", group)},
		{Key: "l1_power_active", Descriptor: eastron(0x000C, "L1 Power (Active)", "W", group)},
		{Key: "l2_power_active", Descriptor: eastron(0x000E, "L2 Power (Active)", "W", group)},
		{Key: "l3_power_active", Descriptor: eastron(0x0010, "L3 Power (Active)", "W", group)},
		{Key: "l1_power_apparent", Descriptor: eastron(0x0012, "L1 Power (Apparent)", "VA", group)},
		{Key: "l2_power_apparent", Descriptor: eastron(0x0014, "L2 Power (Apparent)", "VA", group)},
		{Key: "l3_power_apparent", Descriptor: eastron(0x0016, "L3 Power (Apparent)", "VA", group)},
		{Key: "l1_power_reactive", Descriptor: eastron(0x0018, "L1 Power (Reactive)", "VAr", group)},
		{Key: "l2_power_reactive", Descriptor: eastron(0x001A, "L2 Power (Reactive)", "VAr", group)},
		{Key: "l3_power_reactive", Descriptor: eastron(0x001C, "L3 Power (Reactive)", "VAr", group)},
		{Key: "l1_power_factor", Descriptor: eastron(0x001E, "L1 Power Factor", "", group)},
		{Key: "l2_power_factor", Descriptor: eastron(0x0020, "L2 Power Factor", "", group)},
		{Key: "l3_power_factor", Descriptor: eastron(0x0022, "L3 Power Factor", "", group)},
		{Key: "l1_phase_angle", Descriptor: eastron(0x0024, "L1 Phase Angle", "°", group)},
		{Key: "l2_phase_angle", Descriptor: eastron(0x0026, "L2 Phase Angle", "°", group)},
		{Key: "l3_phase_angle", Descriptor: eastron(0x0028, "L3 Phase Angle", "°", group)},
		{Key: "voltage_ln", Descriptor: eastron(0x002A, "L-N Voltage", "V", group)},
		{Key: "current_ln", Descriptor: eastron(0x002E, "L-N Current", "A", group)},
		{Key: "total_line_current", Descriptor: eastron(0x0030, "Total Line Current", "A", group)},
		{Key: "total_power_active", Descriptor: eastron(0x0034, "Total Power (Active)", "W", group)},
		{Key: "total_power_apparent", Descriptor: eastron(0x0038, "Total Power (Apparent)", "VA", group)},
		{Key: "total_power_reactive", Descriptor: eastron(0x003C, "Total Power (Reactive)", "VAr", group)},
		{Key: "total_power_factor", Descriptor: eastron(0x003E, "Total Power Factor", "", group)},
		{Key: "total_phase_angle", Descriptor: eastron(0x0042, "Total Phase Angle", "°", group)},
		{Key: "frequency", Descriptor: eastron(0x0046, "Frequency", "Hz", group)},
		{Key: "import_energy_active", Descriptor: eastron(0x0048, "Imported Energy (Active)", "kWh", group)},
		{Key: "export_energy_active", Descriptor: eastron(0x004A, "Exported Energy (Active)", "kWh", group)},
		{Key: "import_energy_reactive", Descriptor: eastron(0x004C, "Imported Energy (Reactive)", "kVArh", group)},
		{Key: "export_energy_reactive", Descriptor: eastron(0x004E, "Exported Energy (Reactive)", "kVArh", group)},
	}
}

func eastronTotals(group int) []register.Entry {
	return []register.Entry{
		{Key: "total_energy_active", Descriptor: eastron(0x0156, "Total Energy (Active)", "kWh", group)},
		{Key: "total_energy_reactive", Descriptor: eastron(0x0158, "Total Energy (Reactive)", "kVArh", group)},
	}
}

func eastronSerialNumber(group int) register.Entry {
	return register.Entry{Key: "serial_number", Descriptor: holding(0xFC00, 2, register.Uint32, register.IntValue, "Serial Number", "", group, nil)}
}

func entries(groups ...[]register.Entry) []register.Entry {
	var out []register.Entry
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// SDM630 is the Eastron three phase meter. All measurements are IEEE floats
// in engineering units.
var SDM630 = registerModel(&Model{
	Name:     "SDM630",
	Serial:   config.SerialDefaults{Baud: 38400, Parity: "N", StopBits: 1},
	ProbeKey: "l1_voltage",
	Catalog: register.MustCatalog(entries(
		eastronPhases(1),
		[]register.Entry{
			{Key: "total_demand_power_active", Descriptor: eastron(0x0054, "Total Demand Power (Active)", "W", 2)},
			{Key: "maximum_demand_power_active", Descriptor: eastron(0x0056, "Maximum Demand Power (Active)", "W", 2)},
			{Key: "import_demand_power_active", Descriptor: eastron(0x0058, "Import Demand Power (Active)", "W", 2)},
			{Key: "maximum_import_demand_power_active", Descriptor: eastron(0x005A, "Maximum Import Demand Power (Active)", "W", 2)},
			{Key: "export_demand_power_active", Descriptor: eastron(0x005C, "Export Demand Power (Active)", "W", 2)},
			{Key: "maximum_export_demand_power_active", Descriptor: eastron(0x005E, "Maximum Export Demand Power (Active)", "W", 2)},
			{Key: "total_demand_power_apparent", Descriptor: eastron(0x0064, "Total Demand Power (Apparent)", "VA", 2)},
			{Key: "maximum_demand_power_apparent", Descriptor: eastron(0x0066, "Maximum Demand Power (Apparent)", "VA", 2)},
			{Key: "neutral_demand_current", Descriptor: eastron(0x0068, "Neutral Demand Current", "A", 2)},
			{Key: "maximum_neutral_demand_current", Descriptor: eastron(0x006A, "Maximum Neutral Demand Current", "A", 2)},
		},
		[]register.Entry{
			{Key: "l12_voltage", Descriptor: eastron(0x00C8, "L1-L2 Voltage", "V", 3)},
			{Key: "l23_voltage", Descriptor: eastron(0x00CA, "L2-L3 Voltage", "V", 3)},
			{Key: "l31_voltage", Descriptor: eastron(0x00CC, "L3-L1 Voltage", "V", 3)},
			{Key: "voltage_ll", Descriptor: eastron(0x00CE, "L-L Voltage", "V", 3)},
			{Key: "neutral_current", Descriptor: eastron(0x00E0, "Neutral Current", "A", 3)},
			{Key: "l1n_voltage_thd", Descriptor: eastron(0x00EA, "L1-N Voltage THD", "%", 3)},
			{Key: "l2n_voltage_thd", Descriptor: eastron(0x00EC, "L2-N Voltage THD", "%", 3)},
			{Key: "l3n_voltage_thd", Descriptor: eastron(0x00EE, "L3-N Voltage THD", "%", 3)},
			{Key: "l1_current_thd", Descriptor: eastron(0x00F0, "L1 Current THD", "%", 3)},
			{Key: "l2_current_thd", Descriptor: eastron(0x00F2, "L2 Current THD", "%", 3)},
			{Key: "l3_current_thd", Descriptor: eastron(0x00F4, "L3 Current THD", "%", 3)},
			{Key: "voltage_ln_thd", Descriptor: eastron(0x00F8, "L-N Voltage THD", "%", 3)},
			{Key: "current_thd", Descriptor: eastron(0x00FA, "Current THD", "%", 3)},
			{Key: "total_pf", Descriptor: eastron(0x00FE, "Total PF", "", 3)},
			{Key: "l1_demand_current", Descriptor: eastron(0x0102, "L1 Demand Current", "A", 3)},
			{Key: "l2_demand_current", Descriptor: eastron(0x0104, "L2 Demand Current", "A", 3)},
			{Key: "l3_demand_current", Descriptor: eastron(0x0106, "L3 Demand Current", "A", 3)},
			{Key: "maximum_l1_demand_current", Descriptor: eastron(0x0108, "Maximum L1 Demand Current", "A", 3)},
			{Key: "maximum_l2_demand_current", Descriptor: eastron(0x010A, "Maximum L2 Demand Current", "A", 3)},
			{Key: "maximum_l3_demand_current", Descriptor: eastron(0x010C, "Maximum L3 Demand Current", "A", 3)},
		},
		eastronTotals(4),
		[]register.Entry{
			{Key: "demand_time", Descriptor: eastronSetting(0x0000, register.IntValue, "Demand Time", "s", 1)},
			{Key: "demand_period", Descriptor: eastronSetting(0x0002, register.IntValue, "Demand Period", "min", 1)},
			{Key: "system_voltage", Descriptor: eastronSetting(0x0006, register.FloatValue, "System Voltage", "V", 1)},
			{Key: "system_current", Descriptor: eastronSetting(0x0008, register.FloatValue, "System Current", "A", 1)},
			{Key: "system_type", Descriptor: eastronSetting(0x000A, register.IntValue, "System Type", "", 1)},
			{Key: "relay_pulse_width", Descriptor: eastronSetting(0x000C, register.IntValue, "Relay Pulse Width", "ms", 1)},
			{Key: "network_parity_stop", Descriptor: eastronSetting(0x0012, register.IntValue, "Network Parity Stop", "", 1)},
			{Key: "meter_id", Descriptor: eastronSetting(0x0014, register.IntValue, "Meter ID", "", 1)},
			{Key: "baud", Descriptor: eastronSetting(0x001C, register.IntValue, "Baud Rate", "", 1)},
			eastronSerialNumber(2),
		},
	)),
})
