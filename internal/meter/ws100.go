package meter

import (
	"github.com/tetragramaton/smh-meter/internal/config"
	"github.com/tetragramaton/smh-meter/internal/register"
)

// WS100 is the single phase WS100-19xx energy meter. Energy counters are
// integers with an implied decimal point.
var WS100 = registerModel(&Model{
	Name:     "WS100_19XX",
	Serial:   config.SerialDefaults{Baud: 9600, Parity: "N", StopBits: 1},
	ProbeKey: "voltage",
	Catalog: register.MustCatalog([]register.Entry{
		// instant measures
		{Key: "voltage", Descriptor: input(0x0100, 2, register.Int32, register.IntValue, "Voltage", "V", 1, register.Shifted(1, 3))},
		{Key: "current", Descriptor: input(0x0102, 2, register.Int32, register.IntValue, "Current", "A", 1, register.Shifted(1, 3))},
		{Key: "active_power", Descriptor: input(0x0104, 2, register.Int32, register.IntValue, "Active Power", "W", 1, register.Factor(1))},
		{Key: "apparent_power", Descriptor: input(0x0106, 2, register.Int32, register.IntValue, "Apparent Power", "VA", 1, register.Factor(1))},
		{Key: "reactive_power", Descriptor: input(0x0108, 2, register.Int32, register.IntValue, "Reactive Power", "var", 1, register.Factor(1))},
		{Key: "frequency", Descriptor: input(0x010A, 1, register.Int16, register.FloatValue, "Frequency", "Hz", 1, register.Factor(0.1))},
		// the vendor table lists factor 0.001 and shift 3, which divides twice; shift 3 alone reads right
		{Key: "power_factor", Descriptor: input(0x010B, 1, register.Int16, register.FloatValue, "Power Factor", "", 1, register.Shifted(1, 3))},

		// active energy
		{Key: "total_forward_active_energy", Descriptor: input(0x010E, 2, register.Int32, register.IntValue, "Total Forward Active Energy", "kWh", 1, register.Shifted(1, 2))},
		{Key: "t1_forward_active_energy", Descriptor: input(0x0110, 2, register.Int32, register.IntValue, "T1 Forward Active Energy", "kWh", 1, register.Shifted(1, 2))},
		{Key: "t2_forward_active_energy", Descriptor: input(0x0112, 2, register.Int32, register.IntValue, "T2 Forward Active Energy", "kWh", 1, register.Shifted(1, 2))},
		{Key: "t3_forward_active_energy", Descriptor: input(0x0114, 2, register.Int32, register.IntValue, "T3 Forward Active Energy", "kWh", 1, register.Shifted(1, 2))},
		{Key: "t4_forward_active_energy", Descriptor: input(0x0116, 2, register.Int32, register.IntValue, "T4 Forward Active Energy", "kWh", 1, register.Shifted(1, 2))},
		{Key: "total_reverse_active_energy", Descriptor: input(0x0118, 2, register.Int32, register.IntValue, "Total Reverse Active Energy", "kWh", 1, register.Shifted(1, 2))},
		{Key: "t1_reverse_active_energy", Descriptor: input(0x011A, 2, register.Int32, register.IntValue, "T1 Reverse Active Energy", "kWh", 1, register.Shifted(1, 2))},
		{Key: "t2_reverse_active_energy", Descriptor: input(0x011C, 2, register.Int32, register.IntValue, "T2 Reverse Active Energy", "kWh", 1, register.Shifted(1, 2))},
		{Key: "t3_reverse_active_energy", Descriptor: input(0x011E, 2, register.Int32, register.IntValue, "T3 Reverse Active Energy", "kWh", 1, register.Shifted(1, 2))},
		{Key: "t4_reverse_active_energy", Descriptor: input(0x0120, 2, register.Int32, register.IntValue, "T4 Reverse Active Energy", "kWh", 1, register.Shifted(1, 2))},
		{Key: "total_active_energy", Descriptor: input(0x0122, 2, register.Int32, register.IntValue, "Total Active Energy", "kWh", 1, register.Shifted(1, 2))},

		// reactive energy
		{Key: "total_forward_reactive_energy", Descriptor: input(0x012C, 2, register.Int32, register.IntValue, "Total Forward Reactive Energy", "kvarh", 1, register.Shifted(1, 2))},
		{Key: "total_reverse_reactive_energy", Descriptor: input(0x0136, 2, register.Int32, register.IntValue, "Total Reverse Reactive Energy", "kvarh", 1, register.Shifted(1, 2))},
		{Key: "total_reactive_energy", Descriptor: input(0x0140, 2, register.Int32, register.IntValue, "Total Reactive Energy", "kvarh", 1, register.Shifted(1, 2))},

		// demand
		{Key: "forward_active_demand", Descriptor: input(0x0176, 2, register.Int32, register.IntValue, "Forward Active Demand", "W", 2, register.Shifted(1, 1))},
		{Key: "reverse_active_demand", Descriptor: input(0x017A, 2, register.Int32, register.IntValue, "Reverse Active Demand", "W", 2, register.Shifted(1, 1))},
		{Key: "forward_reactive_demand", Descriptor: input(0x0180, 2, register.Int32, register.IntValue, "Forward Reactive Demand", "var", 2, register.Shifted(1, 1))},
		{Key: "reverse_reactive_demand", Descriptor: input(0x0184, 2, register.Int32, register.IntValue, "Reverse Reactive Demand", "var", 2, register.Shifted(1, 1))},

		// meter parameters, read one by one
		{Key: "serial_number", Descriptor: input(0x1000, 6, register.Bytes, register.BytesValue, "Serial Number", "", 0, nil)},
		{Key: "modbus_id", Descriptor: input(0x1003, 1, register.Int16, register.IntValue, "Modbus ID", "", 0, nil)},
		{Key: "hw_version", Descriptor: input(0x1004, 1, register.Int16, register.IntValue, "HW Version", "", 0, nil)},
		{Key: "fw_checksum", Descriptor: input(0x1005, 1, register.Int16, register.IntValue, "FW Checksum", "", 0, nil)},
		{Key: "time", Descriptor: input(0x1007, 4, register.Bytes, register.BytesValue, "Time (Current Date & Time)", "", 0, nil)},
		{Key: "cycle_display", Descriptor: input(0x100B, 1, register.Int16, register.IntValue, "Cycle Display Time", "s", 0, nil)},
		{Key: "baud_rate", Descriptor: input(0x100C, 1, register.Int16, register.IntValue, "485 Baud Rate", "", 0, nil)},
		{Key: "parity", Descriptor: input(0x100D, 1, register.Int16, register.IntValue, "Parity", "", 0, nil)},
		{Key: "stop_bit", Descriptor: input(0x100E, 1, register.Int16, register.IntValue, "Stop Bit", "", 0, nil)},
		{Key: "energy_calc_code", Descriptor: input(0x100F, 1, register.Int16, register.IntValue, "Energy Calculation Code", "", 0, nil)},
		{Key: "demand_mode", Descriptor: input(0x1010, 1, register.Int16, register.IntValue, "Demand Mode", "", 0, nil)},
		{Key: "demand_cycle", Descriptor: input(0x1011, 1, register.Int16, register.IntValue, "Demand Cycle", "min", 0, nil)},
		{Key: "auto_cycle_display", Descriptor: input(0x1012, 4, register.Bytes, register.BytesValue, "Auto Cycle Display Content", "", 0, nil)},
		{Key: "password_setting", Descriptor: input(0x1016, 1, register.Int16, register.IntValue, "Password Setting", "", 0, nil)},
		{Key: "meter_running_time", Descriptor: input(0x1018, 2, register.Int32, register.IntValue, "Meter Running Time", "", 0, nil)},
		{Key: "timing_current", Descriptor: input(0x101A, 2, register.Int32, register.IntValue, "Timing Current Value", "mA", 0, nil)},

		// tariff parameters
		{Key: "tariff_table_1", Descriptor: holding(0x1700, 12, register.Bytes, register.BytesValue, "Time Period Table 1", "", 0, nil)},
		{Key: "tariff_table_2", Descriptor: holding(0x170C, 12, register.Bytes, register.BytesValue, "Time Period Table 2", "", 0, nil)},
		{Key: "tariff_table_3", Descriptor: holding(0x1718, 12, register.Bytes, register.BytesValue, "Time Period Table 3", "", 0, nil)},
		{Key: "tariff_table_4", Descriptor: holding(0x1724, 12, register.Bytes, register.BytesValue, "Time Period Table 4", "", 0, nil)},
		{Key: "tariff_table_5", Descriptor: holding(0x1730, 12, register.Bytes, register.BytesValue, "Time Period Table 5", "", 0, nil)},
		{Key: "tariff_table_6", Descriptor: holding(0x173C, 12, register.Bytes, register.BytesValue, "Time Period Table 6", "", 0, nil)},
		{Key: "tariff_table_7", Descriptor: holding(0x1748, 12, register.Bytes, register.BytesValue, "Time Period Table 7", "", 0, nil)},
		{Key: "tariff_table_8", Descriptor: holding(0x1754, 12, register.Bytes, register.BytesValue, "Time Period Table 8", "", 0, nil)},
		{Key: "time_zone_table", Descriptor: holding(0x1760, 12, register.Bytes, register.BytesValue, "Time Zone Table", "", 0, nil)},
		{Key: "holidays_table", Descriptor: holding(0x176C, 21, register.Bytes, register.BytesValue, "Holidays Table", "", 0, nil)},
	}),
})
