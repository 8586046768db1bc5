package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnv overrides cfg with the MODBUS_*, MQTT_* and device variables of the
// environment. Unset variables leave the file values untouched.
func ApplyEnv(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	setString(&cfg.DeviceID, "DEVICE_ID")
	setString(&cfg.Model, "MODEL")
	setString(&cfg.Area, "AREA")

	conn := &cfg.Connection
	if mode, ok := lookup("MODBUS_MODE"); ok {
		switch Mode(strings.ToLower(mode)) {
		case ModeRTU:
			if conn.Mode != ModeRTU {
				conn.Net = nil
				conn.Serial = &SerialConfig{}
			}
			conn.Mode = ModeRTU
		case ModeTCP, ModeUDP:
			if conn.Mode == ModeRTU || conn.Net == nil {
				conn.Serial = nil
				conn.Net = &NetConfig{}
			}
			conn.Mode = Mode(strings.ToLower(mode))
		default:
			return fmt.Errorf("MODBUS_MODE must be 'rtu', 'tcp' or 'udp'")
		}
	}
	if conn.Serial != nil {
		setString(&conn.Serial.Device, "MODBUS_PORT")
		if err := setInt(&conn.Serial.Baud, "MODBUS_BAUD"); err != nil {
			return err
		}
		if err := setInt(&conn.Serial.DataBits, "MODBUS_DATABITS"); err != nil {
			return err
		}
		setString(&conn.Serial.Parity, "MODBUS_PARITY")
		if err := setInt(&conn.Serial.StopBits, "MODBUS_STOPBITS"); err != nil {
			return err
		}
	}
	if conn.Net != nil {
		if addr, ok := lookup("MODBUS_TCP_ADDR"); ok {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return fmt.Errorf("invalid MODBUS_TCP_ADDR %q: %w", addr, err)
			}
			p, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("invalid MODBUS_TCP_ADDR port %q: %w", port, err)
			}
			conn.Net.Host = host
			conn.Net.Port = p
		}
	}
	if v, ok := lookup("MODBUS_SLAVE_ID"); ok {
		id, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return fmt.Errorf("invalid MODBUS_SLAVE_ID %q: %w", v, err)
		}
		conn.Unit = uint8(id)
	}
	if v, ok := lookup("MODBUS_TIMEOUT_MS"); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MODBUS_TIMEOUT_MS %q: %w", v, err)
		}
		conn.Timeout.Duration = time.Duration(ms) * time.Millisecond
	}
	if err := setInt(&conn.Retries, "MODBUS_RETRIES"); err != nil {
		return err
	}
	if v, ok := lookup("MODBUS_FRAMER"); ok {
		conn.Framer = Framer(strings.ToLower(v))
	}

	if v, ok := lookup("INTERVAL_SEC"); ok {
		sec, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid INTERVAL_SEC %q: %w", v, err)
		}
		cfg.Poll.Interval.Duration = time.Duration(sec) * time.Second
	}

	setString(&cfg.MQTT.URL, "MQTT_URL")
	setString(&cfg.MQTT.ClientID, "MQTT_CLIENT_ID")
	setString(&cfg.MQTT.Username, "MQTT_USERNAME")
	setString(&cfg.MQTT.Password, "MQTT_PASSWORD")
	if v, ok := lookup("MQTT_TLS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid MQTT_TLS %q: %w", v, err)
		}
		cfg.MQTT.TLS = b
	}
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Metrics.Listen, "METRICS_LISTEN")
	return nil
}

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}
