package ha

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tetragramaton/smh-meter/internal/register"
)

type Device struct {
	Identifiers   []string `json:"identifiers,omitempty"`
	Manufacturer  string   `json:"manufacturer,omitempty"`
	Model         string   `json:"model,omitempty"`
	Name          string   `json:"name,omitempty"`
	SuggestedArea string   `json:"suggested_area,omitempty"`
}

type SensorConfig struct {
	Name         string                 `json:"name"`
	UniqueID     string                 `json:"unique_id"`
	StateTopic   string                 `json:"state_topic"`
	ValueTpl     string                 `json:"value_template,omitempty"`
	DeviceClass  string                 `json:"device_class,omitempty"`
	UnitOfMeas   string                 `json:"unit_of_measurement,omitempty"`
	Device       *Device                `json:"device,omitempty"`
	QoS          int                    `json:"qos,omitempty"`
	Availability []map[string]string    `json:"availability,omitempty"`
	Extra        map[string]interface{} `json:"-"`
}

func (c *SensorConfig) Marshal() ([]byte, error) {
	type alias SensorConfig
	a := alias(*c)
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	if c.Extra != nil {
		var base map[string]interface{}
		if err := json.Unmarshal(b, &base); err != nil {
			return nil, err
		}
		for k, v := range c.Extra {
			base[k] = v
		}
		return json.Marshal(base)
	}
	return b, nil
}

func TopicSensorConfig(cap, unique string) string {
	return fmt.Sprintf("homeassistant/sensor/%s/%s/config", unique, cap)
}

// Sensor is one published value of a meter.
type Sensor struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
	Unit  string `json:"unit,omitempty"`
}

// Meta is announced by an adapter on <prefix>/<device>/meta.
type Meta struct {
	DeviceID   string   `json:"device_id"`
	Model      string   `json:"model,omitempty"`
	Area       string   `json:"area,omitempty"`
	StateTopic string   `json:"state_topic"`
	Sensors    []Sensor `json:"sensors"`
}

// SensorsFromEntries lists the catalog entries as sensors.
func SensorsFromEntries(entries []register.Entry) []Sensor {
	out := make([]Sensor, 0, len(entries))
	for _, e := range entries {
		out = append(out, Sensor{Key: e.Key, Label: e.Label, Unit: e.Unit})
	}
	return out
}

// Announcement is a retained discovery config and its topic.
type Announcement struct {
	Topic  string
	Config *SensorConfig
}

// Discovery builds one sensor config per announced sensor.
func Discovery(meta Meta) []Announcement {
	unique := Sanitize(meta.DeviceID)
	device := &Device{
		Identifiers:   []string{meta.DeviceID},
		Manufacturer:  "SMH",
		Model:         meta.Model,
		Name:          meta.DeviceID,
		SuggestedArea: meta.Area,
	}
	out := make([]Announcement, 0, len(meta.Sensors))
	for _, s := range meta.Sensors {
		key := Sanitize(s.Key)
		name := s.Label
		if name == "" {
			name = s.Key
		}
		cfg := &SensorConfig{
			Name:        fmt.Sprintf("%s %s", meta.DeviceID, strings.ToLower(name)),
			UniqueID:    unique + "_" + key,
			StateTopic:  meta.StateTopic,
			ValueTpl:    fmt.Sprintf("{{ value_json['values']['%s'] }}", s.Key),
			DeviceClass: deviceClass(s),
			UnitOfMeas:  s.Unit,
			Device:      device,
		}
		if class := stateClass(s); class != "" {
			cfg.Extra = map[string]interface{}{"state_class": class}
		}
		out = append(out, Announcement{Topic: TopicSensorConfig(key, unique), Config: cfg})
	}
	return out
}

func deviceClass(s Sensor) string {
	switch strings.ToLower(s.Unit) {
	case "v":
		return "voltage"
	case "a", "ma":
		return "current"
	case "w", "kw":
		return "power"
	case "va":
		return "apparent_power"
	case "var":
		return "reactive_power"
	case "wh", "kwh":
		return "energy"
	case "hz":
		return "frequency"
	case "":
		if strings.Contains(strings.ToLower(s.Label), "power factor") {
			return "power_factor"
		}
	}
	return ""
}

func stateClass(s Sensor) string {
	switch strings.ToLower(s.Unit) {
	case "wh", "kwh", "varh", "kvarh":
		return "total_increasing"
	case "":
		if deviceClass(s) == "" {
			return ""
		}
	}
	return "measurement"
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// Sanitize turns s into an identifier usable in topics and unique ids.
func Sanitize(s string) string {
	return strings.ToLower(unsafeChars.ReplaceAllString(s, "_"))
}
